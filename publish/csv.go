package publish

import (
	"fmt"

	"slack-summariser/models"

	"github.com/gocarina/gocsv"
)

// messageRow flattens a message for CSV output.
type messageRow struct {
	ID           string `csv:"ts"`
	Conversation string `csv:"channel"`
	Author       string `csv:"user"`
	Time         string `csv:"time"`
	Text         string `csv:"text"`
	ThreadRootID string `csv:"thread_ts"`
	ReplyCount   int    `csv:"replies"`
	MentionsMe   bool   `csv:"mentions_me"`
}

type conversationRow struct {
	ID          string `csv:"id"`
	Name        string `csv:"name"`
	Kind        string `csv:"kind"`
	IsMember    bool   `csv:"is_member"`
	UnreadCount int    `csv:"unread_count"`
}

// MessagesCSV renders messages as CSV with a header row.
func MessagesCSV(messages []models.Message) (string, error) {
	rows := make([]messageRow, 0, len(messages))
	for _, msg := range messages {
		row := messageRow{
			ID:           msg.ID,
			Conversation: msg.ConversationDisplayName,
			Author:       msg.AuthorDisplayName,
			Text:         msg.Text,
			ThreadRootID: msg.ThreadRootID,
			ReplyCount:   msg.ReplyCount,
			MentionsMe:   msg.MentionsMe,
		}
		if msg.SentAt != nil {
			row.Time = msg.SentAt.UTC().Format("2006-01-02T15:04:05Z")
		}
		rows = append(rows, row)
	}
	csvBytes, err := gocsv.MarshalBytes(&rows)
	if err != nil {
		return "", fmt.Errorf("marshalling messages to csv: %w", err)
	}
	return string(csvBytes), nil
}

// ConversationsCSV renders conversations as CSV with a header row.
func ConversationsCSV(conversations []models.Conversation) (string, error) {
	rows := make([]conversationRow, 0, len(conversations))
	for _, conv := range conversations {
		rows = append(rows, conversationRow{
			ID:          conv.ID,
			Name:        conv.DisplayName,
			Kind:        string(conv.Kind),
			IsMember:    conv.IsMember,
			UnreadCount: conv.UnreadCount,
		})
	}
	csvBytes, err := gocsv.MarshalBytes(&rows)
	if err != nil {
		return "", fmt.Errorf("marshalling conversations to csv: %w", err)
	}
	return string(csvBytes), nil
}
