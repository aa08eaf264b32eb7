package summarize

import (
	"context"
	"fmt"

	"slack-summariser/models"
	"slack-summariser/workspace"

	"go.uber.org/zap"
)

const (
	DefaultUnreadConversations = 15
	unreadDepth                = 50
	mentionDepth               = 100
)

type UnreadOptions struct {
	Hours int
	// MaxDirectMessages caps direct and group direct conversations checked.
	MaxDirectMessages int
	// MaxChannels caps public and private channels checked.
	MaxChannels int
}

// Unread returns, in directory order, every non-archived conversation with
// at least one message newer than its read marker. Conversations without a
// marker fall back to the look-back window. Messages are newest first.
func Unread(ctx context.Context, src Source, opts UnreadOptions) ([]models.UnreadConversation, error) {
	logger := src.Logger().With(zap.String("scan", "unread"))
	since := cutoff(src, opts.Hours)
	maxDirectMessages := defaultIfUnset(opts.MaxDirectMessages, DefaultUnreadConversations)
	maxChannels := defaultIfUnset(opts.MaxChannels, DefaultUnreadConversations)

	conversations, listError := src.Conversations(ctx, nil)
	if listError != nil {
		return nil, fmt.Errorf("listing conversations: %w", listError)
	}

	unread := make([]models.UnreadConversation, 0)
	directMessagesChecked, channelsChecked := 0, 0
	for _, conv := range conversations {
		if conv.IsArchived {
			continue
		}
		if isDirect(conv.Kind) {
			if directMessagesChecked >= maxDirectMessages {
				continue
			}
			directMessagesChecked++
		} else {
			if channelsChecked >= maxChannels {
				continue
			}
			channelsChecked++
		}

		oldest := since
		if marker := models.ParseMessageTime(conv.LastReadMarker); marker != nil {
			oldest = *marker
		}
		messages, err := scanHistory(ctx, src, logger, conv, workspace.HistoryOptions{Limit: unreadDepth, Oldest: oldest})
		if err != nil {
			return nil, err
		}
		if len(messages) == 0 {
			continue
		}

		conv.DisplayName = src.ResolveDirectMessageName(ctx, conv)
		labelMessages(messages, conv.DisplayName)
		models.SortNewestFirst(messages)
		unread = append(unread, models.UnreadConversation{Conversation: conv, Messages: messages})
	}
	return unread, nil
}

// UnreadByName keys unread conversations by display name.
func UnreadByName(unread []models.UnreadConversation) map[string][]Message {
	byName := make(map[string][]Message, len(unread))
	for _, entry := range unread {
		byName[entry.Conversation.DisplayName] = append(byName[entry.Conversation.DisplayName], entry.Messages...)
	}
	return byName
}

// Mentions scans every non-archived conversation inside the look-back
// window and returns the messages that mention the caller, newest first.
func Mentions(ctx context.Context, src Source, hours int) ([]Message, error) {
	logger := src.Logger().With(zap.String("scan", "mentions"))
	since := cutoff(src, hours)

	conversations, listError := src.Conversations(ctx, nil)
	if listError != nil {
		return nil, fmt.Errorf("listing conversations: %w", listError)
	}

	mentions := make([]Message, 0)
	for _, conv := range conversations {
		if conv.IsArchived {
			continue
		}
		messages, err := scanHistory(ctx, src, logger, conv, workspace.HistoryOptions{Limit: mentionDepth, Oldest: since})
		if err != nil {
			return nil, err
		}
		var found []Message
		for _, msg := range messages {
			if msg.MentionsMe {
				found = append(found, msg)
			}
		}
		if len(found) == 0 {
			continue
		}
		labelMessages(found, src.ResolveDirectMessageName(ctx, conv))
		mentions = append(mentions, found...)
	}
	models.SortNewestFirst(mentions)
	return mentions, nil
}

func isDirect(kind models.Kind) bool {
	return kind == models.KindDirectMessage || kind == models.KindGroupDirectMessage
}

func defaultIfUnset(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}
