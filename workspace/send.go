package workspace

import (
	"context"
	"fmt"
	"strings"

	"slack-summariser/models"

	"github.com/slack-go/slack"
	"go.uber.org/zap"
)

// quoteExcerptLength is how much of a quoted message is repeated in a reply.
const quoteExcerptLength = 50

// threadPageSize is the page size used to walk a thread to its newest reply.
const threadPageSize = 200

type SendRequest struct {
	// ConversationRef is a channel name, "@person" or a raw id.
	ConversationRef string
	Text            string
	// ThreadRootID posts the message as a thread reply.
	ThreadRootID string
	// QuotedReplyToID names the message being answered. When it is no
	// longer the newest message, a short excerpt is prefixed to Text.
	QuotedReplyToID string
}

// Send posts a message once and reports the created message or the failure.
func (c *Client) Send(ctx context.Context, req SendRequest) (Message, error) {
	conversationID, err := c.ResolveConversationRef(ctx, req.ConversationRef)
	if err != nil {
		return Message{}, err
	}

	text := req.Text
	if req.QuotedReplyToID != "" {
		text = c.withReplyContext(ctx, conversationID, req.ThreadRootID, req.QuotedReplyToID, text)
	}

	options := []slack.MsgOption{slack.MsgOptionText(text, false)}
	if req.ThreadRootID != "" {
		options = append(options, slack.MsgOptionTS(req.ThreadRootID))
	}

	c.transport.logger.Debug("Posting message",
		zap.String("channel", conversationID),
		zap.String("thread_ts", req.ThreadRootID))

	type posted struct {
		channel, timestamp string
	}
	result, postMessageError := write(ctx, c.transport, "chat.postMessage", func(ctx context.Context) (posted, error) {
		channel, timestamp, err := c.transport.api.PostMessageContext(ctx, conversationID, options...)
		return posted{channel: channel, timestamp: timestamp}, err
	})
	if postMessageError != nil {
		return Message{}, wrap("chat.postMessage", conversationID, postMessageError)
	}

	me, _ := c.identity.Me(ctx)
	channel := result.channel
	if channel == "" {
		channel = conversationID
	}
	return Message{
		ID:             result.timestamp,
		Text:           text,
		AuthorID:       me,
		ConversationID: channel,
		ThreadRootID:   req.ThreadRootID,
		SentAt:         models.ParseMessageTime(result.timestamp),
	}, nil
}

// React adds an emoji reaction. Only a failed conversation lookup is an
// error; a backend rejection is reported as false.
func (c *Client) React(ctx context.Context, conversationRef, messageID, emoji string) (bool, error) {
	conversationID, err := c.ResolveConversationRef(ctx, conversationRef)
	if err != nil {
		return false, err
	}
	emoji = strings.Trim(strings.TrimSpace(emoji), ":")

	_, addReactionError := write(ctx, c.transport, "reactions.add", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.transport.api.AddReactionContext(ctx, emoji, slack.NewRefToMessage(conversationID, messageID))
	})
	if addReactionError != nil {
		c.transport.logger.Warn("Reaction rejected",
			zap.String("channel", conversationID),
			zap.String("timestamp", messageID),
			zap.String("emoji", emoji),
			zap.Error(addReactionError))
		return false, nil
	}
	return true, nil
}

// withReplyContext prefixes text with an excerpt of the quoted message
// unless that message is still the newest one. Any lookup failure leaves
// text unchanged.
func (c *Client) withReplyContext(ctx context.Context, conversationID, threadRootID, quotedID, text string) string {
	var recent []Message
	if threadRootID != "" {
		replies, err := c.threadReplies(ctx, conversationID, threadRootID)
		if err != nil {
			c.transport.logger.Warn("Could not check latest reply for reply context",
				zap.String("channel", conversationID),
				zap.String("thread_ts", threadRootID),
				zap.Error(err))
			return text
		}
		recent = replies
	} else {
		history, err := c.History(ctx, conversationID, HistoryOptions{Limit: 3})
		if err != nil {
			c.transport.logger.Warn("Could not check latest message for reply context",
				zap.String("channel", conversationID),
				zap.Error(err))
			return text
		}
		recent = history
	}
	if len(recent) == 0 {
		return text
	}
	if recent[len(recent)-1].ID == quotedID {
		return text
	}

	var original *Message
	for i := range recent {
		if recent[i].ID == quotedID {
			original = &recent[i]
			break
		}
	}
	if original == nil && threadRootID == "" {
		original = c.fetchSingle(ctx, conversationID, quotedID)
	}
	if original == nil || original.Text == "" {
		return text
	}
	return fmt.Sprintf("Re: \"%s\" — %s", quoteExcerpt(original.Text), text)
}

// threadReplies walks every page of a thread, oldest first, so the last
// element is the newest reply. Authors are left unresolved.
func (c *Client) threadReplies(ctx context.Context, conversationID, threadRootID string) ([]Message, error) {
	type repliesPage struct {
		replies    []slack.Message
		hasMore    bool
		nextCursor string
	}
	var messages []Message
	cursor := ""
	for {
		params := &slack.GetConversationRepliesParameters{
			ChannelID: conversationID,
			Timestamp: threadRootID,
			Cursor:    cursor,
			Limit:     threadPageSize,
		}
		page, getConversationRepliesError := read(ctx, c.transport, "conversations.replies", func(ctx context.Context) (repliesPage, error) {
			replies, hasMore, next, err := c.transport.api.GetConversationRepliesContext(ctx, params)
			return repliesPage{replies: replies, hasMore: hasMore, nextCursor: next}, err
		})
		if getConversationRepliesError != nil {
			return nil, wrap("conversations.replies", threadRootID, getConversationRepliesError)
		}
		for _, reply := range page.replies {
			messages = append(messages, Message{
				ID:             reply.Timestamp,
				Text:           reply.Text,
				AuthorID:       reply.User,
				ConversationID: conversationID,
				ThreadRootID:   threadRootID,
			})
		}
		if !page.hasMore || page.nextCursor == "" {
			return messages, nil
		}
		cursor = page.nextCursor
	}
}

// fetchSingle loads exactly the message with the given id, or nil.
func (c *Client) fetchSingle(ctx context.Context, conversationID, messageID string) *Message {
	params := &slack.GetConversationHistoryParameters{
		ChannelID: conversationID,
		Latest:    messageID,
		Limit:     1,
		Inclusive: true,
	}
	response, err := read(ctx, c.transport, "conversations.history", func(ctx context.Context) (*slack.GetConversationHistoryResponse, error) {
		return c.transport.api.GetConversationHistoryContext(ctx, params)
	})
	if err != nil || len(response.Messages) == 0 {
		if err != nil {
			c.transport.logger.Debug("Quoted message lookup failed",
				zap.String("channel", conversationID),
				zap.String("ts", messageID),
				zap.Error(err))
		}
		return nil
	}
	found := response.Messages[0]
	if found.Timestamp != messageID {
		return nil
	}
	return &Message{
		ID:             found.Timestamp,
		Text:           found.Text,
		AuthorID:       found.User,
		ConversationID: conversationID,
		SentAt:         models.ParseMessageTime(found.Timestamp),
	}
}

// quoteExcerpt keeps the first quoteExcerptLength characters, cut back to a
// word boundary, with newlines flattened.
func quoteExcerpt(text string) string {
	excerpt := text
	runes := []rune(text)
	if len(runes) > quoteExcerptLength {
		excerpt = string(runes[:quoteExcerptLength])
		if i := strings.LastIndex(excerpt, " "); i > 0 {
			excerpt = excerpt[:i]
		}
		excerpt += "..."
	}
	excerpt = strings.ReplaceAll(excerpt, "\r\n", " ")
	excerpt = strings.ReplaceAll(excerpt, "\n", " ")
	return strings.TrimSpace(excerpt)
}
