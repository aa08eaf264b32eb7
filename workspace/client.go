package workspace

import (
	"context"
	"strings"
	"time"

	"slack-summariser/models"

	"github.com/slack-go/slack"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type Message = models.Message

// Client is the authenticated view of one workspace. Its caches are owned
// by the instance; clients for different workspaces share nothing.
type Client struct {
	workspace models.Workspace
	transport *transport
	identity  *IdentityResolver
	directory *Directory
}

type Option func(*Client)

func WithClock(clock Clock) Option {
	return func(c *Client) { c.transport.clock = clock }
}

func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.transport.timeout = timeout }
}

// WithLimiter makes every method draw from one limiter in place of the
// per-method tier buckets. A nil limiter disables client-side throttling.
func WithLimiter(limiter *rate.Limiter) Option {
	return func(c *Client) {
		c.transport.shared = limiter
		c.transport.unlimited = limiter == nil
	}
}

func WithPageDelay(delay time.Duration) Option {
	return func(c *Client) { c.transport.pageDelay = delay }
}

func New(ws models.Workspace, api Backend, logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &transport{
		api:       api,
		timeout:   DefaultCallTimeout,
		pageDelay: DefaultPageDelay,
		clock:     RealClock(),
		logger:    logger.With(zap.String("workspace", ws.Key)),
	}
	c := &Client{workspace: ws, transport: t}
	for _, opt := range opts {
		opt(c)
	}
	c.identity = newIdentityResolver(t)
	c.directory = newDirectory(t)
	return c
}

func (c *Client) Workspace() models.Workspace { return c.workspace }

func (c *Client) Identity() *IdentityResolver { return c.identity }

func (c *Client) Directory() *Directory { return c.directory }

func (c *Client) Logger() *zap.Logger { return c.transport.logger }

func (c *Client) Now() time.Time { return c.transport.clock.Now() }

// MyUserID returns the authenticated user's id.
func (c *Client) MyUserID(ctx context.Context) (string, error) {
	return c.identity.Me(ctx)
}

// Conversations lists conversations of the given kinds from the directory.
func (c *Client) Conversations(ctx context.Context, kinds models.KindSet) ([]Conversation, error) {
	return c.directory.List(ctx, kinds)
}

// administrativeSubtypes are join/leave/system notices dropped from history.
var administrativeSubtypes = map[string]bool{
	"channel_join":    true,
	"channel_leave":   true,
	"group_join":      true,
	"group_leave":     true,
	"channel_topic":   true,
	"channel_purpose": true,
	"channel_name":    true,
	"channel_archive": true,
	"bot_message":     true,
}

type HistoryOptions struct {
	// Limit defaults to 100.
	Limit int
	// Oldest and Latest are optional time bounds; zero means unbounded.
	Oldest time.Time
	Latest time.Time
}

// History returns a conversation's messages in ascending time order.
// A conversation that no longer exists or is inaccessible yields an empty
// result; any other backend failure is returned.
func (c *Client) History(ctx context.Context, conversationID string, opts HistoryOptions) ([]Message, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	params := &slack.GetConversationHistoryParameters{
		ChannelID: conversationID,
		Limit:     limit,
	}
	if !opts.Oldest.IsZero() {
		params.Oldest = models.FormatMessageTime(opts.Oldest)
	}
	if !opts.Latest.IsZero() {
		params.Latest = models.FormatMessageTime(opts.Latest)
	}

	response, getConversationHistoryError := read(ctx, c.transport, "conversations.history", func(ctx context.Context) (*slack.GetConversationHistoryResponse, error) {
		return c.transport.api.GetConversationHistoryContext(ctx, params)
	})
	if getConversationHistoryError != nil {
		if isConversationNotFound(getConversationHistoryError) {
			c.transport.logger.Debug("History of missing conversation",
				zap.String("channel", conversationID),
				zap.Error(getConversationHistoryError))
			return []Message{}, nil
		}
		return nil, wrap("conversations.history", conversationID, getConversationHistoryError)
	}

	me, err := c.identity.Me(ctx)
	if err != nil {
		return nil, err
	}

	// The backend returns newest first.
	raw := response.Messages
	messages := make([]Message, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		msg := raw[i]
		if administrativeSubtypes[msg.SubType] {
			continue
		}
		messages = append(messages, c.messageFromSlack(ctx, msg.Msg, conversationID, me))
	}
	return messages, nil
}

// Thread returns a thread root and its replies in ascending order. Threads
// are best-effort: any failure yields an empty result.
func (c *Client) Thread(ctx context.Context, conversationID, threadRootID string, limit int) []Message {
	if limit <= 0 {
		limit = 100
	}
	params := &slack.GetConversationRepliesParameters{
		ChannelID: conversationID,
		Timestamp: threadRootID,
		Limit:     limit,
	}
	replies, getConversationRepliesError := read(ctx, c.transport, "conversations.replies", func(ctx context.Context) ([]slack.Message, error) {
		msgs, _, _, err := c.transport.api.GetConversationRepliesContext(ctx, params)
		return msgs, err
	})
	if getConversationRepliesError != nil {
		c.transport.logger.Warn("Thread fetch failed",
			zap.String("channel", conversationID),
			zap.String("thread_ts", threadRootID),
			zap.Error(getConversationRepliesError))
		return []Message{}
	}

	// Mentions are a nicety here; a failed identity check leaves them unset.
	me, _ := c.identity.Me(ctx)

	messages := make([]Message, 0, len(replies))
	for _, reply := range replies {
		msg := c.messageFromSlack(ctx, reply.Msg, conversationID, me)
		msg.ThreadRootID = threadRootID
		messages = append(messages, msg)
	}
	return messages
}

// Search returns backend-ranked matches. Author names come straight from
// the search payload and are not run through the identity resolver.
func (c *Client) Search(ctx context.Context, query string, count int) []Message {
	if count <= 0 {
		count = 20
	}
	params := slack.NewSearchParameters()
	params.Count = count
	params.Sort = "timestamp"

	result, searchError := read(ctx, c.transport, "search.messages", func(ctx context.Context) (*slack.SearchMessages, error) {
		return c.transport.api.SearchMessagesContext(ctx, query, params)
	})
	if searchError != nil {
		c.transport.logger.Warn("Search failed",
			zap.String("query", query),
			zap.Error(searchError))
		return []Message{}
	}

	me, _ := c.identity.Me(ctx)

	messages := make([]Message, 0, len(result.Matches))
	for _, match := range result.Matches {
		messages = append(messages, Message{
			ID:                      match.Timestamp,
			Text:                    match.Text,
			AuthorID:                match.User,
			AuthorDisplayName:       match.Username,
			ConversationID:          match.Channel.ID,
			ConversationDisplayName: models.ChannelName(match.Channel.Name),
			MentionsMe:              mentions(match.Text, me),
			SentAt:                  models.ParseMessageTime(match.Timestamp),
		})
	}
	return messages
}

func (c *Client) messageFromSlack(ctx context.Context, msg slack.Msg, conversationID, me string) Message {
	authorName := ""
	if msg.User != "" {
		authorName = c.identity.Resolve(ctx, msg.User).DisplayName
	}
	return Message{
		ID:                msg.Timestamp,
		Text:              msg.Text,
		AuthorID:          msg.User,
		AuthorDisplayName: authorName,
		ConversationID:    conversationID,
		ThreadRootID:      msg.ThreadTimestamp,
		ReplyCount:        msg.ReplyCount,
		MentionsMe:        mentions(msg.Text, me),
		SentAt:            models.ParseMessageTime(msg.Timestamp),
	}
}

// mentions reports whether text embeds a mention token for userID.
func mentions(text, userID string) bool {
	if userID == "" {
		return false
	}
	return strings.Contains(text, "<@"+userID+">")
}
