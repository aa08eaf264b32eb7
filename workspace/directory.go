package workspace

import (
	"context"
	"sync"
	"time"

	"slack-summariser/models"

	"github.com/slack-go/slack"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type Conversation = models.Conversation

// DirectoryTTL is how long a full listing is served from memory.
const DirectoryTTL = 300 * time.Second

// allConversationTypes is always requested so the cached listing can be
// filtered down for any subset query.
var allConversationTypes = []string{"public_channel", "private_channel", "mpim", "im"}

// Directory enumerates the caller's conversations and caches the full
// listing for DirectoryTTL. The cache is invalidated by age only.
type Directory struct {
	transport *transport
	ttl       time.Duration

	mu        sync.Mutex
	cached    []Conversation
	fetchedAt time.Time
	group     singleflight.Group
}

func newDirectory(t *transport) *Directory {
	return &Directory{transport: t, ttl: DirectoryTTL}
}

// List returns the conversations whose kind is in kinds, in backend order.
// A nil set returns every kind.
func (d *Directory) List(ctx context.Context, kinds models.KindSet) ([]Conversation, error) {
	all, err := d.all(ctx)
	if err != nil {
		return nil, err
	}
	filtered := make([]Conversation, 0, len(all))
	for _, conv := range all {
		if kinds.Has(conv.Kind) {
			filtered = append(filtered, conv)
		}
	}
	return filtered, nil
}

// fresh returns the cached listing while it is within the TTL.
func (d *Directory) fresh() ([]Conversation, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cached != nil && d.transport.clock.Now().Sub(d.fetchedAt) < d.ttl {
		return d.cached, true
	}
	return nil, false
}

func (d *Directory) all(ctx context.Context) ([]Conversation, error) {
	if cached, ok := d.fresh(); ok {
		return cached, nil
	}

	fetched, err, _ := d.group.Do("all", func() (any, error) {
		// A flight that finished after our miss may already have filled it.
		if cached, ok := d.fresh(); ok {
			return cached, nil
		}
		conversations, fetchError := d.fetchAll(ctx)
		if fetchError != nil {
			return nil, fetchError
		}
		d.mu.Lock()
		d.cached = conversations
		d.fetchedAt = d.transport.clock.Now()
		d.mu.Unlock()
		return conversations, nil
	})
	if err != nil {
		return nil, err
	}
	return fetched.([]Conversation), nil
}

// fetchAll walks every page of conversations.list. Pages are fetched
// sequentially with a fixed pause in between.
func (d *Directory) fetchAll(ctx context.Context) ([]Conversation, error) {
	var conversations []Conversation
	cursor := ""
	for page := 0; ; page++ {
		if page > 0 {
			if err := d.transport.clock.Sleep(ctx, d.transport.pageDelay); err != nil {
				return nil, err
			}
		}
		params := &slack.GetConversationsParameters{
			Cursor:          cursor,
			ExcludeArchived: true,
			Limit:           200,
			Types:           allConversationTypes,
		}
		type listPage struct {
			channels   []slack.Channel
			nextCursor string
		}
		result, getConversationsError := read(ctx, d.transport, "conversations.list", func(ctx context.Context) (listPage, error) {
			channels, next, err := d.transport.api.GetConversationsContext(ctx, params)
			return listPage{channels: channels, nextCursor: next}, err
		})
		if getConversationsError != nil {
			return nil, wrap("conversations.list", cursor, getConversationsError)
		}
		for _, ch := range result.channels {
			conversations = append(conversations, conversationFromSlack(ch))
		}
		if result.nextCursor == "" {
			break
		}
		cursor = result.nextCursor
	}
	d.transport.logger.Debug("Fetched conversation directory", zap.Int("count", len(conversations)))
	if conversations == nil {
		conversations = []Conversation{}
	}
	return conversations, nil
}

func conversationFromSlack(ch slack.Channel) Conversation {
	kind := models.ClassifyKind(ch.IsIM, ch.IsMpIM, ch.IsPrivate)

	var name string
	switch kind {
	case models.KindDirectMessage:
		// Resolution costs a round trip; defer it until someone shows the name.
		name = models.DirectMessagePlaceholder(ch.User)
	case models.KindGroupDirectMessage:
		name = models.GroupDirectMessageName(ch.Name)
	default:
		name = models.ChannelName(ch.Name)
	}

	// Membership is implicit for direct and group direct messages.
	isMember := ch.IsMember || kind == models.KindDirectMessage || kind == models.KindGroupDirectMessage

	return Conversation{
		ID:             ch.ID,
		DisplayName:    name,
		Kind:           kind,
		IsMember:       isMember,
		IsArchived:     ch.IsArchived,
		UnreadCount:    ch.UnreadCount,
		LastReadMarker: ch.LastRead,
		PeerUserID:     ch.User,
	}
}
