// Package workspacetest provides an in-memory Slack backend and a manual
// clock for exercising workspace clients without the network.
package workspacetest

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"slack-summariser/models"

	"github.com/slack-go/slack"
)

// Backend is a scripted Slack API. Histories are stored oldest first and
// served newest first, the way the real API does.
type Backend struct {
	mu sync.Mutex

	Me    string
	Users map[string]*slack.User
	// UserErrors fails users.info for specific ids.
	UserErrors map[string]error
	AuthError  error

	// ConversationPages are served one per conversations.list call.
	ConversationPages [][]slack.Channel
	ListError         error

	History       map[string][]slack.Msg
	HistoryErrors map[string]error

	// Replies is keyed by ThreadKey(channel, ts).
	Replies      map[string][]slack.Msg
	RepliesError error

	SearchMatches []slack.SearchMessage
	SearchError   error

	PostError     error
	ReactionError error

	Posts     []Post
	Reactions []Reaction
	calls     map[string]int
	nextTS    int
}

type Post struct {
	Channel  string
	Text     string
	ThreadTS string
}

type Reaction struct {
	Channel   string
	Timestamp string
	Name      string
}

func NewBackend(me string) *Backend {
	return &Backend{
		Me:            me,
		Users:         make(map[string]*slack.User),
		UserErrors:    make(map[string]error),
		History:       make(map[string][]slack.Msg),
		HistoryErrors: make(map[string]error),
		Replies:       make(map[string][]slack.Msg),
		calls:         make(map[string]int),
		nextTS:        1700000000,
	}
}

func ThreadKey(channel, ts string) string { return channel + "/" + ts }

// Calls returns how many times a backend method was invoked, e.g.
// "conversations.list".
func (b *Backend) Calls(method string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[method]
}

func (b *Backend) TotalCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	total := 0
	for _, n := range b.calls {
		total += n
	}
	return total
}

func (b *Backend) count(method string) {
	b.calls[method]++
}

// AddUser registers a profile for users.info.
func (b *Backend) AddUser(id, handle, realName string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Users[id] = &slack.User{ID: id, Name: handle, RealName: realName}
}

// AddChannel appends a conversation to the first listing page.
func (b *Backend) AddChannel(ch slack.Channel) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.ConversationPages) == 0 {
		b.ConversationPages = append(b.ConversationPages, nil)
	}
	b.ConversationPages[0] = append(b.ConversationPages[0], ch)
}

// AddMessage appends a message to a conversation's history. Messages must
// be added oldest first.
func (b *Backend) AddMessage(channel string, msg slack.Msg) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.History[channel] = append(b.History[channel], msg)
}

func (b *Backend) AuthTestContext(ctx context.Context) (*slack.AuthTestResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.count("auth.test")
	if b.AuthError != nil {
		return nil, b.AuthError
	}
	return &slack.AuthTestResponse{UserID: b.Me}, nil
}

func (b *Backend) GetUserInfoContext(ctx context.Context, user string) (*slack.User, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.count("users.info")
	if err := b.UserErrors[user]; err != nil {
		return nil, err
	}
	info, ok := b.Users[user]
	if !ok {
		return nil, slack.SlackErrorResponse{Err: "user_not_found"}
	}
	return info, nil
}

func (b *Backend) GetConversationsContext(ctx context.Context, params *slack.GetConversationsParameters) ([]slack.Channel, string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.count("conversations.list")
	if b.ListError != nil {
		return nil, "", b.ListError
	}
	page := 0
	if params.Cursor != "" {
		n, err := strconv.Atoi(params.Cursor)
		if err != nil {
			return nil, "", slack.SlackErrorResponse{Err: "invalid_cursor"}
		}
		page = n
	}
	if page >= len(b.ConversationPages) {
		return nil, "", nil
	}
	next := ""
	if page+1 < len(b.ConversationPages) {
		next = strconv.Itoa(page + 1)
	}
	channels := append([]slack.Channel(nil), b.ConversationPages[page]...)
	return channels, next, nil
}

func (b *Backend) GetConversationHistoryContext(ctx context.Context, params *slack.GetConversationHistoryParameters) (*slack.GetConversationHistoryResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.count("conversations.history")
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := b.HistoryErrors[params.ChannelID]; err != nil {
		return nil, err
	}
	stored, ok := b.History[params.ChannelID]
	if !ok {
		return nil, slack.SlackErrorResponse{Err: "channel_not_found"}
	}

	var selected []slack.Message
	for i := len(stored) - 1; i >= 0; i-- {
		msg := stored[i]
		if params.Oldest != "" && compare(msg.Timestamp, params.Oldest) < 0 {
			continue
		}
		if params.Latest != "" {
			c := compare(msg.Timestamp, params.Latest)
			if c > 0 || (c == 0 && !params.Inclusive) {
				continue
			}
		}
		selected = append(selected, slack.Message{Msg: msg})
		if params.Limit > 0 && len(selected) == params.Limit {
			break
		}
	}
	resp := &slack.GetConversationHistoryResponse{Messages: selected}
	resp.Ok = true
	return resp, nil
}

func (b *Backend) GetConversationRepliesContext(ctx context.Context, params *slack.GetConversationRepliesParameters) ([]slack.Message, bool, string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.count("conversations.replies")
	if b.RepliesError != nil {
		return nil, false, "", b.RepliesError
	}
	stored, ok := b.Replies[ThreadKey(params.ChannelID, params.Timestamp)]
	if !ok {
		return nil, false, "", slack.SlackErrorResponse{Err: "thread_not_found"}
	}
	start := 0
	if params.Cursor != "" {
		n, err := strconv.Atoi(params.Cursor)
		if err != nil {
			return nil, false, "", slack.SlackErrorResponse{Err: "invalid_cursor"}
		}
		start = n
	}
	var out []slack.Message
	for _, msg := range stored[min(start, len(stored)):] {
		out = append(out, slack.Message{Msg: msg})
		if params.Limit > 0 && len(out) == params.Limit {
			break
		}
	}
	end := start + len(out)
	if end < len(stored) {
		return out, true, strconv.Itoa(end), nil
	}
	return out, false, "", nil
}

func (b *Backend) SearchMessagesContext(ctx context.Context, query string, params slack.SearchParameters) (*slack.SearchMessages, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.count("search.messages")
	if b.SearchError != nil {
		return nil, b.SearchError
	}
	matches := b.SearchMatches
	if params.Count > 0 && len(matches) > params.Count {
		matches = matches[:params.Count]
	}
	return &slack.SearchMessages{Matches: matches, Total: len(matches)}, nil
}

func (b *Backend) PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error) {
	_, values, err := slack.UnsafeApplyMsgOptions("", channelID, "", options...)
	if err != nil {
		return "", "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.count("chat.postMessage")
	if b.PostError != nil {
		return "", "", b.PostError
	}
	b.Posts = append(b.Posts, Post{
		Channel:  channelID,
		Text:     values.Get("text"),
		ThreadTS: values.Get("thread_ts"),
	})
	b.nextTS++
	return channelID, fmt.Sprintf("%d.000100", b.nextTS), nil
}

func (b *Backend) AddReactionContext(ctx context.Context, name string, item slack.ItemRef) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.count("reactions.add")
	if b.ReactionError != nil {
		return b.ReactionError
	}
	b.Reactions = append(b.Reactions, Reaction{Channel: item.Channel, Timestamp: item.Timestamp, Name: name})
	return nil
}

func compare(a, b string) int {
	return models.CompareIDs(a, b)
}

// Channel builds a public channel listing entry.
func Channel(id, name string) slack.Channel {
	var ch slack.Channel
	ch.ID = id
	ch.Name = name
	ch.IsChannel = true
	ch.IsMember = true
	return ch
}

// PrivateChannel builds a private channel listing entry.
func PrivateChannel(id, name string) slack.Channel {
	ch := Channel(id, name)
	ch.IsPrivate = true
	return ch
}

// DirectMessage builds a direct message listing entry with a peer.
func DirectMessage(id, userID string) slack.Channel {
	var ch slack.Channel
	ch.ID = id
	ch.IsIM = true
	ch.User = userID
	return ch
}

// GroupDirectMessage builds a group direct message listing entry.
func GroupDirectMessage(id, name string) slack.Channel {
	var ch slack.Channel
	ch.ID = id
	ch.Name = name
	ch.IsMpIM = true
	ch.IsPrivate = true
	return ch
}

// Msg builds a message authored by user at the given instant.
func Msg(user, text string, at time.Time) slack.Msg {
	return slack.Msg{
		User:      user,
		Text:      text,
		Timestamp: models.FormatMessageTime(at),
	}
}

// Clock is a manually advanced clock. Sleep advances time instead of blocking.
type Clock struct {
	mu    sync.Mutex
	now   time.Time
	slept []time.Duration
}

func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slept = append(c.slept, d)
	c.now = c.now.Add(d)
	return nil
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Slept returns every duration passed to Sleep, in call order.
func (c *Clock) Slept() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.slept...)
}
