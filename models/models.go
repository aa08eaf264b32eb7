package models

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

type Kind string

const (
	KindChannel            Kind = "channel"
	KindPrivateChannel     Kind = "private_channel"
	KindDirectMessage      Kind = "direct_message"
	KindGroupDirectMessage Kind = "group_direct_message"
)

// ClassifyKind maps the backend conversation flags to exactly one Kind.
// When several flags are set, direct message wins over group direct
// message, which wins over private channel.
func ClassifyKind(isIM, isMpIM, isPrivate bool) Kind {
	switch {
	case isIM:
		return KindDirectMessage
	case isMpIM:
		return KindGroupDirectMessage
	case isPrivate:
		return KindPrivateChannel
	default:
		return KindChannel
	}
}

type KindSet map[Kind]bool

func NewKindSet(kinds ...Kind) KindSet {
	set := make(KindSet, len(kinds))
	for _, k := range kinds {
		set[k] = true
	}
	return set
}

func AllKinds() KindSet {
	return NewKindSet(KindChannel, KindPrivateChannel, KindDirectMessage, KindGroupDirectMessage)
}

// Has reports whether k is in the set. A nil set means every kind.
func (s KindSet) Has(k Kind) bool {
	if s == nil {
		return true
	}
	return s[k]
}

type User struct {
	ID          string `json:"id"`
	Handle      string `json:"handle"`
	DisplayName string `json:"display_name"`
	IsBot       bool   `json:"is_bot"`
}

const UnknownUserName = "Unknown User"

// UnknownUser is the placeholder returned when a lookup fails.
func UnknownUser(id string) User {
	return User{
		ID:          id,
		Handle:      "unknown",
		DisplayName: UnknownUserName,
	}
}

// dmPlaceholderPrefix marks a direct message whose peer has not been
// resolved to a display name yet.
const dmPlaceholderPrefix = "@user:"

type Conversation struct {
	ID             string `json:"id"`
	DisplayName    string `json:"display_name"`
	Kind           Kind   `json:"kind"`
	IsMember       bool   `json:"is_member"`
	IsArchived     bool   `json:"is_archived"`
	UnreadCount    int    `json:"unread_count"`
	LastReadMarker string `json:"last_read_marker,omitempty"`
	// PeerUserID is set for direct messages only.
	PeerUserID string `json:"peer_user_id,omitempty"`
}

func DirectMessagePlaceholder(userID string) string {
	if userID == "" {
		return "@Unknown"
	}
	return dmPlaceholderPrefix + userID
}

// NeedsNameResolution reports whether DisplayName still encodes the raw peer id.
func (c Conversation) NeedsNameResolution() bool {
	return c.Kind == KindDirectMessage && strings.HasPrefix(c.DisplayName, dmPlaceholderPrefix)
}

// PlaceholderUserID returns the peer id encoded in a placeholder name.
func (c Conversation) PlaceholderUserID() string {
	if !c.NeedsNameResolution() {
		return ""
	}
	return strings.TrimPrefix(c.DisplayName, dmPlaceholderPrefix)
}

// GroupDirectMessageName turns "mpdm-alice--bob-1" into "alice, bob-1".
func GroupDirectMessageName(raw string) string {
	if raw == "" {
		return "Group DM"
	}
	name := strings.ReplaceAll(raw, "mpdm-", "")
	return strings.ReplaceAll(name, "--", ", ")
}

func ChannelName(raw string) string {
	if raw == "" {
		raw = "unknown"
	}
	return "#" + raw
}

type Message struct {
	ID                      string     `json:"id"`
	Text                    string     `json:"text"`
	AuthorID                string     `json:"author_id,omitempty"`
	AuthorDisplayName       string     `json:"author_display_name,omitempty"`
	ConversationID          string     `json:"conversation_id"`
	ConversationDisplayName string     `json:"conversation_display_name,omitempty"`
	ThreadRootID            string     `json:"thread_root_id,omitempty"`
	ReplyCount              int        `json:"reply_count,omitempty"`
	MentionsMe              bool       `json:"mentions_me"`
	SentAt                  *time.Time `json:"sent_at,omitempty"`
}

// Permalink is a client deep link; the workspace URL is not needed.
func (m Message) Permalink() string {
	return fmt.Sprintf("slack://channel?id=%s&message=%s", m.ConversationID, m.ID)
}

// ParseMessageTime converts a "seconds.micros" id token to a UTC instant.
// Malformed tokens yield nil.
func ParseMessageTime(id string) *time.Time {
	if id == "" {
		return nil
	}
	secs, frac, _ := strings.Cut(id, ".")
	s, err := strconv.ParseInt(secs, 10, 64)
	if err != nil {
		return nil
	}
	var nanos int64
	if frac != "" {
		if len(frac) > 9 {
			frac = frac[:9]
		}
		frac += strings.Repeat("0", 9-len(frac))
		nanos, err = strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return nil
		}
	}
	t := time.Unix(s, nanos).UTC()
	return &t
}

// FormatMessageTime renders t as a backend time bound token.
func FormatMessageTime(t time.Time) string {
	return fmt.Sprintf("%d.%06d", t.Unix(), t.Nanosecond()/1000)
}

// CompareIDs orders two id tokens chronologically.
func CompareIDs(a, b string) int {
	ta, tb := ParseMessageTime(a), ParseMessageTime(b)
	if ta != nil && tb != nil && !ta.Equal(*tb) {
		if ta.Before(*tb) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

// SortNewestFirst orders messages by sent time, newest first.
func SortNewestFirst(messages []Message) {
	sort.SliceStable(messages, func(i, j int) bool {
		return CompareIDs(messages[i].ID, messages[j].ID) > 0
	})
}

type ChannelSummary struct {
	Name           string    `json:"name"`
	MessageCount   int       `json:"message_count"`
	UnreadCount    int       `json:"unread_count"`
	HasMentions    bool      `json:"has_mentions"`
	HasActionItems bool      `json:"has_action_items"`
	PreviewText    string    `json:"preview_text"`
	TopMessages    []Message `json:"top_messages"`
}

type WorkspaceSummary struct {
	Key                 string           `json:"key"`
	Name                string           `json:"name"`
	DirectMessageCount  int              `json:"direct_message_count"`
	MentionCount        int              `json:"mention_count"`
	ChannelMessageCount int              `json:"channel_message_count"`
	Channels            []ChannelSummary `json:"channels"`
	ActionItems         []Message        `json:"action_items"`
	DirectMessages      []Message        `json:"direct_messages"`
	Mentions            []Message        `json:"mentions"`
}

// QuickSummary is the bounded-cost overview produced by quick mode.
type QuickSummary struct {
	Key                            string    `json:"key"`
	Name                           string    `json:"name"`
	DirectMessages                 []Message `json:"direct_messages"`
	Mentions                       []Message `json:"mentions"`
	ChannelCount                   int       `json:"channel_count"`
	DirectMessageConversationCount int       `json:"direct_message_conversation_count"`
}

// UnreadConversation pairs a conversation with its unread messages.
type UnreadConversation struct {
	Conversation Conversation `json:"conversation"`
	Messages     []Message    `json:"messages"`
}

// Workspace describes a configured workspace credential set.
type Workspace struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	Token    string `json:"-"`
	Priority int    `json:"priority"`
}

// DigestEntry is one prioritised item produced by the LLM digest.
type DigestEntry struct {
	MentionPermalink string   `json:"-"`
	Conversation     string   `json:"-"`
	Summary          []string `json:"summary"`
	Actionable       string   `json:"actionable"`
	ActionRequired   []string `json:"action_required"`
	Priority         string   `json:"priority"`
}

// DigestPriorities are the priority levels the digest understands, most
// urgent first.
var DigestPriorities = []string{"P0", "P1", "P2"}

// PriorityRank places p among DigestPriorities, case-insensitively.
// Anything unrecognised ranks after all of them.
func PriorityRank(p string) int {
	p = strings.ToUpper(strings.TrimSpace(p))
	for rank, level := range DigestPriorities {
		if p == level {
			return rank
		}
	}
	return len(DigestPriorities)
}

// IsActionable reports whether the model marked the entry as needing a reply.
func (e DigestEntry) IsActionable() bool {
	return !strings.EqualFold(strings.TrimSpace(e.Actionable), "no")
}
