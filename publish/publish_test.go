package publish

import (
	"context"
	"strings"
	"testing"
	"time"

	"slack-summariser/models"
	"slack-summariser/workspace/workspacetest"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var now = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func message(id, author, conversation, text string, age time.Duration) Message {
	at := now.Add(-age)
	return Message{
		ID:                      id,
		Text:                    text,
		AuthorID:                "U" + author,
		AuthorDisplayName:       author,
		ConversationDisplayName: conversation,
		SentAt:                  &at,
	}
}

func TestRenderSummaryMarkdown(t *testing.T) {
	summary := models.WorkspaceSummary{
		Name: "Acme",
		ActionItems: []Message{
			message("1", "Alice", "#eng", "<@UME> can you review | merge?", 2*time.Hour),
		},
		DirectMessages: []Message{
			message("2", "Bob", "@Bob", "first", time.Hour),
			message("3", "Bob", "@Bob", "second", 2*time.Hour),
			message("4", "Carol", "@Carol", "solo", 3*time.Hour),
		},
		Channels: []models.ChannelSummary{
			{Name: "#eng", MessageCount: 12, HasMentions: true, HasActionItems: true, PreviewText: "latest words"},
			{Name: "#random", MessageCount: 2},
		},
	}

	out := RenderSummaryMarkdown([]models.WorkspaceSummary{summary}, now)

	assert.True(t, strings.HasPrefix(out, "# Slack Summary - October 15, 2026\n"))
	assert.NotContains(t, out, "## Acme")
	assert.Contains(t, out, "| Alice | #eng | @user can you review \\| merge? | 2h ago |")
	assert.Contains(t, out, "- **@Bob**: 2 messages")
	assert.Contains(t, out, "- **@Carol** (3h ago): \"solo\"")
	assert.Contains(t, out, "- **#eng** (12 messages) - *mentions you, needs response*")
	assert.Contains(t, out, "  - Latest: \"latest words\"")
	assert.Contains(t, out, "### Low Activity\n\n- **#random** (2 messages)")
}

func TestRenderSummaryMarkdownNamesWorkspaces(t *testing.T) {
	out := RenderSummaryMarkdown([]models.WorkspaceSummary{{Name: "One"}, {Name: "Two"}}, now)
	assert.Contains(t, out, "## One")
	assert.Contains(t, out, "## Two")
	assert.Equal(t, 2, strings.Count(out, "---"))
}

func TestRenderQuickSummary(t *testing.T) {
	quick := models.QuickSummary{
		Name:                           "Acme",
		DirectMessages:                 []Message{message("1", "Bob", "@Bob", "ping", 5*time.Minute)},
		Mentions:                       []Message{message("2", "", "#ops", "hey <@UME>", time.Hour)},
		ChannelCount:                   12,
		DirectMessageConversationCount: 4,
	}
	out := RenderQuickSummary(quick, now)
	assert.Contains(t, out, "# Quick Summary - Acme")
	assert.Contains(t, out, "- **@Bob** (5m ago): \"ping\"")
	assert.Contains(t, out, "- **#ops** - Someone (1h ago): \"hey @user\"")
	assert.Contains(t, out, "You're in 12 channels, 4 DMs")

	both := RenderQuickSummaries([]models.QuickSummary{quick, quick}, now)
	assert.Contains(t, both, "\n\n---\n\n")
}

func TestRenderUnread(t *testing.T) {
	assert.Equal(t, "No unread messages.", RenderUnread(nil, now))

	var messages []Message
	for i := 0; i < 5; i++ {
		messages = append(messages, message("1", "Alice", "#eng", "hello", time.Minute))
	}
	out := RenderUnread([]models.UnreadConversation{{
		Conversation: models.Conversation{DisplayName: "#eng"},
		Messages:     messages,
	}}, now)
	assert.Contains(t, out, "**#eng** (5 messages)")
	assert.Contains(t, out, "  - [Alice] 1m ago: \"hello\"")
	assert.Contains(t, out, "  - ... and 2 more")
}

func TestRenderDirectMessagesLabelsSelf(t *testing.T) {
	mine := message("1", "Me", "@Jen", "on my way", time.Minute)
	mine.AuthorID = "UME"
	theirs := message("2", "Jen", "@Jen", "where\nare you", 2*time.Minute)

	out := RenderDirectMessages("@Jen", "UME", []Message{theirs, mine}, now)
	assert.Contains(t, out, "DM conversation with @Jen:")
	assert.Contains(t, out, "**Jen**: where are you")
	assert.Contains(t, out, "**You**: on my way")
	assert.Contains(t, out, "_ts: 1_")

	assert.Equal(t, "No messages with @Jen.", RenderDirectMessages("@Jen", "UME", nil, now))
}

func TestRenderHistoryAndThread(t *testing.T) {
	root := message("1700000000.000100", "Alice", "#eng", "release?", time.Hour)
	root.ReplyCount = 4
	out := RenderHistory("#eng", []Message{root}, now)
	assert.Contains(t, out, "[1h ago] **Alice** (thread: 4 replies): release?")
	assert.Contains(t, out, "_ts: 1700000000.000100_")
	assert.Equal(t, "No messages in #eng.", RenderHistory("#eng", nil, now))

	assert.Contains(t, RenderThread("#eng", []Message{root}, now), "Thread in #eng:")
	assert.Equal(t, "No messages in thread.", RenderThread("#eng", nil, now))
}

func TestRenderSearch(t *testing.T) {
	out := RenderSearch("deploy", []Message{message("9", "alice", "#ops", "deploy done", time.Hour)}, now)
	assert.Contains(t, out, "Search results for 'deploy':")
	assert.Contains(t, out, "**#ops** - alice (1h ago)")
	assert.Equal(t, "No results for: nothing", RenderSearch("nothing", nil, now))
}

func TestRenderConversationsGroupsByKind(t *testing.T) {
	out := RenderConversations([]models.Conversation{
		{ID: "C2", DisplayName: "#zeta", Kind: models.KindChannel},
		{ID: "D1", DisplayName: "@Jen", Kind: models.KindDirectMessage},
		{ID: "C1", DisplayName: "#Alpha", Kind: models.KindChannel},
	})
	assert.Contains(t, out, "Channels (3):")
	assert.Contains(t, out, "### Public Channels (2)\n\n- #Alpha (id: `C1`)\n- #zeta (id: `C2`)")
	assert.Contains(t, out, "### Direct Messages (1)")
	assert.Less(t, strings.Index(out, "Public Channels"), strings.Index(out, "Direct Messages"))
	assert.Equal(t, "No channels found.", RenderConversations(nil))
}

func TestRenderWorkspaces(t *testing.T) {
	out := RenderWorkspaces([]models.Workspace{{Key: "acme", Name: "Acme"}, {Key: "side", Name: "Side"}}, "acme")
	assert.Contains(t, out, "- **acme**: Acme (default)")
	assert.Contains(t, out, "- **side**: Side\n")
}

func TestMessagesCSV(t *testing.T) {
	out, err := MessagesCSV([]Message{message("1700000000.000100", "Alice", "#eng", "hi, all", time.Hour)})
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "ts,channel,user,time,text,thread_ts,replies,mentions_me", lines[0])
	assert.Equal(t, `1700000000.000100,#eng,Alice,2026-10-15T11:00:00Z,"hi, all",,0,false`, lines[1])
}

func TestConversationsCSV(t *testing.T) {
	out, err := ConversationsCSV([]models.Conversation{{ID: "C1", DisplayName: "#eng", Kind: models.KindChannel, IsMember: true}})
	require.NoError(t, err)
	assert.Contains(t, out, "id,name,kind,is_member,unread_count")
	assert.Contains(t, out, "C1,#eng,channel,true,0")
}

func TestRenderDigest(t *testing.T) {
	out := RenderDigest([]models.DigestEntry{
		{MentionPermalink: "slack://z", Conversation: "#ops", Summary: []string{"Disk filling"}, Actionable: "yes", Priority: "p2"},
		{MentionPermalink: "slack://x", Conversation: "#eng", Summary: []string{"Release blocked", "QA waiting"}, Actionable: "Yes", ActionRequired: []string{"Ship fix"}, Priority: "P0"},
		{MentionPermalink: "slack://y", Summary: []string{"Heads up"}, Actionable: "No", Priority: "P0"},
		{Conversation: "@Jen", Summary: []string{"Lunch?"}, Actionable: "Yes", Priority: "later"},
	})
	assert.True(t, strings.HasPrefix(out, "*Needs your response (3)*\n"), out)
	assert.Contains(t, out, "• <slack://x|#eng> Release blocked / QA waiting\n    ↳ Ship fix\n")
	assert.Contains(t, out, "• *@Jen* Lunch?")
	assert.Contains(t, out, "• <slack://y|message> Heads up")

	p0 := strings.Index(out, "P0 · Drop everything")
	p2 := strings.Index(out, "P2 · This week")
	unranked := strings.Index(out, "*Unranked*")
	fyi := strings.Index(out, "FYI, no reply needed")
	assert.True(t, p0 < p2 && p2 < unranked && unranked < fyi, out)
	assert.NotContains(t, out, "P1 · Today")
	assert.Greater(t, strings.Index(out, "Heads up"), fyi)

	assert.Equal(t, "Nothing needs your attention right now.", RenderDigest(nil))
}

func TestPublishDigest(t *testing.T) {
	backend := workspacetest.NewBackend("UME")

	ts, err := PublishDigest(context.Background(), backend, zap.NewNop(), "UME", "digest body")
	require.NoError(t, err)
	assert.NotEmpty(t, ts)
	require.Len(t, backend.Posts, 1)
	assert.Equal(t, "UME", backend.Posts[0].Channel)
	assert.Equal(t, "digest body", backend.Posts[0].Text)

	backend.PostError = slack.SlackErrorResponse{Err: "channel_not_found"}
	_, err = PublishDigest(context.Background(), backend, zap.NewNop(), "UME", "again")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UME")
}

func TestRenderActionItems(t *testing.T) {
	empty := RenderActionItems([]models.WorkspaceSummary{{Name: "Acme"}}, now)
	assert.Equal(t, "# Slack Action Items - October 15, 2026\n\nNo action items requiring your attention.\n", empty)

	out := RenderActionItems([]models.WorkspaceSummary{
		{Name: "Acme", ActionItems: []Message{message("1", "Alice", "#eng", "<@UME> please review", time.Hour)}},
		{Name: "Side"},
	}, now)
	assert.Contains(t, out, "## Acme")
	assert.NotContains(t, out, "## Side")
	assert.Contains(t, out, "| Alice | #eng | @user please review | 1h ago |")
}

func TestRenderMentions(t *testing.T) {
	assert.Equal(t, "No mentions.", RenderMentions(nil, now))
	out := RenderMentions([]Message{message("1700000000.000100", "Bob", "#ops", "<@UME> ping", 30*time.Minute)}, now)
	assert.Contains(t, out, "Mentions (1):")
	assert.Contains(t, out, "- **#ops** - Bob (30m ago): \"@user ping\"")
	assert.Contains(t, out, "_ts: 1700000000.000100_")
}
