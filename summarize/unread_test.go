package summarize

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"slack-summariser/models"
	"slack-summariser/workspace/workspacetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnreadOmitsEmptyConversations(t *testing.T) {
	backend := workspacetest.NewBackend("UME")
	backend.AddUser("U1", "alice", "Alice Smith")

	marked := workspacetest.Channel("C1", "marked")
	marked.LastRead = models.FormatMessageTime(epoch.Add(-2 * time.Hour))
	backend.AddChannel(marked)
	backend.AddMessage("C1", workspacetest.Msg("U1", "already read", epoch.Add(-3*time.Hour)))
	backend.AddMessage("C1", workspacetest.Msg("U1", "new one", epoch.Add(-time.Hour)))

	backend.AddChannel(workspacetest.Channel("C2", "quiet"))
	backend.AddMessage("C2", workspacetest.Msg("U1", "outside window", epoch.Add(-48*time.Hour)))

	archived := workspacetest.Channel("C3", "archived")
	archived.IsArchived = true
	backend.AddChannel(archived)
	backend.AddMessage("C3", workspacetest.Msg("U1", "never read", epoch.Add(-time.Hour)))

	backend.AddChannel(workspacetest.DirectMessage("D1", "U1"))
	backend.AddMessage("D1", workspacetest.Msg("U1", "ping", epoch.Add(-30*time.Minute)))
	backend.AddMessage("D1", workspacetest.Msg("U1", "ping again", epoch.Add(-10*time.Minute)))
	src := newSource(t, "acme", backend)

	unread, err := Unread(context.Background(), src, UnreadOptions{Hours: 24})
	require.NoError(t, err)
	require.Len(t, unread, 2)

	assert.Equal(t, "#marked", unread[0].Conversation.DisplayName)
	require.Len(t, unread[0].Messages, 1)
	assert.Equal(t, "new one", unread[0].Messages[0].Text)

	assert.Equal(t, "@Alice Smith", unread[1].Conversation.DisplayName)
	require.Len(t, unread[1].Messages, 2)
	assert.Equal(t, "ping again", unread[1].Messages[0].Text)
	assert.Equal(t, "@Alice Smith", unread[1].Messages[0].ConversationDisplayName)

	for _, entry := range unread {
		assert.NotEmpty(t, entry.Messages)
	}
	// The archived conversation is never fetched.
	assert.Equal(t, 3, backend.Calls("conversations.history"))

	byName := UnreadByName(unread)
	assert.Len(t, byName, 2)
	assert.Len(t, byName["#marked"], 1)
}

func TestUnreadCapsEachKind(t *testing.T) {
	backend := workspacetest.NewBackend("UME")
	for i := 1; i <= 4; i++ {
		id := fmt.Sprintf("C%d", i)
		backend.AddChannel(workspacetest.Channel(id, id))
		backend.AddMessage(id, workspacetest.Msg("U1", "hello", epoch.Add(-time.Hour)))
		dm := fmt.Sprintf("D%d", i)
		backend.AddChannel(workspacetest.DirectMessage(dm, "U1"))
		backend.AddMessage(dm, workspacetest.Msg("U1", "hello", epoch.Add(-time.Hour)))
	}
	src := newSource(t, "acme", backend)

	unread, err := Unread(context.Background(), src, UnreadOptions{Hours: 24, MaxDirectMessages: 1, MaxChannels: 2})
	require.NoError(t, err)
	require.Len(t, unread, 3)
	assert.Equal(t, "C1", unread[0].Conversation.ID)
	assert.Equal(t, "D1", unread[1].Conversation.ID)
	assert.Equal(t, "C2", unread[2].Conversation.ID)
	assert.Equal(t, 3, backend.Calls("conversations.history"))
}

func TestUnreadSkipsFailures(t *testing.T) {
	backend := workspacetest.NewBackend("UME")
	backend.AddChannel(workspacetest.Channel("C1", "broken"))
	backend.HistoryErrors["C1"] = errors.New("connection reset")
	src := newSource(t, "acme", backend)

	unread, err := Unread(context.Background(), src, UnreadOptions{})
	require.NoError(t, err)
	assert.Empty(t, unread)
}

func TestMentionsAcrossConversations(t *testing.T) {
	backend := workspacetest.NewBackend("UME")
	backend.AddUser("U1", "alice", "Alice Smith")
	backend.AddChannel(workspacetest.Channel("C1", "general"))
	backend.AddMessage("C1", workspacetest.Msg("U1", "<@UME> older", epoch.Add(-5*time.Hour)))
	backend.AddMessage("C1", workspacetest.Msg("U1", "chatter", epoch.Add(-4*time.Hour)))
	backend.AddChannel(workspacetest.DirectMessage("D1", "U1"))
	backend.AddMessage("D1", workspacetest.Msg("U1", "<@UME> newer", epoch.Add(-time.Hour)))
	backend.AddChannel(workspacetest.Channel("C2", "old"))
	backend.AddMessage("C2", workspacetest.Msg("U1", "<@UME> outside window", epoch.Add(-72*time.Hour)))
	src := newSource(t, "acme", backend)

	mentions, err := Mentions(context.Background(), src, 24)
	require.NoError(t, err)
	require.Len(t, mentions, 2)
	assert.Equal(t, "<@UME> newer", mentions[0].Text)
	assert.Equal(t, "@Alice Smith", mentions[0].ConversationDisplayName)
	assert.Equal(t, "<@UME> older", mentions[1].Text)
	assert.Equal(t, "#general", mentions[1].ConversationDisplayName)
}
