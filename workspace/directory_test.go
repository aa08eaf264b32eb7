package workspace

import (
	"context"
	"sync"
	"testing"
	"time"

	"slack-summariser/models"
	"slack-summariser/workspace/workspacetest"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationFromSlack(t *testing.T) {
	dm := conversationFromSlack(workspacetest.DirectMessage("D1", "U1"))
	assert.Equal(t, models.KindDirectMessage, dm.Kind)
	assert.Equal(t, "@user:U1", dm.DisplayName)
	assert.True(t, dm.NeedsNameResolution())
	assert.True(t, dm.IsMember)

	group := conversationFromSlack(workspacetest.GroupDirectMessage("G1", "mpdm-alice--bob--carol-1"))
	assert.Equal(t, models.KindGroupDirectMessage, group.Kind)
	assert.Equal(t, "alice, bob, carol-1", group.DisplayName)

	private := conversationFromSlack(workspacetest.PrivateChannel("G2", "secret"))
	assert.Equal(t, models.KindPrivateChannel, private.Kind)
	assert.Equal(t, "#secret", private.DisplayName)

	channel := workspacetest.Channel("C1", "general")
	channel.LastRead = "1700000000.000100"
	channel.UnreadCount = 4
	conv := conversationFromSlack(channel)
	assert.Equal(t, "#general", conv.DisplayName)
	assert.Equal(t, "1700000000.000100", conv.LastReadMarker)
	assert.Equal(t, 4, conv.UnreadCount)
}

func TestDirectoryServesFilteredQueriesFromOneFetch(t *testing.T) {
	backend := workspacetest.NewBackend("UME")
	backend.AddChannel(workspacetest.Channel("C1", "general"))
	backend.AddChannel(workspacetest.DirectMessage("D1", "U1"))
	backend.AddChannel(workspacetest.GroupDirectMessage("G1", "mpdm-a--b-1"))
	client, clock := newTestClient(t, backend)
	ctx := context.Background()

	dms, err := client.Conversations(ctx, models.NewKindSet(models.KindDirectMessage))
	require.NoError(t, err)
	require.Len(t, dms, 1)
	assert.Equal(t, "D1", dms[0].ID)

	channels, err := client.Conversations(ctx, models.NewKindSet(models.KindChannel, models.KindPrivateChannel))
	require.NoError(t, err)
	require.Len(t, channels, 1)
	assert.Equal(t, "C1", channels[0].ID)

	all, err := client.Conversations(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, 1, backend.Calls("conversations.list"))

	clock.Advance(DirectoryTTL + time.Second)
	_, err = client.Conversations(ctx, models.AllKinds())
	require.NoError(t, err)
	assert.Equal(t, 2, backend.Calls("conversations.list"))
}

func TestDirectoryPaginatesWithPause(t *testing.T) {
	backend := workspacetest.NewBackend("UME")
	backend.ConversationPages = [][]slack.Channel{
		{workspacetest.Channel("C1", "one")},
		{workspacetest.Channel("C2", "two")},
		{workspacetest.Channel("C3", "three")},
	}
	client, clock := newTestClient(t, backend)

	all, err := client.Conversations(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"C1", "C2", "C3"}, []string{all[0].ID, all[1].ID, all[2].ID})
	assert.Equal(t, 3, backend.Calls("conversations.list"))
	assert.Equal(t, []time.Duration{DefaultPageDelay, DefaultPageDelay}, clock.Slept())
}

func TestDirectoryKeepsArchivedConversations(t *testing.T) {
	backend := workspacetest.NewBackend("UME")
	archived := workspacetest.Channel("C1", "old-project")
	archived.IsArchived = true
	backend.AddChannel(archived)
	backend.AddChannel(workspacetest.DirectMessage("D1", "U1"))
	client, _ := newTestClient(t, backend)
	ctx := context.Background()

	dms, err := client.Conversations(ctx, models.NewKindSet(models.KindDirectMessage))
	require.NoError(t, err)
	assert.Len(t, dms, 1)

	channels, err := client.Conversations(ctx, models.NewKindSet(models.KindChannel))
	require.NoError(t, err)
	require.Len(t, channels, 1)
	assert.True(t, channels[0].IsArchived)
	assert.Equal(t, 1, backend.Calls("conversations.list"))
}

func TestDirectoryFailureDoesNotPoisonCache(t *testing.T) {
	backend := workspacetest.NewBackend("UME")
	backend.AddChannel(workspacetest.Channel("C1", "general"))
	backend.ListError = slack.SlackErrorResponse{Err: "ratelimited"}
	client, _ := newTestClient(t, backend)
	ctx := context.Background()

	_, err := client.Conversations(ctx, nil)
	require.Error(t, err)

	backend.ListError = nil
	all, err := client.Conversations(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestDirectoryResultIsACopy(t *testing.T) {
	backend := workspacetest.NewBackend("UME")
	backend.AddChannel(workspacetest.Channel("C1", "general"))
	client, _ := newTestClient(t, backend)
	ctx := context.Background()

	first, err := client.Conversations(ctx, nil)
	require.NoError(t, err)
	first[0].DisplayName = "#mutated"

	second, err := client.Conversations(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "#general", second[0].DisplayName)
}

func TestDirectoryConcurrentListsShareOneWalk(t *testing.T) {
	backend := workspacetest.NewBackend("UME")
	backend.AddChannel(workspacetest.Channel("C1", "general"))
	backend.AddChannel(workspacetest.DirectMessage("D1", "U1"))
	client, _ := newTestClient(t, backend)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conversations, err := client.Directory().List(ctx, nil)
			assert.NoError(t, err)
			assert.Len(t, conversations, 2)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, backend.Calls("conversations.list"))
}
