package main

import (
	"context"
	"testing"
	"time"

	"slack-summariser/config"
	"slack-summariser/models"
	"slack-summariser/workspace"
	"slack-summariser/workspace/workspacetest"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var epoch = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func digestRegistry(backends map[string]*workspacetest.Backend) *config.Registry {
	var workspaces []models.Workspace
	for key := range backends {
		workspaces = append(workspaces, models.Workspace{Key: key, Name: key, Token: "xoxp-" + key, Priority: 1})
	}
	cfg := config.FromWorkspaces("", workspaces...)
	return config.NewRegistry(cfg, func(ws models.Workspace) workspace.Backend { return backends[ws.Key] }, zap.NewNop(),
		workspace.WithClock(workspacetest.NewClock(epoch)), workspace.WithLimiter(nil))
}

func TestRunDigestPostsActionItemsToSelf(t *testing.T) {
	busy := workspacetest.NewBackend("UME")
	busy.AddUser("U1", "jen", "Jen")
	busy.AddChannel(workspacetest.Channel("C100000", "general"))
	busy.AddMessage("C100000", workspacetest.Msg("U1", "<@UME> could you sign off the budget?", epoch.Add(-time.Hour)))

	quiet := workspacetest.NewBackend("UOTHER")
	quiet.AddChannel(workspacetest.Channel("C200000", "random"))

	registry := digestRegistry(map[string]*workspacetest.Backend{"busy": busy, "quiet": quiet})
	require.NoError(t, runDigest(context.Background(), registry, nil, zap.NewNop(), "", 24))

	require.Len(t, busy.Posts, 1)
	assert.Equal(t, "UME", busy.Posts[0].Channel)
	assert.Contains(t, busy.Posts[0].Text, "# Slack Action Items")
	assert.Contains(t, busy.Posts[0].Text, "| Jen | #general |")
	assert.Empty(t, quiet.Posts)
}

func TestRunDigestKeepsGoingAfterAFailure(t *testing.T) {
	broken := workspacetest.NewBackend("UME")
	broken.AuthError = slack.SlackErrorResponse{Err: "invalid_auth"}

	healthy := workspacetest.NewBackend("UME")
	healthy.AddChannel(workspacetest.Channel("C100000", "general"))
	healthy.AddMessage("C100000", workspacetest.Msg("U1", "<@UME> please look at this", epoch.Add(-time.Hour)))

	registry := digestRegistry(map[string]*workspacetest.Backend{"a-broken": broken, "b-healthy": healthy})
	err := runDigest(context.Background(), registry, nil, zap.NewNop(), "", 24)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a-broken")
	assert.Len(t, healthy.Posts, 1)
}

func TestRootCommandWiring(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"serve", "summary", "schedule", "workspaces"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}

	summary, _, err := root.Find([]string{"summary"})
	require.NoError(t, err)
	for _, flag := range []string{"hours", "workspace", "output", "action-items-only"} {
		assert.NotNil(t, summary.Flags().Lookup(flag), flag)
	}
	schedule, _, err := root.Find([]string{"schedule"})
	require.NoError(t, err)
	assert.NotNil(t, schedule.Flags().Lookup("cron"))
}
