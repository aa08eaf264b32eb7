package repo

import (
	"context"
	"os"
	"testing"

	"slack-summariser/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilPoolIsRejected(t *testing.T) {
	ctx := context.Background()

	require.ErrorIs(t, EnsureSchema(ctx, nil), errPoolNotInitialised)
	require.ErrorIs(t, SaveWorkspace(ctx, nil, Workspace{Key: "acme"}), errPoolNotInitialised)
	_, err := CheckWorkspaceInDb(ctx, nil, "acme")
	require.ErrorIs(t, err, errPoolNotInitialised)
	_, err = ListWorkspaces(ctx, nil)
	require.ErrorIs(t, err, errPoolNotInitialised)
}

// TestWorkspaceRoundTrip runs against a scratch database named by
// TEST_DATABASE_URL.
func TestWorkspaceRoundTrip(t *testing.T) {
	databaseUrl := os.Getenv("TEST_DATABASE_URL")
	if databaseUrl == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	dbPool, err := InitDbPool(ctx, databaseUrl)
	require.NoError(t, err)
	t.Cleanup(dbPool.Close)
	require.NoError(t, EnsureSchema(ctx, dbPool))
	_, err = dbPool.Exec(ctx, `DELETE FROM workspaces WHERE key IN ('zz-test-b', 'zz-test-a')`)
	require.NoError(t, err)

	exists, err := CheckWorkspaceInDb(ctx, dbPool, "zz-test-a")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, SaveWorkspace(ctx, dbPool, models.Workspace{Key: "zz-test-b", Name: "B", Token: "xoxp-b", Priority: 1000}))
	require.NoError(t, SaveWorkspace(ctx, dbPool, models.Workspace{Key: "zz-test-a", Name: "A", Token: "xoxp-a", Priority: 1000}))
	require.NoError(t, SaveWorkspace(ctx, dbPool, models.Workspace{Key: "zz-test-a", Name: "A2", Token: "xoxp-a2", Priority: 1000}))

	exists, err = CheckWorkspaceInDb(ctx, dbPool, "zz-test-a")
	require.NoError(t, err)
	assert.True(t, exists)

	all, err := ListWorkspaces(ctx, dbPool)
	require.NoError(t, err)
	var ours []models.Workspace
	for _, ws := range all {
		if ws.Key == "zz-test-a" || ws.Key == "zz-test-b" {
			ours = append(ours, ws)
		}
	}
	require.Len(t, ours, 2)
	assert.Equal(t, models.Workspace{Key: "zz-test-a", Name: "A2", Token: "xoxp-a2", Priority: 1000}, ours[0])
	assert.Equal(t, "zz-test-b", ours[1].Key)
}
