package config

import (
	"context"

	"slack-summariser/repo"
)

// PostgresStore lists the workspaces saved in the database at databaseUrl.
// Each call opens and closes its own pool.
func PostgresStore(databaseUrl string) WorkspaceLister {
	return func(ctx context.Context) ([]Workspace, error) {
		dbPool, dbInitialisationError := repo.InitDbPool(ctx, databaseUrl)
		if dbInitialisationError != nil {
			return nil, dbInitialisationError
		}
		defer dbPool.Close()
		if schemaError := repo.EnsureSchema(ctx, dbPool); schemaError != nil {
			return nil, schemaError
		}
		return repo.ListWorkspaces(ctx, dbPool)
	}
}
