// Package repo stores workspace credentials in Postgres.
package repo

import (
	"context"
	"errors"
	"fmt"

	"slack-summariser/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Workspace = models.Workspace

var errPoolNotInitialised = errors.New("database pool is not initialized")

const createWorkspacesTable = `
	CREATE TABLE IF NOT EXISTS workspaces (
		key      TEXT PRIMARY KEY,
		name     TEXT NOT NULL,
		token    TEXT NOT NULL,
		priority INTEGER NOT NULL DEFAULT 1
	)`

func InitDbPool(ctx context.Context, databaseUrl string) (*pgxpool.Pool, error) {
	dbPool, dbConnectionError := pgxpool.New(ctx, databaseUrl)
	if dbConnectionError != nil {
		return nil, fmt.Errorf("connecting to database: %w", dbConnectionError)
	}
	return dbPool, nil
}

// EnsureSchema creates the workspaces table when it is missing.
func EnsureSchema(ctx context.Context, dbPool *pgxpool.Pool) error {
	if dbPool == nil {
		return errPoolNotInitialised
	}
	if _, createTableError := dbPool.Exec(ctx, createWorkspacesTable); createTableError != nil {
		return fmt.Errorf("creating workspaces table: %w", createTableError)
	}
	return nil
}

// SaveWorkspace inserts a workspace or replaces the one stored under the same key.
func SaveWorkspace(ctx context.Context, dbPool *pgxpool.Pool, ws Workspace) error {
	if dbPool == nil {
		return errPoolNotInitialised
	}

	query := `
		INSERT INTO workspaces (key, name, token, priority)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE
		SET name = EXCLUDED.name, token = EXCLUDED.token, priority = EXCLUDED.priority`

	_, saveWorkspaceError := dbPool.Exec(ctx, query, ws.Key, ws.Name, ws.Token, ws.Priority)
	if saveWorkspaceError != nil {
		return fmt.Errorf("saving workspace %s: %w", ws.Key, saveWorkspaceError)
	}
	return nil
}

func CheckWorkspaceInDb(ctx context.Context, dbPool *pgxpool.Pool, key string) (bool, error) {
	if dbPool == nil {
		return false, errPoolNotInitialised
	}

	query := `SELECT COUNT(*) FROM workspaces WHERE key = $1`

	var count int
	dbQueryError := dbPool.QueryRow(ctx, query, key).Scan(&count)
	if dbQueryError != nil {
		return false, fmt.Errorf("checking workspace %s: %w", key, dbQueryError)
	}
	return count > 0, nil
}

// ListWorkspaces returns every stored workspace ordered by priority, then key.
func ListWorkspaces(ctx context.Context, dbPool *pgxpool.Pool) ([]Workspace, error) {
	if dbPool == nil {
		return nil, errPoolNotInitialised
	}

	query := `SELECT key, name, token, priority FROM workspaces ORDER BY priority, key`

	rows, dbQueryError := dbPool.Query(ctx, query)
	if dbQueryError != nil {
		return nil, fmt.Errorf("listing workspaces: %w", dbQueryError)
	}
	defer rows.Close()

	var workspaces []Workspace
	for rows.Next() {
		var ws Workspace
		if scanError := rows.Scan(&ws.Key, &ws.Name, &ws.Token, &ws.Priority); scanError != nil {
			return nil, fmt.Errorf("reading workspace row: %w", scanError)
		}
		workspaces = append(workspaces, ws)
	}
	if rowsError := rows.Err(); rowsError != nil {
		return nil, fmt.Errorf("listing workspaces: %w", rowsError)
	}
	return workspaces, nil
}
