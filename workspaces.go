package main

import (
	"errors"
	"fmt"
	"os"

	"slack-summariser/models"
	"slack-summariser/repo"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newWorkspacesCmd(opts *rootOptions, logger func() *zap.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workspaces",
		Short: "Manage workspaces stored in the database",
	}
	cmd.AddCommand(newWorkspacesAddCmd(opts, logger))
	return cmd
}

func newWorkspacesAddCmd(opts *rootOptions, logger func() *zap.Logger) *cobra.Command {
	var ws models.Workspace
	var replace bool
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Store a workspace token in the database named by DATABASE_URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ws.Name == "" {
				ws.Name = ws.Key
			}
			_ = godotenv.Load(opts.envFile)
			databaseUrl := os.Getenv("DATABASE_URL")
			if databaseUrl == "" {
				return errors.New("DATABASE_URL is not set")
			}

			dbPool, dbInitialisationError := repo.InitDbPool(ctx, databaseUrl)
			if dbInitialisationError != nil {
				return dbInitialisationError
			}
			defer dbPool.Close()
			if schemaError := repo.EnsureSchema(ctx, dbPool); schemaError != nil {
				return schemaError
			}

			// check before save
			workspaceExists, checkWorkspaceError := repo.CheckWorkspaceInDb(ctx, dbPool, ws.Key)
			if checkWorkspaceError != nil {
				return checkWorkspaceError
			}
			if workspaceExists && !replace {
				fmt.Fprintf(cmd.OutOrStdout(), "Workspace %s is already registered; pass --replace to update it.\n", ws.Key)
				return nil
			}

			if saveWorkspaceError := repo.SaveWorkspace(ctx, dbPool, ws); saveWorkspaceError != nil {
				return saveWorkspaceError
			}
			logger().Info("Stored workspace", zap.String("workspace", ws.Key), zap.Bool("replaced", workspaceExists))
			fmt.Fprintf(cmd.OutOrStdout(), "Workspace %s saved.\n", ws.Key)
			return nil
		},
	}
	cmd.Flags().StringVar(&ws.Key, "key", "", "Workspace key.")
	cmd.Flags().StringVar(&ws.Name, "name", "", "Display name (default: the key).")
	cmd.Flags().StringVar(&ws.Token, "token", "", "User token (xoxp-...).")
	cmd.Flags().IntVar(&ws.Priority, "priority", 1, "Ordering among workspaces, lowest first.")
	cmd.Flags().BoolVar(&replace, "replace", false, "Overwrite an existing workspace with the same key.")
	_ = cmd.MarkFlagRequired("key")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}
