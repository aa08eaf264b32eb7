package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"slack-summariser/config"
	"slack-summariser/summarize"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "dev"

type rootOptions struct {
	debug      bool
	envFile    string
	configPath string
}

func newLogger(debug bool) (*zap.Logger, error) {
	// stdout carries the MCP stream, so both configs write to stderr.
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// bootstrap loads configuration and builds the client registry. It also
// builds a Gemini generator when an API key is configured.
func bootstrap(ctx context.Context, opts *rootOptions, logger *zap.Logger) (*config.Registry, summarize.Generator, error) {
	cfg, loadConfigError := config.Load(ctx, logger, config.Options{
		ConfigPath: opts.configPath,
		EnvFile:    opts.envFile,
	})
	if loadConfigError != nil {
		return nil, nil, loadConfigError
	}
	registry := config.NewRegistry(cfg, config.SlackBackend, logger)

	if cfg.GeminiAPIKey == "" {
		return registry, nil, nil
	}
	generator, genAiError := summarize.NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if genAiError != nil {
		return nil, nil, genAiError
	}
	return registry, generator, nil
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	var logger *zap.Logger

	root := &cobra.Command{
		Use:           "slack-summariser",
		Short:         "Summarise Slack activity across workspaces",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var loggerError error
			logger, loggerError = newLogger(opts.debug)
			if loggerError != nil {
				return fmt.Errorf("building logger: %w", loggerError)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Development logging at debug level.")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "Environment file loaded before reading configuration.")
	root.PersistentFlags().StringVar(&opts.configPath, "config", config.DefaultConfigPath(), "Workspace configuration file.")

	loggerFn := func() *zap.Logger { return logger }
	root.AddCommand(
		newServeCmd(opts, loggerFn),
		newSummaryCmd(opts, loggerFn),
		newScheduleCmd(opts, loggerFn),
		newWorkspacesCmd(opts, loggerFn),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
