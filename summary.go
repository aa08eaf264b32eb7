package main

import (
	"fmt"
	"os"

	"slack-summariser/publish"
	"slack-summariser/summarize"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type summaryOptions struct {
	hours           int
	workspace       string
	output          string
	actionItemsOnly bool
}

func newSummaryCmd(opts *rootOptions, logger func() *zap.Logger) *cobra.Command {
	summaryOpts := &summaryOptions{}
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Write a markdown summary of recent Slack activity",
		Example: `  # Summary to stdout
  slack-summariser summary

  # Save to file, looking back 48 hours
  slack-summariser summary --output slack-summary.md --hours 48

  # Specific workspace only
  slack-summariser summary --workspace work`,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, _, bootstrapError := bootstrap(cmd.Context(), opts, logger())
			if bootstrapError != nil {
				return bootstrapError
			}
			clients, clientsError := registry.Clients(summaryOpts.workspace)
			if clientsError != nil {
				return clientsError
			}

			stderr := cmd.ErrOrStderr()
			fmt.Fprintf(stderr, "Fetching Slack activity from last %d hours...\n", summaryOpts.hours)
			sources := make([]summarize.Source, 0, len(clients))
			for _, client := range clients {
				fmt.Fprintf(stderr, "  Processing %s...\n", client.Workspace().Name)
				sources = append(sources, client)
			}

			summaries, summarizeError := summarize.SummarizeAll(cmd.Context(), sources, summarize.Options{Hours: summaryOpts.hours})
			if summarizeError != nil {
				return summarizeError
			}

			now := clients[0].Now()
			var output string
			if summaryOpts.actionItemsOnly {
				output = publish.RenderActionItems(summaries, now)
			} else {
				output = publish.RenderSummaryMarkdown(summaries, now)
			}

			if summaryOpts.output == "" {
				_, writeError := fmt.Fprintln(cmd.OutOrStdout(), output)
				return writeError
			}
			if writeError := os.WriteFile(summaryOpts.output, []byte(output), 0o644); writeError != nil {
				return fmt.Errorf("writing %s: %w", summaryOpts.output, writeError)
			}
			fmt.Fprintf(stderr, "Summary written to %s\n", summaryOpts.output)
			return nil
		},
	}
	cmd.Flags().IntVar(&summaryOpts.hours, "hours", 24, "Hours to look back.")
	cmd.Flags().StringVarP(&summaryOpts.workspace, "workspace", "w", "", "Specific workspace to summarize (default: all).")
	cmd.Flags().StringVarP(&summaryOpts.output, "output", "o", "", "Output file (default: stdout).")
	cmd.Flags().BoolVar(&summaryOpts.actionItemsOnly, "action-items-only", false, "Only show action items.")
	return cmd
}
