package main

import (
	"context"
	"errors"
	"fmt"

	"slack-summariser/config"
	"slack-summariser/models"
	"slack-summariser/publish"
	"slack-summariser/summarize"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type scheduleOptions struct {
	cronSpec  string
	hours     int
	workspace string
	runNow    bool
}

// runDigest summarises each workspace and posts the items needing a
// response into the user's own DM. With a generator the items are triaged
// by the model first. A failing workspace does not stop the others.
func runDigest(ctx context.Context, registry *config.Registry, generator summarize.Generator, logger *zap.Logger, workspaceKey string, hours int) error {
	clients, clientsError := registry.Clients(workspaceKey)
	if clientsError != nil {
		return clientsError
	}

	var failures []error
	for _, client := range clients {
		key := client.Workspace().Key
		summary, summarizeError := summarize.SummarizeWorkspace(ctx, client, summarize.Options{Hours: hours})
		if summarizeError != nil {
			logger.Error("Digest summary failed", zap.String("workspace", key), zap.Error(summarizeError))
			failures = append(failures, fmt.Errorf("summarizing %s: %w", key, summarizeError))
			continue
		}
		if len(summary.ActionItems) == 0 {
			logger.Info("Nothing to publish", zap.String("workspace", key))
			continue
		}

		var text string
		if generator != nil {
			text = publish.RenderDigest(summarize.Digest(ctx, client, generator, summary.ActionItems))
		} else {
			text = publish.RenderActionItems([]models.WorkspaceSummary{summary}, client.Now())
		}

		poster, backendError := registry.Backend(key)
		if backendError != nil {
			failures = append(failures, backendError)
			continue
		}
		me, meError := client.MyUserID(ctx)
		if meError != nil {
			failures = append(failures, fmt.Errorf("identifying user in %s: %w", key, meError))
			continue
		}
		if _, publishError := publish.PublishDigest(ctx, poster, logger, me, text); publishError != nil {
			failures = append(failures, publishError)
		}
	}
	return errors.Join(failures...)
}

func newScheduleCmd(opts *rootOptions, logger func() *zap.Logger) *cobra.Command {
	scheduleOpts := &scheduleOptions{}
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Post a digest of items needing your response on a cron schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			registry, generator, bootstrapError := bootstrap(ctx, opts, logger())
			if bootstrapError != nil {
				return bootstrapError
			}
			spec := scheduleOpts.cronSpec
			if spec == "" {
				spec = registry.Config().DigestSchedule
			}

			job := func() {
				if digestError := runDigest(ctx, registry, generator, logger(), scheduleOpts.workspace, scheduleOpts.hours); digestError != nil {
					logger().Error("Digest run failed", zap.Error(digestError))
				}
			}

			scheduler := cron.New()
			if _, addFuncError := scheduler.AddFunc(spec, job); addFuncError != nil {
				return fmt.Errorf("parsing schedule %q: %w", spec, addFuncError)
			}
			if scheduleOpts.runNow {
				job()
			}
			scheduler.Start()
			logger().Info("Digest scheduled", zap.String("cron", spec))

			<-ctx.Done()
			<-scheduler.Stop().Done()
			logger().Info("Scheduler stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&scheduleOpts.cronSpec, "cron", "", "Cron spec for the digest (default: SLACK_DIGEST_SCHEDULE).")
	cmd.Flags().IntVar(&scheduleOpts.hours, "hours", 24, "Hours to look back.")
	cmd.Flags().StringVarP(&scheduleOpts.workspace, "workspace", "w", "", "Specific workspace (default: all).")
	cmd.Flags().BoolVar(&scheduleOpts.runNow, "run-now", false, "Also publish once at startup.")
	return cmd
}
