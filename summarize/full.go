package summarize

import (
	"context"
	"fmt"
	"sort"

	"slack-summariser/models"
	"slack-summariser/workspace"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultMaxChannels caps how many channels a full summary scans.
const DefaultMaxChannels = 10

const (
	fullDirectMessageConversations = 10
	fullDirectMessageDepth         = 5
	fullDirectMessagesKept         = 20
	fullChannelDepth               = 50
	previewLength                  = 100
	topMessagesPerChannel          = 3
)

type Options struct {
	// Hours bounds the direct message scan. Channel pages are not windowed.
	Hours       int
	MaxChannels int
}

// SummarizeWorkspace scans recent direct messages and the first MaxChannels
// channels. Mentions are only collected from the scanned channels, so large
// workspaces undercount them.
func SummarizeWorkspace(ctx context.Context, src Source, opts Options) (models.WorkspaceSummary, error) {
	ws := src.Workspace()
	logger := src.Logger().With(zap.String("run_id", uuid.NewString()), zap.String("mode", "full"))
	since := cutoff(src, opts.Hours)
	maxChannels := opts.MaxChannels
	if maxChannels <= 0 {
		maxChannels = DefaultMaxChannels
	}

	me, meError := src.MyUserID(ctx)
	if meError != nil {
		return models.WorkspaceSummary{}, meError
	}
	dms, listDirectMessagesError := src.Conversations(ctx, directMessageKinds)
	if listDirectMessagesError != nil {
		return models.WorkspaceSummary{}, fmt.Errorf("listing direct messages: %w", listDirectMessagesError)
	}
	channels, listChannelsError := src.Conversations(ctx, channelKinds)
	if listChannelsError != nil {
		return models.WorkspaceSummary{}, fmt.Errorf("listing channels: %w", listChannelsError)
	}

	summary := models.WorkspaceSummary{
		Key:            ws.Key,
		Name:           ws.Name,
		Channels:       make([]models.ChannelSummary, 0),
		ActionItems:    make([]Message, 0),
		DirectMessages: make([]Message, 0),
		Mentions:       make([]Message, 0),
	}

	for _, conv := range firstN(dms, fullDirectMessageConversations) {
		messages, err := scanHistory(ctx, src, logger, conv, workspace.HistoryOptions{Limit: fullDirectMessageDepth, Oldest: since})
		if err != nil {
			return models.WorkspaceSummary{}, err
		}
		if len(messages) == 0 {
			continue
		}
		labelMessages(messages, src.ResolveDirectMessageName(ctx, conv))
		summary.DirectMessageCount += len(messages)
		summary.DirectMessages = append(summary.DirectMessages, messages...)
	}
	models.SortNewestFirst(summary.DirectMessages)
	summary.DirectMessages = firstN(summary.DirectMessages, fullDirectMessagesKept)

	for _, conv := range firstN(channels, maxChannels) {
		messages, err := scanHistory(ctx, src, logger, conv, workspace.HistoryOptions{Limit: fullChannelDepth})
		if err != nil {
			return models.WorkspaceSummary{}, err
		}
		if len(messages) == 0 {
			continue
		}
		labelMessages(messages, conv.DisplayName)

		channelSummary := models.ChannelSummary{
			Name:         conv.DisplayName,
			MessageCount: len(messages),
			UnreadCount:  conv.UnreadCount,
		}
		for _, msg := range messages {
			if msg.MentionsMe {
				channelSummary.HasMentions = true
				summary.Mentions = append(summary.Mentions, msg)
			}
			if IsActionItem(msg.Text, me) {
				channelSummary.HasActionItems = true
				summary.ActionItems = append(summary.ActionItems, msg)
			}
		}

		newestFirst := append([]Message(nil), messages...)
		models.SortNewestFirst(newestFirst)
		channelSummary.PreviewText = Truncate(newestFirst[0].Text, previewLength)
		channelSummary.TopMessages = firstN(newestFirst, topMessagesPerChannel)

		summary.Channels = append(summary.Channels, channelSummary)
		summary.ChannelMessageCount += len(messages)
	}

	sort.SliceStable(summary.Channels, func(i, j int) bool {
		return summary.Channels[i].MessageCount > summary.Channels[j].MessageCount
	})
	models.SortNewestFirst(summary.ActionItems)
	models.SortNewestFirst(summary.Mentions)
	summary.MentionCount = len(summary.Mentions)

	logger.Info("Workspace summary built",
		zap.Int("channels", len(summary.Channels)),
		zap.Int("action_items", len(summary.ActionItems)),
		zap.Int("mentions", summary.MentionCount),
		zap.Int("direct_messages", summary.DirectMessageCount))

	return summary, nil
}

// SummarizeAll summarizes each source concurrently and returns the results
// in source order. Any failure or cancellation discards every result.
func SummarizeAll(ctx context.Context, sources []Source, opts Options) ([]models.WorkspaceSummary, error) {
	summaries := make([]models.WorkspaceSummary, len(sources))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, src := range sources {
		group.Go(func() error {
			summary, err := SummarizeWorkspace(groupCtx, src, opts)
			if err != nil {
				return fmt.Errorf("summarizing %s: %w", src.Workspace().Key, err)
			}
			summaries[i] = summary
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return summaries, nil
}

// QuickSummaryAll is SummarizeAll for quick mode.
func QuickSummaryAll(ctx context.Context, sources []Source, hours int) ([]models.QuickSummary, error) {
	summaries := make([]models.QuickSummary, len(sources))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, src := range sources {
		group.Go(func() error {
			summary, err := QuickSummary(groupCtx, src, hours)
			if err != nil {
				return fmt.Errorf("summarizing %s: %w", src.Workspace().Key, err)
			}
			summaries[i] = summary
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return summaries, nil
}
