package summarize

import (
	"context"
	"fmt"

	"slack-summariser/models"
	"slack-summariser/workspace"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	quickDirectMessageConversations = 5
	quickDirectMessageDepth         = 3
	quickChannelConversations       = 5
	quickChannelDepth               = 20
	quickShown                      = 10
)

// QuickSummary is a bounded-cost overview: a few recent direct messages and
// mentions from the first listed channels, plus conversation counts.
func QuickSummary(ctx context.Context, src Source, hours int) (models.QuickSummary, error) {
	ws := src.Workspace()
	logger := src.Logger().With(zap.String("run_id", uuid.NewString()), zap.String("mode", "quick"))
	since := cutoff(src, hours)

	dms, listDirectMessagesError := src.Conversations(ctx, directMessageKinds)
	if listDirectMessagesError != nil {
		return models.QuickSummary{}, fmt.Errorf("listing direct messages: %w", listDirectMessagesError)
	}
	channels, listChannelsError := src.Conversations(ctx, channelKinds)
	if listChannelsError != nil {
		return models.QuickSummary{}, fmt.Errorf("listing channels: %w", listChannelsError)
	}

	directMessages := make([]Message, 0)
	for _, conv := range firstN(dms, quickDirectMessageConversations) {
		messages, err := scanHistory(ctx, src, logger, conv, workspace.HistoryOptions{Limit: quickDirectMessageDepth, Oldest: since})
		if err != nil {
			return models.QuickSummary{}, err
		}
		if len(messages) == 0 {
			continue
		}
		// Only conversations that will be shown pay for a name lookup.
		labelMessages(messages, src.ResolveDirectMessageName(ctx, conv))
		directMessages = append(directMessages, messages...)
	}
	models.SortNewestFirst(directMessages)

	mentions := make([]Message, 0)
	for _, conv := range firstN(channels, quickChannelConversations) {
		messages, err := scanHistory(ctx, src, logger, conv, workspace.HistoryOptions{Limit: quickChannelDepth, Oldest: since})
		if err != nil {
			return models.QuickSummary{}, err
		}
		for _, msg := range messages {
			if msg.MentionsMe {
				msg.ConversationDisplayName = conv.DisplayName
				mentions = append(mentions, msg)
			}
		}
	}
	models.SortNewestFirst(mentions)

	logger.Debug("Quick summary built",
		zap.Int("direct_messages", len(directMessages)),
		zap.Int("mentions", len(mentions)))

	return models.QuickSummary{
		Key:                            ws.Key,
		Name:                           ws.Name,
		DirectMessages:                 firstN(directMessages, quickShown),
		Mentions:                       firstN(mentions, quickShown),
		ChannelCount:                   len(channels),
		DirectMessageConversationCount: len(dms),
	}, nil
}
