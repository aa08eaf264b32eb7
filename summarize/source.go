// Package summarize builds activity summaries over one or more workspaces.
// It only reads; the caches it warms belong to the workspace clients.
package summarize

import (
	"context"
	"time"

	"slack-summariser/models"
	"slack-summariser/workspace"

	"go.uber.org/zap"
)

type Message = models.Message
type Conversation = models.Conversation

// Source is the slice of a workspace client the summaries read from.
type Source interface {
	Workspace() models.Workspace
	Logger() *zap.Logger
	Now() time.Time
	MyUserID(ctx context.Context) (string, error)
	Conversations(ctx context.Context, kinds models.KindSet) ([]Conversation, error)
	History(ctx context.Context, conversationID string, opts workspace.HistoryOptions) ([]Message, error)
	Thread(ctx context.Context, conversationID, threadRootID string, limit int) []Message
	ResolveDirectMessageName(ctx context.Context, conv Conversation) string
}

var _ Source = (*workspace.Client)(nil)

var (
	directMessageKinds = models.NewKindSet(models.KindDirectMessage)
	// Group direct messages belong to neither scan.
	channelKinds = models.NewKindSet(models.KindChannel, models.KindPrivateChannel)
)

func cutoff(src Source, hours int) time.Time {
	if hours <= 0 {
		hours = 24
	}
	return src.Now().Add(-time.Duration(hours) * time.Hour)
}

// scanHistory fetches one conversation during a multi-conversation scan. A
// failure is logged and reads as no messages, unless the scan itself was
// cancelled.
func scanHistory(ctx context.Context, src Source, logger *zap.Logger, conv Conversation, opts workspace.HistoryOptions) ([]Message, error) {
	messages, historyError := src.History(ctx, conv.ID, opts)
	if historyError != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logger.Warn("Skipping conversation after history failure",
			zap.String("channel", conv.ID),
			zap.String("name", conv.DisplayName),
			zap.Error(historyError))
		return nil, nil
	}
	return messages, nil
}

// labelMessages sets the conversation name shown next to each message.
func labelMessages(messages []Message, name string) {
	for i := range messages {
		messages[i].ConversationDisplayName = name
	}
}

func firstN[T any](items []T, n int) []T {
	if n >= 0 && len(items) > n {
		return items[:n]
	}
	return items
}
