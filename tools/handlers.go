package tools

import (
	"context"
	"errors"
	"fmt"

	"slack-summariser/models"
	"slack-summariser/publish"
	"slack-summariser/summarize"
	"slack-summariser/workspace"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"
)

// channelFilters maps the slack_channels type argument to conversation kinds.
var channelFilters = map[string]models.KindSet{
	"all":      models.AllKinds(),
	"dms":      models.NewKindSet(models.KindDirectMessage, models.KindGroupDirectMessage),
	"groups":   models.NewKindSet(models.KindPrivateChannel, models.KindGroupDirectMessage),
	"channels": models.NewKindSet(models.KindChannel, models.KindPrivateChannel),
}

func (h *Handlers) failure(tool string, err error) (*mcp.CallToolResult, error) {
	h.logger.Error("Tool failed", zap.String("tool", tool), zap.Error(err))
	return mcp.NewToolResultText(fmt.Sprintf("Error: %v", err)), nil
}

func (h *Handlers) sources(key string) ([]summarize.Source, error) {
	clients, err := h.registry.Clients(key)
	if err != nil {
		return nil, err
	}
	sources := make([]summarize.Source, 0, len(clients))
	for _, client := range clients {
		sources = append(sources, client)
	}
	return sources, nil
}

func (h *Handlers) WorkspacesHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h.logger.Debug("WorkspacesHandler called")
	cfg := h.registry.Config()
	return mcp.NewToolResultText(publish.RenderWorkspaces(cfg.Workspaces(), cfg.DefaultKey())), nil
}

// SummaryHandler summarizes one workspace, or all of them when none is named.
func (h *Handlers) SummaryHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h.logger.Debug("SummaryHandler called", zap.Any("params", request.Params))

	mode := request.GetString("mode", "quick")
	hours := request.GetInt("hours", defaultHours)
	sources, err := h.sources(request.GetString("workspace", ""))
	if err != nil {
		return h.failure("slack_summary", err)
	}
	now := sources[0].Now()

	if mode == "full" {
		summaries, err := summarize.SummarizeAll(ctx, sources, summarize.Options{Hours: hours})
		if err != nil {
			return h.failure("slack_summary", err)
		}
		return mcp.NewToolResultText(publish.RenderSummaryMarkdown(summaries, now)), nil
	}

	quick, err := summarize.QuickSummaryAll(ctx, sources, hours)
	if err != nil {
		return h.failure("slack_summary", err)
	}
	return mcp.NewToolResultText(publish.RenderQuickSummaries(quick, now)), nil
}

func (h *Handlers) UnreadHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h.logger.Debug("UnreadHandler called", zap.Any("params", request.Params))

	client, err := h.registry.Client(request.GetString("workspace", ""))
	if err != nil {
		return h.failure("slack_unread", err)
	}
	unread, err := summarize.Unread(ctx, client, summarize.UnreadOptions{
		Hours:             request.GetInt("hours", defaultHours),
		MaxDirectMessages: request.GetInt("max_dms", defaultUnreadLimit),
		MaxChannels:       request.GetInt("max_channels", defaultUnreadLimit),
	})
	if err != nil {
		return h.failure("slack_unread", err)
	}
	return mcp.NewToolResultText(publish.RenderUnread(unread, client.Now())), nil
}

func (h *Handlers) MentionsHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h.logger.Debug("MentionsHandler called", zap.Any("params", request.Params))

	client, err := h.registry.Client(request.GetString("workspace", ""))
	if err != nil {
		return h.failure("slack_mentions", err)
	}
	mentions, err := summarize.Mentions(ctx, client, request.GetInt("hours", defaultHours))
	if err != nil {
		return h.failure("slack_mentions", err)
	}
	return mcp.NewToolResultText(publish.RenderMentions(mentions, client.Now())), nil
}

func (h *Handlers) recent(ctx context.Context, client *workspace.Client, conversationID string, limit int) ([]models.Message, error) {
	messages, err := client.History(ctx, conversationID, workspace.HistoryOptions{Limit: limit})
	if err != nil {
		return nil, err
	}
	models.SortNewestFirst(messages)
	return messages, nil
}

// ChannelHandler lists a channel's latest messages, newest first.
func (h *Handlers) ChannelHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h.logger.Debug("ChannelHandler called", zap.Any("params", request.Params))

	channel, err := request.RequireString("channel")
	if err != nil {
		return h.failure("slack_channel", err)
	}
	client, err := h.registry.Client(request.GetString("workspace", ""))
	if err != nil {
		return h.failure("slack_channel", err)
	}
	conversationID, err := client.ResolveConversationRef(ctx, channel)
	if err != nil {
		return h.failure("slack_channel", err)
	}
	messages, err := h.recent(ctx, client, conversationID, request.GetInt("limit", defaultMessageLimit))
	if err != nil {
		return h.failure("slack_channel", err)
	}
	return mcp.NewToolResultText(publish.RenderHistory(channel, messages, client.Now())), nil
}

func (h *Handlers) DirectMessageHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h.logger.Debug("DirectMessageHandler called", zap.Any("params", request.Params))

	person, err := request.RequireString("person")
	if err != nil {
		return h.failure("slack_dm", err)
	}
	client, err := h.registry.Client(request.GetString("workspace", ""))
	if err != nil {
		return h.failure("slack_dm", err)
	}
	conversationID, peerName, err := client.FindDirectMessage(ctx, person)
	if err != nil {
		return h.failure("slack_dm", err)
	}
	messages, err := h.recent(ctx, client, conversationID, request.GetInt("limit", defaultMessageLimit))
	if err != nil {
		return h.failure("slack_dm", err)
	}
	me, err := client.MyUserID(ctx)
	if err != nil {
		return h.failure("slack_dm", err)
	}
	return mcp.NewToolResultText(publish.RenderDirectMessages(peerName, me, messages, client.Now())), nil
}

func (h *Handlers) ThreadHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h.logger.Debug("ThreadHandler called", zap.Any("params", request.Params))

	channel, err := request.RequireString("channel")
	if err != nil {
		return h.failure("slack_thread", err)
	}
	threadTs, err := request.RequireString("thread_ts")
	if err != nil {
		return h.failure("slack_thread", err)
	}
	client, err := h.registry.Client(request.GetString("workspace", ""))
	if err != nil {
		return h.failure("slack_thread", err)
	}
	conversationID, err := client.ResolveConversationRef(ctx, channel)
	if err != nil {
		return h.failure("slack_thread", err)
	}
	messages := client.Thread(ctx, conversationID, threadTs, 0)
	return mcp.NewToolResultText(publish.RenderThread(channel, messages, client.Now())), nil
}

func (h *Handlers) SearchHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h.logger.Debug("SearchHandler called", zap.Any("params", request.Params))

	query, err := request.RequireString("query")
	if err != nil {
		return h.failure("slack_search", err)
	}
	client, err := h.registry.Client(request.GetString("workspace", ""))
	if err != nil {
		return h.failure("slack_search", err)
	}
	messages := client.Search(ctx, query, request.GetInt("count", defaultSearchCount))

	if request.GetString("format", formatMarkdown) == formatCSV && len(messages) > 0 {
		csvText, err := publish.MessagesCSV(messages)
		if err != nil {
			return h.failure("slack_search", err)
		}
		return mcp.NewToolResultText(csvText), nil
	}
	return mcp.NewToolResultText(publish.RenderSearch(query, messages, client.Now())), nil
}

func (h *Handlers) ChannelsHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h.logger.Debug("ChannelsHandler called", zap.Any("params", request.Params))

	kinds, ok := channelFilters[request.GetString("type", "channels")]
	if !ok {
		kinds = channelFilters["channels"]
	}
	client, err := h.registry.Client(request.GetString("workspace", ""))
	if err != nil {
		return h.failure("slack_channels", err)
	}
	conversations, err := client.Conversations(ctx, kinds)
	if err != nil {
		return h.failure("slack_channels", err)
	}

	if request.GetString("format", formatMarkdown) == formatCSV && len(conversations) > 0 {
		csvText, err := publish.ConversationsCSV(conversations)
		if err != nil {
			return h.failure("slack_channels", err)
		}
		return mcp.NewToolResultText(csvText), nil
	}
	return mcp.NewToolResultText(publish.RenderConversations(conversations)), nil
}

func (h *Handlers) SendHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h.logger.Debug("SendHandler called", zap.Any("params", request.Params))

	channel, err := request.RequireString("channel")
	if err != nil {
		return h.failure("slack_send", err)
	}
	text, err := request.RequireString("text")
	if err != nil {
		return h.failure("slack_send", err)
	}
	client, err := h.registry.Client(request.GetString("workspace", ""))
	if err != nil {
		return h.failure("slack_send", err)
	}
	sent, err := client.Send(ctx, workspace.SendRequest{
		ConversationRef: channel,
		Text:            text,
		QuotedReplyToID: request.GetString("reply_to_ts", ""),
	})
	if err != nil {
		return h.failure("slack_send", err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("Message sent to %s (ts: %s)", channel, sent.ID)), nil
}

func (h *Handlers) ReplyHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h.logger.Debug("ReplyHandler called", zap.Any("params", request.Params))

	channel, err := request.RequireString("channel")
	if err != nil {
		return h.failure("slack_reply", err)
	}
	threadTs, err := request.RequireString("thread_ts")
	if err != nil {
		return h.failure("slack_reply", err)
	}
	text, err := request.RequireString("text")
	if err != nil {
		return h.failure("slack_reply", err)
	}
	client, err := h.registry.Client(request.GetString("workspace", ""))
	if err != nil {
		return h.failure("slack_reply", err)
	}
	sent, err := client.Send(ctx, workspace.SendRequest{
		ConversationRef: channel,
		Text:            text,
		ThreadRootID:    threadTs,
		QuotedReplyToID: request.GetString("reply_to_ts", ""),
	})
	if err != nil {
		return h.failure("slack_reply", err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("Reply sent (ts: %s)", sent.ID)), nil
}

func (h *Handlers) ReactHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h.logger.Debug("ReactHandler called", zap.Any("params", request.Params))

	channel, err := request.RequireString("channel")
	if err != nil {
		return h.failure("slack_react", err)
	}
	timestamp, err := request.RequireString("timestamp")
	if err != nil {
		return h.failure("slack_react", err)
	}
	emoji, err := request.RequireString("emoji")
	if err != nil {
		return h.failure("slack_react", err)
	}
	client, err := h.registry.Client(request.GetString("workspace", ""))
	if err != nil {
		return h.failure("slack_react", err)
	}
	added, err := client.React(ctx, channel, timestamp, emoji)
	if err != nil {
		return h.failure("slack_react", err)
	}
	if !added {
		return mcp.NewToolResultText("Failed to add reaction"), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Added :%s: reaction", emoji)), nil
}

// DigestHandler triages the workspace's action items with the model and can
// post the result to the caller's own DM.
func (h *Handlers) DigestHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h.logger.Debug("DigestHandler called", zap.Any("params", request.Params))

	if h.generator == nil {
		return h.failure("slack_digest", errors.New("digest needs GEMINI_API_KEY"))
	}
	key := request.GetString("workspace", "")
	client, err := h.registry.Client(key)
	if err != nil {
		return h.failure("slack_digest", err)
	}
	summary, err := summarize.SummarizeWorkspace(ctx, client, summarize.Options{Hours: request.GetInt("hours", defaultHours)})
	if err != nil {
		return h.failure("slack_digest", err)
	}
	entries := summarize.Digest(ctx, client, h.generator, summary.ActionItems)
	text := publish.RenderDigest(entries)

	if !request.GetBool("publish", false) || len(entries) == 0 {
		return mcp.NewToolResultText(text), nil
	}
	poster, err := h.registry.Backend(key)
	if err != nil {
		return h.failure("slack_digest", err)
	}
	me, err := client.MyUserID(ctx)
	if err != nil {
		return h.failure("slack_digest", err)
	}
	ts, err := publish.PublishDigest(ctx, poster, h.logger, me, text)
	if err != nil {
		return h.failure("slack_digest", err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s\n\nPosted to your DMs (ts: %s)", text, ts)), nil
}
