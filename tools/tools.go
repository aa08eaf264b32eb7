// Package tools exposes workspace reads, summaries and writes as MCP tools.
// Every handler answers with text; failures come back as "Error: ..." text
// rather than protocol errors.
package tools

import (
	"slack-summariser/config"
	"slack-summariser/summarize"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

const (
	defaultHours        = 24
	defaultMessageLimit = 20
	defaultSearchCount  = 20
	defaultUnreadLimit  = 15

	formatMarkdown = "markdown"
	formatCSV      = "csv"
)

type Handlers struct {
	registry  *config.Registry
	generator summarize.Generator
	logger    *zap.Logger
}

// NewHandlers wires the handlers to a registry. generator may be nil, in
// which case slack_digest is not offered.
func NewHandlers(registry *config.Registry, generator summarize.Generator, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{registry: registry, generator: generator, logger: logger}
}

func workspaceParam() mcp.ToolOption {
	return mcp.WithString("workspace", mcp.Description("Workspace key (optional, defaults to the default workspace)"))
}

func formatParam() mcp.ToolOption {
	return mcp.WithString("format",
		mcp.Description("Output format: 'markdown' or 'csv' (default: markdown)"),
		mcp.DefaultString(formatMarkdown),
		mcp.Enum(formatMarkdown, formatCSV),
	)
}

// NewServer builds an MCP server with every tool registered.
func NewServer(h *Handlers, version string) *server.MCPServer {
	s := server.NewMCPServer("slack-summariser", version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	h.Register(s)
	return s
}

// Register adds the tool catalog to s.
func (h *Handlers) Register(s *server.MCPServer) {
	s.AddTool(mcp.NewTool("slack_workspaces",
		mcp.WithDescription("List all configured Slack workspaces"),
	), h.WorkspacesHandler)

	s.AddTool(mcp.NewTool("slack_summary",
		mcp.WithDescription("Get a summary of Slack activity (DMs, mentions, channels). Use 'quick' mode for fast overview, 'full' for detailed scan."),
		mcp.WithString("mode",
			mcp.Description("'quick' (fast, just recent activity) or 'full' (slower, detailed scan). Default: quick"),
			mcp.DefaultString("quick"),
			mcp.Enum("quick", "full"),
		),
		mcp.WithNumber("hours",
			mcp.Description("Number of hours to look back (default: 24, max recommended: 168 for week)"),
			mcp.DefaultNumber(defaultHours),
		),
		mcp.WithString("workspace", mcp.Description("Specific workspace to summarize (optional, defaults to all)")),
	), h.SummaryHandler)

	s.AddTool(mcp.NewTool("slack_unread",
		mcp.WithDescription("Get unread messages from DMs and key channels"),
		mcp.WithNumber("hours", mcp.Description("Hours to look back (default: 24)"), mcp.DefaultNumber(defaultHours)),
		mcp.WithNumber("max_dms", mcp.Description("Max DM conversations to check (default: 15)"), mcp.DefaultNumber(defaultUnreadLimit)),
		mcp.WithNumber("max_channels", mcp.Description("Max channels to check (default: 15)"), mcp.DefaultNumber(defaultUnreadLimit)),
		workspaceParam(),
	), h.UnreadHandler)

	s.AddTool(mcp.NewTool("slack_mentions",
		mcp.WithDescription("List messages that mention you across every conversation"),
		mcp.WithNumber("hours", mcp.Description("Hours to look back (default: 24)"), mcp.DefaultNumber(defaultHours)),
		workspaceParam(),
	), h.MentionsHandler)

	s.AddTool(mcp.NewTool("slack_channel",
		mcp.WithDescription("Read recent messages from a specific channel"),
		mcp.WithString("channel", mcp.Required(), mcp.Description("Channel name (e.g., #general) or ID")),
		mcp.WithNumber("limit", mcp.Description("Number of messages to fetch (default: 20)"), mcp.DefaultNumber(defaultMessageLimit)),
		workspaceParam(),
	), h.ChannelHandler)

	s.AddTool(mcp.NewTool("slack_dm",
		mcp.WithDescription("Read recent messages from a DM conversation with a specific person"),
		mcp.WithString("person", mcp.Required(), mcp.Description("Person's name (e.g., 'Jen Rexford', 'jen', '@jennifer')")),
		mcp.WithNumber("limit", mcp.Description("Number of messages to fetch (default: 20)"), mcp.DefaultNumber(defaultMessageLimit)),
		workspaceParam(),
	), h.DirectMessageHandler)

	s.AddTool(mcp.NewTool("slack_thread",
		mcp.WithDescription("Read messages in a specific thread"),
		mcp.WithString("channel", mcp.Required(), mcp.Description("Channel name or ID")),
		mcp.WithString("thread_ts", mcp.Required(), mcp.Description("Thread timestamp (the ts of the parent message)")),
		workspaceParam(),
	), h.ThreadHandler)

	s.AddTool(mcp.NewTool("slack_search",
		mcp.WithDescription("Search for messages across Slack"),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query (supports Slack search syntax)")),
		mcp.WithNumber("count", mcp.Description("Number of results (default: 20)"), mcp.DefaultNumber(defaultSearchCount)),
		formatParam(),
		workspaceParam(),
	), h.SearchHandler)

	s.AddTool(mcp.NewTool("slack_channels",
		mcp.WithDescription("List all channels you're a member of"),
		mcp.WithString("type",
			mcp.Description("Filter by type: 'all', 'channels', 'dms', 'groups' (default: 'channels')"),
			mcp.DefaultString("channels"),
			mcp.Enum("all", "channels", "dms", "groups"),
		),
		formatParam(),
		workspaceParam(),
	), h.ChannelsHandler)

	s.AddTool(mcp.NewTool("slack_send",
		mcp.WithDescription("Send a message to a channel or DM. If replying to a specific message (not the most recent), provide reply_to_ts to auto-add context."),
		mcp.WithString("channel", mcp.Required(), mcp.Description("Channel name (#channel), user (@username), or ID")),
		mcp.WithString("text", mcp.Required(), mcp.Description("Message text")),
		mcp.WithString("reply_to_ts", mcp.Description("Timestamp of the message being replied to (optional, adds a quote when it is not the latest)")),
		workspaceParam(),
	), h.SendHandler)

	s.AddTool(mcp.NewTool("slack_reply",
		mcp.WithDescription("Reply in a thread"),
		mcp.WithString("channel", mcp.Required(), mcp.Description("Channel name or ID")),
		mcp.WithString("thread_ts", mcp.Required(), mcp.Description("Thread timestamp (the ts of the parent message)")),
		mcp.WithString("text", mcp.Required(), mcp.Description("Reply text")),
		mcp.WithString("reply_to_ts", mcp.Description("Timestamp of the reply being answered (optional)")),
		workspaceParam(),
	), h.ReplyHandler)

	s.AddTool(mcp.NewTool("slack_react",
		mcp.WithDescription("Add an emoji reaction to a message"),
		mcp.WithString("channel", mcp.Required(), mcp.Description("Channel name or ID")),
		mcp.WithString("timestamp", mcp.Required(), mcp.Description("Message timestamp")),
		mcp.WithString("emoji", mcp.Required(), mcp.Description("Emoji name without colons (e.g., 'thumbsup')")),
		workspaceParam(),
	), h.ReactHandler)

	if h.generator != nil {
		s.AddTool(mcp.NewTool("slack_digest",
			mcp.WithDescription("Triage messages that need your response with an LLM and list them by priority"),
			mcp.WithNumber("hours", mcp.Description("Hours to look back (default: 24)"), mcp.DefaultNumber(defaultHours)),
			mcp.WithBoolean("publish", mcp.Description("Also post the digest to your own DM (default: false)"), mcp.DefaultBool(false)),
			workspaceParam(),
		), h.DigestHandler)
	}
}
