// Package publish renders summaries and message lists as text and delivers
// digests. Rendering never talks to the backend.
package publish

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"slack-summariser/models"
	"slack-summariser/summarize"
)

type Message = models.Message

const (
	shownPerSection     = 10
	highActivityMinimum = 10
)

func ago(msg Message, now time.Time) string {
	return summarize.RelativeTime(msg.SentAt, now)
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func flatten(text string) string {
	return strings.ReplaceAll(text, "\n", " ")
}

// RenderQuickSummary renders one quick overview.
func RenderQuickSummary(q models.QuickSummary, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Quick Summary - %s\n\n", q.Name)

	if len(q.DirectMessages) > 0 {
		b.WriteString("## Recent DMs\n\n")
		for _, msg := range q.DirectMessages {
			fmt.Fprintf(&b, "- **%s** (%s): \"%s\"\n", msg.ConversationDisplayName, ago(msg, now), summarize.Truncate(msg.Text, 60))
		}
		b.WriteString("\n")
	}

	if len(q.Mentions) > 0 {
		b.WriteString("## Mentions\n\n")
		for _, msg := range q.Mentions {
			fmt.Fprintf(&b, "- **%s** - %s (%s): \"%s\"\n",
				msg.ConversationDisplayName, orDefault(msg.AuthorDisplayName, "Someone"), ago(msg, now), summarize.Truncate(msg.Text, 60))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Channel Activity\n\n")
	fmt.Fprintf(&b, "You're in %d channels, %d DMs\n", q.ChannelCount, q.DirectMessageConversationCount)
	return b.String()
}

// RenderQuickSummaries joins several quick overviews with a rule.
func RenderQuickSummaries(summaries []models.QuickSummary, now time.Time) string {
	parts := make([]string, 0, len(summaries))
	for _, q := range summaries {
		parts = append(parts, RenderQuickSummary(q, now))
	}
	return strings.Join(parts, "\n\n---\n\n")
}

// RenderSummaryMarkdown renders full summaries for one or more workspaces.
func RenderSummaryMarkdown(summaries []models.WorkspaceSummary, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Slack Summary - %s\n\n", now.Format("January 02, 2006"))

	for _, ws := range summaries {
		if len(summaries) > 1 {
			fmt.Fprintf(&b, "## %s\n\n", ws.Name)
		}
		writeActionItems(&b, ws.ActionItems, now)
		writeDirectMessages(&b, ws.DirectMessages, now)

		if len(ws.Mentions) > 0 {
			b.WriteString("## Mentions\n\n")
			for _, msg := range firstN(ws.Mentions, shownPerSection) {
				fmt.Fprintf(&b, "- **%s** - %s (%s): \"%s\"\n",
					msg.ConversationDisplayName, orDefault(msg.AuthorDisplayName, "Unknown"), ago(msg, now), summarize.Truncate(msg.Text, 60))
			}
			b.WriteString("\n")
		}

		writeChannelActivity(&b, ws.Channels)
		b.WriteString("---\n\n")
	}
	return b.String()
}

// RenderActionItems renders only the items that need a response.
func RenderActionItems(summaries []models.WorkspaceSummary, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Slack Action Items - %s\n\n", now.Format("January 02, 2006"))
	total := 0
	for _, ws := range summaries {
		total += len(ws.ActionItems)
		if len(summaries) > 1 && len(ws.ActionItems) > 0 {
			fmt.Fprintf(&b, "## %s\n\n", ws.Name)
		}
		writeActionItems(&b, ws.ActionItems, now)
	}
	if total == 0 {
		b.WriteString("No action items requiring your attention.\n")
	}
	return b.String()
}

func writeActionItems(b *strings.Builder, items []Message, now time.Time) {
	if len(items) == 0 {
		return
	}
	b.WriteString("## Needs Your Attention\n\n")
	b.WriteString("| From | Channel | Message | Time |\n")
	b.WriteString("|------|---------|---------|------|\n")
	for _, msg := range firstN(items, shownPerSection) {
		text := strings.ReplaceAll(summarize.Truncate(msg.Text, 60), "|", "\\|")
		fmt.Fprintf(b, "| %s | %s | %s | %s |\n",
			orDefault(msg.AuthorDisplayName, "Unknown"), msg.ConversationDisplayName, text, ago(msg, now))
	}
	b.WriteString("\n")
}

// writeDirectMessages groups messages by conversation in first-seen order.
func writeDirectMessages(b *strings.Builder, messages []Message, now time.Time) {
	if len(messages) == 0 {
		return
	}
	b.WriteString("## Direct Messages\n\n")

	var senders []string
	bySender := make(map[string][]Message)
	for _, msg := range messages {
		sender := msg.ConversationDisplayName
		if _, seen := bySender[sender]; !seen {
			senders = append(senders, sender)
		}
		bySender[sender] = append(bySender[sender], msg)
	}

	for _, sender := range firstN(senders, shownPerSection) {
		group := bySender[sender]
		if len(group) == 1 {
			fmt.Fprintf(b, "- **%s** (%s): \"%s\"\n", sender, ago(group[0], now), summarize.Truncate(group[0].Text, 80))
			continue
		}
		fmt.Fprintf(b, "- **%s**: %d messages\n", sender, len(group))
		for _, msg := range firstN(group, 3) {
			fmt.Fprintf(b, "  - (%s) \"%s\"\n", ago(msg, now), summarize.Truncate(msg.Text, 60))
		}
	}
	b.WriteString("\n")
}

func writeChannelActivity(b *strings.Builder, channels []models.ChannelSummary) {
	if len(channels) == 0 {
		return
	}
	b.WriteString("## Channel Activity\n\n")

	var high, low []models.ChannelSummary
	for _, ch := range channels {
		switch {
		case ch.MessageCount >= highActivityMinimum:
			high = append(high, ch)
		case ch.MessageCount > 0:
			low = append(low, ch)
		}
	}

	if len(high) > 0 {
		b.WriteString("### High Activity\n\n")
		for _, ch := range firstN(high, shownPerSection) {
			var flags []string
			if ch.HasMentions {
				flags = append(flags, "mentions you")
			}
			if ch.HasActionItems {
				flags = append(flags, "needs response")
			}
			flagText := ""
			if len(flags) > 0 {
				flagText = fmt.Sprintf(" - *%s*", strings.Join(flags, ", "))
			}
			fmt.Fprintf(b, "- **%s** (%d messages)%s\n", ch.Name, ch.MessageCount, flagText)
			if ch.PreviewText != "" {
				fmt.Fprintf(b, "  - Latest: \"%s\"\n", ch.PreviewText)
			}
		}
		b.WriteString("\n")
	}

	if len(low) > 0 {
		b.WriteString("### Low Activity\n\n")
		for _, ch := range firstN(low, shownPerSection) {
			fmt.Fprintf(b, "- **%s** (%d messages)\n", ch.Name, ch.MessageCount)
		}
		b.WriteString("\n")
	}
}

// RenderUnread lists each conversation with a preview of its newest messages.
func RenderUnread(unread []models.UnreadConversation, now time.Time) string {
	if len(unread) == 0 {
		return "No unread messages."
	}
	var b strings.Builder
	b.WriteString("Unread messages:\n\n")
	for _, entry := range unread {
		fmt.Fprintf(&b, "**%s** (%d messages)\n", entry.Conversation.DisplayName, len(entry.Messages))
		for _, msg := range firstN(entry.Messages, 3) {
			fmt.Fprintf(&b, "  - [%s] %s: \"%s\"\n", orDefault(msg.AuthorDisplayName, "someone"), ago(msg, now), summarize.Truncate(msg.Text, 60))
		}
		if more := len(entry.Messages) - 3; more > 0 {
			fmt.Fprintf(&b, "  - ... and %d more\n", more)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// RenderMentions lists messages that mention the caller.
func RenderMentions(messages []Message, now time.Time) string {
	if len(messages) == 0 {
		return "No mentions."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Mentions (%d):\n\n", len(messages))
	for _, msg := range messages {
		fmt.Fprintf(&b, "- **%s** - %s (%s): \"%s\"\n",
			msg.ConversationDisplayName, orDefault(msg.AuthorDisplayName, "Unknown"), ago(msg, now), summarize.Truncate(msg.Text, 80))
		fmt.Fprintf(&b, "  _ts: %s_\n", msg.ID)
	}
	return b.String()
}

// RenderHistory lists a channel's messages in the order given, with the ids
// needed to reply or react.
func RenderHistory(channelRef string, messages []Message, now time.Time) string {
	if len(messages) == 0 {
		return fmt.Sprintf("No messages in %s.", channelRef)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Recent messages in %s:\n\n", channelRef)
	for _, msg := range messages {
		threadInfo := ""
		if msg.ReplyCount > 0 {
			threadInfo = fmt.Sprintf(" (thread: %d replies)", msg.ReplyCount)
		}
		fmt.Fprintf(&b, "[%s] **%s**%s: %s\n", ago(msg, now), orDefault(msg.AuthorDisplayName, "Unknown"), threadInfo, flatten(msg.Text))
		fmt.Fprintf(&b, "  _ts: %s_\n\n", msg.ID)
	}
	return b.String()
}

// RenderDirectMessages shows a direct message conversation, labelling the
// caller's own messages as "You".
func RenderDirectMessages(peerName, myUserID string, messages []Message, now time.Time) string {
	if len(messages) == 0 {
		return fmt.Sprintf("No messages with %s.", peerName)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "DM conversation with %s:\n\n", peerName)
	for _, msg := range messages {
		sender := strings.TrimLeft(peerName, "@")
		if msg.AuthorID == myUserID {
			sender = "You"
		}
		fmt.Fprintf(&b, "[%s] **%s**: %s\n", ago(msg, now), sender, flatten(msg.Text))
		fmt.Fprintf(&b, "  _ts: %s_\n\n", msg.ID)
	}
	return b.String()
}

func RenderThread(channelRef string, messages []Message, now time.Time) string {
	if len(messages) == 0 {
		return "No messages in thread."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Thread in %s:\n\n", channelRef)
	for _, msg := range messages {
		fmt.Fprintf(&b, "[%s] **%s**: %s\n\n", ago(msg, now), orDefault(msg.AuthorDisplayName, "Unknown"), flatten(msg.Text))
	}
	return b.String()
}

func RenderSearch(query string, messages []Message, now time.Time) string {
	if len(messages) == 0 {
		return fmt.Sprintf("No results for: %s", query)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Search results for '%s':\n\n", query)
	for _, msg := range messages {
		fmt.Fprintf(&b, "**%s** - %s (%s)\n", msg.ConversationDisplayName, orDefault(msg.AuthorDisplayName, "Unknown"), ago(msg, now))
		fmt.Fprintf(&b, "  %s\n", summarize.Truncate(msg.Text, 80))
		fmt.Fprintf(&b, "  _ts: %s_\n\n", msg.ID)
	}
	return b.String()
}

var kindLabels = map[models.Kind]string{
	models.KindChannel:            "Public Channels",
	models.KindPrivateChannel:     "Private Channels",
	models.KindDirectMessage:      "Direct Messages",
	models.KindGroupDirectMessage: "Group DMs",
}

var kindOrder = []models.Kind{
	models.KindChannel,
	models.KindPrivateChannel,
	models.KindDirectMessage,
	models.KindGroupDirectMessage,
}

// RenderConversations groups conversations by kind, sorted by name.
func RenderConversations(conversations []models.Conversation) string {
	if len(conversations) == 0 {
		return "No channels found."
	}
	byKind := make(map[models.Kind][]models.Conversation)
	for _, conv := range conversations {
		byKind[conv.Kind] = append(byKind[conv.Kind], conv)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Channels (%d):\n\n", len(conversations))
	for _, kind := range kindOrder {
		group := byKind[kind]
		if len(group) == 0 {
			continue
		}
		sort.SliceStable(group, func(i, j int) bool {
			return strings.ToLower(group[i].DisplayName) < strings.ToLower(group[j].DisplayName)
		})
		fmt.Fprintf(&b, "### %s (%d)\n\n", kindLabels[kind], len(group))
		for _, conv := range group {
			fmt.Fprintf(&b, "- %s (id: `%s`)\n", conv.DisplayName, conv.ID)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// RenderWorkspaces lists configured workspaces and marks the default.
func RenderWorkspaces(workspaces []models.Workspace, defaultKey string) string {
	var b strings.Builder
	b.WriteString("Configured Slack workspaces:\n\n")
	for _, ws := range workspaces {
		marker := ""
		if ws.Key == defaultKey {
			marker = " (default)"
		}
		fmt.Fprintf(&b, "- **%s**: %s%s\n", ws.Key, ws.Name, marker)
	}
	return b.String()
}

func firstN[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}
