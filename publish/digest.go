package publish

import (
	"context"
	"fmt"
	"strings"

	"slack-summariser/models"

	"github.com/slack-go/slack"
	"go.uber.org/zap"
)

// Poster is the part of the Slack API a digest needs.
type Poster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

var _ Poster = (*slack.Client)(nil)

// priorityHeadings titles each rank of models.DigestPriorities, with one
// extra slot for entries whose priority was not recognised.
var priorityHeadings = []string{
	":rotating_light: *P0 · Drop everything*",
	":warning: *P1 · Today*",
	":large_blue_circle: *P2 · This week*",
	":white_circle: *Unranked*",
}

const fyiHeading = ":information_source: *FYI, no reply needed*"

// RenderDigest groups triaged entries under one heading per priority in
// Slack mrkdwn. Entries the model marked as not actionable are collected
// under a closing FYI heading whatever their priority.
func RenderDigest(entries []models.DigestEntry) string {
	if len(entries) == 0 {
		return "Nothing needs your attention right now."
	}

	groups := make([][]models.DigestEntry, len(priorityHeadings))
	var fyi []models.DigestEntry
	actionable := 0
	for _, entry := range entries {
		if !entry.IsActionable() {
			fyi = append(fyi, entry)
			continue
		}
		rank := models.PriorityRank(entry.Priority)
		groups[rank] = append(groups[rank], entry)
		actionable++
	}

	var b strings.Builder
	fmt.Fprintf(&b, "*Needs your response (%d)*\n", actionable)
	for rank, group := range groups {
		if len(group) > 0 {
			writeDigestGroup(&b, priorityHeadings[rank], group)
		}
	}
	if len(fyi) > 0 {
		writeDigestGroup(&b, fyiHeading, fyi)
	}
	return b.String()
}

func writeDigestGroup(b *strings.Builder, heading string, entries []models.DigestEntry) {
	fmt.Fprintf(b, "\n%s\n", heading)
	for _, entry := range entries {
		fmt.Fprintf(b, "• %s %s\n", digestSource(entry), strings.Join(entry.Summary, " / "))
		for _, action := range entry.ActionRequired {
			fmt.Fprintf(b, "    ↳ %s\n", action)
		}
	}
}

// digestSource links the entry's conversation to the mention when a
// permalink is known.
func digestSource(entry models.DigestEntry) string {
	label := orDefault(entry.Conversation, "message")
	if entry.MentionPermalink == "" {
		return "*" + label + "*"
	}
	return fmt.Sprintf("<%s|%s>", entry.MentionPermalink, label)
}

// PublishDigest posts text to the user's own direct message channel with
// link previews turned off. It is a single attempt.
func PublishDigest(ctx context.Context, poster Poster, logger *zap.Logger, userID, text string) (string, error) {
	_, timestamp, sendSlackDmError := poster.PostMessageContext(
		ctx,
		userID,
		slack.MsgOptionText(text, false),
		slack.MsgOptionPostMessageParameters(slack.PostMessageParameters{
			UnfurlLinks: false,
			UnfurlMedia: false,
		}),
	)
	if sendSlackDmError != nil {
		logger.Error("Publishing digest failed", zap.String("user", userID), zap.Error(sendSlackDmError))
		return "", fmt.Errorf("posting digest to %s: %w", userID, sendSlackDmError)
	}
	logger.Info("Published digest", zap.String("user", userID), zap.String("ts", timestamp))
	return timestamp, nil
}
