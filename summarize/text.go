package summarize

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	userMentionToken    = regexp.MustCompile(`<@\w+>`)
	channelMentionToken = regexp.MustCompile(`<#\w+\|([^>]+)>`)
	labelledLinkToken   = regexp.MustCompile(`<([^|>]+)\|([^>]+)>`)
	bareLinkToken       = regexp.MustCompile(`<([^>]+)>`)
)

const ellipsis = "..."

// Plain rewrites inline markup into readable text and collapses whitespace.
// Nested tokens are unwrapped until nothing is left to rewrite.
func Plain(text string) string {
	for {
		rewritten := userMentionToken.ReplaceAllString(text, "@user")
		rewritten = channelMentionToken.ReplaceAllString(rewritten, "#$1")
		rewritten = labelledLinkToken.ReplaceAllString(rewritten, "$2")
		rewritten = bareLinkToken.ReplaceAllString(rewritten, "$1")
		if rewritten == text {
			break
		}
		text = rewritten
	}
	return strings.Join(strings.Fields(text), " ")
}

// Truncate returns Plain(text) cut to at most maxLen characters. A cut
// result ends in "..." which counts toward maxLen.
func Truncate(text string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	runes := []rune(Plain(text))
	if len(runes) <= maxLen {
		return string(runes)
	}
	if maxLen <= len(ellipsis) {
		return strings.TrimRight(string(runes[:maxLen]), " ")
	}
	return string(runes[:maxLen-len(ellipsis)]) + ellipsis
}

// RelativeTime renders how long before now t was, e.g. "5m ago". Instants
// a week or more old are shown as a short date.
func RelativeTime(t *time.Time, now time.Time) string {
	if t == nil {
		return "unknown"
	}
	elapsed := now.Sub(*t)
	switch {
	case elapsed < time.Minute:
		return "just now"
	case elapsed < time.Hour:
		return fmt.Sprintf("%dm ago", int(elapsed/time.Minute))
	case elapsed < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(elapsed/time.Hour))
	}
	days := int(elapsed / (24 * time.Hour))
	switch {
	case days == 1:
		return "yesterday"
	case days < 7:
		return fmt.Sprintf("%dd ago", days)
	default:
		return t.Format("Jan 02")
	}
}
