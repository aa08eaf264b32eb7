package summarize

import (
	"regexp"
	"strings"
)

// actionPatterns are matched against the lowercased message text.
var actionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\?$`),
	regexp.MustCompile(`^(can|could|would|will|do|does|did|is|are|have|has|should)\s`),
	regexp.MustCompile(`please|pls\s`),
	regexp.MustCompile(`needs?\s+(you|your)`),
	regexp.MustCompile(`review|check|look at|take a look`),
	regexp.MustCompile(`(thoughts|opinion|input|feedback)\?`),
	regexp.MustCompile(`when (can|will|could)`),
	regexp.MustCompile(`eta\??`),
}

// IsActionItem reports whether text mentions myUserID and reads like a
// question or a request. It is a heuristic; misses and false hits are
// expected.
func IsActionItem(text, myUserID string) bool {
	if myUserID == "" || !strings.Contains(text, "<@"+myUserID+">") {
		return false
	}
	lowered := strings.ToLower(text)
	for _, pattern := range actionPatterns {
		if pattern.MatchString(lowered) {
			return true
		}
	}
	return false
}
