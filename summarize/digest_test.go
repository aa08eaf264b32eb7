package summarize

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"slack-summariser/models"
	"slack-summariser/workspace/workspacetest"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedGenerator answers by looking for a keyword in the prompt.
type scriptedGenerator struct {
	mu      sync.Mutex
	answers map[string]string
	prompts []string
}

func (g *scriptedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	for keyword, answer := range g.answers {
		if strings.Contains(prompt, keyword) {
			return answer, nil
		}
	}
	return "", errors.New("model unavailable")
}

func TestDigestOrdersByPriority(t *testing.T) {
	backend := workspacetest.NewBackend("UME")
	root := workspacetest.Msg("U1", "release blocked <@UME>?", epoch.Add(-2*time.Hour))
	reply := workspacetest.Msg("U2", "still waiting on the fix", epoch.Add(-time.Hour))
	backend.Replies[workspacetest.ThreadKey("C1", root.Timestamp)] = []slack.Msg{root, reply}
	src := newSource(t, "acme", backend)

	generator := &scriptedGenerator{answers: map[string]string{
		"release blocked": "```json\n{\"summary\":[\"Release is blocked\"],\"actionable\":\"Yes\",\"action_required\":[\"Ship the fix\"],\"priority\":\"P0\"}\n```",
		"lunch":           `{"summary":["Lunch plans"],"actionable":"No","action_required":[],"priority":"P2"}`,
	}}

	items := []models.Message{
		{ID: "1792000000.000100", Text: "<@UME> lunch?", ConversationID: "C2", ConversationDisplayName: "#random"},
		{ID: root.Timestamp, Text: root.Text, ConversationID: "C1", ConversationDisplayName: "#eng"},
		{ID: "1792000001.000100", Text: "<@UME> unanswerable", ConversationID: "C3"},
	}

	entries := Digest(context.Background(), src, generator, items)
	require.Len(t, entries, 2)

	assert.Equal(t, "P0", entries[0].Priority)
	assert.Equal(t, []string{"Release is blocked"}, entries[0].Summary)
	assert.Equal(t, []string{"Ship the fix"}, entries[0].ActionRequired)
	assert.Equal(t, "#eng", entries[0].Conversation)
	assert.Equal(t, "slack://channel?id=C1&message="+root.Timestamp, entries[0].MentionPermalink)
	assert.Equal(t, "P2", entries[1].Priority)

	var threadPrompt string
	for _, prompt := range generator.prompts {
		if strings.Contains(prompt, "release blocked") {
			threadPrompt = prompt
		}
	}
	assert.Contains(t, threadPrompt, "still waiting on the fix")
	assert.Contains(t, threadPrompt, `"priority"`)
}

func TestSortDigestByPriority(t *testing.T) {
	entries := []models.DigestEntry{
		{Priority: "P2"}, {Priority: "whatever"}, {Priority: "p1"}, {Priority: "P0"},
	}
	SortDigestByPriority(entries)
	assert.Equal(t, []string{"P0", "p1", "P2", "whatever"},
		[]string{entries[0].Priority, entries[1].Priority, entries[2].Priority, entries[3].Priority})
}

func TestCleanJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, cleanJSON("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, cleanJSON(`  {"a":1} `))
}

func TestNewGeminiGeneratorRequiresKey(t *testing.T) {
	_, err := NewGeminiGenerator(context.Background(), "", "")
	require.Error(t, err)
}
