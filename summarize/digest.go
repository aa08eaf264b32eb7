package summarize

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"slack-summariser/models"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-2.5-flash"

const digestThreadLimit = 200

//go:embed prompt.txt
var digestInstructions string

// Generator turns a prompt into model text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type geminiGenerator struct {
	client *genai.Client
	model  string
}

// NewGeminiGenerator builds a Generator on the Gemini API.
func NewGeminiGenerator(ctx context.Context, apiKey, model string) (Generator, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is empty")
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	genAiClient, genAiError := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if genAiError != nil {
		return nil, fmt.Errorf("creating gemini client: %w", genAiError)
	}
	return &geminiGenerator{client: genAiClient, model: model}, nil
}

func (g *geminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	genAiGenerateContentResult, genAiGenerateContentError := g.client.Models.GenerateContent(
		ctx,
		g.model,
		genai.Text(prompt),
		nil,
	)
	if genAiGenerateContentError != nil {
		return "", genAiGenerateContentError
	}
	if len(genAiGenerateContentResult.Candidates) == 0 || genAiGenerateContentResult.Candidates[0].Content == nil {
		return "", errors.New("gemini returned no candidates")
	}
	var b strings.Builder
	for _, part := range genAiGenerateContentResult.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	return b.String(), nil
}

// Digest asks the model to triage each item together with its thread and
// returns the entries ordered P0 first. Items the model cannot triage are
// left out.
func Digest(ctx context.Context, src Source, generator Generator, items []Message) []models.DigestEntry {
	logger := src.Logger().With(zap.String("scan", "digest"))

	entriesChan := make(chan models.DigestEntry, len(items))
	var completeDigest sync.WaitGroup
	for _, item := range items {
		completeDigest.Add(1)
		go func(m Message) {
			defer completeDigest.Done()
			entry, err := digestItem(ctx, src, generator, m)
			if err != nil {
				logger.Warn("Could not digest message",
					zap.String("channel", m.ConversationID),
					zap.String("ts", m.ID),
					zap.Error(err))
				return
			}
			entriesChan <- entry
		}(item)
	}
	completeDigest.Wait()
	close(entriesChan)

	entries := make([]models.DigestEntry, 0, len(items))
	for entry := range entriesChan {
		entries = append(entries, entry)
	}
	SortDigestByPriority(entries)
	return entries
}

func digestItem(ctx context.Context, src Source, generator Generator, item Message) (models.DigestEntry, error) {
	root := item.ThreadRootID
	if root == "" {
		root = item.ID
	}
	thread := src.Thread(ctx, item.ConversationID, root, digestThreadLimit)
	if len(thread) == 0 {
		thread = []Message{item}
	}

	text, err := generator.Generate(ctx, buildDigestPrompt(item, thread))
	if err != nil {
		return models.DigestEntry{}, err
	}

	var entry models.DigestEntry
	if jsonUnmarshallError := json.Unmarshal([]byte(cleanJSON(text)), &entry); jsonUnmarshallError != nil {
		return models.DigestEntry{}, fmt.Errorf("decoding model answer: %w", jsonUnmarshallError)
	}
	entry.MentionPermalink = item.Permalink()
	entry.Conversation = item.ConversationDisplayName
	return entry, nil
}

func buildDigestPrompt(item Message, thread []Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Mention:\n{\n\tText: %q,\n\tTimestamp: %q\n},\nThreadMessages: [\n", item.Text, item.ID)
	for i, msg := range thread {
		fmt.Fprintf(&b, "\t{\n\t\tAuthor: %q,\n\t\tText: %q,\n\t\tTimestamp: %q\n\t}", msg.AuthorDisplayName, msg.Text, msg.ID)
		if i < len(thread)-1 {
			b.WriteString(",\n")
		} else {
			b.WriteString("\n")
		}
	}
	b.WriteString("]\n")
	b.WriteString(digestInstructions)
	return b.String()
}

// cleanJSON strips the markdown fences models like to wrap JSON in.
func cleanJSON(input string) string {
	input = strings.TrimSpace(input)
	input = strings.TrimPrefix(input, "```json")
	input = strings.TrimPrefix(input, "```")
	input = strings.TrimSuffix(input, "```")
	return strings.TrimSpace(input)
}

// SortDigestByPriority orders entries P0, P1, P2, then anything else.
func SortDigestByPriority(entries []models.DigestEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return models.PriorityRank(entries[i].Priority) < models.PriorityRank(entries[j].Priority)
	})
}
