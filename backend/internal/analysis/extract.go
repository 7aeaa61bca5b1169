package analysis

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"model-myself/backend/internal/graph"
	"model-myself/backend/internal/storage"
	"model-myself/backend/pkg/errors"
)

// Completer produces a completion for a system+user prompt pair. The LLM
// adapter satisfies this; tests substitute a canned implementation.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userMsg string) (string, error)
}

const extractionSystemPrompt = "You are an assistant that extracts structured knowledge graph entries " +
	"from raw user text. For any facts you can identify that relate to the user's " +
	"personality, memories, preferences, morals, feelings, or general knowledge, " +
	"output a JSON array where each element has: category, question, answer. " +
	"IMPORTANT: Keep answers concise (1-2 sentences max). Always return a JSON array " +
	"(even if only one entry), not a single object. Use existing categories if clear, " +
	"otherwise pick the closest. Return ONLY valid JSON array - no other text or explanation."

// KnowledgeExtractor turns raw document text into knowledge graph entries via
// an LLM completion
type KnowledgeExtractor struct {
	completer      Completer
	maxPromptChars int
	logger         *zap.Logger
}

// NewKnowledgeExtractor creates an extractor backed by the given completer
func NewKnowledgeExtractor(completer Completer, logger *zap.Logger) *KnowledgeExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KnowledgeExtractor{completer: completer, maxPromptChars: 8000, logger: logger}
}

func (e *KnowledgeExtractor) Name() string { return TypeKnowledgeExtraction }

// ExtractionResult is the knowledge_extraction payload
type ExtractionResult struct {
	Entries      []graph.DocumentEntry `json:"entries"`
	EntryCount   int                   `json:"entry_count"`
	InvalidCount int                   `json:"invalid_count"`
}

// Process asks the LLM for entries and validates what comes back
func (e *KnowledgeExtractor) Process(ctx context.Context, content string, _ storage.Document) (any, error) {
	if strings.TrimSpace(content) == "" {
		return nil, errors.NewExtractionFailed("document has no text content", nil)
	}
	if len(content) > e.maxPromptChars {
		content = content[:e.maxPromptChars] + "..."
	}

	raw, err := e.completer.Complete(ctx, extractionSystemPrompt,
		"Extract knowledge graph entries from the following text:\n\n"+content)
	if err != nil {
		return nil, errors.NewExtractionFailed("LLM request failed", err)
	}

	entries, invalid, err := parseEntries(raw)
	if err != nil {
		e.logger.Error("Failed to parse extraction output",
			zap.Error(err),
			zap.String("raw_output", truncate(raw, 200)))
		return nil, err
	}
	if len(entries) == 0 {
		return nil, errors.NewExtractionFailed("no valid entries extracted", nil)
	}

	e.logger.Info("Knowledge extraction complete",
		zap.Int("valid_entries", len(entries)),
		zap.Int("invalid_entries", invalid))
	return ExtractionResult{Entries: entries, EntryCount: len(entries), InvalidCount: invalid}, nil
}

var jsonPayloadRe = regexp.MustCompile(`(?s)(\[.*\]|\{.*\})`)

// parseEntries extracts the JSON payload from raw LLM output, tolerating code
// fences and surrounding prose, and validates each entry.
func parseEntries(raw string) ([]graph.DocumentEntry, int, error) {
	cleaned := strings.TrimSpace(raw)

	if strings.HasPrefix(cleaned, "```") {
		parts := strings.Split(cleaned, "```")
		if len(parts) >= 3 {
			cleaned = strings.Join(parts[1:len(parts)-1], "```")
		}
		cleaned = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(cleaned), "json"))
	}

	if match := jsonPayloadRe.FindString(cleaned); match != "" {
		cleaned = match
	}

	var items []map[string]any
	if err := json.Unmarshal([]byte(cleaned), &items); err != nil {
		// single object instead of array
		var single map[string]any
		if err2 := json.Unmarshal([]byte(cleaned), &single); err2 != nil {
			return nil, 0, errors.NewExtractionFailed("LLM output is not valid JSON", err)
		}
		items = []map[string]any{single}
	}

	var valid []graph.DocumentEntry
	invalid := 0
	for _, item := range items {
		entry := graph.DocumentEntry{
			Category: strings.TrimSpace(stringField(item, "category")),
			Question: strings.TrimSpace(stringField(item, "question")),
			Answer:   strings.TrimSpace(stringField(item, "answer")),
		}
		if entry.Question == "" || entry.Answer == "" {
			invalid++
			continue
		}
		valid = append(valid, entry)
	}
	return valid, invalid, nil
}

func stringField(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
