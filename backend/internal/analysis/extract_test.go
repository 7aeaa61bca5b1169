package analysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "model-myself/backend/pkg/errors"

	"model-myself/backend/internal/storage"
)

// fakeCompleter returns a canned completion
type fakeCompleter struct {
	response string
	err      error
	lastUser string
}

func (f *fakeCompleter) Complete(_ context.Context, _, userMsg string) (string, error) {
	f.lastUser = userMsg
	return f.response, f.err
}

func TestKnowledgeExtractor_ParsesArray(t *testing.T) {
	completer := &fakeCompleter{response: `[
		{"category": "Preferences", "question": "What food do you like?", "answer": "Sushi"},
		{"category": "Knowledge", "question": "What do you study?", "answer": "Physics"}
	]`}
	e := NewKnowledgeExtractor(completer, zap.NewNop())

	out, err := e.Process(context.Background(), "I like sushi and study physics.", storage.Document{ID: "doc1"})
	require.NoError(t, err)

	res := out.(ExtractionResult)
	require.Len(t, res.Entries, 2)
	assert.Equal(t, "Preferences", res.Entries[0].Category)
	assert.Equal(t, "Sushi", res.Entries[0].Answer)
	assert.Zero(t, res.InvalidCount)
}

func TestKnowledgeExtractor_StripsCodeFences(t *testing.T) {
	completer := &fakeCompleter{response: "```json\n[{\"category\": \"Morals\", \"question\": \"Q\", \"answer\": \"A\"}]\n```"}
	e := NewKnowledgeExtractor(completer, zap.NewNop())

	out, err := e.Process(context.Background(), "some document text", storage.Document{})
	require.NoError(t, err)
	assert.Len(t, out.(ExtractionResult).Entries, 1)
}

func TestKnowledgeExtractor_SingleObjectBecomesArray(t *testing.T) {
	completer := &fakeCompleter{response: `{"category": "Feelings", "question": "Q", "answer": "A"}`}
	e := NewKnowledgeExtractor(completer, zap.NewNop())

	out, err := e.Process(context.Background(), "some document text", storage.Document{})
	require.NoError(t, err)
	assert.Len(t, out.(ExtractionResult).Entries, 1)
}

func TestKnowledgeExtractor_SurroundingProse(t *testing.T) {
	completer := &fakeCompleter{response: `Here are the entries you asked for:
[{"category": "Knowledge", "question": "Q", "answer": "A"}]
Let me know if you need more.`}
	e := NewKnowledgeExtractor(completer, zap.NewNop())

	out, err := e.Process(context.Background(), "some document text", storage.Document{})
	require.NoError(t, err)
	assert.Len(t, out.(ExtractionResult).Entries, 1)
}

func TestKnowledgeExtractor_CountsInvalidEntries(t *testing.T) {
	completer := &fakeCompleter{response: `[
		{"category": "Knowledge", "question": "Q", "answer": "A"},
		{"category": "Knowledge", "question": "", "answer": "no question"},
		{"category": "Knowledge", "question": "no answer"}
	]`}
	e := NewKnowledgeExtractor(completer, zap.NewNop())

	out, err := e.Process(context.Background(), "some document text", storage.Document{})
	require.NoError(t, err)

	res := out.(ExtractionResult)
	assert.Len(t, res.Entries, 1)
	assert.Equal(t, 2, res.InvalidCount)
}

func TestKnowledgeExtractor_InvalidJSON(t *testing.T) {
	completer := &fakeCompleter{response: "I could not extract anything useful."}
	e := NewKnowledgeExtractor(completer, zap.NewNop())

	_, err := e.Process(context.Background(), "some document text", storage.Document{})
	var failed *apperrors.ErrExtractionFailed
	assert.ErrorAs(t, err, &failed)
}

func TestKnowledgeExtractor_EmptyContent(t *testing.T) {
	e := NewKnowledgeExtractor(&fakeCompleter{}, zap.NewNop())

	_, err := e.Process(context.Background(), "   ", storage.Document{})
	assert.Error(t, err)
}

func TestKnowledgeExtractor_TruncatesLongContent(t *testing.T) {
	completer := &fakeCompleter{response: `[{"category": "Knowledge", "question": "Q", "answer": "A"}]`}
	e := NewKnowledgeExtractor(completer, zap.NewNop())
	e.maxPromptChars = 50

	long := make([]byte, 200)
	for i := range long {
		long[i] = 'x'
	}
	_, err := e.Process(context.Background(), string(long), storage.Document{})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(completer.lastUser), 50+len("Extract knowledge graph entries from the following text:\n\n")+3)
}
