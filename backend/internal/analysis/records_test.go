package analysis

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "model-myself/backend/pkg/errors"
)

func openTestRecords(t *testing.T) (*RecordStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "analysis.json")
	store, err := OpenRecordStore(path, zap.NewNop())
	require.NoError(t, err)
	return store, path
}

func TestRecordStore_Lifecycle(t *testing.T) {
	store, _ := openTestRecords(t)

	rec, err := store.Begin("doc1", "a.txt", "text/plain", 10, []string{TypeKeywords, TypeSummary})
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, rec.Status)
	assert.Equal(t, "keywords, summary", rec.AnalysisType)
	assert.NotNil(t, rec.StartedAt)

	rec, err = store.Complete("doc1", map[string]any{"keywords": []string{"a"}})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, rec.Status)
	assert.NotNil(t, rec.CompletedAt)

	got, err := store.Get("doc1")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
}

func TestRecordStore_FailKeepsMessage(t *testing.T) {
	store, _ := openTestRecords(t)

	_, err := store.Begin("doc1", "a.txt", "text/plain", 10, []string{TypeSentiment})
	require.NoError(t, err)

	rec, err := store.Fail("doc1", "boom")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, rec.Status)
	assert.Equal(t, "boom", rec.ErrorMessage)
}

func TestRecordStore_ReRunClearsPreviousOutcome(t *testing.T) {
	store, _ := openTestRecords(t)

	_, err := store.Begin("doc1", "a.txt", "text/plain", 10, []string{TypeSentiment})
	require.NoError(t, err)
	_, err = store.Fail("doc1", "boom")
	require.NoError(t, err)

	rec, err := store.Begin("doc1", "a.txt", "text/plain", 10, []string{TypeKeywords})
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, rec.Status)
	assert.Empty(t, rec.ErrorMessage)
	assert.Nil(t, rec.CompletedAt)
}

func TestRecordStore_SurvivesReopen(t *testing.T) {
	store, path := openTestRecords(t)

	_, err := store.Begin("doc1", "a.txt", "text/plain", 10, []string{TypeMetadata})
	require.NoError(t, err)
	_, err = store.Complete("doc1", map[string]any{"metadata": "ok"})
	require.NoError(t, err)

	reopened, err := OpenRecordStore(path, zap.NewNop())
	require.NoError(t, err)

	rec, err := reopened.Get("doc1")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, rec.Status)
	assert.Equal(t, "a.txt", rec.Filename)
}

func TestRecordStore_ListFiltersAndPaginates(t *testing.T) {
	store, _ := openTestRecords(t)

	for _, id := range []string{"doc1", "doc2", "doc3"} {
		_, err := store.Begin(id, id+".txt", "text/plain", 1, []string{TypeMetadata})
		require.NoError(t, err)
	}
	_, err := store.Complete("doc2", nil)
	require.NoError(t, err)

	completed := store.List(StatusCompleted, 0, 20)
	assert.Equal(t, 1, completed.Total)

	all := store.List("", 0, 2)
	assert.Equal(t, 3, all.Total)
	assert.Len(t, all.Results, 2)
	assert.True(t, all.HasMore)
}

func TestRecordStore_Queue(t *testing.T) {
	store, _ := openTestRecords(t)

	_, err := store.Begin("doc1", "a.txt", "text/plain", 1, []string{TypeMetadata})
	require.NoError(t, err)
	_, err = store.Begin("doc2", "b.txt", "text/plain", 1, []string{TypeMetadata})
	require.NoError(t, err)
	_, err = store.Complete("doc1", nil)
	require.NoError(t, err)

	queue := store.Queue()
	require.Len(t, queue, 1)
	assert.Equal(t, "doc2", queue[0].DocumentID)
}

func TestRecordStore_Stats(t *testing.T) {
	store, _ := openTestRecords(t)

	_, err := store.Begin("doc1", "a.txt", "text/plain", 1, []string{TypeMetadata})
	require.NoError(t, err)
	_, err = store.Complete("doc1", nil)
	require.NoError(t, err)
	_, err = store.Begin("doc2", "b.txt", "text/plain", 1, []string{TypeMetadata})
	require.NoError(t, err)
	_, err = store.Fail("doc2", "boom")
	require.NoError(t, err)

	stats := store.Stats()
	assert.Equal(t, 2, stats.TotalAnalyses)
	assert.Equal(t, 1, stats.StatusCounts[StatusCompleted])
	assert.Equal(t, 1, stats.StatusCounts[StatusFailed])
	assert.InDelta(t, 50.0, stats.SuccessRate, 0.001)
	assert.Zero(t, stats.QueueLength)
}

func TestRecordStore_Delete(t *testing.T) {
	store, _ := openTestRecords(t)

	_, err := store.Begin("doc1", "a.txt", "text/plain", 1, []string{TypeMetadata})
	require.NoError(t, err)

	require.NoError(t, store.Delete("doc1"))

	_, err = store.Get("doc1")
	var notFound *apperrors.ErrAnalysisNotFound
	assert.ErrorAs(t, err, &notFound)
	assert.ErrorAs(t, store.Delete("doc1"), &notFound)
}
