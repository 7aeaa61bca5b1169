package storage

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "model-myself/backend/pkg/errors"
)

func openTestStore(t *testing.T) (*DocumentStore, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := OpenDocumentStore(dir, zap.NewNop())
	require.NoError(t, err)
	return store, dir
}

func TestDocumentStore_SaveAndGet(t *testing.T) {
	store, _ := openTestStore(t)

	doc, err := store.Save("notes.txt", "", []byte("hello"), "")
	require.NoError(t, err)
	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, "notes.txt", doc.Filename)
	assert.Equal(t, "text/plain", doc.ContentType)
	assert.Equal(t, int64(5), doc.Size)

	got, err := store.Get(doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, got.ID)

	content, err := store.Content(doc.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), content)
}

func TestDocumentStore_SaveExplicitTypeAndCategory(t *testing.T) {
	store, _ := openTestStore(t)

	doc, err := store.Save("data.bin", "application/x-custom", []byte{1, 2}, "personal")
	require.NoError(t, err)
	assert.Equal(t, "application/x-custom", doc.ContentType)
	assert.Equal(t, "personal", doc.Category)

	// generic client type falls back to extension detection
	doc, err = store.Save("page.html", "application/octet-stream", []byte("<p>x</p>"), "")
	require.NoError(t, err)
	assert.Equal(t, "text/html", doc.ContentType)
}

func TestDocumentStore_GetMissing(t *testing.T) {
	store, _ := openTestStore(t)

	_, err := store.Get("nope")
	var notFound *apperrors.ErrDocumentNotFound
	assert.ErrorAs(t, err, &notFound)
}

func TestDocumentStore_MetadataSurvivesReopen(t *testing.T) {
	store, dir := openTestStore(t)

	doc, err := store.Save("report.md", "", []byte("# report"), "")
	require.NoError(t, err)

	reopened, err := OpenDocumentStore(dir, zap.NewNop())
	require.NoError(t, err)

	got, err := reopened.Get(doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "report.md", got.Filename)

	content, err := reopened.Content(doc.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("# report"), content)
}

func TestDocumentStore_ListNewestFirstWithSearch(t *testing.T) {
	store, _ := openTestStore(t)

	first, err := store.Save("alpha.txt", "", []byte("a"), "")
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	second, err := store.Save("beta.txt", "", []byte("b"), "")
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	third, err := store.Save("alpha-two.txt", "", []byte("c"), "")
	require.NoError(t, err)

	all := store.List("", 0, 50)
	require.Len(t, all.Documents, 3)
	assert.Equal(t, third.ID, all.Documents[0].ID)
	assert.Equal(t, second.ID, all.Documents[1].ID)
	assert.Equal(t, first.ID, all.Documents[2].ID)

	filtered := store.List("ALPHA", 0, 50)
	assert.Equal(t, 2, filtered.Total)

	page := store.List("", 1, 1)
	require.Len(t, page.Documents, 1)
	assert.Equal(t, second.ID, page.Documents[0].ID)
	assert.Equal(t, 3, page.Total)
}

func TestDocumentStore_Delete(t *testing.T) {
	store, _ := openTestStore(t)

	doc, err := store.Save("gone.txt", "", []byte("bye"), "")
	require.NoError(t, err)

	require.NoError(t, store.Delete(doc.ID))
	_, err = store.Get(doc.ID)
	assert.Error(t, err)
	_, err = os.Stat(doc.StoredPath)
	assert.True(t, os.IsNotExist(err))

	var notFound *apperrors.ErrDocumentNotFound
	assert.ErrorAs(t, store.Delete(doc.ID), &notFound)
}

func TestDocumentStore_Stats(t *testing.T) {
	store, _ := openTestStore(t)

	_, err := store.Save("a.txt", "", []byte("aaa"), "")
	require.NoError(t, err)
	_, err = store.Save("b.json", "", []byte("{}"), "")
	require.NoError(t, err)

	stats := store.Stats()
	assert.Equal(t, 2, stats.TotalDocuments)
	assert.Equal(t, int64(5), stats.TotalSize)
	assert.Equal(t, 1, stats.ByContentType["text/plain"])
	assert.Equal(t, 1, stats.ByContentType["application/json"])
}

func TestDocumentStore_CleanupRemovesOrphans(t *testing.T) {
	store, dir := openTestStore(t)

	kept, err := store.Save("keep.txt", "", []byte("keep"), "")
	require.NoError(t, err)

	// stray file nothing references
	require.NoError(t, os.WriteFile(dir+"/stray_file.bin", []byte("x"), 0o644))

	// metadata entry whose file is gone
	lost, err := store.Save("lost.txt", "", []byte("lost"), "")
	require.NoError(t, err)
	require.NoError(t, os.Remove(lost.StoredPath))

	removed, err := store.Cleanup()
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	_, err = store.Get(kept.ID)
	assert.NoError(t, err)
	_, err = store.Get(lost.ID)
	assert.Error(t, err)
}

func TestDetectContentType(t *testing.T) {
	assert.Equal(t, "text/plain", DetectContentType("a.TXT"))
	assert.Equal(t, "application/pdf", DetectContentType("doc.pdf"))
	assert.Equal(t, "application/octet-stream", DetectContentType("mystery.xyz"))
}
