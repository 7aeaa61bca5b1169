package storage

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"model-myself/backend/pkg/errors"
)

// Document is the stored metadata for one uploaded file
type Document struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	UploadDate  time.Time `json:"upload_date"`
	Category    string    `json:"category,omitempty"`
	StoredPath  string    `json:"stored_path"`
}

// ListResult is one page of documents
type ListResult struct {
	Documents []Document `json:"documents"`
	Total     int        `json:"total"`
	Offset    int        `json:"offset"`
	Limit     int        `json:"limit"`
}

// StoreStats summarizes the document store
type StoreStats struct {
	TotalDocuments int            `json:"total_documents"`
	TotalSize      int64          `json:"total_size"`
	ByContentType  map[string]int `json:"by_content_type"`
}

// DocumentStore keeps uploaded files on the local filesystem. File bytes go
// to <dir>/<id>_<filename> and metadata for all documents lives in a single
// sidecar JSON file rewritten atomically on every change.
type DocumentStore struct {
	mu     sync.RWMutex
	dir    string
	docs   map[string]Document
	meta   *metadataFile
	logger *zap.Logger
}

// OpenDocumentStore opens (or creates) the store rooted at dir
func OpenDocumentStore(dir string, logger *zap.Logger) (*DocumentStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.NewPersistence(dir, err)
	}

	meta := newMetadataFile(filepath.Join(dir, "metadata.json"))
	docs, err := meta.load()
	if err != nil {
		return nil, err
	}

	logger.Info("Opened document store", zap.String("dir", dir), zap.Int("documents", len(docs)))
	return &DocumentStore{dir: dir, docs: docs, meta: meta, logger: logger}, nil
}

// Save stores content under a fresh document id and records its metadata.
// An empty contentType falls back to extension-based detection; category is
// an optional client-supplied grouping label.
func (s *DocumentStore) Save(filename, contentType string, content []byte, category string) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New().String()
	safe := sanitizeFilename(filename)
	path := filepath.Join(s.dir, id+"_"+safe)

	if err := os.WriteFile(path, content, 0o644); err != nil {
		return Document{}, errors.NewPersistence(path, err)
	}

	if contentType == "" || contentType == "application/octet-stream" {
		contentType = DetectContentType(safe)
	}
	doc := Document{
		ID:          id,
		Filename:    safe,
		ContentType: contentType,
		Size:        int64(len(content)),
		UploadDate:  time.Now().UTC(),
		Category:    category,
		StoredPath:  path,
	}
	s.docs[id] = doc
	if err := s.meta.save(s.docs); err != nil {
		delete(s.docs, id)
		os.Remove(path)
		return Document{}, err
	}

	s.logger.Info("Stored document",
		zap.String("document_id", id),
		zap.String("filename", safe),
		zap.Int64("size", doc.Size))
	return doc, nil
}

// Get returns a document's metadata
func (s *DocumentStore) Get(id string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	if !ok {
		return Document{}, errors.NewDocumentNotFound(id)
	}
	return doc, nil
}

// Content returns a document's stored bytes
func (s *DocumentStore) Content(id string) ([]byte, error) {
	doc, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(doc.StoredPath)
	if err != nil {
		return nil, errors.NewPersistence(doc.StoredPath, err)
	}
	return data, nil
}

// List returns documents newest-first, optionally filtered by a
// case-insensitive filename search, with offset/limit pagination.
func (s *DocumentStore) List(search string, offset, limit int) ListResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]Document, 0, len(s.docs))
	needle := strings.ToLower(search)
	for _, doc := range s.docs {
		if needle != "" && !strings.Contains(strings.ToLower(doc.Filename), needle) {
			continue
		}
		matched = append(matched, doc)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].UploadDate.Equal(matched[j].UploadDate) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].UploadDate.After(matched[j].UploadDate)
	})

	total := len(matched)
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}

	return ListResult{Documents: matched[offset:end], Total: total, Offset: offset, Limit: limit}
}

// Delete removes a document's file and metadata
func (s *DocumentStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[id]
	if !ok {
		return errors.NewDocumentNotFound(id)
	}
	if err := os.Remove(doc.StoredPath); err != nil && !os.IsNotExist(err) {
		return errors.NewPersistence(doc.StoredPath, err)
	}
	delete(s.docs, id)
	if err := s.meta.save(s.docs); err != nil {
		return err
	}
	s.logger.Info("Deleted document", zap.String("document_id", id))
	return nil
}

// Stats summarizes stored documents
func (s *DocumentStore) Stats() StoreStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := StoreStats{ByContentType: make(map[string]int)}
	for _, doc := range s.docs {
		stats.TotalDocuments++
		stats.TotalSize += doc.Size
		stats.ByContentType[doc.ContentType]++
	}
	return stats
}

// Cleanup removes files in the store directory that no metadata entry
// references, and drops metadata entries whose file is gone. Returns the
// number of orphans removed.
func (s *DocumentStore) Cleanup() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	referenced := make(map[string]struct{}, len(s.docs))
	removed := 0
	for id, doc := range s.docs {
		if _, err := os.Stat(doc.StoredPath); os.IsNotExist(err) {
			delete(s.docs, id)
			removed++
			continue
		}
		referenced[filepath.Base(doc.StoredPath)] = struct{}{}
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return removed, errors.NewPersistence(s.dir, err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == "metadata.json" {
			continue
		}
		if _, ok := referenced[name]; ok {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, name)); err == nil {
			removed++
		}
	}

	if removed > 0 {
		if err := s.meta.save(s.docs); err != nil {
			return removed, err
		}
		s.logger.Info("Cleaned up document store", zap.Int("removed", removed))
	}
	return removed, nil
}

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "..", "")
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "upload"
	}
	return name
}
