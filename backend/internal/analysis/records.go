package analysis

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"model-myself/backend/pkg/errors"
)

// Analysis record statuses
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Record tracks one document's analysis lifecycle. A document has at most
// one record; re-running analysis reuses it.
type Record struct {
	DocumentID     string         `json:"document_id"`
	Filename       string         `json:"filename"`
	ContentType    string         `json:"content_type"`
	FileSize       int64          `json:"file_size"`
	AnalysisType   string         `json:"analysis_type"`
	Status         string         `json:"status"`
	Results        map[string]any `json:"results,omitempty"`
	ErrorMessage   string         `json:"error_message,omitempty"`
	StartedAt      *time.Time     `json:"started_at,omitempty"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
	ProcessingTime float64        `json:"processing_time_seconds,omitempty"`
}

// RecordList is one page of records
type RecordList struct {
	Results []Record `json:"results"`
	Total   int      `json:"total_count"`
	HasMore bool     `json:"has_more"`
}

// StatusStats summarizes analysis processing
type StatusStats struct {
	TotalAnalyses         int            `json:"total_analyses"`
	StatusCounts          map[string]int `json:"status_counts"`
	AverageProcessingTime float64        `json:"average_processing_time_seconds"`
	QueueLength           int            `json:"queue_length"`
	SuccessRate           float64        `json:"success_rate"`
}

// RecordStore persists analysis records to a JSON file with atomic rewrites
type RecordStore struct {
	mu      sync.Mutex
	path    string
	records map[string]Record
	logger  *zap.Logger
}

// OpenRecordStore loads the record file at path, starting empty if missing
func OpenRecordStore(path string, logger *zap.Logger) (*RecordStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.NewPersistence(path, err)
		}
	}

	store := &RecordStore{path: path, records: make(map[string]Record), logger: logger}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return store, nil
		}
		return nil, errors.NewPersistence(path, err)
	}
	var list []Record
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, errors.NewPersistence(path, err)
	}
	for _, r := range list {
		store.records[r.DocumentID] = r
	}
	return store, nil
}

// Begin marks a document's record as processing, creating it if needed
func (s *RecordStore) Begin(documentID, filename, contentType string, fileSize int64, types []string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	rec, ok := s.records[documentID]
	if !ok {
		rec = Record{
			DocumentID:  documentID,
			Filename:    filename,
			ContentType: contentType,
			FileSize:    fileSize,
		}
	}
	rec.AnalysisType = strings.Join(types, ", ")
	rec.Status = StatusProcessing
	rec.StartedAt = &now
	rec.CompletedAt = nil
	rec.ErrorMessage = ""
	rec.ProcessingTime = 0

	s.records[documentID] = rec
	if err := s.save(); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Complete records successful analysis results
func (s *RecordStore) Complete(documentID string, results map[string]any) (Record, error) {
	return s.finish(documentID, StatusCompleted, results, "")
}

// Fail records a failed analysis
func (s *RecordStore) Fail(documentID, errorMessage string) (Record, error) {
	return s.finish(documentID, StatusFailed, nil, errorMessage)
}

func (s *RecordStore) finish(documentID, status string, results map[string]any, errMsg string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[documentID]
	if !ok {
		return Record{}, errors.NewAnalysisNotFound(documentID)
	}
	now := time.Now().UTC()
	rec.Status = status
	rec.Results = results
	rec.ErrorMessage = errMsg
	rec.CompletedAt = &now
	if rec.StartedAt != nil {
		rec.ProcessingTime = now.Sub(*rec.StartedAt).Seconds()
	}

	s.records[documentID] = rec
	if err := s.save(); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Get returns the record for a document
func (s *RecordStore) Get(documentID string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[documentID]
	if !ok {
		return Record{}, errors.NewAnalysisNotFound(documentID)
	}
	return rec, nil
}

// List returns records newest-first, optionally filtered by status
func (s *RecordStore) List(status string, skip, limit int) RecordList {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		if status != "" && rec.Status != status {
			continue
		}
		matched = append(matched, rec)
	}
	sort.Slice(matched, func(i, j int) bool {
		return recordTime(matched[i]).After(recordTime(matched[j]))
	})

	total := len(matched)
	if limit <= 0 {
		limit = 20
	}
	if skip < 0 {
		skip = 0
	}
	if skip > total {
		skip = total
	}
	end := skip + limit
	if end > total {
		end = total
	}

	return RecordList{
		Results: matched[skip:end],
		Total:   total,
		HasMore: end < total,
	}
}

// Queue returns records still queued or processing, in started order
func (s *RecordStore) Queue() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	var queue []Record
	for _, rec := range s.records {
		if rec.Status == StatusQueued || rec.Status == StatusProcessing {
			queue = append(queue, rec)
		}
	}
	sort.Slice(queue, func(i, j int) bool {
		return recordTime(queue[i]).Before(recordTime(queue[j]))
	})
	return queue
}

// Stats computes processing statistics across all records
func (s *RecordStore) Stats() StatusStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := StatusStats{StatusCounts: make(map[string]int)}
	totalTime, completed := 0.0, 0
	for _, rec := range s.records {
		stats.TotalAnalyses++
		stats.StatusCounts[rec.Status]++
		if rec.Status == StatusCompleted && rec.ProcessingTime > 0 {
			totalTime += rec.ProcessingTime
			completed++
		}
	}
	if completed > 0 {
		stats.AverageProcessingTime = totalTime / float64(completed)
	}
	stats.QueueLength = stats.StatusCounts[StatusQueued] + stats.StatusCounts[StatusProcessing]
	if stats.TotalAnalyses > 0 {
		stats.SuccessRate = float64(stats.StatusCounts[StatusCompleted]) / float64(stats.TotalAnalyses) * 100
	}
	return stats
}

// Delete removes a document's record
func (s *RecordStore) Delete(documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[documentID]; !ok {
		return errors.NewAnalysisNotFound(documentID)
	}
	delete(s.records, documentID)
	return s.save()
}

func recordTime(r Record) time.Time {
	if r.CompletedAt != nil {
		return *r.CompletedAt
	}
	if r.StartedAt != nil {
		return *r.StartedAt
	}
	return time.Time{}
}

func (s *RecordStore) save() error {
	list := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		list = append(list, rec)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].DocumentID < list[j].DocumentID
	})

	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return errors.NewPersistence(s.path, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".analysis-*.json")
	if err != nil {
		return errors.NewPersistence(s.path, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.NewPersistence(s.path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.NewPersistence(s.path, err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return errors.NewPersistence(s.path, err)
	}
	return nil
}
