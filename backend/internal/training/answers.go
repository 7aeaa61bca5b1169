package training

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"model-myself/backend/pkg/errors"
)

// Answer is one recorded training answer
type Answer struct {
	Category   string    `json:"category"`
	QuestionID string    `json:"question_id"`
	Question   string    `json:"question"`
	Answer     string    `json:"answer"`
	AnswerType string    `json:"answer_type"`
	Timestamp  time.Time `json:"timestamp"`
}

// Stats summarizes the answer log
type Stats struct {
	TotalAnswers    int            `json:"total_answers"`
	ByCategory      map[string]int `json:"by_category"`
	LastAnswerAt    *time.Time     `json:"last_answer_at,omitempty"`
	UniqueQuestions int            `json:"unique_questions"`
}

// AnswerLog persists training answers to a JSON file. The whole log is held
// in memory and rewritten atomically on every append, which is fine at the
// volumes a single user produces.
type AnswerLog struct {
	mu      sync.Mutex
	path    string
	answers []Answer
	logger  *zap.Logger
}

// OpenAnswerLog loads the answer log at path, creating parent directories as
// needed. A missing file starts an empty log.
func OpenAnswerLog(path string, logger *zap.Logger) (*AnswerLog, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.NewPersistence(path, err)
		}
	}

	log := &AnswerLog{path: path, logger: logger}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return log, nil
		}
		return nil, errors.NewPersistence(path, err)
	}
	if err := json.Unmarshal(data, &log.answers); err != nil {
		return nil, errors.NewPersistence(path, err)
	}
	logger.Info("Loaded training answers", zap.String("path", path), zap.Int("count", len(log.answers)))
	return log, nil
}

// Append records one answer
func (l *AnswerLog) Append(a Answer) error {
	return l.AppendAll([]Answer{a})
}

// AppendAll records a batch of answers in one write
func (l *AnswerLog) AppendAll(batch []Answer) error {
	if len(batch) == 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range batch {
		if batch[i].Timestamp.IsZero() {
			batch[i].Timestamp = time.Now().UTC()
		}
	}
	staged := append(append([]Answer{}, l.answers...), batch...)
	if err := l.save(staged); err != nil {
		return err
	}
	l.answers = staged
	l.logger.Info("Recorded training answers", zap.Int("count", len(batch)))
	return nil
}

// All returns recorded answers, optionally filtered by category label.
// An empty category returns everything.
func (l *AnswerLog) All(category string) []Answer {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Answer, 0, len(l.answers))
	for _, a := range l.answers {
		if category != "" && a.Category != category {
			continue
		}
		out = append(out, a)
	}
	return out
}

// Stats computes summary statistics over the log
func (l *AnswerLog) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := Stats{
		TotalAnswers: len(l.answers),
		ByCategory:   make(map[string]int),
	}
	seen := make(map[string]struct{})
	for _, a := range l.answers {
		s.ByCategory[a.Category]++
		seen[a.Category+"|"+a.QuestionID] = struct{}{}
		if s.LastAnswerAt == nil || a.Timestamp.After(*s.LastAnswerAt) {
			ts := a.Timestamp
			s.LastAnswerAt = &ts
		}
	}
	s.UniqueQuestions = len(seen)
	return s
}

func (l *AnswerLog) save(answers []Answer) error {
	data, err := json.MarshalIndent(answers, "", "  ")
	if err != nil {
		return errors.NewPersistence(l.path, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(l.path), ".answers-*.json")
	if err != nil {
		return errors.NewPersistence(l.path, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.NewPersistence(l.path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.NewPersistence(l.path, err)
	}
	if err := os.Rename(tmp.Name(), l.path); err != nil {
		os.Remove(tmp.Name())
		return errors.NewPersistence(l.path, err)
	}
	return nil
}
