package graph

import (
	"time"

	"go.uber.org/zap"
	"model-myself/backend/pkg/logger"
)

// ============================================================================
// Training Syncer
// ============================================================================

// TrainingAnswer is one validated answered training question, as delivered by
// the training API layer.
type TrainingAnswer struct {
	Category   string    `json:"category"`
	QuestionID string    `json:"question_id"`
	Question   string    `json:"question"`
	Answer     string    `json:"answer"`
	AnswerType string    `json:"answer_type"` // "text" or "multiple_choice"
	Timestamp  time.Time `json:"timestamp"`
}

// SyncStatus reports the outcome of a sync call
type SyncStatus string

const (
	SyncStatusSynced  SyncStatus = "synced"
	SyncStatusSkipped SyncStatus = "skipped"
)

// AnswerSyncResult reports what one SyncAnswer call did
type AnswerSyncResult struct {
	Status SyncStatus `json:"status"`
	NodeID string     `json:"node_id,omitempty"`
	Reason string     `json:"reason,omitempty"`
}

// TrainingSyncer merges answered training questions into the graph under the
// category taxonomy.
type TrainingSyncer struct {
	store  *Store
	logger *zap.Logger
}

// NewTrainingSyncer creates a training syncer on top of a store
func NewTrainingSyncer(store *Store) *TrainingSyncer {
	return &TrainingSyncer{
		store:  store,
		logger: logger.Get(),
	}
}

// SyncAnswer merges one answered question into the graph as a single
// transaction. The composite id <key>:<questionID> is the idempotence key:
// answering or editing the same question any number of times always lands on
// the same node, with the latest answer winning.
//
// An unknown category is non-fatal: the call logs, performs no mutation and
// returns a skipped result.
func (s *TrainingSyncer) SyncAnswer(answer TrainingAnswer) (AnswerSyncResult, error) {
	key, err := ResolveCategory(answer.Category)
	if err != nil {
		s.logger.Warn("Skipping answer with unknown category",
			zap.String("category", answer.Category),
			zap.String("question_id", answer.QuestionID),
		)
		return AnswerSyncResult{
			Status: SyncStatusSkipped,
			Reason: "unknown category: " + answer.Category,
		}, nil
	}

	categoryNodeID := "Training_" + string(key)
	qaNodeID := string(key) + ":" + answer.QuestionID

	err = s.store.WithTransaction(func(tx *Tx) error {
		tx.UpsertNode(TrainingHubID, NodeTypeTrainingMain, nil)
		tx.UpsertNode(categoryNodeID, NodeTypeTrainingCategory, map[string]any{
			"category": string(key),
		})
		tx.UpsertNode(qaNodeID, NodeTypeTrainingQA, map[string]any{
			"question":          answer.Question,
			"answer":            answer.Answer,
			"answer_type":       answer.AnswerType,
			"training_category": string(key),
			"timestamp":         answer.Timestamp.UTC().Format(time.RFC3339),
		})
		if err := tx.UpsertEdge(TrainingHubID, categoryNodeID, RelationDefault); err != nil {
			return err
		}
		return tx.UpsertEdge(categoryNodeID, qaNodeID, RelationDefault)
	})
	if err != nil {
		return AnswerSyncResult{}, err
	}

	s.logger.Info("Training answer synced",
		zap.String("node_id", qaNodeID),
		zap.String("category", string(key)),
	)
	return AnswerSyncResult{Status: SyncStatusSynced, NodeID: qaNodeID}, nil
}
