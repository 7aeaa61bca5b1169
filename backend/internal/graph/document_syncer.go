package graph

import (
	"strconv"
	"time"

	"go.uber.org/zap"
	"model-myself/backend/pkg/logger"
)

// ============================================================================
// Document Syncer
// ============================================================================

// DocumentEntry is one knowledge entry extracted from a document by the
// analysis pipeline.
type DocumentEntry struct {
	Category string `json:"category"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// DocumentSync describes one analyzed document and its extracted entries
type DocumentSync struct {
	DocumentID        string          `json:"document_id"`
	Filename          string          `json:"filename"`
	ContentType       string          `json:"content_type"`
	FileSize          int64           `json:"file_size"`
	UploadDate        time.Time       `json:"upload_date"`
	AnalysisTimestamp time.Time       `json:"analysis_timestamp"`
	Entries           []DocumentEntry `json:"entries"`
}

// DocumentSyncResult reports what one SyncDocument call did. Partial success
// is normal: skipped entries never block the rest.
type DocumentSyncResult struct {
	DocumentNodeID string   `json:"document_node_id"`
	CreatedEntries int      `json:"created_entries"`
	UpdatedEntries int      `json:"updated_entries"`
	SkippedEntries int      `json:"skipped_entries"`
	SkipReasons    []string `json:"skip_reasons,omitempty"`
}

// DocumentSyncer merges analyzed documents and their extracted knowledge
// entries into the graph.
type DocumentSyncer struct {
	store  *Store
	logger *zap.Logger
}

// NewDocumentSyncer creates a document syncer on top of a store
func NewDocumentSyncer(store *Store) *DocumentSyncer {
	return &DocumentSyncer{
		store:  store,
		logger: logger.Get(),
	}
}

// SyncDocument merges one analyzed document into the graph as a single
// transaction. The document node id Doc_<documentID> is stable across
// re-analysis runs: attributes, notably analysis_timestamp, are refreshed on
// every call. Entry nodes are keyed by their position in the submitted slice.
//
// An entry missing its question or answer is skipped with a logged reason and
// counted in the result; it does not abort the remaining entries. An entry
// category outside the taxonomy falls back to Knowledge, matching the
// extraction pipeline's loose categorization.
func (s *DocumentSyncer) SyncDocument(doc DocumentSync) (DocumentSyncResult, error) {
	docNodeID := "Doc_" + doc.DocumentID
	result := DocumentSyncResult{DocumentNodeID: docNodeID}

	err := s.store.WithTransaction(func(tx *Tx) error {
		tx.UpsertNode(DocumentsHubID, NodeTypeDocumentMain, nil)
		tx.UpsertNode(docNodeID, NodeTypeDocumentInstance, map[string]any{
			"filename":           doc.Filename,
			"content_type":       doc.ContentType,
			"size":               float64(doc.FileSize),
			"upload_date":        doc.UploadDate.UTC().Format(time.RFC3339),
			"analysis_timestamp": doc.AnalysisTimestamp.UTC().Format(time.RFC3339),
		})
		if err := tx.UpsertEdge(DocumentsHubID, docNodeID, RelationDefault); err != nil {
			return err
		}

		for n, entry := range doc.Entries {
			if entry.Question == "" || entry.Answer == "" {
				reason := "entry " + strconv.Itoa(n) + ": missing question or answer"
				s.logger.Warn("Skipping malformed knowledge entry",
					zap.String("document_id", doc.DocumentID),
					zap.Int("position", n),
				)
				result.SkippedEntries++
				result.SkipReasons = append(result.SkipReasons, reason)
				continue
			}

			key, err := ResolveCategory(entry.Category)
			if err != nil {
				s.logger.Warn("Unknown entry category, falling back to Knowledge",
					zap.String("category", entry.Category),
					zap.String("document_id", doc.DocumentID),
				)
				key = KeyKnowledge
			}

			entryNodeID := docNodeID + ":entry_" + strconv.Itoa(n)
			created := tx.UpsertNode(entryNodeID, NodeTypeKnowledgeEntry, map[string]any{
				"category": string(key),
				"question": entry.Question,
				"answer":   entry.Answer,
				"position": float64(n),
			})
			if created {
				result.CreatedEntries++
			} else {
				result.UpdatedEntries++
			}

			if err := tx.UpsertEdge(docNodeID, entryNodeID, RelationContains); err != nil {
				return err
			}

			// Entries also hang off their taxonomy category node so the
			// visualization can group extracted facts by category.
			tx.UpsertNode(string(key), NodeTypeCategory, map[string]any{
				"category": string(key),
			})
			if err := tx.UpsertEdge(string(key), entryNodeID, RelationDefault); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return DocumentSyncResult{}, err
	}

	s.logger.Info("Document synced",
		zap.String("document_node_id", docNodeID),
		zap.String("filename", doc.Filename),
		zap.Int("created_entries", result.CreatedEntries),
		zap.Int("updated_entries", result.UpdatedEntries),
		zap.Int("skipped_entries", result.SkippedEntries),
	)
	return result, nil
}
