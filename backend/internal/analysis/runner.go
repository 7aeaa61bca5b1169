package analysis

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"model-myself/backend/internal/graph"
	"model-myself/backend/internal/storage"
	"model-myself/backend/pkg/errors"
)

// Runner executes analysis pipelines over stored documents. Processors run
// concurrently; a failing processor records its error in the results instead
// of aborting the run. Successful knowledge extraction feeds the knowledge
// graph through the document syncer.
type Runner struct {
	docs       *storage.DocumentStore
	records    *RecordStore
	syncer     *graph.DocumentSyncer
	processors map[string]Processor
	logger     *zap.Logger

	wg sync.WaitGroup
}

// NewRunner wires the standard processor set. completer may be nil, in which
// case knowledge_extraction is unavailable.
func NewRunner(docs *storage.DocumentStore, records *RecordStore, syncer *graph.DocumentSyncer, completer Completer, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	processors := map[string]Processor{
		TypeTextExtraction: NewTextExtractor(),
		TypeSentiment:      NewSentimentAnalyzer(),
		TypeKeywords:       NewKeywordExtractor(),
		TypeSummary:        NewDocumentSummarizer(),
		TypeMetadata:       NewMetadataExtractor(),
	}
	if completer != nil {
		processors[TypeKnowledgeExtraction] = NewKnowledgeExtractor(completer, logger.Named("extractor"))
	}
	return &Runner{
		docs:       docs,
		records:    records,
		syncer:     syncer,
		processors: processors,
		logger:     logger,
	}
}

// ValidateTypes checks that every requested analysis type is available
func (r *Runner) ValidateTypes(types []string) error {
	if len(types) == 0 {
		return errors.NewUnsupportedAnalysisType("")
	}
	for _, t := range types {
		if _, ok := r.processors[t]; !ok {
			return errors.NewUnsupportedAnalysisType(t)
		}
	}
	return nil
}

// Analyze runs the requested analysis types against one document and records
// the outcome. It returns the final record.
func (r *Runner) Analyze(ctx context.Context, documentID string, types []string) (Record, error) {
	doc, err := r.docs.Get(documentID)
	if err != nil {
		return Record{}, err
	}
	if err := r.ValidateTypes(types); err != nil {
		return Record{}, err
	}

	if _, err := r.records.Begin(documentID, doc.Filename, doc.ContentType, doc.Size, types); err != nil {
		return Record{}, err
	}

	raw, err := r.docs.Content(documentID)
	if err != nil {
		return r.records.Fail(documentID, err.Error())
	}
	content := string(raw)

	r.logger.Info("Analyzing document",
		zap.String("document_id", documentID),
		zap.String("filename", doc.Filename),
		zap.Strings("analysis_types", types))

	results := make(map[string]any, len(types))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, analysisType := range types {
		proc := r.processors[analysisType]
		g.Go(func() error {
			out, procErr := proc.Process(gctx, content, doc)
			mu.Lock()
			defer mu.Unlock()
			if procErr != nil {
				r.logger.Warn("Processor failed",
					zap.String("processor", proc.Name()),
					zap.String("document_id", documentID),
					zap.Error(procErr))
				results[proc.Name()] = map[string]any{"error": procErr.Error()}
				return nil
			}
			results[proc.Name()] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return r.records.Fail(documentID, err.Error())
	}

	// extracted entries flow into the knowledge graph
	if extraction, ok := results[TypeKnowledgeExtraction].(ExtractionResult); ok {
		syncResult, syncErr := r.syncGraph(doc, extraction.Entries)
		if syncErr != nil {
			r.logger.Error("Knowledge graph sync failed",
				zap.String("document_id", documentID),
				zap.Error(syncErr))
			results["graph_sync"] = map[string]any{"error": syncErr.Error()}
		} else {
			results["graph_sync"] = map[string]any{
				"document_node_id": syncResult.DocumentNodeID,
				"created_entries":  syncResult.CreatedEntries,
				"updated_entries":  syncResult.UpdatedEntries,
				"skipped_entries":  syncResult.SkippedEntries,
			}
		}
	}

	rec, err := r.records.Complete(documentID, results)
	if err != nil {
		return Record{}, err
	}
	r.logger.Info("Analysis completed",
		zap.String("document_id", documentID),
		zap.Float64("processing_time_seconds", rec.ProcessingTime))
	return rec, nil
}

func (r *Runner) syncGraph(doc storage.Document, entries []graph.DocumentEntry) (graph.DocumentSyncResult, error) {
	return r.syncer.SyncDocument(graph.DocumentSync{
		DocumentID:        doc.ID,
		Filename:          doc.Filename,
		ContentType:       doc.ContentType,
		FileSize:          doc.Size,
		UploadDate:        doc.UploadDate,
		AnalysisTimestamp: time.Now().UTC(),
		Entries:           entries,
	})
}

// StartBackground launches an analysis run detached from the caller's
// request. Failures surface through the record store.
func (r *Runner) StartBackground(documentID string, types []string) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if _, err := r.Analyze(ctx, documentID, types); err != nil {
			r.logger.Error("Background analysis failed",
				zap.String("document_id", documentID),
				zap.Error(err))
		}
	}()
}

// Wait blocks until all background analyses finish. Used during shutdown.
func (r *Runner) Wait() {
	r.wg.Wait()
}
