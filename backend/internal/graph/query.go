package graph

// QueryService is the read-only facade over the store and serializer for the
// API layer. Pure read, no mutation.
type QueryService struct {
	store  *Store
	totals func() map[TaxonomyKey]int
}

// NewQueryService creates a query service. totals supplies the per-category
// question counts owned by the training catalog; it may be nil when no
// catalog is wired, in which case completion percentages are zero.
func NewQueryService(store *Store, totals func() map[TaxonomyKey]int) *QueryService {
	return &QueryService{store: store, totals: totals}
}

// GetGraph exports the full graph for the visualization client
func (q *QueryService) GetGraph() *Payload {
	return Export(q.store.Snapshot(), q.categoryTotals())
}

// GetTrainingSummary returns just the training summary, for lightweight
// polling.
func (q *QueryService) GetTrainingSummary() map[string]CategorySummary {
	snap := q.store.Snapshot()
	totals := q.categoryTotals()

	answered := make(map[TaxonomyKey]int, len(TaxonomyKeys))
	for _, n := range snap.Nodes {
		if n.Type != NodeTypeTrainingQA {
			continue
		}
		if cat, ok := n.Attrs["training_category"].(string); ok {
			answered[TaxonomyKey(cat)]++
		}
	}

	summary := make(map[string]CategorySummary, len(TaxonomyKeys))
	for _, key := range TaxonomyKeys {
		summary[string(key)] = summarize(answered[key], totals[key])
	}
	return summary
}

func (q *QueryService) categoryTotals() map[TaxonomyKey]int {
	if q.totals == nil {
		return nil
	}
	return q.totals()
}
