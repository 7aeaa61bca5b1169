package graph

import (
	"math"
)

// ============================================================================
// Graph Serializer
// ============================================================================

// Link is one edge flattened for the visualization client
type Link struct {
	Source   string   `json:"source"`
	Target   string   `json:"target"`
	Relation Relation `json:"relation"`
}

// CategorySummary aggregates training progress for one taxonomy key. Total
// comes from the training question catalog, which this package does not own.
type CategorySummary struct {
	Answered   int     `json:"answered"`
	Total      int     `json:"total"`
	Completion float64 `json:"completion"`
}

// Payload is the full export consumed by the visualization client. Every
// non-id, non-type node field is optional; callers must tolerate absent and
// unknown attributes.
type Payload struct {
	Nodes           []map[string]any           `json:"nodes"`
	Links           []Link                     `json:"links"`
	TrainingSummary map[string]CategorySummary `json:"trainingSummary"`
}

// Export flattens a snapshot into the visualization payload. Each node record
// carries id, type and whichever type-specific attributes are present. Output
// is sorted by node and edge id, so identical graphs export identically.
// totals supplies the per-category question counts for completion
// percentages.
func Export(snap Snapshot, totals map[TaxonomyKey]int) *Payload {
	payload := &Payload{
		Nodes:           make([]map[string]any, 0, len(snap.Nodes)),
		Links:           make([]Link, 0, len(snap.Edges)),
		TrainingSummary: make(map[string]CategorySummary, len(TaxonomyKeys)),
	}

	answered := make(map[TaxonomyKey]int, len(TaxonomyKeys))
	for _, n := range snap.Nodes {
		record := make(map[string]any, len(n.Attrs)+2)
		record["id"] = n.ID
		record["type"] = string(n.Type)
		for k, v := range n.Attrs {
			record[k] = v
		}
		payload.Nodes = append(payload.Nodes, record)

		if n.Type == NodeTypeTrainingQA {
			if cat, ok := n.Attrs["training_category"].(string); ok {
				answered[TaxonomyKey(cat)]++
			}
		}
	}

	for _, e := range snap.Edges {
		payload.Links = append(payload.Links, Link{
			Source:   e.SourceID,
			Target:   e.TargetID,
			Relation: e.Relation,
		})
	}

	for _, key := range TaxonomyKeys {
		payload.TrainingSummary[string(key)] = summarize(answered[key], totals[key])
	}
	return payload
}

func summarize(answered, total int) CategorySummary {
	summary := CategorySummary{Answered: answered, Total: total}
	if total > 0 {
		completion := float64(answered) / float64(total) * 100
		summary.Completion = math.Min(math.Round(completion*10)/10, 100)
	}
	return summary
}
