package graph

// ============================================================================
// Graph Types
// ============================================================================

// NodeType tags every node with its role in the graph
type NodeType string

const (
	// NodeTypeCategory is a taxonomy category node
	NodeTypeCategory NodeType = "category"
	// NodeTypeTrainingMain is the Training hub node
	NodeTypeTrainingMain NodeType = "training_main"
	// NodeTypeTrainingCategory is a per-category grouping node under the Training hub
	NodeTypeTrainingCategory NodeType = "training_category"
	// NodeTypeTrainingQA is a leaf node for one answered training question
	NodeTypeTrainingQA NodeType = "training_qa"
	// NodeTypeDocumentMain is the Documents hub node
	NodeTypeDocumentMain NodeType = "document_main"
	// NodeTypeDocumentInstance is a node for one uploaded document
	NodeTypeDocumentInstance NodeType = "document_instance"
	// NodeTypeKnowledgeEntry is a leaf node for one fact extracted from a document
	NodeTypeKnowledgeEntry NodeType = "knowledge_entry"
)

// Relation tags the kind of an edge
type Relation string

const (
	// RelationDefault is the plain hierarchy relation
	RelationDefault Relation = "default"
	// RelationContains links a document node to a knowledge entry extracted from it
	RelationContains Relation = "contains"
)

// TrainingHubID and DocumentsHubID are the ids of the two top-level hub nodes.
// Hubs are created lazily on the first sync that needs them.
const (
	TrainingHubID  = "Training"
	DocumentsHubID = "Documents"
)

// Node is one node of the knowledge graph. Attrs carries the type-specific
// payload; values must be JSON scalars (string, float64, bool) so a persisted
// graph round-trips to an identical in-memory form.
type Node struct {
	ID    string         `json:"id"`
	Type  NodeType       `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// cloneAttrs returns a shallow copy of an attribute map. Scalar values make a
// shallow copy a full copy.
func cloneAttrs(attrs map[string]any) map[string]any {
	if attrs == nil {
		return nil
	}
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}

// clone returns an independent copy of the node
func (n Node) clone() Node {
	n.Attrs = cloneAttrs(n.Attrs)
	return n
}

// Edge is a directed, typed edge. Edges are unique per
// (source, target, relation) triple.
type Edge struct {
	SourceID string   `json:"source_id"`
	TargetID string   `json:"target_id"`
	Relation Relation `json:"relation"`
}

// Snapshot is a deterministically ordered, independent copy of the graph,
// sorted by node id and by (source, target, relation)
type Snapshot struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}
