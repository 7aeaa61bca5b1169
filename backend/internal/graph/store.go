package graph

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"
	"model-myself/backend/pkg/errors"
	"model-myself/backend/pkg/logger"
)

// Store is the sole owner of in-memory graph state and its durable file.
// One Store instance per graph file; a single exclusive lock guards the full
// mutate-then-save cycle of a transaction, and reads take a shared lock so
// they only ever observe fully committed state.
type Store struct {
	mu     sync.RWMutex
	path   string
	nodes  map[string]Node
	edges  map[Edge]struct{}
	logger *zap.Logger

	// degraded is set when a durable save fails; writes are refused until
	// Reopen verifies the file is writable again.
	degraded bool
	closed   bool
}

// persistedGraph is the on-disk representation. Readers tolerate unknown
// fields so the format can grow optional attributes.
type persistedGraph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Open loads the graph file at path if it exists, or starts an empty graph.
// An empty store is truly empty: hub and category nodes are created lazily by
// the first sync that references them.
func Open(path string) (*Store, error) {
	s := &Store{
		path:   path,
		nodes:  make(map[string]Node),
		edges:  make(map[Edge]struct{}),
		logger: logger.Get(),
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create graph directory: %w", err)
		}
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		s.logger.Info("No existing graph file, starting empty", zap.String("path", path))
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read graph file: %w", err)
	}

	var pg persistedGraph
	if err := json.Unmarshal(data, &pg); err != nil {
		return nil, fmt.Errorf("failed to parse graph file %s: %w", path, err)
	}
	for _, n := range pg.Nodes {
		s.nodes[n.ID] = n
	}
	for _, e := range pg.Edges {
		s.edges[e] = struct{}{}
	}

	s.logger.Info("Loaded knowledge graph",
		zap.String("path", path),
		zap.Int("nodes", len(s.nodes)),
		zap.Int("edges", len(s.edges)),
	)
	return s, nil
}

// Close marks the store closed. Further transactions fail with ErrStoreClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Path returns the durable file path of this store
func (s *Store) Path() string {
	return s.path
}

// Healthy reports whether the store accepts writes
func (s *Store) Healthy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.closed && !s.degraded
}

// Tx batches the upserts of one logical fact. Mutations are staged and only
// applied to the store when the transaction function returns nil, so a failed
// transaction leaves neither memory nor disk touched.
type Tx struct {
	store *Store
	nodes map[string]Node
	edges map[Edge]struct{}
}

// UpsertNode inserts the node if id is unknown, otherwise merges attrs into
// the existing node's attribute map (new keys overwrite, others untouched).
// Returns whether the node was newly created.
func (tx *Tx) UpsertNode(id string, typ NodeType, attrs map[string]any) bool {
	existing, ok := tx.nodes[id]
	if !ok {
		existing, ok = tx.store.nodes[id]
		if ok {
			existing = existing.clone()
		}
	}

	if !ok {
		tx.nodes[id] = Node{ID: id, Type: typ, Attrs: cloneAttrs(attrs)}
		return true
	}

	if len(attrs) > 0 {
		if existing.Attrs == nil {
			existing.Attrs = make(map[string]any, len(attrs))
		}
		for k, v := range attrs {
			existing.Attrs[k] = v
		}
	}
	tx.nodes[id] = existing
	return false
}

// UpsertEdge inserts the (source, target, relation) triple unless it already
// exists. Both endpoints must have been upserted earlier in this transaction
// or exist in the committed graph.
func (tx *Tx) UpsertEdge(source, target string, relation Relation) error {
	if !tx.hasNode(source) || !tx.hasNode(target) {
		return errors.NewDanglingReference(source, target)
	}

	edge := Edge{SourceID: source, TargetID: target, Relation: relation}
	if _, ok := tx.store.edges[edge]; ok {
		return nil
	}
	tx.edges[edge] = struct{}{}
	return nil
}

func (tx *Tx) hasNode(id string) bool {
	if _, ok := tx.nodes[id]; ok {
		return true
	}
	_, ok := tx.store.nodes[id]
	return ok
}

// WithTransaction runs fn with a staging transaction, applies its mutations,
// and persists the graph with a single durable save. If fn returns an error
// nothing is committed. If the save fails, the store is marked degraded and
// refuses further writes until Reopen succeeds.
func (s *Store) WithTransaction(fn func(tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.ErrStoreClosed
	}
	if s.degraded {
		return errors.ErrStoreDegraded
	}

	tx := &Tx{
		store: s,
		nodes: make(map[string]Node),
		edges: make(map[Edge]struct{}),
	}
	if err := fn(tx); err != nil {
		return err
	}

	for id, n := range tx.nodes {
		s.nodes[id] = n
	}
	for e := range tx.edges {
		s.edges[e] = struct{}{}
	}

	if err := s.save(); err != nil {
		s.degraded = true
		s.logger.Error("Graph save failed, store degraded",
			zap.String("path", s.path),
			zap.Error(err),
		)
		return errors.NewPersistence(s.path, err)
	}
	return nil
}

// Reopen verifies the underlying storage by re-saving the current state and
// clears the degraded flag on success.
func (s *Store) Reopen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.ErrStoreClosed
	}
	if err := s.save(); err != nil {
		return errors.NewPersistence(s.path, err)
	}
	s.degraded = false
	s.logger.Info("Graph store recovered", zap.String("path", s.path))
	return nil
}

// save writes the full graph to a temp file in the same directory and renames
// it over the committed file, so a crash mid-write never corrupts the
// previous snapshot. Caller holds the write lock.
func (s *Store) save() error {
	data, err := json.MarshalIndent(s.snapshotLocked(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal graph: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace graph file: %w", err)
	}
	return nil
}

// Snapshot returns an immutable, deterministically ordered copy of all nodes
// and edges.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{
		Nodes: make([]Node, 0, len(s.nodes)),
		Edges: make([]Edge, 0, len(s.edges)),
	}
	for _, n := range s.nodes {
		snap.Nodes = append(snap.Nodes, n.clone())
	}
	for e := range s.edges {
		snap.Edges = append(snap.Edges, e)
	}
	sort.Slice(snap.Nodes, func(i, j int) bool {
		return snap.Nodes[i].ID < snap.Nodes[j].ID
	})
	sort.Slice(snap.Edges, func(i, j int) bool {
		a, b := snap.Edges[i], snap.Edges[j]
		if a.SourceID != b.SourceID {
			return a.SourceID < b.SourceID
		}
		if a.TargetID != b.TargetID {
			return a.TargetID < b.TargetID
		}
		return a.Relation < b.Relation
	})
	return snap
}

// Node returns the committed node with the given id
func (s *Store) Node(id string) (Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	if !ok {
		return Node{}, false
	}
	return n.clone(), true
}

// Counts returns the committed node and edge counts
func (s *Store) Counts() (nodes, edges int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes), len(s.edges)
}
