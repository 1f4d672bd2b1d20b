// Package store holds the in-memory RDF graph of anti-recommendations
// and reads and writes it in the standard RDF serializations.
package store

import (
	"log/slog"
	"sync"

	"github.com/siherrmann/arkg/helper"
)

// Origin tells how a GraphStore came to be
type Origin int

const (
	// OriginFresh is a store created empty, to be built and optionally persisted
	OriginFresh Origin = iota
	// OriginExisting is a store loaded from a persisted serialization
	OriginExisting
)

func (o Origin) String() string {
	if o == OriginExisting {
		return "existing"
	}
	return "fresh"
}

// Descriptor points at a persisted graph
type Descriptor struct {
	Path          string
	Serialization Serialization
}

// GraphStore is a mutable collection of quads.
// Quads are unique and kept in insertion order.
type GraphStore struct {
	mu            sync.RWMutex
	quads         []Quad
	index         map[Quad]struct{}
	origin        Origin
	descriptor    *Descriptor
	schemaVersion string
	logger        *slog.Logger
}

// Option configures a GraphStore
type Option func(*GraphStore)

// WithLogger sets the logger of the store
func WithLogger(logger *slog.Logger) Option {
	return func(s *GraphStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewGraphStore creates an empty store
func NewGraphStore(opts ...Option) *GraphStore {
	s := &GraphStore{
		index:  map[Quad]struct{}{},
		origin: OriginFresh,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OpenGraphStore loads the graph the descriptor points at
func OpenGraphStore(descriptor Descriptor, opts ...Option) (*GraphStore, error) {
	s := NewGraphStore(opts...)
	err := Load(s, descriptor.Path, descriptor.Serialization.ContentType)
	if err != nil {
		return nil, err
	}

	s.origin = OriginExisting
	s.descriptor = &descriptor

	return s, nil
}

// Origin returns whether the store was created fresh or loaded
func (s *GraphStore) Origin() Origin {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.origin
}

// Descriptor returns the location the store was loaded from or last dumped to
func (s *GraphStore) Descriptor() (Descriptor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.descriptor == nil {
		return Descriptor{}, false
	}
	return *s.descriptor, true
}

func (s *GraphStore) setDescriptor(descriptor Descriptor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.descriptor = &descriptor
}

// SchemaVersion returns the version of the graph schema the store was built with
func (s *GraphStore) SchemaVersion() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.schemaVersion
}

// SetSchemaVersion records the version of the graph schema
func (s *GraphStore) SetSchemaVersion(version string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schemaVersion = version
}

// Add inserts quads. Quads already in the store are ignored.
// It returns the number of quads that were new.
func (s *GraphStore) Add(quads ...Quad) (int, error) {
	for _, q := range quads {
		if err := q.Validate(); err != nil {
			return 0, helper.NewError("validate quad "+q.String(), err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, q := range quads {
		if _, ok := s.index[q]; ok {
			continue
		}
		s.index[q] = struct{}{}
		s.quads = append(s.quads, q)
		added++
	}

	return added, nil
}

// Contains reports whether the quad is in the store
func (s *GraphStore) Contains(q Quad) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.index[q]
	return ok
}

// Len returns the number of quads
func (s *GraphStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.quads)
}

// Quads returns a copy of all quads in insertion order
func (s *GraphStore) Quads() []Quad {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quads := make([]Quad, len(s.quads))
	copy(quads, s.quads)
	return quads
}

// Match returns the quads matching the given terms in insertion order.
// A zero term matches anything, so a zero graph matches every graph.
func (s *GraphStore) Match(subject, predicate, object, graph Term) []Quad {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []Quad
	for _, q := range s.quads {
		if !subject.IsZero() && q.Subject != subject {
			continue
		}
		if !predicate.IsZero() && q.Predicate != predicate {
			continue
		}
		if !object.IsZero() && q.Object != object {
			continue
		}
		if !graph.IsZero() && q.Graph != graph {
			continue
		}
		matches = append(matches, q)
	}
	return matches
}

// Graphs returns the names of the named graphs in order of first use
func (s *GraphStore) Graphs() []Term {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := map[Term]bool{}
	var graphs []Term
	for _, q := range s.quads {
		if q.Graph.IsZero() || seen[q.Graph] {
			continue
		}
		seen[q.Graph] = true
		graphs = append(graphs, q.Graph)
	}
	return graphs
}

// Clear removes all quads
func (s *GraphStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quads = nil
	s.index = map[Quad]struct{}{}
}

// Dump writes the store to path, see Dump
func (s *GraphStore) Dump(path string, contentType string) error {
	return Dump(s, path, contentType)
}

// Load reads a serialization into the store, see Load
func (s *GraphStore) Load(path string, contentType string) error {
	return Load(s, path, contentType)
}

// Query runs a pattern query against the store, see Query.
// The result has to be closed unless it is drained.
func (s *GraphStore) Query(text string) (*QueryResult, error) {
	return Query(s, text)
}
