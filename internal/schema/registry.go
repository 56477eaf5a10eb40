package schema

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/dominikbraun/graph"
)

// Resolver resolves type ids to types.
type Resolver interface {
	Resolve(id string) (*Type, error)
}

// Registry is an in-memory Resolver. The inheritance hierarchy is kept as a
// directed acyclic graph with edges pointing from subtype to supertype.
type Registry struct {
	mu        sync.RWMutex
	hierarchy graph.Graph[string, *Type]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		hierarchy: graph.New(func(t *Type) string { return t.ID }, graph.Directed(), graph.PreventCycles()),
	}
}

// Register adds types and links them to their supertypes. Supertypes may be
// part of the same call or registered earlier.
func (r *Registry) Register(types ...*Type) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range types {
		if t.ID == "" {
			return fmt.Errorf("%w: type %q has no id", ErrInvalidDefinition, t.Name)
		}
		if err := r.hierarchy.AddVertex(t); err != nil {
			if errors.Is(err, graph.ErrVertexAlreadyExists) {
				return fmt.Errorf("%w: %s", ErrDuplicateType, t.ID)
			}
			return fmt.Errorf("failed to add type %s: %w", t.ID, err)
		}
	}

	for _, t := range types {
		if t.SuperID == "" {
			continue
		}
		super, err := r.hierarchy.Vertex(t.SuperID)
		if err != nil {
			return fmt.Errorf("%w: %s (supertype of %s)", ErrTypeNotFound, t.SuperID, t.ID)
		}
		if err := r.hierarchy.AddEdge(t.ID, t.SuperID); err != nil {
			if errors.Is(err, graph.ErrEdgeCreatesCycle) {
				return fmt.Errorf("%w: %s extends %s", ErrTypeCycle, t.ID, t.SuperID)
			}
			return fmt.Errorf("failed to link %s to %s: %w", t.ID, t.SuperID, err)
		}
		t.Super = super
	}
	return nil
}

// Resolve returns the type registered under id.
func (r *Registry) Resolve(id string) (*Type, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, err := r.hierarchy.Vertex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrTypeNotFound, id)
	}
	return t, nil
}

// IDs returns all registered type ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	adjacency, err := r.hierarchy.AdjacencyMap()
	if err != nil {
		return nil
	}
	ids := make([]string, 0, len(adjacency))
	for id := range adjacency {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Subtypes returns the ids of the types directly extending id, sorted.
func (r *Registry) Subtypes(id string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	predecessors, err := r.hierarchy.PredecessorMap()
	if err != nil {
		return nil, fmt.Errorf("failed to read hierarchy: %w", err)
	}
	edges, ok := predecessors[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTypeNotFound, id)
	}
	subtypes := make([]string, 0, len(edges))
	for sub := range edges {
		subtypes = append(subtypes, sub)
	}
	sort.Strings(subtypes)
	return subtypes, nil
}
