package runtime

import (
	"fmt"
	"strings"
	"sync"
)

// Resolver maps service ids to executors by the longest registered prefix.
type Resolver struct {
	mu      sync.RWMutex
	sources map[string]*Executor
}

// NewResolver creates an empty resolver.
func NewResolver() *Resolver {
	return &Resolver{sources: make(map[string]*Executor)}
}

// Register serves every service id starting with prefix from e. The empty
// prefix is the fallback for all ids.
func (r *Resolver) Register(prefix string, e *Executor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[prefix] = e
}

// DataSource returns the executor registered under the longest prefix of serviceID.
func (r *Resolver) DataSource(serviceID string) (*Executor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var (
		best  *Executor
		match = -1
	)
	for prefix, e := range r.sources {
		if strings.HasPrefix(serviceID, prefix) && len(prefix) > match {
			best, match = e, len(prefix)
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoExecutor, serviceID)
	}
	return best, nil
}
