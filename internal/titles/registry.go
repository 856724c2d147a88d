// Package titles implements the Title Registry (SPEC_FULL.md §4.5): an id->title map
// populated lazily, first-writer-wins, that can be serialized as a flat snapshot for
// shipping to a worker.
package titles

import "sync"

// Registry is first-writer-wins by design: once an id has a title, later calls to
// Register for the same id are ignored, so a slower worker's stale resolution can never
// clobber a faster worker's already-accepted title.
type Registry struct {
	mu     sync.Mutex
	titles map[string]string
}

func New() *Registry {
	return &Registry{titles: make(map[string]string)}
}

// Register records title for id if and only if id has no title yet. Returns true if this
// call was the one that set it.
func (r *Registry) Register(id, title string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.titles[id]; exists {
		return false
	}
	r.titles[id] = title
	return true
}

// Get returns the title for id, if any.
func (r *Registry) Get(id string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	title, ok := r.titles[id]
	return title, ok
}

// Serialize returns a flat {id: title} snapshot, used to ship the whole registry to a
// worker at init or at phase boundaries.
func (r *Registry) Serialize() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]string, len(r.titles))
	for k, v := range r.titles {
		out[k] = v
	}
	return out
}

// Len returns the number of registered titles.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.titles)
}
