// Package hiddenfiles implements the Hidden File Registry (SPEC_FULL.md §4.9):
// cross-page deduplication of asset URLs (stylesheets, images, embedded files) so that
// only the first worker to observe a given asset downloads it.
package hiddenfiles

import (
	"net/url"
	"strings"
	"sync"
	"time"
)

// Status is the terminal-or-pending state of one entry.
type Status string

const (
	StatusPending    Status = "pending"
	StatusDownloaded Status = "downloaded"
	StatusFailed     Status = "failed"
)

// Entry is one registry row.
type Entry struct {
	Status           Status
	SavedPath        string
	DiscoveredByPageID string
	DiscoveredAt     time.Time
	DownloadedAt     time.Time
	Err              error
}

// Registry is the single-instance, master-owned asset registry for one run.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*Entry
	now     func() time.Time
}

// New constructs an empty registry. now defaults to time.Now and is overridable in tests.
func New() *Registry {
	return &Registry{entries: make(map[string]*Entry), now: time.Now}
}

// ShouldProcess reports true iff the normalized URL is neither present in the registry
// nor already claimed pending.
func (r *Registry) ShouldProcess(rawURL string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, exists := r.entries[normalize(rawURL)]
	return !exists
}

// MarkPending atomically claims rawURL for pageID. Returns false if already claimed by
// any page (this call or an earlier one).
func (r *Registry) MarkPending(rawURL, pageID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := normalize(rawURL)
	if _, exists := r.entries[key]; exists {
		return false
	}

	r.entries[key] = &Entry{
		Status:             StatusPending,
		DiscoveredByPageID: pageID,
		DiscoveredAt:       r.now(),
	}
	return true
}

// RecordDownload moves a pending entry to downloaded, at most once.
func (r *Registry) RecordDownload(rawURL, savedPath string, size int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := normalize(rawURL)
	e, exists := r.entries[key]
	if !exists || e.Status != StatusPending {
		return
	}
	e.Status = StatusDownloaded
	e.SavedPath = savedPath
	e.DownloadedAt = r.now()
}

// RecordFailure moves a pending entry to failed, at most once.
func (r *Registry) RecordFailure(rawURL string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := normalize(rawURL)
	e, exists := r.entries[key]
	if !exists || e.Status != StatusPending {
		return
	}
	e.Status = StatusFailed
	e.Err = err
}

// GetSavedPath returns the saved path for a downloaded URL, used by later workers to
// rewrite references without re-downloading.
func (r *Registry) GetSavedPath(rawURL string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, exists := r.entries[normalize(rawURL)]
	if !exists || e.Status != StatusDownloaded {
		return "", false
	}
	return e.SavedPath, true
}

// Get returns a copy of the entry for rawURL, if any.
func (r *Registry) Get(rawURL string) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, exists := r.entries[normalize(rawURL)]
	if !exists {
		return Entry{}, false
	}
	return *e, true
}

// volatileQueryParams are stripped during normalization as cache-busting noise.
var volatileQueryParams = map[string]bool{
	"v": true, "t": true, "cb": true, "cache": true, "_": true, "timestamp": true,
}

// normalize lowercases the host, strips volatile query parameters, and preserves the
// path and fragment, per §4.9.
func normalize(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(rawURL))
	}

	u.Host = strings.ToLower(u.Host)

	if u.RawQuery != "" {
		q := u.Query()
		for param := range volatileQueryParams {
			q.Del(param)
		}
		u.RawQuery = q.Encode()
	}

	return u.String()
}
