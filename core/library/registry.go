package library

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// URIScheme prefixes every transient URI handed out by a Registry.
const URIScheme = "blob:"

// ErrUnknownURI is returned for URIs that were never registered or were revoked.
var ErrUnknownURI = errors.New("library: unknown or revoked uri")

type entry struct {
	data        []byte
	contentType string
}

// Registry allocates session-scoped URIs for in-memory payloads. URIs are
// never reused: re-registering the same bytes yields a fresh URI.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Register stores data under a new URI.
func (r *Registry) Register(data []byte, contentType string) string {
	uri := URIScheme + uuid.NewString()
	r.mu.Lock()
	r.entries[uri] = entry{data: data, contentType: contentType}
	r.mu.Unlock()
	return uri
}

// Resolve returns the payload behind uri.
func (r *Registry) Resolve(uri string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[uri]
	if !ok {
		return nil, ErrUnknownURI
	}
	return e.data, nil
}

// ContentType returns the MIME type recorded for uri.
func (r *Registry) ContentType(uri string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries[uri].contentType
}

// Revoke releases the given URIs. Empty and unknown URIs are ignored.
func (r *Registry) Revoke(uris ...string) {
	r.mu.Lock()
	for _, uri := range uris {
		delete(r.entries, uri)
	}
	r.mu.Unlock()
}

// Len reports how many URIs are live.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
