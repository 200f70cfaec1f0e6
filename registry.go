package logrepo

import (
	"strings"
	"sync"
)

// SanitizerRegistry maps tags to sanitizers. Tags are case-insensitive and
// the most recent registration for a tag wins. It is safe for concurrent use.
type SanitizerRegistry struct {
	mu         sync.RWMutex
	sanitizers map[string]Sanitizer
}

func NewSanitizerRegistry() *SanitizerRegistry {
	return &SanitizerRegistry{sanitizers: make(map[string]Sanitizer)}
}

var defaultRegistry = NewSanitizerRegistry()

// Sanitizers returns the process-wide registry used by repositories that
// were not given one explicitly.
func Sanitizers() *SanitizerRegistry {
	return defaultRegistry
}

func normalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

// Register associates s with tag, replacing any earlier registration.
func (r *SanitizerRegistry) Register(tag string, s Sanitizer) error {
	key := normalizeTag(tag)
	if key == "" {
		return NewError(ErrCodeEmptyTag, "sanitizer tag cannot be empty")
	}
	if s == nil {
		return NewError(ErrCodeNilSanitizer, "sanitizer cannot be nil").WithContext("tag", tag)
	}

	r.mu.Lock()
	r.sanitizers[key] = s
	r.mu.Unlock()
	return nil
}

// Unregister removes tag. Unknown tags are ignored.
func (r *SanitizerRegistry) Unregister(tag string) {
	key := normalizeTag(tag)
	if key == "" {
		return
	}
	r.mu.Lock()
	delete(r.sanitizers, key)
	r.mu.Unlock()
}

// Get returns the sanitizer registered for tag. An empty tag never matches.
func (r *SanitizerRegistry) Get(tag string) (Sanitizer, bool) {
	key := normalizeTag(tag)
	if key == "" {
		return nil, false
	}
	r.mu.RLock()
	s, ok := r.sanitizers[key]
	r.mu.RUnlock()
	return s, ok
}

func (r *SanitizerRegistry) Has(tag string) bool {
	_, ok := r.Get(tag)
	return ok
}

func (r *SanitizerRegistry) Clear() {
	r.mu.Lock()
	r.sanitizers = make(map[string]Sanitizer)
	r.mu.Unlock()
}

func (r *SanitizerRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sanitizers)
}
