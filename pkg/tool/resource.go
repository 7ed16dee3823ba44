package tool

import (
	"fmt"
	"sync"
)

// Resource is a static, URI-addressed content blob exposed through the
// tool-invocation protocol.
type Resource struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mime_type,omitempty"`
	Content     string `json:"-"`
}

// ResourceSet holds the declared resources, keyed by URI. Registration
// happens at startup; reads are concurrent.
type ResourceSet struct {
	mu        sync.RWMutex
	resources map[string]Resource
	order     []string
}

// NewResourceSet creates an empty resource set.
func NewResourceSet() *ResourceSet {
	return &ResourceSet{resources: make(map[string]Resource)}
}

// Add registers a resource. Re-adding a URI replaces it.
func (s *ResourceSet) Add(r Resource) error {
	if r.URI == "" {
		return fmt.Errorf("resource uri is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.resources[r.URI]; !exists {
		s.order = append(s.order, r.URI)
	}
	s.resources[r.URI] = r
	return nil
}

// List returns all resources in registration order.
func (s *ResourceSet) List() []Resource {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Resource, 0, len(s.order))
	for _, uri := range s.order {
		out = append(out, s.resources[uri])
	}
	return out
}

// Read returns the resource at the given URI.
func (s *ResourceSet) Read(uri string) (Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.resources[uri]
	if !ok {
		return Resource{}, fmt.Errorf("resource '%s' not found", uri)
	}
	return r, nil
}
