package tool

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// PromptParam declares one parameter of a prompt template.
type PromptParam struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
}

// Prompt is a named, parameterized text template. Placeholders use
// {param} syntax.
type Prompt struct {
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Template    string        `json:"-"`
	Params      []PromptParam `json:"params,omitempty"`
}

// Render substitutes args into the template. Missing required parameters
// are a client error; unknown args are ignored.
func (p Prompt) Render(args map[string]string) (string, error) {
	for _, param := range p.Params {
		if !param.Required {
			continue
		}
		if _, ok := args[param.Name]; !ok {
			return "", fmt.Errorf("prompt '%s' requires parameter '%s'", p.Name, param.Name)
		}
	}

	out := p.Template
	for name, value := range args {
		out = strings.ReplaceAll(out, "{"+name+"}", value)
	}
	return out, nil
}

// PromptSet holds the declared prompt templates, keyed by name.
type PromptSet struct {
	mu      sync.RWMutex
	prompts map[string]Prompt
}

// NewPromptSet creates an empty prompt set.
func NewPromptSet() *PromptSet {
	return &PromptSet{prompts: make(map[string]Prompt)}
}

// Add registers a prompt. Re-adding a name replaces it.
func (s *PromptSet) Add(p Prompt) error {
	if p.Name == "" {
		return fmt.Errorf("prompt name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts[p.Name] = p
	return nil
}

// List returns all prompts sorted by name.
func (s *PromptSet) List() []Prompt {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Prompt, 0, len(s.prompts))
	for _, p := range s.prompts {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Get returns the named prompt.
func (s *PromptSet) Get(name string) (Prompt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.prompts[name]
	if !ok {
		return Prompt{}, fmt.Errorf("prompt '%s' not found", name)
	}
	return p, nil
}
