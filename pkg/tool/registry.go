package tool

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/prismgate/prism/pkg/registry"
)

// Registry aggregates tools from all registered sources and provides
// validated execution.
type Registry struct {
	*registry.BaseRegistry[Tool]
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{BaseRegistry: registry.NewBaseRegistry[Tool]()}
}

// AddTool registers a single tool under its own name.
func (r *Registry) AddTool(t Tool) error {
	return r.Register(t.Name(), t)
}

// AddSource discovers the source's tools and registers each one. Name
// conflicts are skipped with a warning rather than failing the whole
// source.
func (r *Registry) AddSource(ctx context.Context, src Source) error {
	tools, err := src.Tools(ctx)
	if err != nil {
		return fmt.Errorf("failed to discover tools from source '%s': %w", src.Name(), err)
	}

	for _, t := range tools {
		if err := r.Register(t.Name(), t); err != nil {
			slog.Warn("skipping conflicting tool", "tool", t.Name(), "source", src.Name(), "error", err)
		}
	}

	slog.Info("tool source registered", "source", src.Name(), "tools", len(tools))
	return nil
}

// ListInfo returns listing metadata for every tool, sorted by name.
func (r *Registry) ListInfo() []Info {
	tools := r.List()
	infos := make([]Info, 0, len(tools))
	for _, t := range tools {
		infos = append(infos, Info{
			Name:        t.Name(),
			Description: t.Description(),
			Schema:      t.Schema(),
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name < infos[j].Name
	})
	return infos
}

// Execute validates args against the named tool's schema and runs it.
// Unknown names return *NotFoundError; validation failures return
// *ValidationError; both are detected before the tool runs.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (string, error) {
	t, ok := r.Get(name)
	if !ok {
		return "", &NotFoundError{Name: name}
	}
	if err := ValidateArgs(t.Schema(), args); err != nil {
		return "", err
	}
	return t.Execute(ctx, args)
}
