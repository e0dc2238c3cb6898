package tool

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registry holds the tools available to one agent. Each agent owns its own
// registry; there is no global tool table.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Registering a taken name fails with ErrDuplicateTool.
func (r *Registry) Register(t Tool) error {
	name := t.Metadata().Name
	if name == "" {
		return fmt.Errorf("register tool: empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("register %q: %w", name, ErrDuplicateTool)
	}
	r.tools[name] = t
	return nil
}

// MustRegister registers tools and panics on conflict. For static setup.
func (r *Registry) MustRegister(tools ...Tool) {
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
}

// Get returns the named tool or ErrUnknownTool.
func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("tool %q: %w", name, ErrUnknownTool)
	}
	return t, nil
}

// Names returns the registered tool names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Describe renders the registry as prompt text listing every tool with its
// description and parameters, in sorted name order.
func (r *Registry) Describe() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		meta := r.tools[name].Metadata()
		sb.WriteString("- ")
		sb.WriteString(meta.Name)
		sb.WriteString(": ")
		sb.WriteString(meta.Description)
		if len(meta.Parameters) > 0 {
			sb.WriteString(" (parameters:")
			for _, p := range meta.Parameters {
				sb.WriteString(" ")
				sb.WriteString(p.Name)
				sb.WriteString("=")
				sb.WriteString(p.Type)
				if p.Required {
					sb.WriteString("[required]")
				}
			}
			sb.WriteString(")")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
