// Package registry maps stable category names to plugin constructors.
package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/go-viper/mapstructure/v2"
)

// Params are the primitive-valued settings of one plugin instance.
type Params map[string]any

// Factory builds a plugin from its params.
type Factory[T any] func(params Params) (T, error)

// Saver is implemented by plugins that persist their own state.
type Saver interface {
	Save(dir string) error
}

// Restorer is implemented by plugins that reload state written by Save.
type Restorer interface {
	Restore(dir string) error
}

// UnknownCategoryError is returned when no factory is registered under a name.
type UnknownCategoryError struct {
	Kind     string
	Category string
	Known    []string
}

func (e UnknownCategoryError) Error() string {
	return fmt.Sprintf("unknown %s %q (known: %s)", e.Kind, e.Category, strings.Join(e.Known, ", "))
}

// Registry holds the factories for one kind of plugin.
type Registry[T any] struct {
	kind string

	mu        sync.RWMutex
	factories map[string]Factory[T]
}

// New returns an empty registry; kind names the plugin family in errors.
func New[T any](kind string) *Registry[T] {
	return &Registry[T]{kind: kind, factories: make(map[string]Factory[T])}
}

// Kind returns the plugin family name.
func (r *Registry[T]) Kind() string { return r.kind }

// Register adds a factory. Registering the same category twice panics.
func (r *Registry[T]) Register(category string, factory Factory[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[category]; ok {
		panic(fmt.Sprintf("registry: %s %q registered twice", r.kind, category))
	}
	r.factories[category] = factory
}

// Build constructs the plugin registered under category.
func (r *Registry[T]) Build(category string, params Params) (T, error) {
	r.mu.RLock()
	factory, ok := r.factories[category]
	r.mu.RUnlock()

	if !ok {
		var zero T
		return zero, UnknownCategoryError{Kind: r.kind, Category: category, Known: r.Categories()}
	}
	if params == nil {
		params = Params{}
	}
	plugin, err := factory(params)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("build %s %q: %w", r.kind, category, err)
	}
	return plugin, nil
}

// Categories lists the registered names in order.
func (r *Registry[T]) Categories() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for name := range r.factories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Decode copies params into the settings struct pointed to by out. Unknown
// keys are rejected.
func Decode(params Params, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(map[string]any(params)); err != nil {
		return fmt.Errorf("decode params: %w", err)
	}
	return nil
}
