package operation

import (
	"sort"
	"sync"

	"github.com/go-viper/mapstructure/v2"

	"github.com/teranos/medkit/errors"
)

// Spec is what a pipeline definition gives to build an operation
type Spec struct {
	// Name is the instance name, the registered name when empty
	Name string
	// ID is the operation id, generated when empty
	ID     string
	Params map[string]any
}

// Factory builds an operation from a spec
type Factory func(spec Spec) (Operation, error)

// Metadata describes a registered operation
type Metadata struct {
	Name        string
	Description string
}

type entry struct {
	metadata Metadata
	factory  Factory
}

// Registry maps operation names to factories
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Register adds a factory under metadata.Name
func (r *Registry) Register(metadata Metadata, factory Factory) error {
	if metadata.Name == "" || factory == nil {
		return errors.NewInvalidRequestError("operation registration needs a name and a factory")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[metadata.Name]; exists {
		return errors.NewConflictError("operation already registered: %s", metadata.Name)
	}
	r.entries[metadata.Name] = entry{metadata: metadata, factory: factory}
	return nil
}

// New builds the operation registered as name
func (r *Registry) New(name string, spec Spec) (Operation, error) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.WithHintf(
			errors.NewNotFoundError("no operation registered as %q", name),
			"known operations: %v", r.List())
	}
	if spec.Name == "" {
		spec.Name = name
	}
	op, err := e.factory(spec)
	if err != nil {
		return nil, errors.Wrapf(err, "build operation %s", name)
	}
	return op, nil
}

// List returns the registered names in sorted order
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Metadata returns the metadata of every registered operation, sorted by name
func (r *Registry) Metadata() []Metadata {
	names := r.List()
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Metadata, 0, len(names))
	for _, name := range names {
		out = append(out, r.entries[name].metadata)
	}
	return out
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide registry that operation packages
// register into from init.
func DefaultRegistry() *Registry { return defaultRegistry }

// MustRegister registers into the default registry and panics on error
func MustRegister(metadata Metadata, factory Factory) {
	if err := defaultRegistry.Register(metadata, factory); err != nil {
		panic(err)
	}
}

// DecodeParams decodes spec params into out, a pointer to a struct with
// mapstructure tags. Unknown params are an error.
func DecodeParams(params map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return errors.Wrap(err, "create params decoder")
	}
	if err := dec.Decode(params); err != nil {
		return errors.Mark(errors.Wrap(err, "invalid operation params"), errors.ErrInvalidRequest)
	}
	return nil
}
