package transform

import "fmt"

// ApplyFunc is a pure transform: the previous step's output in, the next
// step's input out.
type ApplyFunc func(input interface{}, params map[string]interface{}) (interface{}, error)

// Transform couples a type name with its required parameters and behavior.
type Transform struct {
	Type           string
	RequiredParams []string
	Apply          ApplyFunc
}

// Registry resolves transform type names. Registration happens at startup
// (or in tests); during request processing the registry is read-only, so
// concurrent lookups need no locking.
type Registry struct {
	transforms map[string]Transform
}

// NewRegistry builds a registry preloaded with the built-in transforms.
func NewRegistry() *Registry {
	r := &Registry{transforms: make(map[string]Transform)}
	for _, t := range builtinTransforms() {
		// Builtins are disjoint by construction.
		_ = r.Register(t)
	}
	return r
}

// Register adds a transform type. Duplicate names are rejected so a later
// registration cannot silently change pipeline semantics.
func (r *Registry) Register(t Transform) error {
	if t.Type == "" {
		return fmt.Errorf("transform type name is empty")
	}
	if _, exists := r.transforms[t.Type]; exists {
		return fmt.Errorf("transform type %q already registered", t.Type)
	}
	r.transforms[t.Type] = t
	return nil
}

// Get resolves a transform by type name.
func (r *Registry) Get(typeName string) (Transform, bool) {
	t, ok := r.transforms[typeName]
	return t, ok
}

// Types returns the registered type names, for diagnostics.
func (r *Registry) Types() []string {
	out := make([]string, 0, len(r.transforms))
	for name := range r.transforms {
		out = append(out, name)
	}
	return out
}

func builtinTransforms() []Transform {
	var all []Transform
	all = append(all, stringTransforms()...)
	all = append(all, localeTransforms()...)
	all = append(all, dateTransforms()...)
	all = append(all, numberTransforms()...)
	all = append(all, lookupTransforms()...)
	return all
}
