package agent

import "errors"

// Capability describes what an agent type can do. Descriptors are loaded
// once per orchestration run into an immutable Registry snapshot; nothing
// mutates a Capability after load.
type Capability struct {
	Keywords        []string `json:"keywords" yaml:"keywords"`
	Specializations []string `json:"specializations" yaml:"specializations"`
	Tools           []string `json:"tools" yaml:"tools"`
}

// Validate checks that a capability descriptor is well-formed.
func (c *Capability) Validate() error {
	if len(c.Keywords) == 0 {
		return errors.New("capability requires at least one keyword")
	}
	return nil
}

// Registry is an immutable snapshot of agent capability descriptors.
// Iteration order is fixed at construction so that match ranking is
// deterministic across calls.
type Registry struct {
	names  []string
	byName map[string]Capability
}

// NewRegistry builds a snapshot from names in the given order. Duplicate
// names keep the first descriptor.
func NewRegistry(names []string, caps map[string]Capability) *Registry {
	r := &Registry{byName: make(map[string]Capability, len(caps))}
	for _, name := range names {
		c, ok := caps[name]
		if !ok {
			continue
		}
		if _, dup := r.byName[name]; dup {
			continue
		}
		r.names = append(r.names, name)
		r.byName[name] = c
	}
	return r
}

// Names returns agent names in registry iteration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Lookup returns the capability for the named agent.
func (r *Registry) Lookup(name string) (Capability, bool) {
	c, ok := r.byName[name]
	return c, ok
}

// Len returns the number of registered agents.
func (r *Registry) Len() int {
	return len(r.names)
}
