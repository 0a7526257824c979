// Package enummeta maps enum variants to display metadata (label, color,
// tone, sort order). This is a presentation concern kept outside the data
// model: the registry is built once at startup, injected where needed, and
// immutable afterwards.
package enummeta

import "sort"

// Meta is the display metadata for one enum variant.
type Meta struct {
	Value string `json:"value"`
	Label string `json:"label"`
	Color string `json:"color"`
	Tone  string `json:"tone,omitempty"`
	Sort  int    `json:"sort"`
}

// Registry holds metadata keyed by enum name, then variant value.
type Registry struct {
	enums map[string]map[string]Meta
}

// New builds a registry from a literal table. The input maps are copied, so
// the registry cannot be mutated through the argument afterwards.
func New(enums map[string]map[string]Meta) *Registry {
	copied := make(map[string]map[string]Meta, len(enums))
	for name, variants := range enums {
		vs := make(map[string]Meta, len(variants))
		for value, m := range variants {
			vs[value] = m
		}
		copied[name] = vs
	}
	return &Registry{enums: copied}
}

// Lookup returns the metadata for one variant.
func (r *Registry) Lookup(enum, value string) (Meta, bool) {
	m, ok := r.enums[enum][value]
	return m, ok
}

// Label returns the display label, falling back to the raw value when the
// variant is unregistered.
func (r *Registry) Label(enum, value string) string {
	if m, ok := r.enums[enum][value]; ok {
		return m.Label
	}
	return value
}

// Variants returns all variants of an enum in sort order.
func (r *Registry) Variants(enum string) []Meta {
	variants := r.enums[enum]
	out := make([]Meta, 0, len(variants))
	for _, m := range variants {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sort < out[j].Sort })
	return out
}
