package runtime

import "sort"

// Scope maps variable names to values for one activation. The language has a
// single flat scope per activation: conditional and loop bodies execute
// against the same Scope object as their surrounding block, while a function
// call receives a full copy of the caller's scope (see Clone).
type Scope struct {
	values map[string]Value
}

// NewScope creates an empty scope.
func NewScope() *Scope {
	return &Scope{values: make(map[string]Value)}
}

// Clone returns an independent copy of the scope. Function calls clone the
// caller's scope so that callee mutations stay invisible to the caller.
func (s *Scope) Clone() *Scope {
	out := make(map[string]Value, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return &Scope{values: out}
}

// Define inserts or replaces a binding.
func (s *Scope) Define(name string, value Value) {
	s.values[name] = value
}

// Lookup retrieves a binding.
func (s *Scope) Lookup(name string) (Value, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Len reports the number of bindings.
func (s *Scope) Len() int {
	return len(s.values)
}

// Names returns the bound names in sorted order (useful for determinism in
// tests and REPL inspection).
func (s *Scope) Names() []string {
	names := make([]string, 0, len(s.values))
	for k := range s.values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// NamesByLength returns the bound names longest-first, ties broken
// lexicographically. Substitution walks names in this order so that a short
// name never corrupts a longer name it is a substring of.
func (s *Scope) NamesByLength() []string {
	names := s.Names()
	sort.SliceStable(names, func(i, j int) bool {
		return len(names[i]) > len(names[j])
	})
	return names
}

// Snapshot returns a copy of the current bindings.
func (s *Scope) Snapshot() map[string]Value {
	out := make(map[string]Value, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}
