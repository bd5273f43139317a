package vm

import l3errors "l3/internal/errors"

// Mutability distinguishes `let` (immutable) from `let mut` bindings:
// rebinding an immutable name is a NameError, not silently allowed.
type Mutability int

const (
	Immutable Mutability = iota
	Mutable
)

// Variable is one binding in a Scope: a name, the Ref it currently
// points at, and whether it may be rebound.
type Variable struct {
	Name  string
	Value Ref
	Mut   Mutability
}

// Scope is one lexical block's bindings, searched most-recently-declared
// first. It is pushed to the front of its slice on every declaration
// rather than appended and searched in reverse; both give the same
// observable lookup order, but prepend-and-scan-forward matches how the
// rest of this package reads.
type Scope struct {
	vars []Variable
}

// NewScope returns an empty scope.
func NewScope() *Scope { return &Scope{} }

// Declare introduces a new binding. It is a NameError to declare a name
// already bound in this same scope; shadowing only happens across scope
// boundaries (a nested Push), never within one.
func (s *Scope) Declare(name string, ref Ref, mut Mutability) error {
	if _, ok := s.Lookup(name); ok {
		return l3errors.Namef("variable %q already declared", name)
	}
	s.vars = append([]Variable{{Name: name, Value: ref, Mut: mut}}, s.vars...)
	return nil
}

// Lookup finds the nearest-declared binding named name within this
// scope only (no outer-scope search; that is ScopeStack's job).
func (s *Scope) Lookup(name string) (*Variable, bool) {
	for i := range s.vars {
		if s.vars[i].Name == name {
			return &s.vars[i], true
		}
	}
	return nil, false
}

// Vars returns this scope's bindings in declaration order (most
// recently declared first), for callers that need to enumerate them.
func (s *Scope) Vars() []Variable { return s.vars }

// Clone makes a shallow copy of s: each Variable entry is copied by
// value (Refs are copied, not the cells they point to), so mutating the
// clone's variable table never affects the original.
func (s *Scope) Clone() *Scope {
	cp := &Scope{vars: make([]Variable, len(s.vars))}
	copy(cp.vars, s.vars)
	return cp
}

// MarkRoots marks every Ref directly held by this scope's variables.
func (s *Scope) MarkRoots(mark func(Ref)) {
	for _, v := range s.vars {
		mark(v.Value)
	}
}

// ScopeStack is the chain of lexical scopes in effect at some point in
// execution: scopes are searched innermost-first, falling through to
// outer scopes and finally the process-wide builtins scope.
type ScopeStack struct {
	scopes   []*Scope
	builtins *Scope
}

// NewScopeStack builds a scope stack rooted at the given builtins
// scope, with one initial (global program) scope pushed.
func NewScopeStack(builtins *Scope) *ScopeStack {
	return &ScopeStack{scopes: []*Scope{NewScope()}, builtins: builtins}
}

// Push enters a new nested lexical scope (block, loop body, function
// body).
func (ss *ScopeStack) Push() { ss.scopes = append(ss.scopes, NewScope()) }

// PushScope enters an already-built scope (used to seed a callee's
// argument scope directly, rather than pushing empty and declaring
// into it after the fact).
func (ss *ScopeStack) PushScope(s *Scope) { ss.scopes = append(ss.scopes, s) }

// Pop leaves the innermost scope.
func (ss *ScopeStack) Pop() {
	if len(ss.scopes) > 0 {
		ss.scopes = ss.scopes[:len(ss.scopes)-1]
	}
}

// Current returns the innermost scope, into which Declare writes.
func (ss *ScopeStack) Current() *Scope { return ss.scopes[len(ss.scopes)-1] }

// Declare binds name in the innermost scope.
func (ss *ScopeStack) Declare(name string, ref Ref, mut Mutability) error {
	return ss.Current().Declare(name, ref, mut)
}

// Lookup searches innermost-to-outermost, then the builtins scope.
func (ss *ScopeStack) Lookup(name string) (*Variable, bool) {
	for i := len(ss.scopes) - 1; i >= 0; i-- {
		if v, ok := ss.scopes[i].Lookup(name); ok {
			return v, true
		}
	}
	if ss.builtins != nil {
		if v, ok := ss.builtins.Lookup(name); ok {
			return v, true
		}
	}
	return nil, false
}

// Assign rebinds an existing variable's Ref (for `target = expr`). It
// is a NameError for the name to be missing, and a NameError for it to
// be declared Immutable.
func (ss *ScopeStack) Assign(name string, ref Ref) error {
	v, ok := ss.Lookup(name)
	if !ok {
		return l3errors.Namef("undefined variable %q", name)
	}
	if v.Mut != Mutable {
		return l3errors.Namef("cannot assign to immutable variable %q", name)
	}
	v.Value = ref
	return nil
}

// Snapshot captures the current scope chain (without the builtins
// scope) for closure capture: the returned slice, stored in a Function's
// Captures, shares the same underlying *Scope pointers as the defining site, so
// later mutation of a captured variable through either the closure or
// the enclosing code is visible to both.
func (ss *ScopeStack) Snapshot() []*Scope {
	cp := make([]*Scope, len(ss.scopes))
	copy(cp, ss.scopes)
	return cp
}

// Extend builds a fresh ScopeStack that chains the given captured
// scopes (outermost to innermost) in front of a new innermost scope,
// used when entering a closure's body.
func Extend(builtins *Scope, captured []*Scope) *ScopeStack {
	ss := &ScopeStack{builtins: builtins}
	ss.scopes = append(ss.scopes, captured...)
	ss.scopes = append(ss.scopes, NewScope())
	return ss
}

// MarkRoots marks every Ref reachable from every live lexical scope
// (not the builtins scope: builtin values are process-lifetime
// constants installed once and never swept).
func (ss *ScopeStack) MarkRoots(mark func(Ref)) {
	for _, s := range ss.scopes {
		s.MarkRoots(mark)
	}
}
