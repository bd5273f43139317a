package vm

import (
	"l3/internal/ast"
	l3errors "l3/internal/errors"
)

// Env is the thin seam between the pure data/currying logic in this
// package and the statement executor that actually runs a function
// body. package interp implements Env; package vm never imports interp
// back, avoiding the import cycle that a single combined package would
// otherwise need to break (Function needs to call back into the
// executor, but the executor needs vm.Value/vm.Scope).
type Env interface {
	// CallBody runs fn's body with the given fully-applied argument
	// Refs bound in a fresh frame extending fn's captured scopes, and
	// returns the function's result Ref.
	CallBody(fn *Function, args []Ref) (Ref, error)
}

// BuiltinFunc is the Go implementation of one builtin. It receives the
// already-evaluated argument Refs and the calling Env so it can
// allocate fresh heap cells for its result.
type BuiltinFunc func(env Env, args []Ref) (Ref, error)

// Function is the single representation for both user-defined and
// builtin callables. Exactly one of
// Body/Native is set.
//
// Captures holds the lexical scope chain in effect where the function
// was declared (nil for builtins and for the top-level program, which
// captures nothing beyond the global scope it runs in already).
// Curried holds arguments already bound by a previous partial
// application, positionally aligned with Params[0:len(Curried)] — a
// plain slice rather than a Scope, since curried arguments are
// positional and never participate in name-shadowing lookup. Apply
// extends a copy of it rather than mutating it in place, so a
// partially-applied function value can be re-applied any number of
// times without aliasing state between calls.
type Function struct {
	Name     string
	Params   []string
	Body     *ast.FunctionBody
	Native   BuiltinFunc
	Captures []*Scope
	Curried  []Ref
}

// Arity is the number of parameters still required before Function is
// fully applied.
func (f *Function) Arity() int { return len(f.Params) - len(f.Curried) }

// IsBuiltin reports whether this Function wraps a Go implementation
// rather than an ast.FunctionBody.
func (f *Function) IsBuiltin() bool { return f.Native != nil }

// Apply implements the call/curry protocol: if args supplies fewer
// than Arity() remaining parameters, Apply returns a new
// partially-applied Function (cloning the existing curried arguments
// first). If args exactly fills the remaining parameters (or more,
// which is an arity error), Apply hands off to env to actually run the
// body (or the native implementation).
func Apply(env Env, f *Function, args []Ref) (Ref, error) {
	if f.IsBuiltin() {
		return f.Native(env, args)
	}

	remaining := f.Arity()
	if len(args) > remaining {
		return Ref{}, arityError(f, len(args))
	}
	if len(args) < remaining {
		return curry(f, args), nil
	}

	full := make([]Ref, 0, len(f.Params))
	full = append(full, f.Curried...)
	full = append(full, args...)
	return env.CallBody(f, full)
}

// curry returns a new Function identical to f but with args appended to
// a copy of f's curried-argument slice (never the slice itself, so the
// original partially-applied value is unaffected).
func curry(f *Function, args []Ref) Ref {
	curried := make([]Ref, 0, len(f.Curried)+len(args))
	curried = append(curried, f.Curried...)
	curried = append(curried, args...)
	nf := &Function{
		Name:     f.Name,
		Params:   f.Params,
		Body:     f.Body,
		Native:   f.Native,
		Captures: f.Captures,
		Curried:  curried,
	}
	return Ref{cell: &Cell{value: FunctionValue{Fn: nf}}}
}

// markCaptures marks every Ref reachable from this function's closure
// (captured scopes) and curried arguments, used by Heap.Sweep.
func (f *Function) markCaptures(mark func(Ref)) {
	for _, s := range f.Captures {
		s.MarkRoots(mark)
	}
	for _, r := range f.Curried {
		mark(r)
	}
}

func arityError(f *Function, got int) error {
	name := f.Name
	if name == "" {
		name = "<anonymous>"
	}
	return l3errors.Valuef("function %q takes %d argument(s), got %d", name, len(f.Params), got)
}
