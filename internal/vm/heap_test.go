package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rootSet is a minimal Root implementation for tests: it marks exactly
// the Refs it was built with.
type rootSet struct{ refs []Ref }

func (r rootSet) MarkRoots(mark func(Ref)) {
	for _, ref := range r.refs {
		mark(ref)
	}
}

func TestSweepReclaimsUnreachableCells(t *testing.T) {
	h := NewHeap(0)
	kept := h.Alloc(Int{Val: 1})
	_ = h.Alloc(Int{Val: 2}) // unreachable, should be swept

	require.Equal(t, 2, h.Len())
	swept := h.Sweep(rootSet{refs: []Ref{kept}})
	assert.Equal(t, 1, swept)
	assert.Equal(t, 1, h.Len())
	assert.Equal(t, Int{Val: 1}, kept.Get())
}

func TestSweepFollowsVectorAndFunctionChildren(t *testing.T) {
	h := NewHeap(0)
	inner := h.Alloc(Int{Val: 42})
	vec := h.Alloc(Vector{Elems: []Ref{inner}})

	scope := NewScope()
	require.NoError(t, scope.Declare("captured", inner, Immutable))
	fn := h.Alloc(FunctionValue{Fn: &Function{Captures: []*Scope{scope}}})

	swept := h.Sweep(rootSet{refs: []Ref{vec, fn}})
	assert.Equal(t, 0, swept, "inner is reachable via both the vector and the closure capture")
	assert.Equal(t, 3, h.Len())
}

func TestSweepHandlesCycles(t *testing.T) {
	h := NewHeap(0)
	a := h.Alloc(Vector{})
	b := h.Alloc(Vector{Elems: []Ref{a}})
	a.Set(Vector{Elems: []Ref{b}})

	swept := h.Sweep(rootSet{refs: []Ref{a}})
	assert.Equal(t, 0, swept)
	assert.Equal(t, 2, h.Len())
}

func TestSingletonsNeverSwept(t *testing.T) {
	h := NewHeap(0)
	nilRef, trueRef, falseRef := h.NilRef(), h.TrueRef(), h.FalseRef()
	h.Sweep(rootSet{})
	assert.Equal(t, Nil{}, nilRef.Get())
	assert.Equal(t, Bool{Val: true}, trueRef.Get())
	assert.Equal(t, Bool{Val: false}, falseRef.Get())
}
