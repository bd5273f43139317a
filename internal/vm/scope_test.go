package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopeDeclareRejectsDuplicateInSameScope(t *testing.T) {
	s := NewScope()
	require.NoError(t, s.Declare("x", Ref{cell: &Cell{value: Int{1}}}, Immutable))
	err := s.Declare("x", Ref{cell: &Cell{value: Int{2}}}, Immutable)
	require.Error(t, err)

	v, ok := s.Lookup("x")
	require.True(t, ok)
	assert.Equal(t, Int{Val: 1}, v.Value.Get())
}

func TestScopeStackFallsThroughToBuiltins(t *testing.T) {
	builtins := NewScope()
	require.NoError(t, builtins.Declare("pi", Ref{cell: &Cell{value: Float{3.14}}}, Immutable))
	ss := NewScopeStack(builtins)

	v, ok := ss.Lookup("pi")
	require.True(t, ok)
	assert.Equal(t, Float{Val: 3.14}, v.Value.Get())
}

func TestAssignRejectsImmutable(t *testing.T) {
	ss := NewScopeStack(nil)
	require.NoError(t, ss.Declare("x", Ref{cell: &Cell{value: Int{1}}}, Immutable))
	err := ss.Assign("x", Ref{cell: &Cell{value: Int{2}}})
	assert.Error(t, err)
}

func TestAssignRejectsUndefined(t *testing.T) {
	ss := NewScopeStack(nil)
	err := ss.Assign("nope", Ref{})
	assert.Error(t, err)
}

func TestAssignRebindsMutable(t *testing.T) {
	ss := NewScopeStack(nil)
	require.NoError(t, ss.Declare("x", Ref{cell: &Cell{value: Int{1}}}, Mutable))
	err := ss.Assign("x", Ref{cell: &Cell{value: Int{9}}})
	require.NoError(t, err)
	v, _ := ss.Lookup("x")
	assert.Equal(t, Int{Val: 9}, v.Value.Get())
}

func TestExtendChainsCapturedScopesBeforeFreshInnermost(t *testing.T) {
	builtins := NewScope()
	outer := NewScope()
	require.NoError(t, outer.Declare("shared", Ref{cell: &Cell{value: Int{7}}}, Mutable))

	ss := Extend(builtins, []*Scope{outer})
	require.NoError(t, ss.Declare("local", Ref{cell: &Cell{value: Int{1}}}, Immutable))

	v, ok := ss.Lookup("shared")
	require.True(t, ok)
	assert.Equal(t, Int{Val: 7}, v.Value.Get())

	// Mutating through the captured scope directly must be visible
	// through the extended stack too (capture by reference).
	outerVar, _ := outer.Lookup("shared")
	outerVar.Value.Set(Int{Val: 8})
	v, _ = ss.Lookup("shared")
	assert.Equal(t, Int{Val: 8}, v.Value.Get())
}
