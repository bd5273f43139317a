package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEnv implements Env by summing the bound argument Refs in
// declaration order, just enough to exercise Apply's curry/call split
// without needing the full interpreter.
type fakeEnv struct{ calls int }

func (f *fakeEnv) CallBody(fn *Function, args []Ref) (Ref, error) {
	f.calls++
	var total int64
	for _, a := range args {
		total += a.Get().(Int).Val
	}
	return Ref{cell: &Cell{value: Int{Val: total}}}, nil
}

func newAdder3() *Function {
	return &Function{Name: "add3", Params: []string{"a", "b", "c"}}
}

func TestApplyExactArityCallsBody(t *testing.T) {
	env := &fakeEnv{}
	f := newAdder3()
	args := []Ref{{cell: &Cell{value: Int{1}}}, {cell: &Cell{value: Int{2}}}, {cell: &Cell{value: Int{3}}}}
	result, err := Apply(env, f, args)
	require.NoError(t, err)
	assert.Equal(t, Int{Val: 6}, result.Get())
	assert.Equal(t, 1, env.calls)
}

func TestApplyUnderArityCurries(t *testing.T) {
	env := &fakeEnv{}
	f := newAdder3()
	partial, err := Apply(env, f, []Ref{{cell: &Cell{value: Int{1}}}})
	require.NoError(t, err)
	assert.Equal(t, 0, env.calls, "partial application must not invoke the body")

	fv := partial.Get().(FunctionValue)
	assert.Equal(t, 2, fv.Fn.Arity())

	full, err := Apply(env, fv.Fn, []Ref{{cell: &Cell{value: Int{2}}}, {cell: &Cell{value: Int{3}}}})
	require.NoError(t, err)
	assert.Equal(t, Int{Val: 6}, full.Get())
}

func TestCurryDoesNotAliasOriginal(t *testing.T) {
	env := &fakeEnv{}
	f := newAdder3()
	base, err := Apply(env, f, []Ref{{cell: &Cell{value: Int{1}}}})
	require.NoError(t, err)
	baseFn := base.Get().(FunctionValue).Fn

	// Re-applying the same partial twice with different second args must
	// not leak state between the two resulting functions.
	p1, err := Apply(env, baseFn, []Ref{{cell: &Cell{value: Int{10}}}})
	require.NoError(t, err)
	p2, err := Apply(env, baseFn, []Ref{{cell: &Cell{value: Int{20}}}})
	require.NoError(t, err)

	r1, err := Apply(env, p1.Get().(FunctionValue).Fn, []Ref{{cell: &Cell{value: Int{100}}}})
	require.NoError(t, err)
	r2, err := Apply(env, p2.Get().(FunctionValue).Fn, []Ref{{cell: &Cell{value: Int{200}}}})
	require.NoError(t, err)

	assert.Equal(t, Int{Val: 111}, r1.Get())
	assert.Equal(t, Int{Val: 221}, r2.Get())
}

func TestApplyOverArityIsError(t *testing.T) {
	env := &fakeEnv{}
	f := newAdder3()
	args := make([]Ref, 4)
	for i := range args {
		args[i] = Ref{cell: &Cell{value: Int{int64(i)}}}
	}
	_, err := Apply(env, f, args)
	assert.Error(t, err)
}

func TestBuiltinBypassesCurrying(t *testing.T) {
	called := false
	f := &Function{Name: "native", Native: func(env Env, args []Ref) (Ref, error) {
		called = true
		return Ref{}, nil
	}}
	_, err := Apply(&fakeEnv{}, f, nil)
	require.NoError(t, err)
	assert.True(t, called)
}
