package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddSameTypeOnly(t *testing.T) {
	sum, err := Add(Int{Val: 2}, Int{Val: 3})
	require.NoError(t, err)
	assert.Equal(t, Int{Val: 5}, sum)

	_, err = Add(Int{Val: 2}, Float{Val: 3})
	assert.Error(t, err, "mixed Int/Float arithmetic must be an UnsupportedOperation")
}

func TestAddStringConcat(t *testing.T) {
	out, err := Add(String{Val: "foo"}, String{Val: "bar"})
	require.NoError(t, err)
	assert.Equal(t, String{Val: "foobar"}, out)
}

func TestMulContainerRepetition(t *testing.T) {
	out, err := Mul(String{Val: "ab"}, Int{Val: 3})
	require.NoError(t, err)
	assert.Equal(t, String{Val: "ababab"}, out)

	out, err = Mul(Int{Val: 2}, String{Val: "x"})
	require.NoError(t, err)
	assert.Equal(t, String{Val: "xx"}, out)

	_, err = Mul(String{Val: "x"}, Int{Val: 0})
	assert.Error(t, err)
}

func TestIsTruthy(t *testing.T) {
	cases := []struct {
		v    Value
		want bool
	}{
		{Nil{}, false},
		{Bool{Val: false}, false},
		{Int{Val: 0}, false},
		{Int{Val: 7}, true},
		{String{Val: ""}, false},
		{String{Val: "x"}, true},
		{Vector{}, false},
		{Vector{Elems: []Ref{{}}}, true},
	}
	for _, c := range cases {
		got, err := IsTruthy(c.v)
		require.NoError(t, err)
		assert.Equal(t, c.want, got)
	}

	_, err := IsTruthy(Float{Val: 1})
	assert.Error(t, err, "float truthiness must be a TypeError")

	_, err = IsTruthy(FunctionValue{})
	assert.Error(t, err, "a non-nil function cannot be tested for truthiness")
}

func TestCompareMixedTypesUnordered(t *testing.T) {
	ord := Compare(Int{Val: 1}, String{Val: "1"})
	assert.Equal(t, Unordered, ord)
	assert.False(t, EvalOp("==", ord))
	assert.True(t, EvalOp("!=", ord))
}

func TestSliceNegativeIndices(t *testing.T) {
	heap := NewHeap(0)
	elems := []Ref{heap.Alloc(Int{1}), heap.Alloc(Int{2}), heap.Alloc(Int{3}), heap.Alloc(Int{4})}
	vec := Vector{Elems: elems}

	start, end := int64(-2), int64(4)
	out, err := Slice(vec, &start, &end)
	require.NoError(t, err)
	got := out.(Vector)
	require.Len(t, got.Elems, 2)
	assert.Equal(t, Int{3}, got.Elems[0].Get())
	assert.Equal(t, Int{4}, got.Elems[1].Get())
}

func TestSliceStartGreaterThanEndIsError(t *testing.T) {
	s, e := int64(3), int64(1)
	_, err := Slice(String{Val: "hello"}, &s, &e)
	assert.Error(t, err)
}

func TestIndexOutOfBounds(t *testing.T) {
	_, err := Index(Vector{}, 0)
	assert.Error(t, err)
	_, err = Index(String{Val: "hi"}, -1)
	assert.Error(t, err)
}

func TestParseIntBase(t *testing.T) {
	n, err := ParseInt(String{Val: "ff"}, 16)
	require.NoError(t, err)
	assert.EqualValues(t, 255, n)

	n, err = ParseInt(Bool{Val: true}, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}
