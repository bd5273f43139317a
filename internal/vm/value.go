// Package vm holds the runtime data model: values, the managed heap and
// its mark-and-sweep collector, reference handles, scopes and the scope
// stack, the evaluation stack, and function objects. These types are
// mutually recursive (a Vector holds Refs, a Function captures a
// ScopeStack, a Scope holds Variables that are Refs), so they live in
// one Go package rather than being artificially split.
package vm

import (
	"strconv"

	l3errors "l3/internal/errors"
)

// ValueType names the dynamic type of a Value, as returned by TypeName.
type ValueType string

const (
	NilType      ValueType = "nil"
	BoolType     ValueType = "bool"
	IntType      ValueType = "int"
	FloatType    ValueType = "float"
	StringType   ValueType = "string"
	VectorType   ValueType = "vector"
	FunctionType ValueType = "function"
)

// Value is the tagged sum of Nil, Primitive (Bool/Int64/Float64),
// String, Vector, and Function. String and Vector are independent
// container variants alongside Primitive, not a Primitive case.
type Value interface {
	Type() ValueType
}

type Nil struct{}

func (Nil) Type() ValueType { return NilType }

type Bool struct{ Val bool }

func (Bool) Type() ValueType { return BoolType }

type Int struct{ Val int64 }

func (Int) Type() ValueType { return IntType }

type Float struct{ Val float64 }

func (Float) Type() ValueType { return FloatType }

type String struct{ Val string }

func (String) Type() ValueType { return StringType }

// Vector holds reference handles, not raw values, so two vectors may
// share elements and an element may outlive the vector that once held
// it.
type Vector struct{ Elems []Ref }

func (Vector) Type() ValueType { return VectorType }

// FunctionValue wraps a *Function so it can flow through Value-typed
// code (arguments, vector elements, variables) like anything else.
type FunctionValue struct{ Fn *Function }

func (FunctionValue) Type() ValueType { return FunctionType }

func isPrimitive(v Value) bool {
	switch v.(type) {
	case Bool, Int, Float:
		return true
	}
	return false
}

func isContainer(v Value) bool {
	switch v.(type) {
	case String, Vector:
		return true
	}
	return false
}

// TypeName renders the dynamic type name used in error messages and by
// the `type_name` family of operations.
func TypeName(v Value) string { return string(v.Type()) }

// IsTruthy reports truthiness: false/0/nil/empty-container are falsy;
// a non-nil function cannot be tested (it must be called), and a float
// cannot be tested either.
func IsTruthy(v Value) (bool, error) {
	switch vv := v.(type) {
	case Nil:
		return false, nil
	case Bool:
		return vv.Val, nil
	case Int:
		return vv.Val != 0, nil
	case Float:
		return false, l3errors.Typef("cannot convert a float to bool")
	case String:
		return len(vv.Val) != 0, nil
	case Vector:
		return len(vv.Elems) != 0, nil
	case FunctionValue:
		return false, l3errors.Typef("cannot convert a function to bool, did you mean to call it?")
	}
	return false, l3errors.Typef("cannot convert %s to bool", TypeName(v))
}

// Add implements `+`: same-type primitive arithmetic, same-type
// container concatenation (String+String, Vector+Vector).
func Add(a, b Value) (Value, error) {
	switch x := a.(type) {
	case Int:
		if y, ok := b.(Int); ok {
			return Int{x.Val + y.Val}, nil
		}
	case Float:
		if y, ok := b.(Float); ok {
			return Float{x.Val + y.Val}, nil
		}
	case String:
		if y, ok := b.(String); ok {
			return String{x.Val + y.Val}, nil
		}
	case Vector:
		if y, ok := b.(Vector); ok {
			out := make([]Ref, 0, len(x.Elems)+len(y.Elems))
			out = append(out, x.Elems...)
			out = append(out, y.Elems...)
			return Vector{out}, nil
		}
	}
	return nil, unsupported("add", a, b)
}

// AddAssign mutates a container's backing Value in place for `+=`,
// Primitive compound addition is not mutated in place;
// callers rebind the variable's Ref instead (see interp's compound
// assignment handling).
func AddAssign(a *Value, b Value) error {
	switch x := (*a).(type) {
	case String:
		y, ok := b.(String)
		if !ok {
			return unsupported("add", x, b)
		}
		*a = String{x.Val + y.Val}
		return nil
	case Vector:
		y, ok := b.(Vector)
		if !ok {
			return unsupported("add", x, b)
		}
		out := make([]Ref, 0, len(x.Elems)+len(y.Elems))
		out = append(out, x.Elems...)
		out = append(out, y.Elems...)
		*a = Vector{out}
		return nil
	}
	return unsupported("add", *a, b)
}

func Sub(a, b Value) (Value, error) {
	switch x := a.(type) {
	case Int:
		if y, ok := b.(Int); ok {
			return Int{x.Val - y.Val}, nil
		}
	case Float:
		if y, ok := b.(Float); ok {
			return Float{x.Val - y.Val}, nil
		}
	}
	return nil, unsupported("subtract", a, b)
}

func containerLen(v Value) int {
	switch x := v.(type) {
	case String:
		return len(x.Val)
	case Vector:
		return len(x.Elems)
	}
	return 0
}

func repeatContainer(v Value, count int64) (Value, error) {
	if count <= 0 {
		return nil, l3errors.Unsupportedf("container can be multiplied only by a positive integer")
	}
	switch x := v.(type) {
	case String:
		out := make([]byte, 0, len(x.Val)*int(count))
		for i := int64(0); i < count; i++ {
			out = append(out, x.Val...)
		}
		return String{string(out)}, nil
	case Vector:
		out := make([]Ref, 0, len(x.Elems)*int(count))
		for i := int64(0); i < count; i++ {
			out = append(out, x.Elems...)
		}
		return Vector{out}, nil
	}
	return nil, l3errors.Unsupportedf("cannot repeat a %s value", TypeName(v))
}

// Mul implements `*`: same-type primitive arithmetic, and
// container × Int64 / Int64 × container repetition.
func Mul(a, b Value) (Value, error) {
	switch x := a.(type) {
	case Int:
		if y, ok := b.(Int); ok {
			return Int{x.Val * y.Val}, nil
		}
		if isContainer(b) {
			return repeatContainer(b, x.Val)
		}
	case Float:
		if y, ok := b.(Float); ok {
			return Float{x.Val * y.Val}, nil
		}
	default:
		if isContainer(a) {
			if y, ok := b.(Int); ok {
				return repeatContainer(a, y.Val)
			}
		}
	}
	return nil, unsupported("multiply", a, b)
}

func MulAssign(a *Value, b Value) error {
	switch x := (*a).(type) {
	case String, Vector:
		count, ok := b.(Int)
		if !ok {
			return l3errors.Unsupportedf("container multiplication requires an integer")
		}
		result, err := repeatContainer(x, count.Val)
		if err != nil {
			return err
		}
		*a = result
		return nil
	}
	v, err := Mul(*a, b)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

func Div(a, b Value) (Value, error) {
	switch x := a.(type) {
	case Int:
		if y, ok := b.(Int); ok {
			if y.Val == 0 {
				return nil, l3errors.Unsupportedf("division by zero")
			}
			return Int{x.Val / y.Val}, nil
		}
	case Float:
		if y, ok := b.(Float); ok {
			if y.Val == 0 {
				return nil, l3errors.Unsupportedf("division by zero")
			}
			return Float{x.Val / y.Val}, nil
		}
	}
	return nil, unsupported("divide", a, b)
}

func Mod(a, b Value) (Value, error) {
	switch x := a.(type) {
	case Int:
		if y, ok := b.(Int); ok {
			if y.Val == 0 {
				return nil, l3errors.Unsupportedf("division by zero")
			}
			return Int{x.Val % y.Val}, nil
		}
	case Float:
		if y, ok := b.(Float); ok {
			if y.Val == 0 {
				return nil, l3errors.Unsupportedf("division by zero")
			}
			return Float{mathMod(x.Val, y.Val)}, nil
		}
	}
	return nil, unsupported("modulo", a, b)
}

func mathMod(a, b float64) float64 {
	m := a - float64(int64(a/b))*b
	return m
}

// Negative implements unary `-`.
func Negative(v Value) (Value, error) {
	switch x := v.(type) {
	case Int:
		return Int{-x.Val}, nil
	case Float:
		return Float{-x.Val}, nil
	}
	return nil, l3errors.Unsupportedf("cannot negate a %s value", TypeName(v))
}

// Positive implements unary `+`: identity on numerics, error otherwise.
func Positive(v Value) (Value, error) {
	switch v.(type) {
	case Int, Float:
		return v, nil
	}
	return nil, l3errors.Unsupportedf("cannot apply unary plus to a %s value", TypeName(v))
}

// Not implements logical `!`: negation of truthiness.
func Not(v Value) (Value, error) {
	truthy, err := IsTruthy(v)
	if err != nil {
		return nil, err
	}
	return Bool{!truthy}, nil
}

// Ordering is the result of Compare: values compare equal, ordered, or
// unordered (mismatched/incomparable types "mixed types
// compare unordered").
type Ordering int

const (
	Unordered Ordering = iota
	Less
	Equal
	Greater
)

// Compare implements ==, !=, <, <=, >, >= by first computing a same-type
// ordering (or Unordered for mismatched types) and having the caller
// interpret it per the specific operator.
func Compare(a, b Value) Ordering {
	switch x := a.(type) {
	case Bool:
		if y, ok := b.(Bool); ok {
			return boolOrder(x.Val, y.Val)
		}
	case Int:
		if y, ok := b.(Int); ok {
			return numOrder(float64(x.Val), float64(y.Val))
		}
	case Float:
		if y, ok := b.(Float); ok {
			return numOrder(x.Val, y.Val)
		}
	case String:
		if y, ok := b.(String); ok {
			return strOrder(x.Val, y.Val)
		}
	case Nil:
		if _, ok := b.(Nil); ok {
			return Equal
		}
	}
	return Unordered
}

func boolOrder(a, b bool) Ordering {
	if a == b {
		return Equal
	}
	if !a && b {
		return Less
	}
	return Greater
}

func numOrder(a, b float64) Ordering {
	switch {
	case a < b:
		return Less
	case a > b:
		return Greater
	default:
		return Equal
	}
}

func strOrder(a, b string) Ordering {
	switch {
	case a < b:
		return Less
	case a > b:
		return Greater
	default:
		return Equal
	}
}

// EvalOp maps a chained-comparison operator and an Ordering to its
// boolean result. Equality/inequality treat Unordered as simply unequal
// rather than erroring.
func EvalOp(op string, ord Ordering) bool {
	switch op {
	case "==":
		return ord == Equal
	case "!=":
		return ord != Equal
	case "<":
		return ord == Less
	case "<=":
		return ord == Less || ord == Equal
	case ">":
		return ord == Greater
	case ">=":
		return ord == Greater || ord == Equal
	}
	return false
}

// Index implements `index(i)`: returns a value BY COPY (a one-character
// string for strings, the stored element's value for vectors).
func Index(base Value, i int64) (Value, error) {
	if i < 0 {
		return nil, l3errors.Valuef("index out of bounds")
	}
	switch x := base.(type) {
	case Vector:
		if i >= int64(len(x.Elems)) {
			return nil, l3errors.Valuef("index out of bounds")
		}
		return x.Elems[i].Get(), nil
	case String:
		if i >= int64(len(x.Val)) {
			return nil, l3errors.Valuef("index out of bounds")
		}
		return String{string(x.Val[i])}, nil
	}
	return nil, l3errors.Typef("cannot index a %s value", TypeName(base))
}

// IndexMut returns a reference to the stored element Ref of a vector,
// so that the caller can rebind it (write-through index assignment).
// Strings are not mutably indexable.
func IndexMut(base Value, i int64) (*Ref, error) {
	if i < 0 {
		return nil, l3errors.Valuef("index out of bounds")
	}
	vec, ok := base.(Vector)
	if !ok {
		return nil, l3errors.Typef("cannot mutably index a %s value", TypeName(base))
	}
	if i >= int64(len(vec.Elems)) {
		return nil, l3errors.Valuef("index out of bounds")
	}
	return &vec.Elems[i], nil
}

// Slice implements §4.2 slicing: optional start/end, negative values
// wrap from the end, start > end or out-of-range bounds are errors.
func Slice(base Value, start, end *int64) (Value, error) {
	switch x := base.(type) {
	case Vector:
		s, e, err := sliceBounds(len(x.Elems), start, end)
		if err != nil {
			return nil, err
		}
		cp := make([]Ref, e-s)
		copy(cp, x.Elems[s:e])
		return Vector{cp}, nil
	case String:
		s, e, err := sliceBounds(len(x.Val), start, end)
		if err != nil {
			return nil, err
		}
		return String{x.Val[s:e]}, nil
	}
	return nil, l3errors.Typef("cannot slice a %s value", TypeName(base))
}

// sliceBounds resolves (possibly nil, possibly negative) start/end into
// concrete [0,size] bounds, or an error.
func sliceBounds(size int, startP, endP *int64) (start, end int, err error) {
	s := int64(0)
	if startP != nil {
		s = *startP
	}
	e := int64(size)
	if endP != nil {
		e = *endP
	}

	if s < 0 {
		s += int64(size)
	}
	if e < 0 {
		e += int64(size)
	}
	if s > e {
		return 0, 0, l3errors.Valuef("start index must be less than end index")
	}
	if e > int64(size) {
		return 0, 0, l3errors.Valuef("end index out of bounds")
	}
	if s > int64(size) || s < 0 {
		return 0, 0, l3errors.Valuef("start index out of bounds")
	}
	return int(s), int(e), nil
}

func unsupported(op string, a, b Value) error {
	return l3errors.Unsupportedf("%s between %s and %s not supported", op, TypeName(a), TypeName(b))
}

// ParseInt implements the `int(x, base?)` coercion.
func ParseInt(v Value, base int) (int64, error) {
	switch x := v.(type) {
	case Int:
		return x.Val, nil
	case Float:
		return int64(x.Val), nil
	case Bool:
		if x.Val {
			return 1, nil
		}
		return 0, nil
	case String:
		n, err := strconv.ParseInt(x.Val, base, 64)
		if err != nil {
			return 0, l3errors.Runtimef("invalid integer literal %q in base %d", x.Val, base)
		}
		return n, nil
	}
	return 0, l3errors.Runtimef("int() takes only primitive values or strings")
}
