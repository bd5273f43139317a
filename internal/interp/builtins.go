package interp

import (
	"bufio"
	"fmt"
	"math/rand"
	"strings"
	"time"

	l3errors "l3/internal/errors"
	"l3/internal/vm"
)

// NewBuiltinsScope builds the process-wide builtins scope: every entry
// of the table below is wrapped as a first-class vm.FunctionValue
// reachable by ordinary variable lookup, so builtins can be passed to
// `map`/`filter`/`count` like any user function.
func NewBuiltinsScope() *vm.Scope {
	s := vm.NewScope()
	for name, fn := range coreBuiltins() {
		install(s, name, fn)
	}
	for name, fn := range domainBuiltins() {
		install(s, name, fn)
	}
	return s
}

func install(s *vm.Scope, name string, fn vm.BuiltinFunc) {
	f := &vm.Function{Name: name, Native: fn}
	// Builtins are process-lifetime constants, not heap-tracked
	// allocations; they live for as long as the interpreter does and are
	// never subject to a sweep (they aren't reachable from Heap.Alloc).
	if err := s.Declare(name, vm.NewConstRef(vm.FunctionValue{Fn: f}), vm.Immutable); err != nil {
		panic("interp: duplicate builtin name " + name)
	}
}

func coreBuiltins() map[string]vm.BuiltinFunc {
	return map[string]vm.BuiltinFunc{
		"print":        biPrint,
		"println":      biPrintln,
		"__trigger_gc": biTriggerGC,
		"assert":       biAssert,
		"error":        biError,
		"input":        biInput,
		"int":          biInt,
		"str":          biStr,
		"head":         biHead,
		"tail":         biTail,
		"len":          biLen,
		"drop":         biDrop,
		"take":         biTake,
		"slice":        biSlice,
		"random":       biRandom,
		"sleep":        biSleep,
		"map":          biMap,
		"filter":       biFilter,
		"sum":          biSum,
		"all":          biAll,
		"any":          biAny,
		"count":        biCount,
		"id":           biIdentity,
		"range":        biRange,
	}
}

func asInterp(env vm.Env) *Interp {
	ip, ok := env.(*Interp)
	if !ok {
		panic("interp: builtin called with a non-*Interp Env")
	}
	return ip
}

func biPrint(env vm.Env, args []vm.Ref) (vm.Ref, error) {
	ip := asInterp(env)
	fmt.Fprint(ip.Stdout, formatArgs(args))
	return ip.Heap.NilRef(), nil
}

func biPrintln(env vm.Env, args []vm.Ref) (vm.Ref, error) {
	ip := asInterp(env)
	fmt.Fprint(ip.Stdout, formatArgs(args))
	fmt.Fprintln(ip.Stdout)
	return ip.Heap.NilRef(), nil
}

func biTriggerGC(env vm.Env, args []vm.Ref) (vm.Ref, error) {
	ip := asInterp(env)
	if len(args) > 0 {
		return vm.Ref{}, l3errors.Runtimef("__trigger_gc() takes no arguments")
	}
	ip.Heap.Sweep(ip.Scopes, ip.Eval)
	return ip.Heap.NilRef(), nil
}

func biAssert(env vm.Env, args []vm.Ref) (vm.Ref, error) {
	ip := asInterp(env)
	if len(args) == 0 {
		return vm.Ref{}, l3errors.Runtimef("assert() takes at least one argument")
	}
	truthy, err := vm.IsTruthy(args[0].Get())
	if err != nil {
		return vm.Ref{}, err
	}
	if truthy {
		return ip.Heap.NilRef(), nil
	}
	return vm.Ref{}, l3errors.Runtimef("%s", formatArgs(args[1:]))
}

func biError(env vm.Env, args []vm.Ref) (vm.Ref, error) {
	return vm.Ref{}, l3errors.Runtimef("%s", formatArgs(args))
}

func biInput(env vm.Env, args []vm.Ref) (vm.Ref, error) {
	ip := asInterp(env)
	if len(args) > 0 {
		fmt.Fprint(ip.Stdout, formatArgs(args))
	}
	line, err := readLine(ip.Stdin)
	if err != nil {
		return vm.Ref{}, l3errors.Wrap(err, "input() failed to read a line")
	}
	return ip.Heap.Alloc(vm.String{Val: line}), nil
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	return strings.TrimRight(line, "\r\n"), trimEOF(err)
}

func trimEOF(err error) error {
	if err != nil && err.Error() == "EOF" {
		return nil
	}
	return err
}

func biInt(env vm.Env, args []vm.Ref) (vm.Ref, error) {
	ip := asInterp(env)
	if len(args) == 0 {
		return vm.Ref{}, l3errors.Runtimef("int() takes at least one argument")
	}
	if len(args) > 2 {
		return vm.Ref{}, l3errors.Runtimef("int() takes at most two arguments")
	}
	base := 10
	if len(args) == 2 {
		b, ok := args[1].Get().(vm.Int)
		if !ok {
			return vm.Ref{}, l3errors.Runtimef("int() takes only an integer as a base argument")
		}
		if b.Val < 2 || b.Val > 36 {
			return vm.Ref{}, l3errors.Runtimef("int() takes a base between 2 and 36")
		}
		base = int(b.Val)
	}
	n, err := vm.ParseInt(args[0].Get(), base)
	if err != nil {
		return vm.Ref{}, err
	}
	return ip.Heap.Alloc(vm.Int{Val: n}), nil
}

func biStr(env vm.Env, args []vm.Ref) (vm.Ref, error) {
	ip := asInterp(env)
	if len(args) != 1 {
		return vm.Ref{}, l3errors.Runtimef("str() takes one argument")
	}
	return ip.Heap.Alloc(vm.String{Val: FormatValue(args[0].Get())}), nil
}

// biHead returns [first, rest] for a vector or string.
func biHead(env vm.Env, args []vm.Ref) (vm.Ref, error) {
	ip := asInterp(env)
	if len(args) == 0 {
		return vm.Ref{}, l3errors.Runtimef("head() takes at least one argument")
	}
	switch v := args[0].Get().(type) {
	case vm.Vector:
		if len(v.Elems) == 0 {
			return vm.Ref{}, l3errors.Runtimef("head() takes a non-empty vector")
		}
		head := v.Elems[0]
		rest := make([]vm.Ref, len(v.Elems)-1)
		copy(rest, v.Elems[1:])
		restRef := ip.Heap.Alloc(vm.Vector{Elems: rest})
		return ip.Heap.Alloc(vm.Vector{Elems: []vm.Ref{head, restRef}}), nil
	case vm.String:
		if len(v.Val) == 0 {
			return vm.Ref{}, l3errors.Runtimef("head() takes a non-empty string")
		}
		headRef := ip.Heap.Alloc(vm.String{Val: string(v.Val[0])})
		restRef := ip.Heap.Alloc(vm.String{Val: v.Val[1:]})
		return ip.Heap.Alloc(vm.Vector{Elems: []vm.Ref{headRef, restRef}}), nil
	}
	return vm.Ref{}, l3errors.Typef("head() takes only vector and string values")
}

// biTail returns [init, last] for a vector or string.
func biTail(env vm.Env, args []vm.Ref) (vm.Ref, error) {
	ip := asInterp(env)
	if len(args) == 0 {
		return vm.Ref{}, l3errors.Runtimef("tail() takes at least one argument")
	}
	switch v := args[0].Get().(type) {
	case vm.Vector:
		if len(v.Elems) == 0 {
			return vm.Ref{}, l3errors.Runtimef("tail() takes a non-empty vector")
		}
		last := v.Elems[len(v.Elems)-1]
		init := make([]vm.Ref, len(v.Elems)-1)
		copy(init, v.Elems[:len(v.Elems)-1])
		initRef := ip.Heap.Alloc(vm.Vector{Elems: init})
		return ip.Heap.Alloc(vm.Vector{Elems: []vm.Ref{initRef, last}}), nil
	case vm.String:
		if len(v.Val) == 0 {
			return vm.Ref{}, l3errors.Runtimef("tail() takes a non-empty string")
		}
		lastRef := ip.Heap.Alloc(vm.String{Val: string(v.Val[len(v.Val)-1])})
		initRef := ip.Heap.Alloc(vm.String{Val: v.Val[:len(v.Val)-1]})
		return ip.Heap.Alloc(vm.Vector{Elems: []vm.Ref{initRef, lastRef}}), nil
	}
	return vm.Ref{}, l3errors.Typef("tail() takes only vector and string values")
}

func biLen(env vm.Env, args []vm.Ref) (vm.Ref, error) {
	ip := asInterp(env)
	if len(args) != 1 {
		return vm.Ref{}, l3errors.Runtimef("len() takes exactly one argument")
	}
	switch v := args[0].Get().(type) {
	case vm.Vector:
		return ip.Heap.Alloc(vm.Int{Val: int64(len(v.Elems))}), nil
	case vm.String:
		return ip.Heap.Alloc(vm.Int{Val: int64(len(v.Val))}), nil
	}
	return vm.Ref{}, l3errors.Typef("len() does not support %s values", vm.TypeName(args[0].Get()))
}

func asIndex(r vm.Ref, who string) (int64, error) {
	i, ok := r.Get().(vm.Int)
	if !ok {
		return 0, l3errors.Typef("%s() takes only an integer as an index argument", who)
	}
	return i.Val, nil
}

func biDrop(env vm.Env, args []vm.Ref) (vm.Ref, error) {
	ip := asInterp(env)
	if len(args) != 2 {
		return vm.Ref{}, l3errors.Runtimef("drop() takes two arguments")
	}
	idx, err := asIndex(args[1], "drop")
	if err != nil {
		return vm.Ref{}, err
	}
	v, err := vm.Slice(args[0].Get(), &idx, nil)
	if err != nil {
		return vm.Ref{}, err
	}
	return ip.Heap.Alloc(v), nil
}

func biTake(env vm.Env, args []vm.Ref) (vm.Ref, error) {
	ip := asInterp(env)
	if len(args) != 2 {
		return vm.Ref{}, l3errors.Runtimef("take() takes two arguments")
	}
	idx, err := asIndex(args[1], "take")
	if err != nil {
		return vm.Ref{}, err
	}
	v, err := vm.Slice(args[0].Get(), nil, &idx)
	if err != nil {
		return vm.Ref{}, err
	}
	return ip.Heap.Alloc(v), nil
}

func biSlice(env vm.Env, args []vm.Ref) (vm.Ref, error) {
	ip := asInterp(env)
	if len(args) != 3 {
		return vm.Ref{}, l3errors.Runtimef("slice() takes three arguments")
	}
	start, ok1 := args[1].Get().(vm.Int)
	end, ok2 := args[2].Get().(vm.Int)
	if !ok1 || !ok2 {
		return vm.Ref{}, l3errors.Typef("slice() takes only integers as index arguments")
	}
	v, err := vm.Slice(args[0].Get(), &start.Val, &end.Val)
	if err != nil {
		return vm.Ref{}, err
	}
	return ip.Heap.Alloc(v), nil
}

func biRandom(env vm.Env, args []vm.Ref) (vm.Ref, error) {
	ip := asInterp(env)
	if len(args) == 0 || len(args) > 2 {
		return vm.Ref{}, l3errors.Runtimef("random() takes one or two arguments")
	}
	var lo, hi int64
	if len(args) == 2 {
		a, ok1 := args[0].Get().(vm.Int)
		b, ok2 := args[1].Get().(vm.Int)
		if !ok1 || !ok2 {
			return vm.Ref{}, l3errors.Typef("random() takes only integers as arguments")
		}
		lo, hi = a.Val, b.Val
	} else {
		b, ok := args[0].Get().(vm.Int)
		if !ok {
			return vm.Ref{}, l3errors.Typef("random() takes only integers as arguments")
		}
		lo, hi = 0, b.Val
	}
	if hi < lo {
		lo, hi = hi, lo
	}
	n := lo + rand.Int63n(hi-lo+1)
	return ip.Heap.Alloc(vm.Int{Val: n}), nil
}

func biSleep(env vm.Env, args []vm.Ref) (vm.Ref, error) {
	ip := asInterp(env)
	if len(args) != 1 {
		return vm.Ref{}, l3errors.Runtimef("sleep() takes one argument")
	}
	d, ok := args[0].Get().(vm.Int)
	if !ok {
		return vm.Ref{}, l3errors.Typef("sleep() takes only an integer as a duration argument")
	}
	time.Sleep(time.Duration(d.Val) * time.Millisecond)
	return ip.Heap.NilRef(), nil
}

func asFunction(r vm.Ref) (*vm.Function, bool) {
	f, ok := r.Get().(vm.FunctionValue)
	if !ok {
		return nil, false
	}
	return f.Fn, true
}

func biMap(env vm.Env, args []vm.Ref) (vm.Ref, error) {
	ip := asInterp(env)
	if len(args) != 2 {
		return vm.Ref{}, l3errors.Typef("map() takes exactly 2 arguments")
	}
	fn, ok := asFunction(args[0])
	if !ok {
		return vm.Ref{}, l3errors.Typef("map() first argument must be a function")
	}
	list, ok := args[1].Get().(vm.Vector)
	if !ok {
		return vm.Ref{}, l3errors.Typef("map() second argument must be a vector")
	}
	out := make([]vm.Ref, len(list.Elems))
	for i, item := range list.Elems {
		r, err := vm.Apply(ip, fn, []vm.Ref{item})
		if err != nil {
			return vm.Ref{}, err
		}
		out[i] = r
	}
	return ip.Heap.Alloc(vm.Vector{Elems: out}), nil
}

func biFilter(env vm.Env, args []vm.Ref) (vm.Ref, error) {
	ip := asInterp(env)
	if len(args) != 2 {
		return vm.Ref{}, l3errors.Typef("filter() takes exactly 2 arguments")
	}
	fn, ok := asFunction(args[0])
	if !ok {
		return vm.Ref{}, l3errors.Typef("filter() first argument must be a function")
	}
	list, ok := args[1].Get().(vm.Vector)
	if !ok {
		return vm.Ref{}, l3errors.Typef("filter() second argument must be a vector")
	}
	out := make([]vm.Ref, 0, len(list.Elems))
	for _, item := range list.Elems {
		r, err := vm.Apply(ip, fn, []vm.Ref{item})
		if err != nil {
			return vm.Ref{}, err
		}
		truthy, err := vm.IsTruthy(r.Get())
		if err != nil {
			return vm.Ref{}, err
		}
		if truthy {
			out = append(out, item)
		}
	}
	return ip.Heap.Alloc(vm.Vector{Elems: out}), nil
}

func biSum(env vm.Env, args []vm.Ref) (vm.Ref, error) {
	ip := asInterp(env)
	if len(args) != 1 {
		return vm.Ref{}, l3errors.Typef("sum() takes exactly 1 argument")
	}
	list, ok := args[0].Get().(vm.Vector)
	if !ok {
		return vm.Ref{}, l3errors.Typef("sum() argument must be a vector")
	}
	if len(list.Elems) == 0 {
		return vm.Ref{}, l3errors.Typef("sum() cannot be applied to an empty vector")
	}
	total := list.Elems[0].Get()
	for _, item := range list.Elems[1:] {
		v, err := vm.Add(total, item.Get())
		if err != nil {
			return vm.Ref{}, err
		}
		total = v
	}
	return ip.Heap.Alloc(total), nil
}

func biAll(env vm.Env, args []vm.Ref) (vm.Ref, error) {
	ip := asInterp(env)
	if len(args) != 1 {
		return vm.Ref{}, l3errors.Typef("all() takes exactly 1 argument")
	}
	list, ok := args[0].Get().(vm.Vector)
	if !ok {
		return vm.Ref{}, l3errors.Typef("all() argument must be a vector")
	}
	for _, item := range list.Elems {
		truthy, err := vm.IsTruthy(item.Get())
		if err != nil {
			return vm.Ref{}, err
		}
		if !truthy {
			return ip.Heap.FalseRef(), nil
		}
	}
	return ip.Heap.TrueRef(), nil
}

func biAny(env vm.Env, args []vm.Ref) (vm.Ref, error) {
	ip := asInterp(env)
	if len(args) != 1 {
		return vm.Ref{}, l3errors.Typef("any() takes exactly 1 argument")
	}
	list, ok := args[0].Get().(vm.Vector)
	if !ok {
		return vm.Ref{}, l3errors.Typef("any() argument must be a vector")
	}
	for _, item := range list.Elems {
		truthy, err := vm.IsTruthy(item.Get())
		if err != nil {
			return vm.Ref{}, err
		}
		if truthy {
			return ip.Heap.TrueRef(), nil
		}
	}
	return ip.Heap.FalseRef(), nil
}

func biCount(env vm.Env, args []vm.Ref) (vm.Ref, error) {
	ip := asInterp(env)
	if len(args) != 2 {
		return vm.Ref{}, l3errors.Typef("count() takes exactly 2 arguments")
	}
	fn, ok := asFunction(args[0])
	if !ok {
		return vm.Ref{}, l3errors.Typef("count() first argument must be a function")
	}
	list, ok := args[1].Get().(vm.Vector)
	if !ok {
		return vm.Ref{}, l3errors.Typef("count() second argument must be a vector")
	}
	var n int64
	for _, item := range list.Elems {
		r, err := vm.Apply(ip, fn, []vm.Ref{item})
		if err != nil {
			return vm.Ref{}, err
		}
		truthy, err := vm.IsTruthy(r.Get())
		if err != nil {
			return vm.Ref{}, err
		}
		if truthy {
			n++
		}
	}
	return ip.Heap.Alloc(vm.Int{Val: n}), nil
}

func biIdentity(env vm.Env, args []vm.Ref) (vm.Ref, error) {
	if len(args) != 1 {
		return vm.Ref{}, l3errors.Typef("id() takes exactly 1 argument")
	}
	return args[0], nil
}

func biRange(env vm.Env, args []vm.Ref) (vm.Ref, error) {
	ip := asInterp(env)
	var start, end int64
	step := int64(1)

	asInt := func(r vm.Ref) (int64, bool) {
		i, ok := r.Get().(vm.Int)
		return i.Val, ok
	}

	switch len(args) {
	case 1:
		e, ok := asInt(args[0])
		if !ok {
			return vm.Ref{}, l3errors.Typef("range() takes only integers as arguments")
		}
		end = e
	case 2:
		s, ok1 := asInt(args[0])
		e, ok2 := asInt(args[1])
		if !ok1 || !ok2 {
			return vm.Ref{}, l3errors.Typef("range() takes only integers as arguments")
		}
		start, end = s, e
	case 3:
		s, ok1 := asInt(args[0])
		e, ok2 := asInt(args[1])
		st, ok3 := asInt(args[2])
		if !ok1 || !ok2 || !ok3 {
			return vm.Ref{}, l3errors.Typef("range() takes only integers as arguments")
		}
		start, end, step = s, e, st
	default:
		return vm.Ref{}, l3errors.Typef("range() takes 1, 2 or 3 arguments")
	}

	if step == 0 {
		return vm.Ref{}, l3errors.Valuef("range() step cannot be 0")
	}
	if step > 0 && start > end {
		return vm.Ref{}, l3errors.Valuef("range() start > end")
	}
	if step < 0 && start < end {
		return vm.Ref{}, l3errors.Valuef("range() start < end with negative step")
	}

	var out []vm.Ref
	if step > 0 {
		for i := start; i < end; i += step {
			out = append(out, ip.Heap.Alloc(vm.Int{Val: i}))
		}
	} else {
		for i := start; i > end; i += step {
			out = append(out, ip.Heap.Alloc(vm.Int{Val: i}))
		}
	}
	return ip.Heap.Alloc(vm.Vector{Elems: out}), nil
}
