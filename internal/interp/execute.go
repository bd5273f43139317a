package interp

import (
	"l3/internal/ast"
	l3errors "l3/internal/errors"
	"l3/internal/vm"
)

// Execute is the statement dispatcher. It returns an error
// only for language-level failures; Break/Continue/Return are not
// errors — they are recorded in ip.Flow and consumed by the nearest
// matching handler (loop or function-call boundary).
func (ip *Interp) Execute(stmt ast.Stmt) error {
	var err error
	switch s := stmt.(type) {
	case *ast.BlockStmt:
		err = ip.execBlock(s)
	case *ast.DeclarationStmt:
		err = ip.execDeclaration(s)
	case *ast.AssignStmt:
		err = ip.execAssign(s)
	case *ast.CompoundAssignStmt:
		err = ip.execCompoundAssign(s)
	case *ast.IfStmt:
		err = ip.execIf(s)
	case *ast.WhileStmt:
		err = ip.execWhile(s)
	case *ast.ForInStmt:
		err = ip.execForIn(s)
	case *ast.RangeForStmt:
		err = ip.execRangeFor(s)
	case *ast.CallStmt:
		_, err = ip.withFrame(func(f *vm.Frame) (vm.Ref, error) {
			return ip.Evaluate(f, s.Call)
		})
	case *ast.ExprStmt:
		_, err = ip.withFrame(func(f *vm.Frame) (vm.Ref, error) {
			return ip.Evaluate(f, s.Expr)
		})
	case *ast.FunctionDeclStmt:
		err = ip.execFunctionDecl(s)
	case *ast.ReturnStmt:
		err = ip.execReturn(s)
	case *ast.BreakStmt:
		ip.Flow = FlowBreak
	case *ast.ContinueStmt:
		ip.Flow = FlowContinue
	default:
		err = l3errors.Runtimef("unhandled statement node %T", stmt)
	}
	if err != nil {
		return err
	}
	ip.maybeSweep()
	return nil
}

// withFrame pushes a fresh eval-stack frame around fn, guaranteeing the
// frame pops on every exit path.
func (ip *Interp) withFrame(fn func(*vm.Frame) (vm.Ref, error)) (vm.Ref, error) {
	frame, done := ip.Eval.Guard()
	defer done()
	return fn(frame)
}

// execBlockStatements runs statements in order, stopping as soon as
// Flow leaves Normal.
func (ip *Interp) execBlockStatements(stmts []ast.Stmt) error {
	for _, s := range stmts {
		if err := ip.Execute(s); err != nil {
			return err
		}
		if ip.Flow != FlowNormal {
			return nil
		}
	}
	return nil
}

// execBlock pushes a fresh eval-stack frame and a fresh lexical scope
// around the block's statements, releasing both on every exit path
// including unwinding control flow.
func (ip *Interp) execBlock(b *ast.BlockStmt) error {
	_, doneFrame := ip.Eval.Guard()
	defer doneFrame()
	ip.Scopes.Push()
	defer ip.Scopes.Pop()

	return ip.execBlockStatements(b.Statements)
}

func (ip *Interp) execDeclaration(d *ast.DeclarationStmt) error {
	mut := vm.Immutable
	if d.Mutable {
		mut = vm.Mutable
	}

	if d.Init == nil {
		for _, name := range d.Names {
			if err := ip.Scopes.Declare(name, ip.Heap.NilRef(), mut); err != nil {
				return err
			}
		}
		return nil
	}

	value, err := ip.withFrame(func(f *vm.Frame) (vm.Ref, error) {
		return ip.Evaluate(f, d.Init)
	})
	if err != nil {
		return err
	}

	if len(d.Names) == 1 {
		return ip.Scopes.Declare(d.Names[0], value, mut)
	}

	vec, ok := value.Get().(vm.Vector)
	if !ok {
		return l3errors.Valuef("destructuring declaration only works with vectors")
	}
	if len(vec.Elems) != len(d.Names) {
		return l3errors.Valuef("destructuring declaration expected %d values but got %d", len(d.Names), len(vec.Elems))
	}
	for i, name := range d.Names {
		if err := ip.Scopes.Declare(name, vec.Elems[i], mut); err != nil {
			return err
		}
	}
	return nil
}

func (ip *Interp) execAssign(a *ast.AssignStmt) error {
	value, err := ip.withFrame(func(f *vm.Frame) (vm.Ref, error) {
		return ip.Evaluate(f, a.Value)
	})
	if err != nil {
		return err
	}

	if len(a.Targets) == 1 {
		return ip.Scopes.Assign(a.Targets[0], value)
	}

	vec, ok := value.Get().(vm.Vector)
	if !ok {
		return l3errors.Valuef("destructuring assignment only works with vectors")
	}
	if len(vec.Elems) != len(a.Targets) {
		return l3errors.Valuef("destructuring assignment expected %d names but got %d", len(a.Targets), len(vec.Elems))
	}
	for i, name := range a.Targets {
		if err := ip.Scopes.Assign(name, vec.Elems[i]); err != nil {
			return err
		}
	}
	return nil
}

// mutSlot is a single resolved, write-through location: either a scope
// variable or a vector's element slot. Resolving it once and reusing it
// for both the read and the write avoids re-evaluating the target's
// base/index sub-expressions twice.
type mutSlot struct {
	name   string  // non-empty for a variable target
	elem   *vm.Ref // non-nil for an indexed target
	varRef vm.Ref  // the value observed when this slot was resolved
}

func (s mutSlot) get() vm.Ref {
	if s.elem != nil {
		return *s.elem
	}
	return s.varRef
}

func (s *mutSlot) write(ip *Interp, newRef vm.Ref) error {
	if s.elem != nil {
		*s.elem = newRef
		return nil
	}
	return ip.Scopes.Assign(s.name, newRef)
}

// resolveMutTarget resolves a compound-assignment target's lvalue
// exactly once: its base/index sub-expressions (if any) are evaluated
// here and nowhere else.
func (ip *Interp) resolveMutTarget(frame *vm.Frame, t ast.AssignTarget) (mutSlot, error) {
	if t.Index == nil {
		v, ok := ip.Scopes.Lookup(t.Name)
		if !ok {
			return mutSlot{}, l3errors.Namef("undefined variable %q", t.Name)
		}
		return mutSlot{name: t.Name, varRef: v.Value}, nil
	}
	baseRef, err := ip.Evaluate(frame, t.Index.Base)
	if err != nil {
		return mutSlot{}, err
	}
	idxRef, err := ip.Evaluate(frame, t.Index.Index)
	if err != nil {
		return mutSlot{}, err
	}
	idx, ok := idxRef.Get().(vm.Int)
	if !ok {
		return mutSlot{}, l3errors.Typef("index must be an integer, got %s", vm.TypeName(idxRef.Get()))
	}
	elem, err := vm.IndexMut(baseRef.Get(), idx.Val)
	if err != nil {
		return mutSlot{}, err
	}
	return mutSlot{elem: elem, varRef: *elem}, nil
}

// execCompoundAssign implements `target op= expr`: `=`
// rebinds; `+=`/`*=` mutate containers in place but rebind primitives;
// `-=`/`/=`/`%=` always rebind.
func (ip *Interp) execCompoundAssign(c *ast.CompoundAssignStmt) error {
	frame, done := ip.Eval.Guard()
	defer done()

	slot, err := ip.resolveMutTarget(frame, c.Target)
	if err != nil {
		return err
	}
	rhsRef, err := ip.Evaluate(frame, c.Value)
	if err != nil {
		return err
	}
	rhs := rhsRef.Get()
	lhsRef := slot.get()

	switch c.Op {
	case "=":
		return slot.write(ip, rhsRef)
	case "+=":
		lhs := lhsRef.Get()
		if isPrimitiveAddAssign(lhs) {
			v, err := vm.Add(lhs, rhs)
			if err != nil {
				return err
			}
			return slot.write(ip, ip.store(frame, v))
		}
		if err := vm.AddAssign(&lhs, rhs); err != nil {
			return err
		}
		lhsRef.Set(lhs)
		return nil
	case "*=":
		lhs := lhsRef.Get()
		if isPrimitiveAddAssign(lhs) {
			v, err := vm.Mul(lhs, rhs)
			if err != nil {
				return err
			}
			return slot.write(ip, ip.store(frame, v))
		}
		if err := vm.MulAssign(&lhs, rhs); err != nil {
			return err
		}
		lhsRef.Set(lhs)
		return nil
	case "-=":
		v, err := vm.Sub(lhsRef.Get(), rhs)
		if err != nil {
			return err
		}
		return slot.write(ip, ip.store(frame, v))
	case "/=":
		v, err := vm.Div(lhsRef.Get(), rhs)
		if err != nil {
			return err
		}
		return slot.write(ip, ip.store(frame, v))
	case "%=":
		v, err := vm.Mod(lhsRef.Get(), rhs)
		if err != nil {
			return err
		}
		return slot.write(ip, ip.store(frame, v))
	}
	return l3errors.Runtimef("unknown assignment operator %q", c.Op)
}

func isPrimitiveAddAssign(v vm.Value) bool {
	switch v.(type) {
	case vm.Int, vm.Float:
		return true
	}
	return false
}

func (ip *Interp) evalIfBranchTruthy(frame *vm.Frame, cond ast.Expr) (bool, error) {
	condRef, err := ip.Evaluate(frame, cond)
	if err != nil {
		return false, err
	}
	return vm.IsTruthy(condRef.Get())
}

func (ip *Interp) execIf(s *ast.IfStmt) error {
	frame, done := ip.Eval.Guard()
	defer done()

	for _, branch := range s.Branches {
		truthy, err := ip.evalIfBranchTruthy(frame, branch.Cond)
		if err != nil {
			return err
		}
		if truthy {
			return ip.execBlock(branch.Body)
		}
	}
	if s.Else != nil {
		return ip.execBlock(s.Else)
	}
	return nil
}

func (ip *Interp) execWhile(s *ast.WhileStmt) error {
	for {
		truthy, err := ip.withFrameBool(func(f *vm.Frame) (bool, error) {
			return ip.evalIfBranchTruthy(f, s.Cond)
		})
		if err != nil {
			return err
		}
		if !truthy {
			return nil
		}
		if err := ip.execBlock(s.Body); err != nil {
			return err
		}
		switch ip.Flow {
		case FlowNormal:
		case FlowContinue:
			ip.Flow = FlowNormal
		case FlowBreak:
			ip.Flow = FlowNormal
			return nil
		default:
			return nil
		}
	}
}

func (ip *Interp) withFrameBool(fn func(*vm.Frame) (bool, error)) (bool, error) {
	frame, done := ip.Eval.Guard()
	defer done()
	return fn(frame)
}

// execForIn implements for-over-collection: Vector iterates
// element Refs (shared, not copied); String iterates one-character
// string values.
func (ip *Interp) execForIn(s *ast.ForInStmt) error {
	ip.Scopes.Push()
	defer ip.Scopes.Pop()
	_, doneFrame := ip.Eval.Guard()
	defer doneFrame()

	collRef, err := ip.withFrame(func(f *vm.Frame) (vm.Ref, error) {
		return ip.Evaluate(f, s.Collection)
	})
	if err != nil {
		return err
	}

	if err := ip.Scopes.Declare(s.Var, ip.Heap.NilRef(), vm.Mutable); err != nil {
		return err
	}

	runBody := func(item vm.Ref) (bool, error) {
		if err := ip.Scopes.Assign(s.Var, item); err != nil {
			return false, err
		}
		if err := ip.execBlock(s.Body); err != nil {
			return false, err
		}
		switch ip.Flow {
		case FlowNormal:
			return true, nil
		case FlowContinue:
			ip.Flow = FlowNormal
			return true, nil
		case FlowBreak:
			ip.Flow = FlowNormal
			return false, nil
		default:
			return false, nil
		}
	}

	switch coll := collRef.Get().(type) {
	case vm.Vector:
		for _, item := range coll.Elems {
			cont, err := runBody(item)
			if err != nil {
				return err
			}
			if !cont {
				return nil
			}
		}
		return nil
	case vm.String:
		for i := 0; i < len(coll.Val); i++ {
			cont, err := runBody(ip.Heap.Alloc(vm.String{Val: string(coll.Val[i])}))
			if err != nil {
				return err
			}
			if !cont {
				return nil
			}
		}
		return nil
	}
	return l3errors.Typef("cannot iterate over value of type '%s'", vm.TypeName(collRef.Get()))
}

// execRangeFor implements `for x in a..b [step s]` / `a..=b`: bounds
// and step must be integers; inclusive ranges extend the effective end
// by the step's sign; step 0 is an error.
func (ip *Interp) execRangeFor(s *ast.RangeForStmt) error {
	frame, doneOuter := ip.Eval.Guard()
	defer doneOuter()

	start, err := ip.evalRangeInt(frame, s.Start, "range bounds must be integers")
	if err != nil {
		return err
	}
	end, err := ip.evalRangeInt(frame, s.End, "range bounds must be integers")
	if err != nil {
		return err
	}
	step := int64(1)
	if s.Step != nil {
		step, err = ip.evalRangeInt(frame, s.Step, "range step must be an integer")
		if err != nil {
			return err
		}
		if step == 0 {
			return l3errors.Runtimef("range step cannot be zero")
		}
	}
	if s.Inclusive {
		if step > 0 {
			end++
		} else {
			end--
		}
	}

	ip.Scopes.Push()
	defer ip.Scopes.Pop()
	_, doneInner := ip.Eval.Guard()
	defer doneInner()
	if err := ip.Scopes.Declare(s.Var, ip.Heap.NilRef(), vm.Mutable); err != nil {
		return err
	}

	runBody := func(i int64) (bool, error) {
		if err := ip.Scopes.Assign(s.Var, ip.Heap.Alloc(vm.Int{Val: i})); err != nil {
			return false, err
		}
		if err := ip.execBlock(s.Body); err != nil {
			return false, err
		}
		switch ip.Flow {
		case FlowNormal:
			return true, nil
		case FlowContinue:
			ip.Flow = FlowNormal
			return true, nil
		case FlowBreak:
			ip.Flow = FlowNormal
			return false, nil
		default:
			return false, nil
		}
	}

	if step > 0 {
		for i := start; i < end; i += step {
			cont, err := runBody(i)
			if err != nil {
				return err
			}
			if !cont {
				return nil
			}
		}
	} else {
		for i := start; i > end; i += step {
			cont, err := runBody(i)
			if err != nil {
				return err
			}
			if !cont {
				return nil
			}
		}
	}
	return nil
}

func (ip *Interp) evalRangeInt(frame *vm.Frame, e ast.Expr, msg string) (int64, error) {
	ref, err := ip.Evaluate(frame, e)
	if err != nil {
		return 0, err
	}
	i, ok := ref.Get().(vm.Int)
	if !ok {
		return 0, l3errors.Typef("%s", msg)
	}
	return i.Val, nil
}

func (ip *Interp) execFunctionDecl(s *ast.FunctionDeclStmt) error {
	fn := &vm.Function{
		Name:     s.Name,
		Params:   s.Fn.Params,
		Body:     s.Fn,
		Captures: ip.Scopes.Snapshot(),
	}
	ref := ip.Heap.Alloc(vm.FunctionValue{Fn: fn})
	return ip.Scopes.Declare(s.Name, ref, vm.Immutable)
}

func (ip *Interp) execReturn(s *ast.ReturnStmt) error {
	if s.Value == nil {
		ip.ReturnValue = ip.Heap.NilRef()
		ip.Flow = FlowReturn
		return nil
	}
	frame, done := ip.Eval.Guard()
	defer done()
	v, err := ip.Evaluate(frame, s.Value)
	if err != nil {
		return err
	}
	ip.ReturnValue = v
	ip.Flow = FlowReturn
	return nil
}
