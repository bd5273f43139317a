package interp

import (
	"l3/internal/ast"
	l3errors "l3/internal/errors"
	"l3/internal/vm"
)

// Evaluate is the polymorphic expression dispatcher: a
// type-based sum pattern match over every ast.Expr variant, returning
// a reference handle to the (freshly stored, unless shared-singleton
// or looked-up) result.
func (ip *Interp) Evaluate(frame *vm.Frame, expr ast.Expr) (vm.Ref, error) {
	switch e := expr.(type) {
	case ast.NilLiteral:
		return ip.Heap.NilRef(), nil
	case ast.BoolLiteral:
		return ip.Heap.BoolRef(e.Value), nil
	case ast.IntLiteral:
		return ip.store(frame, vm.Int{Val: e.Value}), nil
	case ast.FloatLiteral:
		return ip.store(frame, vm.Float{Val: e.Value}), nil
	case ast.StringLiteral:
		return ip.store(frame, vm.String{Val: e.Value}), nil
	case *ast.ArrayLiteral:
		return ip.evalArray(frame, e)
	case *ast.VariableExpr:
		v, ok := ip.Scopes.Lookup(e.Name)
		if !ok {
			return vm.Ref{}, l3errors.Namef("undefined variable %q", e.Name)
		}
		return v.Value, nil
	case *ast.UnaryExpr:
		return ip.evalUnary(frame, e)
	case *ast.BinaryExpr:
		return ip.evalBinary(frame, e)
	case *ast.LogicalExpr:
		return ip.evalLogical(frame, e)
	case *ast.ChainedComparisonExpr:
		return ip.evalChainedComparison(frame, e)
	case *ast.CallExpr:
		return ip.evalCall(frame, e)
	case *ast.IndexExpr:
		return ip.evalIndex(frame, e)
	case *ast.AnonymousFunctionExpr:
		return ip.store(frame, vm.FunctionValue{Fn: &vm.Function{
			Params:   e.Fn.Params,
			Body:     e.Fn,
			Captures: ip.Scopes.Snapshot(),
		}}), nil
	case *ast.IfExpr:
		return ip.evalIfExpr(frame, e)
	}
	return vm.Ref{}, l3errors.Runtimef("unhandled expression node %T", expr)
}

func (ip *Interp) evalArray(frame *vm.Frame, e *ast.ArrayLiteral) (vm.Ref, error) {
	elems := make([]vm.Ref, 0, len(e.Elements))
	for _, el := range e.Elements {
		r, err := ip.Evaluate(frame, el)
		if err != nil {
			return vm.Ref{}, err
		}
		elems = append(elems, r)
	}
	return ip.store(frame, vm.Vector{Elems: elems}), nil
}

func (ip *Interp) evalUnary(frame *vm.Frame, e *ast.UnaryExpr) (vm.Ref, error) {
	operand, err := ip.Evaluate(frame, e.Operand)
	if err != nil {
		return vm.Ref{}, err
	}
	switch e.Op {
	case "-":
		v, err := vm.Negative(operand.Get())
		if err != nil {
			return vm.Ref{}, err
		}
		return ip.store(frame, v), nil
	case "+":
		v, err := vm.Positive(operand.Get())
		if err != nil {
			return vm.Ref{}, err
		}
		return ip.store(frame, v), nil
	case "!":
		v, err := vm.Not(operand.Get())
		if err != nil {
			return vm.Ref{}, err
		}
		return ip.boolRefFrom(v), nil
	}
	return vm.Ref{}, l3errors.Runtimef("unknown unary operator %q", e.Op)
}

func (ip *Interp) boolRefFrom(v vm.Value) vm.Ref {
	if b, ok := v.(vm.Bool); ok {
		return ip.Heap.BoolRef(b.Val)
	}
	return ip.Heap.Alloc(v)
}

func (ip *Interp) evalBinary(frame *vm.Frame, e *ast.BinaryExpr) (vm.Ref, error) {
	left, err := ip.Evaluate(frame, e.Left)
	if err != nil {
		return vm.Ref{}, err
	}
	right, err := ip.Evaluate(frame, e.Right)
	if err != nil {
		return vm.Ref{}, err
	}
	var result vm.Value
	switch e.Op {
	case "+":
		result, err = vm.Add(left.Get(), right.Get())
	case "-":
		result, err = vm.Sub(left.Get(), right.Get())
	case "*":
		result, err = vm.Mul(left.Get(), right.Get())
	case "/":
		result, err = vm.Div(left.Get(), right.Get())
	case "%":
		result, err = vm.Mod(left.Get(), right.Get())
	default:
		return vm.Ref{}, l3errors.Runtimef("unknown binary operator %q", e.Op)
	}
	if err != nil {
		return vm.Ref{}, err
	}
	return ip.store(frame, result), nil
}

// evalLogical implements short-circuit and/or: the LHS is
// returned unchanged (same Ref, no fresh allocation) when it decides
// the result.
func (ip *Interp) evalLogical(frame *vm.Frame, e *ast.LogicalExpr) (vm.Ref, error) {
	left, err := ip.Evaluate(frame, e.Left)
	if err != nil {
		return vm.Ref{}, err
	}
	truthy, err := vm.IsTruthy(left.Get())
	if err != nil {
		return vm.Ref{}, err
	}
	switch e.Op {
	case "and":
		if !truthy {
			return left, nil
		}
		return ip.Evaluate(frame, e.Right)
	case "or":
		if truthy {
			return left, nil
		}
		return ip.Evaluate(frame, e.Right)
	}
	return vm.Ref{}, l3errors.Runtimef("unknown logical operator %q", e.Op)
}

// evalChainedComparison evaluates every operand exactly once: e0, then
// each ei once, short-circuiting to false on the first failing
// pairwise test.
func (ip *Interp) evalChainedComparison(frame *vm.Frame, e *ast.ChainedComparisonExpr) (vm.Ref, error) {
	lhs, err := ip.Evaluate(frame, e.First)
	if err != nil {
		return vm.Ref{}, err
	}
	for i, op := range e.Ops {
		rhs, err := ip.Evaluate(frame, e.Rest[i])
		if err != nil {
			return vm.Ref{}, err
		}
		ord := vm.Compare(lhs.Get(), rhs.Get())
		if !vm.EvalOp(op, ord) {
			return ip.Heap.FalseRef(), nil
		}
		lhs = rhs
	}
	return ip.Heap.TrueRef(), nil
}

func (ip *Interp) evalCall(frame *vm.Frame, e *ast.CallExpr) (vm.Ref, error) {
	calleeRef, err := ip.Evaluate(frame, e.Callee)
	if err != nil {
		return vm.Ref{}, err
	}
	fv, ok := calleeRef.Get().(vm.FunctionValue)
	if !ok {
		return vm.Ref{}, l3errors.Typef("%s is not a function", vm.TypeName(calleeRef.Get()))
	}

	args := make([]vm.Ref, 0, len(e.Args))
	for _, a := range e.Args {
		r, err := ip.Evaluate(frame, a)
		if err != nil {
			return vm.Ref{}, err
		}
		args = append(args, r)
	}

	result, err := vm.Apply(ip, fv.Fn, args)
	if err != nil {
		return vm.Ref{}, err
	}

	if ip.Flow == FlowBreak || ip.Flow == FlowContinue {
		return vm.Ref{}, l3errors.Runtimef("unexpected %s outside a loop", flowName(ip.Flow))
	}

	frame.Hold(result)
	return result, nil
}

func flowName(f FlowKind) string {
	switch f {
	case FlowBreak:
		return "break"
	case FlowContinue:
		return "continue"
	case FlowReturn:
		return "return"
	}
	return "normal"
}

func (ip *Interp) evalIndex(frame *vm.Frame, e *ast.IndexExpr) (vm.Ref, error) {
	base, err := ip.Evaluate(frame, e.Base)
	if err != nil {
		return vm.Ref{}, err
	}
	idxRef, err := ip.Evaluate(frame, e.Index)
	if err != nil {
		return vm.Ref{}, err
	}
	idx, ok := idxRef.Get().(vm.Int)
	if !ok {
		return vm.Ref{}, l3errors.Typef("index must be an integer, got %s", vm.TypeName(idxRef.Get()))
	}
	v, err := vm.Index(base.Get(), idx.Val)
	if err != nil {
		return vm.Ref{}, err
	}
	return ip.store(frame, v), nil
}

// evalIfExpr implements expression-position if: at most one of the
// if/else-if branches runs (the first whose condition is truthy), and
// if that branch did not set FlowReturn, the else block (if any) also
// unconditionally runs — whichever of the two supplies a Return value
// is the expression's result. It's a RuntimeError only if neither path
// returned one.
func (ip *Interp) evalIfExpr(frame *vm.Frame, e *ast.IfExpr) (vm.Ref, error) {
	for _, branch := range e.Branches {
		condRef, err := ip.Evaluate(frame, branch.Cond)
		if err != nil {
			return vm.Ref{}, err
		}
		truthy, err := vm.IsTruthy(condRef.Get())
		if err != nil {
			return vm.Ref{}, err
		}
		if !truthy {
			continue
		}
		if err := ip.execBlock(branch.Body); err != nil {
			return vm.Ref{}, err
		}
		break
	}

	if ip.Flow == FlowNormal && e.Else != nil {
		if err := ip.execBlock(e.Else); err != nil {
			return vm.Ref{}, err
		}
	}

	return ip.consumeIfExprReturn()
}

func (ip *Interp) consumeIfExprReturn() (vm.Ref, error) {
	if ip.Flow == FlowReturn {
		v := ip.ReturnValue
		ip.ReturnValue = vm.Ref{}
		ip.Flow = FlowNormal
		return v, nil
	}
	return vm.Ref{}, l3errors.Runtimef("if expression did not return a value")
}
