package interp

import (
	l3errors "l3/internal/errors"
	"l3/internal/vm"
)

// CallBody implements vm.Env: it runs a fully-applied user function's
// body. The captured scope stack is installed as an
// overlay (saved and restored even if the body panics or errors), a
// fresh argument scope seeds the callee's parameters, and the return
// value (if any) is extracted and handed back.
func (ip *Interp) CallBody(fn *vm.Function, args []vm.Ref) (vm.Ref, error) {
	savedScopes := ip.Scopes
	ip.Scopes = vm.Extend(ip.Builtins, fn.Captures)
	defer func() { ip.Scopes = savedScopes }()

	// args is already the fully-applied, in-order list (curried
	// arguments followed by the newly supplied ones — vm.Apply does the
	// concatenation). Params bind Mutable, so a function body can
	// rebind its own parameters.
	argScope := vm.NewScope()
	for i, a := range args {
		if err := argScope.Declare(fn.Params[i], a, vm.Mutable); err != nil {
			return vm.Ref{}, err
		}
	}

	_, doneFrame := ip.Eval.Guard()
	defer doneFrame()
	ip.Scopes.PushScope(argScope)
	defer ip.Scopes.Pop()

	if err := ip.execBlockStatements(fn.Body.Body.Statements); err != nil {
		name := fn.Name
		if name == "" {
			name = "<anonymous>"
		}
		return vm.Ref{}, l3errors.PushFrame(err, name)
	}

	if ip.Flow == FlowReturn {
		v := ip.ReturnValue
		ip.ReturnValue = vm.Ref{}
		ip.Flow = FlowNormal
		return v, nil
	}
	if ip.Flow == FlowBreak || ip.Flow == FlowContinue {
		return vm.Ref{}, l3errors.Runtimef("unexpected %s outside a loop", flowName(ip.Flow))
	}
	return ip.Heap.NilRef(), nil
}
