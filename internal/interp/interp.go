// Package interp implements the evaluate/execute dispatchers over the
// AST: the polymorphic expression evaluator, the statement executor,
// flow-control handling, function-call/body execution, and the
// process-wide builtins table. It is the component that ties the
// value/heap/scope/function primitives of package vm into a running
// program.
package interp

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"l3/internal/ast"
	l3errors "l3/internal/errors"
	"l3/internal/sqlstore"
	"l3/internal/vm"
	"l3/internal/wsclient"
)

// FlowKind is the FlowControl state word: most statements
// become no-ops once it leaves Normal, until the matching handler
// (loop, function call boundary) consumes it.
type FlowKind int

const (
	FlowNormal FlowKind = iota
	FlowReturn
	FlowBreak
	FlowContinue
)

// Interp holds everything a running program needs: the heap, the
// active scope stack, the eval stack, flow-control state, and the
// ambient I/O/debug configuration. Exactly one Interp exists per
// program run.
type Interp struct {
	Heap   *vm.Heap
	Scopes *vm.ScopeStack
	Eval   *vm.EvalStack

	Flow        FlowKind
	ReturnValue vm.Ref

	Builtins *vm.Scope
	Debug    bool

	Stdout io.Writer
	Stderr io.Writer
	Stdin  *bufio.Reader

	DB *sqlstore.Store
	WS *wsclient.Store
}

// New builds an Interp with a fresh heap and the standard builtins
// table installed, ready to run one Program.
func New(debug bool, sweepThreshold int) *Interp {
	builtins := NewBuiltinsScope()
	heap := vm.NewHeap(sweepThreshold)
	return &Interp{
		Heap:     heap,
		Scopes:   vm.NewScopeStack(builtins),
		Eval:     vm.NewEvalStack(),
		Builtins: builtins,
		Debug:    debug,
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
		Stdin:    bufio.NewReader(os.Stdin),
		DB:       sqlstore.New(),
		WS:       wsclient.New(),
	}
}

func (ip *Interp) debugf(format string, args ...any) {
	if ip.Debug {
		fmt.Fprintf(ip.Stderr, "[debug] "+format+"\n", args...)
	}
}

// store allocates a fresh cell for v and roots it in the current eval
// frame: a freshly computed value is immediately pinned so it survives
// a sweep triggered by the very next allocation.
func (ip *Interp) store(frame *vm.Frame, v vm.Value) vm.Ref {
	return frame.Hold(ip.Heap.Alloc(v))
}

// maybeSweep runs a GC sweep if the heap's allocation counter has
// crossed the configured threshold, rooted by the current
// scope stack and eval stack.
func (ip *Interp) maybeSweep() {
	if ip.Heap.ShouldSweep() {
		swept := ip.Heap.Sweep(ip.Scopes, ip.Eval)
		ip.debugf("gc: swept %d cells, %d live", swept, ip.Heap.Len())
	}
}

// Run executes a full program: errors are formatted to Stderr and
// swallowed here; flow control escaping the top level is itself
// reported as a RuntimeError.
func (ip *Interp) Run(program *ast.Program) {
	err := ip.runProgram(program)
	if err != nil {
		fmt.Fprintln(ip.Stderr, FormatError(err))
		if ip.Debug {
			if le, ok := err.(*l3errors.L3Error); ok {
				if stack := le.Stack(); stack != "" {
					fmt.Fprint(ip.Stderr, stack)
				}
			}
		}
	}
}

func (ip *Interp) runProgram(program *ast.Program) error {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintln(ip.Stderr, RuntimeErrorFromPanic(r))
		}
	}()

	if err := ip.execBlockStatements(program.Statements); err != nil {
		return err
	}
	if ip.Flow != FlowNormal {
		return l3errors.Runtimef("return, break or continue from top-level code is not allowed")
	}
	return nil
}

// FormatError renders an error in the user-visible format
// `<Kind>: <message>`.
func FormatError(err error) string {
	var le *l3errors.L3Error
	if e, ok := err.(*l3errors.L3Error); ok {
		le = e
	} else {
		return fmt.Sprintf("%s: %s", l3errors.RuntimeError, err.Error())
	}
	return le.Error()
}

// RuntimeErrorFromPanic converts an unexpected Go panic into the same
// user-visible shape, used only as a last-resort backstop; every
// language-level failure should already surface as an *l3errors.L3Error
// returned normally rather than via panic.
func RuntimeErrorFromPanic(r any) string {
	return FormatError(l3errors.Runtimef("%v", r))
}
