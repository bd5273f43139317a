// Package errors defines the runtime error taxonomy raised by the L3
// interpreter and carried back to the driver at the program boundary.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Kind names one of the runtime error categories the core can raise.
type Kind string

const (
	NameError            Kind = "NameError"
	TypeError            Kind = "TypeError"
	ValueError           Kind = "ValueError"
	UnsupportedOperation Kind = "UnsupportedOperation"
	RuntimeError         Kind = "RuntimeError"
)

// Frame is one entry of an L3Error's call stack: the name of the L3
// function whose call was in progress when the error was raised or
// propagated through it. There is no source-line tracking to attach a
// file/column to, unlike a frame in a compiled stack trace.
type Frame struct {
	Function string
}

// L3Error is the single error type produced by the interpreter. Every
// error the core raises carries a Kind from the taxonomy above and a
// message; errors that unwind out of one or more function calls
// accumulate a CallStack, one Frame per call left, innermost first, so
// -debug runs can print where in the running program the failure
// occurred without polluting the user-facing one-line format.
type L3Error struct {
	Kind      Kind
	Message   string
	CallStack []Frame
	cause     error
}

func (e *L3Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the wrapped cause, if any, to errors.Is/errors.As.
func (e *L3Error) Unwrap() error {
	return e.cause
}

// Stack renders the accumulated call stack as "  at <function>\n" lines,
// or "" if the error never unwound through a call.
func (e *L3Error) Stack() string {
	if len(e.CallStack) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("Call Stack:\n")
	for _, f := range e.CallStack {
		fmt.Fprintf(&sb, "  at %s\n", f.Function)
	}
	return sb.String()
}

// PushFrame records that err unwound out of a call to function, returning
// err unchanged if it isn't an *L3Error (a plain Go error can't carry a
// call stack).
func PushFrame(err error, function string) error {
	e, ok := err.(*L3Error)
	if !ok {
		return err
	}
	e.CallStack = append(e.CallStack, Frame{Function: function})
	return e
}

func New(kind Kind, format string, args ...any) *L3Error {
	return &L3Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a Go-level cause (e.g. an I/O failure surfaced through an
// intrinsic) to a RuntimeError.
func Wrap(cause error, format string, args ...any) *L3Error {
	return &L3Error{
		Kind:    RuntimeError,
		Message: fmt.Sprintf(format, args...),
		cause:   cause,
	}
}

func Namef(format string, args ...any) *L3Error        { return New(NameError, format, args...) }
func Typef(format string, args ...any) *L3Error        { return New(TypeError, format, args...) }
func Valuef(format string, args ...any) *L3Error       { return New(ValueError, format, args...) }
func Unsupportedf(format string, args ...any) *L3Error {
	return New(UnsupportedOperation, format, args...)
}
func Runtimef(format string, args ...any) *L3Error { return New(RuntimeError, format, args...) }

// Is reports whether err is an *L3Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *L3Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
