package interp_test

import (
	"bytes"
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"
	"github.com/stretchr/testify/require"

	"l3/internal/interp"
	"l3/internal/lexer"
	"l3/internal/parser"
)

// runSource lexes, parses and runs source, returning everything written
// to stdout.
func runSource(t *testing.T, source string) string {
	t.Helper()
	out, _ := runSourceFull(t, source)
	return out
}

// runSourceFull is runSource plus the stderr stream, for scenarios that
// assert on a reported runtime error.
func runSourceFull(t *testing.T, source string) (stdout, stderr string) {
	t.Helper()
	tokens := lexer.NewScanner(source).ScanTokens()
	program, err := parser.Parse(tokens)
	require.NoError(t, err)

	var outBuf, errBuf bytes.Buffer
	ip := interp.New(false, 0)
	ip.Stdout = &outBuf
	ip.Stderr = &errBuf
	ip.Run(program)
	return outBuf.String(), errBuf.String()
}

// The six concrete end-to-end scenarios.

func TestScenarioArithmeticPrecedence(t *testing.T) {
	out := runSource(t, `let x = 2 + 3 * 4; println(x)`)
	snaps.MatchSnapshot(t, out)
}

func TestScenarioRecursiveFibonacci(t *testing.T) {
	out := runSource(t, `
fn fib(n) {
	if n < 2 { return n }
	return fib(n-1) + fib(n-2)
}
println(fib(10))
`)
	snaps.MatchSnapshot(t, out)
}

func TestScenarioPartialApplication(t *testing.T) {
	out := runSource(t, `
fn add(a, b) { return a + b }
let add5 = add(5)
println(add5(7))
`)
	snaps.MatchSnapshot(t, out)
}

func TestScenarioRangeForAccumulation(t *testing.T) {
	out := runSource(t, `let mut s = 0; for i in range(1, 101) { s += i }; println(s)`)
	snaps.MatchSnapshot(t, out)
}

func TestScenarioMapOverVector(t *testing.T) {
	out := runSource(t, `
let xs = [1, 2, 3]
let ys = map(fn(x) { return x * x }, xs)
println(ys)
`)
	snaps.MatchSnapshot(t, out)
}

func TestScenarioWhileBreak(t *testing.T) {
	out := runSource(t, `
let mut n = 0
while true {
	n += 1
	if n == 10 { break }
}
println(n)
`)
	snaps.MatchSnapshot(t, out)
}

func TestBreakOutsideLoopInsideFunctionIsRuntimeError(t *testing.T) {
	_, errOut := runSourceFull(t, `
fn bad() { break }
bad()
`)
	require.Contains(t, errOut, "RuntimeError")
}

func TestDuplicateDeclarationInSameScopeIsNameError(t *testing.T) {
	_, errOut := runSourceFull(t, `let x = 1; let x = 2;`)
	require.Contains(t, errOut, "NameError")
}

func TestRedeclarationAcrossNestedScopeShadowsInstead(t *testing.T) {
	out := runSource(t, `
let x = 1
if true {
	let x = 2
	println(x)
}
println(x)
`)
	snaps.MatchSnapshot(t, out)
}

func TestIfExprFallsThroughToElseWhenBranchDidNotReturn(t *testing.T) {
	out := runSource(t, `
let x = if true { println("hi") } else { return 42 }
println(x)
`)
	snaps.MatchSnapshot(t, out)
}

func TestShortCircuitAndNeverCallsRHS(t *testing.T) {
	out := runSource(t, `
let mut called = false
fn sideEffect() { called = true; return true }
let r = false and sideEffect()
println(called)
`)
	snaps.MatchSnapshot(t, out)
}
