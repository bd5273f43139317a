package parser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"l3/internal/ast"
	"l3/internal/lexer"
	"l3/internal/parser"
)

func parse(t *testing.T, source string) *ast.Program {
	t.Helper()
	tokens := lexer.NewScanner(source).ScanTokens()
	prog, err := parser.Parse(tokens)
	require.NoError(t, err)
	return prog
}

func TestParseDeclarationAndArithmeticPrecedence(t *testing.T) {
	prog := parse(t, `let x = 2 + 3 * 4`)
	require.Len(t, prog.Statements, 1)
	decl, ok := prog.Statements[0].(*ast.DeclarationStmt)
	require.True(t, ok)
	bin, ok := decl.Init.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, "+", bin.Op)
	rhs, ok := bin.Right.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, "*", rhs.Op)
}

func TestParseFunctionDeclAndCall(t *testing.T) {
	prog := parse(t, `
fn add(a, b) { return a + b }
add(1, 2)
`)
	require.Len(t, prog.Statements, 2)
	_, ok := prog.Statements[0].(*ast.FunctionDeclStmt)
	require.True(t, ok)
	callStmt, ok := prog.Statements[1].(*ast.CallStmt)
	require.True(t, ok)
	assert.Len(t, callStmt.Call.Args, 2)
}

func TestParseIfAtStatementPositionIsIfStmt(t *testing.T) {
	prog := parse(t, `if true { println(1) } else { println(2) }`)
	require.Len(t, prog.Statements, 1)
	_, ok := prog.Statements[0].(*ast.IfStmt)
	require.True(t, ok, "if at statement position must parse as IfStmt, not a wrapped expression")
}

func TestParseChainedComparisonSharesOperands(t *testing.T) {
	prog := parse(t, `let ok = 1 < 2 < 3`)
	decl := prog.Statements[0].(*ast.DeclarationStmt)
	chained, ok := decl.Init.(*ast.ChainedComparisonExpr)
	require.True(t, ok)
	assert.Len(t, chained.Rest, 2)
	assert.Equal(t, []string{"<", "<"}, chained.Ops)
}

func TestParseCompoundAssignment(t *testing.T) {
	prog := parse(t, `let mut n = 0; n += 1`)
	assign, ok := prog.Statements[1].(*ast.CompoundAssignStmt)
	require.True(t, ok)
	assert.Equal(t, "+=", assign.Op)
	assert.Equal(t, "n", assign.Target.Name)
}

func TestParseRangeForInclusiveVsExclusive(t *testing.T) {
	prog := parse(t, `for i in 0..10 { println(i) }`)
	rf, ok := prog.Statements[0].(*ast.RangeForStmt)
	require.True(t, ok)
	assert.False(t, rf.Inclusive)

	prog = parse(t, `for i in 0..=10 { println(i) }`)
	rf, ok = prog.Statements[0].(*ast.RangeForStmt)
	require.True(t, ok)
	assert.True(t, rf.Inclusive)
}

func TestParseArrayLiteral(t *testing.T) {
	prog := parse(t, `let xs = [1, 2, 3]`)
	decl := prog.Statements[0].(*ast.DeclarationStmt)
	arr, ok := decl.Init.(*ast.ArrayLiteral)
	require.True(t, ok)
	assert.Len(t, arr.Elements, 3)
}

func TestParseBareIndexExpressionIsExprStmt(t *testing.T) {
	prog := parse(t, `let xs = [1, 2, 3]; xs[0]`)
	_, ok := prog.Statements[1].(*ast.ExprStmt)
	require.True(t, ok)
}

func TestParseAnonymousFunctionLiteral(t *testing.T) {
	prog := parse(t, `let sq = fn(x) { return x * x }`)
	decl := prog.Statements[0].(*ast.DeclarationStmt)
	_, ok := decl.Init.(*ast.AnonymousFunctionExpr)
	require.True(t, ok)
}

func TestParseRejectsMalformedInput(t *testing.T) {
	tokens := lexer.NewScanner(`let x = `).ScanTokens()
	_, err := parser.Parse(tokens)
	assert.Error(t, err)
}
