// Package parser builds an *ast.Program directly from a lexer.Token
// stream: ast.Program is already the shape the interpreter core
// consumes, so there is no intermediate tree to translate. Surface
// grammar is a small C-like language, chosen only to exercise every
// ast node; lexing and parsing are treated as an external concern with
// otherwise unspecified syntax.
package parser

import (
	"fmt"

	"l3/internal/ast"
	"l3/internal/lexer"
)

// ParseError is raised (via panic) by consume/primary on a malformed
// token stream and recovered by Parse into a returned error.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

var precedence = map[lexer.TokenType]int{
	lexer.TokenOr:  1,
	lexer.TokenAnd: 2,
	lexer.TokenEqEq: 3, lexer.TokenNotEq: 3,
	lexer.TokenLT: 3, lexer.TokenGT: 3, lexer.TokenLE: 3, lexer.TokenGE: 3,
	lexer.TokenPlus: 4, lexer.TokenMinus: 4,
	lexer.TokenStar: 5, lexer.TokenSlash: 5, lexer.TokenPercent: 5,
}

var compoundOps = map[lexer.TokenType]string{
	lexer.TokenEq:      "=",
	lexer.TokenPlusEq:  "+=",
	lexer.TokenMinusEq: "-=",
	lexer.TokenStarEq:  "*=",
	lexer.TokenSlashEq: "/=",
	lexer.TokenPctEq:   "%=",
}

type Parser struct {
	tokens  []lexer.Token
	current int
}

func NewParser(tokens []lexer.Token) *Parser {
	return &Parser{tokens: tokens}
}

// Parse consumes the whole token stream and returns the program, or the
// first parse error encountered.
func Parse(tokens []lexer.Token) (prog *ast.Program, err error) {
	p := NewParser(tokens)
	defer func() {
		if r := recover(); r != nil {
			if pe, ok := r.(*ParseError); ok {
				err = pe
				return
			}
			panic(r)
		}
	}()
	prog = &ast.Program{Statements: p.statements(nil)}
	return prog, nil
}

// statements parses statements until EOF or, inside a block, until stop
// matches (TokenRBrace).
func (p *Parser) statements(stop func() bool) []ast.Stmt {
	var out []ast.Stmt
	for !p.isAtEnd() && (stop == nil || !stop()) {
		out = append(out, p.statement())
		p.consumeOptSemi()
	}
	return out
}

func (p *Parser) block() *ast.BlockStmt {
	p.consume(lexer.TokenLBrace, "expected '{'")
	stmts := p.statements(func() bool { return p.check(lexer.TokenRBrace) })
	p.consume(lexer.TokenRBrace, "expected '}'")
	return &ast.BlockStmt{Statements: stmts}
}

func (p *Parser) statement() ast.Stmt {
	switch {
	case p.match(lexer.TokenFn):
		return p.functionDecl()
	case p.match(lexer.TokenLet):
		return p.declaration()
	case p.match(lexer.TokenIf):
		return p.ifStatement()
	case p.match(lexer.TokenWhile):
		return p.whileStatement()
	case p.match(lexer.TokenFor):
		return p.forStatement()
	case p.match(lexer.TokenReturn):
		return p.returnStatement()
	case p.match(lexer.TokenBreak):
		p.consumeOptSemi()
		return &ast.BreakStmt{}
	case p.match(lexer.TokenContinue):
		p.consumeOptSemi()
		return &ast.ContinueStmt{}
	}
	return p.assignOrCallStatement()
}

// functionDecl parses `fn name(params) { body }`.
func (p *Parser) functionDecl() ast.Stmt {
	name := p.consume(lexer.TokenIdent, "expected function name").Lexeme
	params := p.paramList()
	body := p.block()
	return &ast.FunctionDeclStmt{Name: name, Fn: &ast.FunctionBody{Params: params, Body: body}}
}

func (p *Parser) paramList() []string {
	p.consume(lexer.TokenLParen, "expected '(' after function name")
	var params []string
	if !p.check(lexer.TokenRParen) {
		params = append(params, p.consume(lexer.TokenIdent, "expected parameter name").Lexeme)
		for p.match(lexer.TokenComma) {
			params = append(params, p.consume(lexer.TokenIdent, "expected parameter name").Lexeme)
		}
	}
	p.consume(lexer.TokenRParen, "expected ')' after parameters")
	return params
}

// declaration parses `let [mut] x[, y, ...] [= expr]`.
func (p *Parser) declaration() ast.Stmt {
	mutable := p.match(lexer.TokenMut)
	names := []string{p.consume(lexer.TokenIdent, "expected variable name").Lexeme}
	for p.match(lexer.TokenComma) {
		names = append(names, p.consume(lexer.TokenIdent, "expected variable name").Lexeme)
	}
	var init ast.Expr
	if p.match(lexer.TokenEq) {
		init = p.expression()
	}
	p.consumeOptSemi()
	return &ast.DeclarationStmt{Names: names, Mutable: mutable, Init: init}
}

func (p *Parser) ifStatement() ast.Stmt {
	var branches []ast.IfBranch
	branches = append(branches, ast.IfBranch{Cond: p.expression(), Body: p.block()})
	var elseBlock *ast.BlockStmt
	for p.match(lexer.TokenElse) {
		if p.match(lexer.TokenIf) {
			branches = append(branches, ast.IfBranch{Cond: p.expression(), Body: p.block()})
			continue
		}
		elseBlock = p.block()
		break
	}
	return &ast.IfStmt{Branches: branches, Else: elseBlock}
}

func (p *Parser) whileStatement() ast.Stmt {
	cond := p.expression()
	return &ast.WhileStmt{Cond: cond, Body: p.block()}
}

// forStatement parses `for x in expr { ... }` for vector/string
// iteration, or `for x in start..end [step e] { ... }` /
// `start..=end` for a range loop.
func (p *Parser) forStatement() ast.Stmt {
	name := p.consume(lexer.TokenIdent, "expected loop variable").Lexeme
	p.consume(lexer.TokenIn, "expected 'in'")
	start := p.expression()

	if p.check(lexer.TokenDotDot) || p.check(lexer.TokenDotDotEq) {
		inclusive := p.advance().Type == lexer.TokenDotDotEq
		end := p.expression()
		var step ast.Expr
		if p.match(lexer.TokenStep) {
			step = p.expression()
		}
		return &ast.RangeForStmt{Var: name, Start: start, End: end, Step: step, Inclusive: inclusive, Body: p.block()}
	}

	return &ast.ForInStmt{Var: name, Collection: start, Body: p.block()}
}

func (p *Parser) returnStatement() ast.Stmt {
	var value ast.Expr
	if !p.check(lexer.TokenRBrace) && !p.check(lexer.TokenSemicolon) && !p.isAtEnd() {
		value = p.expression()
	}
	p.consumeOptSemi()
	return &ast.ReturnStmt{Value: value}
}

// assignOrCallStatement disambiguates `name = expr`, `name op= expr`,
// `base[idx] op= expr`, destructuring `a, b = expr`, and a bare call
// expression statement, by speculatively parsing a primary-with-postfix
// expression first and then looking at what follows it.
func (p *Parser) assignOrCallStatement() ast.Stmt {
	if p.check(lexer.TokenIdent) && p.checkNext(lexer.TokenComma) {
		if stmt, ok := p.tryDestructuringAssign(); ok {
			return stmt
		}
	}

	expr := p.expression()

	if ident, ok := expr.(*ast.VariableExpr); ok {
		if op, isAssign := compoundOps[p.peek().Type]; isAssign {
			p.advance()
			value := p.expression()
			p.consumeOptSemi()
			return &ast.CompoundAssignStmt{Target: ast.AssignTarget{Name: ident.Name}, Op: op, Value: value}
		}
	}
	if idx, ok := expr.(*ast.IndexExpr); ok {
		if op, isAssign := compoundOps[p.peek().Type]; isAssign {
			p.advance()
			value := p.expression()
			p.consumeOptSemi()
			return &ast.CompoundAssignStmt{Target: ast.AssignTarget{Index: idx}, Op: op, Value: value}
		}
	}

	p.consumeOptSemi()
	if call, ok := expr.(*ast.CallExpr); ok {
		return &ast.CallStmt{Call: call}
	}
	return &ast.ExprStmt{Expr: expr}
}

func (p *Parser) tryDestructuringAssign() (ast.Stmt, bool) {
	saved := p.current
	names := []string{p.advance().Lexeme}
	for p.match(lexer.TokenComma) {
		if !p.check(lexer.TokenIdent) {
			p.current = saved
			return nil, false
		}
		names = append(names, p.advance().Lexeme)
	}
	if !p.match(lexer.TokenEq) {
		p.current = saved
		return nil, false
	}
	value := p.expression()
	p.consumeOptSemi()
	return &ast.AssignStmt{Targets: names, Value: value}, true
}

// ---- Expressions ----

func (p *Parser) expression() ast.Expr {
	return p.orExpr()
}

func (p *Parser) orExpr() ast.Expr {
	left := p.andExpr()
	for p.match(lexer.TokenOr) {
		left = &ast.LogicalExpr{Op: "or", Left: left, Right: p.andExpr()}
	}
	return left
}

func (p *Parser) andExpr() ast.Expr {
	left := p.comparison()
	for p.match(lexer.TokenAnd) {
		left = &ast.LogicalExpr{Op: "and", Left: left, Right: p.comparison()}
	}
	return left
}

var comparisonOps = map[lexer.TokenType]string{
	lexer.TokenEqEq: "==", lexer.TokenNotEq: "!=",
	lexer.TokenLT: "<", lexer.TokenLE: "<=",
	lexer.TokenGT: ">", lexer.TokenGE: ">=",
}

// comparison builds a ChainedComparisonExpr out of one or more
// consecutive comparison operators sharing operands left to right, e.g.
// `a < b <= c`.
func (p *Parser) comparison() ast.Expr {
	first := p.additive()
	var ops []string
	var rest []ast.Expr
	for {
		op, ok := comparisonOps[p.peek().Type]
		if !ok {
			break
		}
		p.advance()
		ops = append(ops, op)
		rest = append(rest, p.additive())
	}
	if len(ops) == 0 {
		return first
	}
	return &ast.ChainedComparisonExpr{First: first, Ops: ops, Rest: rest}
}

func (p *Parser) additive() ast.Expr {
	left := p.multiplicative()
	for p.check(lexer.TokenPlus) || p.check(lexer.TokenMinus) {
		op := p.advance().Lexeme
		left = &ast.BinaryExpr{Op: op, Left: left, Right: p.multiplicative()}
	}
	return left
}

func (p *Parser) multiplicative() ast.Expr {
	left := p.unary()
	for p.check(lexer.TokenStar) || p.check(lexer.TokenSlash) || p.check(lexer.TokenPercent) {
		op := p.advance().Lexeme
		left = &ast.BinaryExpr{Op: op, Left: left, Right: p.unary()}
	}
	return left
}

func (p *Parser) unary() ast.Expr {
	if p.check(lexer.TokenNot) || p.check(lexer.TokenMinus) || p.check(lexer.TokenPlus) {
		op := p.advance().Lexeme
		return &ast.UnaryExpr{Op: op, Operand: p.unary()}
	}
	return p.callOrIndex()
}

func (p *Parser) callOrIndex() ast.Expr {
	expr := p.primary()
	for {
		switch {
		case p.match(lexer.TokenLParen):
			expr = &ast.CallExpr{Callee: expr, Args: p.argList()}
		case p.match(lexer.TokenLBracket):
			idx := p.expression()
			p.consume(lexer.TokenRBracket, "expected ']' after index")
			expr = &ast.IndexExpr{Base: expr, Index: idx}
		default:
			return expr
		}
	}
}

func (p *Parser) argList() []ast.Expr {
	var args []ast.Expr
	if !p.check(lexer.TokenRParen) {
		args = append(args, p.expression())
		for p.match(lexer.TokenComma) {
			args = append(args, p.expression())
		}
	}
	p.consume(lexer.TokenRParen, "expected ')' after arguments")
	return args
}

func (p *Parser) primary() ast.Expr {
	tok := p.advance()
	switch tok.Type {
	case lexer.TokenNil:
		return ast.NilLiteral{}
	case lexer.TokenTrue:
		return ast.BoolLiteral{Value: true}
	case lexer.TokenFalse:
		return ast.BoolLiteral{Value: false}
	case lexer.TokenInt:
		var v int64
		fmt.Sscanf(tok.Lexeme, "%d", &v)
		return ast.IntLiteral{Value: v}
	case lexer.TokenFloat:
		var v float64
		fmt.Sscanf(tok.Lexeme, "%g", &v)
		return ast.FloatLiteral{Value: v}
	case lexer.TokenStr:
		return ast.StringLiteral{Value: tok.Lexeme}
	case lexer.TokenIdent:
		return &ast.VariableExpr{Name: tok.Lexeme}
	case lexer.TokenLBracket:
		return p.arrayLiteral()
	case lexer.TokenLParen:
		expr := p.expression()
		p.consume(lexer.TokenRParen, "expected ')' after expression")
		return expr
	case lexer.TokenFn:
		params := p.paramList()
		return &ast.AnonymousFunctionExpr{Fn: &ast.FunctionBody{Params: params, Body: p.block()}}
	case lexer.TokenIf:
		return p.ifExpr()
	}
	panic(&ParseError{Line: tok.Line, Message: fmt.Sprintf("unexpected token %q", tok.Lexeme)})
}

func (p *Parser) arrayLiteral() ast.Expr {
	var elems []ast.Expr
	for !p.check(lexer.TokenRBracket) && !p.isAtEnd() {
		elems = append(elems, p.expression())
		if !p.match(lexer.TokenComma) {
			break
		}
	}
	p.consume(lexer.TokenRBracket, "expected ']' after array elements")
	return &ast.ArrayLiteral{Elements: elems}
}

func (p *Parser) ifExpr() ast.Expr {
	var branches []ast.IfBranch
	branches = append(branches, ast.IfBranch{Cond: p.expression(), Body: p.block()})
	var elseBlock *ast.BlockStmt
	for p.match(lexer.TokenElse) {
		if p.match(lexer.TokenIf) {
			branches = append(branches, ast.IfBranch{Cond: p.expression(), Body: p.block()})
			continue
		}
		elseBlock = p.block()
		break
	}
	return &ast.IfExpr{Branches: branches, Else: elseBlock}
}

// ---- token helpers ----

func (p *Parser) match(t lexer.TokenType) bool {
	if p.check(t) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) consume(t lexer.TokenType, msg string) lexer.Token {
	if p.check(t) {
		return p.advance()
	}
	tok := p.peek()
	panic(&ParseError{Line: tok.Line, Message: fmt.Sprintf("%s (got %q)", msg, tok.Lexeme)})
}

// consumeOptSemi swallows a trailing ';' if present; statements don't
// require one.
func (p *Parser) consumeOptSemi() {
	p.match(lexer.TokenSemicolon)
}

func (p *Parser) check(t lexer.TokenType) bool {
	return !p.isAtEnd() && p.peek().Type == t
}

func (p *Parser) checkNext(t lexer.TokenType) bool {
	if p.current+1 >= len(p.tokens) {
		return false
	}
	return p.tokens[p.current+1].Type == t
}

func (p *Parser) advance() lexer.Token {
	if !p.isAtEnd() {
		p.current++
	}
	return p.tokens[p.current-1]
}

func (p *Parser) peek() lexer.Token {
	return p.tokens[p.current]
}

func (p *Parser) isAtEnd() bool {
	return p.peek().Type == lexer.TokenEOF
}
