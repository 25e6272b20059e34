// Package parser builds an AST from a token stream using a hand-written
// recursive-descent / operator-precedence-climbing parser.
package parser

import (
	"strconv"

	"volta/internal/ast"
	"volta/internal/diagnostics"
	"volta/internal/lexer"
	"volta/internal/types"
)

// Parser consumes a flat token slice produced by the lexer and builds an
// ast.Program. Errors are reported to diag and parsing continues on a
// best-effort basis rather than aborting.
type Parser struct {
	tokens   []lexer.Token
	current  int
	diag     *diagnostics.Sink
	registry *types.Registry
}

// New returns a Parser over tokens, reporting errors to diag and resolving
// type names through registry.
func New(tokens []lexer.Token, diag *diagnostics.Sink, registry *types.Registry) *Parser {
	return &Parser{tokens: tokens, diag: diag, registry: registry}
}

// Parse runs the full grammar and returns the top-level program.
func (p *Parser) Parse() *ast.Program {
	prog := &ast.Program{}
	for !p.isAtEnd() {
		t := p.peek(0)
		switch {
		case t.Type == lexer.Function || (t.Type == lexer.Pub && p.peek(1).Type == lexer.Function):
			prog.Statements = append(prog.Statements, p.parseFnDef())
		case t.Type == lexer.Extern:
			prog.Statements = append(prog.Statements, p.parseExternBlock())
		case t.Type == lexer.Import:
			prog.Statements = append(prog.Statements, p.parseImportStmt())
		case t.Type == lexer.Struct || (t.Type == lexer.Pub && p.peek(1).Type == lexer.Struct):
			prog.Statements = append(prog.Statements, p.parseStructDecl())
		default:
			p.errorAt(t, "unrecognized top level statement")
			p.advance()
		}
	}
	return prog
}

// --- token-stream primitives ---

func (p *Parser) peek(offset int) lexer.Token {
	at := p.current + offset
	if at >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[at]
}

func (p *Parser) isAtEnd() bool {
	return p.peek(0).Type == lexer.EndOfFile
}

func (p *Parser) advance() lexer.Token {
	t := p.peek(0)
	if !p.isAtEnd() {
		p.current++
	}
	return t
}

func (p *Parser) previous() lexer.Token {
	return p.tokens[p.current-1]
}

func (p *Parser) check(tt lexer.TokenType, offset ...int) bool {
	o := 0
	if len(offset) > 0 {
		o = offset[0]
	}
	return p.peek(o).Type == tt
}

// consume requires the next token to be tt, reporting msg otherwise, and
// always advances — parsing continues best-effort rather than aborting.
func (p *Parser) consume(tt lexer.TokenType, msg string) lexer.Token {
	t := p.peek(0)
	if t.Type != tt {
		p.errorAt(t, "%s (got %s)", msg, t.Type)
	}
	return p.advance()
}

func (p *Parser) match(types ...lexer.TokenType) bool {
	for _, tt := range types {
		if p.check(tt) {
			p.advance()
			return true
		}
	}
	return false
}

func (p *Parser) errorAt(t lexer.Token, format string, args ...any) {
	p.diag.Errorf(t.Line, t.Column, format, args...)
}

func (p *Parser) isLiteralExpr() bool {
	switch p.peek(0).Type {
	case lexer.Integer, lexer.Float, lexer.String, lexer.True_, lexer.False_, lexer.Null:
		return true
	}
	return false
}

func posOf(t lexer.Token) ast.Pos { return ast.NewPos(t.Line, t.Column) }

// --- types ---

// parseType parses "[T; N]", "opaque", "ptr<T>", "Name<P, ...>" (generic),
// a known primitive/struct name, or falls back to an Unresolved descriptor
// for a forward struct reference.
func (p *Parser) parseType() *types.Type {
	if p.check(lexer.LSquare) {
		p.advance()
		elem := p.parseType()
		p.consume(lexer.Semicolon, "expect ';' in array type")

		negative := p.match(lexer.Minus)
		sizeTok := p.consume(lexer.Integer, "expect array size")
		size, _ := strconv.Atoi(sizeTok.Lexeme)
		if negative {
			size = -size
			p.errorAt(sizeTok, "array size cannot be negative")
			size = 1
		}
		if size <= 0 {
			p.errorAt(sizeTok, "array size must be positive")
			size = 1
		}
		p.consume(lexer.RSquare, "expect ']' after array type")
		arr, err := p.registry.GetArray(elem, size)
		if err != nil {
			p.errorAt(sizeTok, "%s", err)
			arr, _ = p.registry.GetArray(elem, 1)
		}
		return arr
	}

	if p.check(lexer.Opaque) {
		p.advance()
		return p.registry.GetOpaque()
	}

	if p.check(lexer.Identifier) {
		typeStr := p.advance().Lexeme

		if p.check(lexer.LessThan) {
			p.advance()
			params := []*types.Type{p.parseType()}
			for p.match(lexer.Comma) {
				params = append(params, p.parseType())
			}
			p.consume(lexer.GreaterThan, "expect '>' after type parameters")

			if typeStr == "ptr" {
				if len(params) != 1 {
					p.errorAt(p.peek(0), "ptr requires exactly one type parameter")
					return p.registry.GetPointer(p.registry.GetPrimitive(types.I32))
				}
				return p.registry.GetPointer(params[0])
			}
			return p.registry.GetGeneric(typeStr, params)
		}

		if parsed := p.registry.ParseTypeName(typeStr); parsed != nil {
			return parsed
		}
		return p.registry.GetUnresolved(typeStr)
	}

	p.errorAt(p.peek(0), "expected type")
	return p.registry.GetPrimitive(types.I32)
}

// --- top-level declarations ---

func (p *Parser) parseFnSignature() *ast.FnDecl {
	isPub := p.match(lexer.Pub)
	fnTok := p.consume(lexer.Function, "expect 'fn'")
	name := p.consume(lexer.Identifier, "expect function name")
	p.consume(lexer.LParen, "expect '(' after function name")

	var params []ast.Param
	hasSelf, hasMutSelf := false, false
	for !p.check(lexer.RParen) && !p.isAtEnd() {
		if p.check(lexer.Mut) && p.peek(1).Type == lexer.Self_ {
			p.advance()
			p.consume(lexer.Self_, "expect 'self'")
			hasSelf, hasMutSelf = true, true
			if !p.check(lexer.RParen) {
				p.consume(lexer.Comma, "expect ',' between parameters")
			}
			continue
		}
		if p.check(lexer.Self_) {
			p.advance()
			hasSelf = true
			if !p.check(lexer.RParen) {
				p.consume(lexer.Comma, "expect ',' between parameters")
			}
			continue
		}

		isRef, isMutRef := false, false
		if p.check(lexer.Mut) {
			p.advance()
			if p.check(lexer.Ref) {
				p.advance()
				isRef, isMutRef = true, true
			}
		} else if p.check(lexer.Ref) {
			p.advance()
			isRef = true
		}

		paramName := p.consume(lexer.Identifier, "expect parameter name")
		p.consume(lexer.Colon, "expect ':' after parameter name")

		if p.check(lexer.Mut) {
			p.advance()
			if p.check(lexer.Ref) {
				p.advance()
				isRef, isMutRef = true, true
			} else {
				isMutRef = true
			}
		} else if p.check(lexer.Ref) {
			p.advance()
			isRef = true
		}

		paramType := p.parseType()
		params = append(params, ast.Param{Name: paramName.Lexeme, Type: paramType, IsRef: isRef, IsMutRef: isMutRef})

		if !p.check(lexer.RParen) {
			p.consume(lexer.Comma, "expect ',' between parameters")
		}
	}
	p.consume(lexer.RParen, "expect ')' after parameters")

	returnType := p.registry.GetPrimitive(types.Void)
	if p.match(lexer.Arrow) {
		returnType = p.parseType()
	}

	return &ast.FnDecl{
		Base:       ast.Base{Pos: posOf(fnTok)},
		Name:       name.Lexeme,
		Params:     params,
		ReturnType: returnType,
		IsPublic:   isPub,
		HasSelf:    hasSelf,
		HasMutSelf: hasMutSelf,
	}
}

func (p *Parser) parseFnDef() ast.Stmt {
	fn := p.parseFnSignature()
	fn.Body = p.parseBody()
	return fn
}

func (p *Parser) parseStructDecl() ast.Stmt {
	isPublic := p.match(lexer.Pub)
	structTok := p.consume(lexer.Struct, "expect 'struct'")
	name := p.consume(lexer.Identifier, "expect struct name")
	p.consume(lexer.LBrace, "expect '{' after struct name")

	var fields []ast.StructField
	var methods []*ast.FnDecl

	for !p.check(lexer.RBrace) && !p.isAtEnd() {
		memberPublic := p.match(lexer.Pub)

		if p.check(lexer.Function) {
			method := p.parseFnSignature()
			method.IsPublic = memberPublic
			method.ReceiverStruct = name.Lexeme
			method.Body = p.parseBody()
			methods = append(methods, method)
			continue
		}

		fieldName := p.consume(lexer.Identifier, "expect field name")
		p.consume(lexer.Colon, "expect ':' after field name")
		fieldType := p.parseType()
		fields = append(fields, ast.StructField{IsPublic: memberPublic, Name: fieldName.Lexeme, Type: fieldType})
		if p.check(lexer.Comma) {
			p.advance()
		}
	}
	p.consume(lexer.RBrace, "expect '}' after struct body")

	return &ast.StructDecl{
		Base:     ast.Base{Pos: posOf(structTok)},
		IsPublic: isPublic,
		Name:     name.Lexeme,
		Fields:   fields,
		Methods:  methods,
	}
}

func (p *Parser) parseExternBlock() ast.Stmt {
	externTok := p.consume(lexer.Extern, "expect 'extern'")
	abiTok := p.consume(lexer.String, "expect ABI string")
	abi := unquote(abiTok.Lexeme)
	p.consume(lexer.LBrace, "expect '{' after ABI string")

	var decls []*ast.FnDecl
	for !p.check(lexer.RBrace) && !p.isAtEnd() {
		fn := p.parseFnSignature()
		fn.IsExtern = true
		p.consume(lexer.Semicolon, "expect ';' after extern signature")
		decls = append(decls, fn)
	}
	p.consume(lexer.RBrace, "expect '}' after extern block")

	return &ast.ExternBlock{Base: ast.Base{Pos: posOf(externTok)}, ABI: abi, Declarations: decls}
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

func (p *Parser) parseImportStmt() ast.Stmt {
	importTok := p.consume(lexer.Import, "expect 'import'")
	modulePath := p.consume(lexer.Identifier, "expect module name").Lexeme

	for p.check(lexer.Dot) && !p.isAtEnd() {
		if p.check(lexer.LBrace, 1) {
			p.advance()
			break
		}
		p.advance()
		modulePath += "."
		modulePath += p.consume(lexer.Identifier, "expect module path segment").Lexeme
	}

	p.consume(lexer.LBrace, "expect '{' in import statement")
	var names []string
	for !p.check(lexer.RBrace) && !p.isAtEnd() {
		names = append(names, p.consume(lexer.Identifier, "expect imported name").Lexeme)
		if !p.check(lexer.RBrace) {
			p.consume(lexer.Comma, "expect ',' between imported names")
		}
	}
	p.consume(lexer.RBrace, "expect '}' after imported names")
	p.consume(lexer.Semicolon, "expect ';' after import statement")

	return &ast.ImportStmt{Base: ast.Base{Pos: posOf(importTok)}, ModulePath: modulePath, ImportedNames: names}
}

// --- statements ---

func (p *Parser) parseBody() []ast.Stmt {
	p.consume(lexer.LBrace, "expect '{' to start body")
	var stmts []ast.Stmt
	for !p.check(lexer.RBrace) && !p.isAtEnd() {
		stmts = append(stmts, p.parseBodyStmt())
	}
	p.consume(lexer.RBrace, "expect '}' to end body")
	return stmts
}

func (p *Parser) parseBodyStmt() ast.Stmt {
	switch p.peek(0).Type {
	case lexer.Let:
		s := p.parseVarDecl()
		p.consume(lexer.Semicolon, "expect ';' after variable declaration")
		return s
	case lexer.Return:
		s := p.parseReturnStmt()
		p.consume(lexer.Semicolon, "expect ';' after return statement")
		return s
	case lexer.If:
		return p.parseIfStmt()
	case lexer.While:
		return p.parseWhileStmt()
	case lexer.Break:
		s := p.parseBreakStmt()
		p.consume(lexer.Semicolon, "expect ';' after break")
		return s
	case lexer.Continue:
		s := p.parseContinueStmt()
		p.consume(lexer.Semicolon, "expect ';' after continue")
		return s
	case lexer.For:
		return p.parseForStmt()
	case lexer.LBrace:
		return p.parseBlockStmt()
	default:
		s := p.parseExprStmt()
		p.consume(lexer.Semicolon, "expect ';' after expression statement")
		return s
	}
}

func (p *Parser) parseVarDecl() ast.Stmt {
	letTok := p.consume(lexer.Let, "expect 'let'")
	mutable := p.match(lexer.Mut)
	name := p.consume(lexer.Identifier, "expect variable name")

	var annotation *types.Type
	if p.match(lexer.Colon) {
		annotation = p.parseType()
	}

	var init ast.Expr
	if p.match(lexer.Assign) || p.match(lexer.InferAssign) {
		init = p.parseExpression()
	}

	return &ast.VarDecl{
		Base:       ast.Base{Pos: posOf(letTok)},
		Mutable:    mutable,
		Name:       name.Lexeme,
		Annotation: annotation,
		Init:       init,
	}
}

func (p *Parser) parseReturnStmt() ast.Stmt {
	retTok := p.consume(lexer.Return, "expect 'return'")
	var value ast.Expr
	if !p.check(lexer.Semicolon) {
		value = p.parseExpression()
	}
	return &ast.ReturnStmt{Base: ast.Base{Pos: posOf(retTok)}, Value: value}
}

func (p *Parser) parseIfStmt() ast.Stmt {
	ifTok := p.consume(lexer.If, "expect 'if'")
	cond := p.parseExpression()
	then := p.parseBody()

	var elseBody []ast.Stmt
	if p.match(lexer.Else) {
		if p.check(lexer.If) {
			elseBody = []ast.Stmt{p.parseIfStmt()}
		} else {
			elseBody = p.parseBody()
		}
	}

	return &ast.IfStmt{Base: ast.Base{Pos: posOf(ifTok)}, Condition: cond, Then: then, Else: elseBody}
}

func (p *Parser) parseWhileStmt() ast.Stmt {
	whileTok := p.consume(lexer.While, "expect 'while'")
	cond := p.parseExpression()
	body := p.parseBody()
	return &ast.WhileStmt{Base: ast.Base{Pos: posOf(whileTok)}, Condition: cond, Body: body}
}

func (p *Parser) parseForStmt() ast.Stmt {
	forTok := p.consume(lexer.For, "expect 'for'")
	varTok := p.consume(lexer.Identifier, "expect loop variable name")
	p.consume(lexer.In, "expect 'in' after loop variable")
	rangeExpr := p.parseRangeExpr()
	body := p.parseBody()

	return &ast.ForStmt{Base: ast.Base{Pos: posOf(forTok)}, VarName: varTok.Lexeme, Range: rangeExpr, Body: body}
}

func (p *Parser) parseBlockStmt() ast.Stmt {
	lbrace := p.peek(0)
	stmts := p.parseBody()
	return &ast.BlockStmt{Base: ast.Base{Pos: posOf(lbrace)}, Statements: stmts}
}

func (p *Parser) parseBreakStmt() ast.Stmt {
	t := p.consume(lexer.Break, "expect 'break'")
	return &ast.BreakStmt{Base: ast.Base{Pos: posOf(t)}}
}

func (p *Parser) parseContinueStmt() ast.Stmt {
	t := p.consume(lexer.Continue, "expect 'continue'")
	return &ast.ContinueStmt{Base: ast.Base{Pos: posOf(t)}}
}

// parseExprStmt parses a bare expression statement, recognizing assignment,
// compound-assignment, and increment/decrement forms after the fact: it
// parses a full expression first and then checks what follows. Compound
// assignment and increment/decrement apply only to plain variables; a bare
// "=" accepts any lvalue-shaped expression (Variable, IndexExpr, FieldAccess).
func (p *Parser) parseExprStmt() ast.Stmt {
	expr := p.parseExpression()
	exprPos := expr.Position()

	if p.match(lexer.Assign) {
		value := p.parseExpression()
		return &ast.ExprStmt{Base: ast.Base{Pos: exprPos}, Expr: &ast.Assignment{Base: ast.Base{Pos: exprPos}, LHS: expr, Value: value}}
	}

	if v, ok := expr.(*ast.Variable); ok {
		switch {
		case p.check(lexer.PlusEqual), p.check(lexer.MinusEqual), p.check(lexer.MultEqual),
			p.check(lexer.DivEqual), p.check(lexer.ModuloEqual):
			opTok := p.advance()
			value := p.parseExpression()
			return &ast.ExprStmt{Base: ast.Base{Pos: exprPos}, Expr: &ast.CompoundAssign{Base: ast.Base{Pos: exprPos}, Var: v, Op: opTok.Type, Value: value}}
		case p.match(lexer.Increment):
			return &ast.ExprStmt{Base: ast.Base{Pos: exprPos}, Expr: &ast.Increment{Base: ast.Base{Pos: exprPos}, Var: v}}
		case p.match(lexer.Decrement):
			return &ast.ExprStmt{Base: ast.Base{Pos: exprPos}, Expr: &ast.Decrement{Base: ast.Base{Pos: exprPos}, Var: v}}
		}
	}

	return &ast.ExprStmt{Base: ast.Base{Pos: exprPos}, Expr: expr}
}

// --- expressions, lowest to highest precedence ---
//
// expression -> logicalOr -> logicalAnd -> comparison -> addition -> term ->
// unary -> postfix -> primary, matching the grammar's fixed precedence
// ladder rather than a table-driven Pratt climb.

func (p *Parser) parseExpression() ast.Expr { return p.parseLogicalOr() }

func (p *Parser) parseLogicalOr() ast.Expr {
	left := p.parseLogicalAnd()
	for p.check(lexer.Or) {
		opTok := p.advance()
		right := p.parseLogicalAnd()
		left = &ast.Binary{Base: ast.Base{Pos: posOf(opTok)}, Op: opTok.Type, LHS: left, RHS: right}
	}
	return left
}

func (p *Parser) parseLogicalAnd() ast.Expr {
	left := p.parseComparison()
	for p.check(lexer.And) {
		opTok := p.advance()
		right := p.parseComparison()
		left = &ast.Binary{Base: ast.Base{Pos: posOf(opTok)}, Op: opTok.Type, LHS: left, RHS: right}
	}
	return left
}

func (p *Parser) parseComparison() ast.Expr {
	left := p.parseAddition()
	for p.check(lexer.EqualEqual) || p.check(lexer.NotEqual) || p.check(lexer.LessThan) ||
		p.check(lexer.LessEqual) || p.check(lexer.GreaterThan) || p.check(lexer.GreaterEqual) {
		opTok := p.advance()
		right := p.parseAddition()
		left = &ast.Binary{Base: ast.Base{Pos: posOf(opTok)}, Op: opTok.Type, LHS: left, RHS: right}
	}
	return left
}

func (p *Parser) parseAddition() ast.Expr {
	left := p.parseTerm()
	for p.check(lexer.Plus) || p.check(lexer.Minus) {
		opTok := p.advance()
		right := p.parseTerm()
		left = &ast.Binary{Base: ast.Base{Pos: posOf(opTok)}, Op: opTok.Type, LHS: left, RHS: right}
	}
	return left
}

func (p *Parser) parseTerm() ast.Expr {
	left := p.parseUnary()
	for p.check(lexer.Mult) || p.check(lexer.Div) || p.check(lexer.Modulo) {
		opTok := p.advance()
		right := p.parseUnary()
		left = &ast.Binary{Base: ast.Base{Pos: posOf(opTok)}, Op: opTok.Type, LHS: left, RHS: right}
	}
	return left
}

func (p *Parser) parseUnary() ast.Expr {
	if p.check(lexer.Minus) || p.check(lexer.Not) || p.check(lexer.Plus) {
		opTok := p.advance()
		operand := p.parseUnary()
		return &ast.Unary{Base: ast.Base{Pos: posOf(opTok)}, Op: opTok.Type, Operand: operand}
	}
	if p.check(lexer.AddrOf) {
		t := p.advance()
		operand := p.parseUnary()
		return &ast.AddrOf{Base: ast.Base{Pos: posOf(t)}, Operand: operand}
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() ast.Expr {
	expr := p.parsePrimary()
	for {
		switch {
		case p.check(lexer.LSquare):
			lsq := p.advance()
			index := p.parseExpression()
			p.consume(lexer.RSquare, "expect ']' after index")
			expr = &ast.IndexExpr{Base: ast.Base{Pos: posOf(lsq)}, Array: expr, Index: index}
		case p.check(lexer.Dot):
			dotTok := p.advance()
			member := p.consume(lexer.Identifier, "expect field or method name")
			if p.check(lexer.LParen) {
				p.advance()
				var args []ast.Expr
				if !p.check(lexer.RParen) {
					for {
						args = append(args, p.parseExpression())
						if !p.match(lexer.Comma) {
							break
						}
					}
				}
				p.consume(lexer.RParen, "expect ')' after arguments")
				expr = &ast.InstanceMethodCall{Base: ast.Base{Pos: posOf(dotTok)}, Object: expr, MethodName: member.Lexeme, Args: args}
			} else {
				expr = &ast.FieldAccess{Base: ast.Base{Pos: posOf(member)}, Object: expr, FieldName: member.Lexeme, FieldIndex: -1}
			}
		default:
			return expr
		}
	}
}

func (p *Parser) parseFunctionCall() ast.Expr {
	name := p.consume(lexer.Identifier, "expect function name")
	p.consume(lexer.LParen, "expect '(' after function name")
	var args []ast.Expr
	if !p.check(lexer.RParen) {
		for {
			args = append(args, p.parseExpression())
			if !p.match(lexer.Comma) {
				break
			}
		}
	}
	p.consume(lexer.RParen, "expect ')' after arguments")
	return &ast.FnCall{Base: ast.Base{Pos: posOf(name)}, Name: name.Lexeme, Args: args}
}

func (p *Parser) parsePrimary() ast.Expr {
	if p.isLiteralExpr() {
		t := p.advance()
		return &ast.Literal{Base: ast.Base{Pos: posOf(t)}, Token: t}
	}

	if p.check(lexer.Self_) {
		t := p.advance()
		return &ast.Variable{Base: ast.Base{Pos: posOf(t)}, Name: t.Lexeme}
	}

	if p.check(lexer.Identifier) {
		if p.check(lexer.DoubleColon, 1) {
			typeName := p.advance()
			p.consume(lexer.DoubleColon, "expect '::'")
			method := p.consume(lexer.Identifier, "expect method name")
			p.consume(lexer.LParen, "expect '(' after method name")
			var args []ast.Expr
			if !p.check(lexer.RParen) {
				for {
					args = append(args, p.parseExpression())
					if !p.match(lexer.Comma) {
						break
					}
				}
			}
			p.consume(lexer.RParen, "expect ')' after arguments")
			return &ast.StaticMethodCall{Base: ast.Base{Pos: posOf(typeName)}, TypeName: typeName.Lexeme, MethodName: method.Lexeme, Args: args}
		}

		if p.check(lexer.LParen, 1) {
			return p.parseFunctionCall()
		}

		// Struct literal heuristic: an identifier starting with an uppercase
		// letter followed by '{' is a struct literal, not a block; this keeps
		// "x and y {" from misparsing as a struct literal.
		if p.check(lexer.LBrace, 1) {
			ident := p.peek(0)
			if len(ident.Lexeme) > 0 && isUpper(ident.Lexeme[0]) {
				name := p.advance()
				return p.parseStructLiteral(name)
			}
		}

		t := p.advance()
		return &ast.Variable{Base: ast.Base{Pos: posOf(t)}, Name: t.Lexeme}
	}

	if p.match(lexer.LParen) {
		lparen := p.previous()
		expr := p.parseExpression()
		p.consume(lexer.RParen, "expect ')' after expression")
		return &ast.Grouping{Base: ast.Base{Pos: posOf(lparen)}, Inner: expr}
	}

	if p.check(lexer.LSquare) {
		return p.parseArrayLiteral()
	}

	t := p.peek(0)
	p.errorAt(t, "expected expression")
	return &ast.Literal{Base: ast.Base{Pos: posOf(t)}, Token: lexer.Token{Type: lexer.Integer, Lexeme: "0", Line: t.Line, Column: t.Column}}
}

func isUpper(b byte) bool { return b >= 'A' && b <= 'Z' }

func (p *Parser) parseArrayLiteral() ast.Expr {
	lsq := p.consume(lexer.LSquare, "expect '['")

	if p.check(lexer.RSquare) {
		p.advance()
		return &ast.ArrayLiteral{Base: ast.Base{Pos: posOf(lsq)}}
	}

	first := p.parseExpression()

	if p.match(lexer.Semicolon) {
		negative := p.match(lexer.Minus)
		countTok := p.consume(lexer.Integer, "expect array repeat count")
		count, _ := strconv.Atoi(countTok.Lexeme)
		if negative {
			count = -count
			p.errorAt(countTok, "array repeat count cannot be negative")
			count = 1
		}
		if count <= 0 {
			p.errorAt(countTok, "array repeat count must be positive")
			count = 1
		}
		p.consume(lexer.RSquare, "expect ']' after array literal")
		return &ast.ArrayLiteral{Base: ast.Base{Pos: posOf(lsq)}, RepeatValue: first, RepeatCount: count, HasRepeat: true}
	}

	elements := []ast.Expr{first}
	for p.match(lexer.Comma) {
		if p.check(lexer.RSquare) {
			break
		}
		elements = append(elements, p.parseExpression())
	}
	p.consume(lexer.RSquare, "expect ']' after array literal")
	return &ast.ArrayLiteral{Base: ast.Base{Pos: posOf(lsq)}, Elements: elements}
}

func (p *Parser) parseRangeExpr() *ast.Range {
	lhs := p.parseExpression()
	if !p.match(lexer.Range) && !p.match(lexer.InclusiveRange) {
		p.errorAt(p.peek(0), "expected range operator")
	}
	rangeTok := p.previous()
	inclusive := rangeTok.Type == lexer.InclusiveRange
	rhs := p.parseExpression()
	return &ast.Range{Base: ast.Base{Pos: posOf(rangeTok)}, From: lhs, To: rhs, Inclusive: inclusive}
}

func (p *Parser) parseStructLiteral(structName lexer.Token) ast.Expr {
	p.consume(lexer.LBrace, "expect '{' after struct name")

	var names []string
	var vals []ast.Expr

	for !p.check(lexer.RBrace) && !p.isAtEnd() {
		fieldName := p.consume(lexer.Identifier, "expect field name")
		p.consume(lexer.Colon, "expect ':' after field name")
		val := p.parseExpression()
		names = append(names, fieldName.Lexeme)
		vals = append(vals, val)
		if !p.match(lexer.Comma) {
			break
		}
	}
	p.consume(lexer.RBrace, "expect '}' after struct literal")

	return &ast.StructLiteral{Base: ast.Base{Pos: posOf(structName)}, StructName: structName.Lexeme, FieldNames: names, FieldVals: vals}
}
