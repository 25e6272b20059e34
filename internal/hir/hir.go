// Package hir lowers a parsed ast.Program into HIR form: the same
// expression/statement node types (so later phases can attach type
// information without cloning into a separate tree shape), but restricted to
// the narrower HIR statement discipline — for, match, and the
// compound-assignment/increment/decrement sugar never survive this pass.
//
// Lowering is one recursive walk with a type switch per node, in the same
// spirit as the rest of the pipeline: no visitor interface, just a function
// per node category.
package hir

import (
	"volta/internal/ast"
	"volta/internal/lexer"
	"volta/internal/types"
)

// Lowerer runs the desugaring pass. registry resolves and interns the
// flattened array types produced by multi-dimensional declarations;
// knownStructs reports whether a bare name already names a declared struct,
// used by the static-method-receiver rewrite.
type Lowerer struct {
	registry     *types.Registry
	knownStructs map[string]bool
}

// New returns a Lowerer backed by registry. The returned Lowerer scans prog's
// own top-level struct declarations in Lower, and additionally treats any
// name already registered in registry (e.g. from a struct declared in a
// module processed earlier in the build) as a struct.
func New(registry *types.Registry) *Lowerer {
	return &Lowerer{registry: registry, knownStructs: map[string]bool{}}
}

// Lower desugars prog in place conceptually, returning a new Program built
// from freshly cloned, lowered nodes.
func (l *Lowerer) Lower(prog *ast.Program) *ast.Program {
	for _, s := range prog.Statements {
		if sd, ok := s.(*ast.StructDecl); ok {
			l.knownStructs[sd.Name] = true
		}
	}

	out := &ast.Program{}
	for _, s := range prog.Statements {
		out.Statements = append(out.Statements, l.lowerStmt(s))
	}
	return out
}

func (l *Lowerer) isKnownStruct(name string) bool {
	return l.knownStructs[name] || l.registry.HasStruct(name)
}

func (l *Lowerer) lowerStmts(stmts []ast.Stmt) []ast.Stmt {
	if stmts == nil {
		return nil
	}
	out := make([]ast.Stmt, len(stmts))
	for i, s := range stmts {
		out[i] = l.lowerStmt(s)
	}
	return out
}

func (l *Lowerer) lowerStmt(s ast.Stmt) ast.Stmt {
	switch n := s.(type) {
	case *ast.FnDecl:
		return l.lowerFnDecl(n)
	case *ast.StructDecl:
		methods := make([]*ast.FnDecl, len(n.Methods))
		for i, m := range n.Methods {
			methods[i] = l.lowerFnDecl(m)
		}
		return &ast.StructDecl{Base: n.Base, IsPublic: n.IsPublic, Name: n.Name, Fields: n.Fields, Methods: methods}
	case *ast.ExternBlock:
		return n
	case *ast.ImportStmt:
		return n
	case *ast.VarDecl:
		return l.lowerVarDecl(n)
	case *ast.ReturnStmt:
		var v ast.Expr
		if n.Value != nil {
			v = l.lowerExpr(n.Value)
		}
		return &ast.ReturnStmt{Base: n.Base, Value: v}
	case *ast.IfStmt:
		return &ast.IfStmt{
			Base:      n.Base,
			Condition: l.lowerExpr(n.Condition),
			Then:      l.lowerStmts(n.Then),
			Else:      l.lowerStmts(n.Else),
		}
	case *ast.WhileStmt:
		return &ast.WhileStmt{
			Base:      n.Base,
			Condition: l.lowerExpr(n.Condition),
			Body:      l.lowerStmts(n.Body),
		}
	case *ast.ForStmt:
		return l.lowerForStmt(n)
	case *ast.BlockStmt:
		return &ast.BlockStmt{Base: n.Base, Statements: l.lowerStmts(n.Statements)}
	case *ast.BreakStmt:
		return n
	case *ast.ContinueStmt:
		return n
	case *ast.ExprStmt:
		return &ast.ExprStmt{Base: n.Base, Expr: l.lowerExpr(n.Expr)}
	default:
		return n
	}
}

func (l *Lowerer) lowerFnDecl(n *ast.FnDecl) *ast.FnDecl {
	return &ast.FnDecl{
		Base:           n.Base,
		Name:           n.Name,
		Params:         n.Params,
		ReturnType:     n.ReturnType,
		Body:           l.lowerStmts(n.Body),
		IsExtern:       n.IsExtern,
		IsPublic:       n.IsPublic,
		ReceiverStruct: n.ReceiverStruct,
		HasSelf:        n.HasSelf,
		HasMutSelf:     n.HasMutSelf,
	}
}

// lowerVarDecl lowers the initializer and, for a multi-dimensional array
// annotation, flattens the type to a single-dimension array of the total
// element count while recording the original dimension vector.
func (l *Lowerer) lowerVarDecl(n *ast.VarDecl) ast.Stmt {
	var init ast.Expr
	if n.Init != nil {
		init = l.lowerExpr(n.Init)
	}

	annotation := n.Annotation
	var dims []int
	if annotation != nil && annotation.Kind == types.KindArray {
		base, nested := flattenArrayDims(annotation)
		if len(nested) > 1 {
			total := 1
			for _, d := range nested {
				total *= d
			}
			flat, err := l.registry.GetArray(base, total)
			if err == nil {
				annotation = flat
				dims = nested
			}
		}
	}

	return &ast.VarDecl{
		Base:       n.Base,
		Mutable:    n.Mutable,
		Name:       n.Name,
		Annotation: annotation,
		Init:       init,
		Dims:       dims,
	}
}

// flattenArrayDims walks nested Array(Array(...)) types and returns the
// innermost element type plus the outer-to-inner dimension vector.
func flattenArrayDims(t *types.Type) (*types.Type, []int) {
	if t.Kind != types.KindArray {
		return t, nil
	}
	base, inner := flattenArrayDims(t.Element)
	return base, append([]int{t.Size}, inner...)
}

// lowerForStmt desugars "for i in a..b { body }" into:
//
//	{
//	  let mut i = a;
//	  while i < b {   // or i <= b for an inclusive range
//	    body
//	  } (increment: i = i + 1)
//	}
//
// The increment is carried on the WhileStmt's Increment slot rather than
// appended to the body so that HIR-to-MIR can place it after the body but
// before the condition re-check, and so "continue" can target it directly.
func (l *Lowerer) lowerForStmt(n *ast.ForStmt) ast.Stmt {
	from := l.lowerExpr(n.Range.From)
	to := l.lowerExpr(n.Range.To)
	body := l.lowerStmts(n.Body)

	loopVar := &ast.Variable{Base: n.Base, Name: n.VarName}

	decl := &ast.VarDecl{
		Base:    n.Base,
		Mutable: true,
		Name:    n.VarName,
		Init:    from,
	}

	cmpOp := lexer.LessThan
	if n.Range.Inclusive {
		cmpOp = lexer.LessEqual
	}
	cond := &ast.Binary{Base: n.Base, Op: cmpOp, LHS: &ast.Variable{Base: n.Base, Name: n.VarName}, RHS: to}

	increment := &ast.Assignment{
		Base: n.Base,
		LHS:  &ast.Variable{Base: n.Base, Name: n.VarName},
		Value: &ast.Binary{
			Base: n.Base,
			Op:   lexer.Plus,
			LHS:  loopVar,
			RHS:  &ast.Literal{Base: n.Base, Token: lexer.Token{Type: lexer.Integer, Lexeme: "1", Line: n.Base.Pos.Line, Column: n.Base.Pos.Column}},
		},
	}

	whileStmt := &ast.WhileStmt{Base: n.Base, Condition: cond, Body: body, Increment: increment}

	return &ast.BlockStmt{Base: n.Base, Statements: []ast.Stmt{decl, whileStmt}}
}

func (l *Lowerer) lowerExpr(e ast.Expr) ast.Expr {
	switch n := e.(type) {
	case *ast.Literal:
		return n
	case *ast.Variable:
		return n
	case *ast.Unary:
		return &ast.Unary{Base: n.Base, Op: n.Op, Operand: l.lowerExpr(n.Operand)}
	case *ast.Binary:
		return &ast.Binary{Base: n.Base, Op: n.Op, LHS: l.lowerExpr(n.LHS), RHS: l.lowerExpr(n.RHS)}
	case *ast.Grouping:
		return &ast.Grouping{Base: n.Base, Inner: l.lowerExpr(n.Inner)}
	case *ast.Assignment:
		return &ast.Assignment{Base: n.Base, LHS: l.lowerExpr(n.LHS), Value: l.lowerExpr(n.Value)}
	case *ast.CompoundAssign:
		return l.desugarCompoundAssign(n)
	case *ast.Increment:
		return l.desugarIncrDecr(n.Base, n.Var, lexer.Plus)
	case *ast.Decrement:
		return l.desugarIncrDecr(n.Base, n.Var, lexer.Minus)
	case *ast.FnCall:
		return &ast.FnCall{Base: n.Base, Name: n.Name, Args: l.lowerExprs(n.Args)}
	case *ast.StaticMethodCall:
		return &ast.StaticMethodCall{Base: n.Base, TypeName: n.TypeName, MethodName: n.MethodName, Args: l.lowerExprs(n.Args)}
	case *ast.InstanceMethodCall:
		return l.lowerInstanceMethodCall(n)
	case *ast.FieldAccess:
		return &ast.FieldAccess{
			Base:               n.Base,
			Object:             l.lowerExpr(n.Object),
			FieldName:          n.FieldName,
			ResolvedStructName: n.ResolvedStructName,
			FieldIndex:         n.FieldIndex,
		}
	case *ast.IndexExpr:
		return &ast.IndexExpr{Base: n.Base, Array: l.lowerExpr(n.Array), Index: l.lowerExpr(n.Index)}
	case *ast.ArrayLiteral:
		return l.lowerArrayLiteral(n)
	case *ast.StructLiteral:
		return &ast.StructLiteral{Base: n.Base, StructName: n.StructName, FieldNames: n.FieldNames, FieldVals: l.lowerExprs(n.FieldVals)}
	case *ast.AddrOf:
		return &ast.AddrOf{Base: n.Base, Operand: l.lowerExpr(n.Operand)}
	default:
		return n
	}
}

func (l *Lowerer) lowerExprs(exprs []ast.Expr) []ast.Expr {
	if exprs == nil {
		return nil
	}
	out := make([]ast.Expr, len(exprs))
	for i, e := range exprs {
		out[i] = l.lowerExpr(e)
	}
	return out
}

var compoundToBinaryOp = map[lexer.TokenType]lexer.TokenType{
	lexer.PlusEqual:   lexer.Plus,
	lexer.MinusEqual:  lexer.Minus,
	lexer.MultEqual:   lexer.Mult,
	lexer.DivEqual:    lexer.Div,
	lexer.ModuloEqual: lexer.Modulo,
}

// desugarCompoundAssign turns "x op= e" into "x = x op e".
func (l *Lowerer) desugarCompoundAssign(n *ast.CompoundAssign) ast.Expr {
	op := compoundToBinaryOp[n.Op]
	varCopy := &ast.Variable{Base: n.Var.Base, Name: n.Var.Name}
	value := l.lowerExpr(n.Value)
	return &ast.Assignment{
		Base: n.Base,
		LHS:  &ast.Variable{Base: n.Var.Base, Name: n.Var.Name},
		Value: &ast.Binary{
			Base: n.Base,
			Op:   op,
			LHS:  varCopy,
			RHS:  value,
		},
	}
}

// desugarIncrDecr turns "x++"/"x--" into "x = x + 1" / "x = x - 1".
func (l *Lowerer) desugarIncrDecr(pos ast.Base, v *ast.Variable, op lexer.TokenType) ast.Expr {
	one := &ast.Literal{Base: pos, Token: lexer.Token{Type: lexer.Integer, Lexeme: "1", Line: pos.Pos.Line, Column: pos.Pos.Column}}
	return &ast.Assignment{
		Base: pos,
		LHS:  &ast.Variable{Base: v.Base, Name: v.Name},
		Value: &ast.Binary{
			Base: pos,
			Op:   op,
			LHS:  &ast.Variable{Base: v.Base, Name: v.Name},
			RHS:  one,
		},
	}
}

// lowerInstanceMethodCall rewrites "Name.method(args)" into a
// StaticMethodCall when Name is a bare variable reference naming a declared
// struct, so later phases see Type.new(...)-shaped calls uniformly whether
// the source used "::" or ".".
func (l *Lowerer) lowerInstanceMethodCall(n *ast.InstanceMethodCall) ast.Expr {
	if v, ok := n.Object.(*ast.Variable); ok && l.isKnownStruct(v.Name) {
		return &ast.StaticMethodCall{Base: n.Base, TypeName: v.Name, MethodName: n.MethodName, Args: l.lowerExprs(n.Args)}
	}
	return &ast.InstanceMethodCall{Base: n.Base, Object: l.lowerExpr(n.Object), MethodName: n.MethodName, Args: l.lowerExprs(n.Args)}
}

// lowerArrayLiteral lowers children and, when the first element is itself an
// array literal, records the outer-then-inner dimension vector.
func (l *Lowerer) lowerArrayLiteral(n *ast.ArrayLiteral) ast.Expr {
	if n.HasRepeat {
		return &ast.ArrayLiteral{Base: n.Base, RepeatValue: l.lowerExpr(n.RepeatValue), RepeatCount: n.RepeatCount, HasRepeat: true}
	}

	elements := l.lowerExprs(n.Elements)
	out := &ast.ArrayLiteral{Base: n.Base, Elements: elements}

	if len(elements) > 0 {
		if inner, ok := elements[0].(*ast.ArrayLiteral); ok {
			dims := []int{len(elements)}
			if len(inner.Dimensions) > 0 {
				dims = append(dims, inner.Dimensions...)
			} else {
				dims = append(dims, len(inner.Elements))
			}
			out.Dimensions = dims
		}
	}

	return out
}
