package hir

import (
	"testing"

	"volta/internal/ast"
	"volta/internal/diagnostics"
	"volta/internal/lexer"
	"volta/internal/parser"
	"volta/internal/types"
)

func lower(t *testing.T, src string) *ast.Program {
	t.Helper()
	diag := diagnostics.New()
	registry := types.NewRegistry()
	tokens := lexer.NewScanner(src, diag).ScanTokens()
	prog := parser.New(tokens, diag, registry).Parse()
	if diag.HasErrors() {
		t.Fatalf("unexpected parse errors: %v", diag.All())
	}
	return New(registry).Lower(prog)
}

func fn(prog *ast.Program) *ast.FnDecl {
	return prog.Statements[0].(*ast.FnDecl)
}

func TestCompoundAssignDesugars(t *testing.T) {
	f := fn(lower(t, `fn f() { let mut x = 0; x += 1; }`))
	assign := f.Body[1].(*ast.ExprStmt).Expr.(*ast.Assignment)
	bin := assign.Value.(*ast.Binary)
	if bin.Op != lexer.Plus {
		t.Fatalf("expected Plus, got %v", bin.Op)
	}
	if _, ok := assign.LHS.(*ast.Variable); !ok {
		t.Fatalf("expected Variable LHS, got %T", assign.LHS)
	}
}

func TestIncrementDecrementDesugar(t *testing.T) {
	f := fn(lower(t, `fn f() { let mut x = 0; x++; x--; }`))
	inc := f.Body[1].(*ast.ExprStmt).Expr.(*ast.Assignment)
	if inc.Value.(*ast.Binary).Op != lexer.Plus {
		t.Fatalf("expected x++ to desugar to +, got %v", inc.Value.(*ast.Binary).Op)
	}
	dec := f.Body[2].(*ast.ExprStmt).Expr.(*ast.Assignment)
	if dec.Value.(*ast.Binary).Op != lexer.Minus {
		t.Fatalf("expected x-- to desugar to -, got %v", dec.Value.(*ast.Binary).Op)
	}
	lit := dec.Value.(*ast.Binary).RHS.(*ast.Literal)
	if lit.Token.Lexeme != "1" {
		t.Fatalf("expected literal 1, got %q", lit.Token.Lexeme)
	}
}

func TestForLoopDesugarsToWhile(t *testing.T) {
	f := fn(lower(t, `fn f() { for i in 0..10 { } }`))
	block := f.Body[0].(*ast.BlockStmt)
	if len(block.Statements) != 2 {
		t.Fatalf("expected [VarDecl, WhileStmt], got %d statements", len(block.Statements))
	}
	decl := block.Statements[0].(*ast.VarDecl)
	if !decl.Mutable || decl.Name != "i" {
		t.Fatalf("expected 'let mut i = 0;', got %+v", decl)
	}
	while := block.Statements[1].(*ast.WhileStmt)
	cond := while.Condition.(*ast.Binary)
	if cond.Op != lexer.LessThan {
		t.Fatalf("expected exclusive range to desugar to <, got %v", cond.Op)
	}
	if while.Increment == nil {
		t.Fatal("expected a desugared increment slot")
	}
}

func TestInclusiveForLoopUsesLessEqual(t *testing.T) {
	f := fn(lower(t, `fn f() { for i in 0..=10 { } }`))
	block := f.Body[0].(*ast.BlockStmt)
	while := block.Statements[1].(*ast.WhileStmt)
	if while.Condition.(*ast.Binary).Op != lexer.LessEqual {
		t.Fatalf("expected inclusive range to desugar to <=, got %v", while.Condition.(*ast.Binary).Op)
	}
}

func TestMultiDimensionalArrayDeclFlattensAndRecordsDims(t *testing.T) {
	f := fn(lower(t, `fn f() { let grid: [[i32; 3]; 4] = [[0;3];4]; }`))
	decl := f.Body[0].(*ast.VarDecl)
	if decl.Annotation.Kind != types.KindArray || decl.Annotation.Size != 12 {
		t.Fatalf("expected flattened [i32; 12], got %v", decl.Annotation)
	}
	if decl.Annotation.Element.Kind != types.KindPrimitive || decl.Annotation.Element.Primitive != types.I32 {
		t.Fatalf("expected flattened element type i32, got %v", decl.Annotation.Element)
	}
	if len(decl.Dims) != 2 || decl.Dims[0] != 4 || decl.Dims[1] != 3 {
		t.Fatalf("expected dims [4,3], got %v", decl.Dims)
	}
}

func TestNestedArrayLiteralRecordsDimensions(t *testing.T) {
	f := fn(lower(t, `fn f() { let a = [[1,2,3],[4,5,6]]; }`))
	decl := f.Body[0].(*ast.VarDecl)
	lit := decl.Init.(*ast.ArrayLiteral)
	if len(lit.Dimensions) != 2 || lit.Dimensions[0] != 2 || lit.Dimensions[1] != 3 {
		t.Fatalf("expected dimensions [2,3], got %v", lit.Dimensions)
	}
}

func TestFlatArrayLiteralHasNoDimensions(t *testing.T) {
	f := fn(lower(t, `fn f() { let a = [1,2,3]; }`))
	decl := f.Body[0].(*ast.VarDecl)
	lit := decl.Init.(*ast.ArrayLiteral)
	if lit.Dimensions != nil {
		t.Fatalf("expected no dimension vector for a flat literal, got %v", lit.Dimensions)
	}
}

func TestDotCallOnKnownStructRewritesToStaticMethodCall(t *testing.T) {
	prog := lower(t, `
struct Vec {
	len: i32,
}
fn f() { let v = Vec.new(); }`)
	f := prog.Statements[1].(*ast.FnDecl)
	decl := f.Body[0].(*ast.VarDecl)
	call, ok := decl.Init.(*ast.StaticMethodCall)
	if !ok {
		t.Fatalf("expected StaticMethodCall after rewrite, got %T", decl.Init)
	}
	if call.TypeName != "Vec" || call.MethodName != "new" {
		t.Fatalf("unexpected rewritten call: %+v", call)
	}
}

func TestDotCallOnPlainVariableStaysInstanceMethodCall(t *testing.T) {
	f := fn(lower(t, `fn f() { p.bump(); }`))
	if _, ok := f.Body[0].(*ast.ExprStmt).Expr.(*ast.InstanceMethodCall); !ok {
		t.Fatalf("expected InstanceMethodCall to survive for a non-struct variable, got %T", f.Body[0].(*ast.ExprStmt).Expr)
	}
}
