package parser

import (
	"testing"

	"volta/internal/ast"
	"volta/internal/diagnostics"
	"volta/internal/lexer"
	"volta/internal/types"
)

func parse(t *testing.T, src string) (*ast.Program, *diagnostics.Sink) {
	t.Helper()
	diag := diagnostics.New()
	scanner := lexer.NewScanner(src, diag)
	tokens := scanner.ScanTokens()
	registry := types.NewRegistry()
	prog := New(tokens, diag, registry).Parse()
	return prog, diag
}

func TestParseFnDeclWithParamsAndReturnType(t *testing.T) {
	prog, diag := parse(t, `fn add(a: i32, b: i32) -> i32 { return a + b; }`)
	if diag.HasErrors() {
		t.Fatalf("unexpected errors: %v", diag.All())
	}
	if len(prog.Statements) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(prog.Statements))
	}
	fn, ok := prog.Statements[0].(*ast.FnDecl)
	if !ok {
		t.Fatalf("expected *ast.FnDecl, got %T", prog.Statements[0])
	}
	if fn.Name != "add" || len(fn.Params) != 2 {
		t.Fatalf("unexpected fn shape: %+v", fn)
	}
	if fn.ReturnType.Kind != types.KindPrimitive || fn.ReturnType.Primitive != types.I32 {
		t.Fatalf("expected i32 return type, got %v", fn.ReturnType)
	}
	ret, ok := fn.Body[0].(*ast.ReturnStmt)
	if !ok {
		t.Fatalf("expected ReturnStmt, got %T", fn.Body[0])
	}
	if _, ok := ret.Value.(*ast.Binary); !ok {
		t.Fatalf("expected Binary return value, got %T", ret.Value)
	}
}

func TestParseSelfAndMutSelfParams(t *testing.T) {
	prog, diag := parse(t, `
struct Point {
	x: i32,
	fn bump(mut self) { self.x = self.x + 1; }
	fn get(self) -> i32 { return self.x; }
}`)
	if diag.HasErrors() {
		t.Fatalf("unexpected errors: %v", diag.All())
	}
	sd := prog.Statements[0].(*ast.StructDecl)
	if len(sd.Methods) != 2 {
		t.Fatalf("expected 2 methods, got %d", len(sd.Methods))
	}
	bump := sd.Methods[0]
	if !bump.HasSelf || !bump.HasMutSelf || len(bump.Params) != 0 {
		t.Fatalf("bump should have a mut self receiver and no explicit params, got %+v", bump)
	}
	get := sd.Methods[1]
	if !get.HasSelf || get.HasMutSelf || len(get.Params) != 0 {
		t.Fatalf("get should have a non-mut self receiver and no explicit params, got %+v", get)
	}
}

func TestParseRefAndMutRefParams(t *testing.T) {
	prog, diag := parse(t, `fn f(ref a: i32, mut ref b: i32) { }`)
	if diag.HasErrors() {
		t.Fatalf("unexpected errors: %v", diag.All())
	}
	fn := prog.Statements[0].(*ast.FnDecl)
	if !fn.Params[0].IsRef || fn.Params[0].IsMutRef {
		t.Fatalf("param a should be ref, not mut ref: %+v", fn.Params[0])
	}
	if !fn.Params[1].IsRef || !fn.Params[1].IsMutRef {
		t.Fatalf("param b should be mut ref: %+v", fn.Params[1])
	}
}

func TestParseArrayType(t *testing.T) {
	prog, diag := parse(t, `fn f(a: [i32; 4]) { }`)
	if diag.HasErrors() {
		t.Fatalf("unexpected errors: %v", diag.All())
	}
	fn := prog.Statements[0].(*ast.FnDecl)
	arr := fn.Params[0].Type
	if arr.Kind != types.KindArray || arr.Size != 4 {
		t.Fatalf("expected [i32;4], got %v", arr)
	}
}

func TestParseNonPositiveArraySizeRecovers(t *testing.T) {
	_, diag := parse(t, `fn f(a: [i32; 0]) { }`)
	if !diag.HasErrors() {
		t.Fatal("expected an error for a zero-sized array")
	}
}

func TestParsePointerType(t *testing.T) {
	prog, diag := parse(t, `fn f(a: ptr<i32>) { }`)
	if diag.HasErrors() {
		t.Fatalf("unexpected errors: %v", diag.All())
	}
	fn := prog.Statements[0].(*ast.FnDecl)
	if fn.Params[0].Type.Kind != types.KindPointer {
		t.Fatalf("expected pointer type, got %v", fn.Params[0].Type)
	}
}

func TestParseUnresolvedStructForwardReference(t *testing.T) {
	prog, diag := parse(t, `fn f(a: Node) { }`)
	if diag.HasErrors() {
		t.Fatalf("unexpected errors: %v", diag.All())
	}
	fn := prog.Statements[0].(*ast.FnDecl)
	if fn.Params[0].Type.Kind != types.KindUnresolved {
		t.Fatalf("expected an unresolved forward reference, got %v", fn.Params[0].Type)
	}
}

func TestParseForLoopOverRange(t *testing.T) {
	prog, diag := parse(t, `fn f() { for i in 0..10 { } }`)
	if diag.HasErrors() {
		t.Fatalf("unexpected errors: %v", diag.All())
	}
	fn := prog.Statements[0].(*ast.FnDecl)
	forStmt, ok := fn.Body[0].(*ast.ForStmt)
	if !ok {
		t.Fatalf("expected ForStmt, got %T", fn.Body[0])
	}
	if forStmt.VarName != "i" || forStmt.Range.Inclusive {
		t.Fatalf("unexpected for/range shape: %+v", forStmt)
	}
}

func TestParseInclusiveRange(t *testing.T) {
	prog, diag := parse(t, `fn f() { for i in 0..=10 { } }`)
	if diag.HasErrors() {
		t.Fatalf("unexpected errors: %v", diag.All())
	}
	fn := prog.Statements[0].(*ast.FnDecl)
	forStmt := fn.Body[0].(*ast.ForStmt)
	if !forStmt.Range.Inclusive {
		t.Fatal("expected an inclusive range")
	}
}

func TestParseCompoundAssignAndIncrementDecrement(t *testing.T) {
	prog, diag := parse(t, `fn f() { let mut x = 0; x += 1; x++; x--; }`)
	if diag.HasErrors() {
		t.Fatalf("unexpected errors: %v", diag.All())
	}
	fn := prog.Statements[0].(*ast.FnDecl)
	if _, ok := fn.Body[1].(*ast.ExprStmt).Expr.(*ast.CompoundAssign); !ok {
		t.Fatalf("expected CompoundAssign, got %T", fn.Body[1].(*ast.ExprStmt).Expr)
	}
	if _, ok := fn.Body[2].(*ast.ExprStmt).Expr.(*ast.Increment); !ok {
		t.Fatalf("expected Increment, got %T", fn.Body[2].(*ast.ExprStmt).Expr)
	}
	if _, ok := fn.Body[3].(*ast.ExprStmt).Expr.(*ast.Decrement); !ok {
		t.Fatalf("expected Decrement, got %T", fn.Body[3].(*ast.ExprStmt).Expr)
	}
}

func TestParseIndexAndFieldAssignment(t *testing.T) {
	prog, diag := parse(t, `fn f() { a[0] = 1; p.x = 2; }`)
	if diag.HasErrors() {
		t.Fatalf("unexpected errors: %v", diag.All())
	}
	fn := prog.Statements[0].(*ast.FnDecl)
	assign0 := fn.Body[0].(*ast.ExprStmt).Expr.(*ast.Assignment)
	if _, ok := assign0.LHS.(*ast.IndexExpr); !ok {
		t.Fatalf("expected IndexExpr LHS, got %T", assign0.LHS)
	}
	assign1 := fn.Body[1].(*ast.ExprStmt).Expr.(*ast.Assignment)
	if _, ok := assign1.LHS.(*ast.FieldAccess); !ok {
		t.Fatalf("expected FieldAccess LHS, got %T", assign1.LHS)
	}
}

func TestParseStructLiteralUppercaseHeuristic(t *testing.T) {
	prog, diag := parse(t, `fn f() { let p = Point { x: 1, y: 2 }; }`)
	if diag.HasErrors() {
		t.Fatalf("unexpected errors: %v", diag.All())
	}
	fn := prog.Statements[0].(*ast.FnDecl)
	decl := fn.Body[0].(*ast.VarDecl)
	lit, ok := decl.Init.(*ast.StructLiteral)
	if !ok {
		t.Fatalf("expected StructLiteral, got %T", decl.Init)
	}
	if lit.StructName != "Point" || len(lit.FieldNames) != 2 {
		t.Fatalf("unexpected struct literal: %+v", lit)
	}
}

func TestParseLowercaseBraceIsNotStructLiteral(t *testing.T) {
	prog, diag := parse(t, `fn f() { let point = point; { let x = 1; } }`)
	if diag.HasErrors() {
		t.Fatalf("unexpected errors: %v", diag.All())
	}
	fn := prog.Statements[0].(*ast.FnDecl)
	if _, ok := fn.Body[1].(*ast.BlockStmt); !ok {
		t.Fatalf("expected a plain BlockStmt, got %T", fn.Body[1])
	}
}

func TestParseStaticMethodCall(t *testing.T) {
	prog, diag := parse(t, `fn f() { let v = Vec::new(); }`)
	if diag.HasErrors() {
		t.Fatalf("unexpected errors: %v", diag.All())
	}
	fn := prog.Statements[0].(*ast.FnDecl)
	decl := fn.Body[0].(*ast.VarDecl)
	call, ok := decl.Init.(*ast.StaticMethodCall)
	if !ok {
		t.Fatalf("expected StaticMethodCall, got %T", decl.Init)
	}
	if call.TypeName != "Vec" || call.MethodName != "new" {
		t.Fatalf("unexpected static call: %+v", call)
	}
}

func TestParseInstanceMethodCallVsFieldAccess(t *testing.T) {
	prog, diag := parse(t, `fn f() { p.bump(); let x = p.x; }`)
	if diag.HasErrors() {
		t.Fatalf("unexpected errors: %v", diag.All())
	}
	fn := prog.Statements[0].(*ast.FnDecl)
	if _, ok := fn.Body[0].(*ast.ExprStmt).Expr.(*ast.InstanceMethodCall); !ok {
		t.Fatalf("expected InstanceMethodCall, got %T", fn.Body[0].(*ast.ExprStmt).Expr)
	}
	decl := fn.Body[1].(*ast.VarDecl)
	if _, ok := decl.Init.(*ast.FieldAccess); !ok {
		t.Fatalf("expected FieldAccess, got %T", decl.Init)
	}
}

func TestParseArrayLiteralElementsAndRepeat(t *testing.T) {
	prog, diag := parse(t, `fn f() { let a = [1, 2, 3]; let b = [0; 5]; }`)
	if diag.HasErrors() {
		t.Fatalf("unexpected errors: %v", diag.All())
	}
	fn := prog.Statements[0].(*ast.FnDecl)
	a := fn.Body[0].(*ast.VarDecl).Init.(*ast.ArrayLiteral)
	if len(a.Elements) != 3 || a.HasRepeat {
		t.Fatalf("unexpected element-list array literal: %+v", a)
	}
	b := fn.Body[1].(*ast.VarDecl).Init.(*ast.ArrayLiteral)
	if !b.HasRepeat || b.RepeatCount != 5 {
		t.Fatalf("unexpected repeat-form array literal: %+v", b)
	}
}

func TestParseExternBlock(t *testing.T) {
	prog, diag := parse(t, `extern "C" { fn malloc(size: i32) -> ptr<i32>; }`)
	if diag.HasErrors() {
		t.Fatalf("unexpected errors: %v", diag.All())
	}
	ext := prog.Statements[0].(*ast.ExternBlock)
	if ext.ABI != "C" || len(ext.Declarations) != 1 || !ext.Declarations[0].IsExtern {
		t.Fatalf("unexpected extern block: %+v", ext)
	}
}

func TestParseImportStmt(t *testing.T) {
	prog, diag := parse(t, `import std.io { print, read };`)
	if diag.HasErrors() {
		t.Fatalf("unexpected errors: %v", diag.All())
	}
	imp := prog.Statements[0].(*ast.ImportStmt)
	if imp.ModulePath != "std.io" || len(imp.ImportedNames) != 2 {
		t.Fatalf("unexpected import: %+v", imp)
	}
}

func TestParseElseIfChain(t *testing.T) {
	prog, diag := parse(t, `fn f() { if a { } else if b { } else { } }`)
	if diag.HasErrors() {
		t.Fatalf("unexpected errors: %v", diag.All())
	}
	fn := prog.Statements[0].(*ast.FnDecl)
	top := fn.Body[0].(*ast.IfStmt)
	nested, ok := top.Else[0].(*ast.IfStmt)
	if !ok {
		t.Fatalf("expected nested IfStmt for else-if, got %T", top.Else[0])
	}
	if nested.Else == nil {
		t.Fatal("expected a trailing else body on the nested if")
	}
}

func TestParseUnrecognizedTopLevelStatementRecovers(t *testing.T) {
	prog, diag := parse(t, `42; fn f() { }`)
	if !diag.HasErrors() {
		t.Fatal("expected an error for the unrecognized token")
	}
	found := false
	for _, s := range prog.Statements {
		if _, ok := s.(*ast.FnDecl); ok {
			found = true
		}
	}
	if !found {
		t.Fatal("parser should recover and still parse the following fn")
	}
}
