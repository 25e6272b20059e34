package lowering

import (
	"testing"

	"volta/internal/ast"
	"volta/internal/diagnostics"
	"volta/internal/hir"
	"volta/internal/lexer"
	"volta/internal/mir"
	"volta/internal/parser"
	"volta/internal/sema"
	"volta/internal/types"
)

func lower(t *testing.T, src string) *mir.Program {
	t.Helper()
	diag := diagnostics.New()
	registry := types.NewRegistry()
	tokens := lexer.NewScanner(src, diag).ScanTokens()
	prog := parser.New(tokens, diag, registry).Parse()
	if diag.HasErrors() {
		t.Fatalf("unexpected parse errors: %v", diag.All())
	}
	lowered := hir.New(registry).Lower(prog)
	analyzer := sema.New(registry, diag)
	analyzer.Analyze([]*ast.Program{lowered})
	if diag.HasErrors() {
		t.Fatalf("unexpected sema errors: %v", diag.All())
	}
	l := New(registry, analyzer.Table(), analyzer.ExprTypes(), diag)
	out := l.Lower(lowered)
	if diag.HasErrors() {
		t.Fatalf("unexpected lowering errors: %v", diag.All())
	}
	return out
}

func findFn(t *testing.T, p *mir.Program, name string) *mir.Function {
	t.Helper()
	fn := p.FindFunction(name)
	if fn == nil {
		t.Fatalf("function %q not found in program", name)
	}
	return fn
}

func TestMallocDeclAlwaysPresent(t *testing.T) {
	p := lower(t, `fn f() {}`)
	fn := findFn(t, p, "volta_gc_malloc")
	if !fn.IsExtern {
		t.Fatal("expected volta_gc_malloc to be an extern declaration")
	}
}

func TestSimpleFunctionHasEntryBlockAndReturn(t *testing.T) {
	p := lower(t, `fn add(a: i32, b: i32) -> i32 { return a + b; }`)
	fn := findFn(t, p, "add")
	if fn.Entry() == nil || fn.Entry().Label != "entry" {
		t.Fatal("expected an 'entry' block")
	}
	term := fn.Entry().Term
	if term == nil || term.Kind != mir.Return || len(term.Operands) != 1 {
		t.Fatalf("expected a single-value return terminator, got %+v", term)
	}
}

func TestMutableLocalGetsAllocaAndStore(t *testing.T) {
	p := lower(t, `fn f() { let mut x = 1; x = 2; }`)
	fn := findFn(t, p, "f")
	var sawAlloca, sawStore int
	for _, instr := range fn.Entry().Instructions {
		if instr.Op == mir.Alloca {
			sawAlloca++
		}
		if instr.Op == mir.Store {
			sawStore++
		}
	}
	if sawAlloca != 1 {
		t.Fatalf("expected exactly one Alloca for the mutable local, got %d", sawAlloca)
	}
	if sawStore != 2 {
		t.Fatalf("expected two Stores (init + reassignment), got %d", sawStore)
	}
}

func TestImmutableScalarGetsNoAlloca(t *testing.T) {
	p := lower(t, `fn f() -> i32 { let x = 1; return x; }`)
	fn := findFn(t, p, "f")
	for _, instr := range fn.Entry().Instructions {
		if instr.Op == mir.Alloca {
			t.Fatal("expected no Alloca for an immutable scalar local")
		}
	}
}

func TestIfWithBothBranchesReturningOmitsMergeBlock(t *testing.T) {
	p := lower(t, `fn f(x: bool) -> i32 { if x { return 1; } else { return 2; } }`)
	fn := findFn(t, p, "f")
	for _, b := range fn.Blocks {
		if b.Label == "if.merge.1" {
			t.Fatal("expected no merge block when both if/else branches terminate")
		}
	}
}

func TestIfWithoutElseHasMergeBlock(t *testing.T) {
	p := lower(t, `fn f(x: bool) { if x { let y = 1; } }`)
	fn := findFn(t, p, "f")
	found := false
	for _, b := range fn.Blocks {
		if b.Label == "if.merge.1" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected an if.merge.1 block")
	}
}

func TestWhileLoopBlockStructure(t *testing.T) {
	p := lower(t, `fn f() { let mut i = 0; while i < 10 { i = i + 1; } }`)
	fn := findFn(t, p, "f")
	labels := map[string]bool{}
	for _, b := range fn.Blocks {
		labels[b.Label] = true
	}
	for _, want := range []string{"while.cond.1", "while.body.1", "while.end.1"} {
		if !labels[want] {
			t.Fatalf("expected block %q, got blocks %v", want, labels)
		}
	}
}

func TestBreakBranchesToLoopEnd(t *testing.T) {
	p := lower(t, `fn f() { while true { break; } }`)
	fn := findFn(t, p, "f")
	for _, b := range fn.Blocks {
		if b.Label == "while.body.1" {
			if b.Term == nil || b.Term.Kind != mir.Branch || b.Term.Targets[0] != "while.end.1" {
				t.Fatalf("expected break to branch to while.end.1, got %+v", b.Term)
			}
		}
	}
}

func TestMethodIsNamedWithDoubleUnderscore(t *testing.T) {
	p := lower(t, `
struct Counter {
	n: i32,
	fn bump(mut self) { self.n = self.n + 1; }
}
fn f() {}`)
	findFn(t, p, "Counter__bump")
}

func TestStructLiteralAllocatesAndStoresFields(t *testing.T) {
	p := lower(t, `
struct Point {
	x: i32,
	y: i32,
}
fn f() -> Point { return Point { x: 1, y: 2 }; }`)
	fn := findFn(t, p, "f")
	var sawMalloc, sawFieldStore int
	for _, instr := range fn.Entry().Instructions {
		if instr.Op == mir.Call && instr.CallTarget == mallocName {
			sawMalloc++
		}
		if instr.Op == mir.Store {
			sawFieldStore++
		}
	}
	if sawMalloc != 1 {
		t.Fatalf("expected one malloc call for the struct literal, got %d", sawMalloc)
	}
	if sawFieldStore != 2 {
		t.Fatalf("expected two field stores, got %d", sawFieldStore)
	}
}

func TestRefParameterIsPassedAsPointer(t *testing.T) {
	p := lower(t, `
fn bump(ref x: i32) {}
fn f() { let y = 1; bump(y); }`)
	fn := findFn(t, p, "bump")
	if fn.Params[0].Value.Type.Kind != types.KindPointer {
		t.Fatalf("expected a ref parameter to be pointer-typed, got %v", fn.Params[0].Value.Type)
	}
}

func TestArgumentWideningInsertsConversion(t *testing.T) {
	p := lower(t, `
fn takeI64(x: i64) {}
fn f() { let x: i32 = 1; takeI64(x); }`)
	fn := findFn(t, p, "f")
	sawExt := false
	for _, instr := range fn.Entry().Instructions {
		if instr.Op == mir.SExt {
			sawExt = true
		}
	}
	if !sawExt {
		t.Fatal("expected a SExt conversion widening the i32 argument to i64")
	}
}

func TestFlattenedArrayChainedIndexComputesOneRowMajorOffset(t *testing.T) {
	p := lower(t, `
fn f() -> i32 {
	let m: [[i32;3];2] = [[1, 2, 3], [4, 5, 6]];
	let mut i = 0;
	let mut j = 0;
	return m[i][j];
}`)
	fn := findFn(t, p, "f")
	var geps, muls, adds int
	for _, instr := range fn.Entry().Instructions {
		switch instr.Op {
		case mir.GetElementPtr:
			geps++
		case mir.IMul:
			muls++
		case mir.IAdd:
			adds++
		}
	}
	// 6 GEPs writing the literal's leaves in row-major order into one flat
	// buffer, plus exactly 1 GEP for the m[i][j] chain computed as a single
	// combined offset rather than two chained per-level GetElementPtrs.
	if geps != 7 {
		t.Fatalf("expected 7 GetElementPtr instructions (6 literal writes + 1 chained index), got %d", geps)
	}
	if muls != 1 {
		t.Fatalf("expected exactly one multiply computing the row stride, got %d", muls)
	}
	if adds != 1 {
		t.Fatalf("expected exactly one add combining the row and column offsets, got %d", adds)
	}
}

func TestNestedArrayLiteralWritesLeavesIntoOneBuffer(t *testing.T) {
	p := lower(t, `
fn f() -> i32 {
	let m: [[i32;3];2] = [[1, 2, 3], [4, 5, 6]];
	return m[0][0];
}`)
	fn := findFn(t, p, "f")
	var mallocs, stores int
	for _, instr := range fn.Entry().Instructions {
		if instr.Op == mir.Call && instr.CallTarget == mallocName {
			mallocs++
		}
		if instr.Op == mir.Store {
			stores++
		}
	}
	if mallocs != 1 {
		t.Fatalf("expected exactly one heap allocation backing the whole flattened literal, got %d", mallocs)
	}
	if stores < 6 {
		t.Fatalf("expected at least 6 stores, one per leaf element, got %d", stores)
	}
}

func TestOrdinaryArrayIndexStillUsesPerLevelGEP(t *testing.T) {
	p := lower(t, `
fn f() -> i32 {
	let a = [1, 2, 3];
	let i = 0;
	return a[i];
}`)
	fn := findFn(t, p, "f")
	geps := 0
	for _, instr := range fn.Entry().Instructions {
		if instr.Op == mir.GetElementPtr {
			geps++
		}
	}
	if geps != 4 {
		t.Fatalf("expected 4 GetElementPtr instructions (3 literal writes + 1 index), got %d", geps)
	}
}
