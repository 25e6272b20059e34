package driver

import (
	"testing"

	"volta/internal/diagnostics"
	"volta/internal/sema"
)

func TestCompileSingleModuleProducesVerifiedProgram(t *testing.T) {
	d, err := New(Options{})
	if err != nil {
		t.Fatalf("unexpected error constructing driver: %v", err)
	}
	defer d.Close()

	sources := map[string]string{
		"main": `fn add(a: i32, b: i32) -> i32 { return a + b; }`,
	}
	result, err := d.Compile(sources, []string{"main"})
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}
	if result.Program.FindFunction("add") == nil {
		t.Fatal("expected the merged program to contain 'add'")
	}
	if result.Program.FindFunction("volta_gc_malloc") == nil {
		t.Fatal("expected the merged program to declare volta_gc_malloc exactly once")
	}
}

func TestCompileReportsParseErrors(t *testing.T) {
	d, err := New(Options{})
	if err != nil {
		t.Fatalf("unexpected error constructing driver: %v", err)
	}
	defer d.Close()

	sources := map[string]string{
		"broken": `fn add(a: i32, b: i32) -> i32 { return a + ; }`,
	}
	_, err = d.Compile(sources, []string{"broken"})
	if err == nil {
		t.Fatal("expected a compile error for malformed source")
	}
}

func TestCompileDetectsCircularImports(t *testing.T) {
	d, err := New(Options{})
	if err != nil {
		t.Fatalf("unexpected error constructing driver: %v", err)
	}
	defer d.Close()

	sources := map[string]string{
		"a": `import b {};` + "\n" + `fn f() {}`,
		"b": `import a {};` + "\n" + `fn g() {}`,
	}
	_, err = d.Compile(sources, []string{"a", "b"})
	if err == nil {
		t.Fatal("expected a circular import error")
	}
	if _, ok := err.(*CycleError); !ok {
		t.Fatalf("expected a *CycleError, got %T: %v", err, err)
	}
}

func TestCompileAcceptsValidImport(t *testing.T) {
	d, err := New(Options{})
	if err != nil {
		t.Fatalf("unexpected error constructing driver: %v", err)
	}
	defer d.Close()

	sources := map[string]string{
		"math": `pub fn add(a: i32, b: i32) -> i32 { return a + b; }`,
		"main": `import math { add };` + "\n" + `fn run() -> i32 { return add(1, 2); }`,
	}
	if _, err := d.Compile(sources, []string{"math", "main"}); err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}
}

func TestCompileRejectsUnexportedImport(t *testing.T) {
	d, err := New(Options{})
	if err != nil {
		t.Fatalf("unexpected error constructing driver: %v", err)
	}
	defer d.Close()

	sources := map[string]string{
		"math": `pub fn add(a: i32, b: i32) -> i32 { return a + b; }`,
		"main": `import math { subtract };` + "\n" + `fn run() -> i32 { return 0; }`,
	}
	_, err = d.Compile(sources, []string{"math", "main"})
	if err == nil {
		t.Fatal("expected a compile error for importing an unexported symbol")
	}
}

// TestValidateImportsSuggestsClosestExport exercises validateImports
// directly (rather than through Compile, which discards every unit's Diag
// on failure) to check the exact §6.3 diagnostic text, including the
// Levenshtein-suggested correction.
func TestValidateImportsSuggestsClosestExport(t *testing.T) {
	d, err := New(Options{})
	if err != nil {
		t.Fatalf("unexpected error constructing driver: %v", err)
	}
	defer d.Close()

	units := []*CompilationUnit{
		NewCompilationUnit("math", `pub fn add(a: i32, b: i32) -> i32 { return a + b; }`),
		NewCompilationUnit("main", "import math { subtract };\nfn run() -> i32 { return 0; }"),
	}
	if err := d.parseAll(units); err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	modules := d.hirLowerAll(units)

	semaDiag := diagnostics.New()
	analyzer := sema.New(d.registry, semaDiag)
	analyzer.Analyze(modules)
	if semaDiag.HasErrors() {
		t.Fatalf("unexpected sema error(s), count=%d", semaDiag.ErrorCount())
	}
	if err := d.recordExports(units, analyzer); err != nil {
		t.Fatalf("unexpected error recording exports: %v", err)
	}

	if err := d.validateImports(units); err == nil {
		t.Fatal("expected validateImports to fail on an unexported symbol")
	}

	want := "Symbol 'subtract' is not exported by module 'math'. Did you mean 'add'? Available exports: {add}"
	found := false
	for _, diag := range units[1].Diag.All() {
		if diag.Message == want {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected diagnostic %q on the importing unit, got %+v", want, units[1].Diag.All())
	}
}
