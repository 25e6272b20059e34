package driver

import (
	"github.com/google/uuid"

	"volta/internal/ast"
	"volta/internal/diagnostics"
)

// CompilationUnit is one module the driver is building: its module name
// (spec.md §6.2), its source text, and the diagnostic sink and parsed/
// lowered program it accumulates as it moves through the pipeline. The ID
// is session-scoped only — log correlation and diagstream routing, never
// compared for type identity (SPEC_FULL.md §3.7).
type CompilationUnit struct {
	ID     uuid.UUID
	Module string
	Source string

	Diag    *diagnostics.Sink
	Program *ast.Program // set once parsing succeeds; re-set by HIR lowering
}

// NewCompilationUnit returns a unit ready for the lex/parse phase.
func NewCompilationUnit(module, source string) *CompilationUnit {
	return &CompilationUnit{
		ID:     uuid.New(),
		Module: module,
		Source: source,
		Diag:   diagnostics.New(),
	}
}

// Imports returns the module names this unit's top-level import statements
// name, in source order, once Program has been parsed.
func (u *CompilationUnit) Imports() []string {
	if u.Program == nil {
		return nil
	}
	var out []string
	for _, stmt := range u.Program.Statements {
		if imp, ok := stmt.(*ast.ImportStmt); ok {
			out = append(out, imp.ModulePath)
		}
	}
	return out
}
