// Package driver orchestrates the eleven-component pipeline (spec.md §2)
// over a set of already-discovered source units: lex, parse, HIR-lower,
// analyze every module together, HIR-to-MIR lower each module, verify
// each module's MIR, then merge into one program. Source-file discovery
// (walking a directory tree for .vlt/.volta files) is explicitly the
// caller's job, not this package's (spec.md §1's scoping).
package driver

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"volta/internal/ast"
	"volta/internal/diagnostics"
	"volta/internal/diagstream"
	"volta/internal/exports"
	"volta/internal/hir"
	"volta/internal/lexer"
	"volta/internal/lowering"
	"volta/internal/merge"
	"volta/internal/mir"
	"volta/internal/parser"
	"volta/internal/sema"
	"volta/internal/types"
	"volta/internal/verify"
)

// Driver runs the pipeline over one registry shared by every module in the
// build (spec.md §5). The parser, semantic analysis and lowering all intern
// types into it.
type Driver struct {
	opts     Options
	log      *Logger
	registry *types.Registry
	store    exports.Store
	stream   *diagstream.Server
}

// New constructs a Driver. If opts.DiagstreamAddr is set, it starts the
// websocket broadcaster immediately; if opts.ExportsDSN is set
// ("kind:dsn"), it opens a SQLStore instead of the default MemoryStore.
func New(opts Options) (*Driver, error) {
	d := &Driver{
		opts:     opts,
		log:      NewLogger(os.Stderr, opts.Verbose),
		registry: types.NewRegistry(),
		store:    exports.NewMemoryStore(),
	}
	if opts.DiagstreamAddr != "" {
		d.stream = diagstream.New()
		if err := d.stream.Start(opts.DiagstreamAddr); err != nil {
			return nil, errors.Wrap(err, "driver: start diagnostics stream")
		}
	}
	if opts.ExportsDSN != "" {
		kind, dsn, err := splitDSN(opts.ExportsDSN)
		if err != nil {
			return nil, errors.Wrap(err, "driver: parse exportsDsn")
		}
		store, err := exports.OpenSQLStore(kind, dsn)
		if err != nil {
			return nil, errors.Wrap(err, "driver: open exports store")
		}
		d.store = store
	}
	return d, nil
}

// Close releases the driver's diagstream server, if any.
func (d *Driver) Close() error {
	if d.stream != nil {
		return d.stream.Stop()
	}
	return nil
}

// BuildResult is the outcome of compiling one batch of units.
type BuildResult struct {
	Program *mir.Program
	Units   []*CompilationUnit
}

// Compile runs the full pipeline over sources (module name -> source
// text), in the order given by moduleOrder. It returns the merged,
// verified MIR program, or an error if any unit fails a phase (diagnostic
// detail lives on each unit's Diag sink; the returned error is a
// phase-boundary summary, per SPEC_FULL.md §2's two-channel error split).
func (d *Driver) Compile(sources map[string]string, moduleOrder []string) (*BuildResult, error) {
	units := make([]*CompilationUnit, 0, len(moduleOrder))
	for _, mod := range moduleOrder {
		src, ok := sources[mod]
		if !ok {
			return nil, errors.Errorf("driver: module %q has no source", mod)
		}
		units = append(units, NewCompilationUnit(mod, src))
	}

	if err := d.parseAll(units); err != nil {
		return nil, err
	}

	graph := BuildImportGraph(units)
	if cycle := DetectCycle(graph, moduleOrder); cycle != nil {
		return nil, cycle
	}

	loweredModules := d.hirLowerAll(units)

	// sema.Analyze takes every module in the build as one batch (spec.md
	// §5: the registry and function/struct registries are shared across
	// the whole build), so it gets one sink rather than a per-unit one;
	// lex/parse, lowering, and verify each stay scoped to their own unit.
	semaDiag := diagnostics.New()
	analyzer := sema.New(d.registry, semaDiag)
	d.log.Phase("*", "sema")
	analyzer.Analyze(loweredModules)
	if semaDiag.HasErrors() {
		return nil, errors.Errorf("driver: semantic analysis failed with %d error(s)", semaDiag.ErrorCount())
	}

	if err := d.recordExports(units, analyzer); err != nil {
		return nil, err
	}

	if err := d.validateImports(units); err != nil {
		return nil, err
	}

	mirModules, err := d.lowerAll(units, loweredModules, analyzer)
	if err != nil {
		return nil, err
	}

	if err := d.verifyAll(units, mirModules); err != nil {
		return nil, err
	}

	merged := merge.Merge(mirModules)
	if d.stream != nil {
		d.stream.BroadcastSummary(0, 0)
	}
	return &BuildResult{Program: merged, Units: units}, nil
}

func (d *Driver) parseAll(units []*CompilationUnit) error {
	for _, u := range units {
		d.log.Phase(u.Module, "lex+parse")
		tokens := lexer.NewScanner(u.Source, u.Diag).ScanTokens()
		u.Program = parser.New(tokens, u.Diag, d.registry).Parse()
		d.streamDiagnostics(u, "parse")
	}
	return d.collectErrors(units)
}

func (d *Driver) hirLowerAll(units []*CompilationUnit) []*ast.Program {
	modules := make([]*ast.Program, len(units))
	for i, u := range units {
		d.log.Phase(u.Module, "hir")
		lowerer := hir.New(d.registry)
		u.Program = lowerer.Lower(u.Program)
		modules[i] = u.Program
	}
	return modules
}

func (d *Driver) recordExports(units []*CompilationUnit, analyzer *sema.Analyzer) error {
	for _, u := range units {
		var publicFunctions, publicStructs []string
		for _, stmt := range u.Program.Statements {
			switch v := stmt.(type) {
			case *ast.FnDecl:
				if v.IsPublic {
					publicFunctions = append(publicFunctions, v.Name)
				}
			case *ast.StructDecl:
				if v.IsPublic {
					publicStructs = append(publicStructs, v.Name)
				}
			}
		}
		exp := exports.CollectFromTable(u.Module, analyzer.Table(), d.registry, publicFunctions, publicStructs)
		if err := d.store.Put(u.Module, exp); err != nil {
			return errors.Wrapf(err, "driver: record exports for %q", u.Module)
		}
	}
	return nil
}

// validateImports checks every import statement against the export table
// recorded above (spec.md §6.3): the imported module must exist in this
// build, and every named symbol must be among its `pub` exports. A missing
// symbol is reported with the module's full export list and, when close
// enough, a Levenshtein-suggested correction (spec.md's testable scenario:
// `Symbol 'subtract' is not exported by module 'math'. Did you mean 'add'?
// Available exports: {add}`).
func (d *Driver) validateImports(units []*CompilationUnit) error {
	for _, u := range units {
		for _, stmt := range u.Program.Statements {
			imp, ok := stmt.(*ast.ImportStmt)
			if !ok {
				continue
			}
			exp, found, err := d.store.Get(imp.ModulePath)
			if err != nil {
				return errors.Wrapf(err, "driver: look up exports for %q", imp.ModulePath)
			}
			if !found {
				u.Diag.Errorf(imp.Pos.Line, imp.Pos.Column, "module '%s' is not part of this build", imp.ModulePath)
				continue
			}
			for _, name := range imp.ImportedNames {
				if _, ok := exp.Functions[name]; ok {
					continue
				}
				if _, ok := exp.Structs[name]; ok {
					continue
				}
				msg := fmt.Sprintf("Symbol '%s' is not exported by module '%s'.", name, imp.ModulePath)
				if closest, ok := d.store.Suggest(imp.ModulePath, name); ok {
					msg += fmt.Sprintf(" Did you mean '%s'?", closest)
				}
				msg += fmt.Sprintf(" Available exports: %s", formatExportSet(exp.Names()))
				u.Diag.Errorf(imp.Pos.Line, imp.Pos.Column, "%s", msg)
			}
		}
	}
	return d.collectErrors(units)
}

// formatExportSet renders a module's export names as the "{a, b, c}" set
// notation spec.md's diagnostics use, sorted for deterministic output.
func formatExportSet(names []string) string {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	return "{" + strings.Join(sorted, ", ") + "}"
}

func (d *Driver) lowerAll(units []*CompilationUnit, modules []*ast.Program, analyzer *sema.Analyzer) ([]*mir.Program, error) {
	out := make([]*mir.Program, len(units))
	for i, u := range units {
		d.log.Phase(u.Module, "lowering")
		l := lowering.New(d.registry, analyzer.Table(), analyzer.ExprTypes(), u.Diag)
		out[i] = l.Lower(modules[i])
		d.streamDiagnostics(u, "lowering")
	}
	return out, d.collectErrors(units)
}

func (d *Driver) verifyAll(units []*CompilationUnit, programs []*mir.Program) error {
	for i, u := range units {
		d.log.Phase(u.Module, "verify")
		if !verify.New(u.Diag).Verify(programs[i]) {
			d.streamDiagnostics(u, "verify")
		}
	}
	return d.collectErrors(units)
}

func (d *Driver) streamDiagnostics(u *CompilationUnit, phase string) {
	if d.stream == nil {
		return
	}
	for _, diag := range u.Diag.All() {
		d.stream.BroadcastDiagnostic(phase, diag)
	}
}

func (d *Driver) collectErrors(units []*CompilationUnit) error {
	for _, u := range units {
		if u.Diag.HasErrors() {
			return errors.Errorf("driver: module %q failed with %d error(s)", u.Module, u.Diag.ErrorCount())
		}
	}
	return nil
}
