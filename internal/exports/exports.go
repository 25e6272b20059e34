// Package exports tracks, per module, which function and struct names a
// module declared `pub` and what callers importing them can expect to find
// (spec.md §6.3). It is consulted by the driver once per module after
// semantic analysis, before lowering the modules that import it.
package exports

import (
	"fmt"

	"volta/internal/symbols"
	"volta/internal/types"
)

// ExportedStruct describes a `pub struct` and the field/method types
// importers are allowed to see.
type ExportedStruct struct {
	Name string
	Type *types.Type
}

// ModuleExports is the full `pub` surface of one module.
type ModuleExports struct {
	Module    string
	Functions map[string]*symbols.FunctionSig
	Structs   map[string]*ExportedStruct
}

func newModuleExports(module string) *ModuleExports {
	return &ModuleExports{
		Module:    module,
		Functions: make(map[string]*symbols.FunctionSig),
		Structs:   make(map[string]*ExportedStruct),
	}
}

// Names returns every exported name in the module, functions and structs
// together, for "did you mean" suggestion and diagnostic listings.
func (m *ModuleExports) Names() []string {
	out := make([]string, 0, len(m.Functions)+len(m.Structs))
	for name := range m.Functions {
		out = append(out, name)
	}
	for name := range m.Structs {
		out = append(out, name)
	}
	return out
}

// CollectFromTable builds a ModuleExports for one module out of its own
// `pub`-marked top-level function names and struct names (the caller
// gathers these from that module's own AST, since the driver's
// SymbolTable is shared across the whole build and carries no per-module
// tag to filter by). Each name is resolved against table/registry to
// attach its full signature/type.
func CollectFromTable(module string, table *symbols.SymbolTable, registry *types.Registry, publicFunctions, publicStructs []string) *ModuleExports {
	exp := newModuleExports(module)
	for _, name := range publicFunctions {
		if sig, ok := table.LookupFunction(name); ok {
			exp.Functions[name] = sig
		}
	}
	for _, name := range publicStructs {
		if t := registry.GetStruct(name); t != nil {
			exp.Structs[name] = &ExportedStruct{Name: name, Type: t}
		}
	}
	return exp
}

// Store persists ModuleExports across driver invocations. MemoryStore is
// the default backend; SQLStore is a pluggable alternative for large
// multi-module workspaces (SPEC_FULL.md §4.10).
type Store interface {
	Put(module string, exports *ModuleExports) error
	Get(module string) (*ModuleExports, bool, error)
	Suggest(module, badName string) (closest string, ok bool)
}

// MemoryStore is an in-process, non-persistent Store. Every test in this
// repo uses MemoryStore; it is the default the driver constructs.
type MemoryStore struct {
	modules map[string]*ModuleExports
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{modules: make(map[string]*ModuleExports)}
}

func (s *MemoryStore) Put(module string, exports *ModuleExports) error {
	s.modules[module] = exports
	return nil
}

func (s *MemoryStore) Get(module string) (*ModuleExports, bool, error) {
	exp, ok := s.modules[module]
	return exp, ok, nil
}

func (s *MemoryStore) Suggest(module, badName string) (string, bool) {
	exp, ok := s.modules[module]
	if !ok {
		return "", false
	}
	return suggest(badName, exp.Names())
}

var _ Store = (*MemoryStore)(nil)
var _ fmt.Stringer = (*ModuleExports)(nil)

func (m *ModuleExports) String() string {
	return fmt.Sprintf("module %s (%d functions, %d structs)", m.Module, len(m.Functions), len(m.Structs))
}
