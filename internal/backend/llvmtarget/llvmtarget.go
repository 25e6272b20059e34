// Package llvmtarget is the one concrete backend.Target adapter shipped
// with this core: it walks a verified mir.Program and produces an
// *ir.Module carrying every function's *signature* (name, parameter
// types, return type, linkage) via github.com/llir/llvm. Instruction and
// terminator bodies are explicitly out of scope — spec.md §1 scopes the
// backend itself out ("consume a verified MIR program" is the whole
// contract), so TranslateInstruction is a named stub, not a cut corner.
package llvmtarget

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/enum"
	irtypes "github.com/llir/llvm/ir/types"

	"volta/internal/mir"
	"volta/internal/types"
)

// errNotImplemented is returned by TranslateInstruction for every opcode:
// this adapter never lowers an instruction body, only signatures.
var errNotImplemented = fmt.Errorf("llvmtarget: instruction-level lowering is not implemented")

// Target translates mir.Programs to LLVM IR modules. The zero value is
// ready to use; each call to Translate gets its own type cache so two
// concurrent translations never share mutable state.
type Target struct{}

// New returns a ready-to-use Target.
func New() *Target { return &Target{} }

// Translate builds an *ir.Module whose function count and per-function
// parameter/return types mirror prog's, with every function body empty
// (SPEC_FULL.md §8 property 8). The returned value satisfies
// backend.Target's interface{} return type.
func (t *Target) Translate(prog *mir.Program) (interface{}, error) {
	m := ir.NewModule()
	tc := newTypeCache(m)

	for _, fn := range prog.Functions {
		retType := tc.translate(fn.ReturnType)
		params := make([]*ir.Param, len(fn.Params))
		for i, p := range fn.Params {
			params[i] = ir.NewParam(p.Value.Name, tc.translate(p.Value.Type))
		}
		llvmFn := m.NewFunc(fn.Name, retType, params...)
		if fn.IsExtern {
			llvmFn.Linkage = enum.LinkageExternal
		}
		// No blocks are appended: a nil Blocks list marks llvmFn as a
		// declaration in llir/llvm's own model, matching an extern MIR
		// function, and intentionally leaves every non-extern function
		// bodyless too, since instruction lowering is out of scope.
	}
	return m, nil
}

// TranslateInstruction is the named scope boundary: lowering a single MIR
// instruction or terminator into LLVM IR is not implemented by this core.
func (t *Target) TranslateInstruction(instr mir.Instruction) error {
	return errNotImplemented
}

// typeCache memoizes *types.Type -> irtypes.Type translation and owns the
// module's named struct type definitions.
type typeCache struct {
	module *ir.Module
	cache  map[*types.Type]irtypes.Type
}

func newTypeCache(m *ir.Module) *typeCache {
	return &typeCache{module: m, cache: make(map[*types.Type]irtypes.Type)}
}

func (tc *typeCache) translate(t *types.Type) irtypes.Type {
	if t == nil {
		return irtypes.Void
	}
	if cached, ok := tc.cache[t]; ok {
		return cached
	}

	var out irtypes.Type
	switch t.Kind {
	case types.KindPrimitive:
		out = translatePrimitive(t.Primitive)
	case types.KindPointer:
		out = irtypes.NewPointer(tc.translate(t.Pointee))
	case types.KindArray:
		out = irtypes.NewArray(uint64(t.Size), tc.translate(t.Element))
	case types.KindStruct:
		// Register the named type before recursing into field types, so a
		// struct that embeds a pointer to itself terminates.
		named := tc.module.NewTypeDef(t.Name, irtypes.NewStruct())
		tc.cache[t] = named
		fieldTypes := make([]irtypes.Type, len(t.Fields))
		for i, f := range t.Fields {
			fieldTypes[i] = tc.translate(f.Type)
		}
		named.Typ = irtypes.NewStruct(fieldTypes...)
		return named
	default:
		// Opaque / unresolved / generic types never reach a verified MIR
		// program (spec.md §4.8's verifier runs after semantic analysis
		// has already rejected them); fall back to an opaque pointer.
		out = irtypes.NewPointer(irtypes.I8)
	}
	tc.cache[t] = out
	return out
}

func translatePrimitive(p types.PrimitiveKind) irtypes.Type {
	switch p {
	case types.I8, types.U8:
		return irtypes.I8
	case types.I16, types.U16:
		return irtypes.I16
	case types.I32, types.U32:
		return irtypes.I32
	case types.I64, types.U64:
		return irtypes.I64
	case types.F32:
		return irtypes.Float
	case types.F64:
		return irtypes.Double
	case types.Bool:
		return irtypes.I1
	case types.String:
		return irtypes.NewPointer(irtypes.I8)
	case types.Void:
		return irtypes.Void
	default:
		return irtypes.Void
	}
}
