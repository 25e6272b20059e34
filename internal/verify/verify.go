// Package verify checks a mir.Program for SSA and CFG well-formedness
// (spec.md §4.8) before it is handed to module merge or a backend. It
// never mutates the program; every violation goes through a diagnostic
// sink rather than a returned error, matching how every earlier phase
// reports problems.
package verify

import (
	"volta/internal/diagnostics"
	"volta/internal/mir"
)

// Verifier walks one mir.Program and reports every violation it finds to
// diag. A single Verifier instance may be reused across programs.
type Verifier struct {
	diag *diagnostics.Sink
}

// New returns a Verifier reporting to diag.
func New(diag *diagnostics.Sink) *Verifier {
	return &Verifier{diag: diag}
}

// Verify checks every function in p and reports whether the whole program
// passed (spec.md §4.8 "verify returns a boolean").
func (v *Verifier) Verify(p *mir.Program) bool {
	before := v.diag.ErrorCount()
	for _, fn := range p.Functions {
		v.verifyFunction(fn)
	}
	return v.diag.ErrorCount() == before
}

func (v *Verifier) errf(format string, args ...interface{}) {
	v.diag.Errorf(0, 0, format, args...)
}

func (v *Verifier) verifyFunction(fn *mir.Function) {
	if len(fn.Blocks) == 0 {
		// An empty block list means extern — accepted without further checks.
		return
	}
	if fn.Blocks[0].Label != "entry" {
		v.diag.Warning("function '"+fn.Name+"': first block is named '"+fn.Blocks[0].Label+"', not 'entry'", 0, 0)
	}

	labels := make(map[string]bool, len(fn.Blocks))
	for _, b := range fn.Blocks {
		if labels[b.Label] {
			v.errf("function '%s': duplicate block label '%s'", fn.Name, b.Label)
		}
		labels[b.Label] = true
	}

	defined := make(map[string]bool)
	for _, p := range fn.Params {
		defined[p.Value.Name] = true
	}

	for _, b := range fn.Blocks {
		v.verifyBlock(fn, b, defined, labels)
	}
}

func (v *Verifier) verifyBlock(fn *mir.Function, b *mir.BasicBlock, defined map[string]bool, labels map[string]bool) {
	for i, instr := range b.Instructions {
		for _, operand := range instr.Operands {
			v.checkOperandDefined(fn, b, operand, defined)
		}
		if instr.HasResult() {
			v.defineResult(fn, b, instr.Result, defined)
		}
		_ = i
	}

	if b.Term == nil {
		v.errf("function '%s': block '%s' has no terminator", fn.Name, b.Label)
		return
	}
	for _, operand := range b.Term.Operands {
		v.checkOperandDefined(fn, b, operand, defined)
	}
	v.verifyTerminator(fn, b, labels)
}

func (v *Verifier) checkOperandDefined(fn *mir.Function, b *mir.BasicBlock, operand mir.Value, defined map[string]bool) {
	if operand.Kind != mir.Local && operand.Kind != mir.Param {
		return
	}
	if !defined[operand.Name] {
		v.errf("function '%s': block '%s': use of '%s' before it is defined", fn.Name, b.Label, operand.Name)
	}
}

func (v *Verifier) defineResult(fn *mir.Function, b *mir.BasicBlock, result mir.Value, defined map[string]bool) {
	if defined[result.Name] {
		v.errf("function '%s': '%s' is defined more than once (SSA violation)", fn.Name, result.Name)
		return
	}
	defined[result.Name] = true
}

func (v *Verifier) verifyTerminator(fn *mir.Function, b *mir.BasicBlock, labels map[string]bool) {
	t := b.Term
	switch t.Kind {
	case mir.Return:
		if len(t.Operands) > 1 {
			v.errf("function '%s': block '%s': return has %d operands, expected 0 or 1", fn.Name, b.Label, len(t.Operands))
		}
		if len(t.Targets) != 0 {
			v.errf("function '%s': block '%s': return must have no branch targets", fn.Name, b.Label)
		}
	case mir.Branch:
		if len(t.Operands) != 0 {
			v.errf("function '%s': block '%s': branch must have no operands", fn.Name, b.Label)
		}
		if len(t.Targets) != 1 {
			v.errf("function '%s': block '%s': branch has %d targets, expected 1", fn.Name, b.Label, len(t.Targets))
		}
	case mir.CondBranch:
		if len(t.Operands) != 1 {
			v.errf("function '%s': block '%s': condbranch has %d operands, expected 1", fn.Name, b.Label, len(t.Operands))
		}
		if len(t.Targets) != 2 {
			v.errf("function '%s': block '%s': condbranch has %d targets, expected 2", fn.Name, b.Label, len(t.Targets))
		}
	case mir.Switch:
		if len(t.Targets) < 1 {
			v.errf("function '%s': block '%s': switch must have at least 1 target", fn.Name, b.Label)
		}
	case mir.Unreachable:
		if len(t.Operands) != 0 || len(t.Targets) != 0 {
			v.errf("function '%s': block '%s': unreachable must have no operands or targets", fn.Name, b.Label)
		}
	default:
		v.errf("function '%s': block '%s': unknown terminator kind %d", fn.Name, b.Label, int(t.Kind))
	}
	for _, target := range t.Targets {
		if !labels[target] {
			v.errf("function '%s': block '%s': branch target '%s' names no block in this function", fn.Name, b.Label, target)
		}
	}
}
