// Package backend declares the contract a code generator implements to
// consume a verified MIR program (spec.md §1 scopes the backend itself
// out: "consume a verified MIR program" is the entire contract this core
// promises downstream). internal/backend/llvmtarget is the one concrete,
// deliberately partial adapter.
package backend

import "volta/internal/mir"

// Target turns a verified mir.Program into whatever form a concrete
// backend produces (an IR module, an object file, bytecode, ...). The
// core never inspects the return value; it is opaque to the pipeline.
type Target interface {
	Translate(prog *mir.Program) (interface{}, error)
}
