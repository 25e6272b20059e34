// Package merge combines the per-module mir.Programs produced by lowering
// into the single mir.Program a backend consumes (spec.md §4.9). Modules
// are appended in the order the driver lowered them; each module's own
// function order is preserved. The only cross-module concern is the
// shared @volta_gc_malloc extern, which every module declares on its own
// and which must appear exactly once in the merged program.
package merge

import "volta/internal/mir"

// Merge appends the functions of each program in modules, in order, into
// one mir.Program. Duplicate extern declarations (by name) are
// de-duplicated — the first occurrence wins.
func Merge(modules []*mir.Program) *mir.Program {
	out := &mir.Program{}
	seenExtern := make(map[string]bool)

	for _, mod := range modules {
		for _, fn := range mod.Functions {
			if fn.IsExtern {
				if seenExtern[fn.Name] {
					continue
				}
				seenExtern[fn.Name] = true
			}
			out.AddFunction(fn)
		}
	}
	return out
}
