package driver

import "strings"

// ImportGraph is an adjacency list of module name -> the modules it
// imports, built from the driver's already-parsed CompilationUnits. This
// is the concrete component the distilled spec states only the contract
// for (spec.md §6.4, "Detected by DFS over the import graph"); it is
// grounded on original_source's separate ImportResolver, which performs
// the same DFS over an explicit graph built from parsed modules' import
// statements. Source-file discovery is not this component's job — it
// operates over the in-memory set of units the driver was given.
type ImportGraph map[string][]string

// BuildImportGraph builds the graph from a set of already-parsed units.
func BuildImportGraph(units []*CompilationUnit) ImportGraph {
	g := make(ImportGraph, len(units))
	for _, u := range units {
		g[u.Module] = u.Imports()
	}
	return g
}

// CycleError names the full import chain a cycle was detected along,
// e.g. "a -> b -> c -> a" (spec.md §6.4: "any cycle is a hard error naming
// the full chain").
type CycleError struct {
	Chain []string
}

func (e *CycleError) Error() string {
	return "circular import: " + strings.Join(e.Chain, " -> ")
}

// DetectCycle runs a DFS from each module of order in turn, following each
// module's imports in the order g lists them, and returns the first cycle
// found, or nil if the graph is acyclic. The traversal, and so the reported
// cycle, depends only on order and g, never on map iteration order.
func DetectCycle(g ImportGraph, order []string) *CycleError {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(g))
	var stack []string

	var visit func(module string) *CycleError
	visit = func(module string) *CycleError {
		switch state[module] {
		case done:
			return nil
		case visiting:
			start := indexOf(stack, module)
			chain := append(append([]string{}, stack[start:]...), module)
			return &CycleError{Chain: chain}
		}
		state[module] = visiting
		stack = append(stack, module)
		for _, dep := range g[module] {
			if err := visit(dep); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		state[module] = done
		return nil
	}

	for _, module := range order {
		if err := visit(module); err != nil {
			return err
		}
	}
	return nil
}

func indexOf(s []string, v string) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return 0
}

// FormatChain is a convenience for driver-level logging of a cycle without
// constructing a full error.
func FormatChain(chain []string) string {
	return strings.Join(chain, " -> ")
}
