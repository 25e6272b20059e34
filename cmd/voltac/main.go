// cmd/voltac is a thin driver over internal/driver: read the named source
// files, compile them as one batch, print diagnostics. The CLI surface
// itself (flags, watch mode, REPL, ...) is out of scope for this core —
// this binary exists only to exercise the pipeline end to end.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"volta/internal/backend/llvmtarget"
	"volta/internal/driver"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: voltac <file.vlt>...")
		os.Exit(1)
	}

	sources := make(map[string]string, len(os.Args)-1)
	var order []string
	for _, path := range os.Args[1:] {
		name, err := moduleName(path)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "voltac: %s: %v\n", path, err)
			os.Exit(1)
		}
		sources[name] = string(data)
		order = append(order, name)
	}

	d, err := driver.New(driver.Options{Verbose: os.Getenv("VOLTAC_VERBOSE") != ""})
	if err != nil {
		fmt.Fprintln(os.Stderr, "voltac:", err)
		os.Exit(1)
	}
	defer d.Close()

	result, err := d.Compile(sources, order)
	if err != nil {
		fmt.Fprintln(os.Stderr, "voltac:", err)
		os.Exit(1)
	}
	for _, u := range result.Units {
		u.Diag.PrintAll(os.Stderr, u.Module)
	}

	fmt.Printf("compiled %d module(s), %d function(s)\n", len(order), len(result.Program.Functions))

	if os.Getenv("VOLTAC_EMIT_LLVM") != "" {
		mod, err := llvmtarget.New().Translate(result.Program)
		if err != nil {
			fmt.Fprintln(os.Stderr, "voltac: llvm translation:", err)
			os.Exit(1)
		}
		fmt.Println(mod)
	}
}

// moduleName applies spec.md §6.2's file-path-to-module-name rule: accept
// .vlt/.volta, strip the extension, drop a leading "./", replace "/" with
// ".".
func moduleName(path string) (string, error) {
	ext := filepath.Ext(path)
	if ext != ".vlt" && ext != ".volta" {
		return "", fmt.Errorf("voltac: %s: unsupported extension %q (expected .vlt or .volta)", path, ext)
	}
	trimmed := strings.TrimSuffix(path, ext)
	trimmed = strings.TrimPrefix(trimmed, "./")
	return strings.ReplaceAll(trimmed, "/", "."), nil
}
