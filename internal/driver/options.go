package driver

// Options configures one driver invocation. It is loaded the same way the
// teacher's package manifest (internal/packages/module.go, sentra.mod) is:
// plain encoding/json, no config-file DSL.
type Options struct {
	// Verbose turns on per-phase progress logging.
	Verbose bool `json:"verbose"`
	// DiagstreamAddr, if non-empty, starts the optional websocket
	// diagnostics broadcaster on this address before compiling.
	DiagstreamAddr string `json:"diagstreamAddr,omitempty"`
	// ExportsDSN, if non-empty, backs the export table with a SQLStore
	// instead of the default MemoryStore. Format: "kind:dsn", e.g.
	// "sqlite3:exports.db".
	ExportsDSN string `json:"exportsDsn,omitempty"`
}
