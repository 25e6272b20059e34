package exports

import (
	"database/sql"
	"encoding/json"

	"github.com/pkg/errors"

	// Register every driver Kind below can select, mirroring
	// internal/database.DatabaseModule's blank-import pattern for
	// mysql/postgres/sqlite3/sqlserver.
	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Kind selects which database/sql driver SQLStore dials.
type Kind string

const (
	MySQL    Kind = "mysql"
	Postgres Kind = "postgres"
	SQLite3  Kind = "sqlite3"
	SQLServ  Kind = "sqlserver"
	ModernC  Kind = "sqlite" // modernc.org/sqlite, pure-Go, no cgo
)

// SQLStore persists module export tables across driver invocations so a
// large multi-module workspace doesn't re-derive every module's export
// table on each build. It never changes what gets compiled — a full
// rebuild still re-derives and overwrites every row (SPEC_FULL.md §4.10).
type SQLStore struct {
	db *sql.DB
}

// OpenSQLStore dials the driver named by kind with dsn and ensures the
// backing table exists.
func OpenSQLStore(kind Kind, dsn string) (*SQLStore, error) {
	db, err := sql.Open(string(kind), dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "exports: open %s store", kind)
	}
	if err := db.Ping(); err != nil {
		return nil, errors.Wrapf(err, "exports: ping %s store", kind)
	}
	s := &SQLStore{db: db}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) ensureSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS module_exports (
		module TEXT PRIMARY KEY,
		names_json TEXT NOT NULL
	)`)
	return errors.Wrap(err, "exports: create schema")
}

// sqlRow is the JSON payload stored per module: SQLStore only needs enough
// to answer Get's "does this name exist" / Suggest's "what's close" queries,
// not full *types.Type identity — type identity is always re-derived by a
// full rebuild, never read back from the store.
type sqlRow struct {
	Functions []string `json:"functions"`
	Structs   []string `json:"structs"`
}

func (s *SQLStore) Put(module string, exp *ModuleExports) error {
	row := sqlRow{}
	for name := range exp.Functions {
		row.Functions = append(row.Functions, name)
	}
	for name := range exp.Structs {
		row.Structs = append(row.Structs, name)
	}
	payload, err := json.Marshal(row)
	if err != nil {
		return errors.Wrap(err, "exports: marshal module row")
	}
	_, err = s.db.Exec(`INSERT INTO module_exports (module, names_json) VALUES (?, ?)
		ON CONFLICT(module) DO UPDATE SET names_json = excluded.names_json`, module, string(payload))
	return errors.Wrapf(err, "exports: put %s", module)
}

func (s *SQLStore) Get(module string) (*ModuleExports, bool, error) {
	var payload string
	err := s.db.QueryRow(`SELECT names_json FROM module_exports WHERE module = ?`, module).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "exports: get %s", module)
	}
	var row sqlRow
	if err := json.Unmarshal([]byte(payload), &row); err != nil {
		return nil, false, errors.Wrap(err, "exports: unmarshal module row")
	}
	exp := newModuleExports(module)
	// Signatures are not reconstructed here; a caller that needs a real
	// *symbols.FunctionSig re-runs semantic analysis. Get only answers
	// "is this module known" for driver bookkeeping and Suggest.
	for _, name := range row.Functions {
		exp.Functions[name] = nil
	}
	for _, name := range row.Structs {
		exp.Structs[name] = nil
	}
	return exp, true, nil
}

func (s *SQLStore) Suggest(module, badName string) (string, bool) {
	exp, ok, err := s.Get(module)
	if err != nil || !ok {
		return "", false
	}
	return suggest(badName, exp.Names())
}

// Close releases the underlying *sql.DB.
func (s *SQLStore) Close() error { return s.db.Close() }

var _ Store = (*SQLStore)(nil)
