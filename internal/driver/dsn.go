package driver

import (
	"strings"

	"github.com/pkg/errors"

	"volta/internal/exports"
)

// splitDSN parses an Options.ExportsDSN value of the form "kind:dsn",
// e.g. "sqlite3:exports.db" or "postgres:host=localhost dbname=volta".
func splitDSN(s string) (exports.Kind, string, error) {
	kind, dsn, found := strings.Cut(s, ":")
	if !found {
		return "", "", errors.Errorf("driver: exportsDsn %q is missing a \"kind:\" prefix", s)
	}
	return exports.Kind(kind), dsn, nil
}
