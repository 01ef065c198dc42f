// Package sheets defines the export ports the sync worker writes through.
// The google subpackage talks to Google Sheets; the memory subpackage
// backs tests.
package sheets

import (
	"context"

	"contas/internal/core"
)

// EntryWriter appends one ledger entry to the export destination and
// returns an opaque reference to where it landed.
type EntryWriter interface {
	Append(ctx context.Context, e core.Entry) (string, error)
}
