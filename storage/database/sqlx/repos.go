package sqlxrepos

import (
	"database/sql"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
)

// trapNoRowsErr maps psql "no rows" err to notFound.
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// nullBytes sends a nil slice as NULL.
func nullBytes(b []byte) null.Bytes {
	return null.NewBytes(b, b != nil)
}
