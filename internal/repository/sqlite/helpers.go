package sqlite

import (
	"database/sql"
	"time"

	"github.com/Masterminds/squirrel"
)

// Helper functions shared across repository implementations

var sqlBuilder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
