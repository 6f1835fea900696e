package storage

import (
	"strings"

	_ "modernc.org/sqlite"
)

// SQLiteDialect implements Dialect for SQLite databases.
type SQLiteDialect struct{}

// DriverName returns "sqlite" for the modernc.org/sqlite driver.
func (d *SQLiteDialect) DriverName() string {
	return "sqlite"
}

// Placeholder returns "?" for all positions.
func (d *SQLiteDialect) Placeholder(position int) string {
	return "?"
}

func (d *SQLiteDialect) SupportsLastInsertID() bool {
	return true
}

func (d *SQLiteDialect) ReturningClause(column string) string {
	return ""
}

// InitStatements returns SQLite PRAGMA statements.
func (d *SQLiteDialect) InitStatements() []string {
	return []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	}
}

// IsDuplicateKeyError returns true if the error is a SQLite UNIQUE constraint violation.
func (d *SQLiteDialect) IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (d *SQLiteDialect) SerialPrimaryKey() string {
	return "INTEGER PRIMARY KEY AUTOINCREMENT"
}

func (d *SQLiteDialect) FloatType() string {
	return "REAL"
}
