package storage

import (
	"fmt"
	"strings"

	_ "github.com/lib/pq"
)

// PostgresDialect implements Dialect for PostgreSQL databases.
type PostgresDialect struct{}

// DriverName returns "postgres" for the lib/pq driver.
func (d *PostgresDialect) DriverName() string {
	return "postgres"
}

// Placeholder returns "$N" for the given position.
func (d *PostgresDialect) Placeholder(position int) string {
	return fmt.Sprintf("$%d", position)
}

func (d *PostgresDialect) SupportsLastInsertID() bool {
	return false
}

// ReturningClause returns " RETURNING <column>" for INSERT statements.
func (d *PostgresDialect) ReturningClause(column string) string {
	return fmt.Sprintf(" RETURNING %s", column)
}

// InitStatements returns nothing; foreign keys are always on in PostgreSQL.
func (d *PostgresDialect) InitStatements() []string {
	return nil
}

// IsDuplicateKeyError returns true if the error is a PostgreSQL unique violation.
func (d *PostgresDialect) IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	// 23505 is unique_violation
	return strings.Contains(errStr, "duplicate key") ||
		strings.Contains(errStr, "23505") ||
		strings.Contains(errStr, "unique constraint")
}

func (d *PostgresDialect) SerialPrimaryKey() string {
	return "SERIAL PRIMARY KEY"
}

// FloatType returns DOUBLE PRECISION; REAL is single precision in PostgreSQL.
func (d *PostgresDialect) FloatType() string {
	return "DOUBLE PRECISION"
}
