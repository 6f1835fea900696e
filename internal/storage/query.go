package storage

import (
	"strings"
)

// QueryBuilder converts SQL queries with ? placeholders to dialect-specific format.
type QueryBuilder struct {
	dialect Dialect
}

// NewQueryBuilder creates a new QueryBuilder for the given dialect.
func NewQueryBuilder(dialect Dialect) *QueryBuilder {
	return &QueryBuilder{dialect: dialect}
}

// Build converts a query with ? placeholders to dialect-specific placeholders.
//
// Example:
//
//	input:    "SELECT id FROM layouts WHERE seed = ? AND fingerprint = ?"
//	SQLite:   "SELECT id FROM layouts WHERE seed = ? AND fingerprint = ?"
//	Postgres: "SELECT id FROM layouts WHERE seed = $1 AND fingerprint = $2"
func (qb *QueryBuilder) Build(query string) string {
	if _, ok := qb.dialect.(*SQLiteDialect); ok {
		return query
	}

	var result strings.Builder
	position := 1

	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result.WriteString(qb.dialect.Placeholder(position))
			position++
		} else {
			result.WriteByte(query[i])
		}
	}

	return result.String()
}

// BuildWithReturning appends a RETURNING clause if the dialect requires it.
func (qb *QueryBuilder) BuildWithReturning(query string, column string) string {
	converted := qb.Build(query)
	if !qb.dialect.SupportsLastInsertID() {
		converted += qb.dialect.ReturningClause(column)
	}
	return converted
}
