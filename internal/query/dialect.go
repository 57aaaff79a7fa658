package query

import (
	"strconv"
	"strings"
)

// Dialect selects the placeholder style of the target database.
type Dialect int

const (
	// DuckDB keeps '?' placeholders.
	DuckDB Dialect = iota
	// Postgres uses $1, $2, ... placeholders.
	Postgres
)

// ParseDialect maps a driver name to its dialect.
func ParseDialect(driver string) (Dialect, bool) {
	switch strings.ToLower(driver) {
	case "", "duckdb":
		return DuckDB, true
	case "postgres", "postgresql", "pq":
		return Postgres, true
	}
	return DuckDB, false
}

func (d Dialect) String() string {
	if d == Postgres {
		return "postgres"
	}
	return "duckdb"
}

// Rebind rewrites '?' placeholders for the dialect. Quoted literals are left
// untouched.
func (d Dialect) Rebind(q string) string {
	if d != Postgres {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	inQuote := false
	for i := 0; i < len(q); i++ {
		c := q[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			b.WriteByte(c)
		case c == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
