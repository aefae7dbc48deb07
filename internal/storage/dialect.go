package storage

import (
	"strconv"
	"strings"
)

// Dialect captures the SQL differences between the supported databases.
type Dialect struct {
	Name       string
	DriverName string
	// numbered placeholders ($1, $2) instead of ?
	numbered bool
	// suffix appended to a SELECT to take a row lock inside a transaction
	lockClause string
}

var (
	// SQLite serializes writers with BEGIN IMMEDIATE, so row locks are implicit.
	SQLite = Dialect{Name: "sqlite", DriverName: "sqlite"}
	// Postgres locks the budget row with SELECT ... FOR UPDATE.
	Postgres = Dialect{Name: "postgres", DriverName: "pgx", numbered: true, lockClause: " FOR UPDATE"}
)

// DialectFor returns the dialect registered under name.
func DialectFor(name string) (Dialect, bool) {
	switch strings.ToLower(name) {
	case SQLite.Name, "sqlite3":
		return SQLite, true
	case Postgres.Name, "postgresql", "pgx":
		return Postgres, true
	default:
		return Dialect{}, false
	}
}

// Rebind rewrites ? placeholders for dialects that number them.
func (d Dialect) Rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for _, r := range query {
		switch {
		case r == '\'':
			inQuote = !inQuote
			b.WriteRune(r)
		case r == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ForUpdate appends the row lock clause, if any.
func (d Dialect) ForUpdate(query string) string {
	return query + d.lockClause
}
