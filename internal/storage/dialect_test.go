package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDialectRebind(t *testing.T) {
	q := "SELECT id FROM subscriptions WHERE owner_id = ? AND LOWER(name) LIKE ? ESCAPE '\\'"

	assert.Equal(t, q, SQLite.Rebind(q))
	assert.Equal(t,
		"SELECT id FROM subscriptions WHERE owner_id = $1 AND LOWER(name) LIKE $2 ESCAPE '\\'",
		Postgres.Rebind(q))
	assert.Equal(t, "SELECT '?' FROM t WHERE a = $1", Postgres.Rebind("SELECT '?' FROM t WHERE a = ?"))
}

func TestDialectForUpdate(t *testing.T) {
	assert.Equal(t, "SELECT 1", SQLite.ForUpdate("SELECT 1"))
	assert.Equal(t, "SELECT 1 FOR UPDATE", Postgres.ForUpdate("SELECT 1"))
}

func TestDialectFor(t *testing.T) {
	cases := map[string]string{"sqlite": "sqlite", "SQLite3": "sqlite", "postgres": "postgres", "postgresql": "postgres"}
	for in, want := range cases {
		d, ok := DialectFor(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, d.Name)
	}
	_, ok := DialectFor("mysql")
	assert.False(t, ok)
}
