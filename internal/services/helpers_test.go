package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"spendly/internal/core"
	"spendly/internal/log"
	"spendly/internal/storage"
)

func openStore(t *testing.T) *storage.Repository {
	t.Helper()
	repo, err := storage.Open(context.Background(), storage.Config{
		Dialect:    storage.SQLite,
		SQLitePath: filepath.Join(t.TempDir(), "spendly.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func mustUser(t *testing.T, repo *storage.Repository, name string) core.User {
	t.Helper()
	u, err := repo.CreateUser(context.Background(), core.User{Username: name, Email: name + "@example.com", HashedPassword: "x"})
	require.NoError(t, err)
	return u
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func moneyPtr(s string) *decimal.Decimal {
	d := money(s)
	return &d
}

func strPtr(s string) *string { return &s }

// stubCategorizer returns a fixed label and counts calls.
type stubCategorizer struct {
	label string
	calls atomic.Int32
}

func (c *stubCategorizer) Categorize(ctx context.Context, name, description string) string {
	c.calls.Add(1)
	return c.label
}

// stubSummarizer returns text or err and counts calls.
type stubSummarizer struct {
	text  string
	err   error
	calls atomic.Int32
}

func (s *stubSummarizer) Summarize(ctx context.Context, prompt string) (string, error) {
	s.calls.Add(1)
	return s.text, s.err
}

// recordingDispatcher keeps every reminder and can fail for chosen users.
type recordingDispatcher struct {
	mu      sync.Mutex
	got     []core.Reminder
	failFor map[int64]bool
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, r core.Reminder) error {
	if d.failFor[r.UserID] {
		return errors.New("smtp unavailable")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.got = append(d.got, r)
	return nil
}

func testLogger() *log.Logger {
	return log.Discard()
}
