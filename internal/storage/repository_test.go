package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"spendly/internal/core"
)

// RepositoryTestSuite exercises the queries against a real database.
// open supplies a clean repository for every test.
type RepositoryTestSuite struct {
	suite.Suite
	open func(t *testing.T) *Repository
	repo *Repository
	ctx  context.Context
}

func (s *RepositoryTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.repo = s.open(s.T())
}

func (s *RepositoryTestSuite) TearDownTest() {
	if s.repo != nil {
		s.repo.Close()
	}
}

func (s *RepositoryTestSuite) createUser(name string) core.User {
	u, err := s.repo.CreateUser(s.ctx, core.User{Username: name, Email: name + "@example.com", HashedPassword: "hash"})
	require.NoError(s.T(), err)
	return u
}

func (s *RepositoryTestSuite) createSub(owner int64, name, price string) core.Subscription {
	sub, err := s.repo.CreateSubscription(s.ctx, core.Subscription{
		OwnerID:     owner,
		Name:        name,
		Price:       decimal.RequireFromString(price),
		RenewalDate: core.NewDate(2025, 10, 24),
		Category:    "Entertainment",
	})
	require.NoError(s.T(), err)
	return sub
}

func (s *RepositoryTestSuite) TestUsers() {
	u := s.createUser("ana")
	assert.NotZero(s.T(), u.ID)

	got, err := s.repo.GetUserByEmail(s.ctx, "ana@example.com")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), u, got)

	_, err = s.repo.CreateUser(s.ctx, core.User{Username: "ana", Email: "other@example.com", HashedPassword: "x"})
	assert.ErrorIs(s.T(), err, core.ErrAlreadyExists)

	_, err = s.repo.GetUser(s.ctx, 9999)
	assert.ErrorIs(s.T(), err, core.ErrNotFound)

	users, err := s.repo.ListUsers(s.ctx)
	require.NoError(s.T(), err)
	assert.Len(s.T(), users, 1)
}

func (s *RepositoryTestSuite) TestBudgetRoundTripKeepsExactAmounts() {
	u := s.createUser("ben")
	b, err := s.repo.CreateBudget(s.ctx, core.Budget{
		UserID:       u.ID,
		MonthlyLimit: decimal.RequireFromString("1000.00"),
		CurrentSpent: decimal.RequireFromString("0.30"),
	})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), u.ID, b.UserID)
	assert.Equal(s.T(), "0.30", core.FormatMoney(b.CurrentSpent))

	_, err = s.repo.CreateBudget(s.ctx, core.Budget{UserID: u.ID, MonthlyLimit: decimal.NewFromInt(5)})
	assert.ErrorIs(s.T(), err, core.ErrAlreadyExists)

	b.CurrentSpent = decimal.RequireFromString("19.99")
	b.AllowOverLimit = true
	require.NoError(s.T(), s.repo.UpdateBudget(s.ctx, b))

	got, err := s.repo.GetBudget(s.ctx, u.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "19.99", core.FormatMoney(got.CurrentSpent))
	assert.Equal(s.T(), "1000.00", core.FormatMoney(got.MonthlyLimit))
	assert.True(s.T(), got.AllowOverLimit)

	require.NoError(s.T(), s.repo.DeleteBudget(s.ctx, u.ID))
	assert.ErrorIs(s.T(), s.repo.DeleteBudget(s.ctx, u.ID), core.ErrNotFound)
	_, err = s.repo.GetBudget(s.ctx, u.ID)
	assert.ErrorIs(s.T(), err, core.ErrNotFound)
}

func (s *RepositoryTestSuite) TestSubscriptionOwnership() {
	x := s.createUser("xena")
	y := s.createUser("yuri")
	sub := s.createSub(x.ID, "Netflix", "15.49")

	got, err := s.repo.GetSubscription(s.ctx, sub.ID, x.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "Netflix", got.Name)
	assert.Equal(s.T(), core.NewDate(2025, 10, 24), got.RenewalDate)
	assert.Equal(s.T(), "15.49", core.FormatMoney(got.Price))

	_, err = s.repo.GetSubscription(s.ctx, sub.ID, y.ID)
	assert.ErrorIs(s.T(), err, core.ErrNotFound)

	sub.OwnerID = y.ID
	assert.ErrorIs(s.T(), s.repo.UpdateSubscription(s.ctx, sub), core.ErrNotFound)
	assert.ErrorIs(s.T(), s.repo.DeleteSubscription(s.ctx, sub.ID, y.ID), core.ErrNotFound)

	require.NoError(s.T(), s.repo.DeleteSubscription(s.ctx, sub.ID, x.ID))
}

func (s *RepositoryTestSuite) TestSearchIsCaseInsensitiveSubstring() {
	u := s.createUser("cleo")
	s.createSub(u.ID, "Spotify Premium", "10.99")
	s.createSub(u.ID, "Netflix", "15.49")
	s.createSub(u.ID, "100% Juice Club", "3.00")

	found, err := s.repo.SearchSubscriptions(s.ctx, u.ID, "POTI")
	require.NoError(s.T(), err)
	require.Len(s.T(), found, 1)
	assert.Equal(s.T(), "Spotify Premium", found[0].Name)

	found, err = s.repo.SearchSubscriptions(s.ctx, u.ID, "0%")
	require.NoError(s.T(), err)
	assert.Len(s.T(), found, 1)

	found, err = s.repo.SearchSubscriptions(s.ctx, u.ID, "hulu")
	require.NoError(s.T(), err)
	assert.Empty(s.T(), found)
}

func (s *RepositoryTestSuite) TestSearchFoldsNonASCIILetters() {
	u := s.createUser("dora")
	s.createSub(u.ID, "Übersetzer Pro", "4.99")
	s.createSub(u.ID, "Ärzte Kasse", "12.00")

	tests := map[string]string{
		"über":           "Übersetzer Pro",
		"Über":           "Übersetzer Pro",
		"ÜBERSETZER PRO": "Übersetzer Pro",
		"ärzte":          "Ärzte Kasse",
	}
	for term, want := range tests {
		found, err := s.repo.SearchSubscriptions(s.ctx, u.ID, term)
		require.NoError(s.T(), err, term)
		require.Len(s.T(), found, 1, term)
		assert.Equal(s.T(), want, found[0].Name, term)
	}
}

func (s *RepositoryTestSuite) TestInTxRollsBackOnError() {
	u := s.createUser("dora")
	_, err := s.repo.CreateBudget(s.ctx, core.Budget{UserID: u.ID, MonthlyLimit: decimal.NewFromInt(100)})
	require.NoError(s.T(), err)

	boom := errors.New("boom")
	err = s.repo.InTx(s.ctx, func(q *Queries) error {
		b, err := q.LockBudget(s.ctx, u.ID)
		if err != nil {
			return err
		}
		if _, err := q.CreateSubscription(s.ctx, core.Subscription{
			OwnerID: u.ID, Name: "Ghost", Price: decimal.NewFromInt(40),
			RenewalDate: core.NewDate(2025, 1, 1), Category: "Other",
		}); err != nil {
			return err
		}
		b.Charge(decimal.NewFromInt(40))
		if err := q.UpdateBudget(s.ctx, b); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(s.T(), err, boom)

	subs, err := s.repo.ListSubscriptions(s.ctx, u.ID)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), subs)

	b, err := s.repo.GetBudget(s.ctx, u.ID)
	require.NoError(s.T(), err)
	assert.True(s.T(), b.CurrentSpent.IsZero())
}

func (s *RepositoryTestSuite) TestDeleteSubscriptionsByOwner() {
	u := s.createUser("eve")
	other := s.createUser("finn")
	s.createSub(u.ID, "A", "1")
	s.createSub(u.ID, "B", "2")
	s.createSub(other.ID, "C", "3")

	n, err := s.repo.DeleteSubscriptionsByOwner(s.ctx, u.ID)
	require.NoError(s.T(), err)
	assert.EqualValues(s.T(), 2, n)

	left, err := s.repo.ListSubscriptions(s.ctx, other.ID)
	require.NoError(s.T(), err)
	assert.Len(s.T(), left, 1)
}

// openTestSQLite opens a migrated SQLite repository in a temp directory.
func openTestSQLite(t *testing.T) *Repository {
	t.Helper()
	repo, err := Open(context.Background(), Config{
		Dialect:    SQLite,
		SQLitePath: filepath.Join(t.TempDir(), "spendly.db"),
	})
	require.NoError(t, err, "failed to open test database")
	return repo
}

func TestSQLiteRepository(t *testing.T) {
	suite.Run(t, &RepositoryTestSuite{open: openTestSQLite})
}

func TestIsTransient(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(context.Canceled))
	assert.False(t, IsTransient(errors.New("syntax error")))
	assert.True(t, IsTransient(errors.New("database is locked (5) (SQLITE_BUSY)")))
}
