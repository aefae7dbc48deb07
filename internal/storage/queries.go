package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"spendly/internal/core"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries runs the ledger statements against a pool or a transaction.
type Queries struct {
	db      DBTX
	dialect Dialect
}

// New binds the statements to db using dialect d.
func New(db DBTX, d Dialect) *Queries {
	return &Queries{db: db, dialect: d}
}

const (
	userColumns         = "id, username, email, hashed_password"
	budgetColumns       = "id, user_id, monthly_limit, current_spent, allow_over_limit"
	subscriptionColumns = "id, owner_id, name, description, price, renewal_date, category"
)

func (q *Queries) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return q.db.ExecContext(ctx, q.dialect.Rebind(query), args...)
}

func (q *Queries) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return q.db.QueryRowContext(ctx, q.dialect.Rebind(query), args...)
}

func (q *Queries) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return q.db.QueryContext(ctx, q.dialect.Rebind(query), args...)
}

func affectedOne(op string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return wrap(op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	return nil
}

// Users

func (q *Queries) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	row := q.queryRow(ctx,
		"INSERT INTO users (username, email, hashed_password) VALUES (?, ?, ?) RETURNING "+userColumns,
		u.Username, u.Email, u.HashedPassword)
	created, err := scanUser(row)
	return created, wrap("create user", err)
}

func (q *Queries) GetUser(ctx context.Context, id int64) (core.User, error) {
	u, err := scanUser(q.queryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id))
	return u, wrap("get user", err)
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	u, err := scanUser(q.queryRow(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", email))
	return u, wrap("get user by email", err)
}

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (core.User, error) {
	u, err := scanUser(q.queryRow(ctx, "SELECT "+userColumns+" FROM users WHERE username = ?", username))
	return u, wrap("get user by username", err)
}

func (q *Queries) ListUsers(ctx context.Context) ([]core.User, error) {
	rows, err := q.query(ctx, "SELECT "+userColumns+" FROM users ORDER BY id")
	if err != nil {
		return nil, wrap("list users", err)
	}
	defer rows.Close()

	var users []core.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, wrap("scan user", err)
		}
		users = append(users, u)
	}
	return users, wrap("list users", rows.Err())
}

// Budgets

func (q *Queries) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	row := q.queryRow(ctx,
		"INSERT INTO budgets (user_id, monthly_limit, current_spent, allow_over_limit) VALUES (?, ?, ?, ?) RETURNING "+budgetColumns,
		b.UserID, core.FormatMoney(b.MonthlyLimit), core.FormatMoney(b.CurrentSpent), b.AllowOverLimit)
	created, err := scanBudget(row)
	return created, wrap("create budget", err)
}

func (q *Queries) GetBudget(ctx context.Context, userID int64) (core.Budget, error) {
	b, err := scanBudget(q.queryRow(ctx, "SELECT "+budgetColumns+" FROM budgets WHERE user_id = ?", userID))
	return b, wrap("get budget", err)
}

// LockBudget reads the user's budget and holds its row lock until the
// enclosing transaction ends. Only meaningful inside InTx.
func (q *Queries) LockBudget(ctx context.Context, userID int64) (core.Budget, error) {
	query := q.dialect.ForUpdate("SELECT " + budgetColumns + " FROM budgets WHERE user_id = ?")
	b, err := scanBudget(q.queryRow(ctx, query, userID))
	return b, wrap("lock budget", err)
}

func (q *Queries) UpdateBudget(ctx context.Context, b core.Budget) error {
	res, err := q.exec(ctx,
		"UPDATE budgets SET monthly_limit = ?, current_spent = ?, allow_over_limit = ? WHERE user_id = ?",
		core.FormatMoney(b.MonthlyLimit), core.FormatMoney(b.CurrentSpent), b.AllowOverLimit, b.UserID)
	if err != nil {
		return wrap("update budget", err)
	}
	return affectedOne("update budget", res)
}

func (q *Queries) DeleteBudget(ctx context.Context, userID int64) error {
	res, err := q.exec(ctx, "DELETE FROM budgets WHERE user_id = ?", userID)
	if err != nil {
		return wrap("delete budget", err)
	}
	return affectedOne("delete budget", res)
}

// Subscriptions

func (q *Queries) CreateSubscription(ctx context.Context, s core.Subscription) (core.Subscription, error) {
	row := q.queryRow(ctx,
		"INSERT INTO subscriptions (owner_id, name, description, price, renewal_date, category) VALUES (?, ?, ?, ?, ?, ?) RETURNING "+subscriptionColumns,
		s.OwnerID, s.Name, nullableString(s.Description), core.FormatMoney(s.Price), s.RenewalDate.String(), s.Category)
	created, err := scanSubscription(row)
	return created, wrap("create subscription", err)
}

// GetSubscription returns the subscription only when ownerID owns it.
func (q *Queries) GetSubscription(ctx context.Context, id, ownerID int64) (core.Subscription, error) {
	s, err := scanSubscription(q.queryRow(ctx,
		"SELECT "+subscriptionColumns+" FROM subscriptions WHERE id = ? AND owner_id = ?", id, ownerID))
	return s, wrap("get subscription", err)
}

func (q *Queries) ListSubscriptions(ctx context.Context, ownerID int64) ([]core.Subscription, error) {
	return q.listSubscriptions(ctx, "list subscriptions",
		"SELECT "+subscriptionColumns+" FROM subscriptions WHERE owner_id = ? ORDER BY id", ownerID)
}

// SearchSubscriptions matches name case-insensitively as a substring.
// Folding happens in Go because SQLite's LOWER only handles ASCII.
func (q *Queries) SearchSubscriptions(ctx context.Context, ownerID int64, term string) ([]core.Subscription, error) {
	all, err := q.ListSubscriptions(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(term)
	found := []core.Subscription{}
	for _, s := range all {
		if strings.Contains(strings.ToLower(s.Name), needle) {
			found = append(found, s)
		}
	}
	return found, nil
}

func (q *Queries) listSubscriptions(ctx context.Context, op, query string, args ...any) ([]core.Subscription, error) {
	rows, err := q.query(ctx, query, args...)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()

	subs := []core.Subscription{}
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, wrap("scan subscription", err)
		}
		subs = append(subs, s)
	}
	return subs, wrap(op, rows.Err())
}

func (q *Queries) UpdateSubscription(ctx context.Context, s core.Subscription) error {
	res, err := q.exec(ctx,
		"UPDATE subscriptions SET name = ?, description = ?, price = ?, renewal_date = ?, category = ? WHERE id = ? AND owner_id = ?",
		s.Name, nullableString(s.Description), core.FormatMoney(s.Price), s.RenewalDate.String(), s.Category, s.ID, s.OwnerID)
	if err != nil {
		return wrap("update subscription", err)
	}
	return affectedOne("update subscription", res)
}

func (q *Queries) DeleteSubscription(ctx context.Context, id, ownerID int64) error {
	res, err := q.exec(ctx, "DELETE FROM subscriptions WHERE id = ? AND owner_id = ?", id, ownerID)
	if err != nil {
		return wrap("delete subscription", err)
	}
	return affectedOne("delete subscription", res)
}

// DeleteSubscriptionsByOwner removes every subscription of ownerID and returns how many went.
func (q *Queries) DeleteSubscriptionsByOwner(ctx context.Context, ownerID int64) (int64, error) {
	res, err := q.exec(ctx, "DELETE FROM subscriptions WHERE owner_id = ?", ownerID)
	if err != nil {
		return 0, wrap("delete subscriptions", err)
	}
	n, err := res.RowsAffected()
	return n, wrap("delete subscriptions", err)
}
