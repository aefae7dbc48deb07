package storage

import (
	"database/sql"
	"fmt"
	"time"

	"spendly/internal/core"
)

// dateColumn scans DATE (postgres) and TEXT (sqlite) renewal dates.
// Unparseable values leave Valid false instead of failing the row.
type dateColumn struct {
	Date  core.Date
	Valid bool
}

func (c *dateColumn) Scan(v any) error {
	c.Valid = false
	switch x := v.(type) {
	case nil:
		return nil
	case time.Time:
		c.Date, c.Valid = core.NewDate(x.Year(), int(x.Month()), x.Day()), true
	case string:
		c.parse(x)
	case []byte:
		c.parse(string(x))
	default:
		return fmt.Errorf("unsupported date value %T", v)
	}
	return nil
}

func (c *dateColumn) parse(s string) {
	if len(s) > len(core.DateLayout) {
		s = s[:len(core.DateLayout)]
	}
	d, err := core.ParseDate(s)
	if err != nil {
		return
	}
	c.Date, c.Valid = d, true
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (core.User, error) {
	var u core.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.HashedPassword)
	return u, err
}

func scanBudget(row rowScanner) (core.Budget, error) {
	var b core.Budget
	err := row.Scan(&b.ID, &b.UserID, &b.MonthlyLimit, &b.CurrentSpent, &b.AllowOverLimit)
	return b, err
}

func scanSubscription(row rowScanner) (core.Subscription, error) {
	var (
		s    core.Subscription
		desc sql.NullString
		date dateColumn
	)
	if err := row.Scan(&s.ID, &s.OwnerID, &s.Name, &desc, &s.Price, &date, &s.Category); err != nil {
		return s, err
	}
	s.Description = desc.String
	if date.Valid {
		s.RenewalDate = date.Date
	}
	return s, nil
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
