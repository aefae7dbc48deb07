package core

import (
	"net/mail"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CategoryOther is the fallback category label.
const CategoryOther = "Other"

// DateLayout is the wire and storage format of calendar dates.
const DateLayout = "2006-01-02"

const (
	maxNameLength        = 100
	maxDescriptionLength = 255
	maxCategoryLength    = 50
	minPasswordLength    = 6
)

type (
	// Date is a calendar date held at UTC midnight.
	Date struct {
		time.Time
	}

	User struct {
		ID             int64
		Username       string
		Email          string
		HashedPassword string
	}

	Subscription struct {
		ID          int64
		OwnerID     int64
		Name        string
		Description string // empty when absent
		Price       decimal.Decimal
		RenewalDate Date
		Category    string
	}

	Budget struct {
		ID             int64
		UserID         int64
		MonthlyLimit   decimal.Decimal
		CurrentSpent   decimal.Decimal
		AllowOverLimit bool
	}
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in t's own location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// UTCDate is the calendar date of t in UTC. Day and month boundaries of the
// ledger are taken in UTC regardless of the host timezone.
func UTCDate(t time.Time) Date {
	return DateOf(t.UTC())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, Invalid("renewal date %q must be formatted as YYYY-MM-DD", s)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// AddDays returns the date n days later.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

// After reports whether d is strictly later than other.
func (d Date) After(other Date) bool {
	return d.Time.After(other.Time)
}

// FirstOfMonth returns the first day of d's month.
func (d Date) FirstOfMonth() Date {
	return NewDate(d.Year(), int(d.Month()), 1)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return Invalid("renewal date is required")
	}
	return nil
}

// NormalizeEmail lowercases and trims an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateRegistration checks the fields a new account needs.
func ValidateRegistration(username, email, password string) error {
	if strings.TrimSpace(username) == "" {
		return Invalid("username is required")
	}
	if len(username) > 50 {
		return Invalid("username too long (max 50 characters)")
	}
	if _, err := mail.ParseAddress(email); err != nil || !strings.Contains(email, "@") {
		return Invalid("email %q is not valid", email)
	}
	if len(password) < minPasswordLength {
		return Invalid("password must be at least %d characters", minPasswordLength)
	}
	return nil
}

func (s Subscription) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return Invalid("subscription name is required")
	}
	if len(s.Name) > maxNameLength {
		return Invalid("subscription name too long (max %d characters)", maxNameLength)
	}
	if len(s.Description) > maxDescriptionLength {
		return Invalid("description too long (max %d characters)", maxDescriptionLength)
	}
	if s.Price.IsNegative() {
		return Invalid("price must not be negative")
	}
	if s.Price.GreaterThan(MaxMoney) {
		return Invalid("price exceeds the maximum of %s", FormatMoney(MaxMoney))
	}
	if len(s.Category) > maxCategoryLength {
		return Invalid("category too long (max %d characters)", maxCategoryLength)
	}
	return s.RenewalDate.Validate()
}

// NeedsCategory reports whether the category should be resolved by the categorizer.
func NeedsCategory(category string) bool {
	c := strings.TrimSpace(category)
	return c == "" || strings.EqualFold(c, CategoryOther)
}

func (b Budget) Validate() error {
	if !b.MonthlyLimit.IsPositive() {
		return Invalid("monthly limit must be greater than zero")
	}
	if b.MonthlyLimit.GreaterThan(MaxMoney) {
		return Invalid("monthly limit exceeds the maximum of %s", FormatMoney(MaxMoney))
	}
	if b.CurrentSpent.IsNegative() {
		return Invalid("current spent must not be negative")
	}
	return nil
}

// Projected returns the spend after adding price.
func (b Budget) Projected(price decimal.Decimal) decimal.Decimal {
	return RoundMoney(b.CurrentSpent.Add(price))
}

// Admit checks the budget gate for an additional charge.
func (b Budget) Admit(price decimal.Decimal) error {
	projected := b.Projected(price)
	if projected.GreaterThan(b.MonthlyLimit) && !b.AllowOverLimit {
		return &BudgetExceededError{Limit: b.MonthlyLimit, Projected: projected}
	}
	return nil
}

// Charge adds delta to current spent, clamping at zero. A negative delta refunds.
func (b *Budget) Charge(delta decimal.Decimal) {
	b.CurrentSpent = ClampZero(RoundMoney(b.CurrentSpent.Add(delta)))
}
