package core

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Error kinds. Callers test for them with errors.Is.
var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrInvalidInput       = errors.New("invalid input")
	ErrBudgetExceeded     = errors.New("budget exceeded")
	ErrUnauthorized       = errors.New("unauthorized")
)

// Error carries a user-facing message and unwraps to its kind.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// NotFound reports a missing user, budget or subscription.
func NotFound(format string, args ...any) error {
	return newError(ErrNotFound, format, args...)
}

// AlreadyExists reports a uniqueness violation.
func AlreadyExists(format string, args ...any) error {
	return newError(ErrAlreadyExists, format, args...)
}

// PreconditionFailed reports an operation attempted in the wrong state.
func PreconditionFailed(format string, args ...any) error {
	return newError(ErrPreconditionFailed, format, args...)
}

// Invalid reports malformed caller input.
func Invalid(format string, args ...any) error {
	return newError(ErrInvalidInput, format, args...)
}

// Unauthorized reports rejected credentials or tokens.
func Unauthorized(format string, args ...any) error {
	return newError(ErrUnauthorized, format, args...)
}

// BudgetExceededError is returned when a charge would push spend past the
// monthly limit and overspending is not allowed.
type BudgetExceededError struct {
	Limit     decimal.Decimal
	Projected decimal.Decimal
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("Budget limit of %s exceeded: projected total would be %s",
		FormatMoney(e.Limit), FormatMoney(e.Projected))
}

func (e *BudgetExceededError) Unwrap() error { return ErrBudgetExceeded }

// Message returns the human message of err, falling back to its kind text.
func Message(err error) string {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Error()
	}
	var be *BudgetExceededError
	if errors.As(err, &be) {
		return be.Error()
	}
	return err.Error()
}
