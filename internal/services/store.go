package services

import (
	"context"
	"errors"

	"spendly/internal/core"
	"spendly/internal/storage"
)

// Store is the persistence the services depend on. *storage.Repository satisfies it.
type Store interface {
	GetUser(ctx context.Context, id int64) (core.User, error)
	GetUserByEmail(ctx context.Context, email string) (core.User, error)
	ListUsers(ctx context.Context) ([]core.User, error)
	GetBudget(ctx context.Context, userID int64) (core.Budget, error)
	GetSubscription(ctx context.Context, id, ownerID int64) (core.Subscription, error)
	ListSubscriptions(ctx context.Context, ownerID int64) ([]core.Subscription, error)
	SearchSubscriptions(ctx context.Context, ownerID int64, term string) ([]core.Subscription, error)

	// InTx runs fn in one transaction, retrying transient failures.
	InTx(ctx context.Context, fn func(q *storage.Queries) error) error
}

var _ Store = (*storage.Repository)(nil)

func userErr(err error) error {
	if errors.Is(err, core.ErrNotFound) {
		return core.NotFound("User not found")
	}
	return err
}

func budgetErr(err error) error {
	if errors.Is(err, core.ErrNotFound) {
		return core.NotFound("Budget not found")
	}
	return err
}

func subscriptionErr(err error) error {
	if errors.Is(err, core.ErrNotFound) {
		return core.NotFound("Subscription not found")
	}
	return err
}

// budgetRequired turns a missing budget into the precondition failure used by
// subscription mutations.
func budgetRequired(err error) error {
	if errors.Is(err, core.ErrNotFound) {
		return core.PreconditionFailed("You must create a budget first")
	}
	return err
}
