package services

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"spendly/internal/core"
	"spendly/internal/log"
	"spendly/internal/storage"
)

// BudgetOptions configures ledger policy.
type BudgetOptions struct {
	// CascadeDelete removes the user's subscriptions together with the budget.
	CascadeDelete bool
}

// BudgetService owns the per-user budget ledger.
type BudgetService struct {
	store  Store
	opts   BudgetOptions
	logger *log.Logger
}

func NewBudgetService(store Store, opts BudgetOptions, logger *log.Logger) *BudgetService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &BudgetService{
		store:  store,
		opts:   opts,
		logger: logger.WithComponent(log.ComponentBudget),
	}
}

// CreateBudget opens the ledger for userID. Current spend starts at the sum of
// any subscriptions the user kept from a previous budget, zero otherwise.
func (s *BudgetService) CreateBudget(ctx context.Context, userID int64, monthlyLimit decimal.Decimal) (core.Budget, error) {
	b := core.Budget{UserID: userID, MonthlyLimit: core.RoundMoney(monthlyLimit)}
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}

	var created core.Budget
	err := s.store.InTx(ctx, func(q *storage.Queries) error {
		if _, err := q.GetUser(ctx, userID); err != nil {
			return userErr(err)
		}

		_, err := q.GetBudget(ctx, userID)
		switch {
		case err == nil:
			return core.AlreadyExists("Budget already exists for this user")
		case !errors.Is(err, core.ErrNotFound):
			return err
		}

		subs, err := q.ListSubscriptions(ctx, userID)
		if err != nil {
			return err
		}
		b.CurrentSpent = core.SumPrices(subs)

		created, err = q.CreateBudget(ctx, b)
		if errors.Is(err, core.ErrAlreadyExists) {
			return core.AlreadyExists("Budget already exists for this user")
		}
		return err
	})
	if err != nil {
		return core.Budget{}, err
	}

	s.logger.InfoContext(ctx, "Budget created",
		log.FieldUserID, userID,
		log.FieldMonthlyLimit, core.FormatMoney(created.MonthlyLimit),
		log.FieldCurrentSpent, core.FormatMoney(created.CurrentSpent))

	return created, nil
}

func (s *BudgetService) GetBudget(ctx context.Context, userID int64) (core.Budget, error) {
	b, err := s.store.GetBudget(ctx, userID)
	if err != nil {
		return core.Budget{}, budgetErr(err)
	}
	return b, nil
}

// UpdateBudget merges patch into the stored budget. Fields absent from the
// patch keep their stored value, current spend included.
func (s *BudgetService) UpdateBudget(ctx context.Context, userID int64, patch core.BudgetPatch) (core.Budget, error) {
	var updated core.Budget
	err := s.store.InTx(ctx, func(q *storage.Queries) error {
		current, err := q.LockBudget(ctx, userID)
		if err != nil {
			return budgetErr(err)
		}
		if patch.IsEmpty() {
			updated = current
			return nil
		}

		updated = patch.Apply(current)
		if err := updated.Validate(); err != nil {
			return err
		}
		return q.UpdateBudget(ctx, updated)
	})
	if err != nil {
		return core.Budget{}, err
	}

	s.logger.InfoContext(ctx, "Budget updated",
		log.FieldUserID, userID,
		log.FieldMonthlyLimit, core.FormatMoney(updated.MonthlyLimit),
		log.FieldCurrentSpent, core.FormatMoney(updated.CurrentSpent))

	return updated, nil
}

// DeleteBudget removes the budget and, when configured, every subscription of
// the user. It returns how many subscriptions were removed.
func (s *BudgetService) DeleteBudget(ctx context.Context, userID int64) (int64, error) {
	var removed int64
	err := s.store.InTx(ctx, func(q *storage.Queries) error {
		if _, err := q.LockBudget(ctx, userID); err != nil {
			return budgetErr(err)
		}
		removed = 0
		if s.opts.CascadeDelete {
			n, err := q.DeleteSubscriptionsByOwner(ctx, userID)
			if err != nil {
				return err
			}
			removed = n
		}
		return budgetErr(q.DeleteBudget(ctx, userID))
	})
	if err != nil {
		return 0, err
	}

	s.logger.InfoContext(ctx, "Budget deleted",
		log.FieldUserID, userID,
		"cascade", s.opts.CascadeDelete,
		"subscriptions_removed", removed)

	return removed, nil
}

// GetSummary reports the derived view of the user's budget.
func (s *BudgetService) GetSummary(ctx context.Context, userID int64) (core.BudgetSummary, error) {
	b, err := s.GetBudget(ctx, userID)
	if err != nil {
		return core.BudgetSummary{}, err
	}
	return core.Summarize(b), nil
}

// ToggleOverLimit flips the overspend allowance and returns the new value.
func (s *BudgetService) ToggleOverLimit(ctx context.Context, userID int64) (bool, error) {
	var allow bool
	err := s.store.InTx(ctx, func(q *storage.Queries) error {
		b, err := q.LockBudget(ctx, userID)
		if err != nil {
			return budgetErr(err)
		}
		b.AllowOverLimit = !b.AllowOverLimit
		allow = b.AllowOverLimit
		return q.UpdateBudget(ctx, b)
	})
	if err != nil {
		return false, err
	}

	s.logger.InfoContext(ctx, "Over-limit allowance toggled",
		log.FieldUserID, userID,
		"allow_over_limit", allow)

	return allow, nil
}
