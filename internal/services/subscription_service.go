package services

import (
	"context"
	"errors"
	"strings"

	"spendly/internal/core"
	"spendly/internal/log"
	"spendly/internal/storage"
)

// Categorizer resolves a category label. Implementations never fail; they
// fall back to core.CategoryOther.
type Categorizer interface {
	Categorize(ctx context.Context, name, description string) string
}

// SubscriptionService keeps subscriptions and the budget ledger in lockstep.
type SubscriptionService struct {
	store       Store
	categorizer Categorizer
	logger      *log.Logger
}

func NewSubscriptionService(store Store, categorizer Categorizer, logger *log.Logger) *SubscriptionService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &SubscriptionService{
		store:       store,
		categorizer: categorizer,
		logger:      logger.WithComponent(log.ComponentSubscription),
	}
}

func (s *SubscriptionService) categorize(ctx context.Context, name, description string) string {
	if s.categorizer == nil {
		return core.CategoryOther
	}
	if c := strings.TrimSpace(s.categorizer.Categorize(ctx, name, description)); c != "" {
		return c
	}
	return core.CategoryOther
}

// Create records a subscription for userID and charges its price to the
// budget in the same transaction. A charge that would exceed the limit is
// rejected without writing anything unless overspending is allowed.
func (s *SubscriptionService) Create(ctx context.Context, userID int64, sub core.Subscription) (core.Subscription, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return core.Subscription{}, userErr(err)
	}

	budget, err := s.store.GetBudget(ctx, userID)
	if err != nil {
		return core.Subscription{}, budgetRequired(err)
	}

	sub.ID = 0
	sub.OwnerID = userID
	sub.Name = strings.TrimSpace(sub.Name)
	sub.Description = strings.TrimSpace(sub.Description)
	sub.Price = core.RoundMoney(sub.Price)
	if err := sub.Validate(); err != nil {
		return core.Subscription{}, err
	}

	// Fail fast before calling the categorizer; the gate is checked again under the lock.
	if err := budget.Admit(sub.Price); err != nil {
		return core.Subscription{}, err
	}

	if core.NeedsCategory(sub.Category) {
		sub.Category = s.categorize(ctx, sub.Name, sub.Description)
	}

	var (
		created core.Subscription
		spent   core.Budget
	)
	err = s.store.InTx(ctx, func(q *storage.Queries) error {
		if _, err := q.GetUser(ctx, userID); err != nil {
			return userErr(err)
		}
		b, err := q.LockBudget(ctx, userID)
		if err != nil {
			return budgetRequired(err)
		}
		if err := b.Admit(sub.Price); err != nil {
			return err
		}

		created, err = q.CreateSubscription(ctx, sub)
		if err != nil {
			return err
		}

		b.Charge(sub.Price)
		spent = b
		return q.UpdateBudget(ctx, b)
	})
	if err != nil {
		return core.Subscription{}, err
	}

	s.logger.InfoContext(ctx, "Subscription created",
		log.FieldUserID, userID,
		log.FieldSubscriptionID, created.ID,
		log.FieldSubscription, created.Name,
		log.FieldCategory, created.Category,
		log.FieldAmount, core.FormatMoney(created.Price),
		log.FieldCurrentSpent, core.FormatMoney(spent.CurrentSpent))

	return created, nil
}

// List returns every subscription owned by userID.
func (s *SubscriptionService) List(ctx context.Context, userID int64) ([]core.Subscription, error) {
	return s.store.ListSubscriptions(ctx, userID)
}

// Get returns the subscription only if userID owns it.
func (s *SubscriptionService) Get(ctx context.Context, id, userID int64) (core.Subscription, error) {
	sub, err := s.store.GetSubscription(ctx, id, userID)
	if err != nil {
		return core.Subscription{}, subscriptionErr(err)
	}
	return sub, nil
}

// Search matches names case-insensitively. No match is reported as NotFound.
func (s *SubscriptionService) Search(ctx context.Context, userID int64, term string) ([]core.Subscription, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, core.Invalid("search name is required")
	}
	subs, err := s.store.SearchSubscriptions(ctx, userID, term)
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, core.NotFound("No subscriptions found matching '%s'", term)
	}
	return subs, nil
}

// Update merges patch into the subscription. A price change moves the budget
// by the difference; increases pass the same gate as a new subscription.
func (s *SubscriptionService) Update(ctx context.Context, id, userID int64, patch core.SubscriptionPatch) (core.Subscription, error) {
	current, err := s.Get(ctx, id, userID)
	if err != nil {
		return core.Subscription{}, err
	}
	if patch.IsEmpty() {
		return current, nil
	}

	recategorize := patch.Category != nil && core.NeedsCategory(*patch.Category)
	var category string
	if recategorize {
		preview := patch.Apply(current)
		category = s.categorize(ctx, preview.Name, preview.Description)
	}

	var updated core.Subscription
	err = s.store.InTx(ctx, func(q *storage.Queries) error {
		b, berr := q.LockBudget(ctx, userID)
		if berr != nil && !errors.Is(berr, core.ErrNotFound) {
			return berr
		}
		hasBudget := berr == nil

		cur, err := q.GetSubscription(ctx, id, userID)
		if err != nil {
			return subscriptionErr(err)
		}

		updated = patch.Apply(cur)
		if recategorize {
			updated.Category = category
		}
		if err := updated.Validate(); err != nil {
			return err
		}

		if err := q.UpdateSubscription(ctx, updated); err != nil {
			return subscriptionErr(err)
		}

		delta := updated.Price.Sub(cur.Price)
		if !hasBudget || delta.IsZero() {
			return nil
		}
		if delta.IsPositive() {
			if err := b.Admit(delta); err != nil {
				return err
			}
		}
		b.Charge(delta)
		return q.UpdateBudget(ctx, b)
	})
	if err != nil {
		return core.Subscription{}, err
	}

	s.logger.InfoContext(ctx, "Subscription updated",
		log.FieldUserID, userID,
		log.FieldSubscriptionID, id,
		log.FieldAmount, core.FormatMoney(updated.Price))

	return updated, nil
}

// Delete removes the subscription and refunds its price to the budget,
// never letting current spend go below zero.
func (s *SubscriptionService) Delete(ctx context.Context, id, userID int64) error {
	var refunded core.Subscription
	err := s.store.InTx(ctx, func(q *storage.Queries) error {
		b, berr := q.LockBudget(ctx, userID)
		if berr != nil && !errors.Is(berr, core.ErrNotFound) {
			return berr
		}

		sub, err := q.GetSubscription(ctx, id, userID)
		if err != nil {
			return subscriptionErr(err)
		}
		if berr != nil {
			return budgetRequired(berr)
		}

		if err := q.DeleteSubscription(ctx, id, userID); err != nil {
			return subscriptionErr(err)
		}
		b.Charge(sub.Price.Neg())
		refunded = sub
		return q.UpdateBudget(ctx, b)
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Subscription deleted",
		log.FieldUserID, userID,
		log.FieldSubscriptionID, id,
		log.FieldAmount, core.FormatMoney(refunded.Price))

	return nil
}
