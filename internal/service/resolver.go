package service

import (
	"context"
	"time"

	"github.com/flexprice/subscriptions/internal/domain/account"
	"github.com/flexprice/subscriptions/internal/domain/plan"
	"github.com/flexprice/subscriptions/internal/logger"
	"github.com/samber/lo"
)

// Resolution is where a requested plan lands on an account.
type Resolution struct {
	// Existing is a copy of the subscription to replace, nil for a new slot.
	Existing *account.Subscription
	// Index of Existing in the account's list, -1 for a new slot.
	Index     int
	IsNewSlot bool
}

func newSlot() *Resolution {
	return &Resolution{Index: -1, IsNewSlot: true}
}

// SubscriptionResolver decides whether a requested plan replaces an active
// subscription or opens a new slot. At most one active subscription on an
// exclusive plan (AllowMultiple false) may exist per account.
type SubscriptionResolver interface {
	Resolve(ctx context.Context, acc *account.Account, requested *plan.Plan) (*Resolution, error)
}

type subscriptionResolver struct {
	plans         PlanCatalog
	allowMultiple bool
	logger        *logger.Logger
	now           func() time.Time
}

// NewSubscriptionResolver builds a resolver. allowMultiple treats every plan
// as non exclusive.
func NewSubscriptionResolver(plans PlanCatalog, allowMultiple bool, logger *logger.Logger) SubscriptionResolver {
	return &subscriptionResolver{
		plans:         plans,
		allowMultiple: allowMultiple,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (r *subscriptionResolver) Resolve(ctx context.Context, acc *account.Account, requested *plan.Plan) (*Resolution, error) {
	if r.allowMultiple || requested.AllowMultiple {
		return newSlot(), nil
	}

	now := r.now()
	var activeIdx []int
	for i, sub := range acc.Subscriptions {
		if sub.IsActive(now) {
			activeIdx = append(activeIdx, i)
		}
	}
	if len(activeIdx) == 0 {
		return newSlot(), nil
	}

	planIDs := lo.Map(activeIdx, func(i int, _ int) string {
		return acc.Subscriptions[i].PlanID
	})
	plans, err := r.plans.GetByIDs(ctx, planIDs)
	if err != nil {
		return nil, err
	}

	// a subscription whose plan no longer exists blocks nothing
	exclusive := lo.Filter(activeIdx, func(i int, _ int) bool {
		p, ok := plans[acc.Subscriptions[i].PlanID]
		return ok && !p.AllowMultiple
	})
	if len(exclusive) == 0 {
		return newSlot(), nil
	}

	if len(exclusive) > 1 {
		r.logger.Warnw("account has more than one active exclusive subscription, replacing the first",
			"account", acc.Reference,
			"subscription_ids", lo.Map(exclusive, func(i int, _ int) string { return acc.Subscriptions[i].ID }),
		)
	}

	idx := exclusive[0]
	existing := acc.Subscriptions[idx]
	return &Resolution{
		Existing:  &existing,
		Index:     idx,
		IsNewSlot: false,
	}, nil
}
