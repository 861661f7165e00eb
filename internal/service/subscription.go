package service

import (
	"context"
	"strconv"
	"time"

	"github.com/flexprice/subscriptions/internal/api/dto"
	"github.com/flexprice/subscriptions/internal/cache"
	"github.com/flexprice/subscriptions/internal/domain/account"
	ierr "github.com/flexprice/subscriptions/internal/errors"
	"github.com/flexprice/subscriptions/internal/integration/base"
	"github.com/samber/lo"
)

// SubscriptionService is what the subscription routes call. Reads project
// each subscription's plan for the owning account, writes go through the
// reconciler and the cancellation engine.
type SubscriptionService interface {
	ListSubscriptions(ctx context.Context, target AccountTarget, includeVAT *bool) (*dto.ListSubscriptionsResponse, error)
	GetSubscription(ctx context.Context, target AccountTarget, id string, includeVAT *bool) (*dto.SubscriptionResponse, error)
	CreateSubscription(ctx context.Context, target AccountTarget, req *dto.CreateSubscriptionRequest, ignoreProvider bool) (*dto.ListSubscriptionsResponse, error)
	UpdateSubscription(ctx context.Context, target AccountTarget, id string, req *dto.UpdateSubscriptionRequest) (*dto.ListSubscriptionsResponse, error)
	CancelSubscriptions(ctx context.Context, target AccountTarget, id string) (*dto.CancelSubscriptionsResponse, error)
}

type subscriptionService struct {
	ServiceParams
	plans      PlanCatalog
	reconciler SubscriptionReconciler
	canceller  CancellationEngine
	now        func() time.Time
}

func NewSubscriptionService(
	params ServiceParams,
	plans PlanCatalog,
	reconciler SubscriptionReconciler,
	canceller CancellationEngine,
) SubscriptionService {
	return &subscriptionService{
		ServiceParams: params,
		plans:         plans,
		reconciler:    reconciler,
		canceller:     canceller,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *subscriptionService) ListSubscriptions(ctx context.Context, target AccountTarget, includeVAT *bool) (*dto.ListSubscriptionsResponse, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}

	// account routes can be answered without touching the database
	if target.AccountRef != "" {
		key := subscriptionsCacheKey(target.AccountRef, includeVAT)
		if items, ok := cache.Load[[]*dto.SubscriptionResponse](ctx, s.Cache, key); ok {
			return s.listing(target.AccountRef, items), nil
		}
	}

	acc, _, err := locateAccount(ctx, s.AccountRepo, s.UserRepo, target)
	if err != nil {
		return nil, err
	}

	key := subscriptionsCacheKey(acc.Reference, includeVAT)
	if items, ok := cache.Load[[]*dto.SubscriptionResponse](ctx, s.Cache, key); ok {
		return s.listing(acc.Reference, items), nil
	}

	resp, err := s.project(ctx, acc, acc.Subscriptions, includeVAT)
	if err != nil {
		return nil, err
	}
	s.Cache.Set(ctx, key, resp.Items, 0)
	return resp, nil
}

func (s *subscriptionService) GetSubscription(ctx context.Context, target AccountTarget, id string, includeVAT *bool) (*dto.SubscriptionResponse, error) {
	acc, _, err := locateAccount(ctx, s.AccountRepo, s.UserRepo, target)
	if err != nil {
		return nil, err
	}

	idx := acc.FindSubscription(id)
	if idx < 0 {
		return nil, ierr.NewError("subscription not found").
			WithHintf("Subscription %s was not found", id).
			WithReportableDetails(map[string]any{"account": acc.Reference}).
			Mark(ierr.ErrNotFound)
	}

	resp, err := s.project(ctx, acc, acc.Subscriptions[idx:idx+1], includeVAT)
	if err != nil {
		return nil, err
	}
	return resp.Items[0], nil
}

func (s *subscriptionService) CreateSubscription(ctx context.Context, target AccountTarget, req *dto.CreateSubscriptionRequest, ignoreProvider bool) (*dto.ListSubscriptionsResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	acc, _, err := s.reconciler.Apply(ctx, ApplyRequest{
		Target:       target,
		Plan:         req.Plan,
		Billing:      req.Billing,
		DiscountCode: req.DiscountCode,
		DateExpires:  req.DateExpires,
		Payment: base.PaymentDetails{
			Token:         req.Token,
			PaymentMethod: req.PaymentMethod,
		},
		Email:          req.Email,
		IgnoreProvider: ignoreProvider,
	})
	if err != nil {
		return nil, err
	}
	return s.project(ctx, acc, acc.Subscriptions, nil)
}

func (s *subscriptionService) UpdateSubscription(ctx context.Context, target AccountTarget, id string, req *dto.UpdateSubscriptionRequest) (*dto.ListSubscriptionsResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	acc, _, err := s.reconciler.Apply(ctx, ApplyRequest{
		Target:       target,
		Plan:         req.Plan,
		Billing:      req.Billing,
		DiscountCode: req.DiscountCode,
		DateExpires:  req.DateExpires,
		Payment: base.PaymentDetails{
			Token:         req.Token,
			PaymentMethod: req.PaymentMethod,
		},
		SubscriptionID: id,
	})
	if err != nil {
		return nil, err
	}
	return s.project(ctx, acc, acc.Subscriptions, nil)
}

func (s *subscriptionService) CancelSubscriptions(ctx context.Context, target AccountTarget, id string) (*dto.CancelSubscriptionsResponse, error) {
	stopped, err := s.canceller.CancelSubscriptions(ctx, target, id)
	if err != nil {
		return nil, err
	}
	return &dto.CancelSubscriptionsResponse{StoppedCount: stopped}, nil
}

// project renders subs with their plans priced for acc. Subscriptions whose
// plan no longer exists are returned without plan details.
func (s *subscriptionService) project(ctx context.Context, acc *account.Account, subs []account.Subscription, includeVAT *bool) (*dto.ListSubscriptionsResponse, error) {
	plans, err := s.plans.GetByIDs(ctx, lo.Map(subs, func(sub account.Subscription, _ int) string {
		return sub.PlanID
	}))
	if err != nil {
		return nil, err
	}

	userPaysVAT := acc.PaysVAT(s.Config.Billing.SellerCountry)
	if includeVAT != nil {
		userPaysVAT = userPaysVAT && *includeVAT
	}

	now := s.now()
	items := make([]*dto.SubscriptionResponse, 0, len(subs))
	for _, sub := range subs {
		item := dto.NewSubscriptionResponse(sub, now)
		item.AccountRef = acc.Reference
		if p, ok := plans[sub.PlanID]; ok {
			item.PlanDetails = s.plans.Project(p, userPaysVAT)
		} else {
			s.Logger.Debugw("subscription plan missing",
				"account", acc.Reference,
				"subscription_id", sub.ID,
				"plan_id", sub.PlanID,
			)
		}
		items = append(items, item)
	}

	return &dto.ListSubscriptionsResponse{Items: items, AccountRef: acc.Reference}, nil
}

// listing rebuilds a response from cached items. Activity depends on the
// clock, so it is recomputed on every read.
func (s *subscriptionService) listing(accountRef string, items []*dto.SubscriptionResponse) *dto.ListSubscriptionsResponse {
	now := s.now()
	out := make([]*dto.SubscriptionResponse, 0, len(items))
	for _, cached := range items {
		item := *cached
		item.AccountRef = accountRef
		item.IsActive = item.DateStopped == nil && item.DateExpires.After(now)
		out = append(out, &item)
	}
	return &dto.ListSubscriptionsResponse{Items: out, AccountRef: accountRef}
}

// subscriptionsCacheKey keeps every VAT variant under the account's prefix so
// that one prefix delete purges them all.
func subscriptionsCacheKey(accountRef string, includeVAT *bool) string {
	variant := "default"
	if includeVAT != nil {
		variant = strconv.FormatBool(*includeVAT)
	}
	return cache.GenerateKey(cache.PrefixAccountSubscriptions, accountRef, variant)
}

