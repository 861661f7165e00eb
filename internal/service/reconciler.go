package service

import (
	"context"
	"time"

	"github.com/flexprice/subscriptions/internal/domain/account"
	"github.com/flexprice/subscriptions/internal/domain/plan"
	ierr "github.com/flexprice/subscriptions/internal/errors"
	"github.com/flexprice/subscriptions/internal/integration/base"
	"github.com/flexprice/subscriptions/internal/sentry"
	"github.com/flexprice/subscriptions/internal/types"
)

// ApplyRequest creates a subscription (POST) or changes one (PUT, with
// SubscriptionID set).
type ApplyRequest struct {
	Target AccountTarget
	// Plan is a plan reference. On update an empty value keeps the current plan.
	Plan string
	// Billing defaults to month on create and to the current interval on update.
	Billing      types.BillingInterval
	DiscountCode string
	// DateExpires overrides the computed expiry when set.
	DateExpires *time.Time
	Payment     base.PaymentDetails
	// Email fills the account's email when it has none.
	Email string
	// IgnoreProvider records the change locally without billing anyone.
	IgnoreProvider bool
	// SubscriptionID targets one subscription instead of the resolver's pick.
	SubscriptionID string
}

// SubscriptionReconciler applies subscription changes to the payment
// provider and then to the account, so that both agree.
type SubscriptionReconciler interface {
	// Apply returns the saved account and the subscription that was created
	// or replaced. A provider failure leaves the account untouched.
	Apply(ctx context.Context, req ApplyRequest) (*account.Account, *account.Subscription, error)
}

type subscriptionReconciler struct {
	ServiceParams
	resolver SubscriptionResolver
	plans    PlanCatalog
	now      func() time.Time
}

func NewSubscriptionReconciler(params ServiceParams, resolver SubscriptionResolver, plans PlanCatalog) SubscriptionReconciler {
	return &subscriptionReconciler{
		ServiceParams: params,
		resolver:      resolver,
		plans:         plans,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// applyAttempt carries what must survive a retry of the save cycle.
type applyAttempt struct {
	// providerResult is reused on retries so the provider is called once.
	providerResult *base.SubscriptionResult
	// targetID is the replaced subscription, empty for a new slot.
	targetID string
	newSlot  bool
}

func (s *subscriptionReconciler) Apply(ctx context.Context, req ApplyRequest) (*account.Account, *account.Subscription, error) {
	acc, sub, err := s.apply(ctx, req)
	action := "create"
	if req.SubscriptionID != "" {
		action = "update"
	}
	s.Metrics.ObserveReconciliation(action, err)
	return acc, sub, err
}

func (s *subscriptionReconciler) apply(ctx context.Context, req ApplyRequest) (*account.Account, *account.Subscription, error) {
	if req.Billing != "" {
		if err := req.Billing.Validate(); err != nil {
			return nil, nil, err
		}
	}
	if req.SubscriptionID == "" && req.Plan == "" {
		return nil, nil, ierr.NewError("plan is required").
			WithHint("A plan reference is required to create a subscription").
			Mark(ierr.ErrValidation)
	}

	located, u, err := locateAccount(ctx, s.AccountRepo, s.UserRepo, req.Target)
	if err != nil {
		return nil, nil, err
	}
	userRef := ""
	if u != nil {
		userRef = u.Reference
	}

	unlock := s.Locker.Lock(located.ID)
	defer unlock()

	state := &applyAttempt{}
	var (
		saved  *account.Account
		result *account.Subscription
	)

	err = retryOnConflict(ctx, s.Logger, s.Metrics, "apply", func(attempt int) error {
		acc, err := s.AccountRepo.Get(ctx, located.ID)
		if err != nil {
			return err
		}

		sub, err := s.applyOnce(ctx, acc, userRef, req, state, attempt)
		if err != nil {
			return err
		}

		saved, result = acc, sub
		return nil
	})
	unlock()
	if err != nil {
		return nil, nil, err
	}

	s.purgeAccount(ctx, saved.Reference)

	s.Logger.Infow("subscription applied",
		"account", saved.Reference,
		"subscription_id", result.ID,
		"plan", result.PlanReference,
		"billing", result.Billing,
		"replaced", !state.newSlot,
		"ignore_provider", req.IgnoreProvider,
	)

	return saved, result, nil
}

// applyOnce runs one load-modify-save cycle on acc.
func (s *subscriptionReconciler) applyOnce(
	ctx context.Context,
	acc *account.Account,
	userRef string,
	req ApplyRequest,
	state *applyAttempt,
	attempt int,
) (*account.Subscription, error) {
	resolution, p, err := s.resolve(ctx, acc, req)
	if err != nil {
		return nil, err
	}

	billing := req.Billing
	if billing == "" && resolution.Existing != nil && req.SubscriptionID != "" {
		billing = resolution.Existing.Billing
	}
	billing = billing.OrDefault()

	if attempt > 1 && state.providerResult != nil {
		// the provider was already charged for this target; a different
		// target now would attach its references to the wrong subscription
		targetID := ""
		if resolution.Existing != nil {
			targetID = resolution.Existing.ID
		}
		if targetID != state.targetID || resolution.IsNewSlot != state.newSlot {
			return nil, ierr.NewError("subscription target changed while retrying").
				WithHint("The account was modified concurrently, please retry").
				WithReportableDetails(map[string]any{"account": acc.Reference}).
				Mark(ierr.ErrVersionConflict)
		}
	}

	if req.Email != "" && acc.Email == "" {
		acc.Email = req.Email
	}

	if state.providerResult == nil {
		state.newSlot = resolution.IsNewSlot
		if resolution.Existing != nil {
			state.targetID = resolution.Existing.ID
		}

		if req.IgnoreProvider {
			state.providerResult = &base.SubscriptionResult{}
		} else {
			res, err := s.callProvider(ctx, &base.SubscriptionRequest{
				Account:      acc,
				UserRef:      userRef,
				Plan:         p,
				Billing:      billing,
				Existing:     resolution.Existing,
				DiscountCode: req.DiscountCode,
				Payment:      req.Payment,
			})
			if err != nil {
				return nil, err
			}
			state.providerResult = res
		}
	}

	now := s.now()
	var sub account.Subscription
	if resolution.Existing != nil {
		sub = acc.Subscriptions[resolution.Index]
		sub.PlanID = p.ID
		sub.PlanReference = p.Reference
		sub.Billing = billing
		if req.DiscountCode != "" {
			sub.DiscountCode = req.DiscountCode
		}
		sub.ProviderMetadata = sub.ProviderMetadata.Copy()
	} else {
		sub = account.NewSubscription(p.ID, p.Reference, billing, req.DiscountCode, now)
	}

	if req.DateExpires != nil {
		sub.DateExpires = req.DateExpires.UTC()
	} else {
		sub.DateExpires = now.Add(billing.Period(1))
	}

	for k, v := range state.providerResult.SubscriptionMetadata {
		if sub.ProviderMetadata == nil {
			sub.ProviderMetadata = make(types.Metadata)
		}
		sub.ProviderMetadata[k] = v
	}
	for k, v := range state.providerResult.AccountMetadata {
		acc.SetProviderMetadata(k, v)
	}

	if resolution.Existing != nil {
		acc.Subscriptions[resolution.Index] = sub
	} else {
		acc.Subscriptions = append(acc.Subscriptions, sub)
	}

	if err := s.AccountRepo.Save(ctx, acc); err != nil {
		if !ierr.IsVersionConflict(err) && state.providerResult != nil && !req.IgnoreProvider {
			// the provider already holds the change; nothing rolls it back
			s.Logger.Errorw("provider subscription applied but account save failed",
				"account", acc.Reference,
				"subscription_id", sub.ID,
				"provider_metadata", state.providerResult.SubscriptionMetadata,
				"error", err,
			)
		}
		return nil, err
	}

	return &sub, nil
}

// resolve picks the subscription to change and loads the plan it moves to.
func (s *subscriptionReconciler) resolve(ctx context.Context, acc *account.Account, req ApplyRequest) (*Resolution, *plan.Plan, error) {
	if req.SubscriptionID != "" {
		idx := acc.FindSubscription(req.SubscriptionID)
		if idx < 0 {
			return nil, nil, ierr.NewError("subscription not found").
				WithHintf("Subscription %s was not found", req.SubscriptionID).
				WithReportableDetails(map[string]any{"account": acc.Reference}).
				Mark(ierr.ErrNotFound)
		}
		existing := acc.Subscriptions[idx]
		if existing.IsStopped() {
			return nil, nil, ierr.NewError("subscription is stopped").
				WithHintf("Subscription %s was cancelled and can no longer be changed", req.SubscriptionID).
				WithReportableDetails(map[string]any{"account": acc.Reference}).
				Mark(ierr.ErrValidation)
		}

		var p *plan.Plan
		var err error
		if req.Plan != "" {
			p, err = s.plans.GetByReference(ctx, req.Plan)
		} else {
			p, err = s.plans.Get(ctx, existing.PlanID)
		}
		if err != nil {
			return nil, nil, err
		}
		return &Resolution{Existing: &existing, Index: idx}, p, nil
	}

	p, err := s.plans.GetByReference(ctx, req.Plan)
	if err != nil {
		return nil, nil, err
	}
	resolution, err := s.resolver.Resolve(ctx, acc, p)
	if err != nil {
		return nil, nil, err
	}
	return resolution, p, nil
}

func (s *subscriptionReconciler) callProvider(ctx context.Context, req *base.SubscriptionRequest) (*base.SubscriptionResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Config.Payment.Timeout)
	defer cancel()

	provider := string(s.Provider.Name())
	span, ctx := s.Sentry.StartProviderSpan(ctx, provider, "create_or_update")
	start := time.Now()

	res, err := s.Provider.CreateOrUpdate(ctx, req)
	if err != nil && ctx.Err() == context.DeadlineExceeded && !ierr.IsProviderUnavailable(err) {
		err = ierr.WithError(err).
			WithHint("The payment provider did not respond in time, please retry").
			Mark(ierr.ErrProviderUnavailable)
	}

	sentry.FinishSpan(span, err)
	s.Metrics.ObserveProviderCall(provider, "create_or_update", start, err)

	if err != nil {
		s.Logger.Warnw("payment provider rejected subscription change",
			"account", req.Account.Reference,
			"plan", req.Plan.Reference,
			"billing", req.Billing,
			"error", err,
		)
		return nil, err
	}
	if res == nil {
		res = &base.SubscriptionResult{}
	}
	return res, nil
}
