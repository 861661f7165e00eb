package service

import (
	"context"
	"sort"

	"github.com/flexprice/subscriptions/internal/api/dto"
	"github.com/flexprice/subscriptions/internal/cache"
	"github.com/flexprice/subscriptions/internal/domain/plan"
	"github.com/flexprice/subscriptions/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// PlanCatalog is the read side of plans used by the subscription flows and
// the public plan listing. Lookups are served from cache when possible.
type PlanCatalog interface {
	Get(ctx context.Context, id string) (*plan.Plan, error)
	GetByReference(ctx context.Context, reference string) (*plan.Plan, error)
	// GetByIDs returns the plans keyed by id. Unknown ids are absent.
	GetByIDs(ctx context.Context, ids []string) (map[string]*plan.Plan, error)
	ListPlans(ctx context.Context, req dto.ListPlansRequest) (*dto.ListPlansResponse, error)
	GetPlan(ctx context.Context, reference string, includeVAT *bool) (*dto.PlanResponse, error)
	// Project renders p for a customer with the given VAT liability.
	Project(p *plan.Plan, userPaysVAT bool) *dto.PlanResponse
}

type planCatalog struct {
	ServiceParams
	vatRate decimal.Decimal
}

func NewPlanCatalog(params ServiceParams) PlanCatalog {
	return &planCatalog{
		ServiceParams: params,
		vatRate:       VATRateFromPercent(params.Config.Billing.VATPercent),
	}
}

func (s *planCatalog) Get(ctx context.Context, id string) (*plan.Plan, error) {
	key := cache.GenerateKey(cache.PrefixPlan, "id", id)
	if p, ok := cache.Load[*plan.Plan](ctx, s.Cache, key); ok {
		return p, nil
	}

	p, err := s.PlanRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.Cache.Set(ctx, key, p, 0)
	return p, nil
}

func (s *planCatalog) GetByReference(ctx context.Context, reference string) (*plan.Plan, error) {
	key := cache.GenerateKey(cache.PrefixPlan, "ref", reference)
	if p, ok := cache.Load[*plan.Plan](ctx, s.Cache, key); ok {
		return p, nil
	}

	p, err := s.PlanRepo.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	s.Cache.Set(ctx, key, p, 0)
	return p, nil
}

func (s *planCatalog) GetByIDs(ctx context.Context, ids []string) (map[string]*plan.Plan, error) {
	ids = lo.Uniq(lo.Compact(ids))
	out := make(map[string]*plan.Plan, len(ids))

	var missing []string
	for _, id := range ids {
		if p, ok := cache.Load[*plan.Plan](ctx, s.Cache, cache.GenerateKey(cache.PrefixPlan, "id", id)); ok {
			out[id] = p
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return out, nil
	}

	plans, err := s.PlanRepo.GetByIDs(ctx, missing)
	if err != nil {
		return nil, err
	}
	for _, p := range plans {
		out[p.ID] = p
		s.Cache.Set(ctx, cache.GenerateKey(cache.PrefixPlan, "id", p.ID), p, 0)
	}
	return out, nil
}

// ListPlans returns the available plans ordered by position. VAT is shown
// unless includeVAT is explicitly false.
func (s *planCatalog) ListPlans(ctx context.Context, req dto.ListPlansRequest) (*dto.ListPlansResponse, error) {
	plans, err := s.availablePlans(ctx, req.Tag)
	if err != nil {
		return nil, err
	}

	userPaysVAT := req.IncludeVAT == nil || *req.IncludeVAT
	items := lo.Map(plans, func(p *plan.Plan, _ int) *dto.PlanResponse {
		return s.Project(p, userPaysVAT)
	})
	return dto.NewListResponse(items), nil
}

func (s *planCatalog) GetPlan(ctx context.Context, reference string, includeVAT *bool) (*dto.PlanResponse, error) {
	p, err := s.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	return s.Project(p, includeVAT == nil || *includeVAT), nil
}

func (s *planCatalog) availablePlans(ctx context.Context, tag string) ([]*plan.Plan, error) {
	key := cache.GenerateKey(cache.PrefixPlanListing, tag)
	if plans, ok := cache.Load[[]*plan.Plan](ctx, s.Cache, key); ok {
		return plans, nil
	}

	plans, err := s.PlanRepo.List(ctx, &plan.Filter{Tag: tag, OnlyAvailable: true})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(plans, func(i, j int) bool {
		return plans[i].Position < plans[j].Position
	})

	s.Cache.Set(ctx, key, plans, 0)
	return plans, nil
}

func (s *planCatalog) Project(p *plan.Plan, userPaysVAT bool) *dto.PlanResponse {
	display := ComputeDisplay(p.Price, s.vatRate, userPaysVAT)

	resp := dto.NewPlanResponse(p)
	resp.Price = dto.PlanPrice{
		Month:       amountFor(display.Price, types.BillingIntervalMonth),
		Year:        amountFor(display.Price, types.BillingIntervalYear),
		Once:        amountFor(display.Price, types.BillingIntervalOnce),
		VATIncluded: display.VATIncluded,
		Currency:    display.Currency,
	}
	resp.VAT = dto.PlanVAT{
		Month: amountFor(display.VAT, types.BillingIntervalMonth),
		Year:  amountFor(display.VAT, types.BillingIntervalYear),
		Once:  amountFor(display.VAT, types.BillingIntervalOnce),
	}
	return resp
}

func amountFor(amounts map[types.BillingInterval]decimal.Decimal, interval types.BillingInterval) *float64 {
	amount, ok := amounts[interval]
	if !ok {
		return nil
	}
	return lo.ToPtr(amount.InexactFloat64())
}
