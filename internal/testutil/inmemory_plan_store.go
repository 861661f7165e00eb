package testutil

import (
	"context"
	"time"

	"github.com/flexprice/subscriptions/internal/domain/plan"
	ierr "github.com/flexprice/subscriptions/internal/errors"
	"github.com/samber/lo"
)

// InMemoryPlanStore implements plan.Repository
type InMemoryPlanStore struct {
	*InMemoryStore[*plan.Plan]
}

// NewInMemoryPlanStore creates a new in-memory plan store
func NewInMemoryPlanStore() *InMemoryPlanStore {
	return &InMemoryPlanStore{
		InMemoryStore: NewInMemoryStore[*plan.Plan](),
	}
}

// planFilterFn implements filtering logic for plans
func planFilterFn(ctx context.Context, p *plan.Plan, filter interface{}) bool {
	if p == nil {
		return false
	}

	f, ok := filter.(*plan.Filter)
	if !ok || f == nil {
		return true
	}

	if f.OnlyAvailable && !p.IsAvailable {
		return false
	}
	if f.Tag != "" && !lo.Contains([]string(p.Tags), f.Tag) {
		return false
	}
	return true
}

// planSortFn orders plans by position, then age
func planSortFn(i, j *plan.Plan) bool {
	if i.Position != j.Position {
		return i.Position < j.Position
	}
	return i.CreatedAt.Before(j.CreatedAt)
}

func (s *InMemoryPlanStore) Create(ctx context.Context, p *plan.Plan) error {
	if p == nil {
		return ierr.NewError("plan cannot be nil").Mark(ierr.ErrValidation)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
		p.UpdatedAt = p.CreatedAt
	}
	return s.InMemoryStore.Create(ctx, p.ID, p)
}

func (s *InMemoryPlanStore) GetByReference(ctx context.Context, reference string) (*plan.Plan, error) {
	p, ok := s.Find(ctx, func(p *plan.Plan) bool {
		return p.Reference == reference
	})
	if !ok {
		return nil, ierr.NewError("plan not found").
			WithHintf("Plan %s was not found", reference).
			Mark(ierr.ErrNotFound)
	}
	return p, nil
}

func (s *InMemoryPlanStore) GetByIDs(ctx context.Context, ids []string) ([]*plan.Plan, error) {
	plans := []*plan.Plan{}
	for _, id := range ids {
		if p, err := s.InMemoryStore.Get(ctx, id); err == nil {
			plans = append(plans, p)
		}
	}
	return plans, nil
}

func (s *InMemoryPlanStore) List(ctx context.Context, filter *plan.Filter) ([]*plan.Plan, error) {
	return s.InMemoryStore.List(ctx, filter, planFilterFn, planSortFn)
}

func (s *InMemoryPlanStore) Upsert(ctx context.Context, p *plan.Plan) error {
	if existing, err := s.GetByReference(ctx, p.Reference); err == nil {
		p.ID = existing.ID
		p.CreatedAt = existing.CreatedAt
	}
	p.UpdatedAt = time.Now().UTC()
	s.InMemoryStore.Upsert(ctx, p.ID, p)
	return nil
}
