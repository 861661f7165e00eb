package plan

import (
	"context"
)

// Filter narrows List results.
type Filter struct {
	Tag           string
	OnlyAvailable bool
}

// Repository defines the interface for plan data access
type Repository interface {
	Create(ctx context.Context, plan *Plan) error
	Get(ctx context.Context, id string) (*Plan, error)
	GetByReference(ctx context.Context, reference string) (*Plan, error)
	// GetByIDs returns the plans found; missing ids are skipped.
	GetByIDs(ctx context.Context, ids []string) ([]*Plan, error)
	// List returns plans ordered by position.
	List(ctx context.Context, filter *Filter) ([]*Plan, error)
	Upsert(ctx context.Context, plan *Plan) error
}
