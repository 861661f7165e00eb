package postgres

import (
	"context"
	"time"

	"github.com/flexprice/subscriptions/internal/domain/plan"
	ierr "github.com/flexprice/subscriptions/internal/errors"
	"github.com/flexprice/subscriptions/internal/logger"
	"github.com/flexprice/subscriptions/internal/postgres"
	"github.com/lib/pq"
)

const planColumns = `id, reference, name, description, tags, position, is_available,
	allow_multiple, price, trial_days, metadata, created_at, updated_at`

type planRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewPlanRepository(db *postgres.DB, logger *logger.Logger) plan.Repository {
	return &planRepository{db: db, logger: logger}
}

func (r *planRepository) Create(ctx context.Context, p *plan.Plan) error {
	query := `
		INSERT INTO plans (` + planColumns + `) VALUES (
			:id, :reference, :name, :description, :tags, :position, :is_available,
			:allow_multiple, :price, :trial_days, :metadata, :created_at, :updated_at
		)`

	r.logger.Debugw("creating plan", "plan_id", p.ID, "reference", p.Reference)

	if _, err := r.db.NamedExecContext(ctx, query, p); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create plan").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

// Upsert creates the plan or overwrites the one with the same reference.
func (r *planRepository) Upsert(ctx context.Context, p *plan.Plan) error {
	query := `
		INSERT INTO plans (` + planColumns + `) VALUES (
			:id, :reference, :name, :description, :tags, :position, :is_available,
			:allow_multiple, :price, :trial_days, :metadata, :created_at, :updated_at
		)
		ON CONFLICT (reference) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			tags = EXCLUDED.tags,
			position = EXCLUDED.position,
			is_available = EXCLUDED.is_available,
			allow_multiple = EXCLUDED.allow_multiple,
			price = EXCLUDED.price,
			trial_days = EXCLUDED.trial_days,
			metadata = EXCLUDED.metadata,
			updated_at = EXCLUDED.updated_at`

	p.UpdatedAt = time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = p.UpdatedAt
	}

	if _, err := r.db.NamedExecContext(ctx, query, p); err != nil {
		return ierr.WithError(err).
			WithHintf("Failed to save plan %s", p.Reference).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *planRepository) Get(ctx context.Context, id string) (*plan.Plan, error) {
	var p plan.Plan
	err := r.db.GetQuerier(ctx).GetContext(ctx, &p, "SELECT "+planColumns+" FROM plans WHERE id = $1", id)
	if err != nil {
		return nil, r.notFoundOr(err, id)
	}
	return &p, nil
}

func (r *planRepository) GetByReference(ctx context.Context, reference string) (*plan.Plan, error) {
	var p plan.Plan
	err := r.db.GetQuerier(ctx).GetContext(ctx, &p, "SELECT "+planColumns+" FROM plans WHERE reference = $1", reference)
	if err != nil {
		return nil, r.notFoundOr(err, reference)
	}
	return &p, nil
}

func (r *planRepository) GetByIDs(ctx context.Context, ids []string) ([]*plan.Plan, error) {
	if len(ids) == 0 {
		return []*plan.Plan{}, nil
	}

	var plans []*plan.Plan
	err := r.db.GetQuerier(ctx).SelectContext(ctx, &plans,
		"SELECT "+planColumns+" FROM plans WHERE id = ANY($1)", pq.Array(ids))
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to load plans").
			Mark(ierr.ErrDatabase)
	}
	return plans, nil
}

func (r *planRepository) List(ctx context.Context, filter *plan.Filter) ([]*plan.Plan, error) {
	if filter == nil {
		filter = &plan.Filter{}
	}

	query := `
		SELECT ` + planColumns + ` FROM plans
		WHERE ($1 = FALSE OR is_available = TRUE)
		AND ($2 = '' OR $2 = ANY(tags))
		ORDER BY position ASC, created_at ASC`

	var plans []*plan.Plan
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &plans, query, filter.OnlyAvailable, filter.Tag); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list plans").
			Mark(ierr.ErrDatabase)
	}
	return plans, nil
}

func (r *planRepository) notFoundOr(err error, lookup string) error {
	if isNoRows(err) {
		return ierr.NewError("plan not found").
			WithHintf("Plan %s was not found", lookup).
			Mark(ierr.ErrNotFound)
	}
	return ierr.WithError(err).
		WithHint("Failed to load plan").
		Mark(ierr.ErrDatabase)
}
