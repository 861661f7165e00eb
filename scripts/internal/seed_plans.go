package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/flexprice/subscriptions/internal/domain/plan"
	ierr "github.com/flexprice/subscriptions/internal/errors"
	"github.com/flexprice/subscriptions/internal/logger"
	"github.com/flexprice/subscriptions/internal/types"
)

// TxRunner runs fn in one transaction; *postgres.DB.WithTx satisfies it.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// NoTx runs fn directly, for stores without transactions.
func NoTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// SeedPlans upserts every plan of the JSON array read from r, keyed by
// reference, in a single transaction. Existing plans keep their id so
// subscriptions stay attached.
func SeedPlans(ctx context.Context, plans plan.Repository, withTx TxRunner, r io.Reader, log *logger.Logger) (int, error) {
	var catalog []*plan.Plan
	if err := json.NewDecoder(r).Decode(&catalog); err != nil {
		return 0, fmt.Errorf("failed to decode plan catalog: %w", err)
	}

	seen := make(map[string]bool, len(catalog))
	for i, p := range catalog {
		if p.Reference == "" {
			return 0, fmt.Errorf("plan at index %d has no reference", i)
		}
		if seen[p.Reference] {
			return 0, fmt.Errorf("plan %s appears twice", p.Reference)
		}
		seen[p.Reference] = true
		if len(p.Price.Amounts()) == 0 {
			return 0, fmt.Errorf("plan %s has no price", p.Reference)
		}
	}

	err := withTx(ctx, func(ctx context.Context) error {
		for _, p := range catalog {
			existing, err := plans.GetByReference(ctx, p.Reference)
			switch {
			case err == nil:
				p.ID = existing.ID
				p.CreatedAt = existing.CreatedAt
			case ierr.IsNotFound(err):
				if p.ID == "" {
					p.ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PLAN)
				}
			default:
				return err
			}

			if p.Name == "" {
				p.Name = p.Reference
			}
			if p.Metadata == nil {
				p.Metadata = types.Metadata{}
			}

			if err := plans.Upsert(ctx, p); err != nil {
				return err
			}
			log.Infow("seeded plan", "reference", p.Reference, "plan_id", p.ID)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return len(catalog), nil
}
