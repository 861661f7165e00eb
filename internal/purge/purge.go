package purge

import (
	"context"

	"github.com/flexprice/subscriptions/internal/config"
	"github.com/flexprice/subscriptions/internal/httpclient"
	"github.com/flexprice/subscriptions/internal/logger"
	"github.com/flexprice/subscriptions/internal/types"
)

// Purger invalidates cached representations of an account after its
// subscriptions changed. Callers treat failures as non-fatal.
type Purger interface {
	PurgeAccount(ctx context.Context, accountRef string) error
}

// NewPurger returns the CDN purger for the configured provider. Local
// caches are invalidated by the services themselves.
func NewPurger(cfg *config.Configuration, client httpclient.Client, log *logger.Logger) Purger {
	if cfg.Purge.Provider == types.PurgeProviderFastly {
		return NewFastlyPurger(cfg.Purge.Fastly, client, log)
	}
	return noopPurger{}
}

type noopPurger struct{}

func (noopPurger) PurgeAccount(context.Context, string) error {
	return nil
}
