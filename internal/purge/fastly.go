package purge

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/flexprice/subscriptions/internal/config"
	ierr "github.com/flexprice/subscriptions/internal/errors"
	"github.com/flexprice/subscriptions/internal/httpclient"
	"github.com/flexprice/subscriptions/internal/logger"
	"github.com/flexprice/subscriptions/internal/types"
)

// FastlyPurger purges every object tagged with the account's surrogate key.
// Without an API token it only logs what it would purge.
type FastlyPurger struct {
	cfg    config.FastlyConfig
	client httpclient.Client
	logger *logger.Logger
}

func NewFastlyPurger(cfg config.FastlyConfig, client httpclient.Client, log *logger.Logger) *FastlyPurger {
	return &FastlyPurger{cfg: cfg, client: client, logger: log}
}

func (p *FastlyPurger) PurgeAccount(ctx context.Context, accountRef string) error {
	key := types.SurrogateKeyForAccount(accountRef)

	if p.cfg.APIToken == "" {
		p.logger.Infow("dummy purge", "service_id", p.cfg.ServiceID, "surrogate_key", key)
		return nil
	}

	endpoint := fmt.Sprintf("%s/service/%s/purge/%s",
		strings.TrimRight(p.cfg.BaseURL, "/"),
		url.PathEscape(p.cfg.ServiceID),
		url.PathEscape(key),
	)

	_, err := p.client.Send(ctx, &httpclient.Request{
		Method: http.MethodPost,
		URL:    endpoint,
		Headers: map[string]string{
			types.HeaderFastlyKey: p.cfg.APIToken,
			"Accept":              "application/json",
		},
	})
	if err != nil {
		return ierr.WithError(err).
			WithHintf("Failed to purge %s", key).
			Mark(ierr.ErrHTTPClient)
	}

	p.logger.Debugw("purged surrogate key", "surrogate_key", key)
	return nil
}
