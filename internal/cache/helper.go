package cache

import (
	"context"

	"github.com/getsentry/sentry-go"
)

// cacheOp traces one backend call when the request carries a Sentry hub.
// A nil span makes every method a no-op.
type cacheOp struct {
	span *sentry.Span
}

func traceCacheOp(ctx context.Context, backend, operation string, attrs map[string]interface{}) cacheOp {
	if sentry.GetHubFromContext(ctx) == nil {
		return cacheOp{}
	}

	name := "cache." + backend + "." + operation
	span := sentry.StartSpan(ctx, "db.cache", sentry.WithDescription(name))
	span.SetData("cache.backend", backend)
	for k, v := range attrs {
		span.SetData(k, v)
	}
	return cacheOp{span: span}
}

// fail records err on the span; later calls to end keep the failure.
func (o cacheOp) fail(err error) {
	if o.span == nil || err == nil {
		return
	}
	o.span.Status = sentry.SpanStatusInternalError
	o.span.SetData("error", err.Error())
}

func (o cacheOp) end(hit bool) {
	if o.span == nil {
		return
	}
	o.span.SetData("cache.hit", hit)
	if o.span.Status == sentry.SpanStatusUndefined {
		o.span.Status = sentry.SpanStatusOK
	}
	o.span.Finish()
}
