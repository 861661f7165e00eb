package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/flexprice/subscriptions/internal/logger"
	"github.com/jmoiron/sqlx"
)

// TracedQuerier logs every statement run through the wrapped Querier with
// its duration. Named statements are bound by sqlx and then land here.
type TracedQuerier struct {
	Querier
	logger *logger.Logger
	txID   string
}

func NewTracedQuerier(q Querier, logger *logger.Logger, txID string) *TracedQuerier {
	return &TracedQuerier{Querier: q, logger: logger, txID: txID}
}

// trace returns the callback that logs the statement once it finished.
func (tq *TracedQuerier) trace(query string, args []interface{}) func(error) {
	start := time.Now()
	return func(err error) {
		fields := []interface{}{
			"duration_ms", time.Since(start).Milliseconds(),
			"query", query,
			"args", len(args),
		}
		if tq.txID != "" {
			fields = append(fields, "tx_id", tq.txID)
		}
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			tq.logger.Errorw("database query failed", append(fields, "error", err)...)
			return
		}
		tq.logger.Debugw("database query completed", fields...)
	}
}

func (tq *TracedQuerier) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	done := tq.trace(query, args)
	result, err := tq.Querier.ExecContext(ctx, query, args...)
	done(err)
	return result, err
}

func (tq *TracedQuerier) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	done := tq.trace(query, args)
	rows, err := tq.Querier.QueryContext(ctx, query, args...)
	done(err)
	return rows, err
}

func (tq *TracedQuerier) QueryxContext(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error) {
	done := tq.trace(query, args)
	rows, err := tq.Querier.QueryxContext(ctx, query, args...)
	done(err)
	return rows, err
}

func (tq *TracedQuerier) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	done := tq.trace(query, args)
	err := tq.Querier.GetContext(ctx, dest, query, args...)
	done(err)
	return err
}

func (tq *TracedQuerier) SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	done := tq.trace(query, args)
	err := tq.Querier.SelectContext(ctx, dest, query, args...)
	done(err)
	return err
}
