package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/flexprice/subscriptions/internal/types"
	"github.com/jmoiron/sqlx"
)

// TxKey is the context key type for storing transaction
type TxKey struct{}

// Tx is a transaction carried in the context. Nested WithTx calls reuse it
// through savepoints.
type Tx struct {
	*sqlx.Tx
	savepointID int
	ID          string
}

func GetTx(ctx context.Context) (*Tx, bool) {
	tx, ok := ctx.Value(TxKey{}).(*Tx)
	return tx, ok
}

// WithTx runs fn inside a transaction, committing when fn returns nil and
// rolling back otherwise.
func (db *DB) WithTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if tx, ok := GetTx(ctx); ok {
		return db.withSavepoint(ctx, tx, fn)
	}

	sqlxTx, err := db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	tx := &Tx{Tx: sqlxTx, ID: types.GenerateUUID()}
	txCtx := context.WithValue(ctx, TxKey{}, tx)
	db.logger.Debugw("starting transaction", "tx_id", tx.ID)

	defer func() {
		if r := recover(); r != nil {
			db.logger.Errorw("panic in transaction", "tx_id", tx.ID, "panic", r)
			_ = tx.Rollback()
			panic(r)
		}
	}()

	if err = fn(txCtx); err != nil {
		db.logger.Debugw("rolling back transaction", "tx_id", tx.ID, "error", err)
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.Errorw("failed to rollback transaction", "tx_id", tx.ID, "error", rbErr)
		}
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (db *DB) withSavepoint(ctx context.Context, tx *Tx, fn func(ctx context.Context) error) error {
	tx.savepointID++
	savepoint := fmt.Sprintf("sp_%d", tx.savepointID)
	defer func() { tx.savepointID-- }()

	if _, err := tx.ExecContext(ctx, "SAVEPOINT "+savepoint); err != nil {
		return fmt.Errorf("failed to create savepoint: %w", err)
	}

	if err := fn(ctx); err != nil {
		if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+savepoint); rbErr != nil {
			db.logger.Errorw("failed to rollback to savepoint", "tx_id", tx.ID, "savepoint", savepoint, "error", rbErr)
		}
		return err
	}

	if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT "+savepoint); err != nil {
		return fmt.Errorf("failed to release savepoint: %w", err)
	}
	return nil
}
