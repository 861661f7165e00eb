package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/flexprice/subscriptions/internal/domain/user"
	ierr "github.com/flexprice/subscriptions/internal/errors"
	"github.com/flexprice/subscriptions/internal/logger"
	"github.com/flexprice/subscriptions/internal/postgres"
)

const userColumns = `id, reference, account_id, email, name, created_at, updated_at`

type userRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewUserRepository(db *postgres.DB, logger *logger.Logger) user.Repository {
	return &userRepository{db: db, logger: logger}
}

func (r *userRepository) Create(ctx context.Context, u *user.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES (:id, :reference, :account_id, :email, :name, :created_at, :updated_at)`

	r.logger.Debugw("creating user", "user_id", u.ID, "account_id", u.AccountID)

	if _, err := r.db.NamedExecContext(ctx, query, u); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create user").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *userRepository) GetByReference(ctx context.Context, reference string) (*user.User, error) {
	var u user.User
	err := r.db.GetQuerier(ctx).GetContext(ctx, &u, "SELECT "+userColumns+" FROM users WHERE reference = $1", reference)
	if err != nil {
		if isNoRows(err) {
			return nil, ierr.NewError("user not found").
				WithHintf("User %s was not found", reference).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to load user").
			Mark(ierr.ErrDatabase)
	}
	return &u, nil
}

func (r *userRepository) ListByAccount(ctx context.Context, accountID string) ([]*user.User, error) {
	var users []*user.User
	err := r.db.GetQuerier(ctx).SelectContext(ctx, &users,
		"SELECT "+userColumns+" FROM users WHERE account_id = $1 ORDER BY created_at ASC", accountID)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list users").
			Mark(ierr.ErrDatabase)
	}
	return users, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
