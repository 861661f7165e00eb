package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/flexprice/subscriptions/internal/domain/account"
	ierr "github.com/flexprice/subscriptions/internal/errors"
	"github.com/flexprice/subscriptions/internal/logger"
	"github.com/flexprice/subscriptions/internal/postgres"
)

const accountColumns = `id, reference, name, email, vat_number, country_code,
	subscriptions, provider_metadata, version, created_at, updated_at`

type accountRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewAccountRepository(db *postgres.DB, logger *logger.Logger) account.Repository {
	return &accountRepository{db: db, logger: logger}
}

func (r *accountRepository) Create(ctx context.Context, a *account.Account) error {
	query := `
		INSERT INTO accounts (
			id, reference, name, email, vat_number, country_code,
			subscriptions, provider_metadata, version, created_at, updated_at
		) VALUES (
			:id, :reference, :name, :email, :vat_number, :country_code,
			:subscriptions, :provider_metadata, :version, :created_at, :updated_at
		)`

	r.logger.Debugw("creating account",
		"account_id", a.ID,
		"reference", a.Reference,
	)

	if _, err := r.db.NamedExecContext(ctx, query, a); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create account").
			WithReportableDetails(map[string]any{"reference": a.Reference}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *accountRepository) Get(ctx context.Context, id string) (*account.Account, error) {
	return r.getOne(ctx, "SELECT "+accountColumns+" FROM accounts WHERE id = :id", map[string]interface{}{
		"id": id,
	}, id)
}

func (r *accountRepository) GetByReference(ctx context.Context, reference string) (*account.Account, error) {
	return r.getOne(ctx, "SELECT "+accountColumns+" FROM accounts WHERE reference = :reference", map[string]interface{}{
		"reference": reference,
	}, reference)
}

func (r *accountRepository) GetByProviderMetadata(ctx context.Context, key, value string) (*account.Account, error) {
	query := "SELECT " + accountColumns + " FROM accounts WHERE provider_metadata ->> :key = :value LIMIT 1"
	return r.getOne(ctx, query, map[string]interface{}{
		"key":   key,
		"value": value,
	}, value)
}

func (r *accountRepository) getOne(ctx context.Context, query string, args map[string]interface{}, lookup string) (*account.Account, error) {
	rows, err := r.db.NamedQueryContext(ctx, query, args)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to load account").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to load account").
				Mark(ierr.ErrDatabase)
		}
		return nil, ierr.NewError("account not found").
			WithHintf("Account %s was not found", lookup).
			Mark(ierr.ErrNotFound)
	}

	var a account.Account
	if err := rows.StructScan(&a); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to read account").
			Mark(ierr.ErrDatabase)
	}
	if a.Subscriptions == nil {
		a.Subscriptions = account.Subscriptions{}
	}
	return &a, nil
}

// Save writes the whole aggregate guarded by the version the account was
// loaded with. Zero affected rows means another writer saved first.
func (r *accountRepository) Save(ctx context.Context, a *account.Account) error {
	query := `
		UPDATE accounts SET
			name = :name,
			email = :email,
			vat_number = :vat_number,
			country_code = :country_code,
			subscriptions = :subscriptions,
			provider_metadata = :provider_metadata,
			version = version + 1,
			updated_at = :updated_at
		WHERE id = :id AND version = :version`

	a.UpdatedAt = time.Now().UTC()

	r.logger.Debugw("saving account",
		"account_id", a.ID,
		"version", a.Version,
		"subscriptions", len(a.Subscriptions),
	)

	result, err := r.db.NamedExecContext(ctx, query, a)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to save account").
			Mark(ierr.ErrDatabase)
	}

	affected, err := result.RowsAffected()
	if err != nil && err != sql.ErrNoRows {
		return ierr.WithError(err).
			WithHint("Failed to save account").
			Mark(ierr.ErrDatabase)
	}
	if affected == 0 {
		return ierr.NewError("account version conflict").
			WithHint("The account was modified concurrently, please retry").
			WithReportableDetails(map[string]any{
				"account": a.Reference,
				"version": a.Version,
			}).
			Mark(ierr.ErrVersionConflict)
	}

	a.Version++
	return nil
}
