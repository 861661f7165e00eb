package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/flexprice/subscriptions/internal/domain/account"
	ierr "github.com/flexprice/subscriptions/internal/errors"
	"github.com/flexprice/subscriptions/internal/logger"
	"github.com/flexprice/subscriptions/internal/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMockDB(t *testing.T) (*postgres.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return postgres.NewFromSQL(sqlDB, logger.NewNoopLogger()), mock
}

func accountRowColumns() []string {
	return []string{
		"id", "reference", "name", "email", "vat_number", "country_code",
		"subscriptions", "provider_metadata", "version", "created_at", "updated_at",
	}
}

func TestAccountRepository_Save(t *testing.T) {
	ctx := context.Background()

	t.Run("bumps version when the stored version matches", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewAccountRepository(db, logger.NewNoopLogger())

		acc := account.NewAccount("acme", "Acme", "billing@acme.test")
		acc.Version = 4

		mock.ExpectExec(regexp.QuoteMeta("UPDATE accounts SET")).
			WithArgs(
				acc.Name, acc.Email, acc.VATNumber, acc.CountryCode,
				sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
				acc.ID, int64(4),
			).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Save(ctx, acc))
		assert.Equal(t, int64(5), acc.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("zero rows affected is a version conflict", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewAccountRepository(db, logger.NewNoopLogger())

		acc := account.NewAccount("acme", "Acme", "billing@acme.test")
		acc.Version = 2

		mock.ExpectExec(regexp.QuoteMeta("UPDATE accounts SET")).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Save(ctx, acc)
		require.Error(t, err)
		assert.True(t, ierr.IsVersionConflict(err))
		assert.Equal(t, int64(2), acc.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("driver failure is a database error", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewAccountRepository(db, logger.NewNoopLogger())

		mock.ExpectExec(regexp.QuoteMeta("UPDATE accounts SET")).
			WillReturnError(assert.AnError)

		err := repo.Save(ctx, account.NewAccount("acme", "Acme", ""))
		require.Error(t, err)
		assert.True(t, ierr.Is(err, ierr.ErrDatabase))
	})
}

func TestAccountRepository_GetByReference(t *testing.T) {
	ctx := context.Background()

	t.Run("scans embedded subscriptions", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewAccountRepository(db, logger.NewNoopLogger())

		created := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
		subs := []byte(`[{"id":"sub_1","plan_id":"plan_1","plan":"pro","billing":"month",` +
			`"date_created":"2025-03-01T00:00:00Z","date_expires":"2025-04-01T00:00:00Z",` +
			`"provider_metadata":{"stripe_subscription_id":"si_123"}}]`)

		rows := sqlmock.NewRows(accountRowColumns()).AddRow(
			"acc_1", "acme", "Acme", "billing@acme.test", "", "DE",
			subs, []byte(`{"stripe_customer_id":"cus_123"}`), int64(7), created, created,
		)
		mock.ExpectQuery(regexp.QuoteMeta("FROM accounts WHERE reference = $1")).
			WithArgs("acme").
			WillReturnRows(rows)

		acc, err := repo.GetByReference(ctx, "acme")
		require.NoError(t, err)
		assert.Equal(t, int64(7), acc.Version)
		assert.Equal(t, "cus_123", acc.ProviderCustomerID())
		require.Len(t, acc.Subscriptions, 1)
		assert.Equal(t, "si_123", acc.Subscriptions[0].ProviderSubscriptionID())
		assert.Equal(t, []int{0}, acc.SubscriptionsByProviderID("si_123"))
	})

	t.Run("no rows is not found", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewAccountRepository(db, logger.NewNoopLogger())

		mock.ExpectQuery(regexp.QuoteMeta("FROM accounts WHERE reference = $1")).
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows(accountRowColumns()))

		_, err := repo.GetByReference(ctx, "missing")
		require.Error(t, err)
		assert.True(t, ierr.IsNotFound(err))
		assert.Equal(t, 404, ierr.HTTPStatusFromErr(err))
	})
}

func TestAccountRepository_GetByProviderMetadata(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewAccountRepository(db, logger.NewNoopLogger())

	mock.ExpectQuery(regexp.QuoteMeta("provider_metadata ->> $1 = $2")).
		WithArgs("stripe_customer_id", "cus_404").
		WillReturnRows(sqlmock.NewRows(accountRowColumns()))

	_, err := repo.GetByProviderMetadata(context.Background(), "stripe_customer_id", "cus_404")
	assert.True(t, ierr.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
