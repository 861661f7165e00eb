package postgres

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/flexprice/subscriptions/internal/domain/plan"
	ierr "github.com/flexprice/subscriptions/internal/errors"
	"github.com/flexprice/subscriptions/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var planRowColumns = []string{
	"id", "reference", "name", "description", "tags", "position", "is_available",
	"allow_multiple", "price", "trial_days", "metadata", "created_at", "updated_at",
}

func TestPlanRepository_List(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPlanRepository(db, logger.NewNoopLogger())

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(planRowColumns).
		AddRow("plan_1", "starter", "Starter", "", "{web}", 1, true, false,
			[]byte(`{"month":"10","year":"100","vatIncluded":true}`), 0, []byte(`{}`), now, now).
		AddRow("plan_2", "pro", "Pro", "", "{web,api}", 2, true, false,
			[]byte(`{"month":"25.5","vatIncluded":false,"currency":"€"}`), 14, []byte(`{}`), now, now)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY position ASC")).
		WithArgs(true, "web").
		WillReturnRows(rows)

	plans, err := repo.List(context.Background(), &plan.Filter{Tag: "web", OnlyAvailable: true})
	require.NoError(t, err)
	require.Len(t, plans, 2)

	assert.Equal(t, "starter", plans[0].Reference)
	assert.True(t, plans[0].Price.VATIncluded)
	assert.Equal(t, "100", plans[0].Price.Year.String())
	assert.Equal(t, []string{"web", "api"}, []string(plans[1].Tags))
	assert.Nil(t, plans[1].Price.Year)
	assert.Equal(t, "€", plans[1].Price.Currency)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlanRepository_GetByReference(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewPlanRepository(db, logger.NewNoopLogger())

		mock.ExpectQuery(regexp.QuoteMeta("FROM plans WHERE reference = $1")).
			WithArgs("ghost").
			WillReturnError(sql.ErrNoRows)

		_, err := repo.GetByReference(context.Background(), "ghost")
		require.Error(t, err)
		assert.True(t, ierr.IsNotFound(err))
	})

	t.Run("driver failure", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewPlanRepository(db, logger.NewNoopLogger())

		mock.ExpectQuery(regexp.QuoteMeta("FROM plans WHERE reference = $1")).
			WillReturnError(assert.AnError)

		_, err := repo.GetByReference(context.Background(), "pro")
		require.Error(t, err)
		assert.False(t, ierr.IsNotFound(err))
		assert.Equal(t, 500, ierr.HTTPStatusFromErr(err))
	})
}

func TestPlanRepository_GetByIDsEmpty(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPlanRepository(db, logger.NewNoopLogger())

	plans, err := repo.GetByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, plans)
	assert.NoError(t, mock.ExpectationsWereMet())
}
