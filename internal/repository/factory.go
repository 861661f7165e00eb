package repository

import (
	"github.com/flexprice/subscriptions/internal/domain/account"
	"github.com/flexprice/subscriptions/internal/domain/plan"
	"github.com/flexprice/subscriptions/internal/domain/user"
	"github.com/flexprice/subscriptions/internal/logger"
	"github.com/flexprice/subscriptions/internal/postgres"
	postgresRepo "github.com/flexprice/subscriptions/internal/repository/postgres"
)

func NewAccountRepository(db *postgres.DB, logger *logger.Logger) account.Repository {
	return postgresRepo.NewAccountRepository(db, logger)
}

func NewPlanRepository(db *postgres.DB, logger *logger.Logger) plan.Repository {
	return postgresRepo.NewPlanRepository(db, logger)
}

func NewUserRepository(db *postgres.DB, logger *logger.Logger) user.Repository {
	return postgresRepo.NewUserRepository(db, logger)
}
