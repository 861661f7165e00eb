package internal

import (
	"fmt"

	"github.com/flexprice/subscriptions/internal/config"
	"github.com/flexprice/subscriptions/internal/domain/account"
	"github.com/flexprice/subscriptions/internal/domain/plan"
	"github.com/flexprice/subscriptions/internal/domain/user"
	"github.com/flexprice/subscriptions/internal/logger"
	"github.com/flexprice/subscriptions/internal/postgres"
	"github.com/flexprice/subscriptions/internal/repository"
)

// Env is what every script needs: config, a logger and the repositories.
type Env struct {
	Config   *config.Configuration
	Logger   *logger.Logger
	DB       *postgres.DB
	Accounts account.Repository
	Plans    plan.Repository
	Users    user.Repository
}

// NewEnv loads the configuration and connects to postgres.
func NewEnv() (*Env, error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	db, err := postgres.NewDB(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	return &Env{
		Config:   cfg,
		Logger:   log,
		DB:       db,
		Accounts: repository.NewAccountRepository(db, log),
		Plans:    repository.NewPlanRepository(db, log),
		Users:    repository.NewUserRepository(db, log),
	}, nil
}

func (e *Env) Close() {
	e.DB.Close()
}
