package main

import (
	"context"
	"net/http"
	"time"

	"github.com/flexprice/subscriptions/internal/api"
	"github.com/flexprice/subscriptions/internal/cache"
	"github.com/flexprice/subscriptions/internal/config"
	"github.com/flexprice/subscriptions/internal/cron"
	"github.com/flexprice/subscriptions/internal/domain/account"
	"github.com/flexprice/subscriptions/internal/httpclient"
	"github.com/flexprice/subscriptions/internal/integration"
	"github.com/flexprice/subscriptions/internal/integration/base"
	"github.com/flexprice/subscriptions/internal/logger"
	"github.com/flexprice/subscriptions/internal/metrics"
	"github.com/flexprice/subscriptions/internal/postgres"
	"github.com/flexprice/subscriptions/internal/purge"
	"github.com/flexprice/subscriptions/internal/repository"
	"github.com/flexprice/subscriptions/internal/sentry"
	"github.com/flexprice/subscriptions/internal/service"
	"github.com/flexprice/subscriptions/internal/types"
	"github.com/flexprice/subscriptions/internal/webhook"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

// @title Subscriptions API
// @version 1.0
// @description Plans and subscriptions of accounts, reconciled with the payment provider
// @BasePath /v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Enter the token in the format *Bearer &lt;token&gt;*

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	var opts []fx.Option

	// Core dependencies
	opts = append(opts,
		fx.Provide(
			// Config
			config.NewConfig,

			// Logger
			logger.NewLogger,

			// Monitoring
			sentry.NewSentryService,
			metrics.NewMetrics,

			// Cache
			cache.NewCache,

			// Postgres
			postgres.NewDB,

			// HTTP Client
			provideHTTPClient,

			// Repositories
			repository.NewAccountRepository,
			repository.NewPlanRepository,
			repository.NewUserRepository,

			// Payment provider and CDN
			integration.NewPaymentProvider,
			purge.NewPurger,
		),
	)

	// Webhook module (must be initialised before services)
	opts = append(opts, webhook.Module)

	// Service layer
	opts = append(opts,
		fx.Provide(
			service.NewAccountLocker,
			service.NewServiceParams,

			service.NewPlanCatalog,
			provideSubscriptionResolver,
			service.NewSubscriptionReconciler,
			service.NewCancellationEngine,
			service.NewSubscriptionService,
			service.NewRenewalService,
			provideCustomerCleanup,
		),
	)

	// API and cron
	opts = append(opts,
		fx.Provide(
			api.NewHandlers,
			api.NewRouter,
			cron.NewScheduler,
		),
		fx.Invoke(
			sentry.RegisterHooks,
			registerNotifierHooks,
			startServer,
		),
	)

	app := fx.New(opts...)
	app.Run()
}

func provideHTTPClient(log *logger.Logger) httpclient.Client {
	return httpclient.NewDefaultClient(httpclient.DefaultConfig(), log)
}

func provideSubscriptionResolver(cfg *config.Configuration, plans service.PlanCatalog, log *logger.Logger) service.SubscriptionResolver {
	return service.NewSubscriptionResolver(plans, cfg.Subscriptions.AllowMultiple, log)
}

// provideCustomerCleanup returns nil when the provider has no customer
// directory to clean.
func provideCustomerCleanup(
	cfg *config.Configuration,
	accounts account.Repository,
	provider base.PaymentProvider,
	log *logger.Logger,
) *service.CustomerCleanup {
	directory, ok := provider.(service.CustomerDirectory)
	if !ok {
		return nil
	}
	return service.NewCustomerCleanup(accounts, directory, cfg.Cleanup.RatePerSecond, cfg.Cleanup.OlderThan, log)
}

// registerNotifierHooks lets queued purges finish before shutdown.
func registerNotifierHooks(lc fx.Lifecycle, params service.ServiceParams) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			done := make(chan struct{})
			go func() {
				params.Notifier.Wait()
				close(done)
			}()

			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	scheduler *cron.Scheduler,
	db *postgres.DB,
	log *logger.Logger,
) {
	mode := cfg.Deployment.Mode
	if mode == "" {
		mode = types.ModeLocal
	}

	switch mode {
	case types.ModeLocal:
		startAPIServer(lc, r, cfg, log)
		cron.RegisterHooks(lc, scheduler)
	case types.ModeAPI:
		startAPIServer(lc, r, cfg, log)
	case types.ModeCron:
		cron.RegisterHooks(lc, scheduler)
	default:
		log.Fatalf("Unknown deployment mode: %s", mode)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			db.Close()
			return nil
		},
	})
}

func startAPIServer(
	lc fx.Lifecycle,
	r *gin.Engine,
	cfg *config.Configuration,
	log *logger.Logger,
) {
	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: r,
	}

	log.Info("Registering API server start hook")
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("Starting API server...", "address", cfg.Server.Address)
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down server...")
			return srv.Shutdown(ctx)
		},
	})
}
