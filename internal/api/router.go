package api

import (
	v1 "github.com/flexprice/subscriptions/internal/api/v1"
	"github.com/flexprice/subscriptions/internal/config"
	"github.com/flexprice/subscriptions/internal/logger"
	"github.com/flexprice/subscriptions/internal/metrics"
	"github.com/flexprice/subscriptions/internal/rest/middleware"
	"github.com/flexprice/subscriptions/internal/sentry"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func NewRouter(
	handlers Handlers,
	cfg *config.Configuration,
	logger *logger.Logger,
	m *metrics.Metrics,
	sentrySvc *sentry.Service,
) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestIDMiddleware,
		middleware.CORSMiddleware,
		middleware.SentryMiddleware(cfg),
		m.Middleware(),
		middleware.ErrorHandler(logger, sentrySvc),
	)

	router.GET("/metrics", m.Handler())
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1Group := router.Group("/v1")
	registerV1Routes(v1Group, handlers, cfg, logger)

	return router
}

func registerV1Routes(router *gin.RouterGroup, handlers Handlers, cfg *config.Configuration, logger *logger.Logger) {
	router.GET("/health", handlers.Health.Health)

	plans := router.Group("/plans")
	{
		plans.GET("", handlers.Plan.ListPlans)
		plans.GET("/:ref", handlers.Plan.GetPlan)
	}

	// provider webhook, authenticated by its signature
	router.POST("/subscriptions/renew", handlers.Renewal.Renew)

	authenticated := router.Group("", middleware.AuthenticateMiddleware(cfg, logger))

	accounts := authenticated.Group("/accounts/:ref/subscriptions")
	registerSubscriptionRoutes(accounts, handlers.AccountSubscriptions)

	users := authenticated.Group("/users/:ref/subscriptions", middleware.AuthorizeUserMiddleware("ref"))
	registerSubscriptionRoutes(users, handlers.UserSubscriptions)
}

func registerSubscriptionRoutes(group *gin.RouterGroup, h *v1.SubscriptionHandler) {
	group.GET("", h.ListSubscriptions)
	group.GET("/:id", h.GetSubscription)
	group.POST("", h.CreateSubscription)
	group.PUT("/:id", h.UpdateSubscription)
	group.DELETE("", h.CancelSubscriptions)
	group.DELETE("/:id", h.CancelSubscriptions)
}
