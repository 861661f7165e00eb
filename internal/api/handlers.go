package api

import (
	v1 "github.com/flexprice/subscriptions/internal/api/v1"
	"github.com/flexprice/subscriptions/internal/logger"
	"github.com/flexprice/subscriptions/internal/service"
)

type Handlers struct {
	Health               *v1.HealthHandler
	Plan                 *v1.PlanHandler
	AccountSubscriptions *v1.SubscriptionHandler
	UserSubscriptions    *v1.SubscriptionHandler
	Renewal              *v1.RenewalHandler
}

func NewHandlers(
	plans service.PlanCatalog,
	subscriptions service.SubscriptionService,
	renewals service.RenewalService,
	log *logger.Logger,
) Handlers {
	return Handlers{
		Health:               v1.NewHealthHandler(),
		Plan:                 v1.NewPlanHandler(plans, log),
		AccountSubscriptions: v1.NewAccountSubscriptionHandler(subscriptions, log),
		UserSubscriptions:    v1.NewUserSubscriptionHandler(subscriptions, log),
		Renewal:              v1.NewRenewalHandler(renewals, log),
	}
}
