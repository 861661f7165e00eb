package v1

import (
	"net/http"

	"github.com/flexprice/subscriptions/internal/api/dto"
	ierr "github.com/flexprice/subscriptions/internal/errors"
	"github.com/flexprice/subscriptions/internal/logger"
	"github.com/flexprice/subscriptions/internal/rest/middleware"
	"github.com/flexprice/subscriptions/internal/service"
	"github.com/gin-gonic/gin"
)

// SubscriptionHandler serves the same routes under /accounts/:ref and
// /users/:ref. The target resolver decides which one the request addressed.
type SubscriptionHandler struct {
	service service.SubscriptionService
	target  func(ref string) service.AccountTarget
	log     *logger.Logger
}

func NewAccountSubscriptionHandler(svc service.SubscriptionService, log *logger.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{service: svc, target: service.ForAccount, log: log}
}

func NewUserSubscriptionHandler(svc service.SubscriptionService, log *logger.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{service: svc, target: service.ForUser, log: log}
}

func (h *SubscriptionHandler) targetOf(c *gin.Context) service.AccountTarget {
	return h.target(c.Param("ref"))
}

func bindIncludeVAT(c *gin.Context) (*bool, bool) {
	var query dto.SubscriptionQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid query parameters").
			Mark(ierr.ErrValidation))
		return nil, false
	}
	return query.IncludeVAT, true
}

// @Summary List subscriptions
// @Description List every subscription of the account with plan details
// @Tags Subscriptions
// @Produce json
// @Security BearerAuth
// @Param ref path string true "Account or user reference"
// @Param includeVAT query bool false "Override VAT liability of the projection"
// @Success 200 {object} dto.ListSubscriptionsResponse
// @Failure 401 {object} ierr.ErrorResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Failure 500 {object} ierr.ErrorResponse
// @Router /accounts/{ref}/subscriptions [get]
func (h *SubscriptionHandler) ListSubscriptions(c *gin.Context) {
	includeVAT, ok := bindIncludeVAT(c)
	if !ok {
		return
	}

	resp, err := h.service.ListSubscriptions(c.Request.Context(), h.targetOf(c), includeVAT)
	if err != nil {
		c.Error(err)
		return
	}

	middleware.SetSurrogateKey(c, resp.AccountRef)
	c.JSON(http.StatusOK, resp)
}

// @Summary Get a subscription
// @Tags Subscriptions
// @Produce json
// @Security BearerAuth
// @Param ref path string true "Account or user reference"
// @Param id path string true "Subscription ID"
// @Param includeVAT query bool false "Override VAT liability of the projection"
// @Success 200 {object} dto.SubscriptionResponse
// @Failure 401 {object} ierr.ErrorResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Failure 500 {object} ierr.ErrorResponse
// @Router /accounts/{ref}/subscriptions/{id} [get]
func (h *SubscriptionHandler) GetSubscription(c *gin.Context) {
	includeVAT, ok := bindIncludeVAT(c)
	if !ok {
		return
	}

	resp, err := h.service.GetSubscription(c.Request.Context(), h.targetOf(c), c.Param("id"), includeVAT)
	if err != nil {
		c.Error(err)
		return
	}

	middleware.SetSurrogateKey(c, resp.AccountRef)
	c.JSON(http.StatusOK, resp)
}

// @Summary Create a subscription
// @Description Buy a plan. An exclusive plan replaces the account's current
// @Description exclusive subscription in place.
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param ref path string true "Account or user reference"
// @Param ignorePaymentProvider query bool false "Record the subscription without charging"
// @Param subscription body dto.CreateSubscriptionRequest true "Subscription"
// @Success 200 {object} dto.ListSubscriptionsResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 402 {object} ierr.ErrorResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Failure 503 {object} ierr.ErrorResponse
// @Router /accounts/{ref}/subscriptions [post]
func (h *SubscriptionHandler) CreateSubscription(c *gin.Context) {
	var query dto.CreateSubscriptionQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid query parameters").
			Mark(ierr.ErrValidation))
		return
	}

	var req dto.CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.CreateSubscription(c.Request.Context(), h.targetOf(c), &req, query.IgnorePaymentProvider)
	if err != nil {
		c.Error(err)
		return
	}

	middleware.SetSurrogateKey(c, resp.AccountRef)
	c.JSON(http.StatusOK, resp)
}

// @Summary Update a subscription
// @Description Change the plan, billing interval or payment details of one subscription
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param ref path string true "Account or user reference"
// @Param id path string true "Subscription ID"
// @Param subscription body dto.UpdateSubscriptionRequest true "Changes"
// @Success 200 {object} dto.ListSubscriptionsResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Router /accounts/{ref}/subscriptions/{id} [put]
func (h *SubscriptionHandler) UpdateSubscription(c *gin.Context) {
	var req dto.UpdateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.UpdateSubscription(c.Request.Context(), h.targetOf(c), c.Param("id"), &req)
	if err != nil {
		c.Error(err)
		return
	}

	middleware.SetSurrogateKey(c, resp.AccountRef)
	c.JSON(http.StatusOK, resp)
}

// @Summary Cancel subscriptions
// @Description Stop one subscription, or every active one when no id is given
// @Tags Subscriptions
// @Produce json
// @Security BearerAuth
// @Param ref path string true "Account or user reference"
// @Param id path string false "Subscription ID"
// @Success 200 {object} dto.CancelSubscriptionsResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Failure 503 {object} ierr.ErrorResponse
// @Failure 504 {object} ierr.ErrorResponse
// @Router /accounts/{ref}/subscriptions/{id} [delete]
func (h *SubscriptionHandler) CancelSubscriptions(c *gin.Context) {
	resp, err := h.service.CancelSubscriptions(c.Request.Context(), h.targetOf(c), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
