package v1

import (
	"net/http"

	"github.com/flexprice/subscriptions/internal/api/dto"
	ierr "github.com/flexprice/subscriptions/internal/errors"
	"github.com/flexprice/subscriptions/internal/logger"
	"github.com/flexprice/subscriptions/internal/service"
	"github.com/gin-gonic/gin"
)

type PlanHandler struct {
	service service.PlanCatalog
	log     *logger.Logger
}

func NewPlanHandler(
	service service.PlanCatalog,
	log *logger.Logger,
) *PlanHandler {
	return &PlanHandler{
		service: service,
		log:     log,
	}
}

// @Summary List plans
// @Description List the plans available for purchase with projected prices
// @Tags Plans
// @Produce json
// @Param tag query string false "Only plans carrying this tag"
// @Param includeVAT query bool false "Set to false to project prices without VAT"
// @Success 200 {object} dto.ListPlansResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 500 {object} ierr.ErrorResponse
// @Router /plans [get]
func (h *PlanHandler) ListPlans(c *gin.Context) {
	var req dto.ListPlansRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid query parameters").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.ListPlans(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Get a plan
// @Description Get a plan by reference with its projected price
// @Tags Plans
// @Produce json
// @Param ref path string true "Plan reference"
// @Param includeVAT query bool false "Set to false to project prices without VAT"
// @Success 200 {object} dto.PlanResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Failure 500 {object} ierr.ErrorResponse
// @Router /plans/{ref} [get]
func (h *PlanHandler) GetPlan(c *gin.Context) {
	var query dto.SubscriptionQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid query parameters").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.GetPlan(c.Request.Context(), c.Param("ref"), query.IncludeVAT)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
