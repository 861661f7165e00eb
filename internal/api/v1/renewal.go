package v1

import (
	"fmt"
	"io"
	"net/http"

	"github.com/flexprice/subscriptions/internal/api/dto"
	ierr "github.com/flexprice/subscriptions/internal/errors"
	"github.com/flexprice/subscriptions/internal/integration/base"
	"github.com/flexprice/subscriptions/internal/logger"
	"github.com/flexprice/subscriptions/internal/service"
	"github.com/flexprice/subscriptions/internal/types"
	"github.com/gin-gonic/gin"
)

// maxNotificationBytes matches the cap Stripe documents for event payloads.
const maxNotificationBytes = 1 << 20

type RenewalHandler struct {
	service service.RenewalService
	log     *logger.Logger
}

func NewRenewalHandler(
	service service.RenewalService,
	log *logger.Logger,
) *RenewalHandler {
	return &RenewalHandler{
		service: service,
		log:     log,
	}
}

// @Summary Renew subscriptions
// @Description Payment provider webhook. Extends every subscription paid by
// @Description the notified recurring payment.
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Param Stripe-Signature header string false "Provider signature"
// @Success 200 {object} dto.RenewalResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Failure 500 {object} ierr.ErrorResponse
// @Router /subscriptions/renew [post]
func (h *RenewalHandler) Renew(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxNotificationBytes))
	if err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Failed to read notification body").
			Mark(ierr.ErrInvalidNotification))
		return
	}

	res, err := h.service.HandleNotification(c.Request.Context(), base.RenewalNotificationInput{
		Payload:   payload,
		Signature: c.GetHeader(types.HeaderStripeSignature),
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.RenewalResponse{
		Message: fmt.Sprintf("Updated account and %d subscription(s)", len(res.Renewed)),
		Renewed: len(res.Renewed),
	})
}
