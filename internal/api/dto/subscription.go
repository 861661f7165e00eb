package dto

import (
	"time"

	"github.com/flexprice/subscriptions/internal/domain/account"
	ierr "github.com/flexprice/subscriptions/internal/errors"
	"github.com/flexprice/subscriptions/internal/types"
	"github.com/flexprice/subscriptions/internal/validator"
)

// CreateSubscriptionRequest is the body of POST .../subscriptions
type CreateSubscriptionRequest struct {
	Plan          string                `json:"plan" validate:"required"`
	Billing       types.BillingInterval `json:"billing,omitempty"`
	DiscountCode  string                `json:"discountCode,omitempty"`
	Token         string                `json:"token,omitempty"`
	PaymentMethod string                `json:"paymentMethod,omitempty"`
	DateExpires   *time.Time            `json:"dateExpires,omitempty"`
	Email         string                `json:"email,omitempty" validate:"omitempty,email"`
}

func (r *CreateSubscriptionRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if r.Billing != "" {
		if err := r.Billing.Validate(); err != nil {
			return err
		}
	}
	return validateExpiry(r.DateExpires)
}

// UpdateSubscriptionRequest is the body of PUT .../subscriptions/:id. Empty
// fields keep the subscription's current values.
type UpdateSubscriptionRequest struct {
	Plan          string                `json:"plan,omitempty"`
	Billing       types.BillingInterval `json:"billing,omitempty"`
	DiscountCode  string                `json:"discountCode,omitempty"`
	Token         string                `json:"token,omitempty"`
	PaymentMethod string                `json:"paymentMethod,omitempty"`
	DateExpires   *time.Time            `json:"dateExpires,omitempty"`
}

func (r *UpdateSubscriptionRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if r.Billing != "" {
		if err := r.Billing.Validate(); err != nil {
			return err
		}
	}
	return validateExpiry(r.DateExpires)
}

func validateExpiry(t *time.Time) error {
	if t != nil && t.IsZero() {
		return ierr.NewError("dateExpires is zero").
			WithHint("dateExpires must be a valid timestamp").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// SubscriptionResponse is a subscription with its plan projected for the
// account that owns it.
type SubscriptionResponse struct {
	ID           string                `json:"id"`
	Plan         string                `json:"plan"`
	PlanID       string                `json:"planId"`
	Billing      types.BillingInterval `json:"billing"`
	DateCreated  time.Time             `json:"dateCreated"`
	DateExpires  time.Time             `json:"dateExpires"`
	DateStopped  *time.Time            `json:"dateStopped,omitempty"`
	DiscountCode string                `json:"discountCode,omitempty"`
	IsActive     bool                  `json:"isActive"`
	Metadata     map[string]string     `json:"metadata,omitempty"`
	PlanDetails  *PlanResponse         `json:"planDetails,omitempty"`

	// AccountRef is the owning account, sent as the Surrogate-Key header.
	AccountRef string `json:"-"`
}

// NewSubscriptionResponse copies sub; PlanDetails is left to the caller.
func NewSubscriptionResponse(sub account.Subscription, now time.Time) *SubscriptionResponse {
	return &SubscriptionResponse{
		ID:           sub.ID,
		Plan:         sub.PlanReference,
		PlanID:       sub.PlanID,
		Billing:      sub.Billing,
		DateCreated:  sub.DateCreated,
		DateExpires:  sub.DateExpires,
		DateStopped:  sub.DateStopped,
		DiscountCode: sub.DiscountCode,
		IsActive:     sub.IsActive(now),
		Metadata:     sub.ProviderMetadata,
	}
}

// ListSubscriptionsResponse is every subscription of one account.
type ListSubscriptionsResponse struct {
	Items      []*SubscriptionResponse `json:"items"`
	AccountRef string                  `json:"-"`
}

// SubscriptionQuery is bound from the query string of subscription reads.
type SubscriptionQuery struct {
	IncludeVAT *bool `form:"includeVAT"`
}

// CreateSubscriptionQuery is bound from the query string of POST.
type CreateSubscriptionQuery struct {
	IgnorePaymentProvider bool `form:"ignorePaymentProvider"`
}

// CancelSubscriptionsResponse reports how many subscriptions were stopped.
type CancelSubscriptionsResponse struct {
	StoppedCount int `json:"stoppedCount"`
}

// RenewalResponse acknowledges a processed renewal notification.
type RenewalResponse struct {
	Message string `json:"message"`
	Renewed int    `json:"renewed"`
}
