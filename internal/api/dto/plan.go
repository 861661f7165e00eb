package dto

import (
	"github.com/flexprice/subscriptions/internal/domain/plan"
)

// PlanPrice is the customer facing price table. Amounts already include or
// exclude VAT according to the customer's liability.
type PlanPrice struct {
	Month       *float64 `json:"month,omitempty"`
	Year        *float64 `json:"year,omitempty"`
	Once        *float64 `json:"once,omitempty"`
	VATIncluded bool     `json:"vatIncluded"`
	Currency    string   `json:"currency"`
}

// PlanVAT holds the VAT part of each price.
type PlanVAT struct {
	Month *float64 `json:"month,omitempty"`
	Year  *float64 `json:"year,omitempty"`
	Once  *float64 `json:"once,omitempty"`
}

type PlanResponse struct {
	ID            string            `json:"id"`
	Reference     string            `json:"reference"`
	Name          string            `json:"name"`
	Description   string            `json:"description,omitempty"`
	Tags          []string          `json:"tags"`
	Position      int               `json:"position"`
	IsAvailable   bool              `json:"isAvailable"`
	AllowMultiple bool              `json:"allowMultiple"`
	TrialDays     int               `json:"trialDays,omitempty"`
	Price         PlanPrice         `json:"price"`
	VAT           PlanVAT           `json:"vat"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// NewPlanResponse copies the descriptive fields of p. Price and VAT are
// filled by the caller from a projection.
func NewPlanResponse(p *plan.Plan) *PlanResponse {
	tags := []string(p.Tags)
	if tags == nil {
		tags = []string{}
	}
	return &PlanResponse{
		ID:            p.ID,
		Reference:     p.Reference,
		Name:          p.Name,
		Description:   p.Description,
		Tags:          tags,
		Position:      p.Position,
		IsAvailable:   p.IsAvailable,
		AllowMultiple: p.AllowMultiple,
		TrialDays:     p.TrialDays,
		Metadata:      p.Metadata,
	}
}

type ListPlansResponse = ListResponse[*PlanResponse]

// ListPlansRequest is bound from the query string of GET /plans.
type ListPlansRequest struct {
	Tag        string `form:"tag"`
	IncludeVAT *bool  `form:"includeVAT"`
}
