package dto

import (
	"github.com/flexprice/subscriptions/internal/domain/account"
	"github.com/flexprice/subscriptions/internal/domain/user"
	"github.com/flexprice/subscriptions/internal/types"
)

const RenewalPayloadType = "renew"

// RenewalPayload is the body posted to the renewal webhook endpoint.
type RenewalPayload struct {
	Type          string                 `json:"type"`
	Account       *account.Account       `json:"account"`
	Users         []*user.User           `json:"users"`
	Subscriptions []account.Subscription `json:"subscriptions"`
	Interval      types.BillingInterval  `json:"interval"`
	IntervalCount int64                  `json:"intervalCount"`
}

func NewRenewalPayload(
	acc *account.Account,
	users []*user.User,
	subs []account.Subscription,
	interval types.BillingInterval,
	intervalCount int64,
) *RenewalPayload {
	if users == nil {
		users = []*user.User{}
	}
	return &RenewalPayload{
		Type:          RenewalPayloadType,
		Account:       acc,
		Users:         users,
		Subscriptions: subs,
		Interval:      interval,
		IntervalCount: intervalCount,
	}
}
