package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/flexprice/subscriptions/internal/integration/base"
	"github.com/flexprice/subscriptions/internal/types"
)

// MockPaymentProvider implements base.PaymentProvider and records every call.
// It hands out Stripe style references so the services can be exercised
// end to end without a network.
type MockPaymentProvider struct {
	mu sync.Mutex

	Requests []base.SubscriptionRequest
	Cancels  []base.ProviderRef

	// CreateErr fails every CreateOrUpdate call.
	CreateErr error
	// CancelErrs fails Cancel for the given provider subscription ids.
	CancelErrs map[string]error
	// CancelDelay blocks Cancel until it elapses or the context ends.
	CancelDelay time.Duration
	// Notification is returned by ParseRenewalNotification unless ParseErr is set.
	Notification *base.RenewalNotification
	ParseErr     error

	seq int
}

func NewMockPaymentProvider() *MockPaymentProvider {
	return &MockPaymentProvider{CancelErrs: map[string]error{}}
}

func (p *MockPaymentProvider) Name() types.PaymentProviderType {
	return types.PaymentProviderStripe
}

func (p *MockPaymentProvider) CreateOrUpdate(ctx context.Context, req *base.SubscriptionRequest) (*base.SubscriptionResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Requests = append(p.Requests, *req)
	if p.CreateErr != nil {
		return nil, p.CreateErr
	}

	res := &base.SubscriptionResult{
		AccountMetadata:      types.Metadata{},
		SubscriptionMetadata: types.Metadata{},
	}
	if req.Account.ProviderCustomerID() == "" {
		p.seq++
		res.AccountMetadata[types.MetadataKeyStripeCustomerID] = fmt.Sprintf("cus_%d", p.seq)
	}
	if req.Existing != nil && req.Existing.ProviderSubscriptionID() != "" {
		res.SubscriptionMetadata[types.MetadataKeyStripeSubscriptionID] = req.Existing.ProviderSubscriptionID()
	} else {
		p.seq++
		res.SubscriptionMetadata[types.MetadataKeyStripeSubscriptionID] = fmt.Sprintf("si_%d", p.seq)
	}
	return res, nil
}

func (p *MockPaymentProvider) Cancel(ctx context.Context, ref base.ProviderRef) error {
	if p.CancelDelay > 0 {
		select {
		case <-time.After(p.CancelDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.Cancels = append(p.Cancels, ref)
	return p.CancelErrs[ref.SubscriptionID]
}

func (p *MockPaymentProvider) ParseRenewalNotification(ctx context.Context, in base.RenewalNotificationInput) (*base.RenewalNotification, error) {
	if p.ParseErr != nil {
		return nil, p.ParseErr
	}
	n := *p.Notification
	return &n, nil
}

// CreateCalls reports how many times CreateOrUpdate was called.
func (p *MockPaymentProvider) CreateCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Requests)
}

// CancelCalls reports how many times Cancel returned.
func (p *MockPaymentProvider) CancelCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Cancels)
}
