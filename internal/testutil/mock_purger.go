package testutil

import (
	"context"
	"sync"
)

// MockPurger implements purge.Purger and records the purged accounts.
// When Hold is set, every purge blocks until it is closed or the context ends.
type MockPurger struct {
	mu     sync.Mutex
	purged []string
	Err    error
	Hold   chan struct{}
}

func NewMockPurger() *MockPurger {
	return &MockPurger{}
}

func (p *MockPurger) PurgeAccount(ctx context.Context, accountRef string) error {
	if p.Hold != nil {
		select {
		case <-p.Hold:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.purged = append(p.purged, accountRef)
	return p.Err
}

func (p *MockPurger) Purged() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.purged...)
}

func (p *MockPurger) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.purged = nil
}
