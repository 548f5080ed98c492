package service

import (
	"context"
	"sync"

	"vipps/internal/domain"
	"vipps/internal/gateway"
)

// PaymentProvider fetches the authoritative payment state for an order. It
// caches one state per order reference for its own lifetime; the processor
// constructs a fresh provider per reconciliation pass, so every pass sees
// provider-side updates while duplicate calls within one pass are avoided.
type PaymentProvider struct {
	client gateway.Client

	mu    sync.Mutex
	cache map[string]*domain.PaymentState
}

// NewPaymentProvider creates a provider for a single reconciliation pass.
func NewPaymentProvider(client gateway.Client) *PaymentProvider {
	return &PaymentProvider{
		client: client,
		cache:  make(map[string]*domain.PaymentState),
	}
}

// Get returns the payment state for the order reference, fetching it from the
// provider on first use.
func (p *PaymentProvider) Get(ctx context.Context, orderReference string) (*domain.PaymentState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if state, ok := p.cache[orderReference]; ok {
		return state, nil
	}

	state, err := p.client.GetPaymentState(ctx, orderReference)
	if err != nil {
		return nil, err
	}

	p.cache[orderReference] = state
	return state, nil
}
