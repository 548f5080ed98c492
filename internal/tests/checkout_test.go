package tests

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"vipps/internal/domain"
	"vipps/internal/service"
)

// ──────────────────────────────────────────────
// CHECKOUT INITIATION
// ──────────────────────────────────────────────

type checkoutFixture struct {
	carts    *MockCartRepository
	records  *MockReservationRepository
	client   *MockGatewayClient
	checkout *service.CheckoutService
}

func newCheckoutFixture() *checkoutFixture {
	f := &checkoutFixture{
		carts:   NewMockCartRepository(nil),
		records: NewMockReservationRepository(),
		client:  NewMockGatewayClient(),
	}
	f.checkout = service.NewCheckoutService(
		f.carts, f.records, f.client,
		"https://shop.example.test/v1/vipps/callback",
		"https://shop.example.test/v1/vipps/fallback",
		"NOK",
	)
	return f
}

func TestCheckout_Start_CreatesRecordAndInitiatesPayment(t *testing.T) {
	t.Parallel()

	f := newCheckoutFixture()
	f.carts.AddCart(&domain.Cart{
		ID:         "cart-1",
		StoreID:    "store-1",
		Subtotal:   decimal.RequireFromString("50.00"),
		GrandTotal: decimal.RequireFromString("50.00"),
	})

	result, err := f.checkout.Start(context.Background(), "cart-1", "4712345678", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.ReservedOrderID == "" {
		t.Error("expected a reserved order id")
	}
	if result.RedirectURL != f.client.InitiateURL {
		t.Errorf("expected redirect url %s, got %s", f.client.InitiateURL, result.RedirectURL)
	}

	if f.records.CountRecords() != 1 {
		t.Fatalf("expected 1 reservation record, got %d", f.records.CountRecords())
	}
	record, err := f.records.GetByReservedOrderID(context.Background(), result.ReservedOrderID)
	if err != nil {
		t.Fatalf("record not found: %v", err)
	}
	if record.Status != domain.RecordStatusNew {
		t.Errorf("expected record status %s, got %s", domain.RecordStatusNew, record.Status)
	}
	if record.AuthToken == "" {
		t.Error("expected record to carry an auth token")
	}

	req := f.client.LastInitiateRequest
	if req.AmountMinor != 5000 {
		t.Errorf("expected amount 5000 minor units, got %d", req.AmountMinor)
	}
	if req.CurrencyCode != "NOK" {
		t.Errorf("expected currency NOK, got %s", req.CurrencyCode)
	}
	if req.CallbackAuthToken != record.AuthToken {
		t.Error("expected the record auth token to be handed to the provider")
	}
	if !strings.Contains(req.FallbackURL, result.ReservedOrderID) || !strings.Contains(req.FallbackURL, record.AuthToken) {
		t.Errorf("expected fallback url to carry order id and auth token, got %s", req.FallbackURL)
	}
}

func TestCheckout_Start_EmptyCartID_Rejected(t *testing.T) {
	t.Parallel()

	f := newCheckoutFixture()

	_, err := f.checkout.Start(context.Background(), "", "", false)
	if !errors.Is(err, service.ErrInvalidCartID) {
		t.Fatalf("expected ErrInvalidCartID, got %v", err)
	}
	if f.client.InitiateCallCount != 0 {
		t.Errorf("expected no provider call, got %d", f.client.InitiateCallCount)
	}
}

func TestCheckout_Start_ExpressFlagStoredOnCart(t *testing.T) {
	t.Parallel()

	f := newCheckoutFixture()
	f.carts.AddCart(&domain.Cart{
		ID:         "cart-1",
		GrandTotal: decimal.RequireFromString("50.00"),
	})

	if _, err := f.checkout.Start(context.Background(), "cart-1", "4712345678", true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !f.carts.GetCart("cart-1").ExpressCheckout {
		t.Error("expected cart to be flagged express")
	}
	if !f.client.LastInitiateRequest.Express {
		t.Error("expected initiate request to be flagged express")
	}
}

func TestCheckout_Start_ProviderFailure_Propagates(t *testing.T) {
	t.Parallel()

	f := newCheckoutFixture()
	f.carts.AddCart(&domain.Cart{
		ID:         "cart-1",
		GrandTotal: decimal.RequireFromString("50.00"),
	})
	f.client.InitiateError = ErrMockTimeout

	_, err := f.checkout.Start(context.Background(), "cart-1", "", false)
	if !errors.Is(err, ErrMockTimeout) {
		t.Fatalf("expected provider error to propagate, got %v", err)
	}
}
