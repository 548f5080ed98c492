package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"vipps/internal/domain"
	"vipps/internal/gateway"
	"vipps/internal/repository"
)

// CheckoutService starts a payment for a cart: it reserves an order id,
// creates the reservation record that later reconciliation passes key on,
// and asks the provider for the buyer redirect URL.
type CheckoutService struct {
	carts   repository.CartRepository
	records repository.ReservationRepository
	client  gateway.Client

	callbackURL string
	fallbackURL string
	currency    string
}

// NewCheckoutService creates a new CheckoutService.
func NewCheckoutService(carts repository.CartRepository, records repository.ReservationRepository, client gateway.Client, callbackURL, fallbackURL, currency string) *CheckoutService {
	return &CheckoutService{
		carts:       carts,
		records:     records,
		client:      client,
		callbackURL: callbackURL,
		fallbackURL: fallbackURL,
		currency:    currency,
	}
}

// StartResult carries the provider redirect for the buyer.
type StartResult struct {
	ReservedOrderID string
	RedirectURL     string
}

// Start initiates a payment for the cart and returns the redirect URL.
func (s *CheckoutService) Start(ctx context.Context, cartID, customerPhone string, express bool) (*StartResult, error) {
	if cartID == "" {
		return nil, ErrInvalidCartID
	}

	reservedOrderID, err := s.carts.ReserveOrderID(ctx, cartID)
	if err != nil {
		return nil, err
	}

	cart, err := s.carts.Get(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if cart.ExpressCheckout != express {
		cart.ExpressCheckout = express
		if err := s.carts.Save(ctx, cart); err != nil {
			return nil, err
		}
	}

	record := &domain.ReservationRecord{
		ID:              uuid.New().String(),
		CartID:          cartID,
		ReservedOrderID: reservedOrderID,
		StoreID:         cart.StoreID,
		AuthToken:       uuid.New().String(),
		Status:          domain.RecordStatusNew,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	if err := s.records.Create(ctx, record); err != nil {
		return nil, err
	}

	resp, err := s.client.Initiate(ctx, gateway.InitiateRequest{
		OrderID:           reservedOrderID,
		AmountMinor:       ToMinorUnits(cart.GrandTotal),
		CurrencyCode:      s.currency,
		CustomerPhone:     customerPhone,
		CallbackURL:       s.callbackURL,
		CallbackAuthToken: record.AuthToken,
		FallbackURL:       fmt.Sprintf("%s/%s?auth=%s", s.fallbackURL, reservedOrderID, record.AuthToken),
		Express:           express,
	})
	if err != nil {
		return nil, err
	}

	return &StartResult{ReservedOrderID: reservedOrderID, RedirectURL: resp.URL}, nil
}
