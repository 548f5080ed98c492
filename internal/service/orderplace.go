package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"vipps/internal/domain"
	"vipps/internal/repository"
)

// OrderPlaceService converts a reserved cart into a committed order exactly
// once, guarded by the per-order lock.
type OrderPlaceService struct {
	locks  *LockManager
	orders repository.OrderRepository
	carts  repository.CartRepository
}

// NewOrderPlaceService creates a new OrderPlaceService.
func NewOrderPlaceService(locks *LockManager, orders repository.OrderRepository, carts repository.CartRepository) *OrderPlaceService {
	return &OrderPlaceService{locks: locks, orders: orders, carts: carts}
}

// Place places the order for the reservation, or returns the existing order
// unchanged if one was already placed for this reserved order id.
func (s *OrderPlaceService) Place(ctx context.Context, reservedOrderID, cartID string, state *domain.PaymentState) (*domain.Order, error) {
	lock, err := s.locks.Acquire(ctx, placeOrderLockName(reservedOrderID))
	if err != nil {
		return nil, err
	}
	defer lock.Release(ctx)

	return s.place(ctx, reservedOrderID, cartID, state)
}

// place runs the placement sequence. The caller must hold the place-order
// lock for reservedOrderID; the reconciliation processor calls this directly
// since it acquired the lock at the start of its pass.
func (s *OrderPlaceService) place(ctx context.Context, reservedOrderID, cartID string, state *domain.PaymentState) (*domain.Order, error) {
	// Re-check inside the lock: a concurrent caller that queued behind the
	// lock may have placed the order already.
	existing, err := s.orders.GetByIncrementID(ctx, reservedOrderID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	cart, err := s.carts.Get(ctx, cartID)
	if err != nil {
		return nil, err
	}

	if cart.ReservedOrderID != reservedOrderID {
		cart.ReservedOrderID = reservedOrderID
		if err := s.carts.Save(ctx, cart); err != nil {
			return nil, err
		}
		cart, err = s.carts.Get(ctx, cartID)
		if err != nil {
			return nil, err
		}
		if cart.ReservedOrderID != reservedOrderID {
			// Corrupted or reused cart; abort rather than overwrite.
			return nil, fmt.Errorf("%w: cart %s holds %q, expected %q",
				ErrCartMismatch, cartID, cart.ReservedOrderID, reservedOrderID)
		}
	}

	if cart.ExpressCheckout {
		applyExpressDetails(cart, state)
	}
	cart.CollectTotals()

	if err := ValidateAmount(cart.GrandTotal, state.RemainingAmountToCapture()); err != nil {
		return nil, err
	}

	cart.Active = true
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, err
	}

	order, err := s.carts.PlaceOrder(ctx, cart.ID)
	if err != nil {
		return nil, err
	}

	cart.ReservedOrderID = ""
	cart.Active = false
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, err
	}

	return order, nil
}

// applyExpressDetails overlays buyer identity and shipping choice supplied by
// the provider onto the cart before totals are recomputed.
func applyExpressDetails(cart *domain.Cart, state *domain.PaymentState) {
	if state.UserDetails != nil {
		user := state.UserDetails
		cart.CustomerEmail = user.Email
		if cart.BillingAddress == nil {
			cart.BillingAddress = &domain.Address{}
		}
		cart.BillingAddress.FirstName = user.FirstName
		cart.BillingAddress.LastName = user.LastName
		cart.BillingAddress.Email = user.Email
		cart.BillingAddress.Phone = user.Phone
	}

	if state.ShippingDetails != nil {
		shipping := state.ShippingDetails
		if cart.ShippingAddress == nil {
			cart.ShippingAddress = &domain.Address{}
		}
		cart.ShippingAddress.Street = shipping.Street
		cart.ShippingAddress.City = shipping.City
		cart.ShippingAddress.PostalCode = shipping.PostalCode
		cart.ShippingAddress.Country = shipping.Country
		cart.ShippingMethod = shipping.MethodID
		cart.ShippingAmount = decimal.NewFromInt(shipping.CostMinor).Div(minorUnitFactor)
	}
}
