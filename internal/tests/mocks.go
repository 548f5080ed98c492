package tests

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"vipps/internal/domain"
	"vipps/internal/gateway"
	"vipps/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK RESERVATION REPOSITORY
// ──────────────────────────────────────────────

// MockReservationRepository is a mock implementation of ReservationRepository.
type MockReservationRepository struct {
	mu       sync.RWMutex
	records  map[string]*domain.ReservationRecord
	ids      []string // insertion order, for deterministic listing
	attempts []*domain.ReservationAttempt

	// Counters for verification
	CreateCallCount      int32
	UpdateCallCount      int32
	SaveAttemptCallCount int32

	// Error injection
	CreateError error
	UpdateError error
}

// NewMockReservationRepository creates a new mock reservation repository.
func NewMockReservationRepository() *MockReservationRepository {
	return &MockReservationRepository{
		records: make(map[string]*domain.ReservationRecord),
	}
}

// AddRecord adds a record to the mock repository.
func (m *MockReservationRepository) AddRecord(record *domain.ReservationRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *record
	m.records[record.ID] = &copy
	m.ids = append(m.ids, record.ID)
}

func (m *MockReservationRepository) Create(ctx context.Context, record *domain.ReservationRecord) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *record
	m.records[record.ID] = &copy
	m.ids = append(m.ids, record.ID)
	return nil
}

func (m *MockReservationRepository) GetByID(ctx context.Context, id string) (*domain.ReservationRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	record, ok := m.records[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	// Return a copy to avoid mutation issues.
	copy := *record
	return &copy, nil
}

func (m *MockReservationRepository) GetByReservedOrderID(ctx context.Context, reservedOrderID string) (*domain.ReservationRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.records {
		if r.ReservedOrderID == reservedOrderID {
			copy := *r
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockReservationRepository) Update(ctx context.Context, record *domain.ReservationRecord) error {
	atomic.AddInt32(&m.UpdateCallCount, 1)
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[record.ID]; !ok {
		return repository.ErrNotFound
	}
	copy := *record
	m.records[record.ID] = &copy
	return nil
}

func (m *MockReservationRepository) ListProcessable(ctx context.Context, statuses []domain.RecordStatus, maxAttempts, limit int) ([]*domain.ReservationRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	wanted := make(map[domain.RecordStatus]bool, len(statuses))
	for _, s := range statuses {
		wanted[s] = true
	}
	result := make([]*domain.ReservationRecord, 0)
	for _, id := range m.ids {
		r := m.records[id]
		if !wanted[r.Status] || r.AttemptCount >= maxAttempts {
			continue
		}
		copy := *r
		result = append(result, &copy)
		if len(result) == limit {
			break
		}
	}
	return result, nil
}

func (m *MockReservationRepository) SaveAttempt(ctx context.Context, attempt *domain.ReservationAttempt) error {
	atomic.AddInt32(&m.SaveAttemptCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts = append(m.attempts, attempt)
	return nil
}

// GetRecord returns the record by ID (for test assertions).
func (m *MockReservationRepository) GetRecord(id string) *domain.ReservationRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.records[id]
}

// CountRecords returns the number of records.
func (m *MockReservationRepository) CountRecords() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// Attempts returns the saved attempts for assertions.
func (m *MockReservationRepository) Attempts() []*domain.ReservationAttempt {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.ReservationAttempt, len(m.attempts))
	copy(result, m.attempts)
	return result
}

// ──────────────────────────────────────────────
// MOCK ORDER REPOSITORY
// ──────────────────────────────────────────────

// MockOrderRepository is a mock implementation of OrderRepository.
type MockOrderRepository struct {
	mu     sync.RWMutex
	orders map[string]*domain.Order

	// Counters for verification
	SaveCallCount   int32
	CancelCallCount int32
	NotifyCallCount int32

	// Error injection
	SaveError   error
	CancelError error
}

// NewMockOrderRepository creates a new mock order repository.
func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{
		orders: make(map[string]*domain.Order),
	}
}

// AddOrder adds an order to the mock repository.
func (m *MockOrderRepository) AddOrder(order *domain.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *order
	m.orders[order.ID] = &copy
}

func (m *MockOrderRepository) GetByIncrementID(ctx context.Context, incrementID string) (*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, o := range m.orders {
		if o.IncrementID == incrementID {
			copy := *o
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockOrderRepository) Save(ctx context.Context, order *domain.Order) error {
	atomic.AddInt32(&m.SaveCallCount, 1)
	if m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *order
	m.orders[order.ID] = &copy
	return nil
}

func (m *MockOrderRepository) Cancel(ctx context.Context, orderID string) error {
	atomic.AddInt32(&m.CancelCallCount, 1)
	if m.CancelError != nil {
		return m.CancelError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[orderID]
	if !ok {
		return repository.ErrNotFound
	}
	// Only NEW and PAYMENT_REVIEW orders are cancellable.
	if order.State == domain.OrderStateNew || order.State == domain.OrderStatePaymentReview {
		order.State = domain.OrderStateCanceled
	}
	return nil
}

func (m *MockOrderRepository) Notify(ctx context.Context, orderID string) error {
	atomic.AddInt32(&m.NotifyCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[orderID]
	if !ok {
		return repository.ErrNotFound
	}
	order.EmailSent = true
	return nil
}

// GetOrder returns the order by ID (for test assertions).
func (m *MockOrderRepository) GetOrder(id string) *domain.Order {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.orders[id]
}

// GetOrderByIncrementID returns the order by increment ID for assertions.
func (m *MockOrderRepository) GetOrderByIncrementID(incrementID string) *domain.Order {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, o := range m.orders {
		if o.IncrementID == incrementID {
			return o
		}
	}
	return nil
}

// CountOrders returns the number of orders.
func (m *MockOrderRepository) CountOrders() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.orders)
}

// ──────────────────────────────────────────────
// MOCK CART REPOSITORY
// ──────────────────────────────────────────────

// MockCartRepository is a mock implementation of CartRepository.
type MockCartRepository struct {
	mu    sync.RWMutex
	carts map[string]*domain.Cart
	seq   int32

	// Orders receives orders created by PlaceOrder, so they are visible to
	// GetByIncrementID in the same scenario.
	Orders *MockOrderRepository

	// Counters for verification
	SaveCallCount           int32
	PlaceOrderCallCount     int32
	ReserveOrderIDCallCount int32

	// Error injection
	GetError        error
	SaveError       error
	PlaceOrderError error

	// StickyReservedOrderID, when set, is returned as the cart's reserved
	// order id on every Get regardless of saves. Simulates a corrupted or
	// reused cart that refuses reassignment.
	StickyReservedOrderID string
}

// NewMockCartRepository creates a new mock cart repository.
func NewMockCartRepository(orders *MockOrderRepository) *MockCartRepository {
	return &MockCartRepository{
		carts:  make(map[string]*domain.Cart),
		Orders: orders,
	}
}

// AddCart adds a cart to the mock repository.
func (m *MockCartRepository) AddCart(cart *domain.Cart) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *cart
	m.carts[cart.ID] = &copy
}

func (m *MockCartRepository) Get(ctx context.Context, cartID string) (*domain.Cart, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	cart, ok := m.carts[cartID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *cart
	if m.StickyReservedOrderID != "" {
		copy.ReservedOrderID = m.StickyReservedOrderID
	}
	return &copy, nil
}

func (m *MockCartRepository) Save(ctx context.Context, cart *domain.Cart) error {
	atomic.AddInt32(&m.SaveCallCount, 1)
	if m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.carts[cart.ID]; !ok {
		return repository.ErrNotFound
	}
	copy := *cart
	m.carts[cart.ID] = &copy
	return nil
}

func (m *MockCartRepository) ReserveOrderID(ctx context.Context, cartID string) (string, error) {
	atomic.AddInt32(&m.ReserveOrderIDCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	cart, ok := m.carts[cartID]
	if !ok {
		return "", repository.ErrNotFound
	}
	if cart.ReservedOrderID != "" {
		return cart.ReservedOrderID, nil
	}
	m.seq++
	cart.ReservedOrderID = fmt.Sprintf("%09d", 100000000+m.seq)
	return cart.ReservedOrderID, nil
}

func (m *MockCartRepository) PlaceOrder(ctx context.Context, cartID string) (*domain.Order, error) {
	atomic.AddInt32(&m.PlaceOrderCallCount, 1)
	if m.PlaceOrderError != nil {
		return nil, m.PlaceOrderError
	}
	m.mu.Lock()
	cart, ok := m.carts[cartID]
	if !ok {
		m.mu.Unlock()
		return nil, repository.ErrNotFound
	}
	order := &domain.Order{
		ID:          "order-" + cartID,
		IncrementID: cart.ReservedOrderID,
		StoreID:     cart.StoreID,
		State:       domain.OrderStateNew,
		TotalDue:    cart.GrandTotal,
		GrandTotal:  cart.GrandTotal,
		CreatedAt:   time.Now(),
	}
	m.mu.Unlock()

	if m.Orders != nil {
		m.Orders.AddOrder(order)
	}
	return order, nil
}

// GetCart returns the cart by ID (for test assertions).
func (m *MockCartRepository) GetCart(id string) *domain.Cart {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.carts[id]
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

// MockLockStore is a mock implementation of LockStore.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]string // name -> token

	// Counters
	AcquireCallCount int32
	ReleaseCallCount int32

	// Error injection
	AcquireError error

	// Force lock failure
	ForceAcquireFailure bool

	// BusyAttempts makes the first N acquire calls report the lock busy.
	BusyAttempts int32
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{
		locks: make(map[string]string),
	}
}

func (m *MockLockStore) Acquire(ctx context.Context, name string, ttl time.Duration) (string, bool, error) {
	n := atomic.AddInt32(&m.AcquireCallCount, 1)
	if m.AcquireError != nil {
		return "", false, m.AcquireError
	}
	if m.ForceAcquireFailure {
		return "", false, nil
	}
	if n <= atomic.LoadInt32(&m.BusyAttempts) {
		return "", false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, held := m.locks[name]; held {
		return "", false, nil
	}
	token := fmt.Sprintf("token-%d", n)
	m.locks[name] = token
	return token, true, nil
}

func (m *MockLockStore) Release(ctx context.Context, name, token string) (bool, error) {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[name] != token {
		return false, nil
	}
	delete(m.locks, name)
	return true, nil
}

func (m *MockLockStore) IsLocked(ctx context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, held := m.locks[name]
	return held, nil
}

// Held checks if a lock is held (for test assertions).
func (m *MockLockStore) Held(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, held := m.locks[name]
	return held
}

// ──────────────────────────────────────────────
// MOCK GATEWAY CLIENT
// ──────────────────────────────────────────────

// MockGatewayClient is a mock payment provider client.
type MockGatewayClient struct {
	mu sync.Mutex

	// State is returned by GetPaymentState.
	State *domain.PaymentState

	// Counters
	InitiateCallCount    int32
	GetStateCallCount    int32
	CancelCallCount      int32
	SendReceiptCallCount int32

	// Error injection
	InitiateError    error
	GetStateError    error
	CancelError      error
	SendReceiptError error

	// InitiateURL is the redirect URL returned on Initiate.
	InitiateURL string

	// LastInitiateRequest records the most recent Initiate call.
	LastInitiateRequest gateway.InitiateRequest
}

// NewMockGatewayClient creates a new mock provider client.
func NewMockGatewayClient() *MockGatewayClient {
	return &MockGatewayClient{
		InitiateURL: "https://pay.example.test/redirect",
	}
}

func (m *MockGatewayClient) Initiate(ctx context.Context, req gateway.InitiateRequest) (*gateway.InitiateResponse, error) {
	atomic.AddInt32(&m.InitiateCallCount, 1)
	m.mu.Lock()
	m.LastInitiateRequest = req
	m.mu.Unlock()
	if m.InitiateError != nil {
		return nil, m.InitiateError
	}
	return &gateway.InitiateResponse{OrderID: req.OrderID, URL: m.InitiateURL}, nil
}

func (m *MockGatewayClient) GetPaymentState(ctx context.Context, orderReference string) (*domain.PaymentState, error) {
	atomic.AddInt32(&m.GetStateCallCount, 1)
	if m.GetStateError != nil {
		return nil, m.GetStateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.State == nil {
		return nil, &gateway.Error{Status: 404, Message: "payment " + orderReference + " not found"}
	}
	copy := *m.State
	return &copy, nil
}

func (m *MockGatewayClient) Cancel(ctx context.Context, orderReference string) error {
	atomic.AddInt32(&m.CancelCallCount, 1)
	return m.CancelError
}

func (m *MockGatewayClient) SendReceipt(ctx context.Context, order *domain.Order) error {
	atomic.AddInt32(&m.SendReceiptCallCount, 1)
	return m.SendReceiptError
}

// SetState swaps the payment state returned by GetPaymentState.
func (m *MockGatewayClient) SetState(state *domain.PaymentState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.State = state
}

// ──────────────────────────────────────────────
// MOCK NOTIFIER
// ──────────────────────────────────────────────

// MockNotifier is a mock buyer notifier.
type MockNotifier struct {
	mu sync.Mutex

	// Counters
	SendCallCount int32

	// Error injection
	SendError error

	// LastOrderID records the most recent notified order.
	LastOrderID string
}

// NewMockNotifier creates a new mock notifier.
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) SendOrderConfirmation(ctx context.Context, order *domain.Order) error {
	atomic.AddInt32(&m.SendCallCount, 1)
	if m.SendError != nil {
		return m.SendError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastOrderID = order.ID
	return nil
}

// ──────────────────────────────────────────────
// MOCK ACTION RESOLVER
// ──────────────────────────────────────────────

// MockActionResolver resolves a fixed payment action.
type MockActionResolver struct {
	Action domain.PaymentAction
	Err    error
}

func (m *MockActionResolver) PaymentAction(ctx context.Context, storeID string) (domain.PaymentAction, error) {
	if m.Err != nil {
		return "", m.Err
	}
	if m.Action == "" {
		return domain.PaymentActionAuthorize, nil
	}
	return m.Action, nil
}

// ──────────────────────────────────────────────
// HELPER ERRORS
// ──────────────────────────────────────────────

var (
	ErrMockDBConstraint = errors.New("mock: unique constraint violation")
	ErrMockTimeout      = errors.New("mock: operation timeout")
)
