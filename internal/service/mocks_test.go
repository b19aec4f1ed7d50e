package service

import (
	"context"
	"sync"
	"testing"

	"github.com/fjod/go_cart/storefront-service/internal/archive"
	"github.com/fjod/go_cart/storefront-service/internal/cache"
	"github.com/fjod/go_cart/storefront-service/internal/domain"
	"github.com/fjod/go_cart/storefront-service/internal/repository"
	"github.com/fjod/go_cart/storefront-service/internal/slip"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MockCache implements cache.CartCache in memory and records calls
type MockCache struct {
	mu        sync.Mutex
	carts     map[uuid.UUID]*domain.Order
	versions  map[uuid.UUID]int64
	GetCalls  int
	SetCalls  int
	Stale     int
	Deletes   []uuid.UUID
	GetErr    error
	DeleteErr error
}

func NewMockCache() *MockCache {
	return &MockCache{
		carts:    make(map[uuid.UUID]*domain.Order),
		versions: make(map[uuid.UUID]int64),
	}
}

func (m *MockCache) Get(_ context.Context, userID uuid.UUID) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetCalls++
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	cart, ok := m.carts[userID]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return cart, nil
}

func (m *MockCache) Version(_ context.Context, userID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.versions[userID], nil
}

func (m *MockCache) Set(_ context.Context, userID uuid.UUID, cart *domain.Order, version int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.versions[userID] != version {
		m.Stale++
		return cache.ErrStaleVersion
	}
	m.SetCalls++
	m.carts[userID] = cart
	return nil
}

func (m *MockCache) Delete(_ context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deletes = append(m.Deletes, userID)
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	m.versions[userID]++
	delete(m.carts, userID)
	return nil
}

// MockRenderer implements SlipRenderer
type MockRenderer struct {
	mu    sync.Mutex
	Err   error
	Calls int
	Last  *slip.Slip
}

func (m *MockRenderer) Render(_ context.Context, s *slip.Slip) (*slip.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	m.Last = s
	if m.Err != nil {
		return nil, m.Err
	}
	return slip.NewDocument(s.OrderID, []byte("%PDF-"+s.Total.StringFixed(2)), s.PrintedAt), nil
}

// MockArchive implements archive.SlipArchive
type MockArchive struct {
	mu     sync.Mutex
	docs   map[uuid.UUID]*slip.Document
	PutErr error
	Gets   int
}

func NewMockArchive() *MockArchive {
	return &MockArchive{docs: make(map[uuid.UUID]*slip.Document)}
}

func (m *MockArchive) Get(_ context.Context, orderID uuid.UUID) (*slip.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Gets++
	doc, ok := m.docs[orderID]
	if !ok {
		return nil, archive.ErrSlipNotFound
	}
	return doc, nil
}

func (m *MockArchive) Put(_ context.Context, doc *slip.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PutErr != nil {
		return m.PutErr
	}
	if _, ok := m.docs[doc.OrderID]; !ok {
		m.docs[doc.OrderID] = doc
	}
	return nil
}

// MockPublisher implements EventPublisher
type MockPublisher struct {
	mu        sync.Mutex
	Err       error
	Published []*domain.Order
}

func (m *MockPublisher) PublishOrderCompleted(_ context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Published = append(m.Published, order)
	return m.Err
}

type testEnv struct {
	store     *repository.MemoryStore
	cache     *MockCache
	renderer  *MockRenderer
	archive   *MockArchive
	publisher *MockPublisher
	carts     *CartService
	checkout  *CheckoutService
	userID    uuid.UUID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := repository.NewMemoryStore()
	t.Cleanup(func() { store.Close() })

	userID := uuid.New()
	store.AddUser(domain.User{
		ID:          userID,
		Email:       "rafi@example.com",
		FirstName:   "Rafi",
		LastName:    "Ahmed",
		Phone:       "01711111111",
		HouseNumber: "7",
		RoadNumber:  "3A",
		PostalCode:  "4000",
		District:    "Chattogram",
	})

	env := &testEnv{
		store:     store,
		cache:     NewMockCache(),
		renderer:  &MockRenderer{},
		archive:   NewMockArchive(),
		publisher: &MockPublisher{},
		userID:    userID,
	}
	env.carts = NewCartService(store, store, env.cache)
	env.checkout = NewCheckoutService(store, store, env.cache, env.renderer, env.archive, env.publisher)
	return env
}

func (e *testEnv) addProduct(name, price string, stock int) uuid.UUID {
	id := uuid.New()
	e.store.AddProduct(domain.Product{
		ID:             id,
		Name:           name,
		Price:          decimal.RequireFromString(price),
		AvailableStock: stock,
	})
	return id
}

func (e *testEnv) addUser(phone string) uuid.UUID {
	id := uuid.New()
	e.store.AddUser(domain.User{ID: id, FirstName: "Other", LastName: "User", Phone: phone})
	return id
}

func validContact() domain.Contact {
	return domain.Contact{
		FirstName:   "Nusrat",
		LastName:    "Jahan",
		Phone:       "018-1234-5678",
		HouseNumber: "4",
		RoadNumber:  "9",
		PostalCode:  "1212",
		District:    "Dhaka",
		Note:        "Call before delivery",
	}
}
