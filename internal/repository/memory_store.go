package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront-service/internal/domain"
	"github.com/google/uuid"
)

// MemoryStore implements Store with in-memory storage
type MemoryStore struct {
	mu          sync.RWMutex
	brands      map[uuid.UUID]*domain.Brand
	categories  map[uuid.UUID]*domain.Category
	products    map[uuid.UUID]*domain.Product
	users       map[uuid.UUID]*domain.User
	orders      map[uuid.UUID]*memoryOrder
	items       map[uuid.UUID]*domain.OrderItem
	activeCarts map[uuid.UUID]uuid.UUID // userID -> orderID
}

type memoryOrder struct {
	order   domain.Order
	itemIDs []uuid.UUID // insertion order
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		brands:      make(map[uuid.UUID]*domain.Brand),
		categories:  make(map[uuid.UUID]*domain.Category),
		products:    make(map[uuid.UUID]*domain.Product),
		users:       make(map[uuid.UUID]*domain.User),
		orders:      make(map[uuid.UUID]*memoryOrder),
		items:       make(map[uuid.UUID]*domain.OrderItem),
		activeCarts: make(map[uuid.UUID]uuid.UUID),
	}
}

func (s *MemoryStore) AddBrand(b domain.Brand) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.brands[b.ID] = &b
}

func (s *MemoryStore) AddCategory(c domain.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[c.ID] = &c
}

// AddProduct stores a product, filling brand and category names from the
// stored brands and categories when they are known.
func (s *MemoryStore) AddProduct(p domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b, ok := s.brands[p.BrandID]; ok {
		p.BrandName = b.Name
	}
	if c, ok := s.categories[p.CategoryID]; ok {
		p.CategoryName = c.Name
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	s.products[p.ID] = &p
}

func (s *MemoryStore) AddUser(u domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.Country == "" {
		u.Country = domain.DefaultCountry
	}
	s.users[u.ID] = &u
}

// SetStock overwrites the available stock of a product
func (s *MemoryStore) SetStock(productID uuid.UUID, stock int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[productID]
	if !ok {
		return ErrProductNotFound
	}
	p.AvailableStock = stock
	p.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) GetProduct(_ context.Context, id uuid.UUID) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryStore) ListFeaturedProducts(_ context.Context, limit int) ([]*domain.Product, error) {
	return s.filterProducts(limit, func(p *domain.Product) bool {
		return p.Featured && p.IsInStock()
	}), nil
}

func (s *MemoryStore) ListLatestProducts(_ context.Context, limit int) ([]*domain.Product, error) {
	return s.filterProducts(limit, func(p *domain.Product) bool {
		return p.IsInStock()
	}), nil
}

func (s *MemoryStore) ListRelatedProducts(_ context.Context, product *domain.Product, limit int) ([]*domain.Product, error) {
	return s.filterProducts(limit, func(p *domain.Product) bool {
		return p.CategoryID == product.CategoryID && p.ID != product.ID && p.IsInStock()
	}), nil
}

// filterProducts returns copies of matching products, newest first.
func (s *MemoryStore) filterProducts(limit int, match func(*domain.Product) bool) []*domain.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Product
	for _, p := range s.products {
		if match(p) {
			cp := *p
			result = append(result, &cp)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID.String() < result[j].ID.String()
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

func (s *MemoryStore) ListBrands(_ context.Context) ([]*domain.Brand, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	brands := make([]*domain.Brand, 0, len(s.brands))
	for _, b := range s.brands {
		cp := *b
		brands = append(brands, &cp)
	}
	sort.Slice(brands, func(i, j int) bool { return brands[i].Name < brands[j].Name })
	return brands, nil
}

func (s *MemoryStore) ListCategories(_ context.Context) ([]*domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	categories := make([]*domain.Category, 0, len(s.categories))
	for _, c := range s.categories {
		cp := *c
		categories = append(categories, &cp)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].Name < categories[j].Name })
	return categories, nil
}

func (s *MemoryStore) GetUser(_ context.Context, id uuid.UUID) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryStore) UpdateContact(_ context.Context, id uuid.UUID, contact domain.Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return ErrUserNotFound
	}
	for otherID, other := range s.users {
		if otherID != id && other.Phone == contact.Phone {
			return ErrDuplicatePhone
		}
	}

	u.FirstName = contact.FirstName
	u.LastName = contact.LastName
	u.Phone = contact.Phone
	u.HouseNumber = contact.HouseNumber
	u.RoadNumber = contact.RoadNumber
	u.PostalCode = contact.PostalCode
	u.District = contact.District
	u.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) EnsureActiveCart(_ context.Context, userID uuid.UUID) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return nil, ErrUserNotFound
	}

	if orderID, ok := s.activeCarts[userID]; ok {
		return s.snapshot(s.orders[orderID]), nil
	}

	now := time.Now()
	rec := &memoryOrder{
		order: domain.Order{
			ID:        uuid.New(),
			UserID:    userID,
			InCart:    true,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
	s.orders[rec.order.ID] = rec
	s.activeCarts[userID] = rec.order.ID
	return s.snapshot(rec), nil
}

func (s *MemoryStore) GetActiveCart(_ context.Context, userID uuid.UUID) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orderID, ok := s.activeCarts[userID]
	if !ok {
		return nil, ErrCartNotFound
	}
	return s.snapshot(s.orders[orderID]), nil
}

func (s *MemoryStore) GetOrder(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return s.snapshot(rec), nil
}

func (s *MemoryStore) ListCompletedOrders(_ context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var orders []*domain.Order
	for _, rec := range s.orders {
		if rec.order.UserID == userID && !rec.order.InCart {
			orders = append(orders, s.snapshot(rec))
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CompletedAt.After(*orders[j].CompletedAt)
	})
	return orders, nil
}

// snapshot returns a deep copy of the order with its items. Caller holds the lock.
func (s *MemoryStore) snapshot(rec *memoryOrder) *domain.Order {
	o := rec.order
	o.Items = make([]domain.OrderItem, 0, len(rec.itemIDs))
	for _, id := range rec.itemIDs {
		o.Items = append(o.Items, *s.items[id])
	}
	if rec.order.Shipping != nil {
		shipping := *rec.order.Shipping
		o.Shipping = &shipping
	}
	if rec.order.CompletedAt != nil {
		completed := *rec.order.CompletedAt
		o.CompletedAt = &completed
	}
	return &o
}

func (s *MemoryStore) GetItem(_ context.Context, itemID uuid.UUID) (*ItemRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[itemID]
	if !ok {
		return nil, ErrItemNotFound
	}
	rec := s.orders[item.OrderID]
	return &ItemRef{Item: *item, UserID: rec.order.UserID, InCart: rec.order.InCart}, nil
}

func (s *MemoryStore) AddItem(_ context.Context, orderID uuid.UUID, product *domain.Product, quantity int) (*domain.OrderItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.orders[orderID]
	if !ok || !rec.order.InCart {
		return nil, ErrOrderNotActive
	}
	if _, ok := s.products[product.ID]; !ok {
		return nil, ErrProductNotFound
	}

	now := time.Now()
	for _, id := range rec.itemIDs {
		if item := s.items[id]; item.ProductID == product.ID {
			item.Quantity += quantity
			item.UpdatedAt = now
			cp := *item
			return &cp, nil
		}
	}

	item := &domain.OrderItem{
		ID:              uuid.New(),
		OrderID:         orderID,
		ProductID:       product.ID,
		ProductName:     product.Name,
		Quantity:        quantity,
		PriceAtPurchase: product.Price,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	s.items[item.ID] = item
	rec.itemIDs = append(rec.itemIDs, item.ID)
	cp := *item
	return &cp, nil
}

// activeItem returns the item if its order is still a cart. Caller holds the lock.
func (s *MemoryStore) activeItem(itemID uuid.UUID) (*domain.OrderItem, *memoryOrder, error) {
	item, ok := s.items[itemID]
	if !ok {
		return nil, nil, ErrItemNotFound
	}
	rec := s.orders[item.OrderID]
	if !rec.order.InCart {
		return nil, nil, ErrItemNotFound
	}
	return item, rec, nil
}

func (s *MemoryStore) SetItemQuantity(_ context.Context, itemID uuid.UUID, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, _, err := s.activeItem(itemID)
	if err != nil {
		return err
	}
	item.Quantity = quantity
	item.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) RemoveItem(_ context.Context, itemID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, rec, err := s.activeItem(itemID)
	if err != nil {
		return err
	}

	delete(s.items, itemID)
	for i, id := range rec.itemIDs {
		if id == itemID {
			rec.itemIDs = append(rec.itemIDs[:i], rec.itemIDs[i+1:]...)
			break
		}
	}
	return nil
}

func (s *MemoryStore) CompleteOrder(_ context.Context, orderID uuid.UUID, shipping domain.ShippingDetails) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.orders[orderID]
	if !ok {
		return ErrOrderNotFound
	}
	if !rec.order.InCart {
		return ErrOrderNotActive
	}

	// First pass: validate every line against current stock
	for _, id := range rec.itemIDs {
		item := s.items[id]
		product, exists := s.products[item.ProductID]
		if !exists {
			return ErrProductNotFound
		}
		if item.Quantity > product.AvailableStock {
			return &StockShortage{
				ProductID: product.ID,
				Requested: item.Quantity,
				Available: product.AvailableStock,
			}
		}
	}

	// Second pass: deduct stock for all lines
	now := time.Now()
	for _, id := range rec.itemIDs {
		item := s.items[id]
		product := s.products[item.ProductID]
		product.AvailableStock -= item.Quantity
		product.UpdatedAt = now
	}

	rec.order.InCart = false
	rec.order.CompletedAt = &now
	rec.order.UpdatedAt = now
	rec.order.Shipping = &shipping
	delete(s.activeCarts, rec.order.UserID)
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
