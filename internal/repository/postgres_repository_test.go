package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_cart/storefront-service/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	seedCleanser = uuid.MustParse("9a3e5f70-2b1c-4d8e-a6f4-1e2d3c4b0001") // stock 40, 1450.00
	seedEssence  = uuid.MustParse("9a3e5f70-2b1c-4d8e-a6f4-1e2d3c4b0003") // stock 8, 1600.00
	seedGel      = uuid.MustParse("9a3e5f70-2b1c-4d8e-a6f4-1e2d3c4b0004") // stock 60, 950.00
)

func setupTestDB(t *testing.T) (*Repository, func()) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)

	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	creds := &Credentials{
		Host:              host,
		Port:              port.Int(),
		User:              "testuser",
		Password:          "testpass",
		DBName:            "testdb",
		MigrationsDirPath: "./migrations",
	}

	repo, err := NewRepository(creds)
	require.NoError(t, err)

	err = repo.RunMigrations(creds)
	require.NoError(t, err)

	cleanup := func() {
		repo.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return repo, cleanup
}

func TestCatalog_SeededListings(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	featured, err := repo.ListFeaturedProducts(ctx, 6)
	require.NoError(t, err)
	assert.Len(t, featured, 2)

	latest, err := repo.ListLatestProducts(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, latest, 4)

	product, err := repo.GetProduct(ctx, seedCleanser)
	require.NoError(t, err)
	assert.Equal(t, "CeraVe", product.BrandName)
	assert.Equal(t, "Cleanser", product.CategoryName)
	assert.Equal(t, "1450.00", product.Price.StringFixed(2))

	related, err := repo.ListRelatedProducts(ctx, product, 4)
	require.NoError(t, err)
	require.Len(t, related, 1)
	assert.Equal(t, seedGel, related[0].ID)

	_, err = repo.GetProduct(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestEnsureActiveCart_Idempotent(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make([]uuid.UUID, 10)
	errs := make([]error, 10)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			order, err := repo.EnsureActiveCart(ctx, DemoUserID)
			errs[i] = err
			if err == nil {
				ids[i] = order.ID
			}
		}(i)
	}
	wg.Wait()

	for i := range ids {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}

	_, err := repo.EnsureActiveCart(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestAddItem_MergesAndKeepsPrice(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	cart, err := repo.EnsureActiveCart(ctx, DemoUserID)
	require.NoError(t, err)
	product, err := repo.GetProduct(ctx, seedCleanser)
	require.NoError(t, err)

	_, err = repo.AddItem(ctx, cart.ID, product, 1)
	require.NoError(t, err)

	product.Price = decimal.RequireFromString("9999.00")
	item, err := repo.AddItem(ctx, cart.ID, product, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, item.Quantity)
	assert.Equal(t, "1450.00", item.PriceAtPurchase.StringFixed(2))

	cart, err = repo.GetActiveCart(ctx, DemoUserID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "Hydrating Facial Cleanser", cart.Items[0].ProductName)
	assert.Equal(t, "4350.00", cart.TotalPrice().StringFixed(2))
}

func TestItemQuantityAndRemoval(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	cart, err := repo.EnsureActiveCart(ctx, DemoUserID)
	require.NoError(t, err)
	product, err := repo.GetProduct(ctx, seedGel)
	require.NoError(t, err)
	item, err := repo.AddItem(ctx, cart.ID, product, 1)
	require.NoError(t, err)

	require.NoError(t, repo.SetItemQuantity(ctx, item.ID, 5))
	ref, err := repo.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, ref.Item.Quantity)
	assert.Equal(t, DemoUserID, ref.UserID)
	assert.True(t, ref.InCart)

	require.NoError(t, repo.RemoveItem(ctx, item.ID))
	_, err = repo.GetItem(ctx, item.ID)
	assert.ErrorIs(t, err, ErrItemNotFound)
	assert.ErrorIs(t, repo.SetItemQuantity(ctx, item.ID, 2), ErrItemNotFound)
}

func TestCompleteOrder_DeductsStock(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	cart, err := repo.EnsureActiveCart(ctx, DemoUserID)
	require.NoError(t, err)
	product, err := repo.GetProduct(ctx, seedEssence)
	require.NoError(t, err)
	item, err := repo.AddItem(ctx, cart.ID, product, 3)
	require.NoError(t, err)

	shipping := domain.ShippingDetails{Name: "Demo Customer", Phone: "01700000000", Address: "House: 12", Note: "ring twice"}
	require.NoError(t, repo.CompleteOrder(ctx, cart.ID, shipping))

	product, err = repo.GetProduct(ctx, seedEssence)
	require.NoError(t, err)
	assert.Equal(t, 5, product.AvailableStock)

	order, err := repo.GetOrder(ctx, cart.ID)
	require.NoError(t, err)
	assert.False(t, order.InCart)
	require.NotNil(t, order.CompletedAt)
	require.NotNil(t, order.Shipping)
	assert.Equal(t, shipping, *order.Shipping)

	// completed lines are frozen
	assert.ErrorIs(t, repo.SetItemQuantity(ctx, item.ID, 1), ErrItemNotFound)
	_, err = repo.AddItem(ctx, cart.ID, product, 1)
	assert.ErrorIs(t, err, ErrOrderNotActive)
	assert.ErrorIs(t, repo.CompleteOrder(ctx, cart.ID, shipping), ErrOrderNotActive)

	orders, err := repo.ListCompletedOrders(ctx, DemoUserID)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Len(t, orders[0].Items, 1)

	_, err = repo.GetActiveCart(ctx, DemoUserID)
	assert.ErrorIs(t, err, ErrCartNotFound)
}

func TestCompleteOrder_ShortageRollsBack(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	cart, err := repo.EnsureActiveCart(ctx, DemoUserID)
	require.NoError(t, err)
	gel, err := repo.GetProduct(ctx, seedGel)
	require.NoError(t, err)
	essence, err := repo.GetProduct(ctx, seedEssence)
	require.NoError(t, err)

	_, err = repo.AddItem(ctx, cart.ID, gel, 2)
	require.NoError(t, err)
	_, err = repo.AddItem(ctx, cart.ID, essence, 9)
	require.NoError(t, err)

	err = repo.CompleteOrder(ctx, cart.ID, domain.ShippingDetails{Name: "Demo Customer"})
	require.ErrorIs(t, err, ErrInsufficientStock)
	var shortage *StockShortage
	require.True(t, errors.As(err, &shortage))
	assert.Equal(t, seedEssence, shortage.ProductID)

	gel, err = repo.GetProduct(ctx, seedGel)
	require.NoError(t, err)
	assert.Equal(t, 60, gel.AvailableStock)

	order, err := repo.GetOrder(ctx, cart.ID)
	require.NoError(t, err)
	assert.True(t, order.InCart)
	assert.Nil(t, order.Shipping)
}

func insertShopper(t *testing.T, repo *Repository, n int) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := repo.db.ExecContext(context.Background(),
		`INSERT INTO users (id, email, first_name, last_name, phone_number) VALUES ($1, $2, $3, $4, $5)`,
		id, fmt.Sprintf("shopper%d@example.com", n), "Shopper", fmt.Sprint(n), fmt.Sprintf("019000000%02d", n))
	require.NoError(t, err)
	return id
}

func TestCompleteOrder_ConcurrentCartsForLastUnit(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	_, err := repo.db.ExecContext(ctx, `UPDATE products SET available_stock = 1 WHERE id = $1`, seedEssence)
	require.NoError(t, err)
	essence, err := repo.GetProduct(ctx, seedEssence)
	require.NoError(t, err)

	const shoppers = 8
	carts := make([]uuid.UUID, shoppers)
	for i := range carts {
		cart, errCart := repo.EnsureActiveCart(ctx, insertShopper(t, repo, i))
		require.NoError(t, errCart)
		_, errAdd := repo.AddItem(ctx, cart.ID, essence, 1)
		require.NoError(t, errAdd)
		carts[i] = cart.ID
	}

	var wg sync.WaitGroup
	errs := make([]error, shoppers)
	for i := range carts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.CompleteOrder(ctx, carts[i], domain.ShippingDetails{Name: "Shopper"})
		}(i)
	}
	wg.Wait()

	completed := 0
	for _, err := range errs {
		if err == nil {
			completed++
			continue
		}
		assert.ErrorIs(t, err, ErrInsufficientStock)
	}
	assert.Equal(t, 1, completed)

	essence, err = repo.GetProduct(ctx, seedEssence)
	require.NoError(t, err)
	assert.Equal(t, 0, essence.AvailableStock)
}

func TestCompleteOrder_SameCartTwice(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	cart, err := repo.EnsureActiveCart(ctx, DemoUserID)
	require.NoError(t, err)
	gel, err := repo.GetProduct(ctx, seedGel)
	require.NoError(t, err)
	_, err = repo.AddItem(ctx, cart.ID, gel, 2)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.CompleteOrder(ctx, cart.ID, domain.ShippingDetails{Name: "Demo Customer"})
		}(i)
	}
	wg.Wait()

	completed := 0
	for _, err := range errs {
		if err == nil {
			completed++
			continue
		}
		assert.ErrorIs(t, err, ErrOrderNotActive)
	}
	assert.Equal(t, 1, completed)

	gel, err = repo.GetProduct(ctx, seedGel)
	require.NoError(t, err)
	assert.Equal(t, 58, gel.AvailableStock, "stock is deducted once")
}

func TestUpdateContact(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	contact := domain.Contact{
		FirstName:   "Nusrat",
		LastName:    "Jahan",
		Phone:       "01812345678",
		HouseNumber: "4",
		RoadNumber:  "9",
		PostalCode:  "1212",
		District:    "Dhaka",
	}
	require.NoError(t, repo.UpdateContact(ctx, DemoUserID, contact))

	user, err := repo.GetUser(ctx, DemoUserID)
	require.NoError(t, err)
	assert.Equal(t, "Nusrat Jahan", user.FullName())
	assert.Equal(t, "01812345678", user.Phone)

	assert.ErrorIs(t, repo.UpdateContact(ctx, uuid.New(), contact), ErrUserNotFound)
}
