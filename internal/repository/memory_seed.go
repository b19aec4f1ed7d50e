package repository

import (
	"time"

	"github.com/fjod/go_cart/storefront-service/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DemoUserID is the customer seeded by both the SQL seed migration and SeedDemo.
var DemoUserID = uuid.MustParse("0b8f7e6d-5c4b-4a39-8271-605f4e3d0001")

// SeedDemo loads the same catalog and customer as the seed migration, so the
// memory driver serves identical data.
func (s *MemoryStore) SeedDemo() {
	brand := func(n string) uuid.UUID { return uuid.MustParse("6f1c1c2e-1d1a-4b7e-9a55-0c9f3b1a000" + n) }
	category := func(n string) uuid.UUID { return uuid.MustParse("2b7d4e10-5c3f-4a8e-8f21-7d6e5c4b000" + n) }
	product := func(n string) uuid.UUID { return uuid.MustParse("9a3e5f70-2b1c-4d8e-a6f4-1e2d3c4b000" + n) }

	s.AddBrand(domain.Brand{ID: brand("1"), Name: "CeraVe"})
	s.AddBrand(domain.Brand{ID: brand("2"), Name: "COSRX"})
	s.AddBrand(domain.Brand{ID: brand("3"), Name: "The Ordinary"})

	s.AddCategory(domain.Category{ID: category("1"), Name: "Cleanser"})
	s.AddCategory(domain.Category{ID: category("2"), Name: "Moisturizer"})
	s.AddCategory(domain.Category{ID: category("3"), Name: "Serum"})

	base := time.Now().Add(-time.Hour)
	products := []domain.Product{
		{ID: product("1"), Name: "Hydrating Facial Cleanser", BrandID: brand("1"), CategoryID: category("1"),
			Details: "Gentle non-foaming cleanser with ceramides.", Price: decimal.NewFromInt(1450), AvailableStock: 40, Featured: true},
		{ID: product("2"), Name: "Moisturizing Cream", BrandID: brand("1"), CategoryID: category("2"),
			Details: "Rich cream for dry skin.", Price: decimal.NewFromInt(1850), AvailableStock: 25, Featured: true},
		{ID: product("3"), Name: "Advanced Snail 96 Mucin Essence", BrandID: brand("2"), CategoryID: category("3"),
			Details: "Lightweight essence for hydration and repair.", Price: decimal.NewFromInt(1600), AvailableStock: 8},
		{ID: product("4"), Name: "Low pH Good Morning Gel Cleanser", BrandID: brand("2"), CategoryID: category("1"),
			Details: "Mild gel cleanser for everyday use.", Price: decimal.NewFromInt(950), AvailableStock: 60},
		{ID: product("5"), Name: "Niacinamide 10% + Zinc 1%", BrandID: brand("3"), CategoryID: category("3"),
			Details: "High-strength vitamin and mineral blemish formula.", Price: decimal.NewFromInt(1200), AvailableStock: 0, Featured: true},
	}
	for i, p := range products {
		p.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		s.AddProduct(p)
	}

	s.AddUser(domain.User{
		ID:          DemoUserID,
		Email:       "demo@pookiecare.test",
		FirstName:   "Demo",
		LastName:    "Customer",
		Phone:       "01700000000",
		HouseNumber: "12",
		RoadNumber:  "5",
		PostalCode:  "1207",
		District:    "Dhaka",
	})
}
