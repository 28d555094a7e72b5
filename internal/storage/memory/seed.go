package memory

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// DemoCatalog возвращает демонстрационные категории и товары.
func DemoCatalog() ([]domain.Category, []domain.Product) {
	categories := []domain.Category{
		{ID: "electronics", Name: "Electronics"},
		{ID: "clothing", Name: "Clothing"},
		{ID: "home", Name: "Home & Kitchen"},
	}

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	products := []domain.Product{
		{ID: "p-headphones", Name: "Wireless Headphones", Price: decimal.RequireFromString("129.99"), CategoryID: "electronics", Stock: 25, Featured: true},
		{ID: "p-keyboard", Name: "Mechanical Keyboard", Price: decimal.RequireFromString("89.50"), CategoryID: "electronics", Stock: 40, OnSale: true},
		{ID: "p-charger", Name: "USB-C Charger", Price: decimal.RequireFromString("24.00"), CategoryID: "electronics", Stock: 120},
		{ID: "p-hoodie", Name: "Cotton Hoodie", Price: decimal.RequireFromString("49.90"), CategoryID: "clothing", Stock: 60, Featured: true},
		{ID: "p-socks", Name: "Wool Socks", Price: decimal.RequireFromString("12.00"), CategoryID: "clothing", Stock: 0},
		{ID: "p-kettle", Name: "Electric Kettle", Price: decimal.RequireFromString("39.99"), CategoryID: "home", Stock: 15, OnSale: true},
	}
	for i, p := range products {
		p.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		p.InStock = p.Stock > 0
		p.ImageURL = "/images/" + string(p.ID) + ".jpg"
		products[i] = p
	}
	return categories, products
}

// SeedCatalog наполняет каталог демонстрационными товарами для локального запуска.
func SeedCatalog(repo *CatalogRepository) {
	categories, products := DemoCatalog()
	for _, c := range categories {
		repo.PutCategory(c)
	}
	for _, p := range products {
		_ = repo.Put(p)
	}
}
