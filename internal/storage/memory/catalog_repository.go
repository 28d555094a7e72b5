package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// CatalogRepository: in-memory каталог товаров и категорий.
type CatalogRepository struct {
	mu         sync.RWMutex
	products   map[domain.ProductID]domain.Product
	categories []domain.Category
}

// NewCatalogRepository возвращает пустой каталог.
func NewCatalogRepository() *CatalogRepository {
	return &CatalogRepository{products: make(map[domain.ProductID]domain.Product)}
}

// Put добавляет или заменяет товар.
func (r *CatalogRepository) Put(p domain.Product) error {
	if errs := domain.ValidateProduct(p); len(errs) > 0 {
		return errs[0]
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[p.ID] = p
	return nil
}

// PutCategory добавляет категорию, если её ещё нет.
func (r *CatalogRepository) PutCategory(c domain.Category) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.categories {
		if r.categories[i].ID == c.ID {
			r.categories[i] = c
			return
		}
	}
	r.categories = append(r.categories, c)
}

func (r *CatalogRepository) Get(_ context.Context, id domain.ProductID) (domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return p, nil
}

// List возвращает товары витрины, новые сверху.
func (r *CatalogRepository) List(_ context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	filter = filter.Normalize()

	r.mu.RLock()
	result := make([]domain.Product, 0, len(r.products))
	for _, p := range r.products {
		if filter.Matches(p) {
			result = append(result, p)
		}
	}
	r.mu.RUnlock()

	sortProducts(result, domain.DefaultSortField, true)
	return result, nil
}

// ListRelated возвращает до limit товаров той же категории, кроме exclude.
func (r *CatalogRepository) ListRelated(_ context.Context, categoryID string, exclude domain.ProductID, limit int) ([]domain.Product, error) {
	r.mu.RLock()
	result := make([]domain.Product, 0)
	for _, p := range r.products {
		if p.CategoryID == categoryID && p.ID != exclude {
			result = append(result, p)
		}
	}
	r.mu.RUnlock()

	sortProducts(result, domain.DefaultSortField, true)
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *CatalogRepository) ListCategories(context.Context) ([]domain.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Category, len(r.categories))
	copy(result, r.categories)
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// Page возвращает страницу товаров для админки: поиск по имени, сортировка, пагинация.
func (r *CatalogRepository) Page(_ context.Context, q domain.ListQuery) (domain.Page[domain.Product], error) {
	q = q.Normalize(domain.ProductSortFields)
	search := strings.ToLower(q.Search)

	r.mu.RLock()
	result := make([]domain.Product, 0, len(r.products))
	for _, p := range r.products {
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		result = append(result, p)
	}
	r.mu.RUnlock()

	sortProducts(result, q.SortField, q.SortDesc)
	return domain.Paginate(result, q), nil
}

func (r *CatalogRepository) Count(context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.products), nil
}

func sortProducts(items []domain.Product, field string, desc bool) {
	less := func(a, b domain.Product) int {
		switch field {
		case "name":
			return strings.Compare(a.Name, b.Name)
		case "price":
			return a.Price.Cmp(b.Price)
		case "stock":
			return a.Stock - b.Stock
		default:
			return a.CreatedAt.Compare(b.CreatedAt)
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		c := less(items[i], items[j])
		if c == 0 {
			return items[i].ID < items[j].ID
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
}

var _ domain.ProductRepository = (*CatalogRepository)(nil)
