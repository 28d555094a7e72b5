package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const productColumns = `id, name, description, price, image_url, COALESCE(category_id, ''),
	stock, featured, on_sale, in_stock, created_at`

var productSortColumns = map[string]string{
	"created_at": "created_at",
	"name":       "name",
	"price":      "price",
	"stock":      "stock",
}

type catalogRepository struct {
	db *sql.DB
}

// NewCatalogRepository создаёт PostgreSQL-реализацию каталога.
func NewCatalogRepository(store *Store) domain.ProductRepository {
	return &catalogRepository{db: store.DB()}
}

func (r *catalogRepository) Get(ctx context.Context, id domain.ProductID) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, string(id))
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("select product: %w", err)
	}
	return p, nil
}

func (r *catalogRepository) List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	filter = filter.Normalize()
	var where whereBuilder
	if filter.Search != "" {
		where.add("name ILIKE %s", likePattern(filter.Search))
	}
	if filter.CategoryActive() {
		where.add("category_id = %s", filter.CategoryID)
	}
	if filter.PriceRangeActive() {
		where.add("price BETWEEN %s AND %s", filter.MinPrice, filter.MaxPrice)
	}
	if filter.OnSaleOnly {
		where.add("on_sale = %s", true)
	}
	if filter.FeaturedOnly {
		where.add("featured = %s", true)
	}

	query := `SELECT ` + productColumns + ` FROM products` + where.sql() +
		orderBy(productSortColumns, domain.DefaultSortField, true, "created_at")
	return r.queryProducts(ctx, query, where.args...)
}

func (r *catalogRepository) ListRelated(ctx context.Context, categoryID string, exclude domain.ProductID, limit int) ([]domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 4
	}
	return r.queryProducts(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE category_id = $1 AND id <> $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, categoryID, string(exclude), limit)
}

func (r *catalogRepository) ListCategories(ctx context.Context) ([]domain.Category, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM categories ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := make([]domain.Category, 0)
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return categories, nil
}

func (r *catalogRepository) Page(ctx context.Context, q domain.ListQuery) (domain.Page[domain.Product], error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	q = q.Normalize(domain.ProductSortFields)
	var where whereBuilder
	if q.Search != "" {
		where.add("name ILIKE %s", likePattern(q.Search))
	}

	page := domain.Page[domain.Product]{Page: q.Page, PageSize: q.PageSize}
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`+where.sql(), where.args...).Scan(&page.Total); err != nil {
		return page, fmt.Errorf("count products: %w", err)
	}

	limit := where.nextArg(q.PageSize)
	offset := where.nextArg(q.Offset())
	query := `SELECT ` + productColumns + ` FROM products` + where.sql() +
		orderBy(productSortColumns, q.SortField, q.SortDesc, "created_at") +
		` LIMIT ` + limit + ` OFFSET ` + offset

	items, err := r.queryProducts(ctx, query, where.args...)
	if err != nil {
		return page, err
	}
	page.Items = items
	return page, nil
}

func (r *catalogRepository) Count(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return count, nil
}

// UpsertProduct добавляет или обновляет товар каталога.
func UpsertProduct(ctx context.Context, store *Store, p domain.Product) error {
	if errs := domain.ValidateProduct(p); len(errs) > 0 {
		return errs[0]
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var category any
	if p.CategoryID != "" {
		category = p.CategoryID
	}
	createdAt := p.CreatedAt.UTC()
	if p.CreatedAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := store.DB().ExecContext(ctx, `
		INSERT INTO products (id, name, description, price, image_url, category_id, stock, featured, on_sale, in_stock, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			price = EXCLUDED.price,
			image_url = EXCLUDED.image_url,
			category_id = EXCLUDED.category_id,
			stock = EXCLUDED.stock,
			featured = EXCLUDED.featured,
			on_sale = EXCLUDED.on_sale,
			in_stock = EXCLUDED.in_stock
	`, string(p.ID), p.Name, p.Description, p.Price, p.ImageURL, category,
		p.Stock, p.Featured, p.OnSale, p.InStock, createdAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("unknown category %q: %w", p.CategoryID, err)
		}
		return fmt.Errorf("upsert product: %w", err)
	}
	return nil
}

// UpsertCategory добавляет или переименовывает категорию.
func UpsertCategory(ctx context.Context, store *Store, c domain.Category) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := store.DB().ExecContext(ctx, `
		INSERT INTO categories (id, name) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name
	`, c.ID, c.Name); err != nil {
		return fmt.Errorf("upsert category: %w", err)
	}
	return nil
}

func (r *catalogRepository) queryProducts(ctx context.Context, query string, args ...any) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return products, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var (
		p  domain.Product
		id string
	)
	err := row.Scan(&id, &p.Name, &p.Description, &p.Price, &p.ImageURL, &p.CategoryID,
		&p.Stock, &p.Featured, &p.OnSale, &p.InStock, &p.CreatedAt)
	p.ID = domain.ProductID(id)
	return p, err
}

var _ domain.ProductRepository = (*catalogRepository)(nil)
