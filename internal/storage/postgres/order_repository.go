package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const orderColumns = `id::text, user_id, customer_email, shipping_address, status, total_amount, created_at, updated_at`

var orderSortColumns = map[string]string{
	"created_at":   "created_at",
	"total_amount": "total_amount",
	"status":       "status",
	"id":           "id",
}

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{db: store.DB()}
}

// Create вставляет заказ и его позиции одной транзакцией. ID генерирует база.
func (r *orderRepository) Create(ctx context.Context, order domain.Order) (id string, err error) {
	if errs := order.ValidateInvariants(); len(errs) > 0 {
		return "", errs[0]
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	address, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return "", fmt.Errorf("marshal shipping address: %w", err)
	}
	now := time.Now().UTC()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = order.CreatedAt
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if order.ID != "" {
		err = tx.QueryRowContext(ctx, `
			INSERT INTO orders (id, user_id, customer_email, shipping_address, status, total_amount, created_at, updated_at)
			VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id::text
		`, order.ID, order.UserID, order.CustomerEmail, string(address), string(order.Status),
			order.TotalAmount, order.CreatedAt, order.UpdatedAt).Scan(&id)
	} else {
		err = tx.QueryRowContext(ctx, `
			INSERT INTO orders (user_id, customer_email, shipping_address, status, total_amount, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id::text
		`, order.UserID, order.CustomerEmail, string(address), string(order.Status),
			order.TotalAmount, order.CreatedAt, order.UpdatedAt).Scan(&id)
	}
	if err != nil {
		if isUniqueViolation(err) {
			return "", domain.ErrOrderAlreadyExists
		}
		return "", fmt.Errorf("insert order: %w", err)
	}

	for _, item := range order.Items {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, product_id, name, price, quantity, total)
			VALUES ($1::uuid, $2, $3, $4, $5, $6)
		`, id, string(item.ProductID), item.Name, item.Price, item.Quantity, item.Total); err != nil {
			return "", fmt.Errorf("insert order item: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return "", fmt.Errorf("commit create order: %w", err)
	}
	return id, nil
}

func (r *orderRepository) Get(ctx context.Context, id string) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	order, err := scanOrder(r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id::text = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("select order: %w", err)
	}

	items, err := r.loadItems(ctx, order.ID)
	if err != nil {
		return domain.Order{}, err
	}
	order.Items = items
	return order, nil
}

func (r *orderRepository) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return r.queryOrders(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`, userID)
}

// List возвращает страницу заказов: поиск по id и email (ILIKE), фильтр статуса,
// сортировка по колонке из белого списка и точное общее количество.
func (r *orderRepository) List(ctx context.Context, q domain.ListQuery) (domain.Page[domain.Order], error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	q = q.Normalize(domain.OrderSortFields)
	var where whereBuilder
	if status, ok := q.StatusFilter(); ok {
		where.add("status = %s", string(status))
	}
	if q.Search != "" {
		pattern := likePattern(q.Search)
		where.add("(id::text ILIKE %s OR customer_email ILIKE %s)", pattern, pattern)
	}

	page := domain.Page[domain.Order]{Page: q.Page, PageSize: q.PageSize}
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`+where.sql(), where.args...).Scan(&page.Total); err != nil {
		return page, fmt.Errorf("count orders: %w", err)
	}

	limit := where.nextArg(q.PageSize)
	offset := where.nextArg(q.Offset())
	query := `SELECT ` + orderColumns + ` FROM orders` + where.sql() +
		orderBy(orderSortColumns, q.SortField, q.SortDesc, "created_at") +
		` LIMIT ` + limit + ` OFFSET ` + offset

	items, err := r.queryOrders(ctx, query, where.args...)
	if err != nil {
		return page, err
	}
	page.Items = items
	return page, nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus, updatedAt time.Time) error {
	if !status.Valid() {
		return domain.ErrOrderStatusInvalid
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status = $1, updated_at = $2 WHERE id::text = $3`,
		string(status), updatedAt, id)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

func (r *orderRepository) Stats(ctx context.Context) (domain.OrderStats, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var stats domain.OrderStats
	if err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(total_amount), 0), COUNT(*), COUNT(DISTINCT user_id)
		FROM orders
	`).Scan(&stats.TotalSales, &stats.TotalOrders, &stats.TotalCustomers); err != nil {
		return domain.OrderStats{}, fmt.Errorf("order stats: %w", err)
	}
	return stats, nil
}

func (r *orderRepository) queryOrders(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}
	rows.Close()

	for i := range orders {
		items, err := r.loadItems(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}
	return orders, nil
}

func (r *orderRepository) loadItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT product_id, name, price, quantity, total
		FROM order_items
		WHERE order_id::text = $1
		ORDER BY id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.OrderItem, 0)
	for rows.Next() {
		var (
			item domain.OrderItem
			id   string
		)
		if err := rows.Scan(&id, &item.Name, &item.Price, &item.Quantity, &item.Total); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		item.ProductID = domain.ProductID(id)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}
	return items, nil
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		order   domain.Order
		address []byte
		status  string
	)
	if err := row.Scan(&order.ID, &order.UserID, &order.CustomerEmail, &address, &status,
		&order.TotalAmount, &order.CreatedAt, &order.UpdatedAt); err != nil {
		return domain.Order{}, err
	}
	order.Status = domain.OrderStatus(status)
	if len(address) > 0 {
		if err := json.Unmarshal(address, &order.ShippingAddress); err != nil {
			return domain.Order{}, fmt.Errorf("decode shipping address: %w", err)
		}
	}
	return order, nil
}

var _ domain.OrderRepository = (*orderRepository)(nil)
