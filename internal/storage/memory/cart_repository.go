package memory

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type cartRow struct {
	productID domain.ProductID
	quantity  int
}

// CartRepository хранит удалённый уровень корзины в памяти, строки (user, product, quantity).
// Данные товара подтягиваются из каталога при чтении, как JOIN в postgres.
type CartRepository struct {
	mu      sync.RWMutex
	rows    map[string][]cartRow
	catalog domain.ProductRepository
}

// NewCartRepository создаёт удалённый уровень поверх каталога.
func NewCartRepository(catalog domain.ProductRepository) *CartRepository {
	return &CartRepository{rows: make(map[string][]cartRow), catalog: catalog}
}

// ListByUser возвращает строки в порядке добавления. Строки удалённых из каталога товаров пропускаются.
func (r *CartRepository) ListByUser(ctx context.Context, userID string) ([]domain.CartLine, error) {
	if userID == "" {
		return nil, domain.ErrUserIDRequired
	}

	r.mu.RLock()
	rows := append([]cartRow(nil), r.rows[userID]...)
	r.mu.RUnlock()

	lines := make([]domain.CartLine, 0, len(rows))
	for _, row := range rows {
		p, err := r.catalog.Get(ctx, row.productID)
		if err != nil {
			if domain.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		lines = append(lines, domain.NewCartLine(p, row.quantity))
	}
	return lines, nil
}

func (r *CartRepository) Upsert(_ context.Context, userID string, productID domain.ProductID, quantity int) error {
	if userID == "" {
		return domain.ErrUserIDRequired
	}
	if productID == "" {
		return domain.ErrProductIDRequired
	}
	if quantity < 1 {
		return domain.ErrQuantityInvalid
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rows := r.rows[userID]
	for i := range rows {
		if rows[i].productID == productID {
			rows[i].quantity = quantity
			return nil
		}
	}
	r.rows[userID] = append(rows, cartRow{productID: productID, quantity: quantity})
	return nil
}

func (r *CartRepository) Delete(_ context.Context, userID string, productID domain.ProductID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows := r.rows[userID]
	for i := range rows {
		if rows[i].productID == productID {
			r.rows[userID] = append(rows[:i:i], rows[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *CartRepository) DeleteAll(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, userID)
	return nil
}

var _ domain.RemoteCartRepository = (*CartRepository)(nil)
