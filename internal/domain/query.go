package domain

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// DefaultPageSize: размер страницы списков админки.
	DefaultPageSize = 10
	// MaxPageSize ограничивает размер страницы сверху.
	MaxPageSize = 100
	// DefaultSortField: сортировка по умолчанию для списков.
	DefaultSortField = "created_at"
	// StatusFilterAll отключает фильтр по статусу.
	StatusFilterAll = "all"
)

var (
	// OrderSortFields: поля, по которым разрешена сортировка заказов.
	OrderSortFields = []string{"created_at", "total_amount", "status", "id"}
	// ProductSortFields: поля, по которым разрешена сортировка товаров.
	ProductSortFields = []string{"created_at", "name", "price", "stock"}
)

// ListQuery описывает пагинацию, сортировку и фильтры списков админки.
type ListQuery struct {
	Page      int
	PageSize  int
	SortField string
	SortDesc  bool
	Search    string
	Status    string
}

// DefaultListQuery: первая страница, новые записи сверху.
func DefaultListQuery() ListQuery {
	return ListQuery{
		Page:      1,
		PageSize:  DefaultPageSize,
		SortField: DefaultSortField,
		SortDesc:  true,
	}
}

// Normalize приводит запрос к допустимому виду. Неизвестное поле сортировки
// заменяется на created_at по убыванию.
func (q ListQuery) Normalize(allowedSort []string) ListQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}

	q.SortField = strings.ToLower(strings.TrimSpace(q.SortField))
	if !containsField(allowedSort, q.SortField) {
		q.SortField = DefaultSortField
		q.SortDesc = true
	}

	q.Search = strings.TrimSpace(q.Search)
	q.Status = strings.ToLower(strings.TrimSpace(q.Status))
	if q.Status == StatusFilterAll {
		q.Status = ""
	}
	return q
}

// Offset возвращает количество пропускаемых записей.
// Слишком большой номер страницы насыщается, а не переполняет int.
func (q ListQuery) Offset() int {
	page := q.Page
	if page < 1 {
		page = 1
	}
	if q.PageSize <= 0 {
		return 0
	}
	limit := math.MaxInt - q.PageSize
	if page-1 > limit/q.PageSize {
		return limit
	}
	return (page - 1) * q.PageSize
}

// Range возвращает включительные границы выборки [from, to].
func (q ListQuery) Range() (from, to int) {
	from = q.Offset()
	return from, from + max(q.PageSize, 1) - 1
}

// ToggleSort повторный выбор поля меняет направление, новое поле сортируется по возрастанию.
func (q ListQuery) ToggleSort(field string) ListQuery {
	if q.SortField == field {
		q.SortDesc = !q.SortDesc
		return q
	}
	q.SortField = field
	q.SortDesc = false
	return q
}

// StatusFilter возвращает статус для фильтрации или false, если фильтра нет.
func (q ListQuery) StatusFilter() (OrderStatus, bool) {
	if q.Status == "" || q.Status == StatusFilterAll {
		return "", false
	}
	return OrderStatus(q.Status), true
}

func containsField(fields []string, field string) bool {
	for _, f := range fields {
		if f == field {
			return true
		}
	}
	return false
}

// Page: страница результатов с общим количеством записей.
type Page[T any] struct {
	Items    []T `json:"items"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// TotalPages возвращает количество страниц.
func (p Page[T]) TotalPages() int {
	if p.PageSize <= 0 || p.Total <= 0 {
		return 0
	}
	return (p.Total + p.PageSize - 1) / p.PageSize
}

// Paginate режет уже отсортированный слайс по запросу q.
func Paginate[T any](items []T, q ListQuery) Page[T] {
	page := Page[T]{Total: len(items), Page: q.Page, PageSize: q.PageSize, Items: []T{}}
	from, last := q.Range()
	if from >= len(items) {
		return page
	}
	to := min(last+1, len(items))
	page.Items = append(page.Items, items[from:to]...)
	return page
}

var (
	// DefaultPriceFloor и DefaultPriceCeiling задают границы слайдера цены в витрине.
	DefaultPriceFloor   = decimal.Zero
	DefaultPriceCeiling = decimal.NewFromInt(1000)
)

// ProductFilter: фильтры витрины.
type ProductFilter struct {
	Search       string
	CategoryID   string
	MinPrice     decimal.Decimal
	MaxPrice     decimal.Decimal
	OnSaleOnly   bool
	FeaturedOnly bool
}

// DefaultProductFilter возвращает фильтр без ограничений.
func DefaultProductFilter() ProductFilter {
	return ProductFilter{
		MinPrice: DefaultPriceFloor,
		MaxPrice: DefaultPriceCeiling,
	}
}

// Normalize подставляет верхнюю границу по умолчанию, если она не задана.
func (f ProductFilter) Normalize() ProductFilter {
	f.Search = strings.TrimSpace(f.Search)
	if f.MaxPrice.IsZero() {
		f.MaxPrice = DefaultPriceCeiling
	}
	if f.MinPrice.IsNegative() {
		f.MinPrice = DefaultPriceFloor
	}
	return f
}

// PriceRangeActive сообщает, сужен ли диапазон цен относительно [0, 1000].
func (f ProductFilter) PriceRangeActive() bool {
	return f.MinPrice.GreaterThan(DefaultPriceFloor) || f.MaxPrice.LessThan(DefaultPriceCeiling)
}

// CategoryActive сообщает, выбран ли конкретный раздел.
func (f ProductFilter) CategoryActive() bool {
	return f.CategoryID != "" && f.CategoryID != StatusFilterAll
}

// Matches применяет фильтр к товару (используется in-memory каталогом).
func (f ProductFilter) Matches(p Product) bool {
	if f.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Search)) {
		return false
	}
	if f.CategoryActive() && p.CategoryID != f.CategoryID {
		return false
	}
	if f.PriceRangeActive() && (p.Price.LessThan(f.MinPrice) || p.Price.GreaterThan(f.MaxPrice)) {
		return false
	}
	if f.OnSaleOnly && !p.OnSale {
		return false
	}
	if f.FeaturedOnly && !p.Featured {
		return false
	}
	return true
}
