package domain

import (
	"math"
	"regexp"
	"time"

	"github.com/shopspring/decimal"
)

// deviceIDPattern: идентификатор устройства годится как имя каталога и ключ Redis без экранирования.
var deviceIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,127}$`)

// ValidDeviceID сообщает, подходит ли идентификатор устройства.
func ValidDeviceID(deviceID string) bool {
	return deviceIDPattern.MatchString(deviceID)
}

// ProductID: идентификатор товара в каталоге.
type ProductID string

// Product описывает товар каталога.
type Product struct {
	ID          ProductID       `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"image_url,omitempty"`
	CategoryID  string          `json:"category_id,omitempty"`
	Stock       int             `json:"stock"`
	Featured    bool            `json:"featured"`
	OnSale      bool            `json:"on_sale"`
	InStock     bool            `json:"in_stock"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Category: категория каталога.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CartLine: одна строка корзины. В корзине не больше одной строки на ID.
type CartLine struct {
	ID       ProductID       `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Image    string          `json:"image"`
	Quantity int             `json:"quantity"`
}

// MaxLineQuantity: верхняя граница количества в строке, столбец quantity в БД имеет тип INTEGER.
const MaxLineQuantity = math.MaxInt32

// ValidQuantity сообщает, что количество лежит в [1, MaxLineQuantity].
func ValidQuantity(quantity int) bool {
	return quantity >= 1 && quantity <= MaxLineQuantity
}

// AddQuantity складывает количество строки с добавкой.
// Выход за MaxLineQuantity даёт ErrQuantityInvalid.
func AddQuantity(current, delta int) (int, error) {
	if !ValidQuantity(delta) || current < 0 || current > MaxLineQuantity-delta {
		return 0, ErrQuantityInvalid
	}
	return current + delta, nil
}

// MergeQuantity складывает количества при схлопывании строк, насыщаясь на MaxLineQuantity.
func MergeQuantity(a, b int) int {
	if a > MaxLineQuantity-b {
		return MaxLineQuantity
	}
	return a + b
}

// LineTotal возвращает price * quantity.
func (l CartLine) LineTotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// NewCartLine собирает строку корзины из описания товара.
func NewCartLine(p Product, quantity int) CartLine {
	return CartLine{
		ID:       p.ID,
		Name:     p.Name,
		Price:    p.Price,
		Image:    p.ImageURL,
		Quantity: quantity,
	}
}

// ValidateProduct проверяет описание товара перед добавлением в корзину.
func ValidateProduct(p Product) []error {
	var errs []error
	if p.ID == "" {
		errs = append(errs, ErrProductIDRequired)
	}
	if p.Price.IsNegative() {
		errs = append(errs, ErrPriceNegative)
	}
	return errs
}

// IndexOfLine возвращает позицию строки с товаром id или -1.
func IndexOfLine(lines []CartLine, id ProductID) int {
	for i := range lines {
		if lines[i].ID == id {
			return i
		}
	}
	return -1
}

// CloneLines возвращает независимую копию слайса строк.
func CloneLines(lines []CartLine) []CartLine {
	if lines == nil {
		return []CartLine{}
	}
	out := make([]CartLine, len(lines))
	copy(out, lines)
	return out
}

// Identity описывает владельца корзины: гость или авторизованный пользователь.
type Identity struct {
	UserID string `json:"user_id,omitempty"`
}

// Guest: анонимная сессия.
var Guest = Identity{}

// User возвращает identity авторизованного пользователя.
func User(id string) Identity {
	return Identity{UserID: id}
}

// SignedIn сообщает, привязана ли сессия к пользователю.
func (i Identity) SignedIn() bool {
	return i.UserID != ""
}

func (i Identity) String() string {
	if !i.SignedIn() {
		return "guest"
	}
	return "user:" + i.UserID
}
