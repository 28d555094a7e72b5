package domain

import "errors"

var (
	// Ошибка некорректного количества товара (< 1).
	ErrQuantityInvalid = errors.New("quantity must be greater than zero")
	// Ошибка отсутствующего идентификатора товара.
	ErrProductIDRequired = errors.New("product id is required")
	// Ошибка отрицательной цены товара.
	ErrPriceNegative = errors.New("price must be non-negative")
	// Ошибка отсутствующего идентификатора пользователя.
	ErrUserIDRequired = errors.New("user_id is required")
	// ErrCartLineNotFound возвращается, если в корзине нет строки с таким товаром.
	ErrCartLineNotFound = errors.New("cart line not found")
	// ErrCartEmpty возвращается при попытке оформить пустую корзину.
	ErrCartEmpty = errors.New("cart is empty")
	// ErrSignInRequired возвращается, если операция доступна только авторизованному пользователю.
	ErrSignInRequired = errors.New("sign in required")
	// ErrValidation: базовая ошибка валидации пользовательского ввода.
	ErrValidation = errors.New("validation failed")
	// ErrSlotEmpty возвращается локальным хранилищем, если снимок корзины отсутствует.
	ErrSlotEmpty = errors.New("snapshot slot is empty")
	// ErrSnapshotCorrupted возвращается, если снимок корзины не удаётся разобрать.
	ErrSnapshotCorrupted = errors.New("cart snapshot is corrupted")
	// ErrProductNotFound возвращается, если товар не найден в каталоге.
	ErrProductNotFound = errors.New("product not found")
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderAlreadyExists сигнализирует о повторной вставке заказа с тем же ID.
	ErrOrderAlreadyExists = errors.New("order already exists")
	// ErrOrderStatusInvalid: статус заказа не входит в поддерживаемый набор.
	ErrOrderStatusInvalid = errors.New("order status is invalid")
	// ErrOrderStatusTransition: переход статуса запрещён (например, из терминального).
	ErrOrderStatusTransition = errors.New("order status transition is not allowed")
	// Ошибка отсутствия хотя бы одной позиции в заказе.
	ErrItemsRequired = errors.New("order must contain at least one item")
	// Ошибка отрицательной суммы заказа.
	ErrAmountNegative = errors.New("total_amount must be non-negative")
	// Ошибка несоответствия суммы позиции цене и количеству.
	ErrItemTotalMismatch = errors.New("item total does not match price * quantity")
	// ErrSyncQueueClosed возвращается при постановке операции в закрытую очередь.
	ErrSyncQueueClosed = errors.New("sync queue is closed")
	// ErrSyncQueueFull: очередь синхронизации переполнена, операция отброшена.
	ErrSyncQueueFull = errors.New("sync queue is full")
)

// IsNotFound проверяет, является ли ошибка признаком отсутствующей сущности.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrCartLineNotFound)
}
