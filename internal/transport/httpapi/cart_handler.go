package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vladislavdragonenkov/storefront/internal/cart"
	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type addItemRequest struct {
	ProductID domain.ProductID `json:"product_id"`
	Quantity  *int             `json:"quantity"`
}

type setQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// cartResponse: корзина для представлений. Суммы отформатированы с двумя знаками.
type cartResponse struct {
	Items     []domain.CartLine `json:"items"`
	ItemCount int               `json:"item_count"`
	UserID    string            `json:"user_id,omitempty"`
	Loading   bool              `json:"loading"`
	Subtotal  string            `json:"subtotal"`
	Tax       string            `json:"tax"`
	Shipping  string            `json:"shipping"`
	Total     string            `json:"total"`
}

func newCartResponse(snap cart.Snapshot) cartResponse {
	return cartResponse{
		Items:     snap.Lines,
		ItemCount: snap.ItemCount,
		UserID:    snap.Identity.UserID,
		Loading:   snap.Loading,
		Subtotal:  domain.FormatMoney(snap.Pricing.Subtotal),
		Tax:       domain.FormatMoney(snap.Pricing.Tax),
		Shipping:  domain.FormatMoney(snap.Pricing.Shipping),
		Total:     domain.FormatMoney(snap.Pricing.Total),
	}
}

// resolveCart находит корзину устройства и сверяет её identity с заголовком пользователя.
func (h *api) resolveCart(w http.ResponseWriter, r *http.Request) (*cart.Store, bool) {
	store, err := h.carts.Resolve(r.Context(), deviceIDFrom(r.Context()), userIDFrom(r.Context()))
	if err != nil {
		respondDomainError(w, h.logger, err)
		return nil, false
	}
	return store, true
}

func (h *api) getCart(w http.ResponseWriter, r *http.Request) {
	store, ok := h.resolveCart(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, newCartResponse(store.Snapshot()))
}

func (h *api) addItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondDecodeError(w, err)
		return
	}
	if req.ProductID == "" {
		respondDomainError(w, h.logger, domain.ErrProductIDRequired)
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	store, ok := h.resolveCart(w, r)
	if !ok {
		return
	}
	product, err := h.catalog.Get(r.Context(), req.ProductID)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	if err := store.AddToCart(r.Context(), product, quantity); err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, newCartResponse(store.Snapshot()))
}

func (h *api) setQuantity(w http.ResponseWriter, r *http.Request) {
	var req setQuantityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondDecodeError(w, err)
		return
	}

	store, ok := h.resolveCart(w, r)
	if !ok {
		return
	}
	id := domain.ProductID(chi.URLParam(r, "id"))
	if err := store.SetQuantity(r.Context(), id, req.Quantity); err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, newCartResponse(store.Snapshot()))
}

func (h *api) removeItem(w http.ResponseWriter, r *http.Request) {
	store, ok := h.resolveCart(w, r)
	if !ok {
		return
	}
	id := domain.ProductID(chi.URLParam(r, "id"))
	if err := store.RemoveFromCart(r.Context(), id); err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, newCartResponse(store.Snapshot()))
}

func (h *api) clearCart(w http.ResponseWriter, r *http.Request) {
	store, ok := h.resolveCart(w, r)
	if !ok {
		return
	}
	if err := store.ClearCart(r.Context()); err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, newCartResponse(store.Snapshot()))
}
