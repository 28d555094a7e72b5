package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/checkout"
)

type updateStatusRequest struct {
	Status domain.OrderStatus `json:"status"`
}

type pageResponse[T any] struct {
	Items      []T `json:"items"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalPages int `json:"total_pages"`
}

func newPageResponse[T any](page domain.Page[T]) pageResponse[T] {
	return pageResponse[T]{
		Items:      page.Items,
		Total:      page.Total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages(),
	}
}

func (h *api) submitCheckout(w http.ResponseWriter, r *http.Request) {
	var form checkout.Form
	if err := decodeJSON(w, r, &form); err != nil {
		respondDecodeError(w, err)
		return
	}

	store, ok := h.resolveCart(w, r)
	if !ok {
		return
	}
	order, err := h.checkout.Submit(r.Context(), store, form)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, order)
}

func (h *api) listUserOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.admin.UserOrders(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (h *api) getUserOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.admin.UserOrder(r.Context(), userIDFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

func (h *api) adminListOrders(w http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_argument", err.Error())
		return
	}
	page, err := h.admin.ListOrders(r.Context(), q)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, newPageResponse(page))
}

func (h *api) adminUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondDecodeError(w, err)
		return
	}
	order, err := h.admin.UpdateOrderStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

func (h *api) adminListProducts(w http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_argument", err.Error())
		return
	}
	page, err := h.admin.ListProducts(r.Context(), q)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, newPageResponse(page))
}

func (h *api) adminDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.admin.Dashboard(r.Context())
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// parseListQuery читает ?page=&page_size=&sort=&order=asc|desc&search=&status=
func parseListQuery(r *http.Request) (domain.ListQuery, error) {
	values := r.URL.Query()
	q := domain.DefaultListQuery()
	q.Search = values.Get("search")
	q.Status = values.Get("status")

	var err error
	if q.Page, err = parsePositive(values.Get("page"), q.Page); err != nil {
		return q, fmt.Errorf("page: %w", err)
	}
	if q.PageSize, err = parsePositive(values.Get("page_size"), q.PageSize); err != nil {
		return q, fmt.Errorf("page_size: %w", err)
	}

	order := strings.ToLower(values.Get("order"))
	if order != "" && order != "asc" && order != "desc" {
		return q, errors.New("order must be asc or desc")
	}
	if sort := values.Get("sort"); sort != "" {
		q.SortField = sort
		q.SortDesc = order == "desc"
	} else if order == "asc" {
		q.SortDesc = false
	}
	// toggle: клик по заголовку колонки поверх текущих sort/order.
	if toggle := strings.ToLower(strings.TrimSpace(values.Get("toggle"))); toggle != "" {
		q.SortField = strings.ToLower(strings.TrimSpace(q.SortField))
		q = q.ToggleSort(toggle)
	}
	return q, nil
}

func parsePositive(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, errors.New("must be positive")
	}
	return n, nil
}
