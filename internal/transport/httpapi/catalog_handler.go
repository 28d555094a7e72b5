package httpapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type productResponse struct {
	Product domain.Product   `json:"product"`
	Related []domain.Product `json:"related"`
}

// listProducts: витрина: ?search=&category=&min_price=&max_price=&on_sale=&featured=
func (h *api) listProducts(w http.ResponseWriter, r *http.Request) {
	filter, err := parseProductFilter(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_argument", err.Error())
		return
	}

	products, err := h.catalog.List(r.Context(), filter)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *api) getProduct(w http.ResponseWriter, r *http.Request) {
	id := domain.ProductID(chi.URLParam(r, "id"))
	product, err := h.catalog.Get(r.Context(), id)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	related := []domain.Product{}
	if product.CategoryID != "" {
		related, err = h.catalog.ListRelated(r.Context(), product.CategoryID, product.ID, relatedProductsLimit)
		if err != nil {
			respondDomainError(w, h.logger, err)
			return
		}
	}
	respondJSON(w, http.StatusOK, productResponse{Product: product, Related: related})
}

func (h *api) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, categories)
}

func parseProductFilter(r *http.Request) (domain.ProductFilter, error) {
	q := r.URL.Query()
	filter := domain.DefaultProductFilter()
	filter.Search = q.Get("search")
	filter.CategoryID = q.Get("category")

	var err error
	if filter.MinPrice, err = parseDecimal(q.Get("min_price"), filter.MinPrice); err != nil {
		return filter, fmt.Errorf("min_price: %w", err)
	}
	if filter.MaxPrice, err = parseDecimal(q.Get("max_price"), filter.MaxPrice); err != nil {
		return filter, fmt.Errorf("max_price: %w", err)
	}
	if filter.OnSaleOnly, err = parseBool(q.Get("on_sale")); err != nil {
		return filter, fmt.Errorf("on_sale: %w", err)
	}
	if filter.FeaturedOnly, err = parseBool(q.Get("featured")); err != nil {
		return filter, fmt.Errorf("featured: %w", err)
	}
	return filter.Normalize(), nil
}

func parseDecimal(raw string, fallback decimal.Decimal) (decimal.Decimal, error) {
	if raw == "" {
		return fallback, nil
	}
	return decimal.NewFromString(raw)
}

func parseBool(raw string) (bool, error) {
	if raw == "" {
		return false, nil
	}
	return strconv.ParseBool(raw)
}
