package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/cart"
	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// ErrorResponse: тело ответа с ошибкой.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.WithError(err).Warn("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// respondDomainError переводит доменную ошибку в HTTP-статус.
// Неизвестные ошибки логируются и скрываются за 500.
func respondDomainError(w http.ResponseWriter, logger *log.Entry, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		logger.WithError(err).Error("request failed")
		respondError(w, status, code, "internal server error")
		return
	}
	respondError(w, status, code, err.Error())
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusUnprocessableEntity, "validation_failed"
	case errors.Is(err, cart.ErrDeviceIDRequired):
		return http.StatusBadRequest, "device_id_required"
	case errors.Is(err, cart.ErrDeviceIDInvalid):
		return http.StatusBadRequest, "device_id_invalid"
	case errors.Is(err, domain.ErrQuantityInvalid),
		errors.Is(err, domain.ErrProductIDRequired),
		errors.Is(err, domain.ErrPriceNegative),
		errors.Is(err, domain.ErrOrderStatusInvalid):
		return http.StatusBadRequest, "invalid_argument"
	case errors.Is(err, domain.ErrSignInRequired):
		return http.StatusUnauthorized, "sign_in_required"
	case errors.Is(err, domain.ErrCartEmpty):
		return http.StatusConflict, "cart_empty"
	case errors.Is(err, domain.ErrOrderStatusTransition):
		return http.StatusConflict, "invalid_transition"
	case domain.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodySize))
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

// respondDecodeError отвечает 413 на слишком большое тело и 400 на остальные ошибки разбора.
func respondDecodeError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		respondError(w, http.StatusRequestEntityTooLarge, "body_too_large", "request body too large")
		return
	}
	respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
}
