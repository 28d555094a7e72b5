package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
)

const (
	// HeaderDeviceID: устройство, к которому привязан локальный уровень корзины.
	HeaderDeviceID = "X-Device-ID"
	// HeaderUserID: уже аутентифицированный пользователь.
	HeaderUserID = "X-User-ID"
	// HeaderUserRole: роль пользователя; админка доступна роли admin.
	HeaderUserRole = "X-User-Role"

	roleAdmin = "admin"
)

type contextKey string

const (
	ctxKeyDeviceID contextKey = "device_id"
	ctxKeyUserID   contextKey = "user_id"
	ctxKeyRole     contextKey = "role"
)

// identityMiddleware переносит заголовки identity в контекст запроса.
func identityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ctx = context.WithValue(ctx, ctxKeyDeviceID, r.Header.Get(HeaderDeviceID))
		ctx = context.WithValue(ctx, ctxKeyUserID, r.Header.Get(HeaderUserID))
		ctx = context.WithValue(ctx, ctxKeyRole, r.Header.Get(HeaderUserRole))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userIDFrom(r.Context()) == "" {
			respondError(w, http.StatusUnauthorized, "sign_in_required", "sign in required")
			return
		}
		if role, _ := r.Context().Value(ctxKeyRole).(string); role != roleAdmin {
			respondError(w, http.StatusForbidden, "forbidden", "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func deviceIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyDeviceID).(string)
	return id
}

func userIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyUserID).(string)
	return id
}

// requestLogger пишет строку access-лога через logrus.
func requestLogger(logger *log.Entry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			entry := logger.WithFields(log.Fields{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      ww.Status(),
				"bytes":       ww.BytesWritten(),
				"duration_ms": time.Since(start).Milliseconds(),
				"request_id":  middleware.GetReqID(r.Context()),
			})
			if ww.Status() >= http.StatusInternalServerError {
				entry.Warn("http request")
				return
			}
			entry.Debug("http request")
		})
	}
}
