package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"slices"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/abdulwedud33/intern-finder-v2-sub000/internal/apperr"
	"github.com/abdulwedud33/intern-finder-v2-sub000/pkg/models"
)

type ctxKey string

const (
	CtxActor     ctxKey = "actor"
	CtxRequestID ctxKey = "request_id"
)

// package-level logger used by middleware and helpers; can be set via SetLogger from caller
var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// SetLogger installs a logger for the api package. Passing nil is a no-op.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

// ActorFrom returns the authenticated actor stored by the JWT middleware.
func ActorFrom(ctx context.Context) (models.Actor, bool) {
	a, ok := ctx.Value(CtxActor).(models.Actor)
	return a, ok
}

// RequestIDFrom returns the id assigned by LoggingMiddleware, if any.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(CtxRequestID).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware tags each request with an id (reusing an incoming
// X-Request-ID) and logs it once the handler returns.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		r = r.WithContext(context.WithValue(r.Context(), CtxRequestID, id))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		logger.Info("request",
			slog.String("request_id", id),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("remote", r.RemoteAddr),
			slog.Int("status", rec.status),
			slog.Duration("elapsed", time.Since(start)),
		)
	})
}

func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic",
					slog.Any("err", err),
					slog.String("request_id", RequestIDFrom(r.Context())))
				writeJSON(w, errorResponse{Error: errorBody{
					Code:    apperr.CodeInternal,
					Message: http.StatusText(http.StatusInternalServerError),
				}}, http.StatusInternalServerError)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// JWTAuthMiddlewareWithSecret verifies an HS256 bearer token and stores the
// actor from its actor_id and role claims in the request context.
func JWTAuthMiddlewareWithSecret(secret string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeUnauthorized(w, "Missing Authorization header")
				return
			}

			var tokenString string
			if _, err := fmt.Sscanf(authHeader, "Bearer %s", &tokenString); err != nil {
				logger.Debug("failed to parse Authorization header", slog.Any("err", err))
			}
			if tokenString == "" {
				writeUnauthorized(w, "Invalid Authorization header")
				return
			}

			actor, err := ParseToken(secret, tokenString)
			if err != nil {
				logger.Debug("token rejected", slog.Any("err", err))
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), CtxActor, actor)))
		})
	}
}

// RequireRole rejects actors whose role is not listed.
func RequireRole(roles ...models.Role) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFrom(r.Context())
			if !ok {
				writeUnauthorized(w, "Missing identity")
				return
			}
			if !slices.Contains(roles, actor.Role) {
				writeError(w, r, apperr.Newf(apperr.CodeRoleViolation, "this action requires role %v", roles))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
