package apiapp

import (
	"cmp"
	"context"
	"net/http"
	"slices"
	"strings"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ivankudzin/jobswipe/internal/domain/enums"
	"github.com/ivankudzin/jobswipe/internal/metrics"
	authsvc "github.com/ivankudzin/jobswipe/internal/services/auth"
	httperrors "github.com/ivankudzin/jobswipe/internal/transport/http/errors"
)

// streamTokenParam carries the access token for websocket upgrades, where
// browsers cannot set an Authorization header.
const streamTokenParam = "access_token"

type TokenValidator interface {
	ValidateAccessToken(ctx context.Context, accessToken string) (authsvc.AccessClaims, error)
}

func ApplyMiddlewares(r chiRouter, log *zap.Logger, rec metrics.Recorder) {
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger(log, rec))
}

// AuthMiddleware resolves the bearer token into an Identity on the request
// context. Websocket upgrades may pass the token as a query parameter instead.
func AuthMiddleware(validator TokenValidator, log *zap.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if validator == nil {
				httperrors.WriteError(w, http.StatusInternalServerError, "AUTH_SERVICE_UNAVAILABLE", "auth service is unavailable")
				return
			}

			token := requestToken(r)
			if token == "" {
				httperrors.WriteError(w, http.StatusUnauthorized, httperrors.CodeUnauthorized, "missing bearer token")
				return
			}

			claims, err := validator.ValidateAccessToken(r.Context(), token)
			if err != nil {
				log.Debug("access token rejected", zap.String("path", r.URL.Path), zap.Error(err))
				httperrors.WriteError(w, http.StatusUnauthorized, httperrors.CodeUnauthorized, "invalid access token")
				return
			}

			next.ServeHTTP(w, r.WithContext(authsvc.WithIdentity(r.Context(), authsvc.Identity{
				UserID: claims.UserID,
				SID:    claims.SID,
				Role:   claims.Role,
			})))
		})
	}
}

// RequireRole lets through identities whose role is one of roles.
func RequireRole(roles ...enums.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := authsvc.IdentityFromContext(r.Context())
			if !ok {
				httperrors.WriteError(w, http.StatusUnauthorized, httperrors.CodeUnauthorized, "authentication required")
				return
			}
			if !slices.ContainsFunc(roles, identity.Is) {
				httperrors.WriteError(w, http.StatusForbidden, httperrors.CodeForbidden, "role is not allowed")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestToken(r *http.Request) string {
	scheme, token, found := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if found && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		return strings.TrimSpace(r.URL.Query().Get(streamTokenParam))
	}
	return ""
}

// requestLogger records every request as a metric and a log line. Server
// errors log at error level.
func requestLogger(log *zap.Logger, rec metrics.Recorder) func(http.Handler) http.Handler {
	if rec == nil {
		rec = metrics.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := cmp.Or(ww.Status(), http.StatusOK)
			elapsed := time.Since(start)
			rec.RecordHTTPRequest(r.Method, status, elapsed)

			level := zapcore.InfoLevel
			if status >= http.StatusInternalServerError {
				level = zapcore.ErrorLevel
			}
			log.Log(level, "http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.String("request_id", chimiddleware.GetReqID(r.Context())),
				zap.Duration("duration", elapsed),
			)
		})
	}
}

type chiRouter interface {
	Use(middlewares ...func(http.Handler) http.Handler)
}
