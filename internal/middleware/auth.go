package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/phoebe/phoebe/internal/auth"
	"github.com/phoebe/phoebe/internal/model"
	"github.com/phoebe/phoebe/internal/service"
)

// PrincipalResolver turns request credentials into a principal.
type PrincipalResolver interface {
	ResolveBearer(ctx context.Context, token string) (*model.Principal, error)
	ResolveBasic(ctx context.Context, username, password string) (*model.Principal, error)
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger   *slog.Logger
	Resolver PrincipalResolver
}

// Authenticate resolves Bearer or Basic credentials into a principal and
// injects it into the request context. Requests without an Authorization
// header pass through anonymously; RequireAuthenticated rejects them later.
func Authenticate(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			var (
				p   *model.Principal
				err error
			)
			scheme, credentials, _ := strings.Cut(header, " ")
			switch {
			case strings.EqualFold(scheme, "Bearer"):
				p, err = cfg.Resolver.ResolveBearer(r.Context(), strings.TrimSpace(credentials))
			case strings.EqualFold(scheme, "Basic"):
				username, password, ok := r.BasicAuth()
				if !ok {
					err = service.ErrInvalidCredentials
					break
				}
				p, err = cfg.Resolver.ResolveBasic(r.Context(), username, password)
			default:
				err = service.ErrInvalidCredentials
			}

			if err != nil {
				if !errors.Is(err, service.ErrInvalidCredentials) {
					cfg.Logger.Error("credential check failed",
						slog.String("error", err.Error()),
						slog.String("request_id", GetRequestID(r.Context())),
					)
					WriteError(w, http.StatusInternalServerError, CodeInternal, "internal server error")
					return
				}
				cfg.Logger.Warn("authentication failed",
					slog.String("scheme", strings.ToLower(scheme)),
					slog.String("ip", r.RemoteAddr),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeAuthError(w)
				return
			}

			setLogUser(r.Context(), p.UserID)
			ctx := auth.ContextWithPrincipal(r.Context(), p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// writeAuthError writes a 401 Unauthorized response.
// Uses the same message for all auth failures to prevent enumeration.
func writeAuthError(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="phoebe"`)
	WriteError(w, http.StatusUnauthorized, CodeUnauthorized, "invalid or missing credentials")
}
