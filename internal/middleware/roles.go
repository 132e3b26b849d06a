package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/phoebe/phoebe/internal/access"
	"github.com/phoebe/phoebe/internal/auth"
	"github.com/phoebe/phoebe/internal/metrics"
	"github.com/phoebe/phoebe/internal/model"
)

// Guards builds role-checking middleware. Must be applied after Authenticate.
type Guards struct {
	Logger  *slog.Logger
	Metrics metrics.Recorder
}

// RequireAuthenticated rejects anonymous requests with 401.
func (g Guards) RequireAuthenticated() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth.PrincipalFromContext(r.Context()) == nil {
				g.record(metrics.DecisionUnauthenticated)
				writeAuthError(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole admits principals holding name.
func (g Guards) RequireRole(name string) func(http.Handler) http.Handler {
	return g.Require(access.Role(name))
}

// RequireAnyRole admits principals holding at least one of names.
func (g Guards) RequireAnyRole(names ...string) func(http.Handler) http.Handler {
	return g.Require(access.AnyRole(names...))
}

// RequireAllRoles admits principals holding every one of names.
func (g Guards) RequireAllRoles(names ...string) func(http.Handler) http.Handler {
	return g.Require(access.AllRoles(names...))
}

// Require runs the rest of the chain inside access.Guard. Anonymous
// requests get 401, principals failing req get 403.
func (g Guards) Require(req access.Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := auth.PrincipalFromContext(r.Context())
			if p == nil {
				g.record(metrics.DecisionUnauthenticated)
				writeAuthError(w)
				return
			}

			err := access.Guard(r.Context(), req, func(context.Context) error {
				g.record(metrics.DecisionAllow)
				next.ServeHTTP(w, r)
				return nil
			})
			if err != nil {
				g.record(metrics.DecisionDeny)
				g.logger().Warn("access denied",
					slog.String("user_id", p.UserID),
					slog.String("required", req.String()),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				WriteError(w, http.StatusForbidden, CodeForbidden, "insufficient role")
			}
		})
	}
}

// RequireStaff admits the ADMIN and EDITOR roles.
func (g Guards) RequireStaff() func(http.Handler) http.Handler {
	return g.RequireAnyRole(model.RoleAdmin, model.RoleEditor)
}

// RequireAdmin admits the ADMIN role.
func (g Guards) RequireAdmin() func(http.Handler) http.Handler {
	return g.RequireRole(model.RoleAdmin)
}

func (g Guards) record(outcome string) {
	if g.Metrics != nil {
		g.Metrics.IncAccessDecision(outcome)
	}
}

func (g Guards) logger() *slog.Logger {
	if g.Logger == nil {
		return slog.Default()
	}
	return g.Logger
}
