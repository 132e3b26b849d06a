package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phoebe/phoebe/internal/auth"
	"github.com/phoebe/phoebe/internal/model"
)

func TestAuthenticate(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(r *http.Request)
		resolver   stubResolver
		wantStatus int
		wantUser   string
		wantMethod string
	}{
		{
			name:       "no header passes anonymously",
			setup:      func(*http.Request) {},
			wantStatus: http.StatusOK,
		},
		{
			name:       "valid bearer",
			setup:      func(r *http.Request) { r.Header.Set("Authorization", "Bearer good") },
			wantStatus: http.StatusOK,
			wantUser:   "u1",
			wantMethod: model.AuthMethodBearer,
		},
		{
			name:       "lowercase scheme",
			setup:      func(r *http.Request) { r.Header.Set("Authorization", "bearer good") },
			wantStatus: http.StatusOK,
			wantUser:   "u1",
			wantMethod: model.AuthMethodBearer,
		},
		{
			name:       "invalid bearer",
			setup:      func(r *http.Request) { r.Header.Set("Authorization", "Bearer bad") },
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "valid basic",
			setup:      func(r *http.Request) { r.SetBasicAuth("alice", "secret") },
			wantStatus: http.StatusOK,
			wantUser:   "u1",
			wantMethod: model.AuthMethodBasic,
		},
		{
			name:       "wrong basic password",
			setup:      func(r *http.Request) { r.SetBasicAuth("alice", "nope") },
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "malformed basic",
			setup:      func(r *http.Request) { r.Header.Set("Authorization", "Basic !!!") },
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "unknown scheme",
			setup:      func(r *http.Request) { r.Header.Set("Authorization", "Digest abc") },
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "resolver failure",
			setup:      func(r *http.Request) { r.Header.Set("Authorization", "Bearer good") },
			resolver:   stubResolver{err: errors.New("db down")},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotUser, gotMethod string
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if p := auth.PrincipalFromContext(r.Context()); p != nil {
					gotUser, gotMethod = p.UserID, p.AuthMethod
				}
				w.WriteHeader(http.StatusOK)
			})
			handler := Authenticate(AuthConfig{Logger: discardLogger(), Resolver: tt.resolver})(next)

			req := httptest.NewRequest(http.MethodGet, "/api/admin/news", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if gotUser != tt.wantUser {
				t.Errorf("principal user = %q, want %q", gotUser, tt.wantUser)
			}
			if gotMethod != tt.wantMethod {
				t.Errorf("auth method = %q, want %q", gotMethod, tt.wantMethod)
			}
			if rec.Code == http.StatusUnauthorized {
				if body := decodeError(t, rec); body.Code != CodeUnauthorized {
					t.Errorf("code = %q, want %q", body.Code, CodeUnauthorized)
				}
				if rec.Header().Get("WWW-Authenticate") == "" {
					t.Error("expected WWW-Authenticate header")
				}
			}
		})
	}
}
