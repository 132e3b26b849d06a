package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phoebe/phoebe/internal/auth"
	"github.com/phoebe/phoebe/internal/model"
	"github.com/phoebe/phoebe/internal/service"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	if err := json.NewDecoder(bytes.NewReader(rec.Body.Bytes())).Decode(&body); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return body
}

func withPrincipal(r *http.Request, p *model.Principal) *http.Request {
	return r.WithContext(auth.ContextWithPrincipal(r.Context(), p))
}

// stubResolver accepts the bearer token "good" and the Basic pair alice/secret.
type stubResolver struct {
	err error
}

func (s stubResolver) ResolveBearer(_ context.Context, token string) (*model.Principal, error) {
	if s.err != nil {
		return nil, s.err
	}
	if token != "good" {
		return nil, service.ErrInvalidCredentials
	}
	return &model.Principal{UserID: "u1", Username: "alice", Roles: []string{model.RoleEditor}, AuthMethod: model.AuthMethodBearer}, nil
}

func (s stubResolver) ResolveBasic(_ context.Context, username, password string) (*model.Principal, error) {
	if s.err != nil {
		return nil, s.err
	}
	if username != "alice" || password != "secret" {
		return nil, service.ErrInvalidCredentials
	}
	return &model.Principal{UserID: "u1", Username: "alice", Roles: []string{model.RoleEditor}, AuthMethod: model.AuthMethodBasic}, nil
}
