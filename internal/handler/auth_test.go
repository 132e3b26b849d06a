package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phoebe/phoebe/internal/handler/dto"
	"github.com/phoebe/phoebe/internal/model"
	"github.com/phoebe/phoebe/internal/service"
)

type stubAuthenticator struct {
	result *service.LoginResult
	err    error
}

func (s *stubAuthenticator) Login(_ context.Context, username, password string) (*service.LoginResult, error) {
	return s.result, s.err
}

func TestAuthHandler_Login(t *testing.T) {
	expires := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	svc := &stubAuthenticator{result: &service.LoginResult{
		Token:     "signed.jwt.token",
		ExpiresAt: expires,
		User:      &model.User{ID: "u1", Username: "alice", Active: true, Roles: []*model.Role{{ID: "r1", Name: model.RoleEditor}}},
	}}
	h := NewAuthHandler(svc, discardLogger())

	rec := httptest.NewRecorder()
	h.Login(rec, jsonRequest(http.MethodPost, "/api/admin/auth/login", `{"username":"alice","password":"secret-pass"}`))

	require.Equal(t, http.StatusOK, rec.Code)
	var body dto.LoginResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "signed.jwt.token", body.Token)
	assert.Equal(t, "Bearer", body.TokenType)
	assert.True(t, expires.Equal(body.ExpiresAt))
	assert.Equal(t, []string{model.RoleEditor}, body.User.Roles)
}

func TestAuthHandler_LoginFailures(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		err      error
		wantCode int
	}{
		{"bad credentials", `{"username":"alice","password":"wrong"}`, service.ErrInvalidCredentials, http.StatusUnauthorized},
		{"missing password", `{"username":"alice"}`, nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAuthHandler(&stubAuthenticator{err: tt.err}, discardLogger())
			rec := httptest.NewRecorder()
			h.Login(rec, jsonRequest(http.MethodPost, "/api/admin/auth/login", tt.body))
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestAuthHandler_Me(t *testing.T) {
	h := NewAuthHandler(&stubAuthenticator{}, discardLogger())

	rec := httptest.NewRecorder()
	h.Me(rec, asPrincipal(httptest.NewRequest(http.MethodGet, "/api/admin/auth/me", nil), editor()))

	require.Equal(t, http.StatusOK, rec.Code)
	var body dto.MeResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "alice", body.Username)
	assert.Equal(t, []string{model.RoleEditor}, body.Roles)
	assert.Equal(t, []string{}, body.Permissions)
	assert.Equal(t, model.AuthMethodBearer, body.AuthMethod)
}
