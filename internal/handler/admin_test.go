package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phoebe/phoebe/internal/handler/dto"
	"github.com/phoebe/phoebe/internal/model"
	"github.com/phoebe/phoebe/internal/service"
)

type stubUsers struct {
	user      *model.User
	err       error
	gotCreate service.CreateUserInput
	gotUpdate service.UpdateUserInput
}

func (s *stubUsers) CreateUser(_ context.Context, in service.CreateUserInput) (*model.User, error) {
	s.gotCreate = in
	return s.user, s.err
}

func (s *stubUsers) GetUser(context.Context, string) (*model.User, error) { return s.user, s.err }

func (s *stubUsers) ListUsers(context.Context) ([]*model.User, error) {
	return []*model.User{s.user}, s.err
}

func (s *stubUsers) UpdateUser(_ context.Context, in service.UpdateUserInput) (*model.User, error) {
	s.gotUpdate = in
	return s.user, s.err
}

func (s *stubUsers) DeleteUser(context.Context, string) error { return s.err }

func TestUserHandler_CreateDefaultsActive(t *testing.T) {
	svc := &stubUsers{user: &model.User{ID: "u2", Username: "bob", PasswordHash: "$argon2id$secret"}}
	h := NewUserHandler(svc, discardLogger())

	rec := httptest.NewRecorder()
	h.Create(rec, jsonRequest(http.MethodPost, "/api/admin/users", `{"username":"bob","password":"long-enough","role_ids":["r1"]}`))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, svc.gotCreate.Active)
	assert.Equal(t, []string{"r1"}, svc.gotCreate.RoleIDs)
	assert.NotContains(t, rec.Body.String(), "argon2id")
}

func TestUserHandler_CreateRejectsShortPassword(t *testing.T) {
	svc := &stubUsers{}
	h := NewUserHandler(svc, discardLogger())

	rec := httptest.NewRecorder()
	h.Create(rec, jsonRequest(http.MethodPost, "/api/admin/users", `{"username":"bob","password":"short"}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, svc.gotCreate.Username)
}

func TestUserHandler_UpdatePartial(t *testing.T) {
	svc := &stubUsers{user: &model.User{ID: "u2", Username: "bob"}}
	h := NewUserHandler(svc, discardLogger())

	req := withURLParam(jsonRequest(http.MethodPut, "/api/admin/users/u2", `{"active":false}`), "id", "u2")
	rec := httptest.NewRecorder()
	h.Update(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u2", svc.gotUpdate.ID)
	require.NotNil(t, svc.gotUpdate.Active)
	assert.False(t, *svc.gotUpdate.Active)
	assert.Nil(t, svc.gotUpdate.Password)
	assert.Nil(t, svc.gotUpdate.RoleIDs)
}

func TestUserHandler_CreateConflict(t *testing.T) {
	h := NewUserHandler(&stubUsers{err: service.ErrConflict}, discardLogger())

	rec := httptest.NewRecorder()
	h.Create(rec, jsonRequest(http.MethodPost, "/api/admin/users", `{"username":"bob","password":"long-enough"}`))

	assert.Equal(t, http.StatusConflict, rec.Code)
}

type stubRoles struct {
	role     *model.Role
	perms    []*model.Permission
	err      error
	gotInput service.RoleInput
	gotUser  string
}

func (s *stubRoles) CreateRole(_ context.Context, in service.RoleInput) (*model.Role, error) {
	s.gotInput = in
	return s.role, s.err
}

func (s *stubRoles) GetRole(context.Context, string) (*model.Role, error) { return s.role, s.err }

func (s *stubRoles) ListRoles(context.Context) ([]*model.Role, error) {
	return []*model.Role{s.role}, s.err
}

func (s *stubRoles) ListRolesByUser(_ context.Context, userID string) ([]*model.Role, error) {
	s.gotUser = userID
	return []*model.Role{s.role}, s.err
}

func (s *stubRoles) UpdateRole(_ context.Context, _ string, in service.RoleInput) (*model.Role, error) {
	s.gotInput = in
	return s.role, s.err
}

func (s *stubRoles) DeleteRole(context.Context, string) error { return s.err }

func (s *stubRoles) ListPermissions(context.Context) ([]*model.Permission, error) {
	return s.perms, s.err
}

func (s *stubRoles) GetPermission(context.Context, string) (*model.Permission, error) {
	if len(s.perms) == 0 {
		return nil, service.ErrNotFound
	}
	return s.perms[0], s.err
}

func TestRoleHandler_Create(t *testing.T) {
	svc := &stubRoles{role: &model.Role{
		ID:          "r3",
		Name:        "REVIEWER",
		Permissions: []*model.Permission{{ID: "p1", Name: "news:read"}},
	}}
	h := NewRoleHandler(svc, discardLogger())

	rec := httptest.NewRecorder()
	h.Create(rec, jsonRequest(http.MethodPost, "/api/admin/roles", `{"name":"reviewer","permission_ids":["p1"]}`))

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, svc.gotInput.Name)
	assert.Equal(t, "reviewer", *svc.gotInput.Name)
	require.NotNil(t, svc.gotInput.PermissionIDs)
	assert.Equal(t, []string{"p1"}, *svc.gotInput.PermissionIDs)

	var body dto.RoleResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "REVIEWER", body.Name)
	require.Len(t, body.Permissions, 1)
	assert.Equal(t, "news:read", body.Permissions[0].Name)
}

func TestRoleHandler_ListByUser(t *testing.T) {
	svc := &stubRoles{role: &model.Role{ID: "r1", Name: model.RoleEditor}}
	h := NewRoleHandler(svc, discardLogger())

	rec := httptest.NewRecorder()
	h.ListByUser(rec, withURLParam(httptest.NewRequest(http.MethodGet, "/api/admin/roles/user/u1", nil), "userId", "u1"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", svc.gotUser)
}

func TestRoleHandler_GetPermissionMissing(t *testing.T) {
	h := NewRoleHandler(&stubRoles{}, discardLogger())

	rec := httptest.NewRecorder()
	h.GetPermission(rec, withURLParam(httptest.NewRequest(http.MethodGet, "/api/admin/permissions/p9", nil), "id", "p9"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type stubTerms struct {
	terms    []*model.Term
	err      error
	gotVocab string
}

func (s *stubTerms) CreateTerm(_ context.Context, name, vocabulary string) (*model.Term, error) {
	s.gotVocab = vocabulary
	return &model.Term{ID: "t1", Name: name, Vocabulary: vocabulary}, s.err
}

func (s *stubTerms) GetTerm(context.Context, string) (*model.Term, error) {
	if len(s.terms) == 0 {
		return nil, service.ErrNotFound
	}
	return s.terms[0], s.err
}

func (s *stubTerms) ListTerms(_ context.Context, vocabulary string) ([]*model.Term, error) {
	s.gotVocab = vocabulary
	return s.terms, s.err
}

func (s *stubTerms) UpdateTerm(_ context.Context, id, name, vocabulary string) (*model.Term, error) {
	return &model.Term{ID: id, Name: name, Vocabulary: vocabulary}, s.err
}

func (s *stubTerms) DeleteTerm(context.Context, string) error { return s.err }

func TestTermHandler(t *testing.T) {
	svc := &stubTerms{terms: []*model.Term{{ID: "t1", Name: "golang", Vocabulary: "tags"}}}
	h := NewTermHandler(svc, discardLogger())

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/public/terms?vocabulary=tags", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tags", svc.gotVocab)

	var list []dto.TermResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	assert.Len(t, list, 1)

	rec = httptest.NewRecorder()
	h.Create(rec, jsonRequest(http.MethodPost, "/api/admin/terms", `{"name":"rust","vocabulary":"tags"}`))
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	h.Create(rec, jsonRequest(http.MethodPost, "/api/admin/terms", `{"name":"rust"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.Delete(rec, withURLParam(httptest.NewRequest(http.MethodDelete, "/api/admin/terms/t1", nil), "id", "t1"))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

type stubChannel struct {
	settings *model.ChannelSettings
	got      model.ChannelSettings
	err      error
}

func (s *stubChannel) Get(context.Context) (*model.ChannelSettings, error) { return s.settings, s.err }

func (s *stubChannel) Update(_ context.Context, in model.ChannelSettings) (*model.ChannelSettings, error) {
	s.got = in
	return &in, s.err
}

func TestChannelHandler(t *testing.T) {
	svc := &stubChannel{settings: model.DefaultChannelSettings()}
	h := NewChannelHandler(svc, discardLogger())

	rec := httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest(http.MethodGet, "/api/public/channel-settings", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.Update(rec, jsonRequest(http.MethodPut, "/api/admin/channel-settings",
		`{"site_title":"Phoebe News","site_url":"https://news.example","main_menu_term_ids":["t1"]}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Phoebe News", svc.got.SiteTitle)
	assert.Equal(t, []string{"t1"}, svc.got.MainMenuTermIDs)

	rec = httptest.NewRecorder()
	h.Update(rec, jsonRequest(http.MethodPut, "/api/admin/channel-settings", `{"site_title":"x","site_url":"not a url"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
