package auth

import (
	"context"
	"testing"

	"github.com/phoebe/phoebe/internal/model"
)

func TestPrincipalFromContext(t *testing.T) {
	if p := PrincipalFromContext(context.Background()); p != nil {
		t.Fatalf("expected nil principal, got %+v", p)
	}

	want := &model.Principal{UserID: "u1", Username: "alice", Roles: []string{model.RoleEditor}}
	ctx := ContextWithPrincipal(context.Background(), want)

	if got := PrincipalFromContext(ctx); got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
	if got := UserIDFromContext(ctx); got != "u1" {
		t.Errorf("expected user id u1, got %q", got)
	}
}

func TestMustPrincipalFromContext_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic without principal")
		}
	}()
	MustPrincipalFromContext(context.Background())
}
