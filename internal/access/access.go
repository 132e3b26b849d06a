// Package access decides whether a principal may run an operation.
//
// Role requirements are checked by Guard, which wraps the unit of work and
// runs it only when the requirement holds. Content ownership is checked by
// AuthorVerifier. Both fail closed: no principal means no access.
package access

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/phoebe/phoebe/internal/auth"
	"github.com/phoebe/phoebe/internal/model"
)

// ErrAccessDenied is the single denial signal of this package.
var ErrAccessDenied = errors.New("access denied")

type matchMode int

const (
	matchSingle matchMode = iota
	matchAny
	matchAll
)

// Requirement is a declared role constraint.
type Requirement struct {
	mode  matchMode
	roles []string
}

// Role requires the principal to hold name.
func Role(name string) Requirement {
	return Requirement{mode: matchSingle, roles: normalize([]string{name})}
}

// AnyRole requires at least one of names.
func AnyRole(names ...string) Requirement {
	return Requirement{mode: matchAny, roles: normalize(names)}
}

// AllRoles requires every one of names.
func AllRoles(names ...string) Requirement {
	return Requirement{mode: matchAll, roles: normalize(names)}
}

// Roles returns the normalized role names of the requirement.
func (r Requirement) Roles() []string {
	return slices.Clone(r.roles)
}

// Allows evaluates the requirement against granted role names.
// A requirement naming no roles allows nothing.
func (r Requirement) Allows(granted []string) bool {
	if len(r.roles) == 0 {
		return false
	}

	held := make(map[string]struct{}, len(granted))
	for _, g := range granted {
		held[model.NormalizeRoleName(g)] = struct{}{}
	}

	switch r.mode {
	case matchSingle, matchAny:
		for _, want := range r.roles {
			if _, ok := held[want]; ok {
				return true
			}
		}
		return false
	case matchAll:
		for _, want := range r.roles {
			if _, ok := held[want]; !ok {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func (r Requirement) String() string {
	switch r.mode {
	case matchAny:
		return "any(" + strings.Join(r.roles, ",") + ")"
	case matchAll:
		return "all(" + strings.Join(r.roles, ",") + ")"
	default:
		return strings.Join(r.roles, ",")
	}
}

// Authorize returns ErrAccessDenied unless p satisfies req.
func Authorize(p *model.Principal, req Requirement) error {
	if p == nil || !req.Allows(p.Roles) {
		return ErrAccessDenied
	}
	return nil
}

// Guard runs fn once if the principal in ctx satisfies req, and never otherwise.
// Errors returned by fn are passed through unchanged.
func Guard(ctx context.Context, req Requirement, fn func(ctx context.Context) error) error {
	if err := Authorize(auth.PrincipalFromContext(ctx), req); err != nil {
		return err
	}
	return fn(ctx)
}

// Guarded is Guard for operations that produce a value.
func Guarded[T any](ctx context.Context, req Requirement, fn func(ctx context.Context) (T, error)) (T, error) {
	if err := Authorize(auth.PrincipalFromContext(ctx), req); err != nil {
		var zero T
		return zero, err
	}
	return fn(ctx)
}

func normalize(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = model.NormalizeRoleName(n)
		if n != "" && !slices.Contains(out, n) {
			out = append(out, n)
		}
	}
	return out
}
