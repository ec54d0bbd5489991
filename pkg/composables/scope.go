package composables

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/iota-uz/nero/pkg/constants"
)

var ErrNoScope = errors.New("no tenant scope found in context")

// Scope binds one in-flight request to one tenant's schema. It lives in the
// request context only: it is created when the request is resolved, travels
// with the context through the call chain, and dies with the request. It must
// never be stored in a package-level variable or shared across requests.
type Scope struct {
	TenantID uuid.UUID
	Schema   string
}

func WithScope(ctx context.Context, s Scope) context.Context {
	return context.WithValue(ctx, constants.ScopeKey, s)
}

func UseScope(ctx context.Context) (Scope, error) {
	s, ok := ctx.Value(constants.ScopeKey).(Scope)
	if !ok {
		return Scope{}, ErrNoScope
	}
	return s, nil
}

func MustUseScope(ctx context.Context) Scope {
	s, err := UseScope(ctx)
	if err != nil {
		panic(err)
	}
	return s
}

// UseTenantID returns the tenant bound to the current scope.
func UseTenantID(ctx context.Context) (uuid.UUID, error) {
	s, err := UseScope(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	return s.TenantID, nil
}
