// internal/tenancy/context.go
//
// Request-scoped tenant propagation.
//
// Context
// -------
// Repository code deep inside a request must discover “which admission
// cycle is this unit of work operating on” without the schema name being
// threaded through every signature.  We use context.Context for that:
// the HTTP middleware seeds the value once, and any code (including
// goroutines spawned with the request context) reads it back here.
// Values set in one request can never leak into a concurrently running
// one, and a nested WithTenant shadows the outer value for its extent
// only.
package tenancy

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type ctxKey struct{}

// WithTenant returns a child context carrying the schema name.
func WithTenant(ctx context.Context, schema string) context.Context {
	return context.WithValue(ctx, ctxKey{}, schema)
}

// FromContext reports the schema active for ctx, or ("", false) when none
// was established.
func FromContext(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(ctxKey{}).(string)
	return s, ok
}

// ForContext resolves ctx to a pool: the context's tenant when present,
// the main slot otherwise.  This is the sole hook the repository layer
// uses to reach the registry.
func (r *Registry) ForContext(ctx context.Context) (*sqlx.DB, error) {
	schema, ok := FromContext(ctx)
	if !ok {
		schema = DefaultTenant
	}
	return r.Get(schema)
}
