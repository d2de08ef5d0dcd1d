// internal/tenancy/middleware.go
//
// Request entry hook: resolve the target admission cycle before any
// handler runs, and establish the scoped context for the remainder of the
// request, including nested work spawned with the request context.
//
// The schema is taken from the X-Admission-Schema header; an absent or
// empty header leaves the context unseeded, which downstream resolves to
// the main (“default”) slot.  A header outside the slug charset is
// rejected here, before any handler runs: the value ends up inside a
// DSN, so a malformed name is a client error, never a lookup miss.
package tenancy

import "net/http"

// SchemaHeader names the admission cycle a request targets.
const SchemaHeader = "X-Admission-Schema"

// Middleware seeds the request context with the tenant from SchemaHeader.
// Malformed names are answered with 400 directly.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if schema := r.Header.Get(SchemaHeader); schema != "" && schema != DefaultTenant {
			if !ValidName(schema) {
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"invalid ` + SchemaHeader + ` header"}`))
				return
			}
			r = r.WithContext(WithTenant(r.Context(), schema))
		}
		next.ServeHTTP(w, r)
	})
}
