// internal/tenancy/context_test.go
//
// Tests for request-scoped tenant propagation and the HTTP entry hook.

package tenancy

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromContextAbsent(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)
}

func TestWithTenantShadowing(t *testing.T) {
	outer := WithTenant(context.Background(), "ciclo_2024")
	inner := WithTenant(outer, "ciclo_2025")

	s, ok := FromContext(inner)
	assert.True(t, ok)
	assert.Equal(t, "ciclo_2025", s)

	// The outer scope is untouched once the inner extent ends.
	s, ok = FromContext(outer)
	assert.True(t, ok)
	assert.Equal(t, "ciclo_2024", s)
}

func TestConcurrentScopesDoNotLeak(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			want := fmt.Sprintf("ciclo_%d", i)
			ctx := WithTenant(context.Background(), want)

			// Nested async work inherits the value.
			done := make(chan struct{})
			go func() {
				defer close(done)
				got, ok := FromContext(ctx)
				assert.True(t, ok)
				assert.Equal(t, want, got)
			}()
			<-done
		}(i)
	}
	wg.Wait()
}

func TestMiddlewareSeedsContext(t *testing.T) {
	var got string
	var ok bool
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok = FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/areas", nil)
	req.Header.Set(SchemaHeader, "ciclo_2023")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.True(t, ok)
	assert.Equal(t, "ciclo_2023", got)
}

func TestMiddlewareRejectsMalformedHeader(t *testing.T) {
	for _, header := range []string{
		"ciclo host=evil.example.com user=admin",
		"ciclo;drop schema public",
		"Ciclo 2025",
	} {
		reached := false
		h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reached = true
		}))

		req := httptest.NewRequest(http.MethodGet, "/api/areas", nil)
		req.Header.Set(SchemaHeader, header)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code, "header %q", header)
		assert.False(t, reached, "handler must not run for header %q", header)
	}
}

func TestMiddlewareDefaultStaysUnseeded(t *testing.T) {
	for _, header := range []string{"", "default"} {
		var ok bool
		h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, ok = FromContext(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/api/areas", nil)
		if header != "" {
			req.Header.Set(SchemaHeader, header)
		}
		h.ServeHTTP(httptest.NewRecorder(), req)

		assert.False(t, ok, "header %q must not seed a tenant", header)
	}
}
