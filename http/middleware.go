package http

import (
	"context"
	"net/http"

	"github.com/sagarc03/mongolink"
)

type handleKey struct{}

// WithHandle returns a copy of ctx carrying h.
func WithHandle(ctx context.Context, h *mongolink.Handle) context.Context {
	return context.WithValue(ctx, handleKey{}, h)
}

// HandleFromContext returns the handle stored by Middleware.
func HandleFromContext(ctx context.Context) (*mongolink.Handle, bool) {
	h, ok := ctx.Value(handleKey{}).(*mongolink.Handle)
	return h, ok && h != nil
}

// DatabaseFromContext returns the logical database of the request's handle.
func DatabaseFromContext(ctx context.Context) (mongolink.Database, error) {
	h, ok := HandleFromContext(ctx)
	if !ok {
		return nil, ErrNoHandle
	}
	return h.Database(), nil
}

// Middleware resolves alias through src on every request and binds the
// handle to the request context. The first request connects; later ones
// reuse the handle. Resolution failures are answered with a JSON error and
// the next handler is not called.
func Middleware(src Source, alias string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h, err := src.Get(r.Context(), alias)
			if err != nil {
				HandleError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithHandle(r.Context(), h)))
		})
	}
}
