package bundler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

var _ Middlewares = (*MiddlewareChain)(nil)

// MiddlewareChain routes dev server requests to handlers registered by
// prefix. The prefix is stripped before the handler sees the request and the
// root route catches everything no other route claims.
type MiddlewareChain struct {
	mux *chi.Mux
}

func NewMiddlewareChain() *MiddlewareChain {
	mux := chi.NewRouter()
	// panics in handlers become 500 responses
	mux.Use(middleware.Recoverer)
	return &MiddlewareChain{mux: mux}
}

func (c *MiddlewareChain) Use(route string, h http.Handler) {
	prefix := strings.TrimSuffix(route, "/")
	if prefix == "" {
		c.mux.Handle("/*", h)
		return
	}

	h = stripPrefix(prefix, h)
	c.mux.Handle(prefix, h)
	c.mux.Handle(prefix+"/*", h)
}

func (c *MiddlewareChain) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.mux.ServeHTTP(w, r)
}

// stripPrefix is http.StripPrefix with the remaining path always starting
// with a slash.
func stripPrefix(prefix string, h http.Handler) http.Handler {
	return http.StripPrefix(prefix, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// r is already a copy made by http.StripPrefix
		if !strings.HasPrefix(r.URL.Path, "/") {
			r.URL.Path = "/" + r.URL.Path
		}
		h.ServeHTTP(w, r)
	}))
}
