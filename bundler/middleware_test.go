package bundler

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func pathEcho(name string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, name+":"+r.URL.Path)
	})
}

func TestMiddlewareChain(t *testing.T) {
	chain := NewMiddlewareChain()
	chain.Use("/app/cesium/", pathEcho("cesium"))
	chain.Use("/app/", pathEcho("app"))

	tests := []struct {
		path     string
		expected string
		code     int
	}{
		{path: "/app/cesium/Workers/createTask.js", expected: "cesium:/Workers/createTask.js", code: http.StatusOK},
		{path: "/app/cesium", expected: "cesium:/", code: http.StatusOK},
		{path: "/app/cesiumExtra/x.js", expected: "app:/cesiumExtra/x.js", code: http.StatusOK},
		{path: "/app/index.html", expected: "app:/index.html", code: http.StatusOK},
		{path: "/other", code: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			chain.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			require.Equal(t, tt.code, w.Code)
			if tt.code == http.StatusOK {
				require.Equal(t, tt.expected, w.Body.String())
			}
		})
	}
}

func TestMiddlewareChain_rootRoute(t *testing.T) {
	chain := NewMiddlewareChain()
	chain.Use("/", pathEcho("root"))

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/deep/path?x=1", nil)
	chain.ServeHTTP(w, r)

	require.Equal(t, "root:/deep/path", w.Body.String())
	// the original request is not modified
	require.Equal(t, "/deep/path", r.URL.Path)
}

func TestMiddlewareChain_rootRegisteredFirst(t *testing.T) {
	chain := NewMiddlewareChain()
	chain.Use("/", pathEcho("root"))
	chain.Use("/cesium/", pathEcho("cesium"))

	w := httptest.NewRecorder()
	chain.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/cesium/Widgets/widgets.css", nil))
	require.Equal(t, "cesium:/Widgets/widgets.css", w.Body.String())

	w = httptest.NewRecorder()
	chain.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, "root:/", w.Body.String())
}

func TestMiddlewareChain_recoversPanics(t *testing.T) {
	chain := NewMiddlewareChain()
	chain.Use("/broken/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("plugin bug")
	}))

	w := httptest.NewRecorder()
	chain.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/broken/x", nil))
	require.Equal(t, http.StatusInternalServerError, w.Code)
}
