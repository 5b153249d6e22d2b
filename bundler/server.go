package bundler

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/wolfeidau/cesiumbuild/internal/assets"
	httpmiddleware "github.com/wolfeidau/cesiumbuild/internal/http"
	"github.com/wolfeidau/cesiumbuild/internal/telemetry"
)

// Serve runs the dev server on addr until ctx is cancelled. Sources are
// rebuilt by esbuild in watch mode into a temporary directory.
func (r *Runner) Serve(ctx context.Context, addr string) error {
	logger := zerolog.Ctx(ctx)

	cfg, sessions, err := r.configure(ctx, CommandServe)
	if err != nil {
		return err
	}

	devDir, err := os.MkdirTemp("", "cesiumbuild-dev-*")
	if err != nil {
		return fmt.Errorf("failed to create dev output dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(devDir); err != nil {
			logger.Warn().Err(err).Str("dir", devDir).Msg("Failed to remove dev output dir")
		}
	}()

	pipeline := r.pipeline(cfg, devDir, true)
	opts, err := pipeline.BuildOptions()
	if err != nil {
		return fmt.Errorf("failed to prepare build: %w", err)
	}
	applyUserConfig(&opts, cfg)

	metrics := telemetry.GetMetrics()
	stop, err := pipeline.Watch(ctx, opts, func(err error) {
		metrics.DevRebuildsTotal.Add(ctx, 1)
	})
	if err != nil {
		return fmt.Errorf("failed to start watch mode: %w", err)
	}
	defer stop()

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	srv := configureHTTPServer(addr, r.devHandler(ctx, cfg, sessions, pipeline))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	logger.Info().Str("url", "http://"+ln.Addr().String()+devBase(cfg.Base)).Msg("Dev server listening")

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("dev server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown dev server: %w", err)
	}

	logger.Info().Msg("Dev server stopped")
	return nil
}

// devHandler assembles the dev server: plugin middlewares are consulted
// first, then the host serves index.html, built assets and the public dir.
func (r *Runner) devHandler(ctx context.Context, cfg UserConfig, sessions []Session, pipeline *assets.Pipeline) http.Handler {
	chain := NewMiddlewareChain()
	for _, session := range sessions {
		session.ConfigureServer(chain)
	}
	chain.Use("/", &hostHandler{
		runner:   r,
		base:     devBase(cfg.Base),
		sessions: sessions,
		pipeline: pipeline,
	})

	metrics := telemetry.GetMetrics()
	var handler http.Handler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		metrics.DevRequestsTotal.Add(req.Context(), 1)
		chain.ServeHTTP(w, req)
	})

	handler = httpmiddleware.RequestLogger(*zerolog.Ctx(ctx))(handler)

	if len(r.config.Server.CORSOrigins) > 0 {
		handler = cors.New(cors.Options{
			AllowedOrigins: r.config.Server.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodHead},
		}).Handler(handler)
	}

	return gzhttp.GzipHandler(handler)
}

// devBase returns the path the dev server mounts the app under. Relative
// bases only make sense for built files, in dev the app lives at the root.
func devBase(base string) string {
	if !strings.HasPrefix(base, "/") {
		return "/"
	}
	return base
}

type hostHandler struct {
	runner   *Runner
	base     string
	sessions []Session
	pipeline *assets.Pipeline
}

func (h *hostHandler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	p := req.URL.Path
	if p+"/" == h.base {
		p = h.base
	}
	if !strings.HasPrefix(p, h.base) {
		http.NotFound(w, req)
		return
	}
	rel := strings.TrimPrefix(p, h.base)

	switch {
	case rel == "" || rel == "index.html":
		h.serveIndex(w, req)
	case strings.HasPrefix(rel, assetsDir+"/"):
		dir := h.pipeline.Config().OutputDir
		http.ServeFile(w, req, filepath.Join(dir, filepath.FromSlash(strings.TrimPrefix(rel, assetsDir+"/"))))
	default:
		if h.runner.config.PublicDir != "" {
			file := filepath.Join(h.runner.config.path(h.runner.config.PublicDir), filepath.FromSlash(rel))
			if info, err := os.Stat(file); err == nil && !info.IsDir() {
				http.ServeFile(w, req, file)
				return
			}
		}
		// client side routes fall back to the app
		h.serveIndex(w, req)
	}
}

func (h *hostHandler) serveIndex(w http.ResponseWriter, req *http.Request) {
	page, err := h.runner.renderIndex(req.Context(), h.pipeline, h.sessions)
	if err != nil {
		zerolog.Ctx(req.Context()).Error().Err(err).Msg("Failed to render index.html")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(page)
}

func configureHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       5 * time.Minute,
		MaxHeaderBytes:    8 * 1024, // 8KiB
	}
}
