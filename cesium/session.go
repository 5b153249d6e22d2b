package cesium

import (
	"context"
	"net/http"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfeidau/cesiumbuild/bundler"
	httpmiddleware "github.com/wolfeidau/cesiumbuild/internal/http"
	"github.com/wolfeidau/cesiumbuild/internal/telemetry"
)

var _ bundler.Session = (*Session)(nil)

// assetDirs are copied from the Cesium distribution on every build.
var assetDirs = []string{"Assets", "ThirdParty", "Workers", "Widgets"}

// Session is the state of the plugin for one build or dev session. It is
// created by Plugin.Configure and not modified afterwards.
type Session struct {
	ID string
	// Destination root for production output
	OutDir string
	// Public base path of the application
	Base    string
	IsBuild bool
	// Browser visible URL of the Cesium assets, Base joined with the base URL
	RelativeURL string

	opts Options
	copy func(src, dst string) error
}

// ConfigureServer serves the Cesium build tree under RelativeURL with a
// permissive CORS header.
func (s *Session) ConfigureServer(m bundler.Middlewares) {
	tree := "CesiumUnminified"
	if s.opts.DevMinifyCesium {
		tree = "Cesium"
	}
	dir := filepath.Join(s.opts.CesiumBuildRootPath, tree)

	m.Use(joinURL("/", s.RelativeURL), httpmiddleware.AllowAllOrigins(http.FileServer(http.Dir(dir))))
}

// CloseBundle copies the Cesium assets into the build output. Copies are
// best effort: a failure is logged and the remaining copies still run.
func (s *Session) CloseBundle(ctx context.Context) {
	if !s.IsBuild {
		return
	}

	ctx, span := telemetry.Tracer().Start(ctx, "cesium.CloseBundle",
		trace.WithAttributes(attribute.String("cesium.session_id", s.ID)))
	defer span.End()

	logger := zerolog.Ctx(ctx).With().Str("session", s.ID).Logger()
	dest := filepath.Join(s.OutDir, filepath.FromSlash(s.RelativeURL))

	names := assetDirs
	if !s.opts.RebuildCesium {
		names = append(names[:len(names):len(names)], "Cesium.js")
	}

	var failed int
	for _, name := range names {
		if err := s.copyAsset(ctx, name, dest); err != nil {
			failed++
			logger.Error().Err(err).Str("asset", name).Msg("copy failed")
		}
	}

	span.SetAttributes(attribute.Int("copies", len(names)), attribute.Int("failed", failed))
	if failed > 0 {
		span.SetStatus(codes.Error, "asset copy failed")
		return
	}

	logger.Info().Str("dest", dest).Int("copies", len(names)).Msg("Copied Cesium assets")
}

func (s *Session) copyAsset(ctx context.Context, name, dest string) error {
	metrics := telemetry.GetMetrics()
	started := time.Now()

	err := s.copy(filepath.Join(s.opts.CesiumBuildPath, name), filepath.Join(dest, name))

	metrics.AssetCopiesTotal.Add(ctx, 1)
	metrics.AssetCopyDuration.Record(ctx, float64(time.Since(started).Milliseconds()))
	if err != nil {
		metrics.AssetCopyErrors.Add(ctx, 1)
	}
	return err
}

// TransformIndexHTML returns the tags Cesium needs in index.html: the widgets
// stylesheet and, when Cesium is loaded as a global, Cesium.js after it.
func (s *Session) TransformIndexHTML() []bundler.HTMLTag {
	tags := []bundler.HTMLTag{
		{
			Tag: "link",
			Attrs: map[string]string{
				"rel":  "stylesheet",
				"href": joinURL(s.RelativeURL, "Widgets/widgets.css"),
			},
		},
	}

	if s.IsBuild && !s.opts.RebuildCesium {
		tags = append(tags, bundler.HTMLTag{
			Tag: "script",
			Attrs: map[string]string{
				"src": joinURL(s.RelativeURL, "Cesium.js"),
			},
		})
	}

	return tags
}
