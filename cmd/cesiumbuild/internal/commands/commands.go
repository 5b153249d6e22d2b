package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/wolfeidau/cesiumbuild/bundler"
	"github.com/wolfeidau/cesiumbuild/cesium"
	"github.com/wolfeidau/cesiumbuild/internal/logger"
	"github.com/wolfeidau/cesiumbuild/internal/telemetry"
)

type Globals struct {
	Debug      bool
	Tracing    bool
	ConfigPath string
	Version    string
}

// CesiumFlags maps the plugin options onto flags and environment variables.
type CesiumFlags struct {
	Rebuild       bool   `help:"bundle Cesium instead of loading Cesium.js as a global" default:"false" env:"CESIUMBUILD_CESIUM_REBUILD"`
	DevMinify     bool   `help:"serve the minified Cesium build in development" default:"false" env:"CESIUMBUILD_CESIUM_DEV_MINIFY"`
	BuildRootPath string `help:"directory containing the Cesium and CesiumUnminified builds" default:"${cesium_build_root}" env:"CESIUMBUILD_CESIUM_BUILD_ROOT"`
	BuildPath     string `help:"Cesium distribution copied into production output" default:"${cesium_build_path}" env:"CESIUMBUILD_CESIUM_BUILD_PATH"`
	BaseURL       string `help:"URL segment Cesium assets are served under" default:"${cesium_base_url}" env:"CESIUMBUILD_CESIUM_BASE_URL"`
	Base          string `help:"public base path of the application, overrides the configured base" env:"CESIUMBUILD_CESIUM_BASE"`
}

// Vars are the kong variables referenced by CesiumFlags defaults.
func Vars() map[string]string {
	return map[string]string{
		"cesium_build_root": cesium.DefaultBuildRootPath,
		"cesium_build_path": cesium.DefaultBuildPath,
		"cesium_base_url":   cesium.DefaultBaseURL,
	}
}

func (f CesiumFlags) Options() cesium.Options {
	return cesium.Options{
		RebuildCesium:       f.Rebuild,
		DevMinifyCesium:     f.DevMinify,
		CesiumBuildRootPath: f.BuildRootPath,
		CesiumBuildPath:     f.BuildPath,
		CesiumBaseURL:       f.BaseURL,
		Base:                f.Base,
	}
}

// setup configures logging and telemetry and returns a context carrying the
// logger together with a cleanup function.
func setup(ctx context.Context, globals *Globals) (context.Context, func()) {
	log := logger.Setup(globals.Debug)
	ctx = log.WithContext(ctx)

	log.Debug().Str("version", globals.Version).Str("config", globals.ConfigPath).Msg("Starting cesiumbuild")

	if !globals.Tracing {
		return ctx, func() {}
	}

	shutdown, err := telemetry.InitTelemetry(ctx, "cesiumbuild", globals.Version)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without tracing")
		return ctx, func() {}
	}

	return ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Failed to shutdown telemetry")
		}
	}
}

// loadProject reads the project file, applies command line overrides and
// creates a runner with the Cesium plugin installed.
func loadProject(ctx context.Context, globals *Globals, flags CesiumFlags, override func(*bundler.Config)) (*bundler.Runner, bundler.Config, error) {
	cfg, err := bundler.LoadConfig(globals.ConfigPath)
	if err != nil {
		return nil, cfg, fmt.Errorf("failed to load project config: %w", err)
	}

	if override != nil {
		override(&cfg)
	}

	zerolog.Ctx(ctx).Debug().
		Str("root", cfg.Root).
		Strs("entries", cfg.Entries).
		Str("base", cfg.Base).
		Bool("rebuild_cesium", flags.Rebuild).
		Msg("Project loaded")

	return bundler.New(cfg, cesium.New(flags.Options())), cfg, nil
}
