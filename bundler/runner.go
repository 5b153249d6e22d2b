package bundler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfeidau/cesiumbuild/internal/assets"
	"github.com/wolfeidau/cesiumbuild/internal/fsutil"
	"github.com/wolfeidau/cesiumbuild/internal/telemetry"
)

// Runner drives esbuild for one project and calls plugin hooks at the
// matching points of a build or dev session.
type Runner struct {
	config  Config
	plugins []Plugin
}

// New creates a runner for the project configuration and plugins. Plugins
// are configured in the order given.
func New(config Config, plugins ...Plugin) *Runner {
	return &Runner{
		config:  config,
		plugins: plugins,
	}
}

// configure runs every plugin's Configure hook, merging each patch before the
// next plugin sees the configuration.
func (r *Runner) configure(ctx context.Context, command Command) (UserConfig, []Session, error) {
	resolved := r.config.UserConfig.Clone()
	if resolved.Build == nil {
		resolved.Build = &BuildConfig{}
	}
	// plugins write into the output directory themselves, hand them the
	// root relative location
	outDir := resolved.Build.OutDir
	if outDir == "" {
		outDir = DefaultOutDir
	}
	resolved.Build.OutDir = r.config.path(outDir)

	env := ConfigEnv{Command: command}

	var sessions []Session
	for _, p := range r.plugins {
		session, patch := p.Configure(resolved.Clone(), env)
		if err := MergeConfig(&resolved, patch); err != nil {
			return UserConfig{}, nil, fmt.Errorf("plugin %s: %w", p.Name(), err)
		}
		if session != nil {
			sessions = append(sessions, session)
		}
		zerolog.Ctx(ctx).Debug().Str("plugin", p.Name()).Str("command", string(command)).Msg("Plugin configured")
	}

	return resolved.withDefaults(), sessions, nil
}

func (r *Runner) pipeline(cfg UserConfig, outputDir string, dev bool) *assets.Pipeline {
	base := cfg.Base
	var metafile string
	switch {
	case dev:
		base = devBase(base)
	case r.config.Metafile != "":
		metafile = r.config.path(r.config.Metafile)
	}
	return assets.New(assets.Config{
		MetafilePath: metafile,
		WorkingDir:   r.config.path("."),
		EntryPoints:  r.config.Entries,
		OutputDir:    outputDir,
		PublicPath:   joinURL(base, assetsDir+"/"),
		Minify:       r.config.Minify && !dev,
		SourceMap:    r.config.SourceMap || dev,
	})
}

// Build produces the production bundle, writes the transformed index.html
// into the output directory and then runs CloseBundle on every plugin session.
func (r *Runner) Build(ctx context.Context) error {
	ctx, span := telemetry.Tracer().Start(ctx, "bundler.Build")
	defer span.End()

	metrics := telemetry.GetMetrics()
	metrics.BuildsTotal.Add(ctx, 1)
	started := time.Now()

	err := r.build(ctx)

	metrics.BuildDuration.Record(ctx, float64(time.Since(started).Milliseconds()))
	if err != nil {
		metrics.BuildErrorsTotal.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (r *Runner) build(ctx context.Context) error {
	logger := zerolog.Ctx(ctx)

	cfg, sessions, err := r.configure(ctx, CommandBuild)
	if err != nil {
		return err
	}

	outDir := r.config.path(cfg.Build.OutDir)
	pipeline := r.pipeline(cfg, filepath.Join(outDir, assetsDir), false)

	opts, err := pipeline.BuildOptions()
	if err != nil {
		return fmt.Errorf("failed to prepare build: %w", err)
	}
	applyUserConfig(&opts, cfg)

	if err := pipeline.Build(ctx, opts); err != nil {
		return fmt.Errorf("failed to build js assets: %w", err)
	}

	for _, o := range pipeline.OversizedOutputs(cfg.Build.ChunkSizeWarningLimit) {
		telemetry.GetMetrics().OversizedChunks.Add(ctx, 1)
		logger.Warn().
			Str("file", o.Path).
			Int("kb", o.Bytes/1024).
			Int("limit_kb", cfg.Build.ChunkSizeWarningLimit).
			Msg("Chunk is larger than the size warning limit")
	}

	if err := r.copyPublicDir(outDir); err != nil {
		return err
	}

	page, err := r.renderIndex(ctx, pipeline, sessions)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(outDir, "index.html"), page, 0o600); err != nil {
		return fmt.Errorf("failed to write index.html: %w", err)
	}

	// every output file is written at this point
	for _, session := range sessions {
		session.CloseBundle(ctx)
	}

	logger.Info().Str("out_dir", outDir).Msg("Build complete")
	return nil
}

func (r *Runner) copyPublicDir(outDir string) error {
	if r.config.PublicDir == "" {
		return nil
	}
	src := r.config.path(r.config.PublicDir)
	if _, err := os.Stat(src); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := fsutil.Copy(src, outDir); err != nil {
		return fmt.Errorf("failed to copy public dir: %w", err)
	}
	return nil
}

// renderIndex injects plugin tags into the head and entry scripts into the
// body of the index.html template.
func (r *Runner) renderIndex(ctx context.Context, pipeline *assets.Pipeline, sessions []Session) ([]byte, error) {
	_, span := telemetry.Tracer().Start(ctx, "bundler.renderIndex")
	defer span.End()

	src, err := os.ReadFile(r.config.path(r.config.IndexHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to read index html: %w", err)
	}

	var head []HTMLTag
	for _, session := range sessions {
		head = append(head, session.TransformIndexHTML()...)
	}

	body, err := entryTags(pipeline)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("head_tags", len(head)), attribute.Int("body_tags", len(body)))

	return InjectTags(src, head, body)
}

func entryTags(pipeline *assets.Pipeline) ([]HTMLTag, error) {
	entryPoints, err := pipeline.EntryPoints()
	if err != nil {
		return nil, err
	}

	var tags []HTMLTag
	for _, entryPoint := range entryPoints {
		scripts, entry, err := pipeline.LoadScripts(entryPoint)
		if err != nil {
			return nil, err
		}
		if css, ok := pipeline.CSSBundle(entryPoint); ok {
			tags = append(tags, HTMLTag{Tag: "link", Attrs: map[string]string{"rel": "stylesheet", "href": css}})
		}
		for _, dep := range scripts[1:] {
			tags = append(tags, HTMLTag{Tag: "link", Attrs: map[string]string{"rel": "modulepreload", "href": dep}})
		}
		tags = append(tags, HTMLTag{Tag: "script", Attrs: map[string]string{"type": "module", "src": entry}})
	}
	return tags, nil
}
