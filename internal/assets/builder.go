package assets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrNotBuilt is returned when metadata is requested before a build finished.
var ErrNotBuilt = errors.New("assets not built yet, call Build() first")

// BuildOptions returns the esbuild options derived from the pipeline
// configuration. Callers layer plugin specific settings on top before
// handing them to Build or Watch.
func (p *Pipeline) BuildOptions() (api.BuildOptions, error) {
	var entryPoints []string
	for _, pattern := range p.config.EntryPoints {
		matches, err := filepath.Glob(filepath.Join(p.config.WorkingDir, pattern))
		if err != nil {
			return api.BuildOptions{}, fmt.Errorf("invalid entry point pattern %q: %w", pattern, err)
		}
		entryPoints = append(entryPoints, matches...)
	}

	if len(entryPoints) == 0 {
		return api.BuildOptions{}, errors.New("no entry points found")
	}

	return api.BuildOptions{
		AbsWorkingDir:     p.config.WorkingDir,
		EntryPoints:       entryPoints,
		Bundle:            true,
		Splitting:         true,
		Write:             true,
		Outdir:            p.config.OutputDir,
		PublicPath:        p.config.PublicPath,
		Format:            api.FormatESModule,
		MinifyWhitespace:  p.config.Minify,
		MinifyIdentifiers: p.config.Minify,
		MinifySyntax:      p.config.Minify,
		TreeShaking:       api.TreeShakingTrue,
		Sourcemap:         cond(p.config.SourceMap, api.SourceMapLinked, api.SourceMapNone),
		Metafile:          true,
		LogLevel:          api.LogLevelSilent,
	}, nil
}

// Build runs esbuild once with the given options and loads metadata
func (p *Pipeline) Build(ctx context.Context, opts api.BuildOptions) error {
	logger := zerolog.Ctx(ctx)
	logger.Info().Strs("entrypoints", opts.EntryPoints).Msg("Building assets")

	result := api.Build(opts)

	if err := p.handleResult(logger, &result); err != nil {
		return err
	}

	for _, file := range result.OutputFiles {
		logger.Debug().Str("file", file.Path).Msg("Built file")
	}

	return nil
}

// Watch starts esbuild in watch mode. Metadata is refreshed after every
// rebuild and onRebuild, when set, is called with the build outcome. The
// returned function stops watching and releases esbuild resources.
func (p *Pipeline) Watch(ctx context.Context, opts api.BuildOptions, onRebuild func(error)) (func(), error) {
	logger := zerolog.Ctx(ctx)

	opts.Plugins = append(opts.Plugins, api.Plugin{
		Name: "pipeline-metadata",
		Setup: func(build api.PluginBuild) {
			build.OnEnd(func(result *api.BuildResult) (api.OnEndResult, error) {
				err := p.handleResult(logger, result)
				if err == nil {
					logger.Info().Int("outputs", len(p.outputs())).Msg("Rebuilt assets")
				}
				if onRebuild != nil {
					onRebuild(err)
				}
				return api.OnEndResult{}, nil
			})
		},
	})

	buildCtx, ctxErr := api.Context(opts)
	if ctxErr != nil {
		for _, msg := range ctxErr.Errors {
			logger.Error().Str("error", msg.Text).Msg("Build error")
		}
		return nil, errors.New("failed to create esbuild context")
	}

	// first build runs synchronously so metadata exists before serving
	buildCtx.Rebuild()

	if err := buildCtx.Watch(api.WatchOptions{}); err != nil {
		buildCtx.Dispose()
		return nil, fmt.Errorf("failed to start watch mode: %w", err)
	}

	return buildCtx.Dispose, nil
}

func (p *Pipeline) handleResult(logger *zerolog.Logger, result *api.BuildResult) error {
	for _, msg := range result.Warnings {
		logger.Warn().Str("warning", msg.Text).Msg("Build warning")
	}

	if len(result.Errors) > 0 {
		for _, msg := range result.Errors {
			ev := logger.Error().Str("error", msg.Text)
			if msg.Location != nil {
				ev = ev.Str("file", msg.Location.File).Int("line", msg.Location.Line)
			}
			ev.Msg("Build error")
		}
		return errors.New("esbuild failed with errors")
	}

	if p.config.MetafilePath != "" {
		if err := os.WriteFile(p.config.MetafilePath, []byte(result.Metafile), 0600); err != nil {
			return fmt.Errorf("failed to write metafile: %w", err)
		}
	}

	var metadata BuildMetadata
	if err := json.Unmarshal([]byte(result.Metafile), &metadata); err != nil {
		return fmt.Errorf("failed to parse metafile: %w", err)
	}

	p.mu.Lock()
	p.metadata = &metadata
	p.mu.Unlock()

	return nil
}

func (p *Pipeline) outputs() map[string]OutputInfo {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.metadata == nil {
		return nil
	}
	return p.metadata.Outputs
}

// EntryPoints returns the entry point paths recorded in the metadata, sorted.
func (p *Pipeline) EntryPoints() ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.metadata == nil {
		return nil, ErrNotBuilt
	}

	seen := make(map[string]bool)
	var entryPoints []string
	for outputPath, info := range p.metadata.Outputs {
		if info.EntryPoint == "" || !strings.HasSuffix(outputPath, ".js") || seen[info.EntryPoint] {
			continue
		}
		seen[info.EntryPoint] = true
		entryPoints = append(entryPoints, info.EntryPoint)
	}
	sort.Strings(entryPoints)

	return entryPoints, nil
}

// CSSBundle returns the URL of the stylesheet esbuild emitted for the CSS
// imported by the given entrypoint, if any.
func (p *Pipeline) CSSBundle(entryPointPath string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.metadata == nil {
		return "", false
	}

	for outputPath, info := range p.metadata.Outputs {
		if info.EntryPoint == entryPointPath && strings.HasSuffix(outputPath, ".js") && info.CSSBundle != "" {
			return p.publicURL(info.CSSBundle), true
		}
	}
	return "", false
}

// LoadScripts returns the ordered list of script URLs needed for the given entrypoint
// and the main entrypoint URL
func (p *Pipeline) LoadScripts(entryPointPath string) ([]string, string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.metadata == nil {
		return nil, "", ErrNotBuilt
	}

	scripts := []string{}
	visited := make(map[string]bool)

	for outputPath, info := range p.metadata.Outputs {
		if info.EntryPoint == entryPointPath && strings.HasSuffix(outputPath, ".js") {
			entrypoint := p.publicURL(outputPath)
			scripts = append(scripts, entrypoint)
			visited[outputPath] = true
			p.addDependencies(info, &scripts, visited)
			return scripts, entrypoint, nil
		}
	}

	return nil, "", errors.New("entrypoint not found in metadata")
}

func (p *Pipeline) addDependencies(output OutputInfo, scripts *[]string, visited map[string]bool) {
	for _, imp := range output.Imports {
		if imp.External || visited[imp.Path] {
			continue
		}
		chunkInfo, exists := p.metadata.Outputs[imp.Path]
		if !exists {
			continue
		}
		visited[imp.Path] = true
		*scripts = append(*scripts, p.publicURL(imp.Path))
		p.addDependencies(chunkInfo, scripts, visited)
	}
}

// OversizedOutputs lists JavaScript outputs larger than limitKB kilobytes.
func (p *Pipeline) OversizedOutputs(limitKB int) []OversizedOutput {
	var oversized []OversizedOutput
	for outputPath, info := range p.outputs() {
		if !strings.HasSuffix(outputPath, ".js") {
			continue
		}
		if info.Bytes > limitKB*1024 {
			oversized = append(oversized, OversizedOutput{Path: outputPath, Bytes: info.Bytes})
		}
	}
	sort.Slice(oversized, func(i, j int) bool { return oversized[i].Path < oversized[j].Path })
	return oversized
}

// publicURL maps a metafile output path, relative to the working directory,
// to the URL the browser loads it from.
func (p *Pipeline) publicURL(outputPath string) string {
	full := filepath.Join(p.config.WorkingDir, filepath.FromSlash(outputPath))
	rel, err := filepath.Rel(p.absOutputDir(), full)
	if err != nil {
		log.Warn().Err(err).Str("output", outputPath).Msg("Output outside of output directory")
		rel = filepath.Base(full)
	}
	return path.Join(p.config.PublicPath, filepath.ToSlash(rel))
}

func (p *Pipeline) absOutputDir() string {
	if filepath.IsAbs(p.config.OutputDir) {
		return p.config.OutputDir
	}
	return filepath.Join(p.config.WorkingDir, p.config.OutputDir)
}

func cond[T any](condition bool, trueVal, falseVal T) T {
	if condition {
		return trueVal
	}
	return falseVal
}
