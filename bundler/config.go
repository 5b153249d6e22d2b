package bundler

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultOutDir                = "dist"
	DefaultAssetsInlineLimit     = 4096
	DefaultChunkSizeWarningLimit = 500

	assetsDir = "assets"
)

// UserConfig is the part of the configuration plugins can read and patch.
type UserConfig struct {
	Base   string            `yaml:"base"`
	Define map[string]string `yaml:"define"`
	Build  *BuildConfig      `yaml:"build"`
}

type BuildConfig struct {
	OutDir string `yaml:"outDir"`
	// Assets smaller than this many bytes are inlined as data URLs, 0 disables inlining
	AssetsInlineLimit *int `yaml:"assetsInlineLimit"`
	// Size in kB above which output chunks are reported
	ChunkSizeWarningLimit int `yaml:"chunkSizeWarningLimit"`
	// Code placed at the top of every output chunk
	Intro string `yaml:"intro"`
	// Modules left out of the bundle
	External []string `yaml:"external"`
	// Modules resolved to a global variable at runtime, keyed by module name
	Globals map[string]string `yaml:"globals"`
}

// Clone returns a deep copy so patches can be merged without touching the original.
func (c UserConfig) Clone() UserConfig {
	out := UserConfig{
		Base:   c.Base,
		Define: maps.Clone(c.Define),
	}
	if c.Build != nil {
		b := *c.Build
		if c.Build.AssetsInlineLimit != nil {
			limit := *c.Build.AssetsInlineLimit
			b.AssetsInlineLimit = &limit
		}
		b.External = slices.Clone(c.Build.External)
		b.Globals = maps.Clone(c.Build.Globals)
		out.Build = &b
	}
	return out
}

// withDefaults fills unset values the way the host applies them after all
// plugins were configured.
func (c UserConfig) withDefaults() UserConfig {
	out := c.Clone()
	if out.Base == "" {
		out.Base = "/"
	}
	if !strings.HasSuffix(out.Base, "/") {
		out.Base += "/"
	}
	if out.Build == nil {
		out.Build = &BuildConfig{}
	}
	if out.Build.OutDir == "" {
		out.Build.OutDir = DefaultOutDir
	}
	if out.Build.AssetsInlineLimit == nil {
		limit := DefaultAssetsInlineLimit
		out.Build.AssetsInlineLimit = &limit
	}
	if out.Build.ChunkSizeWarningLimit == 0 {
		out.Build.ChunkSizeWarningLimit = DefaultChunkSizeWarningLimit
	}
	return out
}

// Config is the project configuration, usually loaded from cesiumbuild.yaml.
type Config struct {
	UserConfig `yaml:",inline"`

	// Project root, other paths are relative to it
	Root string `yaml:"root"`
	// Entry point globs (e.g., "src/*.ts")
	Entries []string `yaml:"entries"`
	// HTML template plugin and entry tags are injected into
	IndexHTML string `yaml:"indexHtml"`
	// Directory copied verbatim into the output and served by the dev server
	PublicDir string `yaml:"publicDir"`
	Minify    bool   `yaml:"minify"`
	SourceMap bool   `yaml:"sourcemap"`
	// Optional path the esbuild metafile of a production build is written to
	Metafile string `yaml:"metafile"`

	Server ServerConfig `yaml:"server"`
}

type ServerConfig struct {
	Addr        string   `yaml:"addr"`
	CORSOrigins []string `yaml:"corsOrigins"`
}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() Config {
	return Config{
		Root:      ".",
		Entries:   []string{"src/main.ts"},
		IndexHTML: "index.html",
		PublicDir: "public",
		Minify:    true,
		SourceMap: true,
		Server: ServerConfig{
			Addr: "localhost:5173",
		},
	}
}

// LoadConfig reads a YAML project file on top of DefaultConfig. A missing
// file is not an error, the defaults are returned.
func LoadConfig(configPath string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", configPath, err)
	}

	// root is relative to the file declaring it
	if !filepath.IsAbs(cfg.Root) {
		cfg.Root = filepath.Join(filepath.Dir(configPath), cfg.Root)
	}

	return cfg, nil
}

// path resolves p against the project root.
func (c Config) path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	root, err := filepath.Abs(c.Root)
	if err != nil {
		root = c.Root
	}
	return filepath.Join(root, p)
}

// joinURL joins URL path segments, keeping a trailing slash on the last one.
func joinURL(elem ...string) string {
	joined := path.Join(elem...)
	if len(elem) > 0 && strings.HasSuffix(elem[len(elem)-1], "/") && !strings.HasSuffix(joined, "/") {
		joined += "/"
	}
	return joined
}
