// Package cesium integrates the Cesium library with the bundler host.
//
// In serve sessions the Cesium build tree is served from disk and
// CESIUM_BASE_URL is defined for the application. In build sessions Cesium is
// either bundled with the application or loaded as the Cesium global from a
// copy of Cesium.js, and its static assets are copied next to the output.
package cesium

import (
	"bytes"
	"encoding/json"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/wolfeidau/cesiumbuild/bundler"
	"github.com/wolfeidau/cesiumbuild/internal/fsutil"
)

var _ bundler.Plugin = (*Plugin)(nil)

// Plugin is the Cesium bundler plugin.
type Plugin struct {
	opts Options
	copy func(src, dst string) error
}

// New returns the plugin configured with opts.
func New(opts Options) *Plugin {
	return &Plugin{
		opts: opts.withDefaults(),
		copy: fsutil.Copy,
	}
}

func (p *Plugin) Name() string {
	return "cesium"
}

// Configure resolves the session state and returns the configuration patch
// for it.
func (p *Plugin) Configure(cfg bundler.UserConfig, env bundler.ConfigEnv) (bundler.Session, bundler.UserConfig) {
	s := p.Resolve(cfg, env)
	return s, s.ConfigPatch()
}

// Resolve derives the session state from the host configuration.
func (p *Plugin) Resolve(cfg bundler.UserConfig, env bundler.ConfigEnv) *Session {
	base := "/"
	switch {
	case p.opts.Base != "":
		base = p.opts.Base
	case cfg.Base != "":
		base = cfg.Base
	}

	outDir := DefaultOutDir
	if cfg.Build != nil && cfg.Build.OutDir != "" {
		outDir = cfg.Build.OutDir
	}

	return &Session{
		ID:          uuid.NewString(),
		OutDir:      outDir,
		Base:        base,
		IsBuild:     env.Command == bundler.CommandBuild,
		RelativeURL: joinURL(base, p.opts.CesiumBaseURL),
		opts:        p.opts,
		copy:        p.copy,
	}
}

// ConfigPatch returns the configuration the session needs from the host.
func (s *Session) ConfigPatch() bundler.UserConfig {
	baseURL := jsonString(s.RelativeURL)

	if !s.IsBuild {
		return bundler.UserConfig{
			Define: map[string]string{
				BaseURLGlobal: baseURL,
			},
		}
	}

	if s.opts.RebuildCesium {
		// workers are large binaries, never inline them
		inlineLimit := 0
		return bundler.UserConfig{
			Build: &bundler.BuildConfig{
				AssetsInlineLimit:     &inlineLimit,
				ChunkSizeWarningLimit: 5000,
				Intro:                 "window." + BaseURLGlobal + " = " + baseURL + ";",
			},
		}
	}

	return bundler.UserConfig{
		Build: &bundler.BuildConfig{
			External: []string{ModuleName},
			Globals: map[string]string{
				ModuleName: GlobalName,
			},
		},
	}
}

// jsonString quotes s the way JSON.stringify does, without escaping HTML
// characters.
func jsonString(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return strings.TrimSuffix(buf.String(), "\n")
}

// joinURL joins URL path segments, keeping a trailing slash on the last one.
func joinURL(elem ...string) string {
	joined := path.Join(elem...)
	if strings.HasSuffix(elem[len(elem)-1], "/") && !strings.HasSuffix(joined, "/") {
		joined += "/"
	}
	return joined
}
