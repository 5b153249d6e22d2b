// Package bundler hosts build plugins on top of esbuild. It exposes the
// lifecycle a plugin hooks into: a configuration step that yields a Session
// and a config patch, dev server middleware registration, a build finished
// callback and HTML tag injection.
package bundler

import (
	"context"
	"net/http"
)

// Command is the kind of session the host is running.
type Command string

const (
	CommandServe Command = "serve"
	CommandBuild Command = "build"
)

// ConfigEnv describes the session a plugin is being configured for.
type ConfigEnv struct {
	Command Command
}

// Plugin is the factory side of a plugin. Configure is called exactly once
// per session, before anything else, with the configuration resolved so far.
// The returned patch is merged into that configuration by the host.
type Plugin interface {
	Name() string
	Configure(cfg UserConfig, env ConfigEnv) (Session, UserConfig)
}

// Session holds the hooks of a configured plugin. The host calls
// ConfigureServer only for serve sessions and CloseBundle only after a build
// wrote its output. TransformIndexHTML is called whenever index.html is
// rendered.
type Session interface {
	ConfigureServer(m Middlewares)
	CloseBundle(ctx context.Context)
	TransformIndexHTML() []HTMLTag
}

// Middlewares registers handlers on the dev server. Routes are path prefixes
// which are stripped before the handler sees the request.
type Middlewares interface {
	Use(route string, h http.Handler)
}

// HTMLTag describes an element injected into index.html.
type HTMLTag struct {
	Tag      string
	Attrs    map[string]string
	Children string
}
