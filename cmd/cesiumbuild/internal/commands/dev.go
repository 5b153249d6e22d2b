package commands

import (
	"context"

	"github.com/wolfeidau/cesiumbuild/bundler"
)

// DevCmd runs the dev server until interrupted.
type DevCmd struct {
	Listen      string      `help:"dev server listen address, overrides server.addr" env:"CESIUMBUILD_LISTEN"`
	CORSOrigins []string    `help:"origins allowed to make cross origin requests" env:"CESIUMBUILD_CORS_ORIGINS"`
	Cesium      CesiumFlags `embed:"" prefix:"cesium-"`
}

func (c *DevCmd) Run(ctx context.Context, globals *Globals) error {
	ctx, cleanup := setup(ctx, globals)
	defer cleanup()

	runner, cfg, err := loadProject(ctx, globals, c.Cesium, c.override)
	if err != nil {
		return err
	}

	return runner.Serve(ctx, cfg.Server.Addr)
}

func (c *DevCmd) override(cfg *bundler.Config) {
	if c.Listen != "" {
		cfg.Server.Addr = c.Listen
	}
	if len(c.CORSOrigins) > 0 {
		cfg.Server.CORSOrigins = c.CORSOrigins
	}
}
