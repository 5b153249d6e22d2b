package commands

import (
	"context"

	"github.com/wolfeidau/cesiumbuild/bundler"
)

// BuildCmd produces the production bundle.
type BuildCmd struct {
	OutDir string      `help:"output directory, overrides build.outDir" env:"CESIUMBUILD_OUT_DIR"`
	Cesium CesiumFlags `embed:"" prefix:"cesium-"`
}

func (c *BuildCmd) Run(ctx context.Context, globals *Globals) error {
	ctx, cleanup := setup(ctx, globals)
	defer cleanup()

	runner, _, err := loadProject(ctx, globals, c.Cesium, c.override)
	if err != nil {
		return err
	}

	return runner.Build(ctx)
}

func (c *BuildCmd) override(cfg *bundler.Config) {
	if c.OutDir == "" {
		return
	}
	if cfg.Build == nil {
		cfg.Build = &bundler.BuildConfig{}
	}
	cfg.Build.OutDir = c.OutDir
}
