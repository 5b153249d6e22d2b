package main

import (
	"context"
	"maps"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/wolfeidau/cesiumbuild/cmd/cesiumbuild/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Debug   bool   `help:"Enable debug mode." env:"CESIUMBUILD_DEBUG"`
		Tracing bool   `help:"Export traces and metrics over OTLP." env:"CESIUMBUILD_TRACING"`
		Config  string `help:"Project configuration file." default:"cesiumbuild.yaml" type:"path" env:"CESIUMBUILD_CONFIG"`
		Version kong.VersionFlag

		Dev   commands.DevCmd   `cmd:"" help:"Start the dev server"`
		Build commands.BuildCmd `cmd:"" help:"Build for production"`
	}
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	vars := kong.Vars{
		"version": version,
	}
	maps.Copy(vars, commands.Vars())

	cmd := kong.Parse(&cli,
		kong.Name("cesiumbuild"),
		kong.Description("Bundle web applications using the Cesium library."),
		vars,
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{
		Debug:      cli.Debug,
		Tracing:    cli.Tracing,
		ConfigPath: cli.Config,
		Version:    version,
	})
	cmd.FatalIfErrorf(err)
}
