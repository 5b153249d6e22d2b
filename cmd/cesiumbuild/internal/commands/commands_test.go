package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/require"

	"github.com/wolfeidau/cesiumbuild/bundler"
	"github.com/wolfeidau/cesiumbuild/cesium"
)

type testCLI struct {
	Dev   DevCmd   `cmd:""`
	Build BuildCmd `cmd:""`
}

func parse(t *testing.T, args ...string) (*testCLI, string) {
	t.Helper()
	var cli testCLI
	parser, err := kong.New(&cli, kong.Vars(Vars()), kong.Exit(func(int) { t.Fatal("unexpected exit") }))
	require.NoError(t, err)

	ctx, err := parser.Parse(args)
	require.NoError(t, err)
	return &cli, ctx.Command()
}

func TestCesiumFlags_defaults(t *testing.T) {
	cli, command := parse(t, "build")
	require.Equal(t, "build", command)

	require.Equal(t, cesium.Options{
		CesiumBuildRootPath: cesium.DefaultBuildRootPath,
		CesiumBuildPath:     cesium.DefaultBuildPath,
		CesiumBaseURL:       cesium.DefaultBaseURL,
	}, cli.Build.Cesium.Options())
}

func TestCesiumFlags_parse(t *testing.T) {
	cli, _ := parse(t, "dev",
		"--cesium-rebuild",
		"--cesium-dev-minify",
		"--cesium-base-url=lib",
		"--cesium-base=/app/",
		"--listen=127.0.0.1:4000",
		"--cors-origins=https://a.example,https://b.example",
	)

	opts := cli.Dev.Cesium.Options()
	require.True(t, opts.RebuildCesium)
	require.True(t, opts.DevMinifyCesium)
	require.Equal(t, "lib", opts.CesiumBaseURL)
	require.Equal(t, "/app/", opts.Base)

	cfg := bundler.DefaultConfig()
	cli.Dev.override(&cfg)
	require.Equal(t, "127.0.0.1:4000", cfg.Server.Addr)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
}

func TestBuildCmd_override(t *testing.T) {
	cfg := bundler.DefaultConfig()

	(&BuildCmd{}).override(&cfg)
	require.Nil(t, cfg.Build)

	(&BuildCmd{OutDir: "www"}).override(&cfg)
	require.Equal(t, "www", cfg.Build.OutDir)
}

func TestLoadProject(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "cesiumbuild.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("base: /maps/\nbuild:\n  outDir: out\n"), 0o600))

	runner, cfg, err := loadProject(t.Context(), &Globals{ConfigPath: configPath}, CesiumFlags{}, (&BuildCmd{OutDir: "www"}).override)
	require.NoError(t, err)
	require.NotNil(t, runner)
	require.Equal(t, "/maps/", cfg.Base)
	require.Equal(t, "www", cfg.Build.OutDir)
	require.Equal(t, dir, cfg.Root)
}

func TestLoadProject_invalidConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "cesiumbuild.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("base: [oops"), 0o600))

	_, _, err := loadProject(t.Context(), &Globals{ConfigPath: configPath}, CesiumFlags{}, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to load project config")
}
