package assets

type Config struct {
	// Absolute directory esbuild resolves entry points and metafile paths against
	WorkingDir string
	// Entry point glob patterns relative to WorkingDir (e.g., "src/*.ts")
	EntryPoints []string
	// Output directory for built files
	OutputDir string
	// URL prefix under which OutputDir is served (e.g., "/app/assets/")
	PublicPath string
	// Optional path the raw metafile is written to
	MetafilePath string
	// Whether to minify output
	Minify bool
	// Whether to enable source maps
	SourceMap bool
}
