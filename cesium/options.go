package cesium

import "strings"

const (
	DefaultBuildRootPath = "node_modules/cesium/Build"
	DefaultBuildPath     = "node_modules/cesium/Build/Cesium/"
	DefaultBaseURL       = "cesium/"
	DefaultOutDir        = "dist"

	// ModuleName is the import specifier of the library.
	ModuleName = "cesium"
	// GlobalName is the global variable Cesium.js defines.
	GlobalName = "Cesium"
	// BaseURLGlobal is the constant Cesium reads to locate its workers and assets.
	BaseURLGlobal = "CESIUM_BASE_URL"
)

// Options configures the plugin. The zero value is usable, every unset field
// falls back to its default.
type Options struct {
	// Bundle Cesium with the application instead of loading Cesium.js as a global
	RebuildCesium bool
	// Serve the minified build tree in development
	DevMinifyCesium bool
	// Directory containing both the Cesium and CesiumUnminified build trees
	CesiumBuildRootPath string
	// Cesium distribution copied into the output of a production build
	CesiumBuildPath string
	// URL segment under which Cesium assets are exposed
	CesiumBaseURL string
	// Public base path of the application, overrides the host base when set.
	// Needed when the host base cannot be read reliably, e.g. with nested
	// client side routes.
	Base string
}

func (o Options) withDefaults() Options {
	if o.CesiumBuildRootPath == "" {
		o.CesiumBuildRootPath = DefaultBuildRootPath
	}
	if o.CesiumBuildPath == "" {
		o.CesiumBuildPath = DefaultBuildPath
	}
	o.CesiumBaseURL = normalizeBaseURL(o.CesiumBaseURL)
	return o
}

// normalizeBaseURL makes sure the base URL ends with a slash.
func normalizeBaseURL(u string) string {
	if u == "" {
		return DefaultBaseURL
	}
	if !strings.HasSuffix(u, "/") {
		return u + "/"
	}
	return u
}
