package bundler

import (
	"encoding/json"
	"maps"
	"os"
	"regexp"
	"slices"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

const externalGlobalNamespace = "external-global"

// assetFilter matches the binary asset types subject to the inline limit.
const assetFilter = `\.(png|jpe?g|gif|svg|ico|webp|avif|mp4|webm|ogg|mp3|wav|flac|aac|woff2?|eot|ttf|otf|wasm|glb|gltf|ktx2)$`

// applyUserConfig layers a resolved UserConfig onto esbuild options.
func applyUserConfig(opts *api.BuildOptions, cfg UserConfig) {
	if len(cfg.Define) > 0 {
		if opts.Define == nil {
			opts.Define = map[string]string{}
		}
		maps.Copy(opts.Define, cfg.Define)
	}

	b := cfg.Build
	if b == nil {
		return
	}

	if b.Intro != "" {
		opts.Banner = map[string]string{"js": b.Intro}
	}

	for _, mod := range b.External {
		if _, ok := b.Globals[mod]; ok {
			continue
		}
		opts.External = append(opts.External, mod)
	}

	if len(b.Globals) > 0 {
		opts.Plugins = append(opts.Plugins, ExternalGlobalsPlugin(b.Globals))
	}

	if b.AssetsInlineLimit != nil {
		opts.Plugins = append(opts.Plugins, InlineLimitPlugin(*b.AssetsInlineLimit))
	}
}

// ExternalGlobalsPlugin resolves the given modules to the global variables
// they are mapped to instead of bundling them, so
//
//	import * as Cesium from "cesium"
//
// reads window.Cesium at runtime.
func ExternalGlobalsPlugin(globals map[string]string) api.Plugin {
	modules := slices.Sorted(maps.Keys(globals))
	quoted := make([]string, len(modules))
	for i, mod := range modules {
		quoted[i] = regexp.QuoteMeta(mod)
	}
	filter := "^(" + strings.Join(quoted, "|") + ")$"

	return api.Plugin{
		Name: "external-globals",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: filter}, func(args api.OnResolveArgs) (api.OnResolveResult, error) {
				return api.OnResolveResult{
					Path:      args.Path,
					Namespace: externalGlobalNamespace,
				}, nil
			})
			build.OnLoad(api.OnLoadOptions{Filter: ".*", Namespace: externalGlobalNamespace}, func(args api.OnLoadArgs) (api.OnLoadResult, error) {
				name, err := json.Marshal(globals[args.Path])
				if err != nil {
					return api.OnLoadResult{}, err
				}
				contents := "module.exports = globalThis[" + string(name) + "];"
				return api.OnLoadResult{
					Contents: &contents,
					Loader:   api.LoaderJS,
				}, nil
			})
		},
	}
}

// InlineLimitPlugin loads asset files smaller than limit bytes as data URLs and
// emits everything else as separate files. A limit of 0 never inlines.
func InlineLimitPlugin(limit int) api.Plugin {
	return api.Plugin{
		Name: "assets-inline-limit",
		Setup: func(build api.PluginBuild) {
			build.OnLoad(api.OnLoadOptions{Filter: assetFilter, Namespace: "file"}, func(args api.OnLoadArgs) (api.OnLoadResult, error) {
				data, err := os.ReadFile(args.Path)
				if err != nil {
					return api.OnLoadResult{}, err
				}

				contents := string(data)
				loader := api.LoaderFile
				if limit > 0 && len(data) < limit {
					loader = api.LoaderDataURL
				}

				return api.OnLoadResult{
					Contents: &contents,
					Loader:   loader,
				}, nil
			})
		},
	}
}
