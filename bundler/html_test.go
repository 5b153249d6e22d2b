package bundler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInjectTags(t *testing.T) {
	src := []byte(`<!DOCTYPE html><html><head><title>viewer</title></head><body><div id="app"></div></body></html>`)

	out, err := InjectTags(src,
		[]HTMLTag{
			{Tag: "link", Attrs: map[string]string{"rel": "stylesheet", "href": "/cesium/Widgets/widgets.css"}},
			{Tag: "script", Attrs: map[string]string{"src": "/cesium/Cesium.js"}},
		},
		[]HTMLTag{
			{Tag: "script", Attrs: map[string]string{"type": "module", "src": "/assets/main.js"}},
		},
	)
	require.NoError(t, err)

	page := string(out)
	require.True(t, strings.HasPrefix(page, "<!DOCTYPE html>"))
	require.Equal(t,
		`<!DOCTYPE html><html><head><link href="/cesium/Widgets/widgets.css" rel="stylesheet"/><script src="/cesium/Cesium.js"></script><title>viewer</title></head>`+
			`<body><div id="app"></div><script src="/assets/main.js" type="module"></script></body></html>`,
		page)
}

func TestInjectTags_fragment(t *testing.T) {
	out, err := InjectTags([]byte(`<div id="app"></div>`),
		[]HTMLTag{{Tag: "style", Children: "body{margin:0}"}},
		nil,
	)
	require.NoError(t, err)
	require.Equal(t, `<html><head><style>body{margin:0}</style></head><body><div id="app"></div></body></html>`, string(out))
}
