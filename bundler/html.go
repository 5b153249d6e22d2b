package bundler

import (
	"bytes"
	"errors"
	"fmt"
	"maps"
	"slices"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// InjectTags parses an HTML document, prepends head tags to <head> in order
// and appends body tags to <body>.
func InjectTags(src []byte, head, body []HTMLTag) ([]byte, error) {
	doc, err := html.Parse(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	// the parser always synthesizes <head> and <body>
	headNode := findElement(doc, atom.Head)
	bodyNode := findElement(doc, atom.Body)
	if headNode == nil || bodyNode == nil {
		return nil, errors.New("html document has no head or body")
	}

	first := headNode.FirstChild
	for _, tag := range head {
		headNode.InsertBefore(tag.node(), first)
	}
	for _, tag := range body {
		bodyNode.AppendChild(tag.node())
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return nil, fmt.Errorf("failed to render html: %w", err)
	}
	return buf.Bytes(), nil
}

func (t HTMLTag) node() *html.Node {
	n := &html.Node{
		Type:     html.ElementNode,
		Data:     t.Tag,
		DataAtom: atom.Lookup([]byte(t.Tag)),
	}
	for _, key := range slices.Sorted(maps.Keys(t.Attrs)) {
		n.Attr = append(n.Attr, html.Attribute{Key: key, Val: t.Attrs[key]})
	}
	if t.Children != "" {
		n.AppendChild(&html.Node{Type: html.TextNode, Data: t.Children})
	}
	return n
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}
