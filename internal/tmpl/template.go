package tmpl

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/starford/auw/internal/dom"
)

// ErrNotTemplate is returned when a node handed to FromElement is not a <template>.
var ErrNotTemplate = errors.New("tmpl: not a template element")

// Template is an inert fragment. Its content is never modified; every render
// works on a fresh clone so the markers stay reusable.
type Template struct {
	content *html.Node
}

// FromElement builds a Template from a parsed <template> element. The
// element's children are copied; later changes to el do not affect the Template.
func FromElement(el *html.Node) (*Template, error) {
	if el == nil || el.Type != html.ElementNode || el.DataAtom != atom.Template {
		return nil, ErrNotTemplate
	}
	content := dom.NewFragment()
	for c := el.FirstChild; c != nil; c = c.NextSibling {
		content.AppendChild(dom.Clone(c))
	}
	return &Template{content: content}, nil
}

// Parse builds a Template from markup, parsed in <body> context.
func Parse(markup string) (*Template, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(markup), body)
	if err != nil {
		return nil, fmt.Errorf("tmpl: parse: %w", err)
	}
	content := dom.NewFragment()
	for _, n := range nodes {
		content.AppendChild(n)
	}
	return &Template{content: content}, nil
}

// MustParse is like Parse but panics on error.
func MustParse(markup string) *Template {
	t, err := Parse(markup)
	if err != nil {
		panic(err)
	}
	return t
}

// Clone returns a deep copy of the template content as a fragment.
func (t *Template) Clone() *html.Node {
	return dom.Clone(t.content)
}

// Render clones the content and compiles it against ctx.
func (t *Template) Render(ctx Context) *html.Node {
	return Compile(t.Clone(), ctx)
}

// Markers returns the distinct field names referenced by the template, in
// order of first appearance.
func (t *Template) Markers() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, leaf := range dom.TextLeaves(t.content) {
		for _, m := range markerRe.FindAllStringSubmatch(leaf.Data, -1) {
			if _, ok := seen[m[1]]; ok {
				continue
			}
			seen[m[1]] = struct{}{}
			out = append(out, m[1])
		}
	}
	return out
}

// String serializes the template content.
func (t *Template) String() string {
	var b strings.Builder
	for c := t.content.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&b, c)
	}
	return b.String()
}
