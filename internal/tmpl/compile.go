// Package tmpl implements placeholder substitution over inert HTML fragments.
//
// Markers have the form {{field}} and may only appear in text content;
// attributes are never rewritten.
package tmpl

import (
	"regexp"

	"golang.org/x/net/html"

	"github.com/starford/auw/internal/dom"
)

var markerRe = regexp.MustCompile(`\{{2}([^}]+)\}{2}`)

// Context resolves marker names to display text.
type Context interface {
	Lookup(name string) (string, bool)
}

// Vars is a map-backed Context.
type Vars map[string]string

// Lookup implements Context.
func (v Vars) Lookup(name string) (string, bool) {
	s, ok := v[name]
	return s, ok
}

// With returns a copy of v extended with the given values.
func (v Vars) With(extra map[string]string) Vars {
	out := make(Vars, len(v)+len(extra))
	for k, s := range v {
		out[k] = s
	}
	for k, s := range extra {
		out[k] = s
	}
	return out
}

type change struct {
	target *html.Node
	text   string
}

// Compile substitutes markers in every text leaf under each top-level element
// child of fragment and returns fragment. Unknown fields resolve to the empty
// string. Nodes are never added or removed.
//
// All replacements are computed before any leaf is written.
func Compile(fragment *html.Node, ctx Context) *html.Node {
	var changes []change
	for _, child := range dom.Elements(fragment) {
		for _, leaf := range dom.TextLeaves(child) {
			if !markerRe.MatchString(leaf.Data) {
				continue
			}
			changes = append(changes, change{target: leaf, text: substitute(leaf.Data, ctx)})
		}
	}

	for _, c := range changes {
		c.target.Data = c.text
	}
	return fragment
}

func substitute(s string, ctx Context) string {
	return markerRe.ReplaceAllStringFunc(s, func(m string) string {
		name := markerRe.FindStringSubmatch(m)[1]
		if ctx == nil {
			return ""
		}
		v, _ := ctx.Lookup(name)
		return v
	})
}
