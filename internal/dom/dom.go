// Package dom provides the small set of tree operations auw needs on top of
// golang.org/x/net/html: lookups, deep cloning, and text-leaf traversal.
package dom

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// NewFragment returns an empty node usable as a document fragment: a
// parentless container whose children are moved around as a unit.
func NewFragment() *html.Node {
	return &html.Node{Type: html.DocumentNode}
}

// Attr returns the value of the named attribute on n.
func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets (or adds) the named attribute on n.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// Find returns the first node under root (root excluded) in document order
// for which match returns true.
func Find(root *html.Node, match func(*html.Node) bool) *html.Node {
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if match(c) {
			return c
		}
		if found := Find(c, match); found != nil {
			return found
		}
	}
	return nil
}

// ByID returns the first element under root with the given id attribute.
func ByID(root *html.Node, id string) *html.Node {
	return Find(root, func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return false
		}
		v, ok := Attr(n, "id")
		return ok && v == id
	})
}

// ByTag returns the first element under root with the given tag.
func ByTag(root *html.Node, tag atom.Atom) *html.Node {
	return Find(root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == tag
	})
}

// FormField returns the first element under form whose name attribute is name.
func FormField(form *html.Node, name string) *html.Node {
	return Find(form, func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return false
		}
		switch n.DataAtom {
		case atom.Input, atom.Textarea, atom.Select, atom.Button:
		default:
			return false
		}
		v, ok := Attr(n, "name")
		return ok && v == name
	})
}

// FieldValue returns the current value of a form control.
func FieldValue(n *html.Node) string {
	if n.DataAtom == atom.Textarea {
		return TextContent(n)
	}
	v, _ := Attr(n, "value")
	return v
}

// TextContent concatenates every text leaf under n.
func TextContent(n *html.Node) string {
	var b strings.Builder
	WalkText(n, func(t *html.Node) {
		b.WriteString(t.Data)
	})
	return b.String()
}

// WalkText calls fn for every text leaf under n (n included), in document
// order. fn must not change the tree structure.
func WalkText(n *html.Node, fn func(*html.Node)) {
	if n.Type == html.TextNode {
		fn(n)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		WalkText(c, fn)
	}
}

// TextLeaves returns every text leaf under n as a snapshot slice, so callers
// can mutate the tree afterwards without invalidating the traversal.
func TextLeaves(n *html.Node) []*html.Node {
	var out []*html.Node
	WalkText(n, func(t *html.Node) {
		out = append(out, t)
	})
	return out
}

// Elements returns the element children of n (text and comment children excluded).
func Elements(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, c)
		}
	}
	return out
}

// Clone returns a deep copy of n detached from any parent.
func Clone(n *html.Node) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
	}
	if len(n.Attr) > 0 {
		c.Attr = make([]html.Attribute, len(n.Attr))
		copy(c.Attr, n.Attr)
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.AppendChild(Clone(child))
	}
	return c
}

// RemoveChildren detaches every child of n.
func RemoveChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; c = n.FirstChild {
		n.RemoveChild(c)
	}
}

// AppendFragment moves every child of frag under parent, leaving frag empty.
func AppendFragment(parent, frag *html.Node) {
	for c := frag.FirstChild; c != nil; c = frag.FirstChild {
		frag.RemoveChild(c)
		parent.AppendChild(c)
	}
}
