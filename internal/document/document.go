// Package document loads the host HTML document: the root container the
// view renders into and the page and item templates.
package document

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/net/html"

	"github.com/starford/auw/internal/dom"
	"github.com/starford/auw/internal/tmpl"
)

const (
	RootID         = "todos-app"
	PageTemplateID = "todo-page"
	ItemTemplateID = "todo-item"
)

// ErrNoRoot is returned when the document has no #todos-app element.
var ErrNoRoot = errors.New("document: root element #" + RootID + " not found")

//go:embed index.html
var defaultHTML []byte

// Document is a parsed host document.
type Document struct {
	Node *html.Node
	Root *html.Node
	// Page and Item are nil when the document has no such template.
	Page *tmpl.Template
	Item *tmpl.Template
	// Path is the file the document was read from, empty for the embedded one.
	Path string
}

// Default parses the embedded document.
func Default() (*Document, error) {
	return Parse(bytes.NewReader(defaultHTML))
}

// DefaultHTML returns the embedded document markup.
func DefaultHTML() []byte {
	return bytes.Clone(defaultHTML)
}

// Load parses the document at path, or the embedded one when path is empty.
func Load(path string) (*Document, error) {
	if path == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("document: open: %w", err)
	}
	defer f.Close()

	d, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	d.Path = path
	return d, nil
}

// Parse reads a host document.
func Parse(r io.Reader) (*Document, error) {
	node, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("document: parse: %w", err)
	}
	root := dom.ByID(node, RootID)
	if root == nil {
		return nil, ErrNoRoot
	}
	d := &Document{Node: node, Root: root}
	if d.Page, err = templateByID(node, PageTemplateID); err != nil {
		return nil, err
	}
	if d.Item, err = templateByID(node, ItemTemplateID); err != nil {
		return nil, err
	}
	return d, nil
}

// Templates parses only the templates of the document at path.
func Templates(path string) (page, item *tmpl.Template, err error) {
	d, err := Load(path)
	if err != nil {
		return nil, nil, err
	}
	return d.Page, d.Item, nil
}

func templateByID(doc *html.Node, id string) (*tmpl.Template, error) {
	el := dom.ByID(doc, id)
	if el == nil {
		return nil, nil
	}
	t, err := tmpl.FromElement(el)
	if err != nil {
		return nil, fmt.Errorf("document: #%s: %w", id, err)
	}
	return t, nil
}
