// Package view renders the todo collection into a root element and turns
// submit events into store mutations.
package view

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/starford/auw/internal/dom"
	"github.com/starford/auw/internal/models"
	"github.com/starford/auw/internal/store"
	"github.com/starford/auw/internal/tmpl"
)

var (
	ErrNotElement      = errors.New("view: root must be an element")
	ErrNoTemplate      = errors.New("view: you must set a template before rendering")
	ErrNoListContainer = errors.New("view: page template has no list container")
	ErrNoForm          = errors.New("view: no form in root")
	ErrNoTitleField    = errors.New("view: form has no title field")
)

// TitleField is the name of the form control holding a new todo's title.
const TitleField = "title"

// Option configures a View.
type Option func(*View)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(v *View) {
		if l != nil {
			v.logger = l
		}
	}
}

type handler func(*Event) error

// View owns the root element's content.
//
// Events and view-level mutations run one at a time under the dispatch lock.
// The tree lock guards the root subtree and is taken by renders and readers.
type View struct {
	logger *slog.Logger
	store  *store.Store

	dispatchMu sync.Mutex
	listeners  map[string]handler

	mu        sync.Mutex
	root      *html.Node
	page      *tmpl.Template
	item      *tmpl.Template
	renderErr error
	observers []func(count int)
}

// New returns an uninitialized View rendering st into root and registers
// RenderTodos as the store's change listener. page and item may be nil;
// rendering then fails with ErrNoTemplate.
func New(root *html.Node, page, item *tmpl.Template, st *store.Store, opts ...Option) (*View, error) {
	if root == nil || root.Type != html.ElementNode {
		return nil, ErrNotElement
	}
	v := &View{
		logger:    slog.Default(),
		store:     st,
		listeners: make(map[string]handler),
		root:      root,
		page:      page,
		item:      item,
	}
	for _, opt := range opts {
		opt(v)
	}
	st.OnChange(v.storeChanged)
	return v, nil
}

// SetupEventListeners attaches the submit handler to the root. Events
// dispatched before this call are not handled.
func (v *View) SetupEventListeners() {
	v.dispatchMu.Lock()
	v.listeners[EventSubmit] = v.HandleSubmit
	v.dispatchMu.Unlock()
}

// Active reports whether event listeners are attached.
func (v *View) Active() bool {
	v.dispatchMu.Lock()
	defer v.dispatchMu.Unlock()
	return len(v.listeners) > 0
}

// Dispatch delivers ev to the listener registered for its type and reports
// whether one handled it.
func (v *View) Dispatch(ev *Event) (bool, error) {
	v.dispatchMu.Lock()
	defer v.dispatchMu.Unlock()

	h, ok := v.listeners[ev.Type]
	if !ok {
		return false, nil
	}
	return true, h(ev)
}

// HandleSubmit suppresses the default action, reads the title from the first
// form in the root and adds a new todo with it. It expects the dispatch lock
// to be held, as it is when called through Dispatch.
func (v *View) HandleSubmit(ev *Event) error {
	ev.PreventDefault()

	title, err := v.submittedTitle(ev)
	if err != nil {
		return err
	}
	return v.mutate(func() {
		v.store.Add(models.Todo{Title: title})
	})
}

func (v *View) submittedTitle(ev *Event) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	form := dom.ByTag(v.root, atom.Form)
	if form == nil {
		return "", ErrNoForm
	}
	field := dom.FormField(form, TitleField)
	if field == nil {
		return "", ErrNoTitleField
	}
	if vals, ok := ev.Values[TitleField]; ok && len(vals) > 0 {
		return vals[0], nil
	}
	return dom.FieldValue(field), nil
}

// Add stores todo as one event turn and returns the stored record.
func (v *View) Add(todo models.Todo) (models.Todo, error) {
	v.dispatchMu.Lock()
	defer v.dispatchMu.Unlock()

	var stored models.Todo
	err := v.mutate(func() {
		stored = v.store.Add(todo)
	})
	return stored, err
}

// Remove deletes the todo with the given id as one event turn.
func (v *View) Remove(id int64) error {
	v.dispatchMu.Lock()
	defer v.dispatchMu.Unlock()

	return v.mutate(func() {
		v.store.Remove(id)
	})
}

// mutate runs fn and returns the error of the render it triggered, if any.
func (v *View) mutate(fn func()) error {
	v.mu.Lock()
	v.renderErr = nil
	v.mu.Unlock()

	fn()

	v.mu.Lock()
	defer v.mu.Unlock()
	err := v.renderErr
	v.renderErr = nil
	return err
}

func (v *View) storeChanged() {
	if err := v.RenderTodos(); err != nil {
		v.logger.Error("render todos", slog.String("error", err.Error()))
		v.mu.Lock()
		v.renderErr = err
		v.mu.Unlock()
	}
}

// RenderTodos replaces the root's content with the page template rendered
// against the current count and appends one item per stored record to the
// page's first list.
func (v *View) RenderTodos() error {
	count, err := v.render()
	if err != nil {
		return err
	}

	v.mu.Lock()
	observers := append([]func(int){}, v.observers...)
	v.mu.Unlock()
	for _, fn := range observers {
		fn(count)
	}
	return nil
}

func (v *View) render() (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.page == nil {
		return 0, ErrNoTemplate
	}

	count := v.store.Len()
	rendered := v.page.Render(tmpl.Vars{"count": strconv.Itoa(count)})
	list := dom.ByTag(rendered, atom.Ul)

	dom.RemoveChildren(v.root)
	dom.AppendFragment(v.root, rendered)

	var err error
	v.store.ForEach(func(todo models.Todo) {
		if err != nil {
			return
		}
		if v.item == nil {
			err = ErrNoTemplate
			return
		}
		if list == nil {
			err = ErrNoListContainer
			return
		}
		dom.AppendFragment(list, v.item.Render(tmpl.Vars(todo.Fields())))
	})
	if err != nil {
		return 0, err
	}
	v.logger.Debug("todos rendered", slog.Int("count", count))
	return count, nil
}

// SetTemplates replaces the page and item templates. The root is not
// re-rendered until the next change or RenderTodos call.
func (v *View) SetTemplates(page, item *tmpl.Template) {
	v.mu.Lock()
	v.page = page
	v.item = item
	v.mu.Unlock()
}

// Subscribe registers fn to be called with the item count after every
// successful render.
func (v *View) Subscribe(fn func(count int)) {
	v.mu.Lock()
	v.observers = append(v.observers, fn)
	v.mu.Unlock()
}

// Render writes the root element and its current content to w.
func (v *View) Render(w io.Writer) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := html.Render(w, v.root); err != nil {
		return fmt.Errorf("view: render: %w", err)
	}
	return nil
}

// RenderDocument writes the whole tree the root belongs to.
func (v *View) RenderDocument(w io.Writer) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	top := v.root
	for top.Parent != nil {
		top = top.Parent
	}
	if err := html.Render(w, top); err != nil {
		return fmt.Errorf("view: render document: %w", err)
	}
	return nil
}
