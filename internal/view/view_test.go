package view

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/starford/auw/internal/dom"
	"github.com/starford/auw/internal/kv"
	"github.com/starford/auw/internal/models"
	"github.com/starford/auw/internal/store"
	"github.com/starford/auw/internal/tmpl"
)

const pageMarkup = `<section><h1>{{count}} todos</h1><form method="post"><input name="title" value=""></form><ul></ul></section>`
const itemMarkup = `<li>{{title}}</li>`

func newStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Restore(context.Background(), kv.NewMemory())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(s.Close)
	return s
}

func newRoot() *html.Node {
	return &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div,
		Attr: []html.Attribute{{Key: "id", Val: "todos-app"}}}
}

func newView(t *testing.T, st *store.Store, page, item string) *View {
	t.Helper()
	var p, i *tmpl.Template
	if page != "" {
		p = tmpl.MustParse(page)
	}
	if item != "" {
		i = tmpl.MustParse(item)
	}
	v, err := New(newRoot(), p, i, st)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return v
}

func all(root *html.Node, tag atom.Atom) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.DataAtom == tag {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(root)
	return out
}

func TestNew_RejectsNonElement(t *testing.T) {
	st := newStore(t)
	text := &html.Node{Type: html.TextNode, Data: "x"}
	if _, err := New(text, nil, nil, st); !errors.Is(err, ErrNotElement) {
		t.Errorf("err = %v, want ErrNotElement", err)
	}
	if _, err := New(nil, nil, nil, st); !errors.Is(err, ErrNotElement) {
		t.Errorf("nil root err = %v, want ErrNotElement", err)
	}
}

func TestSubmit_BuyMilk(t *testing.T) {
	st := newStore(t)
	if st.Len() != 0 {
		t.Fatalf("Len = %d, want 0", st.Len())
	}
	v := newView(t, st, pageMarkup, itemMarkup)
	v.SetupEventListeners()
	if err := v.RenderTodos(); err != nil {
		t.Fatalf("RenderTodos: %v", err)
	}

	ev := NewSubmit(url.Values{"title": {"Buy milk"}})
	handled, err := v.Dispatch(ev)
	if err != nil || !handled {
		t.Fatalf("Dispatch = %v, %v", handled, err)
	}
	if !ev.DefaultPrevented() {
		t.Error("default action not prevented")
	}
	if st.Len() != 1 {
		t.Fatalf("Len = %d, want 1", st.Len())
	}

	items := all(v.root, atom.Li)
	if len(items) != 1 || dom.TextContent(items[0]) != "Buy milk" {
		t.Fatalf("items = %d", len(items))
	}
	if h := dom.TextContent(dom.ByTag(v.root, atom.H1)); h != "1 todos" {
		t.Errorf("count display = %q", h)
	}
}

func TestSubmit_ReadsFieldValue(t *testing.T) {
	st := newStore(t)
	v := newView(t, st, pageMarkup, itemMarkup)
	v.SetupEventListeners()
	if err := v.RenderTodos(); err != nil {
		t.Fatal(err)
	}
	dom.SetAttr(dom.FormField(dom.ByTag(v.root, atom.Form), "title"), "value", "typed")

	if _, err := v.Dispatch(NewSubmit(nil)); err != nil {
		t.Fatal(err)
	}
	got := st.AsArray()
	if len(got) != 1 || got[0].Title != "typed" {
		t.Errorf("stored = %+v", got)
	}
}

func TestDispatch_BeforeSetupNotHandled(t *testing.T) {
	st := newStore(t)
	v := newView(t, st, pageMarkup, itemMarkup)
	if err := v.RenderTodos(); err != nil {
		t.Fatal(err)
	}
	if v.Active() {
		t.Error("view active before SetupEventListeners")
	}
	handled, err := v.Dispatch(NewSubmit(url.Values{"title": {"x"}}))
	if handled || err != nil {
		t.Errorf("Dispatch = %v, %v", handled, err)
	}
	if st.Len() != 0 {
		t.Errorf("Len = %d, want 0", st.Len())
	}
}

func TestDispatch_UnknownEventType(t *testing.T) {
	v := newView(t, newStore(t), pageMarkup, itemMarkup)
	v.SetupEventListeners()
	if handled, _ := v.Dispatch(&Event{Type: "click"}); handled {
		t.Error("click should not be handled")
	}
}

func TestSubmit_NoForm(t *testing.T) {
	v := newView(t, newStore(t), `<section><ul></ul></section>`, itemMarkup)
	v.SetupEventListeners()
	if err := v.RenderTodos(); err != nil {
		t.Fatal(err)
	}
	if _, err := v.Dispatch(NewSubmit(nil)); !errors.Is(err, ErrNoForm) {
		t.Errorf("err = %v, want ErrNoForm", err)
	}
}

func TestSubmit_NoTitleField(t *testing.T) {
	v := newView(t, newStore(t), `<form><input name="other"></form><ul></ul>`, itemMarkup)
	v.SetupEventListeners()
	if err := v.RenderTodos(); err != nil {
		t.Fatal(err)
	}
	if _, err := v.Dispatch(NewSubmit(nil)); !errors.Is(err, ErrNoTitleField) {
		t.Errorf("err = %v, want ErrNoTitleField", err)
	}
}

func TestRender_MissingItemTemplate(t *testing.T) {
	st := newStore(t)
	v := newView(t, st, pageMarkup, "")

	if err := v.RenderTodos(); err != nil {
		t.Fatalf("empty store should render without item template: %v", err)
	}

	st.OnChange(nil)
	st.Add(models.Todo{Title: "a"})
	if err := v.RenderTodos(); !errors.Is(err, ErrNoTemplate) {
		t.Fatalf("err = %v, want ErrNoTemplate", err)
	}
	// The page was swapped in before the item render failed.
	if h := dom.TextContent(dom.ByTag(v.root, atom.H1)); h != "1 todos" {
		t.Errorf("count display = %q", h)
	}
}

func TestSubmit_RenderErrorReturned(t *testing.T) {
	st := newStore(t)
	v := newView(t, st, pageMarkup, "")
	v.SetupEventListeners()
	if err := v.RenderTodos(); err != nil {
		t.Fatal(err)
	}
	if _, err := v.Dispatch(NewSubmit(url.Values{"title": {"a"}})); !errors.Is(err, ErrNoTemplate) {
		t.Errorf("err = %v, want ErrNoTemplate", err)
	}
	if st.Len() != 1 {
		t.Errorf("Len = %d, want 1", st.Len())
	}
}

func TestRender_NoListContainer(t *testing.T) {
	st := newStore(t)
	v := newView(t, st, `<h1>{{count}}</h1>`, itemMarkup)
	if _, err := v.Add(models.Todo{Title: "a"}); !errors.Is(err, ErrNoListContainer) {
		t.Errorf("err = %v, want ErrNoListContainer", err)
	}
}

func TestRender_FullReplacement(t *testing.T) {
	st := newStore(t)
	v := newView(t, st, pageMarkup, itemMarkup)
	for _, title := range []string{"a", "b", "c"} {
		if _, err := v.Add(models.Todo{Title: title}); err != nil {
			t.Fatal(err)
		}
	}
	if n := len(all(v.root, atom.Section)); n != 1 {
		t.Errorf("sections = %d, want 1", n)
	}
	if n := len(all(v.root, atom.Li)); n != 3 {
		t.Errorf("items = %d, want 3", n)
	}

	first := st.AsArray()[0]
	if err := v.Remove(first.ID); err != nil {
		t.Fatal(err)
	}
	items := all(v.root, atom.Li)
	if len(items) != 2 || dom.TextContent(items[0]) != "b" {
		t.Errorf("after remove: %d items", len(items))
	}
}

func TestRender_ItemsInIDOrder(t *testing.T) {
	st := newStore(t)
	st.Add(models.Todo{ID: 9, Title: "nine"})
	st.Add(models.Todo{ID: 2, Title: "two", Priority: 1})
	v := newView(t, st, pageMarkup, itemMarkup)
	if err := v.RenderTodos(); err != nil {
		t.Fatal(err)
	}
	items := all(v.root, atom.Li)
	if dom.TextContent(items[0]) != "two" || dom.TextContent(items[1]) != "nine" {
		t.Errorf("unexpected order")
	}
}

func TestSubscribe(t *testing.T) {
	v := newView(t, newStore(t), pageMarkup, itemMarkup)
	var counts []int
	v.Subscribe(func(n int) { counts = append(counts, n) })

	if _, err := v.Add(models.Todo{Title: "a"}); err != nil {
		t.Fatal(err)
	}
	if _, err := v.Add(models.Todo{Title: "b"}); err != nil {
		t.Fatal(err)
	}
	if len(counts) != 2 || counts[1] != 2 {
		t.Errorf("counts = %v", counts)
	}
}

func TestSetTemplates(t *testing.T) {
	v := newView(t, newStore(t), pageMarkup, itemMarkup)
	v.SetTemplates(tmpl.MustParse(`<p>{{count}} left</p><ul></ul>`), tmpl.MustParse(itemMarkup))
	if err := v.RenderTodos(); err != nil {
		t.Fatal(err)
	}
	var b strings.Builder
	if err := v.Render(&b); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(b.String(), "<p>0 left</p>") {
		t.Errorf("render = %q", b.String())
	}
}

func TestRenderDocument(t *testing.T) {
	doc, err := html.Parse(strings.NewReader(`<html><body><main id="todos-app"></main></body></html>`))
	if err != nil {
		t.Fatal(err)
	}
	v, err := New(dom.ByID(doc, "todos-app"), tmpl.MustParse(pageMarkup), tmpl.MustParse(itemMarkup), newStore(t))
	if err != nil {
		t.Fatal(err)
	}
	if err := v.RenderTodos(); err != nil {
		t.Fatal(err)
	}
	var b strings.Builder
	if err := v.RenderDocument(&b); err != nil {
		t.Fatal(err)
	}
	s := b.String()
	if !strings.HasPrefix(s, "<html>") || !strings.Contains(s, "<h1>0 todos</h1>") {
		t.Errorf("document = %q", s)
	}
}
