package todoservice

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/starford/auw/internal/apperr"
	"github.com/starford/auw/internal/document"
	"github.com/starford/auw/internal/kv"
	"github.com/starford/auw/internal/store"
	"github.com/starford/auw/internal/testutil"
	"github.com/starford/auw/internal/view"
)

func testService(t *testing.T) (*Service, *store.Store, kv.Backend) {
	t.Helper()
	backend := testutil.SQLiteBackend(t)
	st, err := store.Restore(context.Background(), backend)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(st.Close)

	doc, err := document.Default()
	if err != nil {
		t.Fatal(err)
	}
	v, err := view.New(doc.Root, doc.Page, doc.Item, st)
	if err != nil {
		t.Fatal(err)
	}
	return NewService(v, st), st, backend
}

func ptr(s string) *string { return &s }

func TestCreateTodo(t *testing.T) {
	svc, st, backend := testService(t)
	ctx := context.Background()

	todo, err := svc.CreateTodo(ctx, CreateInput{Title: ptr("Buy milk"), Priority: 1})
	if err != nil {
		t.Fatal(err)
	}
	if todo.ID != 1 || todo.Title != "Buy milk" {
		t.Errorf("todo = %+v", todo)
	}
	if err := st.Flush(ctx); err != nil {
		t.Fatal(err)
	}
	if got := testutil.Item(t, backend, store.DefaultKey); got != `[{"id":1,"title":"Buy milk","priority":1}]` {
		t.Errorf("persisted = %s", got)
	}
}

func TestCreateTodo_TitleRequired(t *testing.T) {
	svc, _, _ := testService(t)
	_, err := svc.CreateTodo(context.Background(), CreateInput{Description: "x"})
	if !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestGetAndDeleteTodo(t *testing.T) {
	svc, _, _ := testService(t)
	ctx := context.Background()

	created, _ := svc.CreateTodo(ctx, CreateInput{Title: ptr("a")})
	if got, err := svc.GetTodo(ctx, created.ID); err != nil || got != created {
		t.Fatalf("GetTodo = %+v, %v", got, err)
	}
	if err := svc.DeleteTodo(ctx, created.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.GetTodo(ctx, created.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if err := svc.DeleteTodo(ctx, created.ID); err != nil {
		t.Errorf("deleting absent id: %v", err)
	}
}

func TestRenderTodos(t *testing.T) {
	svc, _, _ := testService(t)
	ctx := context.Background()
	_, _ = svc.CreateTodo(ctx, CreateInput{Title: ptr("a")})
	_, _ = svc.CreateTodo(ctx, CreateInput{Title: ptr("b")})

	var b strings.Builder
	if err := svc.RenderTodos(ctx, &b); err != nil {
		t.Fatal(err)
	}
	out := b.String()
	if strings.Count(out, "<li>") != 2 || !strings.Contains(out, `<span class="count">2</span>`) {
		t.Errorf("render = %s", out)
	}
}

func TestParseID(t *testing.T) {
	if id, err := ParseID(" 12 "); err != nil || id != 12 {
		t.Errorf("ParseID(12) = %d, %v", id, err)
	}
	for _, raw := range []string{"", "0", "-3", "x", "1.5"} {
		if _, err := ParseID(raw); !errors.Is(err, apperr.ErrInvalidInput) {
			t.Errorf("ParseID(%q) err = %v", raw, err)
		}
	}
}
