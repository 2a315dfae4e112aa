package document

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/starford/auw/internal/tmpl"
)

func TestDefault(t *testing.T) {
	d, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if d.Root == nil || d.Page == nil || d.Item == nil {
		t.Fatalf("incomplete document: %+v", d)
	}
	markers := d.Page.Markers()
	if len(markers) != 1 || markers[0] != "count" {
		t.Errorf("page markers = %v", markers)
	}
	if m := d.Item.Markers(); len(m) != 1 || m[0] != "title" {
		t.Errorf("item markers = %v", m)
	}
	if !strings.Contains(d.Page.String(), `name="title"`) {
		t.Error("page template has no title field")
	}
}

func TestParse_NoRoot(t *testing.T) {
	_, err := Parse(strings.NewReader(`<html><body><div id="other"></div></body></html>`))
	if !errors.Is(err, ErrNoRoot) {
		t.Errorf("err = %v, want ErrNoRoot", err)
	}
}

func TestParse_MissingTemplatesAllowed(t *testing.T) {
	d, err := Parse(strings.NewReader(`<div id="todos-app"></div>`))
	if err != nil {
		t.Fatal(err)
	}
	if d.Page != nil || d.Item != nil {
		t.Error("expected nil templates")
	}
}

func TestParse_TemplateIDOnWrongElement(t *testing.T) {
	_, err := Parse(strings.NewReader(`<div id="todos-app"></div><div id="todo-item"></div>`))
	if !errors.Is(err, tmpl.ErrNotTemplate) {
		t.Errorf("err = %v, want ErrNotTemplate", err)
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.html")
	if err := os.WriteFile(path, DefaultHTML(), 0o644); err != nil {
		t.Fatal(err)
	}
	d, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if d.Path != path || d.Root == nil {
		t.Errorf("Load = %+v", d)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.html")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestWatch_ReloadsTemplates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.html")
	if err := os.WriteFile(path, DefaultHTML(), 0o644); err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var items []string
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, logger, func(_, item *tmpl.Template) {
			mu.Lock()
			items = append(items, item.String())
			mu.Unlock()
		})
	}()

	time.Sleep(100 * time.Millisecond)

	changed := strings.Replace(string(DefaultHTML()), "<li>{{title}}</li>", "<li><b>{{title}}</b></li>", 1)
	if err := os.WriteFile(path, []byte(changed), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		mu.Lock()
		n := len(items)
		var last string
		if n > 0 {
			last = items[n-1]
		}
		mu.Unlock()
		if strings.Contains(last, "<b>{{title}}</b>") {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("templates not reloaded, got %v", items)
		}
		time.Sleep(50 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("watcher did not stop")
	}
}
