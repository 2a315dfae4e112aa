package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/starford/auw/internal/document"
	"github.com/starford/auw/internal/kv"
	"github.com/starford/auw/internal/store"
	"github.com/starford/auw/internal/todoservice"
	"github.com/starford/auw/internal/view"
)

// NewLogger returns the structured JSON logger used by every command.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

// App is the assembled todo application: backend, store, host document and
// view, painted once and listening for events.
type App struct {
	Config   *Config
	Logger   *slog.Logger
	Backend  kv.Backend
	Store    *store.Store
	Document *document.Document
	View     *view.View
	Service  *todoservice.Service
}

// Open restores the store from the configured backend, loads the host
// document and performs the initial paint.
func Open(ctx context.Context, cfg *Config, logger *slog.Logger) (*App, error) {
	if cfg.Storage.Driver == kv.DriverSQLite {
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.Path), 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	backend, err := kv.Open(cfg.Storage.Driver, cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	st, err := store.Restore(ctx, backend, store.WithKey(cfg.Storage.Key), store.WithLogger(logger))
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("restore todos: %w", err)
	}

	a := &App{Config: cfg, Logger: logger, Backend: backend, Store: st}

	a.Document, err = document.Load(cfg.Document.Path)
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("load document: %w", err)
	}

	a.View, err = view.New(a.Document.Root, a.Document.Page, a.Document.Item, st, view.WithLogger(logger))
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("init view: %w", err)
	}
	a.View.SetupEventListeners()
	if err := a.View.RenderTodos(); err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("initial render: %w", err)
	}

	a.Service = todoservice.NewService(a.View, st)
	return a, nil
}

// Close waits for pending persistence, then releases the store and backend.
func (a *App) Close(ctx context.Context) error {
	err := a.Store.Flush(ctx)
	a.Store.Close()
	return errors.Join(err, a.Backend.Close())
}
