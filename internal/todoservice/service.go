// Package todoservice is the operation layer shared by the HTTP API, the
// MCP server and the CLI. Mutations go through the view so each one is a
// single event turn followed by a re-render.
package todoservice

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/auw/internal/apperr"
	"github.com/starford/auw/internal/models"
	"github.com/starford/auw/internal/store"
	"github.com/starford/auw/internal/view"
)

// CreateInput is the payload for creating a todo. Only the presence of a
// title is checked.
type CreateInput struct {
	Title       *string `json:"title"`
	Description string  `json:"description,omitempty"`
	IsChecked   bool    `json:"isChecked,omitempty"`
	Priority    int     `json:"priority,omitempty"`
}

// Validate implements validation.Validatable.
func (in CreateInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.NotNil),
	)
}

// Service coordinates the view and the store.
type Service struct {
	view  *view.View
	store *store.Store
}

// NewService creates a new todo service.
func NewService(v *view.View, st *store.Store) *Service {
	return &Service{view: v, store: st}
}

// CreateTodo validates in and adds a new todo. The id is always assigned by
// the store.
func (s *Service) CreateTodo(_ context.Context, in CreateInput) (models.Todo, error) {
	if err := in.Validate(); err != nil {
		return models.Todo{}, fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	todo, err := s.view.Add(models.Todo{
		Title:       *in.Title,
		Description: in.Description,
		IsChecked:   in.IsChecked,
		Priority:    in.Priority,
	})
	if err != nil {
		// The record is stored; only the re-render failed.
		slog.Warn("render after create failed", slog.Int64("id", todo.ID), slog.String("error", err.Error()))
	}
	return todo, nil
}

// GetTodo returns the todo with the given id.
func (s *Service) GetTodo(_ context.Context, id int64) (models.Todo, error) {
	todo, ok := s.store.Get(id)
	if !ok {
		return models.Todo{}, apperr.ErrNotFound
	}
	return todo, nil
}

// DeleteTodo removes the todo with the given id. Absent ids are not an error.
func (s *Service) DeleteTodo(_ context.Context, id int64) error {
	if err := s.view.Remove(id); err != nil {
		slog.Warn("render after delete failed", slog.Int64("id", id), slog.String("error", err.Error()))
	}
	return nil
}

// ListTodos returns every todo in priority order and the total count.
func (s *Service) ListTodos(_ context.Context) ([]models.Todo, int) {
	items := s.store.AsArray()
	return items, len(items)
}

// RenderTodos writes the current root rendering to w.
func (s *Service) RenderTodos(_ context.Context, w io.Writer) error {
	return s.view.Render(w)
}

// ParseID parses a todo id from its text form.
func ParseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: id must be a positive integer", apperr.ErrInvalidInput)
	}
	return id, nil
}
