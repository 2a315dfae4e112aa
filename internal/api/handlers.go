package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/auw/internal/apperr"
	"github.com/starford/auw/internal/todoservice"
)

// Handler holds the JSON API route handlers.
type Handler struct {
	svc *todoservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *todoservice.Service) *Handler {
	return &Handler{svc: svc}
}

// ListTodos handles GET /api/todos.
func (h *Handler) ListTodos(w http.ResponseWriter, r *http.Request) {
	items, total := h.svc.ListTodos(r.Context())
	writeJSON(w, http.StatusOK, TodoListResponse{Todos: items, Total: total})
}

// GetTodo handles GET /api/todos/{id}.
func (h *Handler) GetTodo(w http.ResponseWriter, r *http.Request) {
	id, err := todoservice.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	todo, err := h.svc.GetTodo(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get todo failed", slog.Int64("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, todo)
}

// CreateTodo handles POST /api/todos.
func (h *Handler) CreateTodo(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req CreateTodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	todo, err := h.svc.CreateTodo(r.Context(), req)
	if err != nil {
		if errors.Is(err, apperr.ErrInvalidInput) {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		} else {
			slog.Error("create todo failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusCreated, todo)
}

// DeleteTodo handles DELETE /api/todos/{id}. Deleting an absent id succeeds.
func (h *Handler) DeleteTodo(w http.ResponseWriter, r *http.Request) {
	id, err := todoservice.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if err := h.svc.DeleteTodo(r.Context(), id); err != nil {
		slog.Error("delete todo failed", slog.Int64("id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
