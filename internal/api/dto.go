package api

import (
	"github.com/starford/auw/internal/models"
	"github.com/starford/auw/internal/todoservice"
)

// CreateTodoRequest is the request body for creating a todo.
type CreateTodoRequest = todoservice.CreateInput

// Todo is a single todo in responses.
type Todo = models.Todo

// TodoListResponse wraps the todo listing.
type TodoListResponse struct {
	Todos []Todo `json:"todos"`
	Total int    `json:"total"`
}
