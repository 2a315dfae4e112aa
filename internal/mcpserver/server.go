// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the todo list over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/auw/internal/apperr"
	"github.com/starford/auw/internal/store"
	"github.com/starford/auw/internal/todoservice"
)

// SchemaURI is the resource URI of the persisted-state JSON schema.
const SchemaURI = "auw://todo-schema"

// Server wraps the MCP server with the todo tools.
type Server struct {
	mcp *server.MCPServer
	svc *todoservice.Service
}

// New creates a new MCP server with all todo tools registered.
func New(svc *todoservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"auw",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("add_todo",
		mcp.WithDescription("Add a todo to the list. Returns the stored todo with its assigned id."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Title of the todo")),
		mcp.WithString("description", mcp.Description("Optional longer description")),
		mcp.WithNumber("priority", mcp.Description("Optional priority; higher sorts first")),
	), s.addTodo)

	s.mcp.AddTool(mcp.NewTool("remove_todo",
		mcp.WithDescription("Remove the todo with the given id. Removing an unknown id is not an error."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Id of the todo to remove")),
	), s.removeTodo)

	s.mcp.AddTool(mcp.NewTool("list_todos",
		mcp.WithDescription("List all todos, highest priority first."),
	), s.listTodos)

	s.mcp.AddTool(mcp.NewTool("render_todos",
		mcp.WithDescription("Return the current HTML rendering of the todo list."),
	), s.renderTodos)

	s.mcp.AddResource(
		mcp.NewResource(SchemaURI, "Todo Storage Schema",
			mcp.WithResourceDescription("JSON schema of the persisted todo collection."),
			mcp.WithMIMEType("application/schema+json"),
		),
		s.readSchemaResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) addTodo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	in := todoservice.CreateInput{Title: &title}
	if d, dErr := req.RequireString("description"); dErr == nil {
		in.Description = d
	}
	if p, pErr := req.RequireFloat("priority"); pErr == nil {
		in.Priority = int(p)
	}

	todo, err := s.svc.CreateTodo(ctx, in)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(todo, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) removeTodo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireFloat("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := todoservice.ParseID(fmt.Sprintf("%.0f", raw))
	if err != nil || float64(id) != raw {
		return mcp.NewToolResultError("id must be a positive integer"), nil
	}
	if _, getErr := s.svc.GetTodo(ctx, id); errors.Is(getErr, apperr.ErrNotFound) {
		_ = s.svc.DeleteTodo(ctx, id)
		return mcp.NewToolResultText(fmt.Sprintf("no todo with id %d", id)), nil
	}
	if err := s.svc.DeleteTodo(ctx, id); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("removed: %d", id)), nil
}

func (s *Server) listTodos(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, total := s.svc.ListTodos(ctx)
	if total == 0 {
		return mcp.NewToolResultText("no todos"), nil
	}
	lines := make([]string, 0, len(items))
	for _, t := range items {
		mark := " "
		if t.IsChecked {
			mark = "x"
		}
		lines = append(lines, fmt.Sprintf("[%s] %d: %s", mark, t.ID, t.Title))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) renderTodos(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var b strings.Builder
	if err := s.svc.RenderTodos(ctx, &b); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) readSchemaResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      SchemaURI,
			MIMEType: "application/schema+json",
			Text:     store.PayloadSchema,
		},
	}, nil
}
