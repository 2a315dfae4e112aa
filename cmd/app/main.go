package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/auw/internal"
	"github.com/starford/auw/internal/mcpserver"
	"github.com/starford/auw/internal/todoservice"
	pkgconfig "github.com/starford/auw/pkg/config"
)

var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// openApp assembles the application for one-shot commands. Logs go to
// stderr so stdout stays clean for command output.
func openApp(ctx context.Context, cmd *cli.Command) (*internal.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := internal.NewLogger(os.Stderr, cfg.App.LogLevel)
	slog.SetDefault(logger)
	return internal.Open(ctx, cfg, logger)
}

func closeApp(ctx context.Context, a *internal.App) error {
	if err := a.Close(ctx); err != nil {
		return fmt.Errorf("persist todos: %w", err)
	}
	return nil
}

// closeInto closes a and stores the close error in *err unless an earlier
// error is already there.
func closeInto(ctx context.Context, a *internal.App, err *error) {
	if cerr := closeApp(ctx, a); *err == nil {
		*err = cerr
	}
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func render(ctx context.Context, cmd *cli.Command) (err error) {
	a, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer closeInto(ctx, a, &err)

	if cmd.Bool("document") {
		return a.View.RenderDocument(os.Stdout)
	}
	if err := a.View.Render(os.Stdout); err != nil {
		return err
	}
	_, err = fmt.Fprintln(os.Stdout)
	return err
}

func add(ctx context.Context, cmd *cli.Command) error {
	title := strings.Join(cmd.Args().Slice(), " ")
	if title == "" {
		return fmt.Errorf("add: title is required")
	}
	in := todoservice.CreateInput{
		Title:       &title,
		Description: cmd.String("description"),
		Priority:    int(cmd.Int("priority")),
	}

	a, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}
	todo, err := a.Service.CreateTodo(ctx, in)
	if err != nil {
		closeInto(ctx, a, &err)
		return err
	}
	if err := closeApp(ctx, a); err != nil {
		return err
	}
	fmt.Printf("%d\n", todo.ID)
	return nil
}

func remove(ctx context.Context, cmd *cli.Command) error {
	id, err := todoservice.ParseID(cmd.Args().First())
	if err != nil {
		return fmt.Errorf("rm: %w", err)
	}

	a, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}
	if err := a.Service.DeleteTodo(ctx, id); err != nil {
		closeInto(ctx, a, &err)
		return err
	}
	return closeApp(ctx, a)
}

func list(ctx context.Context, cmd *cli.Command) (err error) {
	a, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer closeInto(ctx, a, &err)

	items, _ := a.Service.ListTodos(ctx)
	for _, t := range items {
		mark := " "
		if t.IsChecked {
			mark = "x"
		}
		fmt.Printf("[%s] %d\t%s\n", mark, t.ID, t.Title)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) (err error) {
	a, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer closeInto(ctx, a, &err)

	return mcpserver.New(a.Service, version).ServeStdio()
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "auw",
		Usage:   "A small to-do list rendered from HTML templates and persisted locally",
		Version: version,
		Action:  serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file (defaults are used when it does not exist)",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the todo page and JSON API over HTTP",
				Action: serve,
			},
			{
				Name:  "render",
				Usage: "Print the rendered todo list",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "document", Usage: "Print the whole host document"},
				},
				Action: render,
			},
			{
				Name:      "add",
				Usage:     "Add a todo and print its id",
				ArgsUsage: "<title...>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "Longer description"},
					&cli.IntFlag{Name: "priority", Aliases: []string{"p"}, Usage: "Priority, higher sorts first"},
				},
				Action: add,
			},
			{
				Name:      "rm",
				Usage:     "Remove a todo by id",
				ArgsUsage: "<id>",
				Action:    remove,
			},
			{
				Name:   "ls",
				Usage:  "List todos, highest priority first",
				Action: list,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the MCP tools over stdio",
				Action: serveMCP,
			},
		},
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
