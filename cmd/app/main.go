package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/ansuz/internal"
	"github.com/starford/ansuz/internal/docservice"
	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/integrity"
	"github.com/starford/ansuz/internal/mcpserver"
	"github.com/starford/ansuz/internal/report"
	"github.com/starford/ansuz/internal/storage"
	pkgconfig "github.com/starford/ansuz/pkg/config"
)

// errInvalid marks a completed check run that found issues, so main can exit
// non-zero without logging a spurious error.
var errInvalid = errors.New("documentation tree is not structurally valid")

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		if err := pkgconfig.Load(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	if docs := cmd.String("docs"); docs != "" {
		cfg.Docs.Path = docs
	}
	return cfg, nil
}

func runServe(ctx context.Context, cmd *cli.Command) error {
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

// runCheck performs a one-shot analysis and renders the report to stdout.
// No database is involved; this is the CI entry point.
func runCheck(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	store, err := storage.NewFS(cfg.Docs.Path, cfg.Docs.Extensions, cfg.Docs.Ignore)
	if err != nil {
		return err
	}

	res, err := integrity.Analyze(ctx, store, cfg.EngineConfig())
	if err != nil {
		return err
	}

	report.Render(os.Stdout, res.Report)
	if !res.Report.IsValid() {
		return errInvalid
	}
	return nil
}

// runMCP serves the integrity tools over MCP stdio.
func runMCP(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	store, err := storage.NewFS(cfg.Docs.Path, cfg.Docs.Extensions, cfg.Docs.Ignore)
	if err != nil {
		return err
	}
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.App.LogLevel}))
	svc := docservice.NewService(store, db, cfg.EngineConfig(), logger)

	return mcpserver.New(svc).ServeStdio()
}

func main() {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to config file",
			DefaultText: "config/config.yaml",
			Value:       "config/config.yaml",
			Sources:     cli.EnvVars("APP_CONFIG_FILE"),
		},
		&cli.StringFlag{
			Name:  "docs",
			Usage: "Path to the documentation tree (overrides config)",
		},
	}

	cmd := &cli.Command{
		Name:   "ansuz",
		Usage:  "Documentation integrity checker: reference graph validation, cycle and orphan detection, template and citation checks for Markdown trees",
		Action: runServe,
		Flags:  flags,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the integrity service with HTTP API, watcher, and SSE events",
				Action: runServe,
				Flags:  flags,
			},
			{
				Name:   "check",
				Usage:  "Run a one-shot analysis, print the report, and exit non-zero on issues",
				Action: runCheck,
				Flags:  flags,
			},
			{
				Name:   "mcp",
				Usage:  "Serve integrity tools over MCP stdio",
				Action: runMCP,
				Flags:  flags,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, errInvalid) {
			os.Exit(1)
		}
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
