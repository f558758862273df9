package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/lickdex/internal"
	"github.com/starford/lickdex/internal/ingest"
	pkgconfig "github.com/starford/lickdex/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := internal.RunMCP(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("mcp server error: %w", err)
	}
	return nil
}

func analyze(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return fmt.Errorf("analyze: tab file argument is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}
	tracks, err := ingest.ParseTracks(cmd.String("tracks"))
	if err != nil {
		return err
	}
	return internal.Analyze(ctx, data, tracks, cmd.Bool("skip-malformed"), os.Stdout)
}

func main() {
	cmd := &cli.Command{
		Name:   "lickdex",
		Usage:  "Index guitar tabs by canonical measure and find shared licks across songs",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API and the inbox watcher",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the catalog as MCP tools over stdio",
				Action: serveMCP,
			},
			{
				Name:      "analyze",
				Usage:     "Print track statistics for a tab file without storing it",
				ArgsUsage: "<file>",
				Action:    analyze,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "tracks",
						Usage: "Comma-separated track indexes (default: all guitar tracks)",
					},
					&cli.BoolFlag{
						Name:  "skip-malformed",
						Usage: "Drop malformed measures instead of failing",
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
