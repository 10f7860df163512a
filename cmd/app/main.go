package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/brewmint/internal"
	pkgconfig "github.com/starford/brewmint/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func generate(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.IsSet("count") {
		cfg.Generator.Count = int(cmd.Int("count"))
	}
	if cmd.IsSet("seed") {
		cfg.Generator.Seed = cmd.Uint("seed")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	return internal.Generate(ctx, internal.WithConfig(cfg))
}

func submit(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.Submit(ctx,
		internal.WithConfig(cfg),
		internal.WithMax(int(cmd.Int("max"))),
		internal.WithFollow(cmd.Bool("follow")),
	)
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Serve(ctx,
		internal.WithConfig(cfg),
		internal.WithAutoSubmit(cmd.Bool("submit")),
	); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.ServeMCP(ctx, internal.WithConfig(cfg))
}

func listTraits(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.ListTraits(ctx, internal.WithConfig(cfg))
}

func computeCID(_ context.Context, cmd *cli.Command) error {
	return internal.ComputeCIDs(os.Stdout, cmd.Bool("raw"), cmd.Args().Slice()...)
}

func main() {
	cmd := &cli.Command{
		Name:  "brewmint",
		Usage: "Generative collection forge: trait compositing, content addressing and chain submission",
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
				Name:   "generate",
				Usage:  "Draw unique trait combinations and write records and images",
				Action: generate,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "count",
						Usage: "Number of items to generate (overrides generator.count)",
					},
					&cli.UintFlag{
						Name:  "seed",
						Usage: "Seed for reproducible runs (overrides generator.seed)",
					},
				},
			},
			{
				Name:   "submit",
				Usage:  "Upload metadata and push items to the configured chain",
				Action: submit,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "max",
						Usage: "Submit at most this many metadata files (0 = all)",
					},
					&cli.BoolFlag{
						Name:  "follow",
						Usage: "Keep running and submit new records as they are written",
					},
				},
			},
			{
				Name:   "serve",
				Usage:  "Serve the read API, content gateway and item events",
				Action: serve,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "submit",
						Usage: "Also submit new records while serving",
					},
				},
			},
			{
				Name:   "mcp",
				Usage:  "Run the MCP server on stdio",
				Action: serveMCP,
			},
			{
				Name:      "cid",
				Usage:     "Print the content identifier of files",
				ArgsUsage: "<file>...",
				Action:    computeCID,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "raw",
						Usage: "Identify the bytes as given, without JSON canonicalization",
					},
				},
			},
			{
				Name:   "traits",
				Usage:  "List trait categories and the number of unique combinations",
				Action: listTraits,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
