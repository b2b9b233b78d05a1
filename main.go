package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:      "anvilsurface",
		Usage:     "extracts the top surface block of every column from Anvil region files",
		ArgsUsage: "<region file or directory>...",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML config file"},
			&cli.IntFlag{Name: "batch-size", Usage: "chunks decoded concurrently per region"},
			&cli.IntFlag{Name: "regions", Usage: "region files decoded concurrently"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "output file, - for stdout"},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "output format: json or surface"},
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "no progress bar or log output"},
		},
		Action: run,
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

func configFromContext(c *cli.Context) (Config, error) {
	cfg, err := LoadConfig(c.String("config"))
	if err != nil {
		return cfg, err
	}
	if c.IsSet("batch-size") {
		cfg.BatchSize = c.Int("batch-size")
	}
	if c.IsSet("regions") {
		cfg.Regions = c.Int("regions")
	}
	if c.IsSet("output") {
		cfg.Output = c.String("output")
	}
	if c.IsSet("format") {
		cfg.Format = c.String("format")
	}
	if c.IsSet("quiet") {
		cfg.Quiet = c.Bool("quiet")
	}
	return cfg, cfg.Validate()
}

func run(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("need at least one region file or directory", 2)
	}
	cfg, err := configFromContext(c)
	if err != nil {
		return err
	}

	logger := log.New(os.Stderr, "[anvilsurface] ", log.LstdFlags)
	if cfg.Quiet {
		logger.SetOutput(io.Discard)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	world, err := OpenAnvilWorld(ctx, c.Args().Slice(), cfg, logger)
	if err != nil {
		return err
	}
	return writeOutput(world, cfg)
}

func writeOutput(world *AnvilWorld, cfg Config) error {
	if cfg.Output == "" || cfg.Output == "-" {
		return world.Write(os.Stdout, cfg.Format)
	}
	out, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if err = world.Write(out, cfg.Format); err != nil {
		_ = out.Close()
		return fmt.Errorf("writing %s: %w", cfg.Output, err)
	}
	return out.Close()
}
