package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/spachava753/imagecrawl/internal/config"
	"github.com/spachava753/imagecrawl/internal/executor"
	"github.com/spachava753/imagecrawl/internal/models"
	"github.com/spachava753/imagecrawl/internal/registry"
)

func main() {
	// Setup context with manual signal handling
	ctx, cancel := context.WithCancel(context.Background())

	// Listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	defer func() {
		signal.Stop(sigChan)
		cancel()
	}()

	go func() {
		sig := <-sigChan
		slog.Info("interrupt received, submitted operations will still finish", "signal", sig)
		cancel()
	}()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		slog.Error("imagecrawl failed", "error", err)
		cancel()
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "imagecrawl",
		Usage: "index a directory tree of images into an object store and a metadata table",
		Commands: []*cli.Command{{
			Name:  "crawl",
			Usage: "crawl the root named in a crawl config",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "config",
					Aliases:  []string{"c"},
					Usage:    "path to crawl.yaml",
					Required: true,
				},
				&cli.StringFlag{
					Name:  "log-level",
					Usage: "debug, info, warn or error (overrides log_level)",
				},
			},
			Action: crawl,
		}, {
			Name:  "transforms",
			Usage: "inspect a transform registry",
			Subcommands: []*cli.Command{{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "list the transforms in a registry",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "registry-path", Usage: "path to a registry JSON file"},
					&cli.StringFlag{Name: "registry-url", Usage: "URL of a registry JSON file"},
				},
				Action: listTransforms,
			}},
		}},
	}
}

func crawl(c *cli.Context) error {
	// The handler is installed before loading so config loading logs at the
	// requested level, then adjusted once the file's log_level is known.
	if err := setLogLevel(logLevelName(c.String("log-level"), "")); err != nil {
		return err
	}

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return fmt.Errorf("loading crawl config: %w", err)
	}
	if err := setLogLevel(logLevelName(c.String("log-level"), cfg.LogLevel)); err != nil {
		return err
	}

	crawler, err := executor.NewCrawlerFromConfig(c.Context, cfg)
	if err != nil {
		return fmt.Errorf("creating crawler: %w", err)
	}

	result, err := crawler.Run(c.Context)
	if result != nil {
		printSummary(result)
	}
	var runErr *executor.RunError
	if errors.As(err, &runErr) {
		return fmt.Errorf("%d operation(s) failed", len(runErr.Errors))
	}
	return err
}

// logLevelName picks the --log-level flag, then IMAGECRAWL_LOG_LEVEL, then the
// config file's level, then info.
func logLevelName(flag, configured string) string {
	for _, name := range []string{flag, os.Getenv(config.EnvPrefix + "_LOG_LEVEL"), configured} {
		if strings.TrimSpace(name) != "" {
			return name
		}
	}
	return "info"
}

func setLogLevel(name string) error {
	level, err := config.ParseLogLevel(name)
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

func printSummary(result *models.CrawlResult) {
	fmt.Printf("\nCrawl: %s (run %s)\n", result.CrawlName, result.RunID)
	if result.Transform != nil {
		fmt.Printf("Transform: %s\n", result.Transform)
	}
	fmt.Printf("Groups found: %d\n", result.GroupsFound)
	fmt.Printf("Groups dropped: %d\n", result.GroupsDropped)
	fmt.Printf("Records upserted: %d\n", result.RecordsUpserted)
	fmt.Printf("Files uploaded: %d\n", result.FilesUploaded)
	if result.FilesSkipped > 0 {
		fmt.Printf("Files skipped by transform: %d\n", result.FilesSkipped)
	}
	for _, e := range result.Errors {
		fmt.Printf("  %s: %s: %s\n", e.Type, e.Source, e.Message)
	}
	fmt.Printf("Duration: %.2fs\n", result.TotalDurationSec)
}

func listTransforms(c *cli.Context) error {
	var ref models.RegistryRef
	if p := c.String("registry-path"); p != "" {
		ref.Path = &p
	}
	if u := c.String("registry-url"); u != "" {
		ref.URL = &u
	}
	if (ref.Path == nil) == (ref.URL == nil) {
		return fmt.Errorf("specify exactly one of --registry-path or --registry-url")
	}

	transforms, err := registry.Load(c.Context, ref)
	if err != nil {
		return err
	}
	sort.Slice(transforms, func(i, j int) bool {
		if transforms[i].Name != transforms[j].Name {
			return transforms[i].Name < transforms[j].Name
		}
		return transforms[i].Version < transforms[j].Version
	})

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tVERSION\tEXECUTABLE\tDESCRIPTION")
	for _, t := range transforms {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.Name, t.Version, t.Executable, t.Description)
	}
	return w.Flush()
}
