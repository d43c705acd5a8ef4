package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"
	"trendingreads/internal/app"
	"trendingreads/internal/config"
	"trendingreads/internal/domain"
	"trendingreads/internal/pipeline"

	"github.com/spf13/cobra"
)

const defaultConfigFile = "config.json"

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.Printf("FATAL: %v", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgFile string
	root := &cobra.Command{
		Use:           "trendingreads",
		Short:         "Trending reading list aggregator",
		Long:          "Fetches RSS/Atom feeds, Reddit and Hacker News, ranks the articles per category and serves or snapshots the result.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (.json, .yaml); defaults to ./config.json when present")
	load := func() (*config.Config, error) { return loadConfig(cfgFile) }

	root.AddCommand(
		serveCmd(load),
		snapshotCmd(load),
		fetchCmd(load),
		purgeCmd(load),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version number",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "trendingreads %s\n", version)
			},
		},
	)
	return root
}

// loadConfig читает конфигурацию из файла или берет значения по умолчанию.
func loadConfig(path string) (*config.Config, error) {
	cfg := config.New()
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			path = defaultConfigFile
		}
	}
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("could not load config: %w", err)
		}
		cfg = loaded
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

type configLoader func() (*config.Config, error)

func serveCmd(load configLoader) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API backed by the category cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Address = addr
			}
			a, err := app.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			return a.Run()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.address)")
	return cmd
}

func snapshotCmd(load configLoader) *cobra.Command {
	var schedule, output string
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Run the pipeline for every category and write the snapshot document",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if output != "" {
				cfg.App.SnapshotPath = output
			}
			if cfg.App.SnapshotPath == "" {
				return errors.New("snapshot path is empty")
			}
			if schedule == "" {
				schedule = cfg.App.SnapshotSchedule
			}
			if schedule != "" {
				if err := app.ValidateSchedule(schedule); err != nil {
					return err
				}
			}
			a, err := app.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if schedule == "" {
				doc, err := a.Snapshots().Generate(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "snapshot written to %s at %s\n", cfg.App.SnapshotPath, doc.GeneratedAt.Format("2006-01-02 15:04:05Z07:00"))
				for _, category := range cfg.App.Categories {
					fmt.Fprintf(out, "  %-14s %d articles\n", category, len(doc.Categories[category]))
				}
				return nil
			}
			return app.RunSchedule(cmd.Context(), schedule, a.Logger(), func(ctx context.Context) {
				if _, err := a.Snapshots().Generate(ctx); err != nil {
					a.Logger().Error("Scheduled snapshot failed",
						slog.String("component", "scheduler"),
						slog.Any("error", err),
					)
				}
			})
		},
	}
	cmd.Flags().StringVar(&schedule, "schedule", "", "cron expression; keeps running and regenerates on schedule")
	cmd.Flags().StringVarP(&output, "output", "o", "", "snapshot path (overrides app.snapshot_path)")
	return cmd
}

func fetchCmd(load configLoader) *cobra.Command {
	var query string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "fetch <category>",
		Short: "Run one category pipeline and print the ranked list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			cfg.Storage.Driver = config.DriverMemory
			a, err := app.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Aggregator().FetchCategory(cmd.Context(), domain.Category(args[0]))
			if err != nil && len(res.Sources) == 0 {
				return err
			}
			articles := pipeline.FilterBySearch(res.Articles, query)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if encErr := enc.Encode(articles); encErr != nil {
					return encErr
				}
			} else {
				printResult(cmd.OutOrStdout(), res, articles)
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "case-insensitive filter over title, source and description")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print articles as JSON")
	return cmd
}

func purgeCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Remove cache entries written by older schema versions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			a, err := app.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			n, err := a.Reader().Purge(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "purged %d entries\n", n)
			return nil
		},
	}
}

// printResult печатает ранжированный список и исходы источников.
func printResult(w io.Writer, res domain.CategoryResult, articles []domain.Article) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSCORE\tSOURCE\tTITLE")
	for i, a := range articles {
		fmt.Fprintf(tw, "%d\t%.0f\t%s\t%s\n", i+1, a.Score, a.Source, a.Title)
	}
	tw.Flush()

	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tSTATUS\tARTICLES\tDURATION")
	for _, s := range res.Sources {
		status := string(s.Status())
		if s.Err != nil {
			status += ": " + s.Err.Error()
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", s.Source.Name, status, len(s.Articles), s.Duration.Round(time.Millisecond))
	}
	tw.Flush()
}
