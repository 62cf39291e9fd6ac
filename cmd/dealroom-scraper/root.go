package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"dealroom-scraper/internal/cache"
	"dealroom-scraper/internal/config"
	"dealroom-scraper/internal/domain"
	"dealroom-scraper/internal/extract"
	"dealroom-scraper/internal/fetch"
	"dealroom-scraper/internal/run"
	"dealroom-scraper/internal/store"
	"dealroom-scraper/internal/telemetry"
)

const defaultConfigPath = "config/settings.yml"

type rootOptions struct {
	configPath string
	verbose    int

	input      string
	output     string
	maxWorkers int
	database   string
}

func newRootCmd() *cobra.Command {
	o := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "dealroom-scraper",
		Short: "Fetch Dealroom company profiles and extract them into JSON records.",
		Long: "Reads one identifier per line (slug, domain or URL) from the input file,\n" +
			"fetches each profile page and writes the extracted records as a JSON array.",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.scrape(cmd)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&o.configPath, "config", defaultConfigPath, "settings file (yaml, json or json5)")
	pf.CountVarP(&o.verbose, "verbose", "v", "increase log verbosity (-v info, -vv debug)")

	f := cmd.Flags()
	f.StringVar(&o.input, "input", "", "identifier list, overrides paths.input_domains")
	f.StringVar(&o.output, "output", "", "output JSON file, overrides paths.output_file")
	f.IntVar(&o.maxWorkers, "max-workers", 0, "concurrent fetches, overrides crawler.concurrency")
	f.StringVar(&o.database, "db", "", "SQLite file to upsert records into, overrides paths.database")

	cmd.AddCommand(newExtractCmd(o), newServeCmd(o), newConfigCmd())
	return cmd
}

// loadConfig reads the settings file and applies command line overrides.
// A missing file is only an error when --config was given explicitly.
func (o *rootOptions) loadConfig(cmd *cobra.Command, log *slog.Logger) (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if errors.Is(err, os.ErrNotExist) && !cmd.Flags().Changed("config") {
		log.Info("no settings file, using defaults", "path", o.configPath)
		cfg, err = config.Defaults(), nil
	}
	if err != nil {
		return cfg, err
	}

	var flags config.Config
	flags.Paths.InputDomains = o.input
	flags.Paths.OutputFile = o.output
	flags.Paths.Database = o.database
	flags.Crawler.Concurrency = o.maxWorkers
	if err := config.Overlay(&cfg, flags); err != nil {
		return cfg, fmt.Errorf("apply flags: %w", err)
	}

	cfg, res := config.NormalizeAndValidate(cfg)
	for _, w := range res.Warnings {
		log.Warn("config", "warning", w)
	}
	return cfg, res.Err()
}

// newFetcher builds the page client, with a Redis page cache when one is
// configured. fallback is used when Redis is off; it may be nil.
func newFetcher(ctx context.Context, cfg config.Config, log *slog.Logger, fallback cache.Store) (*fetch.Client, func()) {
	opts := []fetch.Option{fetch.WithLogger(log)}
	closeFn := func() {}

	pages := fallback
	if cfg.Cache.RedisAddr != "" {
		rc, err := cache.OpenRedis(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
		if err != nil {
			log.Warn("redis unavailable, page cache disabled", "addr", cfg.Cache.RedisAddr, "err", err)
		} else {
			pages = rc
			closeFn = func() { _ = rc.Close() }
		}
	}
	if pages != nil {
		opts = append(opts, fetch.WithCache(pages, cfg.CacheTTL()))
	}

	c := fetch.New(fetch.Config{
		BaseURL:           cfg.Crawler.BaseURL,
		UserAgent:         cfg.HTTP.UserAgent,
		Timeout:           cfg.Timeout(),
		MaxRetries:        cfg.HTTP.MaxRetries,
		Delay:             cfg.SleepBetweenRequests(),
		RequestsPerSecond: cfg.Crawler.RequestsPerSecond,
	}, opts...)
	return c, closeFn
}

func setupTracing(ctx context.Context, cfg config.Config, log *slog.Logger) func() {
	shutdown, err := telemetry.Setup(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPEndpoint)
	if err != nil {
		log.Warn("tracing disabled", "endpoint", cfg.Telemetry.OTLPEndpoint, "err", err)
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			log.Warn("flush traces", "err", err)
		}
	}
}

func (o *rootOptions) scrape(cmd *cobra.Command) error {
	ctx := cmd.Context()
	runID := telemetry.NewRunID()
	log := telemetry.InitSlog(cmd.ErrOrStderr(), o.verbose, runID)

	cfg, err := o.loadConfig(cmd, log)
	if err != nil {
		return err
	}
	defer setupTracing(ctx, cfg, log)()

	ids, err := run.ReadIdentifiers(cfg.Paths.InputDomains)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return fmt.Errorf("%s: %w", cfg.Paths.InputDomains, run.ErrNoIdentifiers)
	}

	client, closeCache := newFetcher(ctx, cfg, log, nil)
	defer closeCache()

	runner := &run.Runner{
		Fetcher:   client,
		Extractor: extract.New(log),
		Workers:   cfg.Crawler.Concurrency,
		Log:       log,
	}

	var db *store.DB
	if cfg.Paths.Database != "" {
		db, err = store.Open(cfg.Paths.Database)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
		runner.OnRecord = func(ctx context.Context, rec domain.CompanyRecord) error {
			return store.UpsertRecord(ctx, db.Pool, runID, rec, time.Now())
		}
	}

	log.Info("run started", "identifiers", len(ids), "workers", cfg.Crawler.Concurrency)
	started := time.Now()
	records := runner.Run(ctx, ids)
	if len(records) == 0 {
		log.Warn("no records produced", "identifiers", len(ids))
	}

	if err := run.WriteRecords(cfg.Paths.OutputFile, records); err != nil {
		return fmt.Errorf("write %s: %w", cfg.Paths.OutputFile, err)
	}
	log.Info("run finished", "records", len(records), "output", cfg.Paths.OutputFile, "elapsed", time.Since(started))

	if db != nil {
		err := store.InsertRun(context.WithoutCancel(ctx), db.Pool, store.Run{
			ID:          runID,
			StartedAt:   started,
			FinishedAt:  time.Now(),
			Identifiers: len(ids),
			Records:     len(records),
			Output:      cfg.Paths.OutputFile,
		})
		if err != nil {
			log.Warn("record run", "err", err)
		}
	}

	return writeJSON(cmd.OutOrStdout(), run.Summary{Records: len(records), Output: cfg.Paths.OutputFile})
}
