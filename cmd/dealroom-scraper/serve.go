package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"dealroom-scraper/internal/cache"
	"dealroom-scraper/internal/extract"
	"dealroom-scraper/internal/httpapi"
	"dealroom-scraper/internal/store"
	"dealroom-scraper/internal/telemetry"
)

func newServeCmd(o *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve [--addr host:port]",
		Short: "Serve fetch and extract over HTTP.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			runID := telemetry.NewRunID()
			log := telemetry.InitSlog(cmd.ErrOrStderr(), o.verbose, runID)

			cfg, err := o.loadConfig(cmd, log)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}
			defer setupTracing(ctx, cfg, log)()

			client, closeCache := newFetcher(ctx, cfg, log, cache.NewMemory())
			defer closeCache()

			deps := httpapi.Deps{
				Fetcher:   client,
				Extractor: extract.New(log),
				RunID:     runID,
				Log:       log,
			}
			if cfg.Paths.Database != "" {
				db, err := store.Open(cfg.Paths.Database)
				if err != nil {
					return err
				}
				defer db.Close()
				deps.DB = db.Pool
			}

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}
			srv := &http.Server{
				Handler:           httpapi.NewRouter(deps),
				ReadHeaderTimeout: 5 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Serve(ln) }()
			log.Warn("listening", "addr", "http://"+ln.Addr().String(), "db", cfg.Paths.Database)

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			log.Warn("shutting down")
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: server.addr)")
	return cmd
}
