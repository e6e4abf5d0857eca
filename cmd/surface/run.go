package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/surface"
	"github.com/vango-dev/surface/internal/config"
	"github.com/vango-dev/surface/internal/errors"
	"github.com/vango-dev/surface/pkg/metrics"
)

const shutdownTimeout = 5 * time.Second

func runCmd(flags *globalFlags) *cobra.Command {
	var (
		addr       string
		pageURL    string
		reconnect  bool
		autoRescan bool
	)

	cmd := &cobra.Command{
		Use:   "run [page]",
		Short: "Connect a page to its channel server",
		Long: `Load the control page, connect to the update endpoint and keep the
page in sync until interrupted.

A side-port HTTP server exposes the live page:

  GET  /healthz            connection state
  GET  /page               the rendered page
  GET  /channels           bound channels and elements
  GET  /metrics            Prometheus metrics
  POST /emulate/{channel}  apply a JSON value as if the server sent it
  POST /fire               simulate user interaction

Examples:
  surface run panel.html --url https://mixer.local/panel
  surface run https://mixer.local/panel --reconnect
  surface run s3://panels/mixer.html --url https://mixer.local/`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags, firstArg(args))
			if err != nil {
				return err
			}

			// Apply command-line overrides
			if addr != "" {
				cfg.HTTP.Addr = addr
			}
			if pageURL != "" {
				cfg.URL = pageURL
			}
			if cmd.Flags().Changed("reconnect") {
				cfg.Transport.Reconnect = reconnect
			}
			if autoRescan {
				cfg.AutoRescan = true
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runSurface(ctx, cmd, cfg)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Side-port address (default from config, localhost:9090)")
	cmd.Flags().StringVarP(&pageURL, "url", "u", "", "URL the page is served from, used to derive the update endpoint")
	cmd.Flags().BoolVar(&reconnect, "reconnect", false, "Reconnect when the connection is lost")
	cmd.Flags().BoolVar(&autoRescan, "auto-rescan", false, "Bind elements injected by inner-html updates")

	return cmd
}

func runSurface(ctx context.Context, cmd *cobra.Command, cfg *config.Config) error {
	out := cmd.OutOrStdout()
	logger := newLogger(cmd.ErrOrStderr(), cfg.Debug)

	registry := prometheus.NewRegistry()
	metricOpts := []metrics.Option{metrics.WithRegistry(registry)}
	if cfg.Metrics.Namespace != "" {
		metricOpts = append(metricOpts, metrics.WithNamespace(cfg.Metrics.Namespace))
	}
	collector := metrics.New(metricOpts...)

	page, err := loadPage(ctx, cfg, logger)
	if err != nil {
		return err
	}

	s := surface.New(page.Document, surface.Options{
		Debug:      cfg.Debug,
		Logger:     logger,
		Config:     cfg.TransportConfig(),
		Metrics:    collector,
		AutoRescan: cfg.AutoRescan,
	})
	defer s.Close()

	channels, _ := s.Channels()
	success(out, "Loaded %s (%d channels)", page.Source, len(channels))

	endpointBase := cfg.PageURL()
	if endpointBase == "" {
		endpointBase = page.URL
	}
	if endpointBase == "" {
		warn(out, "No page URL; running offline. Set --url to connect.")
	} else if err := s.Start(ctx, endpointBase); err != nil {
		warn(out, "%s", errors.New("S041").Wrap(err).FormatCompact())
	} else {
		success(out, "Connected to %s", endpointBase)
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           newRouter(s, registry, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		info(out, "Side port on http://%s", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return errors.New("S062").WithDetail("Listening on " + cfg.HTTP.Addr).Wrap(err)
		}
		return nil
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-s.Done():
		}
		fmt.Fprintln(out, "\n  Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.Close()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
