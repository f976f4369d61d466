package cli

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/example/bookingwidget/internal/domain/booking"
	"github.com/example/bookingwidget/internal/infrastructure/config"
	"github.com/example/bookingwidget/internal/infrastructure/metrics"
	"github.com/example/bookingwidget/internal/infrastructure/oplog"
	"github.com/example/bookingwidget/internal/infrastructure/postgres"
	"github.com/example/bookingwidget/internal/infrastructure/timekit"
	"github.com/example/bookingwidget/internal/interfaces/web"
)

func newServeCmd() *cobra.Command {
	var migrateUp bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the booking widget",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			log := newLogger(os.Stderr, cfg)

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			var sink oplog.Sink
			if cfg.DatabaseURL != "" {
				pool, err := postgres.Open(ctx, cfg.DatabaseURL)
				if err != nil {
					return err
				}
				defer pool.Close()
				if migrateUp {
					if err := postgres.Migrate(ctx, pool); err != nil {
						return err
					}
				}
				sink = postgres.NewOperatorLogRepo(pool)
			}

			base, err := config.LoadWidgetFile(cfg.WidgetConfigPath)
			if err != nil {
				return err
			}
			apiBase := cfg.TimekitBaseURL
			if base.Timekit.APIBaseURL != "" {
				apiBase = base.Timekit.APIBaseURL
			}
			httpClient := &http.Client{Timeout: 20 * time.Second}

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			newClient := func() booking.SchedulingClient {
				return timekit.New(apiBase, httpClient)
			}

			srv := &web.Server{
				Base:      base,
				NewClient: newClient,
				Cookies:   web.NewVisitorCookies(cfg.CookieHashKey, cfg.CookieBlockKey),
				Log:       log,
				Operator:  oplog.Operator(log, sink),
				Metrics:   metrics.NewWidget(reg),
				Gatherer:  reg,
			}
			h, err := srv.Routes()
			if err != nil {
				return err
			}
			return web.Start(ctx, cfg.HTTPAddr, h, log)
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", true, "create the operator log table on startup when DATABASE_URL is set")
	cmd.Flags().Lookup("migrate").NoOptDefVal = "true"
	return cmd
}

func newLogger(w io.Writer, cfg config.Config) *slog.Logger {
	level := oplog.ParseLevel(cfg.LogLevel)
	if cfg.DevMode {
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	}
	return oplog.NewLogger(w, "bookingwidget", level)
}
