package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aretw0/clarify/internal/cli"
	httpAdapter "github.com/aretw0/clarify/pkg/adapters/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Serves the start/resume API, session listing, and a server-sent event
stream of session changes. Metrics are served on /metrics, or on a separate
listener when --metrics-addr is set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp(cmd, true)
		if err != nil {
			return err
		}
		defer app.Close()

		addr := app.Config.Server.Addr
		if cmd.Flags().Changed("addr") {
			addr, _ = cmd.Flags().GetString("addr")
		}
		metricsAddr := app.Config.Server.MetricsAddr
		if cmd.Flags().Changed("metrics-addr") {
			metricsAddr, _ = cmd.Flags().GetString("metrics-addr")
		}

		metrics := promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{})
		handlerOpts := []httpAdapter.Option{
			httpAdapter.WithLogger(app.Logger),
			httpAdapter.WithStreams(app.Streams),
		}
		if metricsAddr == "" {
			handlerOpts = append(handlerOpts, httpAdapter.WithMetricsHandler(metrics))
		}
		handler, err := httpAdapter.NewHandler(app.Service, handlerOpts...)
		if err != nil {
			return fmt.Errorf("failed to build API handler: %w", err)
		}

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		g, ctx := errgroup.WithContext(sigCtx)
		serve(ctx, g, app, "API", &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second})
		if metricsAddr != "" {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics)
			serve(ctx, g, app, "Metrics", &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second})
		}

		err = g.Wait()
		if sig := sigCtx.Signal(); sig != nil {
			app.Logger.Info("Server stopped", "signal", sig.String())
		}
		return err
	},
}

// serve runs srv until ctx is done, then shuts it down gracefully.
func serve(ctx context.Context, g *errgroup.Group, app *cli.App, name string, srv *http.Server) {
	g.Go(func() error {
		app.Logger.Info(name+" server listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s server: %w", name, err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
			return fmt.Errorf("graceful shutdown of %s server did not complete in %v: %w", name, shutdownTimeout, err)
		}
		return nil
	})
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", ":8080", "Address of the API server")
	serveCmd.Flags().String("metrics-addr", "", "Separate address for /metrics")
}
