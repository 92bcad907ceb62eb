package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"

	"order-fulfillment/fulfillment/api"
	"order-fulfillment/fulfillment/app"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the order API",
		Long: `Serve POST /api/orders, GET /api/orders/{id} and GET /api/inventory.

Example:
  starter serve --addr :8080
  USE_TEMPORAL=1 starter serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default from HTTP_ADDR)")

	return cmd
}

func runServe(parent context.Context, opts *ServeOptions, cmd *cobra.Command) error {
	cfg, log := opts.cfg, opts.log
	if cmd.Flags().Changed("addr") {
		cfg.HTTPAddr = opts.Addr
	}

	flush, err := opts.startTracing(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer flush()

	ctx, cancel := withSignals(parent)
	defer cancel()

	stores, err := app.OpenStores(cfg)
	if err != nil {
		return err
	}
	defer stores.Close()

	backend, err := app.NewBackend(cfg, stores, log)
	if err != nil {
		return err
	}

	handler := api.NewHandler(log, backend.Submitter, backend.Source, stores.Inventory)
	r := chi.NewRouter()
	r.Mount("/", handler.Routes())
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("http listening", "addr", cfg.HTTPAddr, "temporal", cfg.UseTemporal, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", "err", err)
			cancel()
		}
	}()
	fmt.Fprintf(cmd.OutOrStdout(), "Serving on %s. Press Ctrl-C to stop.\n", cfg.HTTPAddr)

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
	if err := backend.Close(); err != nil {
		log.Error("backend close", "err", err)
	}
	log.Info("starter shutdown complete")
	return nil
}

// withSignals returns a context cancelled on SIGINT or SIGTERM.
func withSignals(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}
