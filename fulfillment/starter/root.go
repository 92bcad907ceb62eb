package main

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"order-fulfillment/fulfillment/config"
	"order-fulfillment/fulfillment/logging"
	"order-fulfillment/fulfillment/tracing"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath  string
	DataDir     string
	StoreDriver string
	Atomicity   string
	LogLevel    string
	UseTemporal bool
	Traces      string

	cfg config.Config
	log *slog.Logger
}

// NewRootCommand creates the root command for the starter CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "starter",
		Short: "Submit, track and serve fulfillment orders",
		Long: `Submit orders for inventory items and follow them through reservation,
payment, address verification, capture and shipment.

Settings come from the built-in defaults, then --config, then the environment
(TEMPORAL_HOST, DATA_DIR, STORE_DRIVER, USE_TEMPORAL, ...), then flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.DataDir, "data-dir", "", "directory holding the tables")
	cmd.PersistentFlags().StringVar(&opts.StoreDriver, "store", "", "store driver (file|sqlite)")
	cmd.PersistentFlags().StringVar(&opts.Atomicity, "atomicity", "", "file store atomicity (none|serialized)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().BoolVar(&opts.UseTemporal, "temporal", false, "use the Temporal backend instead of the simulator")
	cmd.PersistentFlags().StringVar(&opts.Traces, "trace-exporter", "", "span exporter (none|stdout)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewOrderCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewInventoryCommand(opts))
	cmd.AddCommand(NewResetCommand(opts))

	return cmd
}

// load resolves the configuration and applies flags that were set explicitly.
func (o *RootOptions) load(cmd *cobra.Command) error {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("data-dir") {
		cfg.DataDir = o.DataDir
	}
	if flags.Changed("store") {
		cfg.StoreDriver = o.StoreDriver
	}
	if flags.Changed("atomicity") {
		cfg.StoreAtomicity = o.Atomicity
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = o.LogLevel
	}
	if flags.Changed("temporal") {
		cfg.UseTemporal = o.UseTemporal
	}
	if flags.Changed("trace-exporter") {
		cfg.TraceExporter = o.Traces
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	o.cfg = cfg
	o.log = logging.NewWithWriter(cmd.ErrOrStderr(), cfg.LogLevel)
	return nil
}

// startTracing installs the configured tracer provider. Spans go to w. The
// returned func flushes them.
func (o *RootOptions) startTracing(w io.Writer) (func(), error) {
	tp, err := tracing.Init("order-fulfillment", o.cfg.TraceExporter, w, o.log)
	if err != nil {
		return nil, err
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			o.log.Warn("trace flush failed", "err", err)
		}
	}, nil
}
