package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"order-fulfillment/fulfillment/app"
	"order-fulfillment/fulfillment/query"
	"order-fulfillment/fulfillment/store"
	"order-fulfillment/fulfillment/types"
)

// OrderOptions holds flags for the order command.
type OrderOptions struct {
	*RootOptions
	Poll    time.Duration
	Timeout time.Duration
}

// NewOrderCommand creates the order command.
func NewOrderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OrderOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "order <item>",
		Short: "Submit an order and follow it to completion",
		Long: `Submit an order for one unit of <item> and print every stage transition
until the order is shipped or failed.

Example:
  starter order "Wireless Mouse"
  starter order "Mechanical Keyboard" --poll 100ms`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrder(cmd.Context(), opts, args[0], cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().DurationVar(&opts.Poll, "poll", 250*time.Millisecond, "status poll interval")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 2*time.Minute, "give up waiting after this long")

	return cmd
}

func runOrder(ctx context.Context, opts *OrderOptions, item string, out, errOut io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	flush, err := opts.startTracing(errOut)
	if err != nil {
		return err
	}
	defer flush()

	stores, err := app.OpenStores(opts.cfg)
	if err != nil {
		return err
	}
	defer stores.Close()

	backend, err := app.NewBackend(opts.cfg, stores, opts.log)
	if err != nil {
		return err
	}
	defer backend.Close()

	id, err := backend.Submitter.Submit(ctx, item)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Order %s submitted\n", id)

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	order, err := follow(ctx, backend.Source, id, opts.Poll, out)
	if err != nil {
		return err
	}
	if order.State == types.StateFailed {
		return fmt.Errorf("order %s failed: %s", id, order.Error)
	}
	return nil
}

// follow polls src until the order is terminal, printing each new history
// entry once.
func follow(ctx context.Context, src query.Source, id string, every time.Duration, out io.Writer) (types.Order, error) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	printed := 0
	for {
		order, err := src.GetOrder(ctx, id)
		if err != nil {
			return types.Order{}, err
		}
		for _, h := range order.History[min(printed, len(order.History)):] {
			fmt.Fprintf(out, "%s  %-18s %s\n", h.Timestamp.Format(time.RFC3339), h.State, h.Message)
		}
		printed = len(order.History)
		if order.State.Terminal() {
			return order, nil
		}

		select {
		case <-ctx.Done():
			return order, ctx.Err()
		case <-ticker.C:
		}
	}
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status <order-id>",
		Short: "Print an order record as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stores, err := app.OpenStores(rootOpts.cfg)
			if err != nil {
				return err
			}
			defer stores.Close()

			backend, err := app.NewBackend(rootOpts.cfg, stores, rootOpts.log)
			if err != nil {
				return err
			}
			defer backend.Close()

			order, err := backend.Source.GetOrder(cmdContext(cmd), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), order)
		},
	}
}

// NewInventoryCommand creates the inventory command.
func NewInventoryCommand(rootOpts *RootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "inventory",
		Short: "List stock levels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stores, err := app.OpenStores(rootOpts.cfg)
			if err != nil {
				return err
			}
			defer stores.Close()

			items, err := stores.Inventory.Get(cmdContext(cmd))
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"items": items})
			}
			return writeInventory(cmd.OutOrStdout(), items)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw items map")

	return cmd
}

func writeInventory(out io.Writer, items map[string]types.InventoryItem) error {
	names := make([]string, 0, len(items))
	for name := range items {
		names = append(names, name)
	}
	sort.Strings(names)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ITEM\tSKU\tAVAILABLE\tRESERVED\tFREE\tLOCATION")
	for _, name := range names {
		it := items[name]
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n", name, it.SKU, it.Available, it.Reserved, it.Free(), it.Location)
	}
	return tw.Flush()
}

// NewResetCommand creates the reset command.
func NewResetCommand(rootOpts *RootOptions) *cobra.Command {
	var overrides []string

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Restore the demo inventory and clear all orders",
		Long: `Restore the demo inventory and clear all orders.

Stock levels can be overridden per item, either in the config file's
"stock" section or with --stock name=available/reserved.

Example:
  starter reset
  starter reset --stock "Mechanical Keyboard=150/150"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			levels := map[string]store.StockLevel{}
			for name, l := range rootOpts.cfg.Stock {
				levels[name] = l
			}
			for _, o := range overrides {
				name, l, err := parseStockLevel(o)
				if err != nil {
					return err
				}
				levels[name] = l
			}

			stores, err := app.OpenStores(rootOpts.cfg)
			if err != nil {
				return err
			}
			defer stores.Close()

			if err := stores.Reset(cmdContext(cmd), levels); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Tables reset in %s\n", rootOpts.cfg.DataDir)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&overrides, "stock", nil, "override stock as name=available/reserved (repeatable)")

	return cmd
}

// parseStockLevel parses "name=available/reserved".
func parseStockLevel(s string) (string, store.StockLevel, error) {
	name, counts, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", store.StockLevel{}, fmt.Errorf("invalid stock override %q: want name=available/reserved", s)
	}
	var l store.StockLevel
	if _, err := fmt.Sscanf(counts, "%d/%d", &l.Available, &l.Reserved); err != nil {
		return "", store.StockLevel{}, fmt.Errorf("invalid stock override %q: %w", s, err)
	}
	if l.Available < 0 || l.Reserved < 0 {
		return "", store.StockLevel{}, fmt.Errorf("invalid stock override %q: counts must not be negative", s)
	}
	return types.NormalizeItem(name), l, nil
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
