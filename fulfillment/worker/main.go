package main

import (
	"fmt"
	"os"

	"go.temporal.io/sdk/worker"

	"order-fulfillment/fulfillment/activities"
	"order-fulfillment/fulfillment/app"
	"order-fulfillment/fulfillment/config"
	"order-fulfillment/fulfillment/logging"
	"order-fulfillment/fulfillment/workflows"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return err
	}
	log := logging.New(cfg.LogLevel)

	stores, err := app.OpenStores(cfg)
	if err != nil {
		return err
	}
	defer stores.Close()

	c, err := app.DialTemporal(cfg, log)
	if err != nil {
		return err
	}
	defer c.Close()

	identity := "order-worker-" + hostname()
	w := worker.New(c, cfg.TaskQueue, worker.Options{
		Identity:                               identity,
		MaxConcurrentActivityExecutionSize:     100,
		MaxConcurrentWorkflowTaskExecutionSize: 50,
	})

	w.RegisterWorkflow(workflows.OrderWorkflow)

	// Activities are registered by struct so their method names match the
	// names the workflow schedules.
	w.RegisterActivity(&activities.InventoryActivities{Inventory: stores.Inventory})
	w.RegisterActivity(&activities.PaymentActivities{})
	w.RegisterActivity(&activities.AddressActivities{})

	log.Info("worker starting", "task_queue", cfg.TaskQueue, "identity", identity, "store", cfg.StoreDriver)

	if err := w.Run(worker.InterruptCh()); err != nil {
		return fmt.Errorf("unable to start worker: %w", err)
	}
	return nil
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}
