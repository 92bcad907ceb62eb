// Package simulator progresses orders through the fulfillment stages in
// background goroutines, persisting every transition to the order store so
// clients can poll it.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"order-fulfillment/fulfillment/pool"
	"order-fulfillment/fulfillment/stock"
	"order-fulfillment/fulfillment/store"
	"order-fulfillment/fulfillment/types"
)

// Delays is the simulated latency waited before each stage's side effect.
type Delays struct {
	Reserve       time.Duration `yaml:"reserve"`
	VerifyPayment time.Duration `yaml:"verify_payment"`
	VerifyAddress time.Duration `yaml:"verify_address"`
	Capture       time.Duration `yaml:"capture"`
	Ship          time.Duration `yaml:"ship"`
}

// DefaultDelays returns the stock latencies of the demo.
func DefaultDelays() Delays {
	return Delays{
		Reserve:       750 * time.Millisecond,
		VerifyPayment: 800 * time.Millisecond,
		VerifyAddress: 800 * time.Millisecond,
		Capture:       900 * time.Millisecond,
		Ship:          900 * time.Millisecond,
	}
}

// Options tune a Runner. The zero value uses DefaultDelays, no in-flight cap,
// the default slog logger and the global tracer provider.
type Options struct {
	Delays         *Delays
	Pool           *pool.Pool
	Logger         *slog.Logger
	TracerProvider trace.TracerProvider
}

// Runner accepts order submissions and drives each order through the stage
// table on its own goroutine.
type Runner struct {
	orders    store.OrderStore
	inventory store.InventoryStore
	delays    Delays
	pool      *pool.Pool
	tracker   pool.Tracker
	logger    *slog.Logger
	tracer    trace.Tracer

	mu    sync.Mutex
	group *errgroup.Group

	newID func() string
	now   func() time.Time
}

// New creates a Runner over the given stores.
func New(orders store.OrderStore, inventory store.InventoryStore, opts Options) *Runner {
	if orders == nil || inventory == nil {
		panic("simulator.New: nil store")
	}
	delays := DefaultDelays()
	if opts.Delays != nil {
		delays = *opts.Delays
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tp := opts.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Runner{
		orders:    orders,
		inventory: inventory,
		delays:    delays,
		pool:      opts.Pool,
		logger:    logger.With("component", "simulator"),
		tracer:    tp.Tracer("order-fulfillment/simulator"),
		group:     new(errgroup.Group),
		newID:     uuid.NewString,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Submit validates item, persists a fresh order in the created state and
// starts its progression. It returns as soon as the order is persisted.
func (r *Runner) Submit(ctx context.Context, item string) (string, error) {
	item = types.NormalizeItem(item)
	if item == "" {
		return "", types.ErrInvalidInput
	}

	order := types.NewOrder(r.newID(), item, r.now())
	if err := r.orders.Upsert(ctx, order); err != nil {
		return "", fmt.Errorf("persist order %s: %w", order.OrderID, err)
	}
	r.logger.Info("Order submitted", "orderID", order.OrderID, "item", item)

	bg := context.WithoutCancel(ctx)
	r.mu.Lock()
	r.group.Go(func() error {
		return r.progress(bg, order.OrderID, item)
	})
	r.mu.Unlock()

	return order.OrderID, nil
}

// Wait blocks until every progression started before the call has finished.
// The error is the first of those orders that could not record its own
// failure; a later Wait only reports progressions started after this one.
func (r *Runner) Wait() error {
	r.mu.Lock()
	g := r.group
	r.group = new(errgroup.Group)
	r.mu.Unlock()
	return g.Wait()
}

// InFlight reports how many progressions are currently running.
func (r *Runner) InFlight() int64 {
	return r.tracker.Running()
}

type stage struct {
	name    string
	delay   time.Duration
	state   types.OrderState
	message func(item string) string
	effect  func(ctx context.Context, orderID, item string) error
}

func (r *Runner) stages() []stage {
	fixed := func(msg string) func(string) string {
		return func(string) string { return msg }
	}
	return []stage{
		{
			name:    "reserve_inventory",
			delay:   r.delays.Reserve,
			state:   types.StateInventoryReserved,
			message: func(item string) string { return "Reserved inventory for " + item },
			effect: func(ctx context.Context, _, item string) error {
				return stock.Reserve(ctx, r.inventory, item)
			},
		},
		{name: "verify_payment", delay: r.delays.VerifyPayment, state: types.StatePaymentVerified, message: fixed("Payment verified")},
		{name: "verify_address", delay: r.delays.VerifyAddress, state: types.StateAddressVerified, message: fixed("Address verified")},
		{name: "capture_payment", delay: r.delays.Capture, state: types.StatePaid, message: fixed("Payment processed")},
		{
			name:    "arrange_shipment",
			delay:   r.delays.Ship,
			state:   types.StateShipped,
			message: fixed("Shipment arranged"),
			effect: func(ctx context.Context, orderID, item string) error {
				unreserved, err := stock.ReleaseAndShip(ctx, r.inventory, item)
				if unreserved {
					r.logger.Warn("Shipped without a matching reservation", "orderID", orderID, "item", item)
					trace.SpanFromContext(ctx).SetAttributes(attribute.Bool("stock.unreserved", true))
				}
				return err
			},
		},
	}
}

func (r *Runner) progress(ctx context.Context, orderID, item string) error {
	if err := r.pool.Acquire(ctx); err != nil {
		return r.fail(ctx, orderID, err)
	}
	defer r.pool.Release()

	r.tracker.Inc()
	defer r.tracker.Dec()

	for _, st := range r.stages() {
		if err := r.runStage(ctx, orderID, item, st); err != nil {
			r.logger.Warn("Stage failed", "orderID", orderID, "stage", st.name, "error", err)
			return r.fail(ctx, orderID, err)
		}
	}
	r.logger.Info("Order shipped", "orderID", orderID, "item", item)
	return nil
}

func (r *Runner) runStage(ctx context.Context, orderID, item string, st stage) error {
	ctx, span := r.tracer.Start(ctx, st.name, trace.WithAttributes(
		attribute.String("order.id", orderID),
		attribute.String("order.item", item),
	))
	defer span.End()

	if err := pool.SleepOrDone(ctx, st.delay); err != nil {
		return err
	}
	if st.effect != nil {
		if err := st.effect(ctx, orderID, item); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
	}
	if err := r.mark(ctx, orderID, st.state, st.message(item)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	r.logger.Debug("Stage complete", "orderID", orderID, "stage", st.name, "state", st.state)
	return nil
}

// mark appends a successful transition to the stored order. A vanished order
// is left alone and progression continues.
func (r *Runner) mark(ctx context.Context, orderID string, state types.OrderState, message string) error {
	cur, found, err := r.orders.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if !found {
		r.logger.Warn("Order vanished, transition dropped", "orderID", orderID, "state", state)
		return nil
	}
	if !cur.Advance(state, message, r.now()) {
		r.logger.Warn("Order already terminal, transition dropped", "orderID", orderID, "state", state)
		return nil
	}
	return r.orders.Upsert(ctx, cur)
}

// fail records the terminal failed transition. The returned error is non-nil
// only when the failure itself could not be persisted.
func (r *Runner) fail(ctx context.Context, orderID string, cause error) error {
	cur, found, err := r.orders.Get(ctx, orderID)
	if err != nil {
		return errors.Join(cause, err)
	}
	if !found {
		r.logger.Warn("Order vanished, failure dropped", "orderID", orderID, "error", cause)
		return nil
	}
	if !cur.Fail(cause, r.now()) {
		return nil
	}
	if err := r.orders.Upsert(ctx, cur); err != nil {
		return fmt.Errorf("record failure of order %s: %w", orderID, errors.Join(cause, err))
	}
	return nil
}
