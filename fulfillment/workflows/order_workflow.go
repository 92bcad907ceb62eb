package workflows

import (
	"errors"
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"order-fulfillment/fulfillment/types"
)

// StatusQuery is the query name that returns the order's progress record.
const StatusQuery = "status"

// ProgressQuery is an alias of StatusQuery kept for older pollers.
const ProgressQuery = "progress"

// StageInterval is the pause before every stage, visible to pollers.
const StageInterval = time.Second

type step struct {
	activity   string
	withItem   bool
	state      types.OrderState
	message    string
	compensate string
}

func steps(item string) []step {
	return []step{
		{activity: "ReserveStock", withItem: true, state: types.StateInventoryReserved, message: "Reserved inventory for " + item, compensate: "ReleaseStock"},
		{activity: "VerifyPayment", state: types.StatePaymentVerified, message: "Payment verified"},
		{activity: "VerifyAddress", state: types.StateAddressVerified, message: "Address verified"},
		{activity: "CapturePayment", state: types.StatePaid, message: "Payment processed", compensate: "RefundPayment"},
		{activity: "ReleaseAndShip", withItem: true, state: types.StateShipped, message: "Shipment arranged"},
	}
}

// OrderWorkflow progresses one order through reservation, payment, address
// verification, capture and shipment. The workflow ID doubles as the order ID.
// On failure the completed compensable steps are undone in reverse order and
// the failure is returned, so the run closes as failed.
func OrderWorkflow(ctx workflow.Context, item string) (string, error) {
	logger := workflow.GetLogger(ctx)
	orderID := workflow.GetInfo(ctx).WorkflowExecution.ID

	order := types.NewOrder(orderID, item, workflow.Now(ctx))

	retryPolicy := &temporal.RetryPolicy{
		InitialInterval:    1 * time.Second,
		BackoffCoefficient: 2.0,
		MaximumInterval:    30 * time.Second,
		MaximumAttempts:    5,
		NonRetryableErrorTypes: []string{
			string(types.KindInvalidInput),
			string(types.KindItemNotFound),
			string(types.KindOutOfStock),
		},
	}
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy:         retryPolicy,
	})

	current := func() (types.Order, error) {
		return order.Clone(), nil
	}
	for _, name := range []string{StatusQuery, ProgressQuery} {
		if err := workflow.SetQueryHandler(ctx, name, current); err != nil {
			return "", err
		}
	}

	if item == "" {
		order.Fail(types.ErrInvalidInput, workflow.Now(ctx))
		return "", applicationError(types.ErrInvalidInput)
	}

	var undo []string
	for _, s := range steps(item) {
		if err := workflow.Sleep(ctx, StageInterval); err != nil {
			return "", err
		}

		args := []interface{}{orderID}
		if s.withItem {
			args = append(args, item)
		}
		if err := workflow.ExecuteActivity(ctx, s.activity, args...).Get(ctx, nil); err != nil {
			cause := failureCause(err)
			logger.Warn("Order step failed", "orderID", orderID, "activity", s.activity, "error", cause)
			order.Fail(cause, workflow.Now(ctx))
			compensate(ctx, orderID, item, undo)
			return "", applicationError(cause)
		}

		order.Advance(s.state, s.message, workflow.Now(ctx))
		logger.Info("Order step complete", "orderID", orderID, "state", s.state)
		if s.compensate != "" {
			undo = append(undo, s.compensate)
		}
	}

	logger.Info("Workflow completed", "orderID", orderID)
	return fmt.Sprintf("Order %s completed successfully.", orderID), nil
}

// compensate runs the undo activities newest first on a context that survives
// cancellation of the workflow. Failures are logged and skipped.
func compensate(ctx workflow.Context, orderID, item string, undo []string) {
	if len(undo) == 0 {
		return
	}
	logger := workflow.GetLogger(ctx)
	dctx, cancel := workflow.NewDisconnectedContext(ctx)
	defer cancel()

	for i := len(undo) - 1; i >= 0; i-- {
		args := []interface{}{orderID}
		if undo[i] == "ReleaseStock" {
			args = append(args, item)
		}
		if err := workflow.ExecuteActivity(dctx, undo[i], args...).Get(dctx, nil); err != nil {
			logger.Error("Compensation failed", "orderID", orderID, "activity", undo[i], "error", err)
			continue
		}
		logger.Info("Compensation complete", "orderID", orderID, "activity", undo[i])
	}
}

// failureCause recovers the classified error carried by an activity failure.
func failureCause(err error) error {
	var appErr *temporal.ApplicationError
	if !errors.As(err, &appErr) {
		return &types.Error{Kind: types.KindInternal, Msg: err.Error()}
	}
	return &types.Error{Kind: types.ParseKind(appErr.Type()), Msg: appErr.Message()}
}

func applicationError(err error) error {
	return temporal.NewNonRetryableApplicationError(err.Error(), string(types.KindOf(err)), nil)
}
