package query

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/api/workflowservice/v1"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"

	"order-fulfillment/fulfillment/types"
	"order-fulfillment/fulfillment/workflows"
)

// WorkflowClient is the part of client.Client the Temporal backend uses.
type WorkflowClient interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error)
	DescribeWorkflowExecution(ctx context.Context, workflowID, runID string) (*workflowservice.DescribeWorkflowExecutionResponse, error)
	GetWorkflow(ctx context.Context, workflowID, runID string) client.WorkflowRun
}

// TemporalSource maps the coarse status of an order workflow onto the
// order record. It does not try to reconstruct the stage history.
type TemporalSource struct {
	client WorkflowClient
	now    func() time.Time
}

// NewTemporalSource returns a Source that describes workflows through c.
func NewTemporalSource(c WorkflowClient) *TemporalSource {
	return &TemporalSource{client: c, now: func() time.Time { return time.Now().UTC() }}
}

func (s *TemporalSource) GetOrder(ctx context.Context, orderID string) (types.Order, error) {
	resp, err := s.client.DescribeWorkflowExecution(ctx, orderID, "")
	if err != nil {
		var nf *serviceerror.NotFound
		if errors.As(err, &nf) {
			return types.Order{}, types.ErrNotFound
		}
		return types.Order{}, fmt.Errorf("describe workflow %s: %w", orderID, err)
	}

	order := types.Order{
		OrderID: orderID,
		State:   types.StateCreated,
		Status:  "Workflow running",
		History: []types.HistoryEntry{
			{Timestamp: s.now(), Stage: string(types.StateCreated), Message: "Workflow started", State: types.StateCreated},
		},
	}

	status := resp.GetWorkflowExecutionInfo().GetStatus()
	switch status {
	case enumspb.WORKFLOW_EXECUTION_STATUS_COMPLETED:
		order.State = types.StateShipped
		order.Status = "Completed"
	case enumspb.WORKFLOW_EXECUTION_STATUS_FAILED, enumspb.WORKFLOW_EXECUTION_STATUS_TERMINATED:
		order.State = types.StateFailed
		order.Status = fmt.Sprintf("Failed (%s)", statusName(status))
		order.Error, order.ErrorKind = s.failure(ctx, orderID)
	}
	return order, nil
}

// failure awaits the closed run and extracts its failure message.
func (s *TemporalSource) failure(ctx context.Context, orderID string) (string, types.ErrorKind) {
	err := s.client.GetWorkflow(ctx, orderID, "").Get(ctx, nil)
	if err == nil {
		return "", ""
	}
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Message(), types.ParseKind(appErr.Type())
	}
	return err.Error(), types.KindInternal
}

func statusName(status enumspb.WorkflowExecutionStatus) string {
	name, ok := enumspb.WorkflowExecutionStatus_name[int32(status)]
	if !ok {
		return fmt.Sprint(int32(status))
	}
	return strings.TrimPrefix(name, "WORKFLOW_EXECUTION_STATUS_")
}

// TemporalSubmitter starts an OrderWorkflow per submitted order.
type TemporalSubmitter struct {
	client    WorkflowClient
	taskQueue string
	newID     func() string
}

// NewTemporalSubmitter returns a Submitter that starts workflows on taskQueue.
func NewTemporalSubmitter(c WorkflowClient, taskQueue string) *TemporalSubmitter {
	return &TemporalSubmitter{client: c, taskQueue: taskQueue, newID: uuid.NewString}
}

func (s *TemporalSubmitter) Submit(ctx context.Context, item string) (string, error) {
	item = types.NormalizeItem(item)
	if item == "" {
		return "", types.ErrInvalidInput
	}

	opts := client.StartWorkflowOptions{
		ID:        "order-" + s.newID(),
		TaskQueue: s.taskQueue,
	}
	run, err := s.client.ExecuteWorkflow(ctx, opts, workflows.OrderWorkflow, item)
	if err != nil {
		return "", fmt.Errorf("start workflow %s: %w", opts.ID, err)
	}
	return run.GetID(), nil
}
