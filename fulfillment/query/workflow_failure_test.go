package query

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/mocks"
	"go.temporal.io/sdk/testsuite"

	"order-fulfillment/fulfillment/activities"
	"order-fulfillment/fulfillment/store"
	"order-fulfillment/fulfillment/types"
	"order-fulfillment/fulfillment/workflows"
)

// runFailedWorkflow executes OrderWorkflow for an item with no free units and
// returns the error the closed run reports.
func runFailedWorkflow(t *testing.T, item string) error {
	t.Helper()
	inv, err := store.NewFileInventory(filepath.Join(t.TempDir(), "inventory.json"), store.AtomicitySerialized)
	require.NoError(t, err)
	table := store.DemoInventory(nil)
	table.Items["Gadget"] = types.InventoryItem{SKU: "SKU-G"}
	require.NoError(t, inv.Seed(context.Background(), table))

	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(workflows.OrderWorkflow)
	env.RegisterActivity(&activities.InventoryActivities{Inventory: inv})
	env.RegisterActivity(&activities.PaymentActivities{})
	env.RegisterActivity(&activities.AddressActivities{})

	env.ExecuteWorkflow(workflows.OrderWorkflow, item)
	require.True(t, env.IsWorkflowCompleted())
	wfErr := env.GetWorkflowError()
	require.Error(t, wfErr)
	return wfErr
}

func TestTemporalSource_WorkflowFailureKeepsLiteralMessage(t *testing.T) {
	tests := []struct {
		item     string
		wantMsg  string
		wantKind types.ErrorKind
	}{
		{item: "Gadget", wantMsg: "Out of stock", wantKind: types.KindOutOfStock},
		{item: "Gizmo", wantMsg: "Item Gizmo not found", wantKind: types.KindItemNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.item, func(t *testing.T) {
			wfErr := runFailedWorkflow(t, tt.item)

			run := &mocks.WorkflowRun{}
			run.On("Get", mock.Anything, mock.Anything).Return(wfErr)
			c := &mocks.Client{}
			c.On("DescribeWorkflowExecution", mock.Anything, "order-1", "").
				Return(describe(enumspb.WORKFLOW_EXECUTION_STATUS_FAILED), nil)
			c.On("GetWorkflow", mock.Anything, "order-1", "").Return(run)

			got, err := newTemporalSource(c).GetOrder(context.Background(), "order-1")
			require.NoError(t, err)

			assert.Equal(t, types.StateFailed, got.State)
			assert.Equal(t, "Failed (FAILED)", got.Status)
			assert.Equal(t, tt.wantMsg, got.Error)
			assert.Equal(t, tt.wantKind, got.ErrorKind)
		})
	}
}
