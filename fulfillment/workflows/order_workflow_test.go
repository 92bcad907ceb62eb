package workflows

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/converter"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"order-fulfillment/fulfillment/activities"
	"order-fulfillment/fulfillment/store"
	"order-fulfillment/fulfillment/types"
)

type OrderWorkflowSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite

	env       *testsuite.TestWorkflowEnvironment
	inventory *store.FileInventory
}

func TestOrderWorkflowSuite(t *testing.T) {
	suite.Run(t, new(OrderWorkflowSuite))
}

func (s *OrderWorkflowSuite) SetupTest() {
	inv, err := store.NewFileInventory(filepath.Join(s.T().TempDir(), "inventory.json"), store.AtomicitySerialized)
	s.Require().NoError(err)
	table := store.DemoInventory(nil)
	table.Items["Widget"] = types.InventoryItem{SKU: "SKU-W", Available: 5}
	table.Items["Gadget"] = types.InventoryItem{SKU: "SKU-G"}
	s.Require().NoError(inv.Seed(context.Background(), table))
	s.inventory = inv

	s.env = s.NewTestWorkflowEnvironment()
	s.env.SetStartWorkflowOptions(client.StartWorkflowOptions{ID: "order-test"})
	s.env.RegisterWorkflow(OrderWorkflow)
	s.env.RegisterActivity(&activities.InventoryActivities{Inventory: inv})
	s.env.RegisterActivity(&activities.PaymentActivities{})
	s.env.RegisterActivity(&activities.AddressActivities{})
}

func (s *OrderWorkflowSuite) AfterTest(_, _ string) {
	s.env.AssertExpectations(s.T())
}

func (s *OrderWorkflowSuite) item(name string) types.InventoryItem {
	items, err := s.inventory.Get(context.Background())
	s.Require().NoError(err)
	return items[name]
}

func (s *OrderWorkflowSuite) status() types.Order {
	val, err := s.env.QueryWorkflow(StatusQuery)
	s.Require().NoError(err)
	var order types.Order
	s.Require().NoError(val.Get(&order))
	return order
}

func (s *OrderWorkflowSuite) Test_Ships() {
	s.env.ExecuteWorkflow(OrderWorkflow, "Widget")

	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())

	var result string
	s.NoError(s.env.GetWorkflowResult(&result))
	s.Equal("Order order-test completed successfully.", result)

	order := s.status()
	s.Equal("order-test", order.OrderID)
	s.Equal(types.StateShipped, order.State)
	s.Equal("Shipment arranged", order.Status)
	s.Len(order.History, 6)
	s.Equal("Reserved inventory for Widget", order.History[1].Message)

	val, err := s.env.QueryWorkflow(ProgressQuery)
	s.Require().NoError(err)
	var progress types.Order
	s.Require().NoError(val.Get(&progress))
	s.Equal(order, progress)

	w := s.item("Widget")
	s.Equal(4, w.Available)
	s.Equal(0, w.Reserved)
}

func (s *OrderWorkflowSuite) Test_ProgressVisibleMidway() {
	var mid types.Order
	s.env.RegisterDelayedCallback(func() {
		mid = s.status()
	}, StageInterval+StageInterval/2)

	s.env.ExecuteWorkflow(OrderWorkflow, "Widget")
	s.NoError(s.env.GetWorkflowError())

	s.Equal(types.StateInventoryReserved, mid.State)
	s.Len(mid.History, 2)
}

func (s *OrderWorkflowSuite) Test_OutOfStock() {
	s.env.ExecuteWorkflow(OrderWorkflow, "Gadget")

	s.True(s.env.IsWorkflowCompleted())
	err := s.env.GetWorkflowError()
	s.Require().Error(err)
	var appErr *temporal.ApplicationError
	s.Require().True(errors.As(err, &appErr))
	s.Equal(string(types.KindOutOfStock), appErr.Type())

	order := s.status()
	s.Equal(types.StateFailed, order.State)
	s.Equal("Out of stock", order.Error)
	s.Equal("Failed: Out of stock", order.Status)
	s.Equal(types.KindOutOfStock, order.ErrorKind)
	s.Len(order.History, 2)

	g := s.item("Gadget")
	s.Equal(0, g.Available)
	s.Equal(0, g.Reserved)
}

func (s *OrderWorkflowSuite) Test_ShipmentFailureCompensates() {
	s.env.OnActivity("ReleaseAndShip", mock.Anything, "order-test", "Widget").
		Return(temporal.NewNonRetryableApplicationError("carrier unavailable", "carrier", nil)).Once()

	var undone []string
	s.env.SetOnActivityCompletedListener(func(info *activity.Info, _ converter.EncodedValue, err error) {
		if err == nil && (info.ActivityType.Name == "RefundPayment" || info.ActivityType.Name == "ReleaseStock") {
			undone = append(undone, info.ActivityType.Name)
		}
	})

	s.env.ExecuteWorkflow(OrderWorkflow, "Widget")

	s.True(s.env.IsWorkflowCompleted())
	s.Error(s.env.GetWorkflowError())
	s.Equal([]string{"RefundPayment", "ReleaseStock"}, undone)

	order := s.status()
	s.Equal(types.StateFailed, order.State)
	s.Equal(types.KindInternal, order.ErrorKind)
	s.Contains(order.Error, "carrier unavailable")
	s.Len(order.History, 6)

	w := s.item("Widget")
	s.Equal(5, w.Available)
	s.Equal(0, w.Reserved)
}

func (s *OrderWorkflowSuite) Test_EmptyItem() {
	s.env.ExecuteWorkflow(OrderWorkflow, "")

	err := s.env.GetWorkflowError()
	s.Require().Error(err)
	var appErr *temporal.ApplicationError
	s.Require().True(errors.As(err, &appErr))
	s.Equal(string(types.KindInvalidInput), appErr.Type())
}
