package activities

import (
	"context"
	"errors"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"order-fulfillment/fulfillment/stock"
	"order-fulfillment/fulfillment/store"
	"order-fulfillment/fulfillment/types"
)

// InventoryActivities contains inventory-related activities
type InventoryActivities struct {
	Inventory store.InventoryStore
}

// ReserveStock reserves one unit of item for an order
func (a *InventoryActivities) ReserveStock(ctx context.Context, orderID, item string) error {
	logger := activity.GetLogger(ctx)
	logger.Info("Reserving stock", "orderID", orderID, "item", item)

	if err := stock.Reserve(ctx, a.Inventory, item); err != nil {
		logger.Warn("Stock reservation failed", "orderID", orderID, "item", item, "error", err)
		return classify(err)
	}

	logger.Info("Stock reserved successfully", "orderID", orderID)
	return nil
}

// ReleaseAndShip converts the order's reservation into a shipped unit
func (a *InventoryActivities) ReleaseAndShip(ctx context.Context, orderID, item string) error {
	logger := activity.GetLogger(ctx)
	logger.Info("Arranging shipment", "orderID", orderID, "item", item)

	unreserved, err := stock.ReleaseAndShip(ctx, a.Inventory, item)
	if err != nil {
		return classify(err)
	}
	if unreserved {
		logger.Warn("Shipped without a matching reservation", "orderID", orderID, "item", item)
	}

	logger.Info("Shipment arranged", "orderID", orderID)
	return nil
}

// ReleaseStock releases reserved inventory (compensation)
func (a *InventoryActivities) ReleaseStock(ctx context.Context, orderID, item string) error {
	logger := activity.GetLogger(ctx)
	logger.Info("Releasing stock", "orderID", orderID, "item", item)

	if err := stock.Release(ctx, a.Inventory, item); err != nil {
		return classify(err)
	}

	logger.Info("Stock released successfully", "orderID", orderID)
	return nil
}

// PaymentActivities contains payment-related activities
type PaymentActivities struct{}

// VerifyPayment authorises the customer's payment method
func (a *PaymentActivities) VerifyPayment(ctx context.Context, orderID string) error {
	activity.GetLogger(ctx).Info("Payment verified", "orderID", orderID)
	return nil
}

// CapturePayment settles the authorised payment
func (a *PaymentActivities) CapturePayment(ctx context.Context, orderID string) error {
	activity.GetLogger(ctx).Info("Payment processed", "orderID", orderID)
	return nil
}

// RefundPayment refunds a captured payment (compensation)
func (a *PaymentActivities) RefundPayment(ctx context.Context, orderID string) error {
	activity.GetLogger(ctx).Info("Payment refunded", "orderID", orderID)
	return nil
}

// AddressActivities contains address-related activities
type AddressActivities struct{}

// VerifyAddress checks the shipping address
func (a *AddressActivities) VerifyAddress(ctx context.Context, orderID string) error {
	activity.GetLogger(ctx).Info("Address verified", "orderID", orderID)
	return nil
}

// classify turns business failures into non-retryable application errors
// typed by their kind. Anything else is returned as is and retried.
func classify(err error) error {
	var e *types.Error
	if errors.As(err, &e) {
		return temporal.NewNonRetryableApplicationError(e.Msg, string(e.Kind), nil)
	}
	return err
}
