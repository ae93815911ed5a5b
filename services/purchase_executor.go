package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"ticket-sniper/internal/status"
	"ticket-sniper/models"
	"ticket-sniper/monitoring"
)

// ConfirmPaymentFunc confirms a payment authorization. The actual
// confirmation (card entry, biometrics) lives in the UI/payment-SDK layer, so
// it is injected as a capability.
type ConfirmPaymentFunc func(ctx context.Context, clientSecret string) error

// PurchaseExecutor runs one purchase attempt end to end: probe, authorize,
// confirm. It never retries internally; retries belong to the task
// orchestrator so a partial failure inside one attempt cannot double-charge.
type PurchaseExecutor struct {
	monitor  *MonitorService
	checkout *CheckoutService
	budget   time.Duration
	now      func() time.Time
}

func NewPurchaseExecutor(monitor *MonitorService, checkout *CheckoutService, budget time.Duration) *PurchaseExecutor {
	return &PurchaseExecutor{
		monitor:  monitor,
		checkout: checkout,
		budget:   budget,
		now:      time.Now,
	}
}

// ExecutePurchase attempts to buy quantity tickets for a show. Tickets sell
// out in seconds, so a soft wall-clock budget is enforced at the boundary to
// the confirmation step: once exceeded, the attempt aborts instead of
// confirming a charge the seats may no longer back.
func (e *PurchaseExecutor) ExecutePurchase(ctx context.Context, eventID string, quantity int, unitPrice decimal.Decimal, confirm ConfirmPaymentFunc) *models.PurchaseResult {
	start := e.now()
	slog.Info("starting purchase", "event_id", eventID, "quantity", quantity)

	if !e.monitor.CheckAvailability(ctx, eventID) {
		monitoring.TrackPurchase("unavailable", e.now().Sub(start))
		return &models.PurchaseResult{Success: false, Message: "tickets unavailable"}
	}

	intent, err := e.checkout.CreatePaymentIntent(ctx, eventID, quantity, unitPrice)
	if err != nil {
		clsErr := status.Classify(err)
		slog.Error("payment authorization failed", "event_id", eventID, "error", clsErr)
		monitoring.TrackPurchase("authorization_failed", e.now().Sub(start))
		return &models.PurchaseResult{Success: false, Message: clsErr.Message}
	}

	if e.now().Sub(start) > e.budget {
		monitoring.TrackPurchase("timeout", e.now().Sub(start))
		return &models.PurchaseResult{
			Success: false,
			Message: fmt.Sprintf("purchase exceeded %s budget before confirmation", e.budget),
		}
	}

	if err := confirm(ctx, intent.ClientSecret); err != nil {
		clsErr := status.Classify(err)
		slog.Error("payment confirmation failed", "event_id", eventID, "error", clsErr)
		monitoring.TrackPurchase("confirmation_failed", e.now().Sub(start))
		return &models.PurchaseResult{
			Success: false,
			Message: fmt.Sprintf("payment confirmation failed: %s", clsErr.Message),
		}
	}

	slog.Info("payment confirmed", "event_id", eventID, "transaction_id", intent.ID)
	monitoring.TrackPurchase("success", e.now().Sub(start))
	return &models.PurchaseResult{
		Success:       true,
		Message:       "payment processed",
		TransactionID: intent.ID,
	}
}
