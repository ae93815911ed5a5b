package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/shopspring/decimal"

	"ticket-sniper/models"
	"ticket-sniper/services"
)

type AutomationHandler struct {
	automation *services.AutomationService
	confirm    services.ConfirmPaymentFunc
}

func NewAutomationHandler(automation *services.AutomationService, confirm services.ConfirmPaymentFunc) *AutomationHandler {
	return &AutomationHandler{automation: automation, confirm: confirm}
}

func (h *AutomationHandler) StartTask(c echo.Context) error {
	var req struct {
		EventID       string          `json:"event_id"`
		Quantity      int             `json:"quantity"`
		UnitPrice     decimal.Decimal `json:"unit_price"`
		PaymentMethod string          `json:"payment_method"`
		RetryAttempts int             `json:"retry_attempts"`
		RetryDelayMs  int             `json:"retry_delay_ms"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "invalid request body",
		})
	}
	if req.EventID == "" || req.Quantity <= 0 {
		return c.JSON(http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "event_id and a positive quantity are required",
		})
	}

	method := models.PaymentMethod(req.PaymentMethod)
	if method == "" {
		method = models.PaymentCreditCard
	}

	accepted := h.automation.StartTask(c.Request().Context(), services.TaskConfig{
		EventID:       req.EventID,
		Quantity:      req.Quantity,
		UnitPrice:     req.UnitPrice,
		PaymentMethod: method,
		RetryAttempts: req.RetryAttempts,
		RetryDelay:    time.Duration(req.RetryDelayMs) * time.Millisecond,
		Confirm:       h.confirm,
	})
	if !accepted {
		return c.JSON(http.StatusConflict, map[string]any{
			"success": false,
			"error":   "task already running for this event",
		})
	}

	return c.JSON(http.StatusAccepted, map[string]any{
		"success":  true,
		"event_id": req.EventID,
	})
}

func (h *AutomationHandler) StopTask(c echo.Context) error {
	h.automation.Deactivate(c.PathParam("eventId"))
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "task deactivated",
	})
}

func (h *AutomationHandler) ListTasks(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"tasks":   h.automation.Tasks(),
	})
}
