package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v5"

	"ticket-sniper/internal/status"
	"ticket-sniper/models"
	"ticket-sniper/services"
)

// CheckoutHandler exposes the Quick-Buy flow: open a hosted checkout session
// for selected shows, then poll its verification status.
type CheckoutHandler struct {
	checkout *services.CheckoutService
}

func NewCheckoutHandler(checkout *services.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout}
}

func (h *CheckoutHandler) CreateSession(c echo.Context) error {
	var req struct {
		Items  []models.CheckoutItem `json:"items"`
		UserID string                `json:"user_id"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "invalid request body",
		})
	}

	session, err := h.checkout.CreateCheckoutSession(c.Request().Context(), req.Items, req.UserID)
	if err != nil {
		return h.classifiedError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"session": session,
	})
}

func (h *CheckoutHandler) VerifySession(c echo.Context) error {
	verification, err := h.checkout.VerifySession(c.Request().Context(), c.PathParam("sessionId"))
	if err != nil {
		return h.classifiedError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success":      true,
		"verification": verification,
	})
}

func (h *CheckoutHandler) classifiedError(c echo.Context, err error) error {
	var se *status.Error
	if errors.As(err, &se) {
		code := http.StatusBadGateway
		switch se.Kind {
		case status.KindValidation:
			code = http.StatusBadRequest
		case status.KindSessionExpired:
			code = http.StatusGone
		case status.KindUnavailable:
			code = http.StatusNotFound
		case status.KindRateLimited:
			code = http.StatusTooManyRequests
		}
		return c.JSON(code, map[string]any{
			"success": false,
			"error":   se.Kind.String(),
			"message": se.Message,
		})
	}
	return c.JSON(http.StatusInternalServerError, map[string]any{
		"success": false,
		"error":   "internal",
		"message": err.Error(),
	})
}
