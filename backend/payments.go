package backend

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"
	"github.com/shopspring/decimal"

	"ticket-sniper/models"
)

type checkoutSession struct {
	ID          string
	CheckoutURL string
	Amount      decimal.Decimal
	Currency    string
	Status      string // open -> complete | expired
	Metadata    map[string]string
	CreatedAt   time.Time
}

type paymentIntent struct {
	ID           string
	ClientSecret string
	Amount       int64
	Currency     string
	EventID      string
}

// newSession registers an open session. Caller holds s.mu.
func (s *Server) newSession(show *models.Show, quantity int) *checkoutSession {
	session := &checkoutSession{
		ID:          "cs_" + uuid.NewString(),
		Amount:      show.Price.Mul(decimal.NewFromInt(int64(quantity))),
		Currency:    "usd",
		Status:      "open",
		CreatedAt:   time.Now(),
		Metadata: map[string]string{
			"eventId":  show.ID,
			"quantity": fmt.Sprintf("%d", quantity),
		},
	}
	session.CheckoutURL = "https://checkout.example.com/pay/" + session.ID
	s.sessions[session.ID] = session
	return session
}

func (s *Server) createCheckoutSession(c echo.Context) error {
	var req struct {
		Items  []models.CheckoutItem `json:"items"`
		UserID string                `json:"userId"`
	}
	if err := c.Bind(&req); err != nil || len(req.Items) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "Missing required fields",
			"message": "items and userId are required",
		})
	}

	total := decimal.Zero
	metadata := map[string]string{"userId": req.UserID}
	for _, item := range req.Items {
		if item.Quantity <= 0 || !item.Price.IsPositive() {
			return c.JSON(http.StatusBadRequest, map[string]any{
				"success": false,
				"error":   "invalid item",
				"message": "quantity and price must be positive",
			})
		}
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		metadata["show:"+item.ShowID] = fmt.Sprintf("%d", item.Quantity)
	}

	s.mu.Lock()
	session := &checkoutSession{
		ID:        "cs_" + uuid.NewString(),
		Amount:    total,
		Currency:  "usd",
		Status:    "open",
		Metadata:  metadata,
		CreatedAt: time.Now(),
	}
	session.CheckoutURL = "https://checkout.example.com/pay/" + session.ID
	s.sessions[session.ID] = session
	s.mu.Unlock()

	return c.JSON(http.StatusOK, map[string]any{
		"success":     true,
		"checkoutUrl": session.CheckoutURL,
		"sessionId":   session.ID,
		"amount":      session.Amount,
		"currency":    session.Currency,
		"status":      session.Status,
	})
}

func (s *Server) getSession(c echo.Context) error {
	s.mu.Lock()
	session, ok := s.sessions[c.PathParam("id")]
	s.mu.Unlock()

	if !ok {
		return c.JSON(http.StatusNotFound, map[string]any{
			"success": false,
			"error":   "session not found",
		})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success":   true,
		"sessionId": session.ID,
		"status":    session.Status,
		"amount":    session.Amount,
		"currency":  session.Currency,
		"metadata":  session.Metadata,
	})
}

func (s *Server) createIntent(c echo.Context) error {
	var req struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
		EventID  string `json:"eventId"`
		Quantity int    `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil || req.Amount <= 0 || req.EventID == "" {
		return c.JSON(http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "invalid intent request",
			"message": "amount and eventId are required",
		})
	}

	intent := &paymentIntent{
		ID:       "pi_" + uuid.NewString(),
		Amount:   req.Amount,
		Currency: req.Currency,
		EventID:  req.EventID,
	}
	intent.ClientSecret = intent.ID + "_secret_" + uuid.NewString()

	s.mu.Lock()
	s.intents[intent.ID] = intent
	s.mu.Unlock()

	return c.JSON(http.StatusOK, map[string]any{
		"id":            intent.ID,
		"client_secret": intent.ClientSecret,
	})
}

// completeSession simulates the provider finishing a payment. Dev mode only.
func (s *Server) completeSession(c echo.Context) error {
	return s.setSessionStatus(c, "complete")
}

// expireSession simulates the provider timing a session out. Dev mode only.
func (s *Server) expireSession(c echo.Context) error {
	return s.setSessionStatus(c, "expired")
}

func (s *Server) setSessionStatus(c echo.Context, to string) error {
	s.mu.Lock()
	session, ok := s.sessions[c.PathParam("id")]
	if ok && session.Status == "open" {
		session.Status = to
	}
	s.mu.Unlock()

	if !ok {
		return c.JSON(http.StatusNotFound, map[string]any{
			"success": false,
			"error":   "session not found",
		})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"status":  to,
	})
}
