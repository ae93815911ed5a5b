package backend

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"

	"ticket-sniper/models"
	"ticket-sniper/utils"
)

func (s *Server) listShows(c echo.Context) error {
	location := c.QueryParam("location")
	category := c.QueryParam("type")

	s.mu.Lock()
	shows := make([]models.Show, 0, len(s.shows))
	for _, show := range s.shows {
		if location != "" && !strings.EqualFold(show.City, location) {
			continue
		}
		if category != "" && !matchesCategory(show, category) {
			continue
		}
		shows = append(shows, *show)
	}
	s.mu.Unlock()

	return c.JSON(http.StatusOK, map[string]any{
		"success":   true,
		"shows":     shows,
		"total":     len(shows),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) getShow(c echo.Context) error {
	s.mu.Lock()
	show, ok := s.shows[c.PathParam("id")]
	var out models.Show
	if ok {
		out = *show
	}
	s.mu.Unlock()

	if !ok {
		return c.JSON(http.StatusNotFound, map[string]any{
			"success": false,
			"error":   "show not found",
		})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"show":    out,
	})
}

// reserveShow holds seats for a show and opens a checkout session for them.
func (s *Server) reserveShow(c echo.Context) error {
	var req struct {
		Quantity  int    `json:"quantity"`
		SessionID string `json:"sessionId"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "invalid request body",
		})
	}
	if req.Quantity <= 0 {
		return c.JSON(http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "invalid quantity",
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	show, ok := s.shows[c.PathParam("id")]
	if !ok || show.AvailableSeats == 0 {
		return c.JSON(http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "unavailable",
		})
	}
	if show.AvailableSeats < req.Quantity {
		return c.JSON(http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "insufficient",
		})
	}
	if !show.Price.IsPositive() {
		return c.JSON(http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "invalid price",
		})
	}

	show.AvailableSeats -= req.Quantity
	session := s.newSession(show, req.Quantity)

	reservationID, err := utils.GenerateCode(8)
	if err != nil {
		reservationID = uuid.NewString()
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success":       true,
		"checkoutUrl":   session.CheckoutURL,
		"sessionId":     session.ID,
		"reservationId": reservationID,
		"eventTitle":    show.Title,
	})
}

func matchesCategory(show *models.Show, category string) bool {
	// The in-memory inventory carries no category field; sections stand in
	// for it in dev mode.
	for _, section := range show.Sections {
		if strings.EqualFold(section, category) {
			return true
		}
	}
	return len(show.Sections) == 0
}
