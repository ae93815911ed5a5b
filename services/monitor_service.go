package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"ticket-sniper/internal/status"
	"ticket-sniper/models"
	"ticket-sniper/monitoring"
	"ticket-sniper/utils"
)

// maxPlaceholderSeats bounds the synthesized seat list per show.
const maxPlaceholderSeats = 10

// MonitorService probes the inventory backend for show availability. Pure
// reads; it never mutates task state, and exhausted retries degrade to "not
// available" instead of failing the caller flow.
type MonitorService struct {
	baseURL    string
	apiKey     string
	hc         *http.Client
	breaker    *utils.Breaker
	maxRetries int
	retryDelay time.Duration
}

func NewMonitorService(baseURL, apiKey string, timeout time.Duration, maxRetries int, retryDelay time.Duration) *MonitorService {
	return &MonitorService{
		baseURL:    baseURL,
		apiKey:     apiKey,
		hc:         &http.Client{Timeout: timeout},
		breaker:    utils.NewBreaker("inventory"),
		maxRetries: maxRetries,
		retryDelay: retryDelay,
	}
}

// CheckAvailability reports whether a show has seats left. Transient failures
// are retried with linear backoff; on exhaustion or a non-retryable failure
// it returns false rather than an error.
func (s *MonitorService) CheckAvailability(ctx context.Context, eventID string) bool {
	if eventID == "" {
		return false
	}

	show, err := utils.Retry(ctx, "checkAvailability", s.maxRetries, s.retryDelay,
		func(ctx context.Context) (*models.Show, error) {
			return s.fetchShow(ctx, eventID)
		})
	if err != nil {
		slog.Error("availability check failed", "event_id", eventID, "error", err)
		monitoring.TrackProbe(false)
		return false
	}

	available := show.AvailableSeats > 0
	slog.Info("availability checked",
		"event_id", eventID,
		"available", available,
		"listing_count", show.AvailableSeats,
	)
	monitoring.TrackProbe(available)
	return available
}

// GetShow fetches one show with retries. Used where the caller needs the
// price alongside availability.
func (s *MonitorService) GetShow(ctx context.Context, eventID string) (*models.Show, error) {
	return utils.Retry(ctx, "getShow", s.maxRetries, s.retryDelay,
		func(ctx context.Context) (*models.Show, error) {
			return s.fetchShow(ctx, eventID)
		})
}

// ScanAvailableShows lists shows with seats left for a location/category
// filter, synthesizing placeholder seat ids (capped per show to bound the
// payload). Returns an empty slice on failure.
func (s *MonitorService) ScanAvailableShows(ctx context.Context, location, category string) []models.ShowAvailability {
	shows, err := utils.Retry(ctx, "scanAvailableShows", s.maxRetries, s.retryDelay,
		func(ctx context.Context) ([]models.Show, error) {
			return s.fetchShows(ctx, location, category)
		})
	if err != nil {
		slog.Error("show scan failed", "location", location, "category", category, "error", err)
		return []models.ShowAvailability{}
	}

	now := time.Now()
	available := make([]models.ShowAvailability, 0, len(shows))
	for _, show := range shows {
		if show.AvailableSeats <= 0 {
			continue
		}

		seatCount := min(show.AvailableSeats, maxPlaceholderSeats)
		seats := make([]models.Seat, seatCount)
		for i := range seats {
			seats[i] = models.Seat{ID: fmt.Sprintf("seat-%d", i+1), Status: "available"}
		}

		available = append(available, models.ShowAvailability{
			EventID:      show.ID,
			Available:    true,
			Price:        show.Price,
			Seats:        seats,
			Title:        show.Title,
			Venue:        show.Venue,
			ListingCount: show.AvailableSeats,
			LastChecked:  now,
		})
	}

	slog.Info("scanned available shows", "count", len(available))
	return available
}

// SelectOptimalTicket picks the cheapest available candidate from a scan.
func (s *MonitorService) SelectOptimalTicket(shows []models.ShowAvailability) *models.ShowAvailability {
	var best *models.ShowAvailability
	for i := range shows {
		if !shows[i].Available {
			continue
		}
		if best == nil || shows[i].Price.LessThan(best.Price) {
			best = &shows[i]
		}
	}
	return best
}

func (s *MonitorService) fetchShow(ctx context.Context, eventID string) (*models.Show, error) {
	var reply struct {
		Success bool        `json:"success"`
		Show    models.Show `json:"show"`
	}
	if err := s.get(ctx, fmt.Sprintf("/api/shows/%s", url.PathEscape(eventID)), nil, &reply); err != nil {
		return nil, err
	}
	return &reply.Show, nil
}

func (s *MonitorService) fetchShows(ctx context.Context, location, category string) ([]models.Show, error) {
	params := url.Values{}
	if location != "" {
		params.Set("location", location)
	}
	if category != "" {
		params.Set("type", category)
	}

	var reply struct {
		Success bool          `json:"success"`
		Shows   []models.Show `json:"shows"`
		Total   int           `json:"total"`
	}
	if err := s.get(ctx, "/api/shows", params, &reply); err != nil {
		return nil, err
	}
	return reply.Shows, nil
}

// get performs one authenticated read against the backend, classifying
// non-200 responses. The circuit breaker turns probe storms against a dead
// backend into fast failures.
func (s *MonitorService) get(ctx context.Context, path string, params url.Values, out any) error {
	return s.breaker.Do(func() error {
		endpoint := s.baseURL + path
		if len(params) > 0 {
			endpoint += "?" + params.Encode()
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("monitor get: http.NewRequestWithContext: %w", err)
		}
		req.Header.Set("x-api-key", s.apiKey)

		resp, err := s.hc.Do(req)
		if err != nil {
			return fmt.Errorf("monitor get: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			rbody, _ := io.ReadAll(resp.Body)
			return status.FromHTTPStatus(resp.StatusCode, string(rbody))
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("monitor get: json.Decode: %w", err)
		}
		return nil
	})
}
