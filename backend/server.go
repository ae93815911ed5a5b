// Package backend is the development inventory/payments backend the sniper
// daemon talks to. It proxies nothing in dev mode: shows live in memory and
// checkout sessions are simulated, which also makes it the test fixture for
// the client services.
package backend

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v5"
	"golang.org/x/crypto/bcrypt"

	"ticket-sniper/models"
)

type Server struct {
	echo       *echo.Echo
	apiKeyHash string
	devMode    bool

	mu       sync.Mutex
	shows    map[string]*models.Show
	sessions map[string]*checkoutSession
	intents  map[string]*paymentIntent
}

type Config struct {
	// APIKeyHash is the bcrypt hash of the expected x-api-key value. Empty
	// disables auth with a startup warning, matching dev ergonomics.
	APIKeyHash string
	DevMode    bool
}

func NewServer(cfg Config) *Server {
	s := &Server{
		echo:       echo.New(),
		apiKeyHash: cfg.APIKeyHash,
		devMode:    cfg.DevMode,
		shows:      make(map[string]*models.Show),
		sessions:   make(map[string]*checkoutSession),
		intents:    make(map[string]*paymentIntent),
	}

	if s.apiKeyHash == "" {
		log.Println("Warning: API_KEY_HASH not set, requests are not authenticated")
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.echo.Group("/api", s.verifyAPIKey)

	api.GET("/shows", s.listShows)
	api.GET("/shows/:id", s.getShow)
	api.POST("/shows/:id/reserve", s.reserveShow)

	api.POST("/payments/checkout-session", s.createCheckoutSession)
	api.GET("/payments/session/:id", s.getSession)
	api.POST("/payments/create-intent", s.createIntent)

	if s.devMode {
		api.POST("/payments/session/:id/complete", s.completeSession)
		api.POST("/payments/session/:id/expire", s.expireSession)
	}

	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
	})
}

// verifyAPIKey checks x-api-key against the configured bcrypt hash.
func (s *Server) verifyAPIKey(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if s.apiKeyHash == "" {
			return next(c)
		}

		apiKey := c.Request().Header.Get("x-api-key")
		if apiKey == "" || bcrypt.CompareHashAndPassword([]byte(s.apiKeyHash), []byte(apiKey)) != nil {
			return c.JSON(http.StatusUnauthorized, map[string]any{
				"success": false,
				"error":   "Unauthorized",
				"message": "Invalid or missing API key. Please include x-api-key header.",
			})
		}
		return next(c)
	}
}

// SeedShows loads shows into the in-memory inventory.
func (s *Server) SeedShows(shows []models.Show) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range shows {
		show := shows[i]
		s.shows[show.ID] = &show
	}
}

// ServeHTTP lets the server double as an httptest handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// ListenAndServe runs the backend until ctx-free shutdown by the caller.
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.echo,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Printf("backend listening on %s", addr)
	return srv.ListenAndServe()
}
