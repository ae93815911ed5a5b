package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	pubnub "github.com/pubnub/go"

	"ticket-sniper/config"
	"ticket-sniper/handlers"
	"ticket-sniper/internal/status"
	"ticket-sniper/security"
	"ticket-sniper/services"
	"ticket-sniper/utils"

	"github.com/labstack/echo/v5"
)

func main() {
	// Load configuration
	cfg := config.LoadConfig()

	// Initialize Redis
	redisClient := utils.NewRedisClient(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	defer redisClient.Close()

	// Initialize the notifier; missing PubNub keys degrade to log-only
	// notifications instead of failing startup.
	var notifier services.Notifier = services.LogNotifier{}
	if cfg.PubNubPublishKey != "" && cfg.PubNubSubscribeKey != "" {
		pnConfig := pubnub.NewConfig()
		pnConfig.PublishKey = cfg.PubNubPublishKey
		pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
		pnConfig.SecretKey = cfg.PubNubSecretKey

		notifier = services.NewPubNubNotifier(pubnub.NewPubNub(pnConfig), cfg.NotifyChannel)
	} else {
		log.Println("PubNub keys not configured, notifications are log-only")
	}

	// Initialize services
	monitor := services.NewMonitorService(cfg.BackendAPIURL, cfg.TicketAPIKey, cfg.ProbeTimeout, cfg.MaxRetries, cfg.RetryDelay)
	checkout := services.NewCheckoutService(cfg.BackendAPIURL, cfg.TicketAPIKey, redisClient, notifier, cfg.MaxRetries, cfg.RetryDelay, cfg.SessionTTL)
	executor := services.NewPurchaseExecutor(monitor, checkout, cfg.PurchaseBudget)
	automation := services.NewAutomationService(executor, notifier, redisClient)

	confirm := defaultConfirm(cfg, notifier)

	scheduler := services.NewSchedulerService(automation, monitor, notifier, services.SchedulerConfig{
		Offset:        cfg.SchedulerOffset,
		Location:      cfg.ScanLocation,
		Category:      cfg.ScanCategory,
		Quantity:      cfg.DefaultQty,
		RetryAttempts: cfg.MaxRetries,
		RetryDelay:    cfg.RetryDelay,
		Confirm:       confirm,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Arm the midnight wake-up and re-arm any interrupted tasks.
	scheduler.ScheduleMidnightTask()
	go automation.RestoreTasks(ctx, confirm)

	// Initialize handlers
	automationHandler := handlers.NewAutomationHandler(automation, confirm)
	checkoutHandler := handlers.NewCheckoutHandler(checkout)
	limiter := security.NewRateLimiter(redisClient, 30)

	e := echo.New()
	api := e.Group("/api", limiter.Limit())
	api.POST("/automation/tasks", automationHandler.StartTask)
	api.DELETE("/automation/tasks/:eventId", automationHandler.StopTask)
	api.GET("/automation/tasks", automationHandler.ListTasks)
	api.POST("/checkout/session", checkoutHandler.CreateSession)
	api.GET("/checkout/session/:sessionId", checkoutHandler.VerifySession)

	e.GET("/health", func(c echo.Context) error {
		if err := utils.RedisHealthCheck(redisClient); err != nil {
			return c.JSON(503, map[string]string{
				"status": "unhealthy",
				"error":  err.Error(),
			})
		}
		return c.JSON(200, map[string]any{
			"status":       "healthy",
			"reduced_mode": scheduler.IsRunningInReducedMode(),
		})
	})

	if cfg.EnableMetrics {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(":"+cfg.MetricsPort, mux); err != nil {
				log.Printf("metrics server stopped: %v", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Setup graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutdown signal received, cleaning up...")
		cancel()
		scheduler.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("server shutdown: %v", err)
		}
	}()

	log.Printf("ticket-sniper listening on :%s", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}

// defaultConfirm is the confirmation capability for tasks without an
// interactive payment sheet. Development auto-confirms against the simulated
// provider; elsewhere the user is pushed a confirmation prompt and the
// attempt is surfaced as failed until the host app supplies a real callback.
func defaultConfirm(cfg *config.Config, notifier services.Notifier) services.ConfirmPaymentFunc {
	return func(ctx context.Context, clientSecret string) error {
		if cfg.Environment == "development" {
			slog.Info("auto-confirming payment in development", "client_secret", clientSecret)
			return nil
		}
		_ = notifier.Send(ctx, services.NotifyWarning,
			"Payment authorization awaiting confirmation in the app", nil)
		return status.New(status.KindValidation, "interactive confirmation required")
	}
}
