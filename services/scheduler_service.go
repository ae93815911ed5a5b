package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"ticket-sniper/models"
)

// SchedulerConfig tunes the midnight release scan.
type SchedulerConfig struct {
	// Offset shifts the UTC-midnight trigger into the release timezone.
	Offset        time.Duration
	Location      string
	Category      string
	Quantity      int
	RetryAttempts int
	RetryDelay    time.Duration
	Confirm       ConfirmPaymentFunc
}

// SchedulerService arms a wake-up at the next midnight release window, scans
// for candidates, hands the best one to the automation service and re-arms
// for the following day. Scheduling failures are logged and swallowed so the host's startup
// path never crashes; IsRunningInReducedMode reports degraded notification
// capability instead.
type SchedulerService struct {
	automation *AutomationService
	monitor    *MonitorService
	notifier   Notifier
	cfg        SchedulerConfig

	mu          sync.Mutex
	initialized bool
	reduced     bool
	timer       *time.Timer

	now func() time.Time
}

func NewSchedulerService(automation *AutomationService, monitor *MonitorService, notifier Notifier, cfg SchedulerConfig) *SchedulerService {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	if cfg.Quantity <= 0 {
		cfg.Quantity = 1
	}
	return &SchedulerService{
		automation: automation,
		monitor:    monitor,
		notifier:   notifier,
		cfg:        cfg,
		now:        time.Now,
	}
}

// ScheduleMidnightTask arms the next release-window wake-up. Idempotent: a
// second call while already initialized is a no-op.
func (s *SchedulerService) ScheduleMidnightTask() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		slog.Info("scheduler already initialized, skipping")
		return
	}

	delay := s.nextTriggerDelay(s.now())

	// The informational notification is best-effort; a missing notification
	// backend only degrades messaging, never scheduling.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.notifier.Send(ctx, NotifyInfo,
		"Monitoring ticket release at midnight",
		map[string]any{"fires_in": delay.String()}); err != nil {
		s.reduced = true
		slog.Error("scheduler notification failed, continuing in reduced mode", "error", err)
	}

	s.timer = time.AfterFunc(delay, s.fire)
	s.initialized = true
	slog.Info("midnight task scheduled", "fires_in", delay.String())
}

// IsRunningInReducedMode reports whether the notification capability is
// degraded, so callers can adapt messaging.
func (s *SchedulerService) IsRunningInReducedMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reduced
}

// rearm schedules the following day's wake-up. No-op once Stop has run.
func (s *SchedulerService) rearm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return
	}
	delay := s.nextTriggerDelay(s.now())
	s.timer = time.AfterFunc(delay, s.fire)
	slog.Info("midnight task re-armed", "fires_in", delay.String())
}

// Stop cancels a pending wake-up.
func (s *SchedulerService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.initialized = false
}

// nextTriggerDelay computes the wait until the next 00:00 UTC shifted by the
// configured offset. A non-positive delay (clock drift, cross-midnight race)
// recomputes for +24h instead of firing immediately.
func (s *SchedulerService) nextTriggerDelay(now time.Time) time.Duration {
	utc := now.UTC()
	midnight := time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
	trigger := midnight.Add(s.cfg.Offset)

	delay := trigger.Sub(now)
	if delay <= 0 {
		delay += 24 * time.Hour
	}
	return delay
}

// fire runs the release scan, hands the best candidate to the automation
// service with the default payment method, and re-arms for the next day's
// window.
func (s *SchedulerService) fire() {
	defer s.rearm()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := s.notifier.Send(ctx, NotifyInfo,
		"Midnight release window open, scanning for tickets", nil); err != nil {
		s.mu.Lock()
		s.reduced = true
		s.mu.Unlock()
		slog.Error("release-window notification failed, continuing in reduced mode", "error", err)
	}

	shows := s.monitor.ScanAvailableShows(ctx, s.cfg.Location, s.cfg.Category)
	selected := s.monitor.SelectOptimalTicket(shows)
	if selected == nil {
		slog.Info("midnight scan found no candidates",
			"location", s.cfg.Location, "category", s.cfg.Category)
		return
	}

	slog.Info("midnight scan selected candidate",
		"event_id", selected.EventID, "price", selected.Price.String())

	s.automation.StartTask(ctx, TaskConfig{
		EventID:       selected.EventID,
		Quantity:      s.cfg.Quantity,
		UnitPrice:     selected.Price,
		PaymentMethod: models.PaymentCreditCard,
		RetryAttempts: s.cfg.RetryAttempts,
		RetryDelay:    s.cfg.RetryDelay,
		Confirm:       s.cfg.Confirm,
	})
}
