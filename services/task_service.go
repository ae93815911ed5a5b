package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"ticket-sniper/models"
	"ticket-sniper/monitoring"
)

const (
	taskKeyPrefix  = "automation:task:"
	activeTasksKey = "automation:active"
	taskTTL        = 24 * time.Hour
)

// StateCallback observes task state transitions.
type StateCallback func(eventID string, state models.TaskState)

// ResultCallback receives the terminal outcome of a task's attempt chain.
type ResultCallback func(eventID string, result models.PurchaseResult)

// TaskConfig describes one purchase-automation request.
type TaskConfig struct {
	EventID       string
	Quantity      int
	UnitPrice     decimal.Decimal
	PaymentMethod models.PaymentMethod
	RetryAttempts int
	RetryDelay    time.Duration
	Confirm       ConfirmPaymentFunc
}

// AutomationService drives purchase tasks through waiting -> running ->
// stopped, enforcing at most one in-flight attempt per event id. Within one
// task attempts are strictly sequential; across event ids tasks interleave
// freely.
type AutomationService struct {
	executor *PurchaseExecutor
	notifier Notifier
	redis    *redis.Client

	mu      sync.Mutex
	running map[string]bool
	tasks   map[string]*models.AutomationTask

	onState  StateCallback
	onResult ResultCallback
}

func NewAutomationService(executor *PurchaseExecutor, notifier Notifier, redisClient *redis.Client) *AutomationService {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	s := &AutomationService{
		executor: executor,
		notifier: notifier,
		redis:    redisClient,
		running:  make(map[string]bool),
		tasks:    make(map[string]*models.AutomationTask),
	}
	// Background-triggered tasks use the same callbacks as foreground ones;
	// results are logged rather than dropped until the host registers its own.
	s.onState = func(eventID string, state models.TaskState) {
		slog.Info("task state", "event_id", eventID, "state", string(state))
	}
	s.onResult = func(eventID string, result models.PurchaseResult) {
		slog.Info("task result", "event_id", eventID, "success", result.Success, "message", result.Message)
	}
	return s
}

// SetCallbacks registers the host's state and result observers. Nil keeps the
// logging default for that callback.
func (s *AutomationService) SetCallbacks(onState StateCallback, onResult ResultCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if onState != nil {
		s.onState = onState
	}
	if onResult != nil {
		s.onResult = onResult
	}
}

// StartTask begins a purchase-attempt chain for a show. If a task for the
// same event id is already running the request is dropped, not queued; the
// return value reports whether the task was accepted. The single-flight flag
// is set before this method returns, so concurrent callers cannot both start.
func (s *AutomationService) StartTask(ctx context.Context, cfg TaskConfig) bool {
	if cfg.EventID == "" || cfg.Quantity <= 0 {
		slog.Error("rejecting task with invalid config", "event_id", cfg.EventID, "quantity", cfg.Quantity)
		return false
	}

	task := &models.AutomationTask{
		EventID:       cfg.EventID,
		Quantity:      cfg.Quantity,
		UnitPrice:     cfg.UnitPrice,
		PaymentMethod: cfg.PaymentMethod,
		RetryAttempts: cfg.RetryAttempts,
		RetryDelay:    cfg.RetryDelay,
		State:         models.TaskWaiting,
		Active:        true,
		CreatedAt:     time.Now(),
	}

	s.mu.Lock()
	if s.running[cfg.EventID] {
		s.mu.Unlock()
		slog.Info("task already running, dropping request", "event_id", cfg.EventID)
		return false
	}
	s.running[cfg.EventID] = true
	s.tasks[cfg.EventID] = task
	s.mu.Unlock()

	s.transition(ctx, task, models.TaskWaiting)
	// The chain must outlive the caller: an HTTP request finishing (or the
	// restore loop's context closing) is not a cancellation. Deactivate is the
	// only way to stop an accepted chain.
	go s.runTask(context.WithoutCancel(ctx), task, cfg.Confirm)
	return true
}

// Deactivate clears a task's active flag. In-flight attempts are allowed to
// settle; the chain observes the flag afterwards and stops without emitting a
// result.
func (s *AutomationService) Deactivate(eventID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if task, ok := s.tasks[eventID]; ok {
		task.Active = false
	}
}

// Tasks returns a snapshot of tracked tasks.
func (s *AutomationService) Tasks() []models.AutomationTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.AutomationTask, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, *t)
	}
	return out
}

// runTask executes the retry chain for one task. Attempts are strictly
// sequential: attempt n+1 never starts before attempt n's settlement and its
// backoff wait. Exactly one result is emitted per chain.
func (s *AutomationService) runTask(ctx context.Context, task *models.AutomationTask, confirm ConfirmPaymentFunc) {
	s.transition(ctx, task, models.TaskRunning)
	monitoring.TrackTaskRunning(1)
	defer func() {
		monitoring.TrackTaskRunning(-1)
		s.mu.Lock()
		s.running[task.EventID] = false
		s.mu.Unlock()
		s.transition(ctx, task, models.TaskStopped)
		s.clearPersisted(ctx, task.EventID)
	}()

	attempt := 0
	for {
		attempt++
		result := s.executor.ExecutePurchase(ctx, task.EventID, task.Quantity, task.UnitPrice, confirm)

		if !s.isActive(task.EventID) {
			slog.Info("task deactivated, discarding result", "event_id", task.EventID, "attempt", attempt)
			return
		}

		if result.Success {
			s.emitResult(ctx, task.EventID, *result)
			_ = s.notifier.Send(ctx, NotifySuccess,
				fmt.Sprintf("Ticket secured for %s", task.EventID),
				map[string]any{"transaction_id": result.TransactionID})
			return
		}

		_ = s.notifier.Send(ctx, NotifyError,
			fmt.Sprintf("Purchase failed: %s", result.Message), nil)

		if task.RetryAttempts <= 0 {
			s.emitResult(ctx, task.EventID, *result)
			_ = s.notifier.Send(ctx, NotifyWarning,
				fmt.Sprintf("Max retries reached for %s", task.EventID), nil)
			return
		}

		s.mu.Lock()
		task.RetryAttempts--
		s.mu.Unlock()
		s.persistTask(ctx, task)

		// Linear backoff, same policy as the retry controller.
		wait := task.RetryDelay * time.Duration(attempt)
		_ = s.notifier.Send(ctx, NotifyInfo,
			fmt.Sprintf("Retrying %s in %s", task.EventID, wait), nil)

		s.transition(ctx, task, models.TaskWaiting)
		if err := sleepTask(ctx, wait); err != nil {
			slog.Info("task wait interrupted", "event_id", task.EventID, "error", err)
			return
		}
		if !s.isActive(task.EventID) {
			slog.Info("task deactivated during backoff", "event_id", task.EventID)
			return
		}
		s.transition(ctx, task, models.TaskRunning)
	}
}

func (s *AutomationService) isActive(eventID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[eventID]
	return ok && task.Active
}

func (s *AutomationService) transition(ctx context.Context, task *models.AutomationTask, state models.TaskState) {
	s.mu.Lock()
	task.State = state
	cb := s.onState
	s.mu.Unlock()

	cb(task.EventID, state)
	if state != models.TaskStopped {
		s.persistTask(ctx, task)
	}
}

func (s *AutomationService) emitResult(ctx context.Context, eventID string, result models.PurchaseResult) {
	s.mu.Lock()
	cb := s.onResult
	s.mu.Unlock()

	monitoring.TrackTaskResult(result.Success)
	cb(eventID, result)
}

// persistTask snapshots the task so an interrupted daemon can re-arm it on
// startup. Persistence failures never fail the purchase flow.
func (s *AutomationService) persistTask(ctx context.Context, task *models.AutomationTask) {
	if s.redis == nil {
		return
	}

	s.mu.Lock()
	data, err := json.Marshal(task)
	s.mu.Unlock()
	if err != nil {
		slog.Error("task snapshot marshal failed", "event_id", task.EventID, "error", err)
		return
	}

	key := taskKeyPrefix + task.EventID
	if err := s.redis.Set(ctx, key, data, taskTTL).Err(); err != nil {
		slog.Error("task snapshot write failed", "event_id", task.EventID, "error", err)
		return
	}
	s.redis.SAdd(ctx, activeTasksKey, task.EventID)
}

func (s *AutomationService) clearPersisted(ctx context.Context, eventID string) {
	if s.redis == nil {
		return
	}
	s.redis.Del(ctx, taskKeyPrefix+eventID)
	s.redis.SRem(ctx, activeTasksKey, eventID)
}

// RestoreTasks re-arms tasks that were interrupted mid-chain, using the
// remaining attempt budget from their snapshots. Restored tasks confirm
// through the supplied callback.
func (s *AutomationService) RestoreTasks(ctx context.Context, confirm ConfirmPaymentFunc) {
	if s.redis == nil {
		return
	}

	eventIDs, err := s.redis.SMembers(ctx, activeTasksKey).Result()
	if err != nil {
		slog.Error("task restore: reading active set failed", "error", err)
		return
	}

	for _, eventID := range eventIDs {
		data, err := s.redis.Get(ctx, taskKeyPrefix+eventID).Result()
		if err != nil {
			s.redis.SRem(ctx, activeTasksKey, eventID)
			continue
		}

		var task models.AutomationTask
		if err := json.Unmarshal([]byte(data), &task); err != nil {
			slog.Error("task restore: bad snapshot", "event_id", eventID, "error", err)
			s.redis.Del(ctx, taskKeyPrefix+eventID)
			s.redis.SRem(ctx, activeTasksKey, eventID)
			continue
		}

		slog.Info("restoring interrupted task", "event_id", task.EventID, "retry_attempts", task.RetryAttempts)
		s.StartTask(ctx, TaskConfig{
			EventID:       task.EventID,
			Quantity:      task.Quantity,
			UnitPrice:     task.UnitPrice,
			PaymentMethod: task.PaymentMethod,
			RetryAttempts: task.RetryAttempts,
			RetryDelay:    task.RetryDelay,
			Confirm:       confirm,
		})
	}
}

func sleepTask(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
