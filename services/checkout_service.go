package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"ticket-sniper/internal/status"
	"ticket-sniper/models"
	"ticket-sniper/monitoring"
	"ticket-sniper/utils"
)

// CheckoutService is the client for the backend that proxies the payment
// provider. Session lifecycle (open -> complete | expired) is owned by the
// provider; this service only creates and observes sessions.
type CheckoutService struct {
	baseURL    string
	apiKey     string
	hc         *http.Client
	redis      *redis.Client
	notifier   Notifier
	maxRetries int
	retryDelay time.Duration
	sessionTTL time.Duration
}

func NewCheckoutService(baseURL, apiKey string, redisClient *redis.Client, notifier Notifier, maxRetries int, retryDelay, sessionTTL time.Duration) *CheckoutService {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &CheckoutService{
		baseURL:    baseURL,
		apiKey:     apiKey,
		hc:         &http.Client{Timeout: 10 * time.Second},
		redis:      redisClient,
		notifier:   notifier,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		sessionTTL: sessionTTL,
	}
}

// CreateCheckoutSession opens a hosted checkout session for one or more
// shows. Item validation happens before any network call; a validation
// failure is non-retryable and makes zero requests.
func (s *CheckoutService) CreateCheckoutSession(ctx context.Context, items []models.CheckoutItem, userID string) (*models.CheckoutSession, error) {
	if len(items) == 0 {
		return nil, status.New(status.KindValidation, "invalid checkout: no items")
	}
	total := decimal.Zero
	for _, item := range items {
		if item.Quantity <= 0 || !item.Price.IsPositive() {
			return nil, status.New(status.KindValidation,
				fmt.Sprintf("invalid checkout item %s: quantity and price must be positive", item.ShowID))
		}
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	session, err := utils.Retry(ctx, "createCheckoutSession", s.maxRetries, s.retryDelay,
		func(ctx context.Context) (*models.CheckoutSession, error) {
			return s.postCheckoutSession(ctx, items, userID, total)
		})
	if err != nil {
		monitoring.TrackCheckout("create", "failed")
		return nil, err
	}
	monitoring.TrackCheckout("create", "created")

	s.cacheSession(ctx, session, userID)
	slog.Info("checkout session created", "session_id", session.SessionID, "amount", session.Amount.String())
	_ = s.notifier.Send(ctx, NotifyInfo, "Redirecting to checkout", map[string]any{
		"session_id": session.SessionID,
	})

	return session, nil
}

// VerifySession fetches a session's provider status. Only "complete" maps to
// success; every other status is reported as-is so the caller can distinguish
// a still-open session from an expired one.
func (s *CheckoutService) VerifySession(ctx context.Context, sessionID string) (*models.PaymentVerification, error) {
	if sessionID == "" {
		return nil, status.New(status.KindValidation, "invalid session id")
	}

	verification, err := utils.Retry(ctx, "verifySession", s.maxRetries, s.retryDelay,
		func(ctx context.Context) (*models.PaymentVerification, error) {
			return s.getSession(ctx, sessionID)
		})
	if err != nil {
		monitoring.TrackCheckout("verify", "failed")
		return nil, err
	}

	monitoring.TrackCheckout("verify", verification.Status)
	slog.Info("payment verification completed", "session_id", sessionID, "status", verification.Status)
	return verification, nil
}

// CreatePaymentIntent requests a payment authorization for a single show.
// Amount is unit price x quantity in minor currency units. Deliberately not
// retried: the orchestrator owns retries at the task level so a partial
// failure inside one attempt can never double-charge.
func (s *CheckoutService) CreatePaymentIntent(ctx context.Context, eventID string, quantity int, unitPrice decimal.Decimal) (*models.PaymentIntent, error) {
	amount := unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Mul(decimal.NewFromInt(100)).IntPart()

	body, err := json.Marshal(map[string]any{
		"amount":   amount,
		"currency": "usd",
		"eventId":  eventID,
		"quantity": quantity,
	})
	if err != nil {
		return nil, fmt.Errorf("createPaymentIntent: json.Marshal: %w", err)
	}

	var intent models.PaymentIntent
	if err := s.post(ctx, "/api/payments/create-intent", body, &intent); err != nil {
		return nil, status.Classify(err)
	}

	slog.Info("payment intent created", "intent_id", intent.ID, "event_id", eventID)
	return &intent, nil
}

func (s *CheckoutService) postCheckoutSession(ctx context.Context, items []models.CheckoutItem, userID string, total decimal.Decimal) (*models.CheckoutSession, error) {
	body, err := json.Marshal(map[string]any{
		"items":       items,
		"userId":      userID,
		"totalAmount": total,
	})
	if err != nil {
		return nil, fmt.Errorf("createCheckoutSession: json.Marshal: %w", err)
	}

	var reply struct {
		Success     bool            `json:"success"`
		CheckoutURL string          `json:"checkoutUrl"`
		SessionID   string          `json:"sessionId"`
		Amount      decimal.Decimal `json:"amount"`
		Currency    string          `json:"currency"`
		Status      string          `json:"status"`
		Message     string          `json:"message"`
	}
	if err := s.post(ctx, "/api/payments/checkout-session", body, &reply); err != nil {
		return nil, err
	}
	if !reply.Success {
		return nil, status.New(status.KindUnknown, firstNonEmpty(reply.Message, "checkout session creation failed"))
	}

	return &models.CheckoutSession{
		SessionID:   reply.SessionID,
		CheckoutURL: reply.CheckoutURL,
		Amount:      reply.Amount,
		Currency:    reply.Currency,
		Status:      reply.Status,
	}, nil
}

func (s *CheckoutService) getSession(ctx context.Context, sessionID string) (*models.PaymentVerification, error) {
	endpoint := fmt.Sprintf("%s/api/payments/session/%s", s.baseURL, url.PathEscape(sessionID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("verifySession: http.NewRequestWithContext: %w", err)
	}
	req.Header.Set("x-api-key", s.apiKey)

	resp, err := s.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("verifySession: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		rbody, _ := io.ReadAll(resp.Body)
		return nil, status.FromHTTPStatus(resp.StatusCode, string(rbody))
	}

	var reply struct {
		Success   bool              `json:"success"`
		SessionID string            `json:"sessionId"`
		Status    string            `json:"status"`
		Amount    decimal.Decimal   `json:"amount"`
		Currency  string            `json:"currency"`
		Metadata  map[string]string `json:"metadata"`
		Message   string            `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, fmt.Errorf("verifySession: json.Decode: %w", err)
	}
	if !reply.Success {
		return nil, status.New(status.KindUnknown, firstNonEmpty(reply.Message, "payment verification failed"))
	}

	complete := reply.Status == "complete"
	message := "Payment incomplete"
	if complete {
		message = "Payment successful"
	}

	return &models.PaymentVerification{
		Success:       complete,
		Status:        reply.Status,
		TransactionID: reply.SessionID,
		Amount:        reply.Amount,
		Currency:      reply.Currency,
		Metadata:      reply.Metadata,
		Message:       message,
	}, nil
}

func (s *CheckoutService) post(ctx context.Context, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("checkout post: http.NewRequestWithContext: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", s.apiKey)

	resp, err := s.hc.Do(req)
	if err != nil {
		return fmt.Errorf("checkout post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		rbody, _ := io.ReadAll(resp.Body)
		return status.FromHTTPStatus(resp.StatusCode, string(rbody))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("checkout post: json.Decode: %w", err)
	}
	return nil
}

// cacheSession mirrors the session into redis so the UI can recover pending
// checkouts across restarts. Cache failures are logged, never surfaced.
func (s *CheckoutService) cacheSession(ctx context.Context, session *models.CheckoutSession, userID string) {
	if s.redis == nil {
		return
	}

	key := fmt.Sprintf("payment:%s", session.SessionID)
	fields := []any{
		"session_id", session.SessionID,
		"checkout_url", session.CheckoutURL,
		"amount", session.Amount.String(),
		"currency", session.Currency,
		"status", session.Status,
		"user_id", userID,
		"created_at", time.Now().Unix(),
	}
	if err := s.redis.HSet(ctx, key, fields...).Err(); err != nil {
		slog.Error("session cache write failed", "session_id", session.SessionID, "error", err)
		return
	}
	s.redis.Expire(ctx, key, s.sessionTTL)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
