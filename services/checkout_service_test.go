package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticket-sniper/internal/status"
	"ticket-sniper/models"
)

func newCheckout(url string, notifier Notifier) *CheckoutService {
	return NewCheckoutService(url, "test-key", nil, notifier, 3, time.Millisecond, 10*time.Minute)
}

func TestCreateCheckoutSession_ValidationMakesNoRequests(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	checkout := newCheckout(srv.URL, nil)

	cases := []struct {
		name  string
		items []models.CheckoutItem
	}{
		{"no items", nil},
		{"zero quantity", []models.CheckoutItem{{ShowID: "evt-1", Quantity: 0, Price: decimal.NewFromInt(50)}}},
		{"zero price", []models.CheckoutItem{{ShowID: "evt-1", Quantity: 2, Price: decimal.Zero}}},
		{"negative price", []models.CheckoutItem{{ShowID: "evt-1", Quantity: 1, Price: decimal.NewFromInt(-5)}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := checkout.CreateCheckoutSession(context.Background(), tc.items, "user-1")
			require.Error(t, err)

			var serr *status.Error
			require.ErrorAs(t, err, &serr)
			assert.Equal(t, status.KindValidation, serr.Kind)
		})
	}

	assert.Equal(t, int64(0), calls.Load())
}

func TestCreateCheckoutSession_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/payments/checkout-session", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))

		var req struct {
			Items       []models.CheckoutItem `json:"items"`
			UserID      string                `json:"userId"`
			TotalAmount decimal.Decimal       `json:"totalAmount"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "user-1", req.UserID)
		assert.True(t, req.TotalAmount.Equal(decimal.NewFromInt(170)))

		writeJSON(w, http.StatusOK, map[string]any{
			"success":     true,
			"sessionId":   "cs_test_1",
			"checkoutUrl": "https://checkout.example.com/pay/cs_test_1",
			"amount":      170,
			"currency":    "usd",
			"status":      "open",
		})
	}))
	defer srv.Close()

	notifier := &recordingNotifier{}
	checkout := newCheckout(srv.URL, notifier)

	session, err := checkout.CreateCheckoutSession(context.Background(), []models.CheckoutItem{
		{ShowID: "evt-1", Quantity: 2, Price: decimal.NewFromInt(85)},
	}, "user-1")
	require.NoError(t, err)

	assert.Equal(t, "cs_test_1", session.SessionID)
	assert.Equal(t, "https://checkout.example.com/pay/cs_test_1", session.CheckoutURL)
	assert.Equal(t, "open", session.Status)
	assert.Len(t, notifier.byType(NotifyInfo), 1)
}

func TestCreateCheckoutSession_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":   true,
			"sessionId": "cs_test_2",
			"amount":    50,
			"currency":  "usd",
			"status":    "open",
		})
	}))
	defer srv.Close()

	checkout := newCheckout(srv.URL, nil)
	session, err := checkout.CreateCheckoutSession(context.Background(), []models.CheckoutItem{
		{ShowID: "evt-1", Quantity: 1, Price: decimal.NewFromInt(50)},
	}, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "cs_test_2", session.SessionID)
	assert.Equal(t, int64(2), calls.Load())
}

func TestCreateCheckoutSession_CachesToRedis(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"success":     true,
			"sessionId":   "cs_cache_1",
			"checkoutUrl": "https://checkout.example.com/pay/cs_cache_1",
			"amount":      85,
			"currency":    "usd",
			"status":      "open",
		})
	}))
	defer srv.Close()

	db, mock := redismock.NewClientMock()
	// created_at is wall-clock, so compare every arg except the trailing
	// timestamp value.
	mock.CustomMatch(func(expected, actual []interface{}) error {
		if len(actual) != len(expected) {
			return fmt.Errorf("hset arg count mismatch: want %d, got %d", len(expected), len(actual))
		}
		for i := range expected[:len(expected)-1] {
			if fmt.Sprint(expected[i]) != fmt.Sprint(actual[i]) {
				return fmt.Errorf("hset arg %d mismatch: want %v, got %v", i, expected[i], actual[i])
			}
		}
		return nil
	}).ExpectHSet("payment:cs_cache_1",
		"session_id", "cs_cache_1",
		"checkout_url", "https://checkout.example.com/pay/cs_cache_1",
		"amount", "85",
		"currency", "usd",
		"status", "open",
		"user_id", "user-1",
		"created_at", 0,
	).SetVal(7)
	mock.ExpectExpire("payment:cs_cache_1", 10*time.Minute).SetVal(true)

	checkout := NewCheckoutService(srv.URL, "test-key", db, nil, 3, time.Millisecond, 10*time.Minute)
	_, err := checkout.CreateCheckoutSession(context.Background(), []models.CheckoutItem{
		{ShowID: "evt-1", Quantity: 1, Price: decimal.NewFromInt(85)},
	}, "user-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifySession_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/payments/session/cs_done", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]any{
			"success":   true,
			"sessionId": "cs_done",
			"status":    "complete",
			"amount":    85,
			"currency":  "usd",
			"metadata":  map[string]string{"eventId": "evt-1"},
		})
	}))
	defer srv.Close()

	checkout := newCheckout(srv.URL, nil)
	verification, err := checkout.VerifySession(context.Background(), "cs_done")
	require.NoError(t, err)

	assert.True(t, verification.Success)
	assert.Equal(t, "complete", verification.Status)
	assert.Equal(t, "cs_done", verification.TransactionID)
	assert.Equal(t, "Payment successful", verification.Message)
	assert.Equal(t, "evt-1", verification.Metadata["eventId"])
}

func TestVerifySession_OpenIsNotSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"success":   true,
			"sessionId": "cs_open",
			"status":    "open",
			"amount":    85,
			"currency":  "usd",
		})
	}))
	defer srv.Close()

	checkout := newCheckout(srv.URL, nil)
	verification, err := checkout.VerifySession(context.Background(), "cs_open")
	require.NoError(t, err)

	assert.False(t, verification.Success)
	assert.Equal(t, "open", verification.Status)
	assert.Equal(t, "Payment incomplete", verification.Message)
}

func TestVerifySession_Expired(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusGone)
	}))
	defer srv.Close()

	checkout := newCheckout(srv.URL, nil)
	_, err := checkout.VerifySession(context.Background(), "cs_stale")
	require.Error(t, err)

	var serr *status.Error
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, status.KindSessionExpired, serr.Kind)
	// Session expiry is terminal; no point retrying it.
	assert.Equal(t, int64(1), calls.Load())
}

func TestVerifySession_EmptyID(t *testing.T) {
	checkout := newCheckout("http://unused", nil)
	_, err := checkout.VerifySession(context.Background(), "")
	require.Error(t, err)

	var serr *status.Error
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, status.KindValidation, serr.Kind)
}

func TestCreatePaymentIntent_AmountInMinorUnits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Amount   int64  `json:"amount"`
			Currency string `json:"currency"`
			EventID  string `json:"eventId"`
			Quantity int    `json:"quantity"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, int64(17000), req.Amount)
		assert.Equal(t, "usd", req.Currency)
		assert.Equal(t, "evt-1", req.EventID)
		assert.Equal(t, 2, req.Quantity)

		writeJSON(w, http.StatusOK, map[string]any{
			"id":            "pi_test_1",
			"client_secret": "pi_test_1_secret",
		})
	}))
	defer srv.Close()

	checkout := newCheckout(srv.URL, nil)
	intent, err := checkout.CreatePaymentIntent(context.Background(), "evt-1", 2, decimal.NewFromInt(85))
	require.NoError(t, err)
	assert.Equal(t, "pi_test_1", intent.ID)
	assert.Equal(t, "pi_test_1_secret", intent.ClientSecret)
}

func TestCreatePaymentIntent_NoRetry(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	checkout := newCheckout(srv.URL, nil)
	_, err := checkout.CreatePaymentIntent(context.Background(), "evt-1", 1, decimal.NewFromInt(85))
	require.Error(t, err)
	assert.Equal(t, int64(1), calls.Load())
}
