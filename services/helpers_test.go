package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
)

// recordingNotifier captures notifications for assertions.
type recordingNotifier struct {
	mu    sync.Mutex
	calls []recordedNotification
	err   error
}

type recordedNotification struct {
	Type    NotificationType
	Message string
}

func (n *recordingNotifier) Send(_ context.Context, typ NotificationType, message string, _ map[string]any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, recordedNotification{Type: typ, Message: message})
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

func (n *recordingNotifier) byType(typ NotificationType) []recordedNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []recordedNotification
	for _, call := range n.calls {
		if call.Type == typ {
			out = append(out, call)
		}
	}
	return out
}

// backendStub is a minimal inventory/payments backend for client tests with
// per-endpoint call counters.
type backendStub struct {
	srv *httptest.Server

	availableSeats int64
	price          decimal.Decimal

	showCalls   atomic.Int64
	intentCalls atomic.Int64
}

func newBackendStub(t *testing.T, availableSeats int, price decimal.Decimal) *backendStub {
	t.Helper()

	stub := &backendStub{price: price}
	stub.availableSeats = int64(availableSeats)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/shows", func(w http.ResponseWriter, r *http.Request) {
		seats := atomic.LoadInt64(&stub.availableSeats)
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"shows": []map[string]any{
				{"id": "evt-dear", "title": "Dear Show", "availableSeats": seats, "price": stub.price.Mul(decimal.NewFromInt(2))},
				{"id": "evt-cheap", "title": "Cheap Show", "availableSeats": seats, "price": stub.price},
			},
			"total": 2,
		})
	})
	mux.HandleFunc("GET /api/shows/{id}", func(w http.ResponseWriter, r *http.Request) {
		stub.showCalls.Add(1)
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"show": map[string]any{
				"id":             r.PathValue("id"),
				"title":          "Stub Show",
				"venue":          "Stub Hall",
				"availableSeats": atomic.LoadInt64(&stub.availableSeats),
				"price":          stub.price,
			},
		})
	})
	mux.HandleFunc("POST /api/payments/create-intent", func(w http.ResponseWriter, r *http.Request) {
		stub.intentCalls.Add(1)
		writeJSON(w, http.StatusOK, map[string]any{
			"id":            "pi_stub_1",
			"client_secret": "pi_stub_1_secret",
		})
	})

	stub.srv = httptest.NewServer(mux)
	t.Cleanup(stub.srv.Close)
	return stub
}

func (b *backendStub) url() string { return b.srv.URL }

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func confirmOK(context.Context, string) error { return nil }
