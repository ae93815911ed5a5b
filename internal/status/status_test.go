package status

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_PassesThroughClassifiedErrors(t *testing.T) {
	original := New(KindRateLimited, "slow down")
	wrapped := fmt.Errorf("outer: %w", original)

	got := Classify(wrapped)
	assert.Same(t, original, got)
}

func TestClassify_Nil(t *testing.T) {
	assert.Nil(t, Classify(nil))
}

func TestClassify_Taxonomy(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind Kind
	}{
		{"deadline exceeded", context.DeadlineExceeded, KindNetwork},
		{"connection refused", errors.New("dial tcp: connection refused"), KindNetwork},
		{"timeout message", errors.New("client timeout exceeded"), KindNetwork},
		{"session expired", errors.New("Session expired, start a new checkout"), KindSessionExpired},
		{"invalid input", errors.New("Invalid quantity"), KindValidation},
		{"unavailable", errors.New("tickets unavailable"), KindUnavailable},
		{"catch-all", errors.New("something odd happened"), KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.kind, got.Kind)
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestFromHTTPStatus(t *testing.T) {
	tests := []struct {
		code int
		body string
		kind Kind
	}{
		{http.StatusTooManyRequests, "", KindRateLimited},
		{http.StatusRequestTimeout, "", KindNetwork},
		{http.StatusNotFound, "", KindUnavailable},
		{http.StatusConflict, "", KindSessionExpired},
		{http.StatusGone, "", KindSessionExpired},
		{http.StatusOK, "session expired", KindSessionExpired},
		{http.StatusUnauthorized, `{"success":false,"error":"Unauthorized"}`, KindValidation},
		{http.StatusBadRequest, "insufficient", KindValidation},
		{http.StatusInternalServerError, "", KindServer},
		{http.StatusBadGateway, "", KindServer},
		{http.StatusTeapot, "", KindUnknown},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_%s", tt.code, tt.body), func(t *testing.T) {
			got := FromHTTPStatus(tt.code, tt.body)
			assert.Equal(t, tt.kind, got.Kind)
			assert.Equal(t, fmt.Sprintf("HTTP_%d", tt.code), got.Code)
		})
	}
}

func TestRetryable(t *testing.T) {
	retryable := []Kind{KindNetwork, KindRateLimited, KindServer, KindUnknown}
	for _, k := range retryable {
		assert.True(t, New(k, "x").Retryable(), k.String())
	}

	terminal := []Kind{KindSessionExpired, KindValidation, KindUnavailable}
	for _, k := range terminal {
		assert.False(t, New(k, "x").Retryable(), k.String())
	}
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, "validation: bad input", New(KindValidation, "bad input").Error())

	withCode := FromHTTPStatus(http.StatusTooManyRequests, "slow down")
	assert.Equal(t, "rate_limited (HTTP_429): slow down", withCode.Error())
}
