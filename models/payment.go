package models

import (
	"github.com/shopspring/decimal"
)

// CheckoutItem is one line in a checkout session request.
type CheckoutItem struct {
	ShowID   string          `json:"showId"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Title    string          `json:"title"`
}

// CheckoutSession mirrors the payment provider's hosted session. Status
// transitions (open -> complete | expired) are owned by the provider and only
// observed here.
type CheckoutSession struct {
	SessionID   string          `json:"sessionId"`
	CheckoutURL string          `json:"checkoutUrl"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Status      string          `json:"status"`
}

// PaymentVerification is the observed state of a checkout session.
type PaymentVerification struct {
	Success       bool              `json:"success"`
	Status        string            `json:"status"`
	TransactionID string            `json:"transactionId,omitempty"`
	Amount        decimal.Decimal   `json:"amount"`
	Currency      string            `json:"currency,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	Message       string            `json:"message,omitempty"`
}

// PaymentIntent is the authorization handle returned before a purchase is
// confirmed.
type PaymentIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
}
