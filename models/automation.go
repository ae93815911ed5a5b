package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TaskState is the automation task lifecycle.
type TaskState string

const (
	TaskWaiting TaskState = "waiting"
	TaskRunning TaskState = "running"
	TaskStopped TaskState = "stopped"
)

// PaymentMethod tags how a task confirms payment.
type PaymentMethod string

const (
	PaymentCreditCard PaymentMethod = "credit_card"
	PaymentPayPal     PaymentMethod = "paypal"
)

// AutomationTask is one tracked purchase-attempt chain for a show. Mutated
// only by the automation service.
type AutomationTask struct {
	EventID        string          `json:"event_id"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	PaymentMethod  PaymentMethod   `json:"payment_method"`
	RetryAttempts  int             `json:"retry_attempts"`
	RetryDelay     time.Duration   `json:"retry_delay"`
	State          TaskState       `json:"state"`
	Active         bool            `json:"active"`
	CreatedAt      time.Time       `json:"created_at"`
}

// PurchaseResult is the terminal outcome of a task's attempt chain. Emitted
// exactly once per chain and immutable afterwards.
type PurchaseResult struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	TransactionID string `json:"transaction_id,omitempty"`
}
