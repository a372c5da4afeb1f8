package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Credit line account
// ============================================================

// AccountSnapshot is a read-only view of the account state.
type AccountSnapshot struct {
	CreditLimit     decimal.Decimal `json:"credit_limit"`
	APR             decimal.Decimal `json:"apr"`
	DailyRate       decimal.Decimal `json:"daily_rate"`
	Balance         decimal.Decimal `json:"outstanding_balance"`
	AccruedInterest decimal.Decimal `json:"accrued_interest"`
	AvailableCredit decimal.Decimal `json:"available_credit"`
	OpeningDate     string          `json:"opening_date"`     // YYYY-MM-DD
	LastAccrualDate string          `json:"last_accrual_date"` // YYYY-MM-DD
}

// Statement is the structured result of a balance query.
type Statement struct {
	Date     time.Time       `json:"-"`
	DaysOpen int             `json:"days"`
	Balance  decimal.Decimal `json:"balance"`
}

// OperationKind names a ledger operation.
type OperationKind string

const (
	OpCharge  OperationKind = "charge"
	OpPayment OperationKind = "payment"
	OpBalance OperationKind = "balance"
)

// Activity is a journal row for one mutating call, successful or not.
type Activity struct {
	ID         string          `json:"id"`
	Kind       OperationKind   `json:"kind"`
	Amount     decimal.Decimal `json:"amount"`
	Date       string          `json:"date"` // YYYY-MM-DD
	Balance    decimal.Decimal `json:"balance_after"`
	Status     string          `json:"status"` // completed, rejected
	Error      string          `json:"error,omitempty"`
	RecordedAt time.Time       `json:"recorded_at"`
}

// ============================================================
// API request / response types
// ============================================================

// OperationRequest is the body for POST /v1/account/charges and /v1/account/payments.
// Date accepts an ISO date, an ISO date-time or a millisecond timestamp.
type OperationRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Date   any             `json:"date"`
}

// OperationResponse is returned after a successful charge or payment.
type OperationResponse struct {
	ActivityID      string          `json:"activityId"`
	Kind            OperationKind   `json:"kind"`
	Amount          decimal.Decimal `json:"amount"`
	Date            string          `json:"date"`
	Balance         decimal.Decimal `json:"balance"`
	AvailableCredit decimal.Decimal `json:"availableCredit"`
}

// BalanceResponse is returned by GET /v1/account/balance.
type BalanceResponse struct {
	Date    string          `json:"date"`
	Days    int             `json:"days"`
	Balance decimal.Decimal `json:"balance"`
	Message string          `json:"message"`
}
