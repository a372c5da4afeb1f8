package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Error types for consistent error handling across the ledger, service and handlers.

// ErrInsufficientCreditLimit indicates a charge would push the balance past the credit limit.
type ErrInsufficientCreditLimit struct {
	Limit     decimal.Decimal
	Balance   decimal.Decimal
	Requested decimal.Decimal
}

func (e *ErrInsufficientCreditLimit) Error() string {
	return "Insufficient credit limit."
}

// Available returns the credit still open at the time of the failed charge.
func (e *ErrInsufficientCreditLimit) Available() decimal.Decimal {
	return e.Limit.Sub(e.Balance)
}

// ErrOverpayment indicates a payment larger than the outstanding balance.
// MaxAllowed is the balance after the accrual performed by the failed call.
type ErrOverpayment struct {
	MaxAllowed decimal.Decimal
}

func (e *ErrOverpayment) Error() string {
	return fmt.Sprintf("Maximum payment allowed is %s", e.MaxAllowed.StringFixed(2))
}

// ErrBackdatedTransaction indicates an operation whose prior day was already closed out.
type ErrBackdatedTransaction struct {
	Date        time.Time
	LastAccrual time.Time
}

func (e *ErrBackdatedTransaction) Error() string {
	return "Inaccurate Date. Cannot make backdated transactions."
}

// ErrValidation indicates a validation error (bad input).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrUnauthorized indicates a missing or invalid bearer token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}
