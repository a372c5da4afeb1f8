// Package port defines the interfaces (ports) between the HTTP layer and
// the ledger service, so handlers can be exercised against fakes.
package port

import (
	"context"
	"time"

	"github.com/boddenberg/creditline/internal/domain"

	"github.com/shopspring/decimal"
)

// CreditLine is the use-case surface of the single credit card account.
type CreditLine interface {
	Charge(ctx context.Context, amount decimal.Decimal, on time.Time) (*domain.OperationResponse, error)
	Payment(ctx context.Context, amount decimal.Decimal, on time.Time) (*domain.OperationResponse, error)
	Balance(ctx context.Context, on time.Time) (*domain.BalanceResponse, error)
	Snapshot(ctx context.Context) domain.AccountSnapshot
	Activity(ctx context.Context) []domain.Activity
}
