// Package service provides the business logic layer (use cases).
// LedgerService serializes access to the single credit card account and
// records every mutating call in an activity journal.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/boddenberg/creditline/internal/domain"
	"github.com/boddenberg/creditline/internal/infra/observability"
	"github.com/boddenberg/creditline/internal/ledger"
	"github.com/boddenberg/creditline/internal/port"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var ledgerTracer = otel.Tracer("service/ledger")

const (
	statusCompleted = "completed"
	statusRejected  = "rejected"
)

var _ port.CreditLine = (*LedgerService)(nil)

// LedgerService owns one account. Every call holds the lock for the whole
// accrual and mutation sequence.
type LedgerService struct {
	mu      sync.Mutex
	account *ledger.Account
	journal []domain.Activity

	metrics *observability.Metrics
	logger  *zap.Logger
	clock   func() time.Time
}

// NewLedgerService wraps an account. The wall clock is only used to stamp
// journal entries, never as a ledger date.
func NewLedgerService(account *ledger.Account, metrics *observability.Metrics, logger *zap.Logger) *LedgerService {
	return &LedgerService{
		account: account,
		metrics: metrics,
		logger:  logger,
		clock:   time.Now,
	}
}

// ============================================================
// Operations
// ============================================================

func (s *LedgerService) Charge(ctx context.Context, amount decimal.Decimal, on time.Time) (*domain.OperationResponse, error) {
	_, span := ledgerTracer.Start(ctx, "LedgerService.Charge")
	defer span.End()

	return s.apply(span, domain.OpCharge, amount, on, s.account.Charge)
}

func (s *LedgerService) Payment(ctx context.Context, amount decimal.Decimal, on time.Time) (*domain.OperationResponse, error) {
	_, span := ledgerTracer.Start(ctx, "LedgerService.Payment")
	defer span.End()

	return s.apply(span, domain.OpPayment, amount, on, s.account.Payment)
}

// Balance accrues through the day before on and reports the balance line.
func (s *LedgerService) Balance(ctx context.Context, on time.Time) (*domain.BalanceResponse, error) {
	_, span := ledgerTracer.Start(ctx, "LedgerService.Balance")
	defer span.End()

	date := ledger.NormalizeDate(on)
	span.SetAttributes(attribute.String("ledger.date", ledger.FormatDate(date)))
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.account.Statement(date)
	s.observe(domain.OpBalance, err, start)
	if err != nil {
		s.reject(span, domain.OpBalance, decimal.Zero, date, err)
		return nil, err
	}

	return &domain.BalanceResponse{
		Date:    ledger.FormatDate(date),
		Days:    st.DaysOpen,
		Balance: st.Balance,
		Message: ledger.FormatStatement(st),
	}, nil
}

func (s *LedgerService) Snapshot(ctx context.Context) domain.AccountSnapshot {
	_, span := ledgerTracer.Start(ctx, "LedgerService.Snapshot")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.account.Snapshot()
}

// Activity returns a copy of the journal, oldest first.
func (s *LedgerService) Activity(ctx context.Context) []domain.Activity {
	_, span := ledgerTracer.Start(ctx, "LedgerService.Activity")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Activity, len(s.journal))
	copy(out, s.journal)
	return out
}

// ============================================================
// Helpers
// ============================================================

func (s *LedgerService) apply(
	span trace.Span,
	kind domain.OperationKind,
	amount decimal.Decimal,
	on time.Time,
	op func(decimal.Decimal, time.Time) error,
) (*domain.OperationResponse, error) {
	date := ledger.NormalizeDate(on)
	span.SetAttributes(
		attribute.String("ledger.date", ledger.FormatDate(date)),
		attribute.String("ledger.amount", amount.String()),
	)
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	err := op(amount, date)
	entry := domain.Activity{
		ID:         uuid.NewString(),
		Kind:       kind,
		Amount:     amount,
		Date:       ledger.FormatDate(date),
		Balance:    s.account.Balance(),
		Status:     statusCompleted,
		RecordedAt: s.clock(),
	}
	if err != nil {
		entry.Status = statusRejected
		entry.Error = err.Error()
	}
	s.journal = append(s.journal, entry)
	s.observe(kind, err, start)

	if err != nil {
		s.reject(span, kind, amount, date, err)
		return nil, err
	}

	s.logger.Info("ledger operation applied",
		zap.String("activity_id", entry.ID),
		zap.String("operation", string(kind)),
		zap.String("amount", amount.StringFixed(2)),
		zap.String("date", entry.Date),
		zap.String("balance", entry.Balance.StringFixed(2)),
	)

	return &domain.OperationResponse{
		ActivityID:      entry.ID,
		Kind:            kind,
		Amount:          amount,
		Date:            entry.Date,
		Balance:         entry.Balance,
		AvailableCredit: s.account.AvailableCredit(),
	}, nil
}

// observe must be called with the lock held.
func (s *LedgerService) observe(kind domain.OperationKind, err error, start time.Time) {
	outcome := statusCompleted
	if err != nil {
		outcome = statusRejected
	}
	s.metrics.RecordOperation(string(kind), outcome, time.Since(start))
	s.metrics.SetAccountState(s.account.Balance(), s.account.AccruedInterest())
}

func (s *LedgerService) reject(span trace.Span, kind domain.OperationKind, amount decimal.Decimal, date time.Time, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	fields := []zap.Field{
		zap.String("operation", string(kind)),
		zap.String("amount", amount.StringFixed(2)),
		zap.String("date", ledger.FormatDate(date)),
		zap.Error(err),
	}

	var validation *domain.ErrValidation
	if errors.As(err, &validation) {
		s.logger.Debug("ledger operation invalid", fields...)
		return
	}
	s.logger.Warn("ledger operation rejected", fields...)
}
