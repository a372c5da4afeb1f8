// Package ledger implements a single revolving-credit account that accrues
// daily interest on its outstanding balance.
//
// Interest for closed days is accrued lazily, whenever an operation is
// applied, and posted into the balance once the billing cycle reaches its
// 30th day. Dates are always supplied by the caller; the package never
// reads the wall clock.
//
// An Account is not safe for concurrent use.
package ledger

import (
	"fmt"
	"time"

	"github.com/boddenberg/creditline/internal/domain"

	"github.com/shopspring/decimal"
)

const (
	// postingAge is the zero-indexed cycle day from which accrued interest
	// is folded into the balance on every accrual.
	postingAge = 29

	// gracePeriodDays bounds the cycle age within which a full payoff
	// forgives all accrued interest.
	gracePeriodDays = 30

	ratePrecision = 20
)

var (
	hundred     = decimal.NewFromInt(100)
	daysPerYear = decimal.NewFromInt(365)
)

// Account is a credit card account with a fixed limit and APR.
type Account struct {
	limit     decimal.Decimal
	apr       decimal.Decimal
	dailyRate decimal.Decimal

	balance decimal.Decimal
	accrued decimal.Decimal

	openedOn    time.Time
	lastAccrual time.Time
}

// NewAccount opens an account. apr is a percentage: 35 means 35%.
// The opening date is normalized to a calendar day.
func NewAccount(limit, apr decimal.Decimal, openedOn time.Time) *Account {
	opened := NormalizeDate(openedOn)
	return &Account{
		limit:       limit,
		apr:         apr,
		dailyRate:   apr.Div(hundred).DivRound(daysPerYear, ratePrecision),
		balance:     decimal.Zero,
		accrued:     decimal.Zero,
		openedOn:    opened,
		lastAccrual: opened.Add(-day),
	}
}

func (a *Account) Limit() decimal.Decimal           { return a.limit }
func (a *Account) APR() decimal.Decimal             { return a.apr }
func (a *Account) DailyRate() decimal.Decimal       { return a.dailyRate }
func (a *Account) Balance() decimal.Decimal         { return a.balance }
func (a *Account) AccruedInterest() decimal.Decimal { return a.accrued }
func (a *Account) OpenedOn() time.Time              { return a.openedOn }
func (a *Account) LastAccrual() time.Time           { return a.lastAccrual }

// AvailableCredit is the limit minus the outstanding balance.
func (a *Account) AvailableCredit() decimal.Decimal {
	return a.limit.Sub(a.balance)
}

// Charge adds amount to the balance on the given date.
// Interest accrued before the limit check is kept even if the charge is refused.
func (a *Account) Charge(amount decimal.Decimal, on time.Time) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	if _, err := a.accrueThrough(NormalizeDate(on)); err != nil {
		return err
	}

	if amount.Add(a.balance).GreaterThan(a.limit) {
		return &domain.ErrInsufficientCreditLimit{
			Limit:     a.limit,
			Balance:   a.balance,
			Requested: amount,
		}
	}
	a.balance = a.balance.Add(amount)
	return nil
}

// Payment subtracts amount from the balance on the given date.
//
// A payoff inside the first 30 days of the cycle forgives the accrued
// interest. A later payoff puts the unposted interest back on the balance
// and, if that still leaves nothing owed, restarts the cycle on the
// payment date.
func (a *Account) Payment(amount decimal.Decimal, on time.Time) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	today := NormalizeDate(on)
	dayBefore, err := a.accrueThrough(today)
	if err != nil {
		return err
	}

	if amount.GreaterThan(a.balance) {
		return &domain.ErrOverpayment{MaxAllowed: a.balance}
	}
	a.balance = a.balance.Sub(amount)
	if a.balance.IsPositive() {
		return nil
	}

	// The balance is not clamped at zero here.
	if daysBetween(a.openedOn, dayBefore) < gracePeriodDays {
		a.accrued = decimal.Zero
		return nil
	}

	a.balance = a.balance.Add(a.accrued)
	a.accrued = decimal.Zero
	if !a.balance.IsPositive() {
		a.openedOn = today
	}
	return nil
}

// Statement brings interest up to date through the day before on and
// reports the cycle age and balance as of on.
func (a *Account) Statement(on time.Time) (domain.Statement, error) {
	date := NormalizeDate(on)
	if _, err := a.accrueThrough(date); err != nil {
		return domain.Statement{}, err
	}
	return domain.Statement{
		Date:     date,
		DaysOpen: daysBetween(a.openedOn, date),
		Balance:  a.balance,
	}, nil
}

// BalanceAsOf returns the customer-facing balance line for the given date.
func (a *Account) BalanceAsOf(on time.Time) (string, error) {
	st, err := a.Statement(on)
	if err != nil {
		return "", err
	}
	return FormatStatement(st), nil
}

// FormatStatement renders a statement as the customer-facing balance line.
func FormatStatement(st domain.Statement) string {
	return fmt.Sprintf("%d days after account opening. Current balance due: $%s",
		st.DaysOpen, st.Balance.StringFixed(2))
}

// Snapshot returns the current state without accruing.
func (a *Account) Snapshot() domain.AccountSnapshot {
	return domain.AccountSnapshot{
		CreditLimit:     a.limit,
		APR:             a.apr,
		DailyRate:       a.dailyRate,
		Balance:         a.balance,
		AccruedInterest: a.accrued,
		AvailableCredit: a.AvailableCredit(),
		OpeningDate:     FormatDate(a.openedOn),
		LastAccrualDate: FormatDate(a.lastAccrual),
	}
}

// accrueThrough closes out every day up to the day before on and returns
// that day. Nothing is mutated when the call is backdated.
func (a *Account) accrueThrough(on time.Time) (time.Time, error) {
	dayBefore := on.Add(-day)
	if dayBefore.Before(a.lastAccrual) {
		return time.Time{}, &domain.ErrBackdatedTransaction{Date: on, LastAccrual: a.lastAccrual}
	}

	// One lump at the current balance; no compounding inside the span.
	if !dayBefore.Equal(a.lastAccrual) {
		days := decimal.NewFromInt(int64(daysBetween(a.lastAccrual, dayBefore)))
		a.accrued = a.accrued.Add(a.balance.Mul(a.dailyRate).Mul(days))
		a.lastAccrual = dayBefore
	}

	if daysBetween(a.openedOn, dayBefore) >= postingAge {
		a.balance = a.balance.Add(a.accrued)
		a.accrued = decimal.Zero
	}
	return dayBefore, nil
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return &domain.ErrValidation{Field: "amount", Message: "must be positive"}
	}
	return nil
}
