// Package scenario replays scripted account histories against a fresh
// ledger and checks each step against its expected outcome.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/boddenberg/creditline/internal/domain"
	"github.com/boddenberg/creditline/internal/infra/observability"
	"github.com/boddenberg/creditline/internal/ledger"
	"github.com/boddenberg/creditline/internal/service"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Error kinds accepted by expect_error.
const (
	KindInsufficientCreditLimit = "insufficient_credit_limit"
	KindOverpayment             = "overpayment"
	KindBackdated               = "backdated"
	KindValidation              = "validation"
)

// Scenario is one scripted account history.
type Scenario struct {
	Name    string `yaml:"name"`
	Account Terms  `yaml:"account"`
	Steps   []Step `yaml:"steps"`
}

// Terms are the account's opening parameters.
type Terms struct {
	Limit  string `yaml:"limit"`
	APR    string `yaml:"apr"`
	Opened string `yaml:"opened"`
}

// Step is a single operation. Expect is compared against the balance line
// of a balance step, or against the resulting balance of a charge or
// payment (two decimals).
type Step struct {
	Op          string `yaml:"op"`
	Amount      string `yaml:"amount"`
	Date        string `yaml:"date"`
	Expect      string `yaml:"expect"`
	ExpectError string `yaml:"expect_error"`
}

// StepResult is the outcome of one step.
type StepResult struct {
	Index  int
	Op     string
	Date   string
	Output string
	Err    error
	Passed bool
	Detail string
}

// Result collects the step results of a run.
type Result struct {
	Name  string
	Steps []StepResult
}

// Failed reports the number of failed steps.
func (r *Result) Failed() int {
	n := 0
	for _, s := range r.Steps {
		if !s.Passed {
			n++
		}
	}
	return n
}

// Load decodes a scenario document.
func Load(r io.Reader) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	if len(s.Steps) == 0 {
		return nil, &domain.ErrValidation{Field: "steps", Message: "scenario has no steps"}
	}
	for i, step := range s.Steps {
		switch step.Op {
		case string(domain.OpCharge), string(domain.OpPayment), string(domain.OpBalance):
		default:
			return nil, &domain.ErrValidation{Field: fmt.Sprintf("steps[%d].op", i), Message: fmt.Sprintf("unknown operation %q", step.Op)}
		}
		switch step.ExpectError {
		case "", KindInsufficientCreditLimit, KindOverpayment, KindBackdated, KindValidation:
		default:
			return nil, &domain.ErrValidation{Field: fmt.Sprintf("steps[%d].expect_error", i), Message: fmt.Sprintf("unknown error kind %q", step.ExpectError)}
		}
	}
	return &s, nil
}

// Run opens a fresh account from the scenario terms and applies every step.
// Mismatches are recorded as failed steps; only unusable account terms
// abort the run.
func Run(ctx context.Context, s *Scenario, logger *zap.Logger) (*Result, error) {
	limit, err := parseAmount("account.limit", s.Account.Limit)
	if err != nil {
		return nil, err
	}
	apr, err := parseAmount("account.apr", s.Account.APR)
	if err != nil {
		return nil, err
	}
	opened, err := ledger.ParseDate(s.Account.Opened)
	if err != nil {
		return nil, err
	}

	log := logger.With(zap.String("scenario", s.Name))
	svc := service.NewLedgerService(ledger.NewAccount(limit, apr, opened), observability.NewMetrics(), log)

	res := &Result{Name: s.Name, Steps: make([]StepResult, 0, len(s.Steps))}
	for i, step := range s.Steps {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		sr := StepResult{Index: i + 1, Op: step.Op, Date: step.Date}
		sr.Output, sr.Err = apply(ctx, svc, step)
		sr.Passed, sr.Detail = check(step, sr.Output, sr.Err)
		if !sr.Passed {
			log.Warn("scenario step failed",
				zap.Int("step", sr.Index),
				zap.String("operation", step.Op),
				zap.String("detail", sr.Detail),
			)
		}
		res.Steps = append(res.Steps, sr)
	}
	return res, nil
}

func apply(ctx context.Context, svc *service.LedgerService, step Step) (string, error) {
	on, err := ledger.ParseDate(step.Date)
	if err != nil {
		return "", err
	}

	if step.Op == string(domain.OpBalance) {
		resp, err := svc.Balance(ctx, on)
		if err != nil {
			return "", err
		}
		return resp.Message, nil
	}

	amount, err := parseAmount("amount", step.Amount)
	if err != nil {
		return "", err
	}
	var resp *domain.OperationResponse
	if step.Op == string(domain.OpCharge) {
		resp, err = svc.Charge(ctx, amount, on)
	} else {
		resp, err = svc.Payment(ctx, amount, on)
	}
	if err != nil {
		return "", err
	}
	return resp.Balance.StringFixed(2), nil
}

func check(step Step, output string, err error) (bool, string) {
	if step.ExpectError != "" {
		if err == nil {
			return false, fmt.Sprintf("expected %s error, got %q", step.ExpectError, output)
		}
		if got := ErrorKind(err); got != step.ExpectError {
			return false, fmt.Sprintf("expected %s error, got %v", step.ExpectError, err)
		}
		return true, ""
	}
	if err != nil {
		return false, fmt.Sprintf("unexpected error: %v", err)
	}
	if step.Expect != "" && step.Expect != output {
		return false, fmt.Sprintf("expected %q, got %q", step.Expect, output)
	}
	return true, ""
}

// ErrorKind classifies a ledger error by its expect_error name.
// Unknown errors yield "".
func ErrorKind(err error) string {
	var overLimit *domain.ErrInsufficientCreditLimit
	var overpayment *domain.ErrOverpayment
	var backdated *domain.ErrBackdatedTransaction
	var validation *domain.ErrValidation

	switch {
	case errors.As(err, &overLimit):
		return KindInsufficientCreditLimit
	case errors.As(err, &overpayment):
		return KindOverpayment
	case errors.As(err, &backdated):
		return KindBackdated
	case errors.As(err, &validation):
		return KindValidation
	default:
		return ""
	}
}

func parseAmount(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &domain.ErrValidation{Field: field, Message: fmt.Sprintf("not a number: %q", s)}
	}
	return d, nil
}
