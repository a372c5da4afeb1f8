package scenario_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/boddenberg/creditline/internal/domain"
	"github.com/boddenberg/creditline/internal/scenario"

	"go.uber.org/zap"
)

func TestRun_Testdata(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "*.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if len(files) == 0 {
		t.Fatal("no scenario files found")
	}

	for _, file := range files {
		t.Run(filepath.Base(file), func(t *testing.T) {
			f, err := os.Open(file)
			if err != nil {
				t.Fatal(err)
			}
			defer f.Close()

			s, err := scenario.Load(f)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			res, err := scenario.Run(context.Background(), s, zap.NewNop())
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			for _, step := range res.Steps {
				if !step.Passed {
					t.Errorf("step %d (%s %s): %s", step.Index, step.Op, step.Date, step.Detail)
				}
			}
		})
	}
}

func TestRun_MismatchIsReportedNotAborted(t *testing.T) {
	doc := `
name: wrong-expectations
account: {limit: "1000", apr: "35", opened: "2018-01-01"}
steps:
  - {op: charge, amount: "500", date: "2018-01-01", expect: "499.00"}
  - {op: charge, amount: "100", date: "2018-01-02", expect_error: overpayment}
  - {op: payment, amount: "50", date: "2018-01-03"}
  - {op: payment, amount: "5000", date: "2018-01-04"}
`
	s, err := scenario.Load(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	res, err := scenario.Run(context.Background(), s, zap.NewNop())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(res.Steps) != 4 {
		t.Fatalf("steps = %d, want 4", len(res.Steps))
	}
	wantPassed := []bool{false, false, true, false}
	for i, want := range wantPassed {
		if res.Steps[i].Passed != want {
			t.Errorf("step %d passed = %v, want %v (%s)", i+1, res.Steps[i].Passed, want, res.Steps[i].Detail)
		}
	}
	if res.Failed() != 3 {
		t.Errorf("Failed() = %d, want 3", res.Failed())
	}
	if res.Steps[0].Output != "500.00" {
		t.Errorf("output = %q, want 500.00", res.Steps[0].Output)
	}
	if scenario.ErrorKind(res.Steps[3].Err) != scenario.KindOverpayment {
		t.Errorf("step 4 error = %v", res.Steps[3].Err)
	}
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not yaml", "name: [unterminated"},
		{"no steps", "name: empty\naccount: {limit: \"1\", apr: \"1\", opened: \"2018-01-01\"}\n"},
		{"unknown op", "steps:\n  - {op: refund, amount: \"1\", date: \"2018-01-01\"}\n"},
		{"unknown error kind", "steps:\n  - {op: charge, amount: \"1\", date: \"2018-01-01\", expect_error: boom}\n"},
		{"unknown field", "steps:\n  - {op: charge, amont: \"1\", date: \"2018-01-01\"}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := scenario.Load(strings.NewReader(tt.doc)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestRun_BadTerms(t *testing.T) {
	s := &scenario.Scenario{
		Account: scenario.Terms{Limit: "lots", APR: "35", Opened: "2018-01-01"},
		Steps:   []scenario.Step{{Op: "balance", Date: "2018-01-02"}},
	}
	_, err := scenario.Run(context.Background(), s, zap.NewNop())
	var validation *domain.ErrValidation
	if !errors.As(err, &validation) || validation.Field != "account.limit" {
		t.Errorf("expected account.limit validation error, got %v", err)
	}
}

func TestRun_CancelledContext(t *testing.T) {
	s := &scenario.Scenario{
		Account: scenario.Terms{Limit: "1000", APR: "35", Opened: "2018-01-01"},
		Steps:   []scenario.Step{{Op: "balance", Date: "2018-01-02"}},
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := scenario.Run(ctx, s, zap.NewNop())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if res == nil || len(res.Steps) != 0 {
		t.Errorf("expected an empty partial result, got %+v", res)
	}
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&domain.ErrInsufficientCreditLimit{}, scenario.KindInsufficientCreditLimit},
		{&domain.ErrOverpayment{}, scenario.KindOverpayment},
		{&domain.ErrBackdatedTransaction{}, scenario.KindBackdated},
		{&domain.ErrValidation{}, scenario.KindValidation},
		{errors.New("other"), ""},
	}
	for _, tt := range tests {
		if got := scenario.ErrorKind(tt.err); got != tt.want {
			t.Errorf("ErrorKind(%T) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
