package pricing

import (
	"testing"

	"mypalette/internal/domain/opencalls"
)

func TestEvaluateFirstSubmissionIsFree(t *testing.T) {
	p := DefaultPolicy()
	for n := 0; n < 6; n++ {
		d := p.Evaluate(false, n, p.FlatFee)
		if !d.CanSubmit || !d.IsFree || !d.AmountDue.IsZero() {
			t.Fatalf("count %d: expected free eligible submission, got %+v", n, d)
		}
	}
}

func TestEvaluateChargesBaseFeeAfterPriorPaid(t *testing.T) {
	p := DefaultPolicy()
	for n := 0; n < 6; n++ {
		d := p.Evaluate(true, n, p.FlatFee)
		if !d.CanSubmit || d.IsFree || d.AmountDue != Money(200) {
			t.Fatalf("count %d: expected 2.00 due, got %+v", n, d)
		}
	}
}

func TestEvaluateCapOverridesEverything(t *testing.T) {
	p := DefaultPolicy()
	for _, n := range []int{6, 7, 100} {
		for _, paid := range []bool{true, false} {
			d := p.Evaluate(paid, n, p.FlatFee)
			if d.CanSubmit || d.IsFree || d.AmountDue != 0 {
				t.Fatalf("count %d paid=%v: expected blocked, got %+v", n, paid, d)
			}
		}
	}
}

func TestEvaluateRemainingAndClamp(t *testing.T) {
	p := DefaultPolicy()
	if d := p.Evaluate(true, 5, 200); d.Remaining != 0 {
		t.Fatalf("sixth submission leaves 0 remaining, got %d", d.Remaining)
	}
	if d := p.Evaluate(true, -3, 200); !d.CanSubmit || d.Remaining != 5 {
		t.Fatalf("negative counts clamp to zero, got %+v", d)
	}
}

func TestEvaluateConfiguredCap(t *testing.T) {
	p := Policy{MaxSubmissionsPerCall: 2, FlatFee: 500}
	if d := p.Evaluate(true, 1, p.FlatFee); !d.CanSubmit || d.AmountDue != 500 {
		t.Fatalf("expected eligible at 1/2, got %+v", d)
	}
	if d := p.Evaluate(true, 2, p.FlatFee); d.CanSubmit {
		t.Fatalf("expected blocked at 2/2, got %+v", d)
	}
}

func TestBaseFee(t *testing.T) {
	call := opencalls.OpenCall{SubmissionFee: 1500, Currency: "eur"}
	free := opencalls.OpenCall{SubmissionFee: 0}

	flat := DefaultPolicy()
	if got := flat.BaseFee(call); got != 200 {
		t.Fatalf("flat source ignores the call fee, got %s", got)
	}
	if got := flat.CurrencyFor(call); got != "usd" {
		t.Fatalf("flat source uses policy currency, got %s", got)
	}

	perCall := DefaultPolicy()
	perCall.FeeSource = FeeSourceCall
	if got := perCall.BaseFee(call); got != 1500 {
		t.Fatalf("call source honors call fee, got %s", got)
	}
	if got := perCall.CurrencyFor(call); got != "eur" {
		t.Fatalf("call source uses call currency, got %s", got)
	}
	if got := perCall.BaseFee(free); got != 200 {
		t.Fatalf("zero call fee falls back to flat fee, got %s", got)
	}
}

func TestMoneyString(t *testing.T) {
	cases := map[Money]string{0: "0.00", 200: "2.00", 1505: "15.05", -75: "-0.75"}
	for m, want := range cases {
		if got := m.String(); got != want {
			t.Fatalf("expected %s, got %s", want, got)
		}
	}
}

func TestCapDefaultsWhenUnset(t *testing.T) {
	if got := (Policy{}).Cap(); got != DefaultMaxSubmissionsPerCall {
		t.Fatalf("expected default cap, got %d", got)
	}
	if d := (Policy{}).Evaluate(true, 6, 200); d.CanSubmit {
		t.Fatal("zero-value policy still enforces the default cap")
	}
}
