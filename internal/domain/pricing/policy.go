package pricing

import "mypalette/internal/domain/opencalls"

// Fee source constants (single source of truth)
const (
	FeeSourceFlat = "flat"
	FeeSourceCall = "call"
)

const (
	DefaultMaxSubmissionsPerCall = 6
	DefaultFlatFee               = Money(200)
)

// Policy carries the submission cap and fee configuration.
type Policy struct {
	MaxSubmissionsPerCall int
	FlatFee               Money
	Currency              string
	// FeeSource is "flat" (charge FlatFee everywhere) or "call" (honor the
	// call's advertised fee, falling back to FlatFee when it is zero).
	FeeSource string
}

func DefaultPolicy() Policy {
	return Policy{
		MaxSubmissionsPerCall: DefaultMaxSubmissionsPerCall,
		FlatFee:               DefaultFlatFee,
		Currency:              "usd",
		FeeSource:             FeeSourceFlat,
	}
}

type Decision struct {
	CanSubmit bool  `json:"can_submit"`
	IsFree    bool  `json:"is_free"`
	AmountDue Money `json:"amount_due"`
	// Remaining submissions for this call after the next one.
	Remaining int `json:"remaining"`
}

// Evaluate decides eligibility and price of the artist's next submission to a call.
// The cap always wins; the first submission on the platform is free.
func (p Policy) Evaluate(hasPriorPaidSubmission bool, totalSubmissionsForCall int, baseFee Money) Decision {
	if totalSubmissionsForCall < 0 {
		totalSubmissionsForCall = 0
	}
	limit := p.Cap()
	if totalSubmissionsForCall >= limit {
		return Decision{CanSubmit: false}
	}

	d := Decision{CanSubmit: true, Remaining: limit - totalSubmissionsForCall - 1}
	if !hasPriorPaidSubmission {
		d.IsFree = true
		return d
	}
	d.AmountDue = baseFee
	return d
}

// Cap is the effective per-call submission limit.
func (p Policy) Cap() int {
	if p.MaxSubmissionsPerCall <= 0 {
		return DefaultMaxSubmissionsPerCall
	}
	return p.MaxSubmissionsPerCall
}

// BaseFee resolves the fee charged for a paid submission to call.
func (p Policy) BaseFee(call opencalls.OpenCall) Money {
	if p.FeeSource == FeeSourceCall && call.SubmissionFee > 0 {
		return Money(call.SubmissionFee)
	}
	return p.FlatFee
}

// CurrencyFor mirrors BaseFee: the call's currency only when its fee is used.
func (p Policy) CurrencyFor(call opencalls.OpenCall) string {
	if p.FeeSource == FeeSourceCall && call.SubmissionFee > 0 && call.Currency != "" {
		return call.Currency
	}
	if p.Currency == "" {
		return "usd"
	}
	return p.Currency
}
