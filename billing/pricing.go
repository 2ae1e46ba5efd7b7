/*
pricing.go - Tiered time-cost policy

PURPOSE:
  Pure pricing function mapping (individual count, elapsed seconds, tier
  configuration) to a monetary cost. No state, no side effects.

TIER MODEL:
  Hour 1:  flat per-individual rate, billed in full as soon as any time
           has elapsed (a 10-minute session is billed as one full hour)
  Hour 2+: per-individual rate per additional hour; any fraction of an
           additional hour rounds UP to a full hour
  Cap:     the total additional charge (beyond hour 1) is capped by
           MaxAdditionalCharge, applied to the AGGREGATE additional cost,
           not per individual

EXAMPLE:
  pricing = {hour1: 40, hour2: 30, hour3+: 30, cap: 100}
  2 individuals, 1h 1s elapsed:
    base       = 2 x 40            = 80
    additional = min(2 x 1 x 30, 100) = 60
    total                          = 140

SEE ALSO:
  - settlement.go: uses TimeCost to price exiting cohorts
*/
package billing

import "github.com/shopspring/decimal"

// =============================================================================
// SESSION PRICING - Immutable per-branch tier configuration
// =============================================================================

// SessionPricing holds the per-individual hourly rates for a branch.
// Hour2Price is carried in branch configuration; the additional-hour
// formula prices every hour beyond the first at Hour3PlusPrice.
type SessionPricing struct {
	Hour1Price          decimal.Decimal `json:"hour1Price"`
	Hour2Price          decimal.Decimal `json:"hour2Price"`
	Hour3PlusPrice      decimal.Decimal `json:"hour3PlusPrice"`
	MaxAdditionalCharge decimal.Decimal `json:"maxAdditionalCharge"`
}

// NewSessionPricing builds a pricing configuration from plain numbers.
func NewSessionPricing(hour1, hour2, hour3Plus, maxAdditional float64) SessionPricing {
	return SessionPricing{
		Hour1Price:          decimal.NewFromFloat(hour1),
		Hour2Price:          decimal.NewFromFloat(hour2),
		Hour3PlusPrice:      decimal.NewFromFloat(hour3Plus),
		MaxAdditionalCharge: decimal.NewFromFloat(maxAdditional),
	}
}

// Validate rejects negative rates. All four values must be >= 0.
func (p SessionPricing) Validate() error {
	if p.Hour1Price.IsNegative() || p.Hour2Price.IsNegative() ||
		p.Hour3PlusPrice.IsNegative() || p.MaxAdditionalCharge.IsNegative() {
		return ErrInvalidArgument
	}
	return nil
}

// =============================================================================
// TIME COST - Pure tier calculation
// =============================================================================

const secondsPerHour int64 = 3600

// TimeCost computes the time charge for individualCount people occupying
// a session for elapsedSeconds under the given pricing.
//
// Guarantees: pure, deterministic, never negative for non-negative inputs.
// Zero individuals or zero elapsed time cost nothing.
func TimeCost(individualCount int, elapsedSeconds int64, pricing SessionPricing) decimal.Decimal {
	if individualCount <= 0 || elapsedSeconds <= 0 {
		return decimal.Zero
	}

	count := decimal.NewFromInt(int64(individualCount))
	base := count.Mul(pricing.Hour1Price)

	if elapsedSeconds <= secondsPerHour {
		return base
	}

	// Any fraction of an additional hour rounds up to a full hour.
	additionalSeconds := elapsedSeconds - secondsPerHour
	additionalHours := (additionalSeconds + secondsPerHour - 1) / secondsPerHour

	additional := count.
		Mul(decimal.NewFromInt(additionalHours)).
		Mul(pricing.Hour3PlusPrice)

	// Aggregate cap: applied to the computed additional total, not
	// normalized per individual.
	if additional.GreaterThan(pricing.MaxAdditionalCharge) {
		additional = pricing.MaxAdditionalCharge
	}

	return base.Add(additional)
}
