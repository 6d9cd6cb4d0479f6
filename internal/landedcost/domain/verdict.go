package domain

import "github.com/shopspring/decimal"

type Verdict string

const (
	VerdictGo      Verdict = "GO"
	VerdictCaution Verdict = "CAUTION"
	VerdictNoGo    Verdict = "NOGO"
	VerdictUnknown Verdict = "UNKNOWN"
)

// Thresholds are the minimum margins, in percent, for GO and CAUTION.
type Thresholds struct {
	Go      decimal.Decimal
	Caution decimal.Decimal
}

var DefaultThresholds = Thresholds{
	Go:      decimal.NewFromInt(25),
	Caution: decimal.NewFromInt(12),
}

// Verdict is the only place margins are turned into a verdict.
func (t Thresholds) Verdict(marginPercent decimal.Decimal) Verdict {
	switch {
	case marginPercent.GreaterThanOrEqual(t.Go):
		return VerdictGo
	case marginPercent.GreaterThanOrEqual(t.Caution):
		return VerdictCaution
	default:
		return VerdictNoGo
	}
}
