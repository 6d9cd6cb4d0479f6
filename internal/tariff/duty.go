package tariff

import (
	"fmt"

	referencedomain "github.com/railzwaylabs/landedcost/internal/reference/domain"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// DutyBasis is the shipment data a duty rule is applied to.
type DutyBasis struct {
	CustomsValue decimal.Decimal
	Quantity     decimal.Decimal
	NetWeightKg  *decimal.Decimal
}

// Duty is an evaluated duty line. EffectivePct expresses the amount as a
// percentage of the customs value so non ad valorem rates can be compared
// with preferential percentages.
type Duty struct {
	Amount       decimal.Decimal
	EffectivePct decimal.Decimal
	RateApplied  string
	Formula      string
	AdValorem    bool
}

// ComputeDuty evaluates rate against basis. Amounts are rounded to cents.
func ComputeDuty(rate *referencedomain.TariffRate, basis DutyBasis) (Duty, error) {
	if basis.CustomsValue.IsNegative() {
		return Duty{}, ErrInvalidDutyBasis
	}

	switch rate.DutyType {
	case referencedomain.DutyTypeFree:
		return Duty{
			Amount:       decimal.Zero,
			EffectivePct: decimal.Zero,
			RateApplied:  "free",
			Formula:      "duty free",
			AdValorem:    true,
		}, nil

	case referencedomain.DutyTypeAdValorem:
		return AdValoremDuty(basis.CustomsValue, rate.AdValoremPct), nil

	case referencedomain.DutyTypeSpecific:
		rule, err := rate.Rule()
		if err != nil {
			return Duty{}, err
		}
		amount, units, err := specificPart(rule, basis)
		if err != nil {
			return Duty{}, err
		}
		amount = amount.Round(2)
		return Duty{
			Amount:       amount,
			EffectivePct: effectivePct(amount, basis.CustomsValue),
			RateApplied:  fmt.Sprintf("%s/%s", rule.AmountPerUnit.StringFixed(2), rule.Unit),
			Formula:      fmt.Sprintf("%s %s x %s", units.String(), rule.Unit, rule.AmountPerUnit.StringFixed(2)),
		}, nil

	case referencedomain.DutyTypeCompound:
		rule, err := rate.Rule()
		if err != nil {
			return Duty{}, err
		}
		return compoundDuty(rule, basis)
	}

	return Duty{}, fmt.Errorf("%w: %q", ErrUnknownDutyType, rate.DutyType)
}

// AdValoremDuty applies pct to the customs value.
func AdValoremDuty(customsValue, pct decimal.Decimal) Duty {
	return Duty{
		Amount:       customsValue.Mul(pct).Div(hundred).Round(2),
		EffectivePct: pct,
		RateApplied:  pct.String() + "%",
		Formula:      fmt.Sprintf("%s x %s%%", customsValue.StringFixed(2), pct.String()),
		AdValorem:    true,
	}
}

func compoundDuty(rule *referencedomain.DutyRule, basis DutyBasis) (Duty, error) {
	adValorem := basis.CustomsValue.Mul(rule.AdValoremPct).Div(hundred)
	specific, units, err := specificPart(rule, basis)
	if err != nil {
		return Duty{}, err
	}

	adPart := fmt.Sprintf("%s x %s%%", basis.CustomsValue.StringFixed(2), rule.AdValoremPct.String())
	specPart := fmt.Sprintf("%s %s x %s", units.String(), rule.Unit, rule.AmountPerUnit.StringFixed(2))
	rateText := func(joiner string) string {
		return fmt.Sprintf("%s%% %s %s/%s", rule.AdValoremPct.String(), joiner, rule.AmountPerUnit.StringFixed(2), rule.Unit)
	}

	var (
		amount  decimal.Decimal
		formula string
		applied string
	)
	switch rule.Mode {
	case referencedomain.CompoundPlus, "":
		amount = adValorem.Add(specific)
		formula = adPart + " + " + specPart
		applied = rateText("plus")
	case referencedomain.CompoundMax:
		amount = decimal.Max(adValorem, specific)
		formula = fmt.Sprintf("max(%s, %s)", adPart, specPart)
		applied = rateText("or") + ", whichever is greater"
	case referencedomain.CompoundMin:
		amount = decimal.Min(adValorem, specific)
		formula = fmt.Sprintf("min(%s, %s)", adPart, specPart)
		applied = rateText("or") + ", whichever is less"
	default:
		return Duty{}, fmt.Errorf("%w: %q", ErrUnsupportedMode, rule.Mode)
	}

	amount = amount.Round(2)
	return Duty{
		Amount:       amount,
		EffectivePct: effectivePct(amount, basis.CustomsValue),
		RateApplied:  applied,
		Formula:      formula,
	}, nil
}

// specificPart returns the per-unit amount and the number of units it was
// applied to. Litre rates are declared against the shipment quantity.
func specificPart(rule *referencedomain.DutyRule, basis DutyBasis) (decimal.Decimal, decimal.Decimal, error) {
	var units decimal.Decimal
	switch rule.Unit {
	case referencedomain.UnitItem, referencedomain.UnitLitre, "":
		units = basis.Quantity
	case referencedomain.UnitKg:
		if basis.NetWeightKg == nil || !basis.NetWeightKg.IsPositive() {
			return decimal.Zero, decimal.Zero, ErrWeightRequired
		}
		units = *basis.NetWeightKg
	default:
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: %q", ErrUnsupportedUnit, rule.Unit)
	}
	return rule.AmountPerUnit.Mul(units), units, nil
}

func effectivePct(amount, customsValue decimal.Decimal) decimal.Decimal {
	if customsValue.IsZero() {
		return decimal.Zero
	}
	return amount.Div(customsValue).Mul(hundred).Round(4)
}
