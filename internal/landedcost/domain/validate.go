package domain

import (
	"strings"

	referencedomain "github.com/railzwaylabs/landedcost/internal/reference/domain"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Normalize validates in and fills defaults. HSCode is reduced to its
// 6-digit form; an empty HSCode is accepted only with a ClusterSlug, which
// the caller resolves.
func (in CalcInput) Normalize(defaultDestination string) (CalcInput, error) {
	out := in

	out.ClusterSlug = strings.TrimSpace(in.ClusterSlug)
	if strings.TrimSpace(in.HSCode) != "" {
		hs6, ok := referencedomain.NormalizeHS6(in.HSCode)
		if !ok {
			return CalcInput{}, invalid("hs_code", "invalid_hs_code", "hs code must contain at least 6 digits")
		}
		out.HSCode = hs6
	} else if out.ClusterSlug == "" {
		return CalcInput{}, invalid("hs_code", "required", "hs code or product cluster is required")
	}

	if in.CustomsValue != nil {
		if !in.CustomsValue.IsPositive() {
			return CalcInput{}, invalid("customs_value", "must_be_positive", "customs value must be greater than zero")
		}
	} else {
		if !in.InvoiceValue.IsPositive() {
			return CalcInput{}, invalid("invoice_value", "must_be_positive", "invoice value must be greater than zero")
		}
		if !in.ExchangeRate.IsPositive() {
			return CalcInput{}, invalid("exchange_rate", "must_be_positive", "exchange rate must be greater than zero")
		}
	}

	out.OriginCountry = strings.ToUpper(strings.TrimSpace(in.OriginCountry))
	if !isISO2(out.OriginCountry) {
		return CalcInput{}, invalid("origin_country", "invalid_country", "origin country must be an ISO 3166 alpha-2 code")
	}
	out.DestinationCountry = strings.ToUpper(strings.TrimSpace(in.DestinationCountry))
	if out.DestinationCountry == "" {
		out.DestinationCountry = defaultDestination
	}
	if !isISO2(out.DestinationCountry) {
		return CalcInput{}, invalid("destination_country", "invalid_country", "destination country must be an ISO 3166 alpha-2 code")
	}

	out.ImporterType = ImporterType(strings.ToUpper(strings.TrimSpace(string(in.ImporterType))))
	switch out.ImporterType {
	case "":
		out.ImporterType = ImporterVATRegistered
	case ImporterVATRegistered, ImporterNonVendor, ImporterPrivate:
	default:
		return CalcInput{}, invalid("importer_type", "unknown_importer_type", "importer type must be VAT_REGISTERED, NON_VENDOR or PRIVATE")
	}

	out.Incoterm = Incoterm(strings.ToUpper(strings.TrimSpace(string(in.Incoterm))))
	switch out.Incoterm {
	case "":
		out.Incoterm = IncotermFOB
	case IncotermFOB, IncotermCIF, IncotermEXW:
	default:
		return CalcInput{}, invalid("incoterm", "unknown_incoterm", "incoterm must be FOB, CIF or EXW")
	}

	for _, c := range []struct {
		field string
		value decimal.Decimal
	}{
		{"freight_cost", in.FreightCost},
		{"insurance_cost", in.InsuranceCost},
		{"other_charges", in.OtherCharges},
	} {
		if c.value.IsNegative() {
			return CalcInput{}, invalid(c.field, "must_not_be_negative", strings.ReplaceAll(c.field, "_", " ")+" cannot be negative")
		}
	}

	switch {
	case in.Quantity == 0:
		out.Quantity = 1
	case in.Quantity < 0:
		return CalcInput{}, invalid("quantity", "must_be_positive", "quantity must be at least 1")
	}

	if in.NetWeightKg != nil && !in.NetWeightKg.IsPositive() {
		return CalcInput{}, invalid("net_weight_kg", "must_be_positive", "net weight must be greater than zero")
	}
	if in.TargetSellingPrice != nil && !in.TargetSellingPrice.IsPositive() {
		return CalcInput{}, invalid("target_selling_price", "must_be_positive", "target selling price must be greater than zero")
	}
	if in.TargetMarginPercent != nil && !in.TargetMarginPercent.LessThan(hundred) {
		return CalcInput{}, invalid("target_margin_percent", "out_of_range", "target margin must be below 100%")
	}

	return out, nil
}

func isISO2(code string) bool {
	if len(code) != 2 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
