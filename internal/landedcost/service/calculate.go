package service

import (
	"context"
	"errors"
	"fmt"

	landedcostdomain "github.com/railzwaylabs/landedcost/internal/landedcost/domain"
	"github.com/railzwaylabs/landedcost/internal/preference"
	referencedomain "github.com/railzwaylabs/landedcost/internal/reference/domain"
	"github.com/railzwaylabs/landedcost/internal/risk"
	"github.com/railzwaylabs/landedcost/internal/tariff"
	"github.com/shopspring/decimal"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

func (s *Service) calculate(ctx context.Context, raw landedcostdomain.CalcInput) (landedcostdomain.CalcInput, *landedcostdomain.CalcOutput, error) {
	in, err := raw.Normalize(s.settings.DestinationCountry)
	if err != nil {
		return raw, nil, err
	}

	cls, err := s.resolveClassification(ctx, &in)
	if err != nil {
		return in, nil, err
	}
	hs6 := in.HSCode

	version, err := s.tariff.ResolveVersion(ctx, in.TariffVersionID)
	if err != nil {
		if errors.Is(err, tariff.ErrNoActiveTariff) || errors.Is(err, tariff.ErrVersionNotFound) {
			nf := &landedcostdomain.NotFoundError{Err: tariff.ErrNoActiveTariff, Origin: in.OriginCountry}
			if in.TariffVersionID != nil {
				nf = &landedcostdomain.NotFoundError{Err: tariff.ErrVersionNotFound, Version: in.TariffVersionID.String(), Origin: in.OriginCountry}
			}
			return in, nil, nf
		}
		return in, nil, fmt.Errorf("resolve tariff version: %w", err)
	}

	rate, err := s.tariff.ResolveRate(ctx, hs6, version)
	if err != nil {
		if errors.Is(err, tariff.ErrRateNotFound) {
			return in, nil, &landedcostdomain.NotFoundError{Err: tariff.ErrRateNotFound, HS6: hs6, Version: version.Label, Origin: in.OriginCountry}
		}
		return in, nil, fmt.Errorf("resolve tariff rate: %w", err)
	}

	prefix, err := s.classifier.Classify(ctx, hs6)
	if err != nil {
		return in, nil, fmt.Errorf("classify %s: %w", hs6, err)
	}
	cls.Prefix = prefix.Prefix
	cls.Class = prefix.Class
	cls.Label = prefix.Label
	cls.ExcisePct = prefix.ExcisePct

	out := &landedcostdomain.CalcOutput{
		Classification:      cls,
		OriginCountry:       in.OriginCountry,
		TariffVersionID:     version.ID,
		TariffVersionLabel:  version.Label,
		TariffEffectiveFrom: version.EffectiveFrom,
		AuditTrace: []string{
			fmt.Sprintf("tariff version %s pinned (effective %s)", version.Label, version.EffectiveFrom.Format("2006-01-02")),
			fmt.Sprintf("classified %s as %s via %s", hs6, cls.Class, cls.Source),
		},
	}
	quantity := decimal.NewFromInt(in.Quantity)

	// Customs value, CIF equivalent.
	goods, goodsLine := goodsValue(in)
	customsValue := goods
	out.Breakdown = append(out.Breakdown, goodsLine)
	if in.Incoterm != landedcostdomain.IncotermCIF {
		if in.FreightCost.IsPositive() {
			customsValue = customsValue.Add(in.FreightCost.Round(2))
			out.Breakdown = append(out.Breakdown, landedcostdomain.LineItem{
				ID:      landedcostdomain.LineFreight,
				Label:   "International freight",
				Amount:  in.FreightCost.Round(2),
				Formula: fmt.Sprintf("added to %s value", in.Incoterm),
			})
		}
		if in.InsuranceCost.IsPositive() {
			customsValue = customsValue.Add(in.InsuranceCost.Round(2))
			out.Breakdown = append(out.Breakdown, landedcostdomain.LineItem{
				ID:      landedcostdomain.LineInsurance,
				Label:   "Insurance",
				Amount:  in.InsuranceCost.Round(2),
				Formula: fmt.Sprintf("added to %s value", in.Incoterm),
			})
		}
	} else {
		out.AuditTrace = append(out.AuditTrace, "CIF invoice: freight and insurance already included")
	}
	out.CustomsValue = customsValue
	out.Breakdown = append(out.Breakdown, landedcostdomain.LineItem{
		ID:      landedcostdomain.LineCustomsValue,
		Label:   "Customs value (CIF)",
		Amount:  customsValue,
		Formula: fmt.Sprintf("%s incoterm", in.Incoterm),
	})

	// Duty, MFN then preference.
	mfn, err := tariff.ComputeDuty(rate, tariff.DutyBasis{
		CustomsValue: customsValue,
		Quantity:     quantity,
		NetWeightKg:  in.NetWeightKg,
	})
	if err != nil {
		if errors.Is(err, tariff.ErrWeightRequired) {
			return in, nil, &landedcostdomain.ValidationError{
				Field:   "net_weight_kg",
				Code:    "required",
				Message: fmt.Sprintf("net weight is required for the %s rate on %s", rate.DutyType, hs6),
			}
		}
		return in, nil, fmt.Errorf("compute duty for %s: %w", hs6, err)
	}
	out.AuditTrace = append(out.AuditTrace, fmt.Sprintf("MFN %s rate %s = %s", rate.DutyType, mfn.RateApplied, mfn.Amount.StringFixed(2)))

	decision := s.preference.Evaluate(ctx, preference.Request{
		HS6:             hs6,
		OriginISO2:      in.OriginCountry,
		DestinationISO2: in.DestinationCountry,
		TariffVersionID: version.ID,
		MFNPct:          mfn.EffectivePct,
		CustomsValue:    customsValue,
	})
	out.PreferenceDecision = decision
	out.AuditTrace = append(out.AuditTrace, fmt.Sprintf("preference %s: %s", decision.Status, decision.Reason))

	duty := mfn
	dutyLabel := "Customs duty (MFN)"
	if decision.Applied && decision.BestOption != nil {
		duty = tariff.AdValoremDuty(customsValue, decision.BestOption.RatePct)
		duty.RateApplied = fmt.Sprintf("%s (%s)", duty.RateApplied, decision.BestOption.AgreementCode)
		dutyLabel = fmt.Sprintf("Customs duty (%s preferential)", decision.BestOption.AgreementCode)
	}
	out.DutyAmount = duty.Amount
	out.Breakdown = append(out.Breakdown, landedcostdomain.LineItem{
		ID:          landedcostdomain.LineDuty,
		Label:       dutyLabel,
		Amount:      duty.Amount,
		Formula:     duty.Formula,
		RateApplied: duty.RateApplied,
	})

	// Excise from the prefix table.
	out.ExciseAmount = customsValue.Mul(cls.ExcisePct).Div(hundred).Round(2)
	if cls.ExcisePct.IsPositive() {
		out.Breakdown = append(out.Breakdown, landedcostdomain.LineItem{
			ID:          landedcostdomain.LineExcise,
			Label:       fmt.Sprintf("Excise (%s)", cls.Label),
			Amount:      out.ExciseAmount,
			Formula:     fmt.Sprintf("%s x %s%%", customsValue.StringFixed(2), cls.ExcisePct.String()),
			RateApplied: cls.ExcisePct.String() + "%",
		})
	}

	// ATV and VAT. Excise stays out of the VAT base.
	uplifted := customsValue.Mul(one.Add(s.settings.ATVUplift)).Round(2)
	out.ATV = uplifted.Add(out.DutyAmount)
	out.Breakdown = append(out.Breakdown, landedcostdomain.LineItem{
		ID:     landedcostdomain.LineATV,
		Label:  "Added tax value",
		Amount: out.ATV,
		Formula: fmt.Sprintf("%s x %s + %s",
			customsValue.StringFixed(2), one.Add(s.settings.ATVUplift).String(),
			out.DutyAmount.StringFixed(2)),
	})

	vatRate := s.settings.VATRate
	vatFormula := fmt.Sprintf("%s x %s%%", out.ATV.StringFixed(2), vatRate.Mul(hundred).String())
	if rate.HasVatSpecialHandling && (rate.VatTreatment == referencedomain.VatZeroRated || rate.VatTreatment == referencedomain.VatExempt) {
		vatRate = decimal.Zero
		vatFormula = fmt.Sprintf("%s import", rate.VatTreatment)
		out.AuditTrace = append(out.AuditTrace, fmt.Sprintf("VAT special handling: %s", rate.VatTreatment))
	}
	out.VATAmount = out.ATV.Mul(vatRate).Round(2)
	out.Breakdown = append(out.Breakdown, landedcostdomain.LineItem{
		ID:          landedcostdomain.LineVAT,
		Label:       "Import VAT",
		Amount:      out.VATAmount,
		Formula:     vatFormula,
		RateApplied: vatRate.Mul(hundred).String() + "%",
	})
	out.RecoverableVAT = decimal.Zero
	if in.ImporterType == landedcostdomain.ImporterVATRegistered {
		out.RecoverableVAT = out.VATAmount
	}

	// Totals.
	other := in.OtherCharges.Round(2)
	if other.IsPositive() {
		out.Breakdown = append(out.Breakdown, landedcostdomain.LineItem{
			ID:     landedcostdomain.LineOther,
			Label:  "Other charges",
			Amount: other,
		})
	}
	out.LandedCostTotal = customsValue.Add(out.DutyAmount).Add(out.ExciseAmount).Add(out.VATAmount).Add(other)
	out.Breakdown = append(out.Breakdown, landedcostdomain.LineItem{
		ID:     landedcostdomain.LineTotal,
		Label:  "Landed cost",
		Amount: out.LandedCostTotal,
		Formula: fmt.Sprintf("%s + %s + %s + %s + %s",
			customsValue.StringFixed(2), out.DutyAmount.StringFixed(2), out.ExciseAmount.StringFixed(2),
			out.VATAmount.StringFixed(2), other.StringFixed(2)),
	})
	out.LandedCostPerUnit = out.LandedCostTotal.Div(quantity).Round(2)
	out.NetLandedCostPerUnit = out.LandedCostTotal.Sub(out.RecoverableVAT).Div(quantity).Round(2)

	s.applyProfitability(in, out)

	flags := s.risk.Match(ctx, risk.Criteria{
		HS6:         hs6,
		ClusterSlug: in.ClusterSlug,
		OriginISO2:  in.OriginCountry,
	})
	summary := risk.Summarize(flags, s.settings.RiskTopN)
	out.DetailedRisks = flags
	out.ComplianceRisks = summary.Top
	out.AdditionalRiskCount = summary.Remaining

	out.Documents = s.documents(ctx, hs6, in.OriginCountry, decision)
	out.Confidence = confidence(rate, decision)
	return in, out, nil
}

func goodsValue(in landedcostdomain.CalcInput) (decimal.Decimal, landedcostdomain.LineItem) {
	if in.CustomsValue != nil {
		v := in.CustomsValue.Round(2)
		return v, landedcostdomain.LineItem{
			ID:      landedcostdomain.LineGoodsValue,
			Label:   "Goods value",
			Amount:  v,
			Formula: "declared customs value",
		}
	}
	v := in.InvoiceValue.Mul(in.ExchangeRate).Round(2)
	return v, landedcostdomain.LineItem{
		ID:      landedcostdomain.LineGoodsValue,
		Label:   "Goods value",
		Amount:  v,
		Formula: fmt.Sprintf("%s x %s", in.InvoiceValue.String(), in.ExchangeRate.String()),
	}
}

// applyProfitability sets the margin figures and verdict against the landed
// cost per unit. A selling price takes precedence over a target margin for
// the verdict.
func (s *Service) applyProfitability(in landedcostdomain.CalcInput, out *landedcostdomain.CalcOutput) {
	out.Verdict = landedcostdomain.VerdictUnknown
	cost := out.LandedCostPerUnit

	if in.TargetMarginPercent != nil {
		factor := one.Sub(in.TargetMarginPercent.Div(hundred))
		price := cost.Div(factor).Round(2)
		out.BreakEvenPrice = &price
		out.Verdict = s.settings.Thresholds.Verdict(*in.TargetMarginPercent)
	}
	if in.TargetSellingPrice != nil {
		margin := marginPercent(*in.TargetSellingPrice, cost)
		out.GrossMarginPercent = &margin
		out.Verdict = s.settings.Thresholds.Verdict(margin)
		net := marginPercent(*in.TargetSellingPrice, out.NetLandedCostPerUnit)
		out.NetMarginPercent = &net
	}
}

func marginPercent(price, cost decimal.Decimal) decimal.Decimal {
	return price.Sub(cost).Div(price).Mul(hundred).Round(2)
}

func confidence(rate *referencedomain.TariffRate, decision preference.Decision) landedcostdomain.Confidence {
	switch {
	case decision.RateConfidence == preference.ConfidenceLow:
		return landedcostdomain.ConfidenceLow
	case decision.RateConfidence == preference.ConfidenceMedium:
		return landedcostdomain.ConfidenceMedium
	case rate.DutyType == referencedomain.DutyTypeSpecific || rate.DutyType == referencedomain.DutyTypeCompound:
		return landedcostdomain.ConfidenceMedium
	}
	return landedcostdomain.ConfidenceHigh
}

// resolveClassification fills in.HSCode from the cluster when needed and
// checks the code exists.
func (s *Service) resolveClassification(ctx context.Context, in *landedcostdomain.CalcInput) (landedcostdomain.Classification, error) {
	cls := landedcostdomain.Classification{Source: landedcostdomain.ClassificationFromInput}

	if in.HSCode == "" {
		cluster, err := s.repo.FindClusterBySlug(ctx, in.ClusterSlug)
		if err != nil {
			return cls, fmt.Errorf("find cluster: %w", err)
		}
		if cluster == nil {
			return cls, &landedcostdomain.ValidationError{
				Field:   "cluster_slug",
				Code:    "unknown_cluster",
				Message: fmt.Sprintf("unknown product cluster %q", in.ClusterSlug),
			}
		}
		rep, err := s.repo.FindRepresentativeHs(ctx, cluster.ID)
		if err != nil {
			return cls, fmt.Errorf("find cluster hs code: %w", err)
		}
		if rep == nil {
			return cls, &landedcostdomain.NotFoundError{Err: landedcostdomain.ErrClassificationNotFound, Origin: in.OriginCountry}
		}
		in.HSCode = rep.HS6
		score := rep.Confidence
		cls.Source = landedcostdomain.ClassificationFromCluster
		cls.ClusterSlug = cluster.Slug
		cls.ClusterConfidence = &score
	} else if in.ClusterSlug != "" {
		cls.ClusterSlug = in.ClusterSlug
	}

	code, err := s.repo.FindHsCode(ctx, in.HSCode)
	if err != nil {
		return cls, fmt.Errorf("find hs code: %w", err)
	}
	if code == nil {
		return cls, &landedcostdomain.NotFoundError{Err: landedcostdomain.ErrClassificationNotFound, HS6: in.HSCode, Origin: in.OriginCountry}
	}
	cls.HS6 = code.HS6
	cls.Chapter = code.Chapter
	cls.Title = code.Title
	return cls, nil
}
