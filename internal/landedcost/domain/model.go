// Package domain holds the request and result shapes of a landed cost
// calculation.
package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/landedcost/internal/preference"
	"github.com/railzwaylabs/landedcost/internal/risk"
	"github.com/shopspring/decimal"
)

type ImporterType string

const (
	ImporterVATRegistered ImporterType = "VAT_REGISTERED"
	ImporterNonVendor     ImporterType = "NON_VENDOR"
	ImporterPrivate       ImporterType = "PRIVATE"
)

type Incoterm string

const (
	IncotermFOB Incoterm = "FOB"
	IncotermCIF Incoterm = "CIF"
	IncotermEXW Incoterm = "EXW"
)

// CalcInput is a shipment to cost. Amounts other than InvoiceValue are in
// the destination currency; InvoiceValue is converted with ExchangeRate
// unless CustomsValue is supplied.
type CalcInput struct {
	HSCode              string           `json:"hs_code,omitempty"`
	ClusterSlug         string           `json:"cluster_slug,omitempty"`
	CustomsValue        *decimal.Decimal `json:"customs_value,omitempty"`
	InvoiceValue        decimal.Decimal  `json:"invoice_value"`
	ExchangeRate        decimal.Decimal  `json:"exchange_rate"`
	OriginCountry       string           `json:"origin_country"`
	DestinationCountry  string           `json:"destination_country,omitempty"`
	ImporterType        ImporterType     `json:"importer_type,omitempty"`
	FreightCost         decimal.Decimal  `json:"freight_cost"`
	InsuranceCost       decimal.Decimal  `json:"insurance_cost"`
	OtherCharges        decimal.Decimal  `json:"other_charges"`
	Quantity            int64            `json:"quantity,omitempty"`
	NetWeightKg         *decimal.Decimal `json:"net_weight_kg,omitempty"`
	Incoterm            Incoterm         `json:"incoterm,omitempty"`
	TargetSellingPrice  *decimal.Decimal `json:"target_selling_price,omitempty"`
	TargetMarginPercent *decimal.Decimal `json:"target_margin_percent,omitempty"`
	TariffVersionID     *snowflake.ID    `json:"tariff_version_id,omitempty"`
}

// LineItem is one row of the cost breakdown.
type LineItem struct {
	ID          string          `json:"id"`
	Label       string          `json:"label"`
	Amount      decimal.Decimal `json:"amount"`
	Formula     string          `json:"formula,omitempty"`
	RateApplied string          `json:"rate_applied,omitempty"`
}

// Line item identifiers.
const (
	LineGoodsValue   = "goods_value"
	LineFreight      = "freight"
	LineInsurance    = "insurance"
	LineCustomsValue = "customs_value"
	LineDuty         = "customs_duty"
	LineExcise       = "excise"
	LineATV          = "added_tax_value"
	LineVAT          = "vat"
	LineOther        = "other_charges"
	LineTotal        = "landed_cost_total"
)

type Document struct {
	Name       string `json:"name"`
	Issuer     string `json:"issuer,omitempty"`
	Source     string `json:"source"`
	Confidence string `json:"confidence"`
	Notes      string `json:"notes,omitempty"`
}

// Document sources.
const (
	DocSourceAlways     = "always"
	DocSourceHsCode     = "hs_code"
	DocSourcePreference = "preference"
)

// Classification describes how the HS code was obtained and where it falls
// in the prefix table.
type Classification struct {
	HS6               string   `json:"hs6"`
	Chapter           string   `json:"chapter"`
	Title             string   `json:"title"`
	Source            string   `json:"source"`
	ClusterSlug       string   `json:"cluster_slug,omitempty"`
	ClusterConfidence *float64 `json:"cluster_confidence,omitempty"`

	Prefix    string          `json:"prefix,omitempty"`
	Class     string          `json:"class"`
	Label     string          `json:"label"`
	ExcisePct decimal.Decimal `json:"excise_pct"`
}

// Classification sources.
const (
	ClassificationFromInput   = "input"
	ClassificationFromCluster = "cluster"
)

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// CalcOutput is the full result of a calculation. Every amount is in the
// destination currency and rounded to cents.
type CalcOutput struct {
	Breakdown []LineItem `json:"breakdown"`

	CustomsValue         decimal.Decimal `json:"customs_value"`
	DutyAmount           decimal.Decimal `json:"duty_amount"`
	ExciseAmount         decimal.Decimal `json:"excise_amount"`
	ATV                  decimal.Decimal `json:"atv"`
	VATAmount            decimal.Decimal `json:"vat_amount"`
	RecoverableVAT       decimal.Decimal `json:"recoverable_vat"`
	LandedCostTotal      decimal.Decimal `json:"landed_cost_total"`
	LandedCostPerUnit    decimal.Decimal `json:"landed_cost_per_unit"`
	NetLandedCostPerUnit decimal.Decimal `json:"net_landed_cost_per_unit"`

	Verdict            Verdict          `json:"verdict"`
	GrossMarginPercent *decimal.Decimal `json:"gross_margin_percent,omitempty"`
	BreakEvenPrice     *decimal.Decimal `json:"break_even_price,omitempty"`
	// NetMarginPercent is informational: the margin once recoverable VAT is
	// claimed back. It never drives the verdict.
	NetMarginPercent *decimal.Decimal `json:"net_margin_percent,omitempty"`

	DetailedRisks       []risk.Flag `json:"detailed_risks"`
	ComplianceRisks     []risk.Flag `json:"compliance_risks"`
	AdditionalRiskCount int         `json:"additional_risk_count"`

	PreferenceDecision preference.Decision `json:"preference_decision"`
	Documents          []Document          `json:"documents"`
	Classification     Classification      `json:"classification"`

	OriginCountry       string       `json:"origin_country"`
	TariffVersionID     snowflake.ID `json:"tariff_version_id"`
	TariffVersionLabel  string       `json:"tariff_version_label"`
	TariffEffectiveFrom time.Time    `json:"tariff_effective_from"`
	Confidence          Confidence   `json:"confidence"`
	AuditTrace          []string     `json:"audit_trace"`
}

// RunRecorder persists a calculation made on behalf of a user.
type RunRecorder interface {
	Record(ctx context.Context, userID string, in CalcInput, out *CalcOutput) error
}
