package preference

import (
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusEligible    Status = "eligible"
	StatusNotEligible Status = "not_eligible"
	StatusUnknown     Status = "unknown"
)

type Scope string

const (
	ScopeExact   Scope = "exact"
	ScopeChapter Scope = "chapter"
)

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Request describes the shipment whose preference eligibility is checked.
// MFNPct is the effective MFN percentage for the customs value.
type Request struct {
	HS6             string
	OriginISO2      string
	DestinationISO2 string
	TariffVersionID snowflake.ID
	MFNPct          decimal.Decimal
	CustomsValue    decimal.Decimal
}

// Option is one agreement under which the shipment has a preferential rate.
type Option struct {
	AgreementCode    string          `json:"agreement_code"`
	AgreementName    string          `json:"agreement_name"`
	Kind             string          `json:"kind"`
	RatePct          decimal.Decimal `json:"rate_pct"`
	Scope            Scope           `json:"scope"`
	Reasoning        string          `json:"reasoning"`
	ProofDocuments   []string        `json:"proof_documents"`
	EligibilityNotes string          `json:"eligibility_notes,omitempty"`
}

// Savings compares the best option with MFN. SavingsPct is a fraction.
type Savings struct {
	MFNPct          decimal.Decimal `json:"mfn_pct"`
	PreferentialPct decimal.Decimal `json:"preferential_pct"`
	SavingsPct      decimal.Decimal `json:"savings_pct"`
	SavingsAmount   decimal.Decimal `json:"savings_amount"`
}

// Decision is advisory. Applied reports whether the best option undercuts
// MFN and should replace it.
type Decision struct {
	Status               Status          `json:"status"`
	MFNRate              decimal.Decimal `json:"mfn_rate"`
	ApplicableAgreements []Option        `json:"applicable_agreements"`
	BestOption           *Option         `json:"best_option,omitempty"`
	SavingsVsMFN         *Savings        `json:"savings_vs_mfn,omitempty"`
	Applied              bool            `json:"applied"`
	RequiredActions      []string        `json:"required_actions"`
	ProofChecklist       []string        `json:"proof_checklist"`
	RateConfidence       Confidence      `json:"rate_confidence"`
	Reason               string          `json:"reason"`
}
