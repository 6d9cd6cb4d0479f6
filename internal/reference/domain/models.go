// Package domain contains the read-only customs reference data consumed by
// the landed cost engine.
package domain

import (
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// HsCode is a 6-digit Harmonized System classification.
type HsCode struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	HS6         string       `gorm:"column:hs6;type:varchar(6);not null;uniqueIndex" json:"hs6"`
	Chapter     string       `gorm:"type:varchar(2);not null;index" json:"chapter"`
	Title       string       `gorm:"type:text;not null" json:"title"`
	Description string       `gorm:"type:text" json:"description,omitempty"`
	CreatedAt   time.Time    `gorm:"not null" json:"created_at"`
}

func (HsCode) TableName() string { return "hs_codes" }

// TariffVersion is a dated snapshot of the tariff schedule.
type TariffVersion struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	Label         string       `gorm:"type:text;not null;uniqueIndex" json:"label"`
	EffectiveFrom time.Time    `gorm:"not null;index" json:"effective_from"`
	IsActive      bool         `gorm:"not null;index" json:"is_active"`
	CreatedAt     time.Time    `gorm:"not null" json:"created_at"`
}

func (TariffVersion) TableName() string { return "tariff_versions" }

type DutyType string

const (
	DutyTypeAdValorem DutyType = "ad_valorem"
	DutyTypeSpecific  DutyType = "specific"
	DutyTypeCompound  DutyType = "compound"
	DutyTypeFree      DutyType = "free"
)

type VatTreatment string

const (
	VatStandard  VatTreatment = "standard"
	VatZeroRated VatTreatment = "zero_rated"
	VatExempt    VatTreatment = "exempt"
)

// TariffRate is the MFN duty definition for one HS code in one tariff
// version. Corrections insert a new row under a new version.
type TariffRate struct {
	ID                    snowflake.ID    `gorm:"primaryKey" json:"id"`
	TariffVersionID       snowflake.ID    `gorm:"not null;uniqueIndex:ux_tariff_rates_version_hs6,priority:1" json:"tariff_version_id"`
	HS6                   string          `gorm:"column:hs6;type:varchar(6);not null;uniqueIndex:ux_tariff_rates_version_hs6,priority:2" json:"hs6"`
	DutyType              DutyType        `gorm:"type:text;not null" json:"duty_type"`
	AdValoremPct          decimal.Decimal `gorm:"type:decimal(9,4);not null;default:0" json:"ad_valorem_pct"`
	SpecificRule          datatypes.JSON  `gorm:"type:jsonb" json:"specific_rule,omitempty"`
	CompoundRule          datatypes.JSON  `gorm:"type:jsonb" json:"compound_rule,omitempty"`
	HasVatSpecialHandling bool            `gorm:"not null;default:false" json:"has_vat_special_handling"`
	VatTreatment          VatTreatment    `gorm:"type:text;not null;default:standard" json:"vat_treatment"`
	Notes                 string          `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt             time.Time       `gorm:"not null" json:"created_at"`
}

func (TariffRate) TableName() string { return "tariff_rates" }

// Rule units.
const (
	UnitItem  = "u"
	UnitKg    = "kg"
	UnitLitre = "l"
)

// Compound rule combination modes.
const (
	CompoundPlus = "plus"
	CompoundMax  = "max"
	CompoundMin  = "min"
)

// DutyRule is the JSON payload of specific and compound rates, e.g.
// "15% or 500c/kg whichever is greater" is
// {"ad_valorem_pct": 15, "amount_per_unit": 5, "unit": "kg", "mode": "max"}.
type DutyRule struct {
	AmountPerUnit decimal.Decimal `json:"amount_per_unit"`
	Unit          string          `json:"unit"`
	AdValoremPct  decimal.Decimal `json:"ad_valorem_pct"`
	Mode          string          `json:"mode"`
}

// Rule decodes the structured rule matching the rate's duty type. It
// returns nil for ad valorem and free rates.
func (r TariffRate) Rule() (*DutyRule, error) {
	var raw datatypes.JSON
	switch r.DutyType {
	case DutyTypeSpecific:
		raw = r.SpecificRule
	case DutyTypeCompound:
		raw = r.CompoundRule
	default:
		return nil, nil
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, ErrMalformedDutyRule
	}
	var rule DutyRule
	if err := json.Unmarshal(raw, &rule); err != nil {
		return nil, ErrMalformedDutyRule
	}
	return &rule, nil
}

// TradeAgreement is a preferential arrangement (EPA, FTA, customs union)
// granting reduced duty into DestinationISO2.
type TradeAgreement struct {
	ID              snowflake.ID   `gorm:"primaryKey" json:"id"`
	Code            string         `gorm:"type:text;not null;uniqueIndex" json:"code"`
	Name            string         `gorm:"type:text;not null" json:"name"`
	Kind            string         `gorm:"type:text;not null" json:"kind"`
	DestinationISO2 string         `gorm:"column:destination_iso2;type:varchar(2);not null;index" json:"destination_iso2"`
	ProofDocuments  datatypes.JSON `gorm:"type:jsonb" json:"proof_documents,omitempty"`
	CreatedAt       time.Time      `gorm:"not null" json:"created_at"`
}

func (TradeAgreement) TableName() string { return "trade_agreements" }

// Proofs lists the documents an importer must hold to claim the agreement.
func (a TradeAgreement) Proofs() []string {
	if len(a.ProofDocuments) == 0 {
		return nil
	}
	var docs []string
	if err := json.Unmarshal(a.ProofDocuments, &docs); err != nil {
		return nil
	}
	return docs
}

// AgreementOrigin is one covered origin country of an agreement.
type AgreementOrigin struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	AgreementID snowflake.ID `gorm:"not null;uniqueIndex:ux_agreement_origins,priority:1"`
	OriginISO2  string       `gorm:"column:origin_iso2;type:varchar(2);not null;uniqueIndex:ux_agreement_origins,priority:2;index"`
}

func (AgreementOrigin) TableName() string { return "agreement_origins" }

// OriginPreference replaces the MFN rate when the shipment qualifies under
// the agreement. Chapter rules key on the 2-digit chapter; an empty origin
// applies to every covered origin.
type OriginPreference struct {
	ID               snowflake.ID        `gorm:"primaryKey"`
	TariffVersionID  snowflake.ID        `gorm:"not null;uniqueIndex:ux_origin_preferences,priority:1"`
	AgreementID      snowflake.ID        `gorm:"not null;uniqueIndex:ux_origin_preferences,priority:2"`
	HS6              string              `gorm:"column:hs6;type:varchar(6);not null;default:'';uniqueIndex:ux_origin_preferences,priority:3"`
	Chapter          string              `gorm:"type:varchar(2);not null;uniqueIndex:ux_origin_preferences,priority:4"`
	OriginISO2       string              `gorm:"column:origin_iso2;type:varchar(2);not null;default:'';uniqueIndex:ux_origin_preferences,priority:5"`
	IsChapterRule    bool                `gorm:"not null;default:false;uniqueIndex:ux_origin_preferences,priority:6"`
	DutyOverridePct  decimal.NullDecimal `gorm:"type:decimal(9,4)"`
	EligibilityNotes string              `gorm:"type:text"`
	CreatedAt        time.Time           `gorm:"not null"`
}

func (OriginPreference) TableName() string { return "origin_preferences" }

// EffectivePct is the preferential ad valorem percentage; a missing
// override means duty free.
func (p OriginPreference) EffectivePct() decimal.Decimal {
	if !p.DutyOverridePct.Valid {
		return decimal.Zero
	}
	return p.DutyOverridePct.Decimal
}

type TriggerType string

const (
	TriggerGeneric      TriggerType = "GENERIC"
	TriggerHSCodePrefix TriggerType = "HS_CODE_PREFIX"
	TriggerOriginISO    TriggerType = "ORIGIN_ISO"
	TriggerClusterSlug  TriggerType = "CLUSTER_SLUG"
)

type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
)

// RiskRule is a compliance warning raised when its trigger matches.
type RiskRule struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	TriggerType  TriggerType  `gorm:"type:text;not null;uniqueIndex:ux_risk_rules,priority:1"`
	TriggerValue string       `gorm:"type:text;not null;default:'';uniqueIndex:ux_risk_rules,priority:2"`
	Severity     Severity     `gorm:"type:text;not null"`
	Title        string       `gorm:"type:text;not null;uniqueIndex:ux_risk_rules,priority:3"`
	Description  string       `gorm:"type:text;not null"`
	Mitigation   string       `gorm:"type:text"`
	CreatedAt    time.Time    `gorm:"not null"`
}

func (RiskRule) TableName() string { return "risk_rules" }

// DocRequirement is a document required to clear an HS code, optionally
// only for one origin.
type DocRequirement struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	HS6          string       `gorm:"column:hs6;type:varchar(6);not null;uniqueIndex:ux_doc_requirements,priority:1"`
	OriginISO2   string       `gorm:"column:origin_iso2;type:varchar(2);not null;default:'';uniqueIndex:ux_doc_requirements,priority:2"`
	DocumentName string       `gorm:"type:text;not null;uniqueIndex:ux_doc_requirements,priority:3"`
	Issuer       string       `gorm:"type:text"`
	Confidence   string       `gorm:"type:text;not null;default:MEDIUM"`
	Notes        string       `gorm:"type:text"`
	CreatedAt    time.Time    `gorm:"not null"`
}

func (DocRequirement) TableName() string { return "doc_requirements" }

// ProductCluster is a human-friendly product category.
type ProductCluster struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	Slug        string       `gorm:"type:text;not null;uniqueIndex" json:"slug"`
	Name        string       `gorm:"type:text;not null" json:"name"`
	Description string       `gorm:"type:text" json:"description,omitempty"`
	CreatedAt   time.Time    `gorm:"not null" json:"created_at"`
}

func (ProductCluster) TableName() string { return "product_clusters" }

// ProductClusterHsMap maps a cluster to a candidate HS code. The highest
// confidence mapping is the cluster's representative code.
type ProductClusterHsMap struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	ClusterID  snowflake.ID `gorm:"not null;uniqueIndex:ux_cluster_hs,priority:1"`
	HS6        string       `gorm:"column:hs6;type:varchar(6);not null;uniqueIndex:ux_cluster_hs,priority:2"`
	Confidence float64      `gorm:"not null;default:0"`
}

func (ProductClusterHsMap) TableName() string { return "product_cluster_hs_maps" }

// Country is ISO2-keyed reference data.
type Country struct {
	ISO2   string `gorm:"column:iso2;type:varchar(2);primaryKey" json:"iso2"`
	ISO3   string `gorm:"column:iso3;type:varchar(3);not null" json:"iso3"`
	Name   string `gorm:"type:text;not null" json:"name"`
	Region string `gorm:"type:text" json:"region,omitempty"`
}

func (Country) TableName() string { return "countries" }

// HsPrefixClass is one row of the canonical prefix classification table.
// The longest matching prefix wins.
type HsPrefixClass struct {
	ID        snowflake.ID    `gorm:"primaryKey" json:"id"`
	Prefix    string          `gorm:"type:varchar(6);not null;uniqueIndex" json:"prefix"`
	Class     string          `gorm:"type:text;not null" json:"class"`
	Label     string          `gorm:"type:text;not null" json:"label"`
	ExcisePct decimal.Decimal `gorm:"type:decimal(9,4);not null;default:0" json:"excise_pct"`
	CreatedAt time.Time       `gorm:"not null" json:"created_at"`
}

func (HsPrefixClass) TableName() string { return "hs_prefix_classes" }

// Models lists every reference table, in dependency order.
func Models() []any {
	return []any{
		&Country{},
		&HsCode{},
		&TariffVersion{},
		&TariffRate{},
		&TradeAgreement{},
		&AgreementOrigin{},
		&OriginPreference{},
		&RiskRule{},
		&DocRequirement{},
		&ProductCluster{},
		&ProductClusterHsMap{},
		&HsPrefixClass{},
	}
}
