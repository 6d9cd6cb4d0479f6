package ratehunter

import (
	"github.com/bwmarrin/snowflake"
	landedcostdomain "github.com/railzwaylabs/landedcost/internal/landedcost/domain"
	"github.com/railzwaylabs/landedcost/internal/preference"
	"github.com/shopspring/decimal"
)

type FrictionLevel string

const (
	FrictionLow    FrictionLevel = "low"
	FrictionMedium FrictionLevel = "medium"
	FrictionHigh   FrictionLevel = "high"
)

// Alternative is the landed cost of the same shipment from another origin.
// Savings is positive when the alternative is cheaper than the base.
type Alternative struct {
	OriginCountry    string                   `json:"origin_country"`
	CountryName      string                   `json:"country_name,omitempty"`
	LandedCostTotal  decimal.Decimal          `json:"landed_cost_total"`
	DutyAmount       decimal.Decimal          `json:"duty_amount"`
	Savings          decimal.Decimal          `json:"savings"`
	SavingsPercent   decimal.Decimal          `json:"savings_percent"`
	PreferenceStatus preference.Status        `json:"preference_status"`
	AgreementCode    string                   `json:"agreement_code,omitempty"`
	FrictionLevel    FrictionLevel            `json:"friction_level"`
	Verdict          landedcostdomain.Verdict `json:"verdict"`
	RiskCount        int                      `json:"risk_count"`
}

type Skipped struct {
	OriginCountry string `json:"origin_country"`
	Code          string `json:"code"`
	Message       string `json:"message"`
}

// Result ranks alternatives by savings. BestAlternative is set only when
// the top saving reaches the materiality threshold.
type Result struct {
	BaseOrigin           string          `json:"base_origin"`
	BaseLandedCost       decimal.Decimal `json:"base_landed_cost"`
	TariffVersionID      snowflake.ID    `json:"tariff_version_id"`
	TariffVersionLabel   string          `json:"tariff_version_label"`
	MaterialityThreshold decimal.Decimal `json:"materiality_threshold"`
	Alternatives         []Alternative   `json:"alternatives"`
	BestAlternative      *Alternative    `json:"best_alternative"`
	Insight              string          `json:"insight"`
	Skipped              []Skipped       `json:"skipped"`
}
