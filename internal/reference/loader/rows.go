package loader

// CSV row shapes. Lists inside a cell are pipe-separated.

type countryRow struct {
	ISO2   string `csv:"iso2"`
	ISO3   string `csv:"iso3"`
	Name   string `csv:"name"`
	Region string `csv:"region,omitempty"`
}

type hsCodeRow struct {
	HS6         string `csv:"hs6"`
	Title       string `csv:"title"`
	Description string `csv:"description,omitempty"`
}

type tariffVersionRow struct {
	Label         string `csv:"label"`
	EffectiveFrom string `csv:"effective_from"`
	IsActive      bool   `csv:"is_active"`
}

type tariffRateRow struct {
	VersionLabel  string `csv:"version_label"`
	HS6           string `csv:"hs6"`
	DutyType      string `csv:"duty_type"`
	AdValoremPct  string `csv:"ad_valorem_pct,omitempty"`
	AmountPerUnit string `csv:"amount_per_unit,omitempty"`
	Unit          string `csv:"unit,omitempty"`
	RuleAdValorem string `csv:"rule_ad_valorem_pct,omitempty"`
	Mode          string `csv:"mode,omitempty"`
	VatSpecial    bool   `csv:"vat_special,omitempty"`
	VatTreatment  string `csv:"vat_treatment,omitempty"`
	Notes         string `csv:"notes,omitempty"`
}

type agreementRow struct {
	Code            string `csv:"code"`
	Name            string `csv:"name"`
	Kind            string `csv:"kind"`
	DestinationISO2 string `csv:"destination_iso2"`
	Origins         string `csv:"origins"`
	ProofDocuments  string `csv:"proof_documents,omitempty"`
}

type preferenceRow struct {
	VersionLabel    string `csv:"version_label"`
	AgreementCode   string `csv:"agreement_code"`
	HS6             string `csv:"hs6,omitempty"`
	Chapter         string `csv:"chapter,omitempty"`
	OriginISO2      string `csv:"origin_iso2,omitempty"`
	DutyOverridePct string `csv:"duty_override_pct,omitempty"`
	Notes           string `csv:"eligibility_notes,omitempty"`
}

type riskRuleRow struct {
	TriggerType  string `csv:"trigger_type"`
	TriggerValue string `csv:"trigger_value,omitempty"`
	Severity     string `csv:"severity"`
	Title        string `csv:"title"`
	Description  string `csv:"description"`
	Mitigation   string `csv:"mitigation,omitempty"`
}

type docRequirementRow struct {
	HS6          string `csv:"hs6"`
	OriginISO2   string `csv:"origin_iso2,omitempty"`
	DocumentName string `csv:"document_name"`
	Issuer       string `csv:"issuer,omitempty"`
	Confidence   string `csv:"confidence,omitempty"`
	Notes        string `csv:"notes,omitempty"`
}

type clusterRow struct {
	Name        string  `csv:"name"`
	Slug        string  `csv:"slug,omitempty"`
	Description string  `csv:"description,omitempty"`
	HS6         string  `csv:"hs6"`
	Confidence  float64 `csv:"confidence"`
}

type prefixClassRow struct {
	Prefix    string `csv:"prefix"`
	Class     string `csv:"class"`
	Label     string `csv:"label"`
	ExcisePct string `csv:"excise_pct,omitempty"`
}
