// Package loader seeds reference data from a directory of CSV files. Every
// file is optional; rows are upserted on their natural keys, except tariff
// rates and origin preferences which are insert-only.
package loader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/jszwec/csvutil"
	referencedomain "github.com/railzwaylabs/landedcost/internal/reference/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	FileCountries       = "countries.csv"
	FileHsCodes         = "hs_codes.csv"
	FileTariffVersions  = "tariff_versions.csv"
	FileTariffRates     = "tariff_rates.csv"
	FileAgreements      = "trade_agreements.csv"
	FilePreferences     = "origin_preferences.csv"
	FileRiskRules       = "risk_rules.csv"
	FileDocRequirements = "doc_requirements.csv"
	FileClusters        = "clusters.csv"
	FilePrefixClasses   = "hs_prefix_classes.csv"
)

// Summary counts the rows read per file.
type Summary map[string]int

type Loader struct {
	db    *gorm.DB
	genID *snowflake.Node
	log   *zap.Logger
}

func New(db *gorm.DB, genID *snowflake.Node, log *zap.Logger) *Loader {
	return &Loader{db: db, genID: genID, log: log.Named("reference.loader")}
}

// LoadDir reads every known file present in dir inside one transaction.
func (l *Loader) LoadDir(ctx context.Context, dir string) (Summary, error) {
	summary := Summary{}
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		steps := []struct {
			file string
			load func(*gorm.DB, []byte) (int, error)
		}{
			{FileCountries, l.loadCountries},
			{FileHsCodes, l.loadHsCodes},
			{FileTariffVersions, l.loadTariffVersions},
			{FileTariffRates, l.loadTariffRates},
			{FileAgreements, l.loadAgreements},
			{FilePreferences, l.loadPreferences},
			{FileRiskRules, l.loadRiskRules},
			{FileDocRequirements, l.loadDocRequirements},
			{FileClusters, l.loadClusters},
			{FilePrefixClasses, l.loadPrefixClasses},
		}

		for _, step := range steps {
			data, err := os.ReadFile(filepath.Join(dir, step.file))
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			if err != nil {
				return fmt.Errorf("read %s: %w", step.file, err)
			}
			n, err := step.load(tx, data)
			if err != nil {
				return fmt.Errorf("load %s: %w", step.file, err)
			}
			summary[step.file] = n
			l.log.Info("reference file loaded", zap.String("file", step.file), zap.Int("rows", n))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

func (l *Loader) loadCountries(tx *gorm.DB, data []byte) (int, error) {
	var rows []countryRow
	if err := csvutil.Unmarshal(data, &rows); err != nil {
		return 0, err
	}
	for _, row := range rows {
		country := referencedomain.Country{
			ISO2:   strings.ToUpper(strings.TrimSpace(row.ISO2)),
			ISO3:   strings.ToUpper(strings.TrimSpace(row.ISO3)),
			Name:   strings.TrimSpace(row.Name),
			Region: strings.TrimSpace(row.Region),
		}
		if len(country.ISO2) != 2 {
			return 0, fmt.Errorf("invalid iso2 %q", row.ISO2)
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "iso2"}},
			DoUpdates: clause.AssignmentColumns([]string{"iso3", "name", "region"}),
		}).Create(&country).Error
		if err != nil {
			return 0, err
		}
	}
	return len(rows), nil
}

func (l *Loader) loadHsCodes(tx *gorm.DB, data []byte) (int, error) {
	var rows []hsCodeRow
	if err := csvutil.Unmarshal(data, &rows); err != nil {
		return 0, err
	}
	for _, row := range rows {
		hs6, ok := referencedomain.NormalizeHS6(row.HS6)
		if !ok {
			return 0, fmt.Errorf("invalid hs6 %q", row.HS6)
		}
		code := referencedomain.HsCode{
			ID:          l.genID.Generate(),
			HS6:         hs6,
			Chapter:     referencedomain.Chapter(hs6),
			Title:       strings.TrimSpace(row.Title),
			Description: strings.TrimSpace(row.Description),
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "hs6"}},
			DoUpdates: clause.AssignmentColumns([]string{"title", "description"}),
		}).Create(&code).Error
		if err != nil {
			return 0, err
		}
	}
	return len(rows), nil
}

func (l *Loader) loadTariffVersions(tx *gorm.DB, data []byte) (int, error) {
	var rows []tariffVersionRow
	if err := csvutil.Unmarshal(data, &rows); err != nil {
		return 0, err
	}
	for _, row := range rows {
		effectiveFrom, err := parseDate(row.EffectiveFrom)
		if err != nil {
			return 0, err
		}
		version := referencedomain.TariffVersion{
			ID:            l.genID.Generate(),
			Label:         strings.TrimSpace(row.Label),
			EffectiveFrom: effectiveFrom,
			IsActive:      row.IsActive,
		}
		err = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "label"}},
			DoUpdates: clause.AssignmentColumns([]string{"effective_from", "is_active"}),
		}).Create(&version).Error
		if err != nil {
			return 0, err
		}
	}
	return len(rows), nil
}

func (l *Loader) loadTariffRates(tx *gorm.DB, data []byte) (int, error) {
	var rows []tariffRateRow
	if err := csvutil.Unmarshal(data, &rows); err != nil {
		return 0, err
	}
	versions := map[string]snowflake.ID{}
	for _, row := range rows {
		versionID, err := l.versionID(tx, versions, row.VersionLabel)
		if err != nil {
			return 0, err
		}
		hs6, ok := referencedomain.NormalizeHS6(row.HS6)
		if !ok {
			return 0, fmt.Errorf("invalid hs6 %q", row.HS6)
		}
		adValorem, err := parseDecimal(row.AdValoremPct)
		if err != nil {
			return 0, err
		}

		rate := referencedomain.TariffRate{
			ID:                    l.genID.Generate(),
			TariffVersionID:       versionID,
			HS6:                   hs6,
			DutyType:              referencedomain.DutyType(strings.ToLower(strings.TrimSpace(row.DutyType))),
			AdValoremPct:          adValorem,
			HasVatSpecialHandling: row.VatSpecial,
			VatTreatment:          referencedomain.VatTreatment(defaultString(row.VatTreatment, string(referencedomain.VatStandard))),
			Notes:                 strings.TrimSpace(row.Notes),
		}

		switch rate.DutyType {
		case referencedomain.DutyTypeAdValorem, referencedomain.DutyTypeFree:
		case referencedomain.DutyTypeSpecific, referencedomain.DutyTypeCompound:
			rule, err := ruleFromRow(row)
			if err != nil {
				return 0, err
			}
			if rate.DutyType == referencedomain.DutyTypeSpecific {
				rate.SpecificRule = rule
			} else {
				rate.CompoundRule = rule
			}
		default:
			return 0, fmt.Errorf("unknown duty type %q for %s", row.DutyType, hs6)
		}

		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rate).Error; err != nil {
			return 0, err
		}
	}
	return len(rows), nil
}

func ruleFromRow(row tariffRateRow) (datatypes.JSON, error) {
	amount, err := parseDecimal(row.AmountPerUnit)
	if err != nil {
		return nil, err
	}
	adValorem, err := parseDecimal(row.RuleAdValorem)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(referencedomain.DutyRule{
		AmountPerUnit: amount,
		Unit:          defaultString(row.Unit, referencedomain.UnitItem),
		AdValoremPct:  adValorem,
		Mode:          defaultString(row.Mode, referencedomain.CompoundPlus),
	})
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func (l *Loader) loadAgreements(tx *gorm.DB, data []byte) (int, error) {
	var rows []agreementRow
	if err := csvutil.Unmarshal(data, &rows); err != nil {
		return 0, err
	}
	for _, row := range rows {
		proofs, err := json.Marshal(splitList(row.ProofDocuments))
		if err != nil {
			return 0, err
		}
		agreement := referencedomain.TradeAgreement{
			ID:              l.genID.Generate(),
			Code:            strings.TrimSpace(row.Code),
			Name:            strings.TrimSpace(row.Name),
			Kind:            strings.ToUpper(strings.TrimSpace(row.Kind)),
			DestinationISO2: strings.ToUpper(strings.TrimSpace(row.DestinationISO2)),
			ProofDocuments:  datatypes.JSON(proofs),
		}
		err = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "kind", "destination_iso2", "proof_documents"}),
		}).Create(&agreement).Error
		if err != nil {
			return 0, err
		}

		var stored referencedomain.TradeAgreement
		if err := tx.Where("code = ?", agreement.Code).First(&stored).Error; err != nil {
			return 0, err
		}
		for _, origin := range splitList(row.Origins) {
			link := referencedomain.AgreementOrigin{
				ID:          l.genID.Generate(),
				AgreementID: stored.ID,
				OriginISO2:  strings.ToUpper(origin),
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&link).Error; err != nil {
				return 0, err
			}
		}
	}
	return len(rows), nil
}

func (l *Loader) loadPreferences(tx *gorm.DB, data []byte) (int, error) {
	var rows []preferenceRow
	if err := csvutil.Unmarshal(data, &rows); err != nil {
		return 0, err
	}
	versions := map[string]snowflake.ID{}
	agreements := map[string]snowflake.ID{}
	for _, row := range rows {
		versionID, err := l.versionID(tx, versions, row.VersionLabel)
		if err != nil {
			return 0, err
		}
		agreementID, err := l.agreementID(tx, agreements, row.AgreementCode)
		if err != nil {
			return 0, err
		}

		pref := referencedomain.OriginPreference{
			ID:               l.genID.Generate(),
			TariffVersionID:  versionID,
			AgreementID:      agreementID,
			OriginISO2:       strings.ToUpper(strings.TrimSpace(row.OriginISO2)),
			EligibilityNotes: strings.TrimSpace(row.Notes),
		}
		if strings.TrimSpace(row.HS6) != "" {
			hs6, ok := referencedomain.NormalizeHS6(row.HS6)
			if !ok {
				return 0, fmt.Errorf("invalid hs6 %q", row.HS6)
			}
			pref.HS6 = hs6
			pref.Chapter = referencedomain.Chapter(hs6)
		} else {
			chapter := strings.TrimSpace(row.Chapter)
			if len(chapter) != 2 {
				return 0, fmt.Errorf("chapter rule needs a 2-digit chapter, got %q", row.Chapter)
			}
			pref.Chapter = chapter
			pref.IsChapterRule = true
		}
		if !pref.IsChapterRule && pref.OriginISO2 == "" {
			return 0, fmt.Errorf("exact preference for %s needs an origin", pref.HS6)
		}
		if v := strings.TrimSpace(row.DutyOverridePct); v != "" {
			pct, err := decimal.NewFromString(v)
			if err != nil {
				return 0, fmt.Errorf("invalid duty_override_pct %q: %w", v, err)
			}
			pref.DutyOverridePct = decimal.NewNullDecimal(pct)
		}

		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&pref).Error; err != nil {
			return 0, err
		}
	}
	return len(rows), nil
}

func (l *Loader) loadRiskRules(tx *gorm.DB, data []byte) (int, error) {
	var rows []riskRuleRow
	if err := csvutil.Unmarshal(data, &rows); err != nil {
		return 0, err
	}
	for _, row := range rows {
		rule := referencedomain.RiskRule{
			ID:           l.genID.Generate(),
			TriggerType:  referencedomain.TriggerType(strings.ToUpper(strings.TrimSpace(row.TriggerType))),
			TriggerValue: strings.TrimSpace(row.TriggerValue),
			Severity:     referencedomain.Severity(strings.ToUpper(strings.TrimSpace(row.Severity))),
			Title:        strings.TrimSpace(row.Title),
			Description:  strings.TrimSpace(row.Description),
			Mitigation:   strings.TrimSpace(row.Mitigation),
		}
		if rule.TriggerType == referencedomain.TriggerOriginISO {
			rule.TriggerValue = strings.ToUpper(rule.TriggerValue)
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "trigger_type"}, {Name: "trigger_value"}, {Name: "title"}},
			DoUpdates: clause.AssignmentColumns([]string{"severity", "description", "mitigation"}),
		}).Create(&rule).Error
		if err != nil {
			return 0, err
		}
	}
	return len(rows), nil
}

func (l *Loader) loadDocRequirements(tx *gorm.DB, data []byte) (int, error) {
	var rows []docRequirementRow
	if err := csvutil.Unmarshal(data, &rows); err != nil {
		return 0, err
	}
	for _, row := range rows {
		hs6, ok := referencedomain.NormalizeHS6(row.HS6)
		if !ok {
			return 0, fmt.Errorf("invalid hs6 %q", row.HS6)
		}
		doc := referencedomain.DocRequirement{
			ID:           l.genID.Generate(),
			HS6:          hs6,
			OriginISO2:   strings.ToUpper(strings.TrimSpace(row.OriginISO2)),
			DocumentName: strings.TrimSpace(row.DocumentName),
			Issuer:       strings.TrimSpace(row.Issuer),
			Confidence:   strings.ToUpper(defaultString(row.Confidence, "MEDIUM")),
			Notes:        strings.TrimSpace(row.Notes),
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "hs6"}, {Name: "origin_iso2"}, {Name: "document_name"}},
			DoUpdates: clause.AssignmentColumns([]string{"issuer", "confidence", "notes"}),
		}).Create(&doc).Error
		if err != nil {
			return 0, err
		}
	}
	return len(rows), nil
}

func (l *Loader) loadClusters(tx *gorm.DB, data []byte) (int, error) {
	var rows []clusterRow
	if err := csvutil.Unmarshal(data, &rows); err != nil {
		return 0, err
	}
	for _, row := range rows {
		clusterSlug := strings.TrimSpace(row.Slug)
		if clusterSlug == "" {
			clusterSlug = slug.Make(row.Name)
		}
		cluster := referencedomain.ProductCluster{
			ID:          l.genID.Generate(),
			Slug:        clusterSlug,
			Name:        strings.TrimSpace(row.Name),
			Description: strings.TrimSpace(row.Description),
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slug"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "description"}),
		}).Create(&cluster).Error
		if err != nil {
			return 0, err
		}

		var stored referencedomain.ProductCluster
		if err := tx.Where("slug = ?", clusterSlug).First(&stored).Error; err != nil {
			return 0, err
		}
		hs6, ok := referencedomain.NormalizeHS6(row.HS6)
		if !ok {
			return 0, fmt.Errorf("invalid hs6 %q for cluster %s", row.HS6, clusterSlug)
		}
		mapping := referencedomain.ProductClusterHsMap{
			ID:         l.genID.Generate(),
			ClusterID:  stored.ID,
			HS6:        hs6,
			Confidence: row.Confidence,
		}
		err = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "cluster_id"}, {Name: "hs6"}},
			DoUpdates: clause.AssignmentColumns([]string{"confidence"}),
		}).Create(&mapping).Error
		if err != nil {
			return 0, err
		}
	}
	return len(rows), nil
}

func (l *Loader) loadPrefixClasses(tx *gorm.DB, data []byte) (int, error) {
	var rows []prefixClassRow
	if err := csvutil.Unmarshal(data, &rows); err != nil {
		return 0, err
	}
	for _, row := range rows {
		prefix := strings.TrimSpace(row.Prefix)
		if prefix == "" || len(prefix) > 6 {
			return 0, fmt.Errorf("invalid prefix %q", row.Prefix)
		}
		excise, err := parseDecimal(row.ExcisePct)
		if err != nil {
			return 0, err
		}
		class := referencedomain.HsPrefixClass{
			ID:        l.genID.Generate(),
			Prefix:    prefix,
			Class:     strings.TrimSpace(row.Class),
			Label:     strings.TrimSpace(row.Label),
			ExcisePct: excise,
		}
		err = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "prefix"}},
			DoUpdates: clause.AssignmentColumns([]string{"class", "label", "excise_pct"}),
		}).Create(&class).Error
		if err != nil {
			return 0, err
		}
	}
	return len(rows), nil
}

func (l *Loader) versionID(tx *gorm.DB, cache map[string]snowflake.ID, label string) (snowflake.ID, error) {
	label = strings.TrimSpace(label)
	if id, ok := cache[label]; ok {
		return id, nil
	}
	var version referencedomain.TariffVersion
	if err := tx.Where("label = ?", label).First(&version).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, fmt.Errorf("unknown tariff version %q", label)
		}
		return 0, err
	}
	cache[label] = version.ID
	return version.ID, nil
}

func (l *Loader) agreementID(tx *gorm.DB, cache map[string]snowflake.ID, code string) (snowflake.ID, error) {
	code = strings.TrimSpace(code)
	if id, ok := cache[code]; ok {
		return id, nil
	}
	var agreement referencedomain.TradeAgreement
	if err := tx.Where("code = ?", code).First(&agreement).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, fmt.Errorf("unknown trade agreement %q", code)
		}
		return 0, err
	}
	cache[code] = agreement.ID
	return agreement.ID, nil
}

func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", value)
	}
	return t.UTC(), nil
}

func parseDecimal(value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid number %q: %w", value, err)
	}
	return d, nil
}

func splitList(value string) []string {
	parts := strings.Split(value, "|")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func defaultString(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}
