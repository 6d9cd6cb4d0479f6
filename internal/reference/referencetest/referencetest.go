// Package referencetest provides an in-memory reference data store seeded
// with a small South African tariff schedule for use in tests.
package referencetest

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	referencedomain "github.com/railzwaylabs/landedcost/internal/reference/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Fixture labels and codes used by the seeded data.
const (
	CurrentVersionLabel = "2024.1"
	LegacyVersionLabel  = "2023.4"

	HSLaptop     = "847130"
	HSTShirt     = "610910"
	HSSolarPanel = "854143"
	HSResistor   = "853020"
	HSWine       = "220421"
	HSChicken    = "020714"
	HSMedicine   = "300490"
	HSMotorCar   = "870323"
	HSNoRate     = "010121"

	AgreementEPA  = "EU-SADC-EPA"
	AgreementSADC = "SADC-FTA"
	AgreementEFTA = "EFTA-SACU"

	ClusterSolar   = "solar-panels"
	ClusterLaptops = "laptops"
)

// Fixture exposes the generated identifiers of the seeded rows.
type Fixture struct {
	Node           *snowflake.Node
	CurrentVersion referencedomain.TariffVersion
	LegacyVersion  referencedomain.TariffVersion
	Agreements     map[string]referencedomain.TradeAgreement
}

// OpenDB returns an isolated in-memory database with every reference table
// migrated.
func OpenDB(t testing.TB, models ...any) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(referencedomain.Models()...))
	if len(models) > 0 {
		require.NoError(t, db.AutoMigrate(models...))
	}
	return db
}

// Seed inserts the standard fixture.
func Seed(t testing.TB, db *gorm.DB) Fixture {
	t.Helper()

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	f := Fixture{Node: node, Agreements: map[string]referencedomain.TradeAgreement{}}
	create := func(v any) {
		t.Helper()
		require.NoError(t, db.Create(v).Error)
	}

	for _, c := range [][4]string{
		{"ZA", "ZAF", "South Africa", "Africa"},
		{"CN", "CHN", "China", "Asia"},
		{"DE", "DEU", "Germany", "Europe"},
		{"IT", "ITA", "Italy", "Europe"},
		{"FR", "FRA", "France", "Europe"},
		{"MU", "MUS", "Mauritius", "Africa"},
		{"MZ", "MOZ", "Mozambique", "Africa"},
		{"CH", "CHE", "Switzerland", "Europe"},
		{"VN", "VNM", "Viet Nam", "Asia"},
		{"IN", "IND", "India", "Asia"},
		{"US", "USA", "United States", "Americas"},
	} {
		create(&referencedomain.Country{ISO2: c[0], ISO3: c[1], Name: c[2], Region: c[3]})
	}

	for hs6, title := range map[string]string{
		HSLaptop:     "Portable automatic data processing machines",
		HSTShirt:     "T-shirts, singlets and other vests, of cotton",
		HSSolarPanel: "Photovoltaic cells assembled in modules or made up into panels",
		HSResistor:   "Electrical signalling equipment for roads",
		HSWine:       "Wine of fresh grapes, in containers of 2 l or less",
		HSChicken:    "Frozen cuts and offal of fowls",
		HSMedicine:   "Medicaments, packaged for retail sale",
		HSMotorCar:   "Motor cars, spark-ignition, 1500cc to 3000cc",
		HSNoRate:     "Pure-bred breeding horses",
	} {
		create(&referencedomain.HsCode{ID: node.Generate(), HS6: hs6, Chapter: hs6[:2], Title: title})
	}

	f.LegacyVersion = referencedomain.TariffVersion{
		ID:            node.Generate(),
		Label:         LegacyVersionLabel,
		EffectiveFrom: time.Date(2023, 10, 1, 0, 0, 0, 0, time.UTC),
		IsActive:      false,
	}
	create(&f.LegacyVersion)
	f.CurrentVersion = referencedomain.TariffVersion{
		ID:            node.Generate(),
		Label:         CurrentVersionLabel,
		EffectiveFrom: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		IsActive:      true,
	}
	create(&f.CurrentVersion)

	adValorem := func(hs6 string, pct float64) *referencedomain.TariffRate {
		return &referencedomain.TariffRate{
			ID:              node.Generate(),
			TariffVersionID: f.CurrentVersion.ID,
			HS6:             hs6,
			DutyType:        referencedomain.DutyTypeAdValorem,
			AdValoremPct:    decimal.NewFromFloat(pct),
			VatTreatment:    referencedomain.VatStandard,
		}
	}
	create(adValorem(HSLaptop, 0))
	create(adValorem(HSTShirt, 25))
	create(adValorem(HSSolarPanel, 10))
	create(adValorem(HSResistor, 15))
	create(adValorem(HSMotorCar, 25))
	create(&referencedomain.TariffRate{
		ID:              node.Generate(),
		TariffVersionID: f.CurrentVersion.ID,
		HS6:             HSWine,
		DutyType:        referencedomain.DutyTypeSpecific,
		SpecificRule:    Rule(referencedomain.DutyRule{AmountPerUnit: decimal.RequireFromString("4.50"), Unit: referencedomain.UnitLitre}),
		VatTreatment:    referencedomain.VatStandard,
	})
	create(&referencedomain.TariffRate{
		ID:              node.Generate(),
		TariffVersionID: f.CurrentVersion.ID,
		HS6:             HSChicken,
		DutyType:        referencedomain.DutyTypeCompound,
		CompoundRule: Rule(referencedomain.DutyRule{
			AmountPerUnit: decimal.RequireFromString("9.40"),
			Unit:          referencedomain.UnitKg,
			AdValoremPct:  decimal.NewFromInt(37),
			Mode:          referencedomain.CompoundMax,
		}),
		VatTreatment: referencedomain.VatStandard,
	})
	create(&referencedomain.TariffRate{
		ID:                    node.Generate(),
		TariffVersionID:       f.CurrentVersion.ID,
		HS6:                   HSMedicine,
		DutyType:              referencedomain.DutyTypeFree,
		HasVatSpecialHandling: true,
		VatTreatment:          referencedomain.VatZeroRated,
	})
	// The legacy schedule only knows the laptop line, at a different rate.
	legacyLaptop := adValorem(HSLaptop, 5)
	legacyLaptop.TariffVersionID = f.LegacyVersion.ID
	create(legacyLaptop)

	agreement := func(code, kind string, origins []string, proofs ...string) {
		raw, err := json.Marshal(proofs)
		require.NoError(t, err)
		a := referencedomain.TradeAgreement{
			ID:              node.Generate(),
			Code:            code,
			Name:            code,
			Kind:            kind,
			DestinationISO2: "ZA",
			ProofDocuments:  datatypes.JSON(raw),
		}
		create(&a)
		for _, origin := range origins {
			create(&referencedomain.AgreementOrigin{ID: node.Generate(), AgreementID: a.ID, OriginISO2: origin})
		}
		f.Agreements[code] = a
	}
	agreement(AgreementEPA, "EPA", []string{"DE", "IT", "FR"}, "EUR.1 movement certificate", "Origin declaration on invoice")
	agreement(AgreementSADC, "FTA", []string{"MU", "MZ"}, "SADC certificate of origin")
	agreement(AgreementEFTA, "FTA", []string{"CH"}, "EUR.1 movement certificate")

	pct := func(v float64) decimal.NullDecimal { return decimal.NewNullDecimal(decimal.NewFromFloat(v)) }
	create(&referencedomain.OriginPreference{
		ID:              node.Generate(),
		TariffVersionID: f.CurrentVersion.ID,
		AgreementID:     f.Agreements[AgreementEPA].ID,
		HS6:             HSTShirt,
		Chapter:         "61",
		OriginISO2:      "DE",
		DutyOverridePct: pct(18),
	})
	create(&referencedomain.OriginPreference{
		ID:               node.Generate(),
		TariffVersionID:  f.CurrentVersion.ID,
		AgreementID:      f.Agreements[AgreementEPA].ID,
		Chapter:          "85",
		IsChapterRule:    true,
		EligibilityNotes: "Wholly obtained or sufficiently worked in the EU",
	})
	create(&referencedomain.OriginPreference{
		ID:              node.Generate(),
		TariffVersionID: f.CurrentVersion.ID,
		AgreementID:     f.Agreements[AgreementEPA].ID,
		Chapter:         "84",
		IsChapterRule:   true,
	})
	create(&referencedomain.OriginPreference{
		ID:              node.Generate(),
		TariffVersionID: f.CurrentVersion.ID,
		AgreementID:     f.Agreements[AgreementSADC].ID,
		Chapter:         "61",
		IsChapterRule:   true,
	})

	risk := func(trigger referencedomain.TriggerType, value string, severity referencedomain.Severity, title string) {
		create(&referencedomain.RiskRule{
			ID:           node.Generate(),
			TriggerType:  trigger,
			TriggerValue: value,
			Severity:     severity,
			Title:        title,
			Description:  title,
			Mitigation:   "Engage a licensed clearing agent",
		})
	}
	risk(referencedomain.TriggerGeneric, "", referencedomain.SeverityLow, "Customs valuation review")
	risk(referencedomain.TriggerHSCodePrefix, "85", referencedomain.SeverityHigh, "NRCS compulsory specification")
	risk(referencedomain.TriggerHSCodePrefix, "8541", referencedomain.SeverityMedium, "Solar module anti-dumping watch")
	risk(referencedomain.TriggerHSCodePrefix, "2204", referencedomain.SeverityHigh, "Liquor import permit")
	risk(referencedomain.TriggerHSCodePrefix, "0207", referencedomain.SeverityCritical, "Veterinary import permit")
	risk(referencedomain.TriggerOriginISO, "CN", referencedomain.SeverityMedium, "Origin verification")
	risk(referencedomain.TriggerClusterSlug, ClusterSolar, referencedomain.SeverityLow, "Installer compliance")

	doc := func(hs6, origin, name, issuer string) {
		create(&referencedomain.DocRequirement{
			ID:           node.Generate(),
			HS6:          hs6,
			OriginISO2:   origin,
			DocumentName: name,
			Issuer:       issuer,
			Confidence:   "HIGH",
		})
	}
	doc(HSSolarPanel, "", "NRCS Letter of Authority", "NRCS")
	doc(HSWine, "", "Liquor import permit", "DTIC")
	doc(HSChicken, "", "Veterinary import permit", "DALRRD")
	doc(HSChicken, "CN", "Veterinary health certificate", "GACC")

	cluster := func(slug, name string, maps map[string]float64) {
		c := referencedomain.ProductCluster{ID: node.Generate(), Slug: slug, Name: name}
		create(&c)
		for hs6, confidence := range maps {
			create(&referencedomain.ProductClusterHsMap{ID: node.Generate(), ClusterID: c.ID, HS6: hs6, Confidence: confidence})
		}
	}
	cluster(ClusterSolar, "Solar Panels", map[string]float64{HSSolarPanel: 0.9, HSResistor: 0.3})
	cluster(ClusterLaptops, "Laptops", map[string]float64{HSLaptop: 1})

	prefix := func(p, class, label string, excise float64) {
		create(&referencedomain.HsPrefixClass{
			ID:        node.Generate(),
			Prefix:    p,
			Class:     class,
			Label:     label,
			ExcisePct: decimal.NewFromFloat(excise),
		})
	}
	prefix("22", "beverages", "Beverages, spirits and vinegar", 0)
	prefix("2204", "wine", "Wine", 5)
	prefix("84", "machinery", "Machinery and mechanical appliances", 0)
	prefix("8471", "computers", "Computers and peripherals", 0)
	prefix("85", "electrical", "Electrical machinery and equipment", 0)
	prefix("61", "apparel", "Knitted apparel", 0)
	prefix("8703", "vehicles", "Passenger motor vehicles", 10)

	return f
}

// Rule encodes a duty rule as a JSON column value.
func Rule(rule referencedomain.DutyRule) datatypes.JSON {
	raw, err := json.Marshal(rule)
	if err != nil {
		panic(err)
	}
	return datatypes.JSON(raw)
}
