package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/railzwaylabs/landedcost/internal/config"
	landedcostdomain "github.com/railzwaylabs/landedcost/internal/landedcost/domain"
	"github.com/railzwaylabs/landedcost/internal/landedcost/landedcosttest"
	"github.com/railzwaylabs/landedcost/internal/preference"
	referencedomain "github.com/railzwaylabs/landedcost/internal/reference/domain"
	"github.com/railzwaylabs/landedcost/internal/reference/referencetest"
	"github.com/railzwaylabs/landedcost/internal/tariff"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type recorderMock struct {
	mock.Mock
}

func (m *recorderMock) Record(ctx context.Context, userID string, in landedcostdomain.CalcInput, out *landedcostdomain.CalcOutput) error {
	args := m.Called(ctx, userID, in, out)
	return args.Error(0)
}

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func dp(v string) *decimal.Decimal {
	x := d(v)
	return &x
}

func customs(hs6, origin, value string) landedcostdomain.CalcInput {
	return landedcostdomain.CalcInput{
		HSCode:        hs6,
		CustomsValue:  dp(value),
		OriginCountry: origin,
	}
}

func line(t *testing.T, out *landedcostdomain.CalcOutput, id string) landedcostdomain.LineItem {
	t.Helper()
	for _, item := range out.Breakdown {
		if item.ID == id {
			return item
		}
	}
	t.Fatalf("line item %s not found", id)
	return landedcostdomain.LineItem{}
}

func TestCalculateStandardVAT(t *testing.T) {
	env := landedcosttest.New(t, landedcosttest.Options{})

	out, err := env.Service.Calculate(context.Background(), customs(referencetest.HSLaptop, "CN", "10000"), "")
	require.NoError(t, err)

	assert.Equal(t, "10000.00", out.CustomsValue.StringFixed(2))
	assert.Equal(t, "0.00", out.DutyAmount.StringFixed(2))
	assert.Equal(t, "11000.00", out.ATV.StringFixed(2))
	assert.Equal(t, "1650.00", out.VATAmount.StringFixed(2))
	assert.Equal(t, "11650.00", out.LandedCostTotal.StringFixed(2))
	assert.Equal(t, landedcostdomain.VerdictUnknown, out.Verdict)
	assert.Equal(t, referencetest.CurrentVersionLabel, out.TariffVersionLabel)
	assert.Equal(t, landedcostdomain.ConfidenceHigh, out.Confidence)
	assert.Equal(t, preference.StatusNotEligible, out.PreferenceDecision.Status)
	assert.Equal(t, "Portable automatic data processing machines", out.Classification.Title)
	assert.Equal(t, "computers", out.Classification.Class)
	assert.Equal(t, "11650.00", line(t, out, landedcostdomain.LineTotal).Amount.StringFixed(2))
	assert.NotEmpty(t, out.AuditTrace)

	names := []string{}
	for _, doc := range out.Documents {
		names = append(names, doc.Name)
	}
	assert.Equal(t, []string{
		"Commercial invoice",
		"Packing list",
		"Bill of lading / air waybill",
		"SAD500 customs declaration",
	}, names)
}

func TestCalculateVATFormula(t *testing.T) {
	env := landedcosttest.New(t, landedcosttest.Options{})
	ctx := context.Background()

	for _, hs6 := range []string{referencetest.HSLaptop, referencetest.HSTShirt, referencetest.HSSolarPanel, referencetest.HSWine, referencetest.HSMotorCar} {
		t.Run(hs6, func(t *testing.T) {
			in := customs(hs6, "CN", "12345.67")
			in.Quantity = 10
			out, err := env.Service.Calculate(ctx, in, "")
			require.NoError(t, err)

			vat := out.CustomsValue.Mul(d("1.1")).Round(2).Add(out.DutyAmount).Mul(d("0.15")).Round(2)
			assert.True(t, vat.Equal(out.VATAmount), "vat %s != %s", vat, out.VATAmount)
			assert.True(t, out.ATV.Mul(d("0.15")).Round(2).Equal(out.VATAmount))
			assert.True(t, out.LandedCostTotal.GreaterThanOrEqual(out.CustomsValue))
			assert.True(t, out.LandedCostTotal.Equal(
				out.CustomsValue.Add(out.DutyAmount).Add(out.ExciseAmount).Add(out.VATAmount)))
		})
	}
}

func TestCalculateCustomsValueByIncoterm(t *testing.T) {
	env := landedcosttest.New(t, landedcosttest.Options{})
	ctx := context.Background()

	base := landedcostdomain.CalcInput{
		HSCode:        referencetest.HSLaptop,
		InvoiceValue:  d("500"),
		ExchangeRate:  d("18"),
		OriginCountry: "CN",
		FreightCost:   d("800"),
		InsuranceCost: d("200"),
	}

	fob := base
	fob.Incoterm = landedcostdomain.IncotermFOB
	out, err := env.Service.Calculate(ctx, fob, "")
	require.NoError(t, err)
	assert.Equal(t, "10000.00", out.CustomsValue.StringFixed(2))
	assert.Equal(t, "9000.00", line(t, out, landedcostdomain.LineGoodsValue).Amount.StringFixed(2))
	assert.Equal(t, "800.00", line(t, out, landedcostdomain.LineFreight).Amount.StringFixed(2))

	exw := base
	exw.Incoterm = landedcostdomain.IncotermEXW
	out, err = env.Service.Calculate(ctx, exw, "")
	require.NoError(t, err)
	assert.Equal(t, "10000.00", out.CustomsValue.StringFixed(2))

	cif := base
	cif.Incoterm = landedcostdomain.IncotermCIF
	out, err = env.Service.Calculate(ctx, cif, "")
	require.NoError(t, err)
	assert.Equal(t, "9000.00", out.CustomsValue.StringFixed(2))
	for _, item := range out.Breakdown {
		assert.NotEqual(t, landedcostdomain.LineFreight, item.ID)
	}
}

func TestCalculatePreferenceApplied(t *testing.T) {
	env := landedcosttest.New(t, landedcosttest.Options{})
	ctx := context.Background()

	out, err := env.Service.Calculate(ctx, customs(referencetest.HSTShirt, "DE", "10000"), "")
	require.NoError(t, err)

	assert.True(t, out.PreferenceDecision.Applied)
	assert.Equal(t, "0.07", out.PreferenceDecision.SavingsVsMFN.SavingsPct.String())
	assert.Equal(t, "1800.00", out.DutyAmount.StringFixed(2))
	assert.Equal(t, "12800.00", out.ATV.StringFixed(2))
	assert.Equal(t, "1920.00", out.VATAmount.StringFixed(2))
	assert.Equal(t, "13720.00", out.LandedCostTotal.StringFixed(2))
	assert.Contains(t, line(t, out, landedcostdomain.LineDuty).RateApplied, referencetest.AgreementEPA)

	var proof bool
	for _, doc := range out.Documents {
		if doc.Name == "EUR.1 movement certificate" {
			proof = true
			assert.Equal(t, landedcostdomain.DocSourcePreference, doc.Source)
		}
	}
	assert.True(t, proof)

	out, err = env.Service.Calculate(ctx, customs(referencetest.HSTShirt, "CN", "10000"), "")
	require.NoError(t, err)
	assert.False(t, out.PreferenceDecision.Applied)
	assert.Equal(t, "2500.00", out.DutyAmount.StringFixed(2))
	assert.Equal(t, "14525.00", out.LandedCostTotal.StringFixed(2))
}

func TestCalculateSpecificDutyAndExcise(t *testing.T) {
	env := landedcosttest.New(t, landedcosttest.Options{})

	in := customs(referencetest.HSWine, "FR", "9000")
	in.Quantity = 100
	out, err := env.Service.Calculate(context.Background(), in, "")
	require.NoError(t, err)

	assert.Equal(t, "450.00", out.DutyAmount.StringFixed(2))
	assert.Equal(t, "450.00", out.ExciseAmount.StringFixed(2))
	assert.Equal(t, "10350.00", out.ATV.StringFixed(2))
	assert.Equal(t, "1552.50", out.VATAmount.StringFixed(2))
	assert.Equal(t, "11452.50", out.LandedCostTotal.StringFixed(2))
	assert.Equal(t, "114.53", out.LandedCostPerUnit.StringFixed(2))
	assert.Equal(t, landedcostdomain.ConfidenceMedium, out.Confidence)
	assert.Equal(t, "4.50/l", line(t, out, landedcostdomain.LineDuty).RateApplied)
}

func TestCalculateCompoundDutyNeedsWeight(t *testing.T) {
	env := landedcosttest.New(t, landedcosttest.Options{})
	ctx := context.Background()

	_, err := env.Service.Calculate(ctx, customs(referencetest.HSChicken, "US", "10000"), "")
	var verr *landedcostdomain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "net_weight_kg", verr.Field)

	in := customs(referencetest.HSChicken, "US", "10000")
	in.NetWeightKg = dp("500")
	out, err := env.Service.Calculate(ctx, in, "")
	require.NoError(t, err)
	assert.Equal(t, "4700.00", out.DutyAmount.StringFixed(2))
	require.NotEmpty(t, out.ComplianceRisks)
	assert.Equal(t, referencedomain.SeverityCritical, out.ComplianceRisks[0].Severity)
}

func TestCalculateZeroRatedVAT(t *testing.T) {
	env := landedcosttest.New(t, landedcosttest.Options{})

	out, err := env.Service.Calculate(context.Background(), customs(referencetest.HSMedicine, "IN", "10000"), "")
	require.NoError(t, err)

	assert.True(t, out.VATAmount.IsZero())
	assert.True(t, out.RecoverableVAT.IsZero())
	assert.Equal(t, "10000.00", out.LandedCostTotal.StringFixed(2))
}

func TestCalculateExciseFromPrefixTable(t *testing.T) {
	env := landedcosttest.New(t, landedcosttest.Options{})

	out, err := env.Service.Calculate(context.Background(), customs(referencetest.HSMotorCar, "DE", "200000"), "")
	require.NoError(t, err)

	assert.Equal(t, "50000.00", out.DutyAmount.StringFixed(2))
	assert.Equal(t, "20000.00", out.ExciseAmount.StringFixed(2))
	assert.Equal(t, "270000.00", out.ATV.StringFixed(2))
	assert.Equal(t, "40500.00", out.VATAmount.StringFixed(2))
	assert.Equal(t, "310500.00", out.LandedCostTotal.StringFixed(2))
}

func TestCalculateExciseStaysOutOfVATBase(t *testing.T) {
	env := landedcosttest.New(t, landedcosttest.Options{})

	out, err := env.Service.Calculate(context.Background(), customs(referencetest.HSMotorCar, "CN", "10000"), "")
	require.NoError(t, err)

	assert.Equal(t, "2500.00", out.DutyAmount.StringFixed(2))
	assert.Equal(t, "1000.00", out.ExciseAmount.StringFixed(2))
	// (10000 x 1.10 + 2500) x 0.15
	assert.Equal(t, "13500.00", out.ATV.StringFixed(2))
	assert.Equal(t, "2025.00", out.VATAmount.StringFixed(2))
	assert.Equal(t, "15525.00", out.LandedCostTotal.StringFixed(2))
	assert.Equal(t, "10000.00 x 1.1 + 2500.00", line(t, out, landedcostdomain.LineATV).Formula)
}

func TestCalculateMissingData(t *testing.T) {
	ctx := context.Background()

	t.Run("no rate in version", func(t *testing.T) {
		env := landedcosttest.New(t, landedcosttest.Options{})
		_, err := env.Service.Calculate(ctx, customs(referencetest.HSNoRate, "DE", "1000"), "")
		require.ErrorIs(t, err, tariff.ErrRateNotFound)

		var nf *landedcostdomain.NotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, referencetest.HSNoRate, nf.HS6)
		assert.Equal(t, referencetest.CurrentVersionLabel, nf.Version)
		assert.Equal(t, "DE", nf.Origin)
		assert.Contains(t, err.Error(), "origin=DE")
	})

	t.Run("unknown hs code", func(t *testing.T) {
		env := landedcosttest.New(t, landedcosttest.Options{})
		_, err := env.Service.Calculate(ctx, customs("999999", "de", "1000"), "")
		assert.ErrorIs(t, err, landedcostdomain.ErrClassificationNotFound)

		var nf *landedcostdomain.NotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, "999999", nf.HS6)
		assert.Equal(t, "DE", nf.Origin)
	})

	t.Run("no active tariff", func(t *testing.T) {
		env := landedcosttest.New(t, landedcosttest.Options{Now: time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC)})
		_, err := env.Service.Calculate(ctx, customs(referencetest.HSLaptop, "DE", "1000"), "")
		assert.ErrorIs(t, err, tariff.ErrNoActiveTariff)

		var nf *landedcostdomain.NotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, "DE", nf.Origin)
	})

	t.Run("invalid input", func(t *testing.T) {
		env := landedcosttest.New(t, landedcosttest.Options{})
		_, err := env.Service.Calculate(ctx, customs(referencetest.HSLaptop, "", "1000"), "")
		assert.ErrorIs(t, err, landedcostdomain.ErrInvalidInput)
	})
}

func TestCalculatePinsVersion(t *testing.T) {
	env := landedcosttest.New(t, landedcosttest.Options{})
	ctx := context.Background()

	in := customs(referencetest.HSLaptop, "CN", "10000")
	in.TariffVersionID = &env.Fixture.LegacyVersion.ID
	out, err := env.Service.Calculate(ctx, in, "")
	require.NoError(t, err)
	assert.Equal(t, referencetest.LegacyVersionLabel, out.TariffVersionLabel)
	assert.Equal(t, "500.00", out.DutyAmount.StringFixed(2))

	// A second active version effective before now takes over.
	newer := referencedomain.TariffVersion{
		ID:            env.Fixture.Node.Generate(),
		Label:         "2024.2",
		EffectiveFrom: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		IsActive:      true,
	}
	require.NoError(t, env.DB.Create(&newer).Error)
	require.NoError(t, env.DB.Create(&referencedomain.TariffRate{
		ID:              env.Fixture.Node.Generate(),
		TariffVersionID: newer.ID,
		HS6:             referencetest.HSLaptop,
		DutyType:        referencedomain.DutyTypeAdValorem,
		AdValoremPct:    d("2"),
		VatTreatment:    referencedomain.VatStandard,
	}).Error)

	out, err = env.Service.Calculate(ctx, customs(referencetest.HSLaptop, "CN", "10000"), "")
	require.NoError(t, err)
	assert.Equal(t, "2024.2", out.TariffVersionLabel)
	assert.Equal(t, "200.00", out.DutyAmount.StringFixed(2))
}

func TestCalculateProfitability(t *testing.T) {
	env := landedcosttest.New(t, landedcosttest.Options{})
	ctx := context.Background()

	in := customs(referencetest.HSLaptop, "CN", "10000")
	in.Quantity = 10
	in.ImporterType = landedcostdomain.ImporterPrivate
	in.TargetSellingPrice = dp("1600")
	out, err := env.Service.Calculate(ctx, in, "")
	require.NoError(t, err)
	assert.Equal(t, "1165.00", out.LandedCostPerUnit.StringFixed(2))
	assert.Equal(t, "1165.00", out.NetLandedCostPerUnit.StringFixed(2))
	assert.Equal(t, "27.19", out.GrossMarginPercent.StringFixed(2))
	assert.Equal(t, "27.19", out.NetMarginPercent.StringFixed(2))
	assert.Equal(t, landedcostdomain.VerdictGo, out.Verdict)

	// Default importer type: recoverable VAT does not change the verdict.
	in.ImporterType = ""
	in.TargetSellingPrice = dp("1300")
	out, err = env.Service.Calculate(ctx, in, "")
	require.NoError(t, err)
	assert.Equal(t, "1650.00", out.RecoverableVAT.StringFixed(2))
	assert.Equal(t, "1165.00", out.LandedCostPerUnit.StringFixed(2))
	assert.Equal(t, "1000.00", out.NetLandedCostPerUnit.StringFixed(2))
	assert.Equal(t, "10.38", out.GrossMarginPercent.StringFixed(2))
	assert.Equal(t, "23.08", out.NetMarginPercent.StringFixed(2))
	assert.Equal(t, landedcostdomain.VerdictNoGo, out.Verdict)

	in.TargetSellingPrice = nil
	in.TargetMarginPercent = dp("20")
	out, err = env.Service.Calculate(ctx, in, "")
	require.NoError(t, err)
	assert.Equal(t, "1456.25", out.BreakEvenPrice.StringFixed(2))
	assert.Nil(t, out.NetMarginPercent)
	assert.Nil(t, out.GrossMarginPercent)
	assert.Equal(t, landedcostdomain.VerdictCaution, out.Verdict)

	in.TargetMarginPercent = dp("5")
	out, err = env.Service.Calculate(ctx, in, "")
	require.NoError(t, err)
	assert.Equal(t, landedcostdomain.VerdictNoGo, out.Verdict)
}

func TestCalculateIsIdempotent(t *testing.T) {
	env := landedcosttest.New(t, landedcosttest.Options{})
	ctx := context.Background()

	in := customs(referencetest.HSSolarPanel, "CN", "25000")
	in.ClusterSlug = referencetest.ClusterSolar
	in.TargetSellingPrice = dp("40000")

	first, err := env.Service.Calculate(ctx, in, "")
	require.NoError(t, err)
	second, err := env.Service.Calculate(ctx, in, "")
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.JSONEq(t, string(a), string(b))
}

func TestCalculateFromCluster(t *testing.T) {
	env := landedcosttest.New(t, landedcosttest.Options{})
	ctx := context.Background()

	out, err := env.Service.Calculate(ctx, landedcostdomain.CalcInput{
		ClusterSlug:   referencetest.ClusterSolar,
		CustomsValue:  dp("10000"),
		OriginCountry: "CN",
	}, "")
	require.NoError(t, err)

	assert.Equal(t, referencetest.HSSolarPanel, out.Classification.HS6)
	assert.Equal(t, landedcostdomain.ClassificationFromCluster, out.Classification.Source)
	require.NotNil(t, out.Classification.ClusterConfidence)
	assert.InDelta(t, 0.9, *out.Classification.ClusterConfidence, 1e-9)
	assert.Len(t, out.DetailedRisks, 5)
	assert.Len(t, out.ComplianceRisks, 3)
	assert.Equal(t, 2, out.AdditionalRiskCount)
	assert.Equal(t, referencedomain.SeverityHigh, out.ComplianceRisks[0].Severity)

	_, err = env.Service.Calculate(ctx, landedcostdomain.CalcInput{
		ClusterSlug:   "hoverboards",
		CustomsValue:  dp("10000"),
		OriginCountry: "CN",
	}, "")
	var verr *landedcostdomain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "cluster_slug", verr.Field)
}

func TestCalculateRecordsRuns(t *testing.T) {
	recorder := &recorderMock{}
	env := landedcosttest.New(t, landedcosttest.Options{Recorder: recorder})
	ctx := context.Background()

	recorder.On("Record", mock.Anything, "user-1", mock.Anything, mock.Anything).
		Return(errors.New("disk full")).Once()

	out, err := env.Service.Calculate(ctx, customs(referencetest.HSLaptop, "CN", "10000"), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "11650.00", out.LandedCostTotal.StringFixed(2))

	_, err = env.Service.Calculate(ctx, customs(referencetest.HSLaptop, "CN", "10000"), "")
	require.NoError(t, err)

	recorder.AssertExpectations(t)
	recorder.AssertNumberOfCalls(t, "Record", 1)
}

func TestCompareKeepsOrder(t *testing.T) {
	env := landedcosttest.New(t, landedcosttest.Options{})

	results, err := env.Service.Compare(context.Background(), []landedcostdomain.CalcInput{
		customs(referencetest.HSTShirt, "CN", "10000"),
		customs(referencetest.HSNoRate, "CN", "10000"),
		customs(referencetest.HSTShirt, "DE", "10000"),
		customs(referencetest.HSTShirt, "", "10000"),
	})
	require.NoError(t, err)
	require.Len(t, results, 4)

	for i, r := range results {
		assert.Equal(t, i, r.Index)
	}
	require.NotNil(t, results[0].Output)
	assert.Equal(t, "2500.00", results[0].Output.DutyAmount.StringFixed(2))
	require.NotNil(t, results[1].Error)
	assert.Equal(t, tariff.ErrRateNotFound.Error(), results[1].Error.Code)
	require.NotNil(t, results[2].Output)
	assert.Equal(t, "1800.00", results[2].Output.DutyAmount.StringFixed(2))
	require.NotNil(t, results[3].Error)
	assert.Equal(t, "origin_country", results[3].Error.Field)
}

func TestCompareLimits(t *testing.T) {
	cfg := config.Default()
	cfg.Engine.MaxCompareScenarios = 2
	env := landedcosttest.New(t, landedcosttest.Options{Config: &cfg})
	ctx := context.Background()

	_, err := env.Service.Compare(ctx, nil)
	assert.ErrorIs(t, err, landedcostdomain.ErrInvalidInput)

	in := customs(referencetest.HSLaptop, "CN", "1000")
	_, err = env.Service.Compare(ctx, []landedcostdomain.CalcInput{in, in, in})
	var verr *landedcostdomain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, landedcostdomain.ErrTooManyScenarios.Error(), verr.Code)
}
