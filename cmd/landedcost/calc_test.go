package main

import (
	"testing"

	landedcostdomain "github.com/railzwaylabs/landedcost/internal/landedcost/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalcFlagsInput(t *testing.T) {
	f := calcFlags{
		hs:           "6109.10",
		invoiceValue: "1200",
		exchangeRate: "18.25",
		origin:       "de",
		incoterm:     "CIF",
		freight:      "350.50",
		quantity:     10,
		weightKg:     "42",
		targetMargin: "30",
		version:      "1786458752000000000",
	}

	in, err := f.input()
	require.NoError(t, err)

	assert.Nil(t, in.CustomsValue)
	assert.Equal(t, "1200", in.InvoiceValue.String())
	assert.Equal(t, "18.25", in.ExchangeRate.String())
	assert.Equal(t, "350.5", in.FreightCost.String())
	assert.True(t, in.InsuranceCost.IsZero())
	assert.Equal(t, landedcostdomain.Incoterm("CIF"), in.Incoterm)
	require.NotNil(t, in.NetWeightKg)
	assert.Equal(t, "42", in.NetWeightKg.String())
	require.NotNil(t, in.TargetMarginPercent)
	require.NotNil(t, in.TariffVersionID)
	assert.Equal(t, "1786458752000000000", in.TariffVersionID.String())
}

func TestCalcFlagsRejectBadNumbers(t *testing.T) {
	_, err := calcFlags{customsValue: "ten"}.input()
	assert.ErrorContains(t, err, "--value")

	_, err = calcFlags{version: "v1"}.input()
	assert.ErrorContains(t, err, "--tariff-version")
}
