package preference

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/railzwaylabs/landedcost/internal/observability"
	referencedomain "github.com/railzwaylabs/landedcost/internal/reference/domain"
	"github.com/railzwaylabs/landedcost/internal/reference/referencetest"
	"github.com/railzwaylabs/landedcost/internal/reference/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type repoMock struct {
	referencedomain.Repository
	mock.Mock
}

func (m *repoMock) ListAgreementsCoveringOrigin(ctx context.Context, origin, destination string) ([]referencedomain.TradeAgreement, error) {
	args := m.Called(ctx, origin, destination)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]referencedomain.TradeAgreement), args.Error(1)
}

func newSeededService(t *testing.T) (*Service, referencetest.Fixture, *observability.Metrics) {
	t.Helper()
	db := referencetest.OpenDB(t)
	f := referencetest.Seed(t, db)
	metrics := observability.NewMetrics()
	return NewService(Params{Log: zap.NewNop(), Repo: repository.NewRepository(db), Metrics: metrics}), f, metrics
}

func request(f referencetest.Fixture, hs6, origin string, mfn int64) Request {
	return Request{
		HS6:             hs6,
		OriginISO2:      origin,
		DestinationISO2: "ZA",
		TariffVersionID: f.CurrentVersion.ID,
		MFNPct:          decimal.NewFromInt(mfn),
		CustomsValue:    decimal.NewFromInt(10000),
	}
}

func TestEvaluateExactRule(t *testing.T) {
	svc, f, metrics := newSeededService(t)

	d := svc.Evaluate(context.Background(), request(f, referencetest.HSTShirt, "DE", 25))

	assert.Equal(t, StatusEligible, d.Status)
	assert.True(t, d.Applied)
	require.NotNil(t, d.BestOption)
	assert.Equal(t, referencetest.AgreementEPA, d.BestOption.AgreementCode)
	assert.Equal(t, ScopeExact, d.BestOption.Scope)
	assert.Equal(t, "18", d.BestOption.RatePct.String())
	require.NotNil(t, d.SavingsVsMFN)
	assert.Equal(t, "0.07", d.SavingsVsMFN.SavingsPct.String())
	assert.Equal(t, "700.00", d.SavingsVsMFN.SavingsAmount.StringFixed(2))
	assert.Equal(t, ConfidenceHigh, d.RateConfidence)
	assert.Equal(t, []string{"EUR.1 movement certificate", "Origin declaration on invoice"}, d.ProofChecklist)
	assert.NotEmpty(t, d.RequiredActions)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.PreferenceHits.WithLabelValues(string(StatusEligible))))
}

func TestEvaluateChapterRule(t *testing.T) {
	svc, f, _ := newSeededService(t)

	d := svc.Evaluate(context.Background(), request(f, referencetest.HSTShirt, "MU", 25))

	assert.Equal(t, StatusEligible, d.Status)
	assert.True(t, d.Applied)
	require.NotNil(t, d.BestOption)
	assert.Equal(t, referencetest.AgreementSADC, d.BestOption.AgreementCode)
	assert.Equal(t, ScopeChapter, d.BestOption.Scope)
	assert.True(t, d.BestOption.RatePct.IsZero())
	assert.Equal(t, "0.25", d.SavingsVsMFN.SavingsPct.String())
	assert.Equal(t, ConfidenceMedium, d.RateConfidence)
}

func TestEvaluateNotEligible(t *testing.T) {
	svc, f, _ := newSeededService(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		origin string
		reason string
	}{
		{"no agreement covers origin", "CN", "no trade agreement covers origin CN"},
		{"agreement without rule for the code", "IT", "no preferential rate for chapter 61"},
		{"agreement without any rules", "CH", "no preferential rate for chapter 61 under " + referencetest.AgreementEFTA},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := svc.Evaluate(ctx, request(f, referencetest.HSTShirt, tt.origin, 25))
			assert.Equal(t, StatusNotEligible, d.Status)
			assert.False(t, d.Applied)
			assert.Nil(t, d.BestOption)
			assert.Nil(t, d.SavingsVsMFN)
			assert.Contains(t, d.Reason, tt.reason)
			assert.Empty(t, d.ApplicableAgreements)
		})
	}
}

func TestEvaluateNotBelowMFNIsNotApplied(t *testing.T) {
	svc, f, _ := newSeededService(t)

	d := svc.Evaluate(context.Background(), request(f, referencetest.HSLaptop, "DE", 0))

	assert.Equal(t, StatusEligible, d.Status)
	assert.False(t, d.Applied)
	require.NotNil(t, d.BestOption)
	assert.Nil(t, d.SavingsVsMFN)
	assert.Empty(t, d.ProofChecklist)
	assert.Contains(t, d.Reason, "not below MFN")
}

func TestEvaluateDegradesOnRepositoryFailure(t *testing.T) {
	repo := &repoMock{}
	repo.On("ListAgreementsCoveringOrigin", mock.Anything, "DE", "ZA").
		Return(nil, errors.New("connection reset"))
	svc := NewService(Params{Log: zap.NewNop(), Repo: repo})

	d := svc.Evaluate(context.Background(), Request{
		HS6:             referencetest.HSTShirt,
		OriginISO2:      "DE",
		DestinationISO2: "ZA",
		MFNPct:          decimal.NewFromInt(25),
		CustomsValue:    decimal.NewFromInt(10000),
	})

	assert.Equal(t, StatusUnknown, d.Status)
	assert.Equal(t, ConfidenceLow, d.RateConfidence)
	assert.False(t, d.Applied)
	repo.AssertExpectations(t)
}

func TestPickBestPrefersExactOnTie(t *testing.T) {
	best := pickBest([]Option{
		{AgreementCode: "A", RatePct: decimal.NewFromInt(5), Scope: ScopeChapter},
		{AgreementCode: "B", RatePct: decimal.NewFromInt(5), Scope: ScopeExact},
		{AgreementCode: "C", RatePct: decimal.NewFromInt(8), Scope: ScopeExact},
	})
	assert.Equal(t, "B", best.AgreementCode)

	best = pickBest([]Option{
		{AgreementCode: "A", RatePct: decimal.NewFromInt(5), Scope: ScopeExact},
		{AgreementCode: "B", RatePct: decimal.Zero, Scope: ScopeChapter},
	})
	assert.Equal(t, "B", best.AgreementCode)
}
