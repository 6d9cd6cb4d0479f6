package risk

import (
	"context"
	"errors"
	"testing"

	referencedomain "github.com/railzwaylabs/landedcost/internal/reference/domain"
	"github.com/railzwaylabs/landedcost/internal/reference/referencetest"
	"github.com/railzwaylabs/landedcost/internal/reference/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type repoMock struct {
	referencedomain.Repository
	mock.Mock
}

func (m *repoMock) FindRiskRules(ctx context.Context, c referencedomain.RiskCriteria) ([]referencedomain.RiskRule, error) {
	args := m.Called(ctx, c)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]referencedomain.RiskRule), args.Error(1)
}

func titles(flags []Flag) []string {
	out := make([]string, 0, len(flags))
	for _, f := range flags {
		out = append(out, f.Title)
	}
	return out
}

func TestMatchPrefixes(t *testing.T) {
	db := referencetest.OpenDB(t)
	referencetest.Seed(t, db)
	svc := NewService(Params{Log: zap.NewNop(), Repo: repository.NewRepository(db)})
	ctx := context.Background()

	flags := svc.Match(ctx, Criteria{HS6: referencetest.HSSolarPanel, OriginISO2: "de"})
	assert.Equal(t, []string{
		"NRCS compulsory specification",
		"Solar module anti-dumping watch",
		"Customs valuation review",
	}, titles(flags))

	flags = svc.Match(ctx, Criteria{HS6: referencetest.HSResistor, OriginISO2: "DE"})
	assert.Equal(t, []string{
		"NRCS compulsory specification",
		"Customs valuation review",
	}, titles(flags))
}

func TestMatchOriginAndCluster(t *testing.T) {
	db := referencetest.OpenDB(t)
	referencetest.Seed(t, db)
	svc := NewService(Params{Log: zap.NewNop(), Repo: repository.NewRepository(db)})

	flags := svc.Match(context.Background(), Criteria{
		HS6:         referencetest.HSSolarPanel,
		ClusterSlug: referencetest.ClusterSolar,
		OriginISO2:  "cn",
	})
	require.Len(t, flags, 5)
	assert.Equal(t, referencedomain.SeverityHigh, flags[0].Severity)
	assert.Equal(t, []string{
		"NRCS compulsory specification",
		"Origin verification",
		"Solar module anti-dumping watch",
		"Customs valuation review",
		"Installer compliance",
	}, titles(flags))
	assert.True(t, HasSevere(flags))

	summary := Summarize(flags, 3)
	assert.Len(t, summary.Top, 3)
	assert.Equal(t, 2, summary.Remaining)
}

func TestMatchDegradesToEmpty(t *testing.T) {
	repo := &repoMock{}
	repo.On("FindRiskRules", mock.Anything, mock.Anything).Return(nil, errors.New("timeout"))
	svc := NewService(Params{Log: zap.NewNop(), Repo: repo})

	flags := svc.Match(context.Background(), Criteria{HS6: "847130"})
	assert.NotNil(t, flags)
	assert.Empty(t, flags)
}

func TestSortSeverityThenTitle(t *testing.T) {
	flags := []Flag{
		{Severity: "LOW", Title: "b"},
		{Severity: "UNRATED", Title: "a"},
		{Severity: "CRITICAL", Title: "z"},
		{Severity: "LOW", Title: "a"},
		{Severity: "medium", Title: "m"},
		{Severity: "HIGH", Title: "h"},
	}
	Sort(flags)
	assert.Equal(t, []string{"z", "h", "m", "a", "b", "a"}, titles(flags))
	assert.Equal(t, referencedomain.Severity("UNRATED"), flags[5].Severity)
}

func TestSummarize(t *testing.T) {
	flags := []Flag{{Title: "a"}, {Title: "b"}}

	s := Summarize(flags, 3)
	assert.Len(t, s.Top, 2)
	assert.Zero(t, s.Remaining)

	s = Summarize(flags, 1)
	assert.Equal(t, []string{"a"}, titles(s.Top))
	assert.Equal(t, 1, s.Remaining)

	s = Summarize(nil, 3)
	assert.Empty(t, s.Top)
}
