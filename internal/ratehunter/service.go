// Package ratehunter reruns a calculation across alternative origins to
// find cheaper sourcing.
package ratehunter

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/railzwaylabs/landedcost/internal/config"
	landedcostdomain "github.com/railzwaylabs/landedcost/internal/landedcost/domain"
	"github.com/railzwaylabs/landedcost/internal/observability"
	"github.com/railzwaylabs/landedcost/internal/preference"
	referencedomain "github.com/railzwaylabs/landedcost/internal/reference/domain"
	"github.com/railzwaylabs/landedcost/internal/risk"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var hundred = decimal.NewFromInt(100)

type Calculator interface {
	Calculate(ctx context.Context, in landedcostdomain.CalcInput, userID string) (*landedcostdomain.CalcOutput, error)
}

type Params struct {
	fx.In

	Log        *zap.Logger
	Config     config.Config
	Calculator Calculator
	Repo       referencedomain.Repository
	Metrics    *observability.Metrics `optional:"true"`
}

type Service struct {
	log        *zap.Logger
	calculator Calculator
	repo       referencedomain.Repository
	metrics    *observability.Metrics

	candidates  []string
	destination string
	threshold   decimal.Decimal
	concurrency int
}

func NewService(p Params) *Service {
	return &Service{
		log:        p.Log.Named("ratehunter.service"),
		calculator: p.Calculator,
		repo:       p.Repo,
		metrics:    p.Metrics,

		candidates:  p.Config.Engine.HunterCandidates,
		destination: p.Config.Engine.DestinationCountry,
		threshold:   decimal.NewFromFloat(p.Config.Engine.MaterialitySavings),
		concurrency: p.Config.Engine.Concurrency,
	}
}

// FindBetterOrigins compares base against every candidate origin. When base
// is nil it is calculated from in first. All candidates are pinned to the
// base's tariff version; failing candidates are skipped. An invalid input is
// rejected before any candidate runs.
func (s *Service) FindBetterOrigins(ctx context.Context, in landedcostdomain.CalcInput, base *landedcostdomain.CalcOutput) (*Result, error) {
	if base != nil && strings.TrimSpace(in.OriginCountry) == "" {
		in.OriginCountry = base.OriginCountry
	}
	in, err := in.Normalize(s.destination)
	if err != nil {
		return nil, err
	}

	if base == nil {
		out, err := s.calculator.Calculate(ctx, in, "")
		if err != nil {
			return nil, err
		}
		base = out
	}

	baseOrigin := strings.ToUpper(strings.TrimSpace(base.OriginCountry))
	if baseOrigin == "" {
		baseOrigin = strings.ToUpper(strings.TrimSpace(in.OriginCountry))
	}
	origins := make([]string, 0, len(s.candidates))
	for _, c := range s.candidates {
		if c != baseOrigin {
			origins = append(origins, c)
		}
	}

	versionID := base.TariffVersionID
	outputs := make([]*landedcostdomain.CalcOutput, len(origins))
	failures := make([]error, len(origins))

	g, gctx := errgroup.WithContext(ctx)
	if s.concurrency > 0 {
		g.SetLimit(s.concurrency)
	}
	for i, origin := range origins {
		g.Go(func() error {
			candidate := in
			candidate.OriginCountry = origin
			candidate.TariffVersionID = &versionID
			out, err := s.calculator.Calculate(gctx, candidate, "")
			if err != nil {
				failures[i] = err
				return nil
			}
			outputs[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	names := s.countryNames(ctx)
	result := &Result{
		BaseOrigin:           baseOrigin,
		BaseLandedCost:       base.LandedCostTotal,
		TariffVersionID:      base.TariffVersionID,
		TariffVersionLabel:   base.TariffVersionLabel,
		MaterialityThreshold: s.threshold,
		Alternatives:         make([]Alternative, 0, len(origins)),
		Skipped:              []Skipped{},
	}
	for i, origin := range origins {
		if failures[i] != nil {
			desc := landedcostdomain.DescribeError(failures[i])
			s.log.Debug("rate hunter candidate skipped", zap.String("origin", origin), zap.Error(failures[i]))
			result.Skipped = append(result.Skipped, Skipped{OriginCountry: origin, Code: desc.Code, Message: desc.Message})
			continue
		}
		result.Alternatives = append(result.Alternatives, newAlternative(base, outputs[i], names[origin]))
	}

	sort.SliceStable(result.Alternatives, func(i, j int) bool {
		a, b := result.Alternatives[i], result.Alternatives[j]
		if !a.Savings.Equal(b.Savings) {
			return a.Savings.GreaterThan(b.Savings)
		}
		return a.OriginCountry < b.OriginCountry
	})

	if len(result.Alternatives) > 0 && !result.Alternatives[0].Savings.LessThan(s.threshold) {
		best := result.Alternatives[0]
		result.BestAlternative = &best
		if s.metrics != nil {
			s.metrics.HunterSavings.Observe(best.Savings.InexactFloat64())
		}
	}
	result.Insight = s.insight(result)
	return result, nil
}

func newAlternative(base, out *landedcostdomain.CalcOutput, name string) Alternative {
	savings := base.LandedCostTotal.Sub(out.LandedCostTotal)
	pct := decimal.Zero
	if base.LandedCostTotal.IsPositive() {
		pct = savings.Div(base.LandedCostTotal).Mul(hundred).Round(2)
	}

	alt := Alternative{
		OriginCountry:    out.OriginCountry,
		CountryName:      name,
		LandedCostTotal:  out.LandedCostTotal,
		DutyAmount:       out.DutyAmount,
		Savings:          savings,
		SavingsPercent:   pct,
		PreferenceStatus: out.PreferenceDecision.Status,
		FrictionLevel:    Friction(out),
		Verdict:          out.Verdict,
		RiskCount:        len(out.DetailedRisks),
	}
	if out.PreferenceDecision.Applied && out.PreferenceDecision.BestOption != nil {
		alt.AgreementCode = out.PreferenceDecision.BestOption.AgreementCode
	}
	return alt
}

// Friction grades the practical effort of switching to an origin.
func Friction(out *landedcostdomain.CalcOutput) FrictionLevel {
	if risk.HasSevere(out.DetailedRisks) {
		return FrictionHigh
	}
	d := out.PreferenceDecision
	if d.Status == preference.StatusEligible && d.Applied && d.BestOption != nil && len(d.BestOption.ProofDocuments) > 0 {
		return FrictionMedium
	}
	return FrictionLow
}

func (s *Service) insight(result *Result) string {
	if len(result.Alternatives) == 0 {
		return "No alternative origins could be evaluated."
	}

	best := result.BestAlternative
	if best == nil {
		top := result.Alternatives[0]
		if top.Savings.IsNegative() {
			return fmt.Sprintf("No material saving: the cheapest alternative (%s) costs %s more than %s.",
				top.OriginCountry, top.Savings.Neg().StringFixed(2), result.BaseOrigin)
		}
		return fmt.Sprintf("No material saving: the best alternative (%s) saves %s, below the %s threshold.",
			top.OriginCountry, top.Savings.StringFixed(2), s.threshold.StringFixed(2))
	}

	label := best.OriginCountry
	if best.CountryName != "" {
		label = fmt.Sprintf("%s (%s)", best.CountryName, best.OriginCountry)
	}
	msg := fmt.Sprintf("Sourcing from %s saves %s (%s%%) per shipment", label, best.Savings.StringFixed(2), best.SavingsPercent.StringFixed(2))
	if best.AgreementCode != "" {
		msg += fmt.Sprintf(" under %s", best.AgreementCode)
	}
	return msg + fmt.Sprintf("; friction %s.", best.FrictionLevel)
}

func (s *Service) countryNames(ctx context.Context) map[string]string {
	names := map[string]string{}
	if s.repo == nil {
		return names
	}
	countries, err := s.repo.ListCountries(ctx)
	if err != nil {
		s.log.Warn("country names unavailable", zap.Error(err))
		return names
	}
	for _, c := range countries {
		names[c.ISO2] = c.Name
	}
	return names
}
