// Package preference decides whether a shipment qualifies for a
// preferential duty rate under a trade agreement covering its origin.
package preference

import (
	"context"
	"fmt"
	"strings"

	"github.com/railzwaylabs/landedcost/internal/observability"
	referencedomain "github.com/railzwaylabs/landedcost/internal/reference/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var hundred = decimal.NewFromInt(100)

type Params struct {
	fx.In

	Log     *zap.Logger
	Repo    referencedomain.Repository
	Metrics *observability.Metrics `optional:"true"`
}

type Service struct {
	log     *zap.Logger
	repo    referencedomain.Repository
	metrics *observability.Metrics
}

func NewService(p Params) *Service {
	return &Service{
		log:     p.Log.Named("preference.service"),
		repo:    p.Repo,
		metrics: p.Metrics,
	}
}

// Evaluate never fails: repository errors degrade to an unknown decision
// with low confidence.
func (s *Service) Evaluate(ctx context.Context, req Request) Decision {
	decision, err := s.evaluate(ctx, req)
	if err != nil {
		s.log.Warn("preference lookup degraded",
			zap.String("hs6", req.HS6),
			zap.String("origin", req.OriginISO2),
			zap.Error(err),
		)
		decision = Decision{
			Status:               StatusUnknown,
			MFNRate:              req.MFNPct,
			ApplicableAgreements: []Option{},
			RequiredActions:      []string{"Confirm preferential eligibility with a licensed clearing agent"},
			ProofChecklist:       []string{},
			RateConfidence:       ConfidenceLow,
			Reason:               "preference data unavailable; MFN rate applied",
		}
	}
	if s.metrics != nil {
		s.metrics.PreferenceHits.WithLabelValues(string(decision.Status)).Inc()
	}
	return decision
}

func (s *Service) evaluate(ctx context.Context, req Request) (Decision, error) {
	decision := Decision{
		MFNRate:              req.MFNPct,
		ApplicableAgreements: []Option{},
		RequiredActions:      []string{},
		ProofChecklist:       []string{},
	}

	agreements, err := s.repo.ListAgreementsCoveringOrigin(ctx, req.OriginISO2, req.DestinationISO2)
	if err != nil {
		return Decision{}, err
	}
	if len(agreements) == 0 {
		decision.Status = StatusNotEligible
		decision.RateConfidence = ConfidenceHigh
		decision.Reason = fmt.Sprintf("no trade agreement covers origin %s into %s; MFN rate applies", req.OriginISO2, req.DestinationISO2)
		return decision, nil
	}

	chapter := referencedomain.Chapter(req.HS6)
	for _, agreement := range agreements {
		key := referencedomain.PreferenceKey{
			TariffVersionID: req.TariffVersionID,
			AgreementID:     agreement.ID,
			HS6:             req.HS6,
			Chapter:         chapter,
			OriginISO2:      req.OriginISO2,
		}

		scope := ScopeExact
		pref, err := s.repo.FindOriginPreference(ctx, key)
		if err != nil {
			return Decision{}, err
		}
		if pref == nil {
			scope = ScopeChapter
			pref, err = s.repo.FindChapterPreference(ctx, key)
			if err != nil {
				return Decision{}, err
			}
		}
		if pref == nil {
			continue
		}

		decision.ApplicableAgreements = append(decision.ApplicableAgreements, newOption(agreement, *pref, scope, req))
	}

	if len(decision.ApplicableAgreements) == 0 {
		codes := make([]string, 0, len(agreements))
		for _, a := range agreements {
			codes = append(codes, a.Code)
		}
		decision.Status = StatusNotEligible
		decision.RateConfidence = ConfidenceHigh
		decision.Reason = fmt.Sprintf("no preferential rate for chapter %s under %s", chapter, strings.Join(codes, ", "))
		return decision, nil
	}

	best := pickBest(decision.ApplicableAgreements)
	decision.Status = StatusEligible
	decision.BestOption = &best
	decision.RateConfidence = ConfidenceHigh
	if best.Scope == ScopeChapter {
		decision.RateConfidence = ConfidenceMedium
	}

	if !best.RatePct.LessThan(req.MFNPct) {
		decision.Reason = fmt.Sprintf("best preferential rate %s%% under %s is not below MFN %s%%; MFN rate applies",
			best.RatePct.String(), best.AgreementCode, req.MFNPct.String())
		return decision, nil
	}

	diff := req.MFNPct.Sub(best.RatePct)
	decision.Applied = true
	decision.SavingsVsMFN = &Savings{
		MFNPct:          req.MFNPct,
		PreferentialPct: best.RatePct,
		SavingsPct:      diff.Div(hundred),
		SavingsAmount:   req.CustomsValue.Mul(diff).Div(hundred).Round(2),
	}
	decision.ProofChecklist = append(decision.ProofChecklist, best.ProofDocuments...)
	for _, doc := range best.ProofDocuments {
		decision.RequiredActions = append(decision.RequiredActions, fmt.Sprintf("Obtain %s from the supplier before shipment", doc))
	}
	decision.RequiredActions = append(decision.RequiredActions,
		fmt.Sprintf("Claim %s preference on the customs declaration", best.AgreementCode))
	decision.Reason = fmt.Sprintf("%s %s rule: %s%% vs MFN %s%%",
		best.AgreementCode, best.Scope, best.RatePct.String(), req.MFNPct.String())
	return decision, nil
}

func newOption(agreement referencedomain.TradeAgreement, pref referencedomain.OriginPreference, scope Scope, req Request) Option {
	pct := pref.EffectivePct()
	rateText := pct.String() + "%"
	if pct.IsZero() {
		rateText = "duty free"
	}

	var reasoning string
	if scope == ScopeExact {
		reasoning = fmt.Sprintf("%s grants %s on HS %s from %s", agreement.Code, rateText, req.HS6, req.OriginISO2)
	} else {
		reasoning = fmt.Sprintf("%s grants %s on chapter %s from %s", agreement.Code, rateText, pref.Chapter, req.OriginISO2)
	}

	proofs := agreement.Proofs()
	if proofs == nil {
		proofs = []string{}
	}
	return Option{
		AgreementCode:    agreement.Code,
		AgreementName:    agreement.Name,
		Kind:             agreement.Kind,
		RatePct:          pct,
		Scope:            scope,
		Reasoning:        reasoning,
		ProofDocuments:   proofs,
		EligibilityNotes: pref.EligibilityNotes,
	}
}

// pickBest returns the lowest rate. Exact rules win ties over chapter rules;
// remaining ties keep agreement code order.
func pickBest(options []Option) Option {
	best := options[0]
	for _, o := range options[1:] {
		switch {
		case o.RatePct.LessThan(best.RatePct):
			best = o
		case o.RatePct.Equal(best.RatePct) && o.Scope == ScopeExact && best.Scope == ScopeChapter:
			best = o
		}
	}
	return best
}
