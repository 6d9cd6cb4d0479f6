// Package risk matches compliance risk rules against a shipment.
package risk

import (
	"context"
	"sort"
	"strings"

	referencedomain "github.com/railzwaylabs/landedcost/internal/reference/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Criteria is what a shipment exposes to trigger rules. Empty fields match
// nothing beyond GENERIC rules.
type Criteria struct {
	HS6         string
	ClusterSlug string
	OriginISO2  string
}

// Flag is a matched rule.
type Flag struct {
	Severity     referencedomain.Severity    `json:"severity"`
	Title        string                      `json:"title"`
	Description  string                      `json:"description"`
	Mitigation   string                      `json:"mitigation,omitempty"`
	TriggerType  referencedomain.TriggerType `json:"trigger_type"`
	TriggerValue string                      `json:"trigger_value,omitempty"`
}

// Summary is the surfaced head of a sorted flag list.
type Summary struct {
	Top       []Flag `json:"top"`
	Remaining int    `json:"remaining"`
}

type Params struct {
	fx.In

	Log  *zap.Logger
	Repo referencedomain.Repository
}

type Service struct {
	log  *zap.Logger
	repo referencedomain.Repository
}

func NewService(p Params) *Service {
	return &Service{
		log:  p.Log.Named("risk.service"),
		repo: p.Repo,
	}
}

// Match returns the matched flags sorted by severity. Lookup failures are
// logged and yield no flags.
func (s *Service) Match(ctx context.Context, c Criteria) []Flag {
	criteria := referencedomain.RiskCriteria{
		ClusterSlug: strings.TrimSpace(c.ClusterSlug),
		OriginISO2:  strings.ToUpper(strings.TrimSpace(c.OriginISO2)),
	}
	if len(c.HS6) == 6 {
		criteria.HSPrefixes = referencedomain.HSPrefixes(c.HS6)
	}

	rules, err := s.repo.FindRiskRules(ctx, criteria)
	if err != nil {
		s.log.Warn("risk lookup degraded",
			zap.String("hs6", c.HS6),
			zap.String("origin", criteria.OriginISO2),
			zap.Error(err),
		)
		return []Flag{}
	}

	flags := make([]Flag, 0, len(rules))
	for _, r := range rules {
		flags = append(flags, Flag{
			Severity:     r.Severity,
			Title:        r.Title,
			Description:  r.Description,
			Mitigation:   r.Mitigation,
			TriggerType:  r.TriggerType,
			TriggerValue: r.TriggerValue,
		})
	}
	Sort(flags)
	return flags
}

// Rank orders severities; unknown values sort last.
func Rank(s referencedomain.Severity) int {
	switch referencedomain.Severity(strings.ToUpper(string(s))) {
	case referencedomain.SeverityCritical:
		return 0
	case referencedomain.SeverityHigh:
		return 1
	case referencedomain.SeverityMedium:
		return 2
	case referencedomain.SeverityLow:
		return 3
	}
	return 4
}

// Sort orders flags by severity, then title.
func Sort(flags []Flag) {
	sort.SliceStable(flags, func(i, j int) bool {
		ri, rj := Rank(flags[i].Severity), Rank(flags[j].Severity)
		if ri != rj {
			return ri < rj
		}
		return flags[i].Title < flags[j].Title
	})
}

// Summarize keeps the first n flags of an already sorted list.
func Summarize(flags []Flag, n int) Summary {
	if n < 0 {
		n = 0
	}
	if len(flags) <= n {
		top := make([]Flag, len(flags))
		copy(top, flags)
		return Summary{Top: top}
	}
	top := make([]Flag, n)
	copy(top, flags[:n])
	return Summary{Top: top, Remaining: len(flags) - n}
}

// HasSevere reports whether any flag is CRITICAL or HIGH.
func HasSevere(flags []Flag) bool {
	for _, f := range flags {
		if Rank(f.Severity) <= Rank(referencedomain.SeverityHigh) {
			return true
		}
	}
	return false
}
