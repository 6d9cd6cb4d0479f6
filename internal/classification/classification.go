// Package classification maps HS codes onto the canonical prefix table that
// drives product categories and excise.
package classification

import (
	"context"
	"strings"

	referencedomain "github.com/railzwaylabs/landedcost/internal/reference/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	ClassUnclassified = "unclassified"
	LabelUnclassified = "Unclassified goods"
)

// Classification is the result of a prefix lookup. Prefix is empty when no
// row matched.
type Classification struct {
	HS6       string          `json:"hs6"`
	Prefix    string          `json:"prefix,omitempty"`
	Class     string          `json:"class"`
	Label     string          `json:"label"`
	ExcisePct decimal.Decimal `json:"excise_pct"`
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
		log:  p.Log.Named("classification.service"),
		repo: p.Repo,
	}
}

func (s *Service) Classify(ctx context.Context, hs6 string) (Classification, error) {
	classes, err := s.repo.ListPrefixClasses(ctx)
	if err != nil {
		return Classification{}, err
	}
	return Match(classes, hs6), nil
}

// Match returns the row with the longest prefix of hs6. Ties cannot occur
// because prefixes are unique.
func Match(classes []referencedomain.HsPrefixClass, hs6 string) Classification {
	var best *referencedomain.HsPrefixClass
	for i := range classes {
		c := &classes[i]
		if c.Prefix == "" || !strings.HasPrefix(hs6, c.Prefix) {
			continue
		}
		if best == nil || len(c.Prefix) > len(best.Prefix) {
			best = c
		}
	}
	if best == nil {
		return Classification{
			HS6:       hs6,
			Class:     ClassUnclassified,
			Label:     LabelUnclassified,
			ExcisePct: decimal.Zero,
		}
	}
	return Classification{
		HS6:       hs6,
		Prefix:    best.Prefix,
		Class:     best.Class,
		Label:     best.Label,
		ExcisePct: best.ExcisePct,
	}
}
