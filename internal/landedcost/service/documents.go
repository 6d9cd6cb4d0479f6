package service

import (
	"context"
	"strings"

	landedcostdomain "github.com/railzwaylabs/landedcost/internal/landedcost/domain"
	"github.com/railzwaylabs/landedcost/internal/preference"
	"go.uber.org/zap"
)

var alwaysRequired = []landedcostdomain.Document{
	{Name: "Commercial invoice", Issuer: "Supplier"},
	{Name: "Packing list", Issuer: "Supplier"},
	{Name: "Bill of lading / air waybill", Issuer: "Carrier"},
	{Name: "SAD500 customs declaration", Issuer: "Clearing agent"},
}

// documents builds the clearance checklist. Names are deduplicated
// case-insensitively, keeping the first occurrence.
func (s *Service) documents(ctx context.Context, hs6, origin string, decision preference.Decision) []landedcostdomain.Document {
	seen := map[string]struct{}{}
	docs := make([]landedcostdomain.Document, 0, len(alwaysRequired)+4)
	add := func(d landedcostdomain.Document) {
		key := strings.ToLower(strings.TrimSpace(d.Name))
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		docs = append(docs, d)
	}

	for _, d := range alwaysRequired {
		d.Source = landedcostdomain.DocSourceAlways
		d.Confidence = "HIGH"
		add(d)
	}

	reqs, err := s.repo.ListDocRequirements(ctx, hs6, origin)
	if err != nil {
		s.log.Warn("document requirements unavailable", zap.String("hs6", hs6), zap.Error(err))
	}
	for _, r := range reqs {
		add(landedcostdomain.Document{
			Name:       r.DocumentName,
			Issuer:     r.Issuer,
			Source:     landedcostdomain.DocSourceHsCode,
			Confidence: r.Confidence,
			Notes:      r.Notes,
		})
	}

	if decision.Applied && decision.BestOption != nil {
		for _, name := range decision.BestOption.ProofDocuments {
			add(landedcostdomain.Document{
				Name:       name,
				Source:     landedcostdomain.DocSourcePreference,
				Confidence: "HIGH",
				Notes:      "required to claim " + decision.BestOption.AgreementCode,
			})
		}
	}
	return docs
}
