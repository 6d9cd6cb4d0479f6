package service

import (
	"context"

	landedcostdomain "github.com/railzwaylabs/landedcost/internal/landedcost/domain"
	"golang.org/x/sync/errgroup"
)

// Compare calculates every scenario concurrently. Results keep request
// order; a failing scenario carries its error instead of an output.
func (s *Service) Compare(ctx context.Context, scenarios []landedcostdomain.CalcInput) ([]landedcostdomain.ScenarioResult, error) {
	if len(scenarios) == 0 {
		return nil, &landedcostdomain.ValidationError{Field: "scenarios", Code: "required", Message: "at least one scenario is required"}
	}
	if limit := s.settings.MaxCompareScenarios; limit > 0 && len(scenarios) > limit {
		return nil, &landedcostdomain.ValidationError{
			Field:   "scenarios",
			Code:    landedcostdomain.ErrTooManyScenarios.Error(),
			Message: "too many scenarios in one comparison",
		}
	}

	results := make([]landedcostdomain.ScenarioResult, len(scenarios))
	g, gctx := errgroup.WithContext(ctx)
	if s.settings.Concurrency > 0 {
		g.SetLimit(s.settings.Concurrency)
	}
	for i, in := range scenarios {
		g.Go(func() error {
			results[i].Index = i
			out, err := s.Calculate(gctx, in, "")
			if err != nil {
				desc := landedcostdomain.DescribeError(err)
				results[i].Error = &desc
				return nil
			}
			results[i].Output = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
