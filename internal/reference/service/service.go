package service

import (
	"context"
	"errors"
	"strings"

	referencedomain "github.com/railzwaylabs/landedcost/internal/reference/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

var (
	ErrInvalidPrefix  = errors.New("invalid_prefix")
	ErrInvalidHsCode  = errors.New("invalid_hs_code")
	ErrHsCodeNotFound = errors.New("hs_code_not_found")
)

type Params struct {
	fx.In

	Log  *zap.Logger
	Repo referencedomain.Repository
}

// Service serves the browse endpoints over reference data.
type Service struct {
	log  *zap.Logger
	repo referencedomain.Repository
}

func NewService(p Params) *Service {
	return &Service{
		log:  p.Log.Named("reference.service"),
		repo: p.Repo,
	}
}

func (s *Service) ListHsCodes(ctx context.Context, prefix string, limit int) ([]referencedomain.HsCode, error) {
	prefix = strings.TrimSpace(prefix)
	for _, r := range prefix {
		if r < '0' || r > '9' {
			return nil, ErrInvalidPrefix
		}
	}
	if len(prefix) > 6 {
		return nil, ErrInvalidPrefix
	}

	switch {
	case limit <= 0:
		limit = defaultListLimit
	case limit > maxListLimit:
		limit = maxListLimit
	}
	return s.repo.ListHsCodes(ctx, prefix, limit)
}

func (s *Service) GetHsCode(ctx context.Context, raw string) (*referencedomain.HsCode, error) {
	hs6, ok := referencedomain.NormalizeHS6(raw)
	if !ok {
		return nil, ErrInvalidHsCode
	}
	code, err := s.repo.FindHsCode(ctx, hs6)
	if err != nil {
		return nil, err
	}
	if code == nil {
		return nil, ErrHsCodeNotFound
	}
	return code, nil
}

func (s *Service) ListClusters(ctx context.Context) ([]referencedomain.ProductCluster, error) {
	return s.repo.ListClusters(ctx)
}

func (s *Service) ListCountries(ctx context.Context) ([]referencedomain.Country, error) {
	return s.repo.ListCountries(ctx)
}

func (s *Service) ListTariffVersions(ctx context.Context) ([]referencedomain.TariffVersion, error) {
	return s.repo.ListTariffVersions(ctx, false)
}
