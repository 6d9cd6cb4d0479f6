// Package tariff pins the tariff version for a calculation and resolves the
// MFN duty rate of an HS code within it.
package tariff

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/landedcost/internal/clock"
	referencedomain "github.com/railzwaylabs/landedcost/internal/reference/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log   *zap.Logger
	Repo  referencedomain.Repository
	Clock clock.Clock
}

type Service struct {
	log   *zap.Logger
	repo  referencedomain.Repository
	clock clock.Clock
}

func NewService(p Params) *Service {
	return &Service{
		log:   p.Log.Named("tariff.service"),
		repo:  p.Repo,
		clock: p.Clock,
	}
}

// ResolveVersion returns the pinned version when pinnedID is set, otherwise
// the active version with the latest effective date not after now.
func (s *Service) ResolveVersion(ctx context.Context, pinnedID *snowflake.ID) (*referencedomain.TariffVersion, error) {
	if pinnedID != nil {
		version, err := s.repo.FindTariffVersion(ctx, *pinnedID)
		if err != nil {
			return nil, err
		}
		if version == nil {
			return nil, fmt.Errorf("%w: %s", ErrVersionNotFound, pinnedID.String())
		}
		return version, nil
	}

	version, err := s.repo.FindCurrentTariffVersion(ctx, s.clock.Now(ctx))
	if err != nil {
		return nil, err
	}
	if version == nil {
		return nil, ErrNoActiveTariff
	}
	return version, nil
}

// ResolveRate looks up the exact (hs6, version) rate. There is no chapter
// fallback and no implicit zero rate.
func (s *Service) ResolveRate(ctx context.Context, hs6 string, version *referencedomain.TariffVersion) (*referencedomain.TariffRate, error) {
	rate, err := s.repo.FindTariffRate(ctx, hs6, version.ID)
	if err != nil {
		return nil, err
	}
	if rate == nil {
		return nil, fmt.Errorf("%w: hs %s in version %s", ErrRateNotFound, hs6, version.Label)
	}
	return rate, nil
}

// AuditActiveVersions lists the active versions and warns when more than
// one is flagged active. Calculations still pin the most recent one.
func (s *Service) AuditActiveVersions(ctx context.Context) ([]referencedomain.TariffVersion, error) {
	versions, err := s.repo.ListTariffVersions(ctx, true)
	if err != nil {
		return nil, err
	}
	if len(versions) > 1 {
		labels := make([]string, 0, len(versions))
		for _, v := range versions {
			labels = append(labels, v.Label)
		}
		s.log.Warn("multiple active tariff versions", zap.Strings("labels", labels))
	}
	return versions, nil
}
