package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrMalformedDutyRule = errors.New("malformed_duty_rule")
)

// PreferenceKey identifies an origin preference lookup. Exact lookups use
// HS6; chapter lookups use Chapter.
type PreferenceKey struct {
	TariffVersionID snowflake.ID
	AgreementID     snowflake.ID
	HS6             string
	Chapter         string
	OriginISO2      string
}

// RiskCriteria is the disjunctive match set of a risk lookup. GENERIC rules
// always match; empty fields contribute nothing.
type RiskCriteria struct {
	HSPrefixes  []string
	ClusterSlug string
	OriginISO2  string
}

// Repository is the read side of the reference data store. Point lookups
// return (nil, nil) when no row matches.
type Repository interface {
	FindHsCode(ctx context.Context, hs6 string) (*HsCode, error)
	ListHsCodes(ctx context.Context, prefix string, limit int) ([]HsCode, error)

	FindTariffVersion(ctx context.Context, id snowflake.ID) (*TariffVersion, error)
	FindCurrentTariffVersion(ctx context.Context, at time.Time) (*TariffVersion, error)
	ListTariffVersions(ctx context.Context, activeOnly bool) ([]TariffVersion, error)
	FindTariffRate(ctx context.Context, hs6 string, versionID snowflake.ID) (*TariffRate, error)

	ListAgreementsCoveringOrigin(ctx context.Context, originISO2, destinationISO2 string) ([]TradeAgreement, error)
	FindOriginPreference(ctx context.Context, key PreferenceKey) (*OriginPreference, error)
	FindChapterPreference(ctx context.Context, key PreferenceKey) (*OriginPreference, error)

	FindRiskRules(ctx context.Context, criteria RiskCriteria) ([]RiskRule, error)
	ListDocRequirements(ctx context.Context, hs6, originISO2 string) ([]DocRequirement, error)

	FindClusterBySlug(ctx context.Context, slug string) (*ProductCluster, error)
	ListClusters(ctx context.Context) ([]ProductCluster, error)
	FindRepresentativeHs(ctx context.Context, clusterID snowflake.ID) (*ProductClusterHsMap, error)

	ListPrefixClasses(ctx context.Context) ([]HsPrefixClass, error)
	ListCountries(ctx context.Context) ([]Country, error)
	FindCountry(ctx context.Context, iso2 string) (*Country, error)
}
