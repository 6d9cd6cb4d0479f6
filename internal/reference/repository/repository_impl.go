package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	referencedomain "github.com/railzwaylabs/landedcost/internal/reference/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) referencedomain.Repository {
	return &repository{db: db}
}

func (r *repository) FindHsCode(ctx context.Context, hs6 string) (*referencedomain.HsCode, error) {
	var rows []referencedomain.HsCode
	err := r.db.WithContext(ctx).
		Where("hs6 = ?", hs6).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *repository) ListHsCodes(ctx context.Context, prefix string, limit int) ([]referencedomain.HsCode, error) {
	query := r.db.WithContext(ctx).Model(&referencedomain.HsCode{})
	if prefix = strings.TrimSpace(prefix); prefix != "" {
		query = query.Where("hs6 LIKE ?", prefix+"%")
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var items []referencedomain.HsCode
	err := query.Order("hs6 ASC").Find(&items).Error
	return items, err
}

func (r *repository) FindTariffVersion(ctx context.Context, id snowflake.ID) (*referencedomain.TariffVersion, error) {
	var rows []referencedomain.TariffVersion
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *repository) FindCurrentTariffVersion(ctx context.Context, at time.Time) (*referencedomain.TariffVersion, error) {
	var rows []referencedomain.TariffVersion
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND effective_from <= ?", true, at).
		Order("effective_from DESC").
		Order("id DESC").
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *repository) ListTariffVersions(ctx context.Context, activeOnly bool) ([]referencedomain.TariffVersion, error) {
	query := r.db.WithContext(ctx).Model(&referencedomain.TariffVersion{})
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}

	var items []referencedomain.TariffVersion
	err := query.Order("effective_from DESC").Order("id DESC").Find(&items).Error
	return items, err
}

func (r *repository) FindTariffRate(ctx context.Context, hs6 string, versionID snowflake.ID) (*referencedomain.TariffRate, error) {
	var rows []referencedomain.TariffRate
	err := r.db.WithContext(ctx).
		Where("hs6 = ? AND tariff_version_id = ?", hs6, versionID).
		Order("id DESC").
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *repository) ListAgreementsCoveringOrigin(ctx context.Context, originISO2, destinationISO2 string) ([]referencedomain.TradeAgreement, error) {
	var items []referencedomain.TradeAgreement
	err := r.db.WithContext(ctx).Raw(
		`SELECT ta.*
		 FROM trade_agreements ta
		 JOIN agreement_origins ao ON ao.agreement_id = ta.id
		 WHERE ao.origin_iso2 = ? AND ta.destination_iso2 = ?
		 ORDER BY ta.code ASC`,
		originISO2,
		destinationISO2,
	).Scan(&items).Error
	return items, err
}

func (r *repository) FindOriginPreference(ctx context.Context, key referencedomain.PreferenceKey) (*referencedomain.OriginPreference, error) {
	var rows []referencedomain.OriginPreference
	err := r.db.WithContext(ctx).
		Where("tariff_version_id = ? AND agreement_id = ? AND hs6 = ? AND origin_iso2 = ? AND is_chapter_rule = ?",
			key.TariffVersionID, key.AgreementID, key.HS6, key.OriginISO2, false).
		Order("id DESC").
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// FindChapterPreference prefers an origin-specific chapter rule over one
// that applies to every covered origin.
func (r *repository) FindChapterPreference(ctx context.Context, key referencedomain.PreferenceKey) (*referencedomain.OriginPreference, error) {
	var rows []referencedomain.OriginPreference
	err := r.db.WithContext(ctx).
		Where("tariff_version_id = ? AND agreement_id = ? AND chapter = ? AND is_chapter_rule = ?",
			key.TariffVersionID, key.AgreementID, key.Chapter, true).
		Where("(origin_iso2 = ? OR origin_iso2 = '' OR origin_iso2 IS NULL)", key.OriginISO2).
		Order("origin_iso2 DESC").
		Order("id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for i := range rows {
		if rows[i].OriginISO2 == key.OriginISO2 {
			return &rows[i], nil
		}
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *repository) FindRiskRules(ctx context.Context, criteria referencedomain.RiskCriteria) ([]referencedomain.RiskRule, error) {
	conds := []string{"trigger_type = ?"}
	args := []any{referencedomain.TriggerGeneric}

	if criteria.ClusterSlug != "" {
		conds = append(conds, "(trigger_type = ? AND trigger_value = ?)")
		args = append(args, referencedomain.TriggerClusterSlug, criteria.ClusterSlug)
	}
	if criteria.OriginISO2 != "" {
		conds = append(conds, "(trigger_type = ? AND trigger_value = ?)")
		args = append(args, referencedomain.TriggerOriginISO, criteria.OriginISO2)
	}
	if len(criteria.HSPrefixes) > 0 {
		conds = append(conds, "(trigger_type = ? AND trigger_value IN ?)")
		args = append(args, referencedomain.TriggerHSCodePrefix, criteria.HSPrefixes)
	}

	var items []referencedomain.RiskRule
	err := r.db.WithContext(ctx).
		Where(strings.Join(conds, " OR "), args...).
		Order("id ASC").
		Find(&items).Error
	return items, err
}

func (r *repository) ListDocRequirements(ctx context.Context, hs6, originISO2 string) ([]referencedomain.DocRequirement, error) {
	var items []referencedomain.DocRequirement
	err := r.db.WithContext(ctx).
		Where("hs6 = ?", hs6).
		Where("(origin_iso2 = ? OR origin_iso2 = '' OR origin_iso2 IS NULL)", originISO2).
		Order("id ASC").
		Find(&items).Error
	return items, err
}

func (r *repository) FindClusterBySlug(ctx context.Context, slug string) (*referencedomain.ProductCluster, error) {
	var rows []referencedomain.ProductCluster
	err := r.db.WithContext(ctx).
		Where("slug = ?", slug).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *repository) ListClusters(ctx context.Context) ([]referencedomain.ProductCluster, error) {
	var items []referencedomain.ProductCluster
	err := r.db.WithContext(ctx).Order("name ASC").Find(&items).Error
	return items, err
}

func (r *repository) FindRepresentativeHs(ctx context.Context, clusterID snowflake.ID) (*referencedomain.ProductClusterHsMap, error) {
	var rows []referencedomain.ProductClusterHsMap
	err := r.db.WithContext(ctx).
		Where("cluster_id = ?", clusterID).
		Order("confidence DESC").
		Order("hs6 ASC").
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *repository) ListPrefixClasses(ctx context.Context) ([]referencedomain.HsPrefixClass, error) {
	var items []referencedomain.HsPrefixClass
	err := r.db.WithContext(ctx).Order("prefix ASC").Find(&items).Error
	return items, err
}

func (r *repository) ListCountries(ctx context.Context) ([]referencedomain.Country, error) {
	var items []referencedomain.Country
	err := r.db.WithContext(ctx).Order("name ASC").Find(&items).Error
	return items, err
}

func (r *repository) FindCountry(ctx context.Context, iso2 string) (*referencedomain.Country, error) {
	var rows []referencedomain.Country
	err := r.db.WithContext(ctx).
		Where("iso2 = ?", iso2).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}
