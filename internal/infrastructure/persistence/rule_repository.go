package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/erp/pricing/internal/domain/pricing"
	"github.com/erp/pricing/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormRuleRepository implements pricing.RuleRepository using GORM
type GormRuleRepository struct {
	db *gorm.DB
}

// NewGormRuleRepository creates a new GormRuleRepository
func NewGormRuleRepository(db *gorm.DB) *GormRuleRepository {
	return &GormRuleRepository{db: db}
}

// FindByIDForTenant finds a rule by ID within a tenant
func (r *GormRuleRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*pricing.PriceRule, error) {
	var rule pricing.PriceRule
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&rule).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &rule, nil
}

// FindAllForTenant finds all rules for a tenant matching the filter,
// returning the page and the total count
func (r *GormRuleRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]pricing.PriceRule, int64, error) {
	base := r.applySearch(
		r.db.WithContext(ctx).Model(&pricing.PriceRule{}).Where("tenant_id = ?", tenantID),
		filter,
	)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := base.Session(&gorm.Session{})
	orderBy := ValidateSortField(filter.OrderBy, RuleSortFields, "priority")
	orderDir := "ASC"
	if strings.EqualFold(filter.OrderDir, "desc") {
		orderDir = "DESC"
	}
	query = query.Order(orderBy + " " + orderDir).Order("created_at ASC")

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var rules []pricing.PriceRule
	if err := query.Find(&rules).Error; err != nil {
		return nil, 0, err
	}
	return rules, total, nil
}

// ListActive returns the active rules for a tenant that could match the
// given scope hint. Wildcard rules always come back; the matcher applies
// the exact conditions in memory.
func (r *GormRuleRepository) ListActive(ctx context.Context, tenantID uuid.UUID, hint pricing.ScopeHint) ([]pricing.PriceRule, error) {
	query := r.db.WithContext(ctx).
		Where("tenant_id = ? AND is_active = ?", tenantID, true)

	if hint.ArticleID != "" {
		query = query.Where("article_id = '' OR article_id = ?", hint.ArticleID)
	}
	if hint.ArticleFamily != "" {
		// A family rule matches on prefix, so any rule whose family is a
		// prefix of the hint survives the coarse filter. Both sides are
		// uppercased; the matcher compares families case-insensitively and
		// the prefilter must not be stricter than it.
		query = query.Where("article_family = '' OR ? LIKE UPPER(article_family) || '%'", strings.ToUpper(hint.ArticleFamily))
	}
	if hint.Channel != "" {
		query = query.Where("channel = '' OR LOWER(channel) = LOWER(?)", hint.Channel)
	}

	var rules []pricing.PriceRule
	if err := query.
		Order("priority ASC").Order("created_at ASC").
		Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

// Save creates or updates a rule
func (r *GormRuleRepository) Save(ctx context.Context, rule *pricing.PriceRule) error {
	return r.db.WithContext(ctx).Save(rule).Error
}

// Delete deletes a rule within a tenant
func (r *GormRuleRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&pricing.PriceRule{}, "tenant_id = ? AND id = ?", tenantID, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// IncrementUsage atomically bumps the usage counters of the given rules
func (r *GormRuleRepository) IncrementUsage(ctx context.Context, tenantID uuid.UUID, ruleIDs []uuid.UUID) error {
	if len(ruleIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&pricing.PriceRule{}).
		Where("tenant_id = ? AND id IN ?", tenantID, ruleIDs).
		Updates(map[string]interface{}{
			"usage_count": gorm.Expr("usage_count + 1"),
			"updated_at":  time.Now(),
		}).Error
}

// applySearch applies the free-text search to the query
func (r *GormRuleRepository) applySearch(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("name ILIKE ? OR article_id ILIKE ? OR article_family ILIKE ?",
			searchPattern, searchPattern, searchPattern)
	}
	for key, value := range filter.Filters {
		switch key {
		case "is_active":
			query = query.Where("is_active = ?", value)
		case "channel":
			query = query.Where("channel = ?", value)
		case "adjustment_type":
			query = query.Where("adjustment_type = ?", value)
		}
	}
	return query
}

// Ensure GormRuleRepository implements RuleRepository
var _ pricing.RuleRepository = (*GormRuleRepository)(nil)
