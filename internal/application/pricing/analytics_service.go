package pricing

import (
	"context"
	"time"

	"github.com/erp/pricing/internal/domain/pricing"
	"github.com/erp/pricing/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AnalyticsService answers questions about past lookups from the
// computation log. It reads what the async recorder writes.
type AnalyticsService struct {
	logRepo pricing.ComputationLogRepository
	logger  *zap.Logger
}

// NewAnalyticsService creates a new analytics service
func NewAnalyticsService(logRepo pricing.ComputationLogRepository, logger *zap.Logger) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{logRepo: logRepo, logger: logger}
}

// GetSummary aggregates lookup traffic for a tenant over a time range.
// A zero "to" defaults to now, a zero "from" to 24 hours before "to".
func (s *AnalyticsService) GetSummary(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (*pricing.UsageSummary, error) {
	if to.IsZero() {
		to = time.Now()
	}
	if from.IsZero() {
		from = to.Add(-24 * time.Hour)
	}
	if !from.Before(to) {
		return nil, shared.NewDomainError("INVALID_INPUT", "from must be before to")
	}

	summary, err := s.logRepo.Summary(ctx, tenantID, from, to)
	if err != nil {
		s.logger.Error("failed to aggregate lookup summary",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err))
		return nil, err
	}
	return summary, nil
}
