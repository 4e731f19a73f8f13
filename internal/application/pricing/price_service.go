package pricing

import (
	"context"
	"encoding/json"
	"time"

	"github.com/erp/pricing/internal/domain/pricing"
	"github.com/erp/pricing/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PriceCache caches computation results and coalesces concurrent lookups
// of the same key into a single computation. The boolean return reports
// whether the result came from cache.
type PriceCache interface {
	GetOrCompute(ctx context.Context, pctx pricing.Context, compute func(ctx context.Context) (*pricing.ComputationResult, error)) (*pricing.ComputationResult, bool, error)
}

// AnalyticsRecorder accepts computation logs without ever blocking the caller
type AnalyticsRecorder interface {
	Record(log *pricing.ComputationLog)
}

// PriceService answers price lookups. It is the hot path of the engine:
// everything that is not needed to produce the final price (usage counters,
// analytics) happens after the response is ready.
type PriceService struct {
	ruleRepo  pricing.RuleRepository
	matcher   *pricing.Matcher
	computer  *pricing.Computer
	cache     PriceCache
	analytics AnalyticsRecorder
	logger    *zap.Logger
}

// NewPriceService creates a new price service
func NewPriceService(
	ruleRepo pricing.RuleRepository,
	cache PriceCache,
	analytics AnalyticsRecorder,
	logger *zap.Logger,
) *PriceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PriceService{
		ruleRepo:  ruleRepo,
		matcher:   pricing.NewMatcher(logger),
		computer:  pricing.NewComputer(logger),
		cache:     cache,
		analytics: analytics,
		logger:    logger,
	}
}

// GetPrice computes or retrieves the price for the given context
func (s *PriceService) GetPrice(ctx context.Context, tenantID uuid.UUID, req QuoteRequest) (*QuoteResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "price", "get_price")
	defer span.End()

	pctx, err := req.ToContext(tenantID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span,
		"tenant_id", tenantID.String(),
		"article_id", pctx.ArticleID,
		"channel", pctx.Channel,
	)

	started := time.Now()
	result, cacheHit, err := s.cache.GetOrCompute(ctx, pctx, func(ctx context.Context) (*pricing.ComputationResult, error) {
		return s.compute(ctx, pctx, req)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, "cache_hit", cacheHit)

	s.recordAnalytics(pctx, result, cacheHit, time.Since(started))
	return ToQuoteResponse(result, cacheHit), nil
}

// compute is the cache miss path, executed once per coalesced key
func (s *PriceService) compute(ctx context.Context, pctx pricing.Context, req QuoteRequest) (*pricing.ComputationResult, error) {
	candidates, err := s.ruleRepo.ListActive(ctx, pctx.TenantID, pricing.ScopeHint{
		ArticleID:     pctx.ArticleID,
		ArticleFamily: pctx.ArticleFamily,
		Channel:       pctx.Channel,
	})
	if err != nil {
		s.logger.Error("failed to load active price rules",
			zap.String("tenant_id", pctx.TenantID.String()),
			zap.String("article_id", pctx.ArticleID),
			zap.Error(err))
		return nil, err
	}

	matched := s.matcher.Match(pctx, candidates)
	result := s.computer.Compute(req.BasePrice, pctx, matched)

	if len(result.AppliedRuleIDs) > 0 {
		s.incrementUsage(pctx.TenantID, result.AppliedRuleIDs)
	}
	return result, nil
}

// incrementUsage bumps usage counters off the request path. The counter is
// eventually consistent; a lost increment on crash is acceptable.
func (s *PriceService) incrementUsage(tenantID uuid.UUID, ruleIDs []uuid.UUID) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.ruleRepo.IncrementUsage(ctx, tenantID, ruleIDs); err != nil {
			s.logger.Warn("failed to increment rule usage counters",
				zap.String("tenant_id", tenantID.String()),
				zap.Int("rule_count", len(ruleIDs)),
				zap.Error(err))
		}
	}()
}

func (s *PriceService) recordAnalytics(pctx pricing.Context, result *pricing.ComputationResult, cacheHit bool, elapsed time.Duration) {
	if s.analytics == nil {
		return
	}
	ruleIDs, err := json.Marshal(result.AppliedRuleIDs)
	if err != nil {
		ruleIDs = []byte("[]")
	}
	s.analytics.Record(&pricing.ComputationLog{
		ID:              uuid.New(),
		TenantID:        pctx.TenantID,
		ArticleID:       pctx.ArticleID,
		ArticleFamily:   pctx.ArticleFamily,
		Channel:         pctx.Channel,
		CustomerSegment: pctx.CustomerSegment,
		Quantity:        pctx.Quantity,
		UnitUsed:        result.UnitUsed,
		BasePrice:       result.BasePrice,
		FinalPrice:      result.FinalPrice,
		AppliedRuleIDs:  ruleIDs,
		RuleCount:       len(result.AppliedRuleIDs),
		WarningCount:    len(result.Warnings),
		CacheHit:        cacheHit,
		DurationMicros:  elapsed.Microseconds(),
		Fingerprint:     pctx.Fingerprint(),
		ComputedAt:      result.ComputedAt,
		CreatedAt:       time.Now(),
	})
}
