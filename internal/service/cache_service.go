package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/frontier-maritime/intranet-api/internal/models"
)

const capabilityKeyPrefix = "authz:caps:"

// CapabilityCacheService keeps resolved permission sets in Redis so hot
// request paths skip the role and rank queries. The cache is strictly an
// optimisation: every miss or Redis failure falls through to the resolver,
// and role mutations invalidate eagerly.
type CapabilityCacheService struct {
	client  *redis.Client
	metrics *MetricsService
	ttl     time.Duration
	logger  *zap.Logger
}

// NewCapabilityCacheService constructs the cache. A nil client disables it.
func NewCapabilityCacheService(client *redis.Client, metrics *MetricsService, ttl time.Duration, logger *zap.Logger) *CapabilityCacheService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CapabilityCacheService{client: client, metrics: metrics, ttl: ttl, logger: logger}
}

// Enabled indicates whether caching is active.
func (s *CapabilityCacheService) Enabled() bool {
	return s != nil && s.client != nil
}

// GetCapabilities returns the cached permission set for an identity, with a
// hit indicator.
func (s *CapabilityCacheService) GetCapabilities(ctx context.Context, identityID string) (*models.Capabilities, bool) {
	if !s.Enabled() {
		return nil, false
	}
	start := time.Now()
	raw, err := s.client.Get(ctx, capabilityKeyPrefix+identityID).Bytes()
	if err != nil {
		s.metrics.RecordCacheOperation(false, time.Since(start))
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("capability cache get failed", zap.Error(err))
		}
		return nil, false
	}
	var caps models.Capabilities
	if err := json.Unmarshal(raw, &caps); err != nil {
		s.metrics.RecordCacheOperation(false, time.Since(start))
		s.logger.Warn("capability cache payload corrupt", zap.String("identity_id", identityID), zap.Error(err))
		return nil, false
	}
	s.metrics.RecordCacheOperation(true, time.Since(start))
	return &caps, true
}

// SetCapabilities stores the resolved permission set under the identity key.
func (s *CapabilityCacheService) SetCapabilities(ctx context.Context, identityID string, caps *models.Capabilities) {
	if !s.Enabled() || caps == nil {
		return
	}
	raw, err := json.Marshal(caps)
	if err != nil {
		s.logger.Warn("capability cache marshal failed", zap.Error(err))
		return
	}
	start := time.Now()
	if err := s.client.Set(ctx, capabilityKeyPrefix+identityID, raw, s.ttl).Err(); err != nil {
		s.logger.Warn("capability cache set failed", zap.Error(err))
	}
	s.metrics.ObserveCacheWrite(time.Since(start))
}

// InvalidateIdentity drops one identity's cached capabilities.
func (s *CapabilityCacheService) InvalidateIdentity(ctx context.Context, identityID string) {
	if !s.Enabled() {
		return
	}
	if err := s.client.Del(ctx, capabilityKeyPrefix+identityID).Err(); err != nil {
		s.logger.Warn("capability cache invalidate failed", zap.String("identity_id", identityID), zap.Error(err))
	}
}

// InvalidateAll drops every cached capability set. Called after role or
// mapping mutations, where the affected identity set is unknown.
func (s *CapabilityCacheService) InvalidateAll(ctx context.Context) {
	if !s.Enabled() {
		return
	}
	iter := s.client.Scan(ctx, 0, capabilityKeyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		s.logger.Warn("capability cache scan failed", zap.Error(err))
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		s.logger.Warn("capability cache flush failed", zap.Error(err))
	}
}
