package service

import (
	"context"
	"encoding/json"
	"fmt"

	"promovote/internal/domain"
	"promovote/pkg/redis"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CacheService fronts the read-only vote queries with a cache-aside pattern.
// Reads may serve a slightly stale snapshot; every mutation invalidates the
// affected keys. A nil Redis client degrades to pass-through.
type CacheService struct {
	redis  *redis.Client
	logger *zap.Logger
}

// NewCacheService creates a new cache service
func NewCacheService(redisClient *redis.Client, logger *zap.Logger) *CacheService {
	return &CacheService{
		redis:  redisClient,
		logger: logger,
	}
}

// GetVoteWithCache retrieves a vote record with cache-aside fallback to the ledger
func (c *CacheService) GetVoteWithCache(ctx context.Context, voteID string, dbFallback func(ctx context.Context, id string) (*domain.VoteRecord, error)) (*domain.VoteRecord, error) {
	if c.redis == nil {
		return dbFallback(ctx, voteID)
	}

	cacheKey := c.redis.KeyBuilder.KeyVoteRecord(voteID)

	cachedData, err := c.redis.Get(ctx, cacheKey)
	if err == nil && cachedData != "" {
		var vote domain.VoteRecord
		if marshalErr := json.Unmarshal([]byte(cachedData), &vote); marshalErr == nil {
			c.logger.Debug("vote cache hit", zap.String("vote_id", voteID))
			return &vote, nil
		} else {
			c.logger.Warn("vote cache corrupted, falling back to ledger",
				zap.String("vote_id", voteID),
				zap.Error(marshalErr))
		}
	} else if err != nil && err != goredis.Nil {
		c.logger.Warn("vote cache error, falling back to ledger",
			zap.String("vote_id", voteID),
			zap.Error(err))
	}

	c.logger.Debug("vote cache miss", zap.String("vote_id", voteID))
	vote, err := dbFallback(ctx, voteID)
	if err != nil {
		return nil, fmt.Errorf("ledger fallback failed: %w", err)
	}

	if vote != nil {
		c.cacheVote(cacheKey, vote)
	}

	return vote, nil
}

// GetActiveVoteWithCache retrieves an applicant's open round with cache-aside
// fallback. Only a present round is cached; "no open round" is always
// answered by the ledger so a fresh initiation is visible immediately.
func (c *CacheService) GetActiveVoteWithCache(ctx context.Context, applicantID string, dbFallback func(ctx context.Context, id string) (*domain.VoteRecord, error)) (*domain.VoteRecord, error) {
	if c.redis == nil {
		return dbFallback(ctx, applicantID)
	}

	cacheKey := c.redis.KeyBuilder.KeyApplicantActive(applicantID)

	cachedData, err := c.redis.Get(ctx, cacheKey)
	if err == nil && cachedData != "" {
		var vote domain.VoteRecord
		if marshalErr := json.Unmarshal([]byte(cachedData), &vote); marshalErr == nil {
			c.logger.Debug("active vote cache hit", zap.String("applicant_id", applicantID))
			return &vote, nil
		} else {
			c.logger.Warn("active vote cache corrupted, falling back to ledger",
				zap.String("applicant_id", applicantID),
				zap.Error(marshalErr))
		}
	} else if err != nil && err != goredis.Nil {
		c.logger.Warn("active vote cache error, falling back to ledger",
			zap.String("applicant_id", applicantID),
			zap.Error(err))
	}

	vote, err := dbFallback(ctx, applicantID)
	if err != nil {
		return nil, fmt.Errorf("ledger fallback failed: %w", err)
	}

	if vote != nil {
		c.cacheActiveVote(cacheKey, vote)
	}

	return vote, nil
}

// InvalidateVote drops the cached record and the applicant's active-round key
// after any mutation of the round.
func (c *CacheService) InvalidateVote(ctx context.Context, voteID, applicantID string) {
	if c.redis == nil {
		return
	}

	keys := []string{
		c.redis.KeyBuilder.KeyVoteRecord(voteID),
		c.redis.KeyBuilder.KeyApplicantActive(applicantID),
	}
	if err := c.redis.Delete(ctx, keys...); err != nil {
		c.logger.Warn("failed to invalidate vote cache",
			zap.String("vote_id", voteID),
			zap.Error(err))
	}
}

// HealthCheck verifies the cache connection
func (c *CacheService) HealthCheck(ctx context.Context) error {
	if c.redis == nil {
		return nil
	}
	return c.redis.Health(ctx)
}

func (c *CacheService) cacheVote(cacheKey string, vote *domain.VoteRecord) {
	data, err := json.Marshal(vote)
	if err != nil {
		c.logger.Warn("failed to encode vote for cache",
			zap.String("vote_id", vote.VoteID),
			zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*redis.TTLVoteRecord)
	defer cancel()

	if err := c.redis.Set(ctx, cacheKey, string(data), redis.TTLVoteRecord); err != nil {
		c.logger.Warn("failed to cache vote",
			zap.String("vote_id", vote.VoteID),
			zap.Error(err))
	}
}

func (c *CacheService) cacheActiveVote(cacheKey string, vote *domain.VoteRecord) {
	data, err := json.Marshal(vote)
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*redis.TTLApplicantActive)
	defer cancel()

	if err := c.redis.Set(ctx, cacheKey, string(data), redis.TTLApplicantActive); err != nil {
		c.logger.Warn("failed to cache active vote",
			zap.String("applicant_id", vote.ApplicantID),
			zap.Error(err))
	}
}
