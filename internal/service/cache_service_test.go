package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appErrors "github.com/sevaportal/portal-api/pkg/errors"
)

type failingCache struct{}

func (failingCache) Get(ctx context.Context, key string, dest interface{}) error {
	return errors.New("connection refused")
}
func (failingCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return errors.New("connection refused")
}
func (failingCache) Delete(ctx context.Context, keys ...string) error { return nil }

type missCache struct{}

func (missCache) Get(ctx context.Context, key string, dest interface{}) error { return appErrors.ErrCacheMiss }
func (missCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return nil
}
func (missCache) Delete(ctx context.Context, keys ...string) error { return nil }

func TestCacheServiceDisabled(t *testing.T) {
	var nilSvc *CacheService
	hit, err := nilSvc.Get(context.Background(), "k", &struct{}{})
	assert.False(t, hit)
	assert.NoError(t, err)

	svc := NewCacheService(failingCache{}, nil, 0, nil, false)
	assert.False(t, svc.Enabled())
	assert.NoError(t, svc.Set(context.Background(), "k", 1, 0))
}

func TestCacheServiceMissAndFailureMetrics(t *testing.T) {
	metrics := NewMetricsService()

	miss := NewCacheService(missCache{}, metrics, time.Minute, zap.NewNop(), true)
	hit, err := miss.Get(context.Background(), "k", &struct{}{})
	require.NoError(t, err)
	assert.False(t, hit)

	failing := NewCacheService(failingCache{}, metrics, time.Minute, zap.NewNop(), true)
	hit, err = failing.Get(context.Background(), "k", &struct{}{})
	assert.Error(t, err)
	assert.False(t, hit)

	snap := metrics.Snapshot()
	assert.Equal(t, uint64(2), snap.CacheMisses)
	assert.Zero(t, snap.CacheHitRatio)
}

func TestMetricsSnapshotCountsDomainEvents(t *testing.T) {
	metrics := NewMetricsService()
	metrics.RecordSessionsCreated("alpha", 3)
	metrics.RecordSessionsCreated("alpha", 0)
	metrics.RecordMembershipConflict("stale_version")
	metrics.ObserveHTTPRequest("GET", "/api/v1/schedule", "alpha", 200, 20*time.Millisecond)

	snap := metrics.Snapshot()
	assert.Equal(t, uint64(3), snap.SessionsCreated)
	assert.Equal(t, uint64(1), snap.MembershipConflicts)
	assert.Equal(t, uint64(1), snap.RequestsTotal)
	assert.InDelta(t, 20.0, snap.AverageRequestDurationMs, 0.001)
}
