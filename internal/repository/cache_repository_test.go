package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	appErrors "github.com/sevaportal/portal-api/pkg/errors"
)

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	ctx := context.Background()

	var dest map[string]string
	err := repo.Get(ctx, "schedule:alpha:2026-10-20", &dest)
	assert.ErrorIs(t, err, appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(ctx, "k", map[string]string{"a": "b"}, time.Minute))
	assert.NoError(t, repo.Delete(ctx, "k"))
	assert.NoError(t, repo.Close())
}
