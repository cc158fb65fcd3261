package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/weeklyworks-api/pkg/errors"
)

func TestCacheRepositoryWithoutClientMisses(t *testing.T) {
	repo := NewCacheRepository(nil, "weeklyworks:exports:", nil)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "roster:csv", []byte("Day\n"), time.Minute))
	_, err := repo.Get(ctx, "roster:csv")
	assert.True(t, errors.Is(err, appErrors.ErrCacheMiss))
	assert.NoError(t, repo.Flush(ctx))
	assert.Equal(t, "weeklyworks:exports:roster:csv", repo.key("roster:csv"))
}

func TestCacheRepositorySurfacesConnectionErrors(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	defer client.Close()
	repo := NewCacheRepository(client, "weeklyworks:exports:", nil)

	_, err := repo.Get(context.Background(), "roster:csv")
	require.Error(t, err)
	assert.False(t, errors.Is(err, appErrors.ErrCacheMiss))
	assert.Error(t, repo.Set(context.Background(), "roster:csv", []byte("x"), time.Minute))
}
