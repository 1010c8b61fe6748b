package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySessionRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySessionRepository(0)

	_, ok, err := repo.Find(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.Create(ctx, "s1", "ada"))
	require.NoError(t, repo.Create(ctx, "s2", "ada"))
	require.NoError(t, repo.Create(ctx, "s3", "bob"))

	username, ok, err := repo.Find(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "ada", username)

	require.NoError(t, repo.Delete(ctx, "s1"))
	_, ok, _ = repo.Find(ctx, "s1")
	assert.False(t, ok)

	require.NoError(t, repo.DeleteByUsername(ctx, "ada"))
	_, ok, _ = repo.Find(ctx, "s2")
	assert.False(t, ok)
	_, ok, _ = repo.Find(ctx, "s3")
	assert.True(t, ok)
}

func TestMemorySessionRepositoryExpiry(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySessionRepository(time.Hour).(*memorySessionRepository)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	require.NoError(t, repo.Create(ctx, "s1", "ada"))
	_, ok, _ := repo.Find(ctx, "s1")
	assert.True(t, ok)

	now = now.Add(2 * time.Hour)
	_, ok, _ = repo.Find(ctx, "s1")
	assert.False(t, ok)
}
