package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engagekit/verity/internal/domain"
)

func result(score float64) *domain.VerificationResult {
	return &domain.VerificationResult{
		Status:        domain.StatusPassed,
		Passed:        true,
		CombinedScore: score,
	}
}

func TestMemoryStore_GetSet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "k", result(0.8), time.Minute))

	got, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 0.8, got.CombinedScore, 1e-9)
}

func TestMemoryStore_WriteOnce(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", result(0.8), time.Minute))
	require.NoError(t, store.Set(ctx, "k", result(0.1), time.Minute))

	got, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 0.8, got.CombinedScore, 1e-9)
}

func TestMemoryStore_Expiry(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", result(0.8), time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	_, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	// An expired entry may be overwritten.
	require.NoError(t, store.Set(ctx, "k", result(0.3), time.Minute))
	got, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 0.3, got.CombinedScore, 1e-9)
}

func TestMemoryStore_ZeroTTLNeverExpires(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", result(0.8), 0))
	time.Sleep(2 * time.Millisecond)

	_, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryStore_Delete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", result(0.8), time.Minute))
	require.NoError(t, store.Delete(ctx, "k"))
	require.NoError(t, store.Delete(ctx, "k"))

	_, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_Sweep(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "short", result(0.1), time.Millisecond))
	require.NoError(t, store.Set(ctx, "long", result(0.2), time.Minute))
	time.Sleep(5 * time.Millisecond)

	assert.Equal(t, 1, store.Sweep())
	assert.Equal(t, 1, store.Len())
}
