package nutrition

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStore records how often the wrapped store is hit.
type countingStore struct {
	Store
	nameCalls int
	codeCalls int
}

func (c *countingStore) FindByName(ctx context.Context, q string) ([]Record, error) {
	c.nameCalls++
	return c.Store.FindByName(ctx, q)
}

func (c *countingStore) FindByCode(ctx context.Context, code string) (Record, bool, error) {
	c.codeCalls++
	return c.Store.FindByCode(ctx, code)
}

func TestCachedStore(t *testing.T) {
	inner := &countingStore{Store: openTestStore(t)}
	cached, err := NewCachedStore(inner, 16)
	require.NoError(t, err)
	ctx := context.Background()

	first, err := cached.FindByName(ctx, "Rice")
	require.NoError(t, err)
	first[0].Nutrients[ProteinG] = -1
	first[0].Name = "mutated"

	second, err := cached.FindByName(ctx, "rice")
	require.NoError(t, err)
	assert.Equal(t, 1, inner.nameCalls)
	assert.Equal(t, "Rice, raw, milled", second[0].Name)
	assert.InDelta(t, 7.94, second[0].Nutrients[ProteinG], 0.001)

	_, found, err := cached.FindByCode(ctx, "A016")
	require.NoError(t, err)
	require.True(t, found)
	_, _, _ = cached.FindByCode(ctx, "A016")
	assert.Equal(t, 1, inner.codeCalls)

	_, found, err = cached.FindByCode(ctx, "ZZZ")
	require.NoError(t, err)
	assert.False(t, found)
	_, _, _ = cached.FindByCode(ctx, "ZZZ")
	assert.Equal(t, 3, inner.codeCalls, "misses are not cached")

	stats := cached.Health(ctx)
	assert.Equal(t, "up", stats["status"])
	assert.Equal(t, "1", stats["cached_names"])
}
