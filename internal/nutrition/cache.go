package nutrition

import (
	"context"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedStore memoizes name and code lookups in front of another Store.
// The dataset never changes at runtime, so entries never need invalidation.
type CachedStore struct {
	Store
	byName *lru.Cache[string, []Record]
	byCode *lru.Cache[string, Record]
}

// NewCachedStore wraps inner with LRU caches holding up to size entries each.
func NewCachedStore(inner Store, size int) (*CachedStore, error) {
	byName, err := lru.New[string, []Record](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create name cache: %w", err)
	}
	byCode, err := lru.New[string, Record](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create code cache: %w", err)
	}
	return &CachedStore{Store: inner, byName: byName, byCode: byCode}, nil
}

func (c *CachedStore) FindByName(ctx context.Context, query string) ([]Record, error) {
	key := strings.ToLower(strings.TrimSpace(query))
	if cached, ok := c.byName.Get(key); ok {
		return cloneAll(cached), nil
	}

	records, err := c.Store.FindByName(ctx, query)
	if err != nil {
		return nil, err
	}
	c.byName.Add(key, cloneAll(records))
	return records, nil
}

func (c *CachedStore) FindByCode(ctx context.Context, code string) (Record, bool, error) {
	if cached, ok := c.byCode.Get(code); ok {
		return cached.Clone(), true, nil
	}

	rec, found, err := c.Store.FindByCode(ctx, code)
	if err != nil || !found {
		return rec, found, err
	}
	c.byCode.Add(code, rec.Clone())
	return rec, true, nil
}

// Health forwards to the wrapped store when it reports health.
func (c *CachedStore) Health(ctx context.Context) map[string]string {
	stats := map[string]string{"status": "up"}
	if h, ok := c.Store.(interface {
		Health(context.Context) map[string]string
	}); ok {
		stats = h.Health(ctx)
	}
	stats["cached_names"] = fmt.Sprint(c.byName.Len())
	stats["cached_codes"] = fmt.Sprint(c.byCode.Len())
	return stats
}

func cloneAll(records []Record) []Record {
	out := make([]Record, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}
