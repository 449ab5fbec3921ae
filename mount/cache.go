package mount

import (
	"context"
	"strings"
	"sync"

	"github.com/mwantia/objfs/data"
	"golang.org/x/sync/singleflight"
)

// metadataCache holds the last known attributes per remote key.
// Concurrent first lookups of one key share a single fetch.
type metadataCache struct {
	entries sync.Map // map[string]*data.FileStat
	group   singleflight.Group
}

type fetchFunc func(ctx context.Context, key string) (*data.FileStat, error)

func (c *metadataCache) Load(ctx context.Context, key string, fetch fetchFunc) (*data.FileStat, error) {
	if stat, exists := c.entries.Load(key); exists {
		return stat.(*data.FileStat), nil
	}

	value, err, _ := c.group.Do(key, func() (any, error) {
		if stat, exists := c.entries.Load(key); exists {
			return stat, nil
		}

		stat, err := fetch(ctx, key)
		if err != nil {
			return nil, err
		}
		c.entries.Store(key, stat)
		return stat, nil
	})
	if err != nil {
		return nil, err
	}

	return value.(*data.FileStat), nil
}

func (c *metadataCache) Store(key string, stat *data.FileStat) {
	c.entries.Store(key, stat)
}

func (c *metadataCache) Invalidate(key string) {
	c.entries.Delete(key)
}

// InvalidateTree drops key and every cached key below it.
func (c *metadataCache) InvalidateTree(key string) {
	prefix := strings.TrimSuffix(key, "/") + "/"
	c.entries.Range(func(k, _ any) bool {
		if cached := k.(string); cached == key || strings.HasPrefix(cached, prefix) {
			c.entries.Delete(cached)
		}
		return true
	})
}

func (c *metadataCache) Clear() {
	c.entries.Clear()
}
