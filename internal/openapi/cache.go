package openapi

import (
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"
)

const DefaultCacheSize = 32

// Cache holds fetched documents by service name. It is safe for concurrent
// readers; a re-fetch simply replaces the entry.
type Cache struct {
	specs *lru.Cache[string, *Spec]
}

func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[string, *Spec](size)
	if err != nil {
		return nil, err
	}
	return &Cache{specs: c}, nil
}

func (c *Cache) Get(service string) (*Spec, bool) {
	return c.specs.Get(service)
}

func (c *Cache) Put(spec *Spec) {
	if spec == nil {
		return
	}
	c.specs.Add(spec.Service, spec)
}

func (c *Cache) Remove(service string) {
	c.specs.Remove(service)
}

// Services lists cached service names, sorted.
func (c *Cache) Services() []string {
	keys := c.specs.Keys()
	sort.Strings(keys)
	return keys
}
