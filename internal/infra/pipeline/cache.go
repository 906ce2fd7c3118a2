package pipeline

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"
)

// Cache is a per-tool bounded response cache with TTL expiry and LRU
// eviction. Entries store the handler's marshaled response so a hit is
// byte-identical to the response recorded at insert time.
type Cache struct {
	capacity int
	now      func() time.Time

	mu      sync.Mutex
	byTool  map[string]*toolCache
	entries int
}

type toolCache struct {
	order  *list.List
	byKey  map[string]*list.Element
}

type cacheEntry struct {
	key       string
	payload   []byte
	expiresAt time.Time
}

func NewCache(capacityPerTool int) *Cache {
	if capacityPerTool <= 0 {
		capacityPerTool = 1
	}
	return &Cache{
		capacity: capacityPerTool,
		now:      time.Now,
		byTool:   make(map[string]*toolCache),
	}
}

// Get returns the stored payload for (tool, key) when a fresh entry exists
// and marks it most recently used.
func (c *Cache) Get(tool, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tc, ok := c.byTool[tool]
	if !ok {
		return nil, false
	}
	element, ok := tc.byKey[key]
	if !ok {
		return nil, false
	}
	entry := element.Value.(*cacheEntry)
	if !c.now().Before(entry.expiresAt) {
		tc.order.Remove(element)
		delete(tc.byKey, key)
		c.entries--
		return nil, false
	}
	tc.order.MoveToFront(element)
	return entry.payload, true
}

// Put stores payload under (tool, key) with the given TTL. The last writer
// wins on concurrent fills; the per-tool capacity bound evicts the least
// recently used entry on overflow.
func (c *Cache) Put(tool, key string, payload []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	tc, ok := c.byTool[tool]
	if !ok {
		tc = &toolCache{order: list.New(), byKey: make(map[string]*list.Element)}
		c.byTool[tool] = tc
	}

	expiresAt := c.now().Add(ttl)
	if element, ok := tc.byKey[key]; ok {
		entry := element.Value.(*cacheEntry)
		entry.payload = payload
		entry.expiresAt = expiresAt
		tc.order.MoveToFront(element)
		return
	}

	tc.byKey[key] = tc.order.PushFront(&cacheEntry{key: key, payload: payload, expiresAt: expiresAt})
	c.entries++

	if tc.order.Len() > c.capacity {
		oldest := tc.order.Back()
		if oldest != nil {
			tc.order.Remove(oldest)
			delete(tc.byKey, oldest.Value.(*cacheEntry).key)
			c.entries--
		}
	}
}

// Len returns the total number of live entries across tools.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries
}

// CanonicalArgsHash hashes the validated argument map. encoding/json sorts
// map keys, so mapping-valued arguments hash order-insensitively, and the
// registry applies schema defaults before hashing, so an omitted optional
// field hashes identically to its default value.
func CanonicalArgsHash(args map[string]any) (string, error) {
	encoded, err := json.Marshal(args)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:]), nil
}
