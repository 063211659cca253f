package cache

import (
	"container/list"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

var ErrKeyExists = errors.New("key already exists in cache")

// Cache is a weight bounded LRU cache. Inserting past the budget evicts the
// least recently used entries.
type Cache[V any] interface {
	// GetWeight returns the combined weight of all entries.
	GetWeight() int

	// GetBudget returns the maximum combined weight.
	GetBudget() int

	// Insert adds a new entry. Keys are never overwritten, inserting an
	// existing key returns ErrKeyExists.
	Insert(key string, value V, weight int) error

	// Retrieve returns the entry for key and marks it as recently used.
	Retrieve(key string) (V, bool)

	// Contains is Retrieve without affecting the eviction order.
	Contains(key string) bool

	Clear()
}

type entry[V any] struct {
	key    string
	value  V
	weight int
}

type cache[V any] struct {
	log *logrus.Entry

	mu     sync.Mutex
	order  *list.List
	lookup map[string]*list.Element
	weight int
	budget int
}

// NewCache returns an empty cache that holds at most budget weight.
func NewCache[V any](budget int) Cache[V] {
	return &cache[V]{
		log:    logrus.StandardLogger().WithField("type", "cache"),
		order:  list.New(),
		lookup: make(map[string]*list.Element),
		budget: budget,
	}
}

func (c *cache[V]) GetWeight() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.weight
}

func (c *cache[V]) GetBudget() int {
	return c.budget
}

func (c *cache[V]) Insert(key string, value V, weight int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.lookup[key]; ok {
		return ErrKeyExists
	}

	c.lookup[key] = c.order.PushFront(&entry[V]{
		key:    key,
		value:  value,
		weight: weight,
	})
	c.weight += weight

	for c.weight > c.budget {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}

		evicted := c.order.Remove(oldest).(*entry[V])
		delete(c.lookup, evicted.key)
		c.weight -= evicted.weight

		c.log.WithFields(logrus.Fields{
			"key":    evicted.key,
			"weight": evicted.weight,
			"spare":  c.budget - c.weight,
		}).Trace("evicted cache entry")
	}

	return nil
}

func (c *cache[V]) Retrieve(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.lookup[key]
	if !ok {
		var zero V
		return zero, false
	}

	c.order.MoveToFront(elem)
	return elem.Value.(*entry[V]).value, true
}

func (c *cache[V]) Contains(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.lookup[key]
	return ok
}

func (c *cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order.Init()
	c.lookup = make(map[string]*list.Element)
	c.weight = 0
}
