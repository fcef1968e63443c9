// Package cache memoizes large derived objects, such as the meld list of a
// ruleset, that are expensive to build and reused across many requests.
package cache

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// LoadFunc builds the object for a key on a cache miss.
type LoadFunc[K comparable, V any] func(key K) (V, error)

// Cache is a mutex-guarded map from key to object. Objects live until they
// are explicitly invalidated.
type Cache[K comparable, V any] struct {
	sync.Mutex
	name    string
	objects map[K]V
}

func New[K comparable, V any](name string) *Cache[K, V] {
	return &Cache[K, V]{name: name, objects: make(map[K]V)}
}

func (c *Cache[K, V]) load(key K, loadFunc LoadFunc[K, V]) (V, error) {
	log.Debug().Str("cache", c.name).Interface("key", key).Msg("loading into cache")

	obj, err := loadFunc(key)
	if err != nil {
		return obj, err
	}
	c.objects[key] = obj
	return obj, nil
}

// Get returns the cached object for key, building it with loadFunc if it
// is missing. Failed loads are not cached.
func (c *Cache[K, V]) Get(key K, loadFunc LoadFunc[K, V]) (V, error) {
	c.Lock()
	defer c.Unlock()
	if obj, ok := c.objects[key]; ok {
		log.Debug().Str("cache", c.name).Interface("key", key).Msg("getting obj from cache")
		return obj, nil
	}
	return c.load(key, loadFunc)
}

// Invalidate drops the object for key.
func (c *Cache[K, V]) Invalidate(key K) {
	c.Lock()
	defer c.Unlock()
	delete(c.objects, key)
}

// Clear drops every object.
func (c *Cache[K, V]) Clear() {
	c.Lock()
	defer c.Unlock()
	c.objects = make(map[K]V)
}

func (c *Cache[K, V]) Len() int {
	c.Lock()
	defer c.Unlock()
	return len(c.objects)
}
