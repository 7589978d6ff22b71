package cache

import (
	"errors"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

// Memcache implements Cache using memcached.
type Memcache struct {
	client *memcache.Client
}

// NewMemcache creates a memcached-backed cache.
func NewMemcache(serverAddr string) *Memcache {
	return &Memcache{
		client: memcache.New(serverAddr),
	}
}

func (m *Memcache) Get(key string) ([]byte, error) {
	item, err := m.client.Get(key)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, err
	}
	return item.Value, nil
}

func (m *Memcache) Set(key string, value []byte, expiration time.Duration) error {
	secs := int32(expiration.Seconds())
	if expiration > 0 && secs == 0 {
		secs = 1
	}
	return m.client.Set(&memcache.Item{
		Key:        key,
		Value:      value,
		Expiration: secs,
	})
}

func (m *Memcache) Delete(key string) error {
	err := m.client.Delete(key)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil
	}
	return err
}

// Ping checks that memcached is reachable.
func (m *Memcache) Ping() error {
	return m.client.Ping()
}
