package cache

import (
	"errors"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

// MemcacheService implements CacheService using memcache
type MemcacheService struct {
	client *memcache.Client
}

// NewMemcacheService creates a new memcache service
func NewMemcacheService(serverAddr string) *MemcacheService {
	client := memcache.New(serverAddr)
	client.Timeout = 500 * time.Millisecond
	return &MemcacheService{
		client: client,
	}
}

// Ping checks that the memcache server is reachable
func (m *MemcacheService) Ping() error {
	return m.client.Ping()
}

// Get retrieves a value from memcache
func (m *MemcacheService) Get(key string) ([]byte, error) {
	item, err := m.client.Get(key)
	if err != nil {
		return nil, translate(err)
	}
	return item.Value, nil
}

// Set stores a value in memcache with an expiration time
func (m *MemcacheService) Set(key string, value []byte, expiration time.Duration) error {
	return m.client.Set(&memcache.Item{
		Key:        key,
		Value:      value,
		Expiration: expirationSeconds(expiration),
	})
}

// MaxExpiration is the longest relative expiration memcache accepts. Larger
// values are read as absolute Unix timestamps.
const MaxExpiration = 30 * 24 * time.Hour

func expirationSeconds(expiration time.Duration) int32 {
	if expiration > MaxExpiration {
		expiration = MaxExpiration
	}
	if expiration <= 0 {
		return 0
	}
	if expiration < time.Second {
		return 1
	}
	return int32(expiration / time.Second)
}

// Delete removes a value from memcache
func (m *MemcacheService) Delete(key string) error {
	return translate(m.client.Delete(key))
}

func translate(err error) error {
	if errors.Is(err, memcache.ErrCacheMiss) {
		return ErrCacheMiss
	}
	return err
}
