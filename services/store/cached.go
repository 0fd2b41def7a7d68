package store

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/dealmungchi/offerwatcher/internal/offer"
	"github.com/dealmungchi/offerwatcher/logger"
	"github.com/dealmungchi/offerwatcher/services/cache"
)

// CachedStore answers Exists from the cache when possible. A key is only
// written after the backing store confirmed the record, so a cache hit never
// hides an offer that was not persisted.
//
// Keys outlive the process. A backing store that does not survive a restart
// must be given a per-process namespace with WithNamespace.
type CachedStore struct {
	next      OfferStore
	cacheSvc  cache.CacheService
	ttl       time.Duration
	namespace string
	log       *logger.Logger
}

// NewCachedStore wraps next with a read-through seen cache
func NewCachedStore(next OfferStore, cacheSvc cache.CacheService, ttl time.Duration) *CachedStore {
	return &CachedStore{
		next:     next,
		cacheSvc: cacheSvc,
		ttl:      ttl,
		log:      logger.ForStore(),
	}
}

// WithNamespace prefixes every seen key with ns
func (c *CachedStore) WithNamespace(ns string) *CachedStore {
	c.namespace = ns
	return c
}

// Exists consults the cache, then the backing store
func (c *CachedStore) Exists(ctx context.Context, subscriptionID int64, url string) (bool, error) {
	key := seenKey(c.namespace, subscriptionID, url)
	if _, err := c.cacheSvc.Get(key); err == nil {
		return true, nil
	} else if !cache.IsMiss(err) {
		c.log.Debug().Err(err).Msg("Seen cache lookup failed")
	}

	exists, err := c.next.Exists(ctx, subscriptionID, url)
	if err != nil {
		return false, err
	}
	if exists {
		c.remember(key)
	}
	return exists, nil
}

// InsertIfAbsent always goes to the backing store
func (c *CachedStore) InsertIfAbsent(ctx context.Context, subscriptionID int64, o offer.Offer) (bool, error) {
	inserted, err := c.next.InsertIfAbsent(ctx, subscriptionID, o)
	if err != nil {
		return false, err
	}
	c.remember(seenKey(c.namespace, subscriptionID, o.URL))
	return inserted, nil
}

func (c *CachedStore) remember(key string) {
	if err := c.cacheSvc.Set(key, []byte("1"), c.ttl); err != nil {
		c.log.Debug().Err(err).Msg("Seen cache write failed")
	}
}

// seenKey hashes the URL; memcache keys are limited to 250 printable bytes
func seenKey(namespace string, subscriptionID int64, url string) string {
	sum := sha1.Sum([]byte(url))
	prefix := "seen:"
	if namespace != "" {
		prefix += namespace + ":"
	}
	return prefix + strconv.FormatInt(subscriptionID, 10) + ":" + hex.EncodeToString(sum[:])
}
