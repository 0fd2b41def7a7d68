package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/dealmungchi/offerwatcher/internal/offer"
)

// MemoryStore keeps subscriptions and seen offers in process memory
type MemoryStore struct {
	mu            sync.Mutex
	nextID        int64
	subscriptions []offer.Subscription
	offers        map[int64]map[string]offer.Offer
	order         map[int64][]string
}

// NewMemoryStore creates an empty memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		offers: make(map[int64]map[string]offer.Offer),
		order:  make(map[int64][]string),
	}
}

// Exists reports whether url was recorded for the subscription
func (m *MemoryStore) Exists(ctx context.Context, subscriptionID int64, url string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.offers[subscriptionID][url]
	return ok, nil
}

// InsertIfAbsent records o unless its URL is already stored for the subscription
func (m *MemoryStore) InsertIfAbsent(ctx context.Context, subscriptionID int64, o offer.Offer) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	seen, ok := m.offers[subscriptionID]
	if !ok {
		seen = make(map[string]offer.Offer)
		m.offers[subscriptionID] = seen
	}
	if _, exists := seen[o.URL]; exists {
		return false, nil
	}
	seen[o.URL] = o
	m.order[subscriptionID] = append(m.order[subscriptionID], o.URL)
	return true, nil
}

// ListOffers returns the offers recorded for a subscription in insertion order
func (m *MemoryStore) ListOffers(ctx context.Context, subscriptionID int64) ([]offer.Offer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	offers := make([]offer.Offer, 0, len(m.order[subscriptionID]))
	for _, url := range m.order[subscriptionID] {
		offers = append(offers, m.offers[subscriptionID][url])
	}
	return offers, nil
}

// List returns a snapshot of all subscriptions ordered by id
func (m *MemoryStore) List(ctx context.Context) ([]offer.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return slices.Clone(m.subscriptions), nil
}

// Create adds a subscription
func (m *MemoryStore) Create(ctx context.Context, url, notificationTarget string) (*offer.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	sub := offer.Subscription{
		ID:                 m.nextID,
		URL:                url,
		NotificationTarget: notificationTarget,
		LastSync:           time.Now(),
	}
	m.subscriptions = append(m.subscriptions, sub)
	return &sub, nil
}

// Delete removes a subscription together with its seen offers
func (m *MemoryStore) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := slices.IndexFunc(m.subscriptions, func(s offer.Subscription) bool { return s.ID == id })
	if i < 0 {
		return ErrNotFound
	}
	m.subscriptions = slices.Delete(m.subscriptions, i, i+1)
	delete(m.offers, id)
	delete(m.order, id)
	return nil
}

// TouchLastSync updates the diagnostic last sync time
func (m *MemoryStore) TouchLastSync(ctx context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.subscriptions {
		if m.subscriptions[i].ID == id {
			m.subscriptions[i].LastSync = at
			return nil
		}
	}
	return ErrNotFound
}
