package session

import (
	"context"
	"sync"

	"github.com/opcua-go/sessionfactory/internal/domain"
)

// Subscriptions is the default domain.SubscriptionFactory: an in-memory
// table of active subscriptions for one session, keyed by a subscription
// id the table assigns on Subscribe. Subscription-level asynchrony is bound
// here, one level below the Dispatcher.
type Subscriptions struct {
	mu      sync.Mutex
	nextID  uint32
	entries map[uint32]domain.SubscriptionInformation
}

// NewSubscriptions builds an empty Subscriptions table.
func NewSubscriptions() *Subscriptions {
	return &Subscriptions{entries: make(map[uint32]domain.SubscriptionInformation)}
}

// Subscribe implements domain.SubscriptionFactory.
func (s *Subscriptions) Subscribe(ctx context.Context, req domain.Request) (domain.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.entries[id] = domain.SubscriptionInformation{SubscriptionID: id, PublishingEnabled: true}
	return domain.GoodStatus, nil
}

// Unsubscribe implements domain.SubscriptionFactory. req.Handle() is
// treated as the subscription id to remove; a miss is a soft no-op.
func (s *Subscriptions) Unsubscribe(ctx context.Context, req domain.Request) (domain.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, uint32(req.Handle()))
	return domain.GoodStatus, nil
}

// Informations implements domain.SubscriptionFactory.
func (s *Subscriptions) Informations() []domain.SubscriptionInformation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.SubscriptionInformation, 0, len(s.entries))
	for _, info := range s.entries {
		out = append(out, info)
	}
	return out
}
