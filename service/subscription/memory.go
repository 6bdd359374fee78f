package subscription

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
)

type MemoryStore struct {
	mu   sync.RWMutex
	subs map[string]Subscription
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		subs: make(map[string]Subscription),
	}
}

func (s *MemoryStore) Get(_ context.Context, userID string) (*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subs[userID]
	if !ok {
		return nil, nil
	}
	sub = clone(sub)
	return &sub, nil
}

func (s *MemoryStore) Set(_ context.Context, sub Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.subs[sub.UserID] = clone(sub)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.subs, userID)
	return nil
}

func (s *MemoryStore) Evict(_ context.Context, sub Subscription) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.subs[sub.UserID]
	if !ok || !current.SameDescriptor(sub) {
		return false, nil
	}
	delete(s.subs, sub.UserID)
	return true, nil
}

func (s *MemoryStore) List(_ context.Context) ([]Subscription, error) {
	s.mu.RLock()
	subs := make([]Subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, clone(sub))
	}
	s.mu.RUnlock()

	sort.Slice(subs, func(i, j int) bool { return subs[i].UserID < subs[j].UserID })
	return subs, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// clone detaches the descriptor from the caller's buffer.
func clone(sub Subscription) Subscription {
	sub.Descriptor = append(json.RawMessage(nil), sub.Descriptor...)
	return sub
}
