package state

import (
	"fmt"
	"sync"
)

// Payload is a sealed interface for state operations.
// Only the payload types of this package implement it.
type Payload interface {
	PartitionKey() string
	payload()
}

var (
	_ Payload = Load[string]{}
	_ Payload = Put[string, int]{}
)

// Load is the payload type for retrieving a value from the state.
type Load[K comparable] struct {
	Key K
}

func (p Load[K]) PartitionKey() string { return fmt.Sprintf("%v", p.Key) }
func (p Load[K]) payload()             {}

// Put is the payload type for inserting or overwriting a value.
type Put[K comparable, V comparable] struct {
	Key K
	New V
}

func (p Put[K, V]) PartitionKey() string { return fmt.Sprintf("%v", p.Key) }
func (p Put[K, V]) payload()             {}

// Store is the backing repository of a state scope.
// Calls for one key are serialized by the handler, so implementations only
// need to be safe across different keys.
type Store[K comparable, V comparable] interface {
	Load(key K) (V, bool, error)
	Store(key K, value V) error
}

var _ Store[string, int] = (*InMemoryStore[string, int])(nil)

// InMemoryStore is a Store over sync.Map.
type InMemoryStore[K comparable, V comparable] struct {
	m sync.Map
}

func NewInMemoryStore[K comparable, V comparable]() *InMemoryStore[K, V] {
	return &InMemoryStore[K, V]{}
}

func (s *InMemoryStore[K, V]) Load(key K) (V, bool, error) {
	raw, ok := s.m.Load(key)
	if !ok {
		return *new(V), false, nil
	}
	return raw.(V), true, nil
}

func (s *InMemoryStore[K, V]) Store(key K, value V) error {
	s.m.Store(key, value)
	return nil
}

// Keys returns a snapshot of the stored keys in no particular order.
func (s *InMemoryStore[K, V]) Keys() []K {
	var keys []K
	s.m.Range(func(k, _ any) bool {
		keys = append(keys, k.(K))
		return true
	})
	return keys
}
