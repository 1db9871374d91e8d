package fixtures

import (
	"errors"
	"sync"

	"github.com/eliteGoblin/focusd/mailslot/internal/domain"
)

// ErrPublishFailed is returned by a MemoryStore set to fail publishes.
var ErrPublishFailed = errors.New("publish failed")

// MemoryStore is an in-memory domain.SignalStore with the same consume-once
// semantics as the file store.
type MemoryStore struct {
	mu          sync.Mutex
	data        map[domain.Channel][]byte
	publishes   map[domain.Channel]int
	failPublish bool
	prepared    bool
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:      make(map[domain.Channel][]byte),
		publishes: make(map[domain.Channel]int),
	}
}

// FailPublishes makes every Publish fail while set.
func (s *MemoryStore) FailPublishes(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failPublish = fail
}

// Publishes counts successful publishes to channel.
func (s *MemoryStore) Publishes(channel domain.Channel) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.publishes[channel]
}

// Prepared reports whether Prepare ran.
func (s *MemoryStore) Prepared() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prepared
}

func (s *MemoryStore) Publish(channel domain.Channel, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failPublish {
		return domain.IOError("publish "+string(channel), ErrPublishFailed)
	}
	s.data[channel] = append([]byte(nil), payload...)
	s.publishes[channel]++
	return nil
}

func (s *MemoryStore) Consume(channel domain.Channel) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.data[channel]
	delete(s.data, channel)
	return data, ok
}

func (s *MemoryStore) Peek(channel domain.Channel) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.data[channel]
	return data, ok
}

func (s *MemoryStore) Exists(channel domain.Channel) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[channel]
	return ok
}

func (s *MemoryStore) Prepare() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prepared = true
	s.data[domain.ChannelMotion] = nil
	s.data[domain.ChannelClickTargets] = nil
	delete(s.data, domain.ChannelStop)
	return nil
}

func (s *MemoryStore) Path(channel domain.Channel) string {
	return "mem://" + channel.FileName()
}

var _ domain.SignalStore = (*MemoryStore)(nil)
