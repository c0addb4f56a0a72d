package sink

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/edgeflare/graphstreams/pkg/sink/strategy"
)

// Binding ties a topic to its ingestion strategy.
type Binding struct {
	Type strategy.TopicType
	// Setting is the Cypher template or the pattern; empty for the other types.
	Setting string
}

// TopicService is a registry of topic bindings, safe for concurrent use.
type TopicService struct {
	mu     sync.RWMutex
	topics map[string]Binding
}

func NewTopicService() *TopicService {
	return &TopicService{topics: make(map[string]Binding)}
}

// Set binds topic. Rebinding a topic to another strategy type is a conflict;
// rebinding it to the same type replaces the setting.
func (s *TopicService) Set(topic string, b Binding) error {
	if topic == "" {
		return fmt.Errorf("%w: empty topic name", ErrInvalidConfig)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.topics[topic]; ok && prev.Type != b.Type {
		return fmt.Errorf("%w: %s is bound to %s and %s", ErrTopicConflict, topic, prev.Type, b.Type)
	}
	s.topics[topic] = b
	return nil
}

func (s *TopicService) Get(topic string) (Binding, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.topics[topic]
	return b, ok
}

func (s *TopicService) Remove(topic string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.topics, topic)
}

// Replace swaps the whole registry for topics.
func (s *TopicService) Replace(topics map[string]Binding) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topics = maps.Clone(topics)
	if s.topics == nil {
		s.topics = make(map[string]Binding)
	}
}

// Topics returns the bound topic names, sorted.
func (s *TopicService) Topics() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.topics))
}

// ByType returns the topics bound to typ, sorted.
func (s *TopicService) ByType(typ strategy.TopicType) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for topic, b := range s.topics {
		if b.Type == typ {
			out = append(out, topic)
		}
	}
	slices.Sort(out)
	return out
}

// All returns a copy of every binding.
func (s *TopicService) All() map[string]Binding {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.topics)
}
