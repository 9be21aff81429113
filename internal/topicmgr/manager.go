package topicmgr

import (
	"fmt"
	"sort"
	"sync"
)

// Manager is a concurrency-safe topic catalogue.
type Manager struct {
	mu     sync.RWMutex
	topics map[string]Topic
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{topics: make(map[string]Topic)}
}

var (
	defaultManager *Manager
	defaultOnce    sync.Once
)

// Default returns the process-wide manager.
func Default() *Manager {
	defaultOnce.Do(func() {
		defaultManager = NewManager()
	})
	return defaultManager
}

// Register validates and adds a topic.
func (m *Manager) Register(t Topic) error {
	if err := Validate(t); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.topics[t.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTopic, t.Name())
	}
	m.topics[t.Name()] = t
	return nil
}

// MustRegister is Register that panics on error. It is meant for
// package-level topic declarations.
func (m *Manager) MustRegister(t Topic) Topic {
	if err := m.Register(t); err != nil {
		panic(err)
	}
	return t
}

// Get looks a topic up by name.
func (m *Manager) Get(name string) (Topic, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.topics[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTopicNotFound, name)
	}
	return t, nil
}

// List returns every topic sorted by name.
func (m *Manager) List() []Topic {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Topic, 0, len(m.topics))
	for _, t := range m.topics {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// ListByModule returns the topics owned by module, sorted by name.
func (m *Manager) ListByModule(module string) []Topic {
	var out []Topic
	for _, t := range m.List() {
		if t.Module() == module {
			out = append(out, t)
		}
	}
	return out
}
