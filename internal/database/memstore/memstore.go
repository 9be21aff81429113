// Package memstore is an in-memory table store. It backs tests and the
// server when no database is configured.
package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nfrund/tavern/internal/domain"
)

// Store implements domain.MessageLog and domain.CharacterRepository.
type Store struct {
	mu         sync.RWMutex
	messages   []domain.Message
	characters []domain.Character
	lastStamp  time.Time
	now        func() time.Time
}

var (
	_ domain.MessageLog          = (*Store)(nil)
	_ domain.CharacterRepository = (*Store)(nil)
)

// New returns an empty store.
func New() *Store {
	return &Store{now: time.Now}
}

// Append stores msg with a fresh id and a timestamp strictly after the previous one.
func (s *Store) Append(ctx context.Context, msg domain.Message) (*domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stamp := s.now().UTC()
	if !stamp.After(s.lastStamp) {
		stamp = s.lastStamp.Add(time.Nanosecond)
	}
	s.lastStamp = stamp

	msg.ID = uuid.NewString()
	msg.CreatedAt = stamp
	msg = cloneMessage(msg)
	s.messages = append(s.messages, msg)

	out := cloneMessage(msg)
	return &out, nil
}

// QueryOrdered returns the newest limit messages, oldest first.
func (s *Store) QueryOrdered(ctx context.Context, limit int) ([]domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := 0
	if limit > 0 && len(s.messages) > limit {
		start = len(s.messages) - limit
	}
	out := make([]domain.Message, 0, len(s.messages)-start)
	for _, m := range s.messages[start:] {
		out = append(out, cloneMessage(m))
	}
	return out, nil
}

// DeleteWhere removes every message matched by filter.
func (s *Store) DeleteWhere(ctx context.Context, filter domain.MessageFilter) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.messages[:0]
	for _, m := range s.messages {
		if !filter.Match(m) {
			kept = append(kept, m)
		}
	}
	s.messages = kept
	return nil
}

// MarkResolved flips the resolved flag of the request with the given id.
func (s *Store) MarkResolved(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.messages {
		if s.messages[i].ID != id {
			continue
		}
		if s.messages[i].Request == nil {
			return fmt.Errorf("message %s is not a request: %w", id, domain.ErrNotFound)
		}
		s.messages[i].Request.Resolved = true
		return nil
	}
	return fmt.Errorf("message %s: %w", id, domain.ErrNotFound)
}

// List returns the roster in insertion order.
func (s *Store) List(ctx context.Context) (domain.Roster, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append(domain.Roster(nil), s.characters...), nil
}

// UpdateHP overwrites the hit points of character id.
func (s *Store) UpdateHP(ctx context.Context, id string, hp int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.characters {
		if s.characters[i].ID == id {
			s.characters[i].HP = hp
			return nil
		}
	}
	return fmt.Errorf("character %s: %w", id, domain.ErrNotFound)
}

// Upsert inserts c, or replaces the character with the same uid.
// A missing ID is generated.
func (s *Store) Upsert(ctx context.Context, c domain.Character) (*domain.Character, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.characters {
		if s.characters[i].UID == c.UID {
			c.ID = s.characters[i].ID
			s.characters[i] = c
			return &c, nil
		}
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	s.characters = append(s.characters, c)
	return &c, nil
}

// FindByUID returns the character owned by uid.
func (s *Store) FindByUID(ctx context.Context, uid string) (*domain.Character, error) {
	roster, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	c, ok := roster.FindByUID(uid)
	if !ok {
		return nil, fmt.Errorf("character for %s: %w", uid, domain.ErrNotFound)
	}
	return &c, nil
}

func cloneMessage(m domain.Message) domain.Message {
	if m.Request != nil {
		req := *m.Request
		req.Command.Args = append([]string(nil), m.Request.Command.Args...)
		m.Request = &req
	}
	return m
}
