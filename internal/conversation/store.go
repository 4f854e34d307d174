package conversation

import (
	"fmt"
	"sync"
)

// Store is an ordered, identity-stable list of messages. Every operation
// leaves the list fully consistent before it returns, and observers are
// handed a snapshot taken inside the same critical section as the change.
type Store struct {
	// notifyMu serialises mutation+notification so observers see
	// snapshots in mutation order.
	notifyMu  sync.Mutex
	mu        sync.RWMutex
	messages  []Message
	index     map[string]int
	observers []func([]Message)
}

func NewStore() *Store {
	return &Store{
		index: make(map[string]int),
	}
}

// OnChange registers fn to receive a snapshot after each mutation.
// Observers may read the store but must not mutate it.
func (s *Store) OnChange(fn func([]Message)) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	s.observers = append(s.observers, fn)
}

// Append adds msg at the end of the conversation
func (s *Store) Append(msg Message) error {
	return s.mutate(func() error {
		return s.appendLocked(msg)
	})
}

// UpdateByID replaces the content of the pending message with the given id.
// An unknown id is appended as a pending assistant message so no update is
// ever lost.
func (s *Store) UpdateByID(id, content string) error {
	return s.mutate(func() error {
		i, ok := s.index[id]
		if !ok {
			return s.appendLocked(Message{ID: id, Role: RoleAssistant, Content: content, State: Pending})
		}
		if !s.messages[i].IsPending() {
			return fmt.Errorf("update %s: %w", id, ErrFinalized)
		}
		s.messages[i].Content = content
		return nil
	})
}

// Finalize replaces the pending message with the given id by final, keeping
// its position. final may carry a new identity. An unknown id appends final.
func (s *Store) Finalize(id string, final Message) error {
	final.State = Final
	return s.mutate(func() error {
		i, ok := s.index[id]
		if !ok {
			return s.appendLocked(final)
		}
		if !s.messages[i].IsPending() {
			return fmt.Errorf("finalize %s: %w", id, ErrFinalized)
		}
		if final.ID != id {
			if _, taken := s.index[final.ID]; taken {
				return &DuplicateIDError{ID: final.ID}
			}
			delete(s.index, id)
			s.index[final.ID] = i
		}
		s.messages[i] = final
		return nil
	})
}

// Clear removes every message
func (s *Store) Clear() {
	_ = s.mutate(func() error {
		s.messages = nil
		s.index = make(map[string]int)
		return nil
	})
}

// Messages returns a copy of the conversation in display order
func (s *Store) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Get returns the message with the given id
func (s *Store) Get(id string) (Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return Message{}, false
	}
	return s.messages[i], true
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

func (s *Store) appendLocked(msg Message) error {
	if _, taken := s.index[msg.ID]; taken {
		return &DuplicateIDError{ID: msg.ID}
	}
	s.index[msg.ID] = len(s.messages)
	s.messages = append(s.messages, msg)
	return nil
}

func (s *Store) snapshotLocked() []Message {
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Store) mutate(fn func() error) error {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	err := fn()
	var snapshot []Message
	if err == nil && len(s.observers) > 0 {
		snapshot = s.snapshotLocked()
	}
	s.mu.Unlock()

	if err != nil {
		return err
	}
	for _, observe := range s.observers {
		observe(snapshot)
	}
	return nil
}
