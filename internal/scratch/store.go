// Package scratch carries facts discovered during validation into the
// settlement step of the same operation. Slots are write-once and
// read-once: Take removes the entry, so a second settlement for the same
// operation observes nothing and cannot reuse stale facts.
package scratch

import (
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"sponsor-backend/internal/validation"
)

var (
	ErrAlreadyWritten = errors.New("scratch slot already written for this operation")
	ErrNilFacts       = errors.New("nil facts")
)

// Store keys validation facts by operation hash.
type Store struct {
	mu    sync.Mutex
	slots map[common.Hash]*validation.Facts
}

func NewStore() *Store {
	return &Store{slots: make(map[common.Hash]*validation.Facts)}
}

// Put records facts for an operation. Writing twice without an intervening
// Take or Drop is a pipeline bug and is refused.
func (s *Store) Put(opHash common.Hash, facts *validation.Facts) error {
	if facts == nil {
		return ErrNilFacts
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.slots[opHash]; exists {
		return ErrAlreadyWritten
	}
	s.slots[opHash] = facts
	return nil
}

// Take returns the facts for an operation and clears the slot. The second
// Take for the same hash reports ok=false.
func (s *Store) Take(opHash common.Hash) (*validation.Facts, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	facts, ok := s.slots[opHash]
	if ok {
		delete(s.slots, opHash)
	}
	return facts, ok
}

// Drop discards a slot without reading it. Called when validation accepted
// an operation that never reached settlement.
func (s *Store) Drop(opHash common.Hash) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.slots, opHash)
}

// Len reports the number of operations currently in flight.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.slots)
}
