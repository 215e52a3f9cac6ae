package pool

import (
	"math/big"
	"sync"
)

// DefaultRootHistorySize mirrors the pool contract's on-chain ring capacity.
const DefaultRootHistorySize = 64

// RootHistory is a fixed-capacity ring of recent state-tree roots. Pushing a
// new root advances the cursor and overwrites the oldest slot once the ring
// is full. Lookup walks backward from the newest entry so fresh roots are
// found first. The zero root is never a member regardless of contents.
type RootHistory struct {
	mu     sync.RWMutex
	slots  []*big.Int
	cursor int // index of the newest root
	filled int
}

func NewRootHistory(capacity int) *RootHistory {
	if capacity <= 0 {
		capacity = DefaultRootHistorySize
	}
	return &RootHistory{
		slots:  make([]*big.Int, capacity),
		cursor: capacity - 1,
	}
}

// Push records root as the newest entry, evicting the oldest when full.
// Zero roots are ignored.
func (h *RootHistory) Push(root *big.Int) {
	if root == nil || root.Sign() == 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cursor = (h.cursor + 1) % len(h.slots)
	h.slots[h.cursor] = new(big.Int).Set(root)
	if h.filled < len(h.slots) {
		h.filled++
	}
}

// Contains reports whether root is still inside the retention window.
func (h *RootHistory) Contains(root *big.Int) bool {
	if root == nil || root.Sign() == 0 {
		return false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := len(h.slots)
	for i := 0; i < h.filled; i++ {
		idx := (h.cursor - i + n) % n
		if h.slots[idx] != nil && h.slots[idx].Cmp(root) == 0 {
			return true
		}
	}
	return false
}

// Latest returns the newest root, or nil when the ring is empty.
func (h *RootHistory) Latest() *big.Int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.filled == 0 || h.slots[h.cursor] == nil {
		return nil
	}
	return new(big.Int).Set(h.slots[h.cursor])
}

// Len returns the number of retained roots.
func (h *RootHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.filled
}

// Capacity returns the fixed ring size.
func (h *RootHistory) Capacity() int {
	return len(h.slots)
}
