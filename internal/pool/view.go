package pool

import (
	"context"
	"math/big"

	"sponsor-backend/internal/metrics"
)

// Source is the union of pool state and ASP registry reads the live view
// needs. *ChainProvider satisfies it.
type Source interface {
	StateProvider
	ASPRegistry
}

// LiveView answers validation-time state questions from the in-memory root
// ring, falling back to chain reads for anything that must be fresh.
// Nullifier checks always go to the chain; a cached "unspent" answer is the
// one staleness this service cannot afford.
type LiveView struct {
	source  Source
	history *RootHistory
}

func NewLiveView(source Source, history *RootHistory) *LiveView {
	return &LiveView{source: source, history: history}
}

// IsKnownRoot reports whether root sits inside the pool's retention window.
// A ring miss triggers one refresh of the newest on-chain root before the
// final answer, covering roots minted since the last event was consumed.
func (v *LiveView) IsKnownRoot(ctx context.Context, root *big.Int) (bool, error) {
	if v.history.Contains(root) {
		return true, nil
	}
	current, err := v.source.CurrentRoot(ctx)
	if err != nil {
		return false, err
	}
	v.history.Push(current)
	return v.history.Contains(root), nil
}

func (v *LiveView) LatestASPRoot(ctx context.Context) (*big.Int, error) {
	return v.source.LatestApprovedRoot(ctx)
}

func (v *LiveView) NullifierSpent(ctx context.Context, nullifierHash *big.Int) (bool, error) {
	return v.source.IsNullifierSpent(ctx, nullifierHash)
}

func (v *LiveView) Scope(ctx context.Context) (*big.Int, error) {
	return v.source.Scope(ctx)
}

func (v *LiveView) MaxTreeDepth(ctx context.Context) (uint32, error) {
	return v.source.MaxTreeDepth(ctx)
}

// ObserveRoot feeds a root announced by a pool event into the ring.
func (v *LiveView) ObserveRoot(root *big.Int) {
	v.history.Push(root)
	metrics.RootHistorySize.Set(float64(v.history.Len()))
}
