package validation

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"
)

// PoolView is the read-only pool state the pre-validator consults.
// *pool.LiveView satisfies it.
type PoolView interface {
	IsKnownRoot(ctx context.Context, root *big.Int) (bool, error)
	LatestASPRoot(ctx context.Context) (*big.Int, error)
	NullifierSpent(ctx context.Context, nullifierHash *big.Int) (bool, error)
	Scope(ctx context.Context) (*big.Int, error)
	MaxTreeDepth(ctx context.Context) (uint32, error)
}

// ProofOracle is the external Groth16 verification surface.
type ProofOracle interface {
	Verify(a [2]*big.Int, b [2][2]*big.Int, c [2]*big.Int, publicSignals []*big.Int) (bool, error)
}

// PreValidator runs the acceptance pipeline over a decoded withdrawal. It
// never mutates external state; every check either passes or produces a
// terminal RejectionError.
type PreValidator struct {
	view    PoolView
	oracle  ProofOracle
	sponsor common.Address
}

// NewPreValidator binds the pipeline to the pool view, the proof oracle and
// the sponsor address every fee must be payable to.
func NewPreValidator(view PoolView, oracle ProofOracle, sponsor common.Address) *PreValidator {
	return &PreValidator{view: view, oracle: oracle, sponsor: sponsor}
}

// Validate runs the acceptance checks in order, short-circuiting on the
// first failure. On success it returns the facts settlement will need.
func (v *PreValidator) Validate(ctx context.Context, w *WithdrawalRequest, proof *Proof) (*Facts, error) {
	// 1. Fee terms must name this sponsor as fee recipient.
	relayData, err := DecodeRelayData(w.Data)
	if err != nil {
		return nil, Reject(ReasonMalformedPayload, err)
	}
	if relayData.FeeRecipient != v.sponsor {
		return nil, Reject(ReasonWrongFeeRecipient,
			fmt.Errorf("fee recipient %s, sponsor %s", relayData.FeeRecipient.Hex(), v.sponsor.Hex()))
	}

	// 2. The proof's context signal must bind to exactly this request.
	scope, err := v.view.Scope(ctx)
	if err != nil {
		return nil, fmt.Errorf("read pool scope: %w", err)
	}
	expected, err := ComputeContext(w, scope)
	if err != nil {
		return nil, Reject(ReasonMalformedPayload, err)
	}
	if expected.Cmp(proof.Context()) != 0 {
		return nil, Reject(ReasonContextMismatch,
			fmt.Errorf("expected %s, proof carries %s", expected, proof.Context()))
	}

	// 3. Claimed tree depths inside the pool's configured bound.
	maxDepth, err := v.view.MaxTreeDepth(ctx)
	if err != nil {
		return nil, fmt.Errorf("read max tree depth: %w", err)
	}
	bound := new(big.Int).SetUint64(uint64(maxDepth))
	if proof.StateTreeDepth().Cmp(bound) > 0 || proof.ASPTreeDepth().Cmp(bound) > 0 {
		return nil, Reject(ReasonDepthExceeded,
			fmt.Errorf("state depth %s, asp depth %s, max %d",
				proof.StateTreeDepth(), proof.ASPTreeDepth(), maxDepth))
	}

	// 4. State root inside the retention window.
	known, err := v.view.IsKnownRoot(ctx, proof.StateRoot())
	if err != nil {
		return nil, fmt.Errorf("check state root: %w", err)
	}
	if !known {
		return nil, Reject(ReasonUnknownRoot, fmt.Errorf("state root %s", proof.StateRoot()))
	}

	// 5. ASP root must be the single latest published root, no history.
	latestASP, err := v.view.LatestASPRoot(ctx)
	if err != nil {
		return nil, fmt.Errorf("read latest ASP root: %w", err)
	}
	if latestASP.Cmp(proof.ASPRoot()) != 0 {
		return nil, Reject(ReasonStaleApprovedRoot,
			fmt.Errorf("proof asp root %s, latest %s", proof.ASPRoot(), latestASP))
	}

	// 6. Nullifier must be unspent.
	spent, err := v.view.NullifierSpent(ctx, proof.ExistingNullifierHash())
	if err != nil {
		return nil, fmt.Errorf("check nullifier: %w", err)
	}
	if spent {
		return nil, Reject(ReasonNullifierSpent,
			fmt.Errorf("nullifier %s already spent", proof.ExistingNullifierHash()))
	}

	// 7. The proof itself.
	ok, err := v.oracle.Verify(proof.A, proof.B, proof.C, proof.PublicSignals[:])
	if err != nil {
		return nil, Reject(ReasonInvalidProof, err)
	}
	if !ok {
		return nil, Reject(ReasonInvalidProof, fmt.Errorf("pairing check failed"))
	}

	// 8. A zero fee rate leaves the sponsor unpaid.
	if relayData.FeeBPS == nil || relayData.FeeBPS.Sign() == 0 {
		return nil, Reject(ReasonZeroFee, nil)
	}

	log.WithFields(log.Fields{
		"recipient": relayData.Recipient.Hex(),
		"value":     proof.WithdrawnValue().String(),
		"feeBPS":    relayData.FeeBPS.String(),
	}).Debug("Withdrawal passed pre-validation")

	return &Facts{
		WithdrawnValue: new(big.Int).Set(proof.WithdrawnValue()),
		FeeBPS:         new(big.Int).Set(relayData.FeeBPS),
		Recipient:      relayData.Recipient,
	}, nil
}
