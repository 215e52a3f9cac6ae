// Package validation implements the withdrawal acceptance pipeline: relay
// payload decoding, context binding, pool-state checks, proof verification
// and the fee gate. It mirrors the pool contract's own acceptance logic so
// the sponsor only advances gas for operations that will land.
package validation

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Reason identifies why an operation was rejected. Reasons are stable
// strings: they appear in API responses, logs and metrics labels.
type Reason string

const (
	ReasonUnknownFactory       Reason = "UnknownFactory"
	ReasonUnrecognizedSelector Reason = "UnrecognizedSelector"
	ReasonMalformedPayload     Reason = "MalformedPayload"
	ReasonWrongTarget          Reason = "WrongTarget"
	ReasonNonzeroValue         Reason = "NonzeroValue"
	ReasonEmptyBatch           Reason = "EmptyBatch"
	ReasonMultipleCalls        Reason = "MultipleCalls"
	ReasonWrongFeeRecipient    Reason = "WrongFeeRecipient"
	ReasonContextMismatch      Reason = "ContextMismatch"
	ReasonDepthExceeded        Reason = "DepthExceeded"
	ReasonUnknownRoot          Reason = "UnknownRoot"
	ReasonStaleApprovedRoot    Reason = "StaleApprovedSetRoot"
	ReasonNullifierSpent       Reason = "NullifierSpent"
	ReasonInvalidProof         Reason = "InvalidProof"
	ReasonZeroFee              Reason = "ZeroFee"
	ReasonInsufficientCost     Reason = "InsufficientPaymasterCost"
	ReasonBalanceExhausted     Reason = "SponsorBalanceExhausted"
)

// RejectionError carries the stable rejection reason alongside the
// underlying cause. All rejections are terminal, never retryable.
type RejectionError struct {
	Reason Reason
	Err    error
}

func (e *RejectionError) Error() string {
	if e.Err == nil {
		return string(e.Reason)
	}
	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

func (e *RejectionError) Unwrap() error { return e.Err }

func Reject(reason Reason, err error) *RejectionError {
	return &RejectionError{Reason: reason, Err: err}
}

// ReasonOf extracts the rejection reason from err, or empty when err is not
// a rejection.
func ReasonOf(err error) Reason {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej.Reason
	}
	return ""
}

// WithdrawalRequest is the pool's relay argument: the processing address
// plus the opaque relay data the fee terms are encoded in.
type WithdrawalRequest struct {
	Processor common.Address
	Data      []byte
}

// RelayData is the decoded fee-term payload inside WithdrawalRequest.Data.
type RelayData struct {
	Recipient    common.Address
	FeeRecipient common.Address
	FeeBPS       *big.Int
}

// Proof bundles the Groth16 points with the circuit's eight public signals.
type Proof struct {
	A             [2]*big.Int
	B             [2][2]*big.Int
	C             [2]*big.Int
	PublicSignals [8]*big.Int
}

// Public-signal layout of the withdrawal circuit.
func (p *Proof) NewCommitmentHash() *big.Int     { return p.PublicSignals[0] }
func (p *Proof) ExistingNullifierHash() *big.Int { return p.PublicSignals[1] }
func (p *Proof) WithdrawnValue() *big.Int        { return p.PublicSignals[2] }
func (p *Proof) StateRoot() *big.Int             { return p.PublicSignals[3] }
func (p *Proof) StateTreeDepth() *big.Int        { return p.PublicSignals[4] }
func (p *Proof) ASPRoot() *big.Int               { return p.PublicSignals[5] }
func (p *Proof) ASPTreeDepth() *big.Int          { return p.PublicSignals[6] }
func (p *Proof) Context() *big.Int               { return p.PublicSignals[7] }

// Facts is what validation hands to settlement through the scratch channel.
type Facts struct {
	WithdrawnValue *big.Int
	FeeBPS         *big.Int
	Recipient      common.Address
}
