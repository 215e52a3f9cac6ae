// Package types holds the wire-level operation structures shared between
// handlers and services.
package types

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Operation is one sponsorship candidate submitted for validation: the
// account, its optional deployment payload, the wrapped call data and the
// fee budget the framework would charge against the sponsor.
type Operation struct {
	Sender   common.Address
	InitCode []byte // factory address ++ factory calldata, empty once deployed
	CallData []byte

	// Fee budget: worst-case advance = MaxAdvance(); the framework derives
	// it from gas limits times fee-per-unit, the API carries it directly.
	MaxFeePerUnit *big.Int
	GasLimit      uint64

	Signature []byte

	// Factory overrides the init-code derivation for already-deployed
	// accounts whose wrapper family must still be resolved.
	Factory common.Address
}

// ResolveFactory returns the account factory keying the extractor choice:
// the first 20 bytes of the init code when present, the explicit Factory
// field otherwise.
func (op *Operation) ResolveFactory() (common.Address, error) {
	if len(op.InitCode) >= common.AddressLength {
		return common.BytesToAddress(op.InitCode[:common.AddressLength]), nil
	}
	if len(op.InitCode) > 0 {
		return common.Address{}, fmt.Errorf("init code shorter than a factory address")
	}
	if op.Factory == (common.Address{}) {
		return common.Address{}, fmt.Errorf("operation carries neither init code nor factory")
	}
	return op.Factory, nil
}

// MaxAdvance is the worst-case fee the sponsor could front for this
// operation: gasLimit * maxFeePerUnit.
func (op *Operation) MaxAdvance() *big.Int {
	if op.MaxFeePerUnit == nil {
		return new(big.Int)
	}
	return new(big.Int).Mul(op.MaxFeePerUnit, new(big.Int).SetUint64(op.GasLimit))
}
