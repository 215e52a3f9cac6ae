package validation

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// SnarkScalarField is the bn254 scalar field order. The context hash is
// reduced into it so the circuit can carry it as a public signal.
var SnarkScalarField, _ = new(big.Int).SetString(
	"21888242871839275222246405745257275088548364400416034343698204186575808495617", 10)

// withdrawalTuple mirrors the pool contract's Withdrawal struct for ABI
// encoding. The component name follows the on-chain ABI.
type withdrawalTuple struct {
	Processor common.Address `abi:"processooor"`
	Data      []byte         `abi:"data"`
}

var contextArgs abi.Arguments

func init() {
	withdrawalType, err := abi.NewType("tuple", "", []abi.ArgumentMarshaling{
		{Name: "processooor", Type: "address"},
		{Name: "data", Type: "bytes"},
	})
	if err != nil {
		panic(fmt.Sprintf("validation: withdrawal tuple type: %v", err))
	}
	uint256Type, err := abi.NewType("uint256", "", nil)
	if err != nil {
		panic(fmt.Sprintf("validation: uint256 type: %v", err))
	}
	contextArgs = abi.Arguments{{Type: withdrawalType}, {Type: uint256Type}}
}

// ComputeContext derives the context signal binding a proof to one exact
// withdrawal request under one pool scope:
// keccak256(abi.encode(withdrawal, scope)) reduced mod the snark field.
func ComputeContext(w *WithdrawalRequest, scope *big.Int) (*big.Int, error) {
	packed, err := contextArgs.Pack(
		withdrawalTuple{Processor: w.Processor, Data: w.Data},
		scope,
	)
	if err != nil {
		return nil, fmt.Errorf("encode withdrawal context: %w", err)
	}
	digest := crypto.Keccak256(packed)
	return new(big.Int).Mod(new(big.Int).SetBytes(digest), SnarkScalarField), nil
}
