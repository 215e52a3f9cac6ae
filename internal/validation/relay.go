package validation

import (
	"bytes"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"sponsor-backend/internal/extractor"
)

// relayABIJSON is the pool entrypoint's relay method: a withdrawal request
// plus the Groth16 proof with its eight public signals.
const relayABIJSON = `[
	{"type":"function","name":"relay","inputs":[
		{"name":"withdrawal","type":"tuple","components":[
			{"name":"processooor","type":"address"},
			{"name":"data","type":"bytes"}]},
		{"name":"proof","type":"tuple","components":[
			{"name":"pA","type":"uint256[2]"},
			{"name":"pB","type":"uint256[2][2]"},
			{"name":"pC","type":"uint256[2]"},
			{"name":"pubSignals","type":"uint256[8]"}]}]}
]`

type relayProofTuple struct {
	PA         [2]*big.Int    `abi:"pA"`
	PB         [2][2]*big.Int `abi:"pB"`
	PC         [2]*big.Int    `abi:"pC"`
	PubSignals [8]*big.Int    `abi:"pubSignals"`
}

var (
	relayABI    abi.ABI
	relayMethod abi.Method
)

func init() {
	parsed, err := abi.JSON(strings.NewReader(relayABIJSON))
	if err != nil {
		panic(fmt.Sprintf("validation: relay ABI: %v", err))
	}
	relayABI = parsed
	relayMethod = relayABI.Methods["relay"]
}

// DecodeRelayCall splits the inner pool call into the withdrawal request and
// proof. Failures map onto the extractor's payload errors since they surface
// through the same rejection path.
func DecodeRelayCall(data []byte) (*WithdrawalRequest, *Proof, error) {
	if len(data) < 4 {
		return nil, nil, extractor.ErrUnrecognizedSelector
	}
	if !bytes.Equal(data[:4], relayMethod.ID) {
		return nil, nil, fmt.Errorf("%w: inner selector 0x%x", extractor.ErrUnrecognizedSelector, data[:4])
	}
	args, err := relayMethod.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", extractor.ErrMalformedPayload, err)
	}

	wRaw := abi.ConvertType(args[0], new(withdrawalTuple)).(*withdrawalTuple)
	pRaw := abi.ConvertType(args[1], new(relayProofTuple)).(*relayProofTuple)

	withdrawal := &WithdrawalRequest{
		Processor: wRaw.Processor,
		Data:      bytes.Clone(wRaw.Data),
	}
	proof := &Proof{
		A:             pRaw.PA,
		B:             pRaw.PB,
		C:             pRaw.PC,
		PublicSignals: pRaw.PubSignals,
	}
	return withdrawal, proof, nil
}

// EncodeRelayCall packs a withdrawal and proof into relay calldata.
func EncodeRelayCall(w *WithdrawalRequest, p *Proof) ([]byte, error) {
	return relayABI.Pack("relay",
		withdrawalTuple{Processor: w.Processor, Data: w.Data},
		relayProofTuple{PA: p.A, PB: p.B, PC: p.C, PubSignals: p.PublicSignals},
	)
}

// relayDataArgs is the fee-term layout inside WithdrawalRequest.Data:
// abi.encode(recipient, feeRecipient, relayFeeBPS).
var relayDataArgs abi.Arguments

func init() {
	addressType, err := abi.NewType("address", "", nil)
	if err != nil {
		panic(fmt.Sprintf("validation: address type: %v", err))
	}
	uint256Type, err := abi.NewType("uint256", "", nil)
	if err != nil {
		panic(fmt.Sprintf("validation: uint256 type: %v", err))
	}
	relayDataArgs = abi.Arguments{
		{Name: "recipient", Type: addressType},
		{Name: "feeRecipient", Type: addressType},
		{Name: "relayFeeBPS", Type: uint256Type},
	}
}

// DecodeRelayData unpacks the fee terms carried inside a withdrawal request.
func DecodeRelayData(data []byte) (*RelayData, error) {
	vals, err := relayDataArgs.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("decode relay data: %w", err)
	}
	recipient, ok1 := vals[0].(common.Address)
	feeRecipient, ok2 := vals[1].(common.Address)
	feeBPS, ok3 := vals[2].(*big.Int)
	if !ok1 || !ok2 || !ok3 {
		return nil, fmt.Errorf("decode relay data: unexpected types")
	}
	return &RelayData{
		Recipient:    recipient,
		FeeRecipient: feeRecipient,
		FeeBPS:       feeBPS,
	}, nil
}

// EncodeRelayData packs fee terms into withdrawal request data.
func EncodeRelayData(d *RelayData) ([]byte, error) {
	return relayDataArgs.Pack(d.Recipient, d.FeeRecipient, d.FeeBPS)
}
