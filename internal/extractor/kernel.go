package extractor

import (
	"bytes"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// VariantKernelAccount covers ZeroDev Kernel v2 accounts:
// execute(address,uint256,bytes,uint8) with an operation discriminator, and
// executeBatch((address,uint256,bytes)[]) taking a Call tuple array.
const VariantKernelAccount = "kernel"

const kernelABIJSON = `[
	{"type":"function","name":"execute","inputs":[
		{"name":"to","type":"address"},
		{"name":"value","type":"uint256"},
		{"name":"data","type":"bytes"},
		{"name":"operation","type":"uint8"}]},
	{"type":"function","name":"executeBatch","inputs":[
		{"name":"calls","type":"tuple[]","components":[
			{"name":"to","type":"address"},
			{"name":"value","type":"uint256"},
			{"name":"data","type":"bytes"}]}]}
]`

// kernelOperationCall is the only operation kind a sponsored withdrawal may
// use; delegatecall wrappers are rejected as malformed.
const kernelOperationCall = 0

var kernelABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(kernelABIJSON))
	if err != nil {
		panic(fmt.Sprintf("extractor: kernel ABI: %v", err))
	}
	kernelABI = parsed
}

type kernelExtractor struct {
	pool common.Address
}

// NewKernelAccountExtractor builds the extractor for Kernel-style accounts,
// bound to the pool entrypoint address.
func NewKernelAccountExtractor(pool common.Address) Extractor {
	return &kernelExtractor{pool: pool}
}

func (e *kernelExtractor) Variant() string { return VariantKernelAccount }

func (e *kernelExtractor) Extract(callData []byte) (*InnerCall, error) {
	if len(callData) < 4 {
		return nil, ErrUnrecognizedSelector
	}
	method, err := kernelABI.MethodById(callData[:4])
	if err != nil {
		return nil, fmt.Errorf("%w: 0x%x", ErrUnrecognizedSelector, callData[:4])
	}
	args, err := method.Inputs.Unpack(callData[4:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	var call *InnerCall
	switch method.Name {
	case "execute":
		to, ok1 := args[0].(common.Address)
		value, ok2 := args[1].(*big.Int)
		data, ok3 := args[2].([]byte)
		op, ok4 := args[3].(uint8)
		if !ok1 || !ok2 || !ok3 || !ok4 {
			return nil, ErrMalformedPayload
		}
		if op != kernelOperationCall {
			return nil, fmt.Errorf("%w: operation %d", ErrMalformedPayload, op)
		}
		call = &InnerCall{Target: to, Value: value, Data: data}

	case "executeBatch":
		calls, ok := args[0].([]struct {
			To    common.Address `json:"to"`
			Value *big.Int       `json:"value"`
			Data  []byte         `json:"data"`
		})
		if !ok {
			return nil, ErrMalformedPayload
		}
		if len(calls) == 0 {
			return nil, ErrEmptyBatch
		}
		if len(calls) > 1 {
			return nil, fmt.Errorf("%w: %d calls", ErrMultipleCalls, len(calls))
		}
		call = &InnerCall{Target: calls[0].To, Value: calls[0].Value, Data: calls[0].Data}

	default:
		return nil, fmt.Errorf("%w: 0x%x", ErrUnrecognizedSelector, callData[:4])
	}

	if err := checkInner(e.pool, call); err != nil {
		return nil, err
	}
	call.Data = bytes.Clone(call.Data)
	return call, nil
}
