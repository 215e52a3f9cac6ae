package extractor

import (
	"bytes"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// VariantSimpleAccount covers eth-infinitism reference accounts:
// execute(address,uint256,bytes) and executeBatch(address[],uint256[],bytes[]).
const VariantSimpleAccount = "simple-account"

const simpleAccountABIJSON = `[
	{"type":"function","name":"execute","inputs":[
		{"name":"dest","type":"address"},
		{"name":"value","type":"uint256"},
		{"name":"func","type":"bytes"}]},
	{"type":"function","name":"executeBatch","inputs":[
		{"name":"dest","type":"address[]"},
		{"name":"value","type":"uint256[]"},
		{"name":"func","type":"bytes[]"}]}
]`

var simpleAccountABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(simpleAccountABIJSON))
	if err != nil {
		panic(fmt.Sprintf("extractor: simple account ABI: %v", err))
	}
	simpleAccountABI = parsed
}

type simpleAccountExtractor struct {
	pool common.Address
}

// NewSimpleAccountExtractor builds the extractor for the SimpleAccount
// wrapper family, bound to the pool entrypoint address.
func NewSimpleAccountExtractor(pool common.Address) Extractor {
	return &simpleAccountExtractor{pool: pool}
}

func (e *simpleAccountExtractor) Variant() string { return VariantSimpleAccount }

func (e *simpleAccountExtractor) Extract(callData []byte) (*InnerCall, error) {
	if len(callData) < 4 {
		return nil, ErrUnrecognizedSelector
	}
	method, err := simpleAccountABI.MethodById(callData[:4])
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
		dest, ok1 := args[0].(common.Address)
		value, ok2 := args[1].(*big.Int)
		data, ok3 := args[2].([]byte)
		if !ok1 || !ok2 || !ok3 {
			return nil, ErrMalformedPayload
		}
		call = &InnerCall{Target: dest, Value: value, Data: data}

	case "executeBatch":
		dests, ok1 := args[0].([]common.Address)
		values, ok2 := args[1].([]*big.Int)
		datas, ok3 := args[2].([][]byte)
		if !ok1 || !ok2 || !ok3 {
			return nil, ErrMalformedPayload
		}
		if len(dests) != len(values) || len(dests) != len(datas) {
			return nil, fmt.Errorf("%w: batch array lengths disagree", ErrMalformedPayload)
		}
		if len(dests) == 0 {
			return nil, ErrEmptyBatch
		}
		if len(dests) > 1 {
			return nil, fmt.Errorf("%w: %d calls", ErrMultipleCalls, len(dests))
		}
		call = &InnerCall{Target: dests[0], Value: values[0], Data: datas[0]}

	default:
		return nil, fmt.Errorf("%w: 0x%x", ErrUnrecognizedSelector, callData[:4])
	}

	if err := checkInner(e.pool, call); err != nil {
		return nil, err
	}
	call.Data = bytes.Clone(call.Data)
	return call, nil
}
