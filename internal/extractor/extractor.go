package extractor

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Sentinel errors surfaced as rejection reasons by the validation layer.
// Extraction failures are terminal: no downstream proof or fee checks run.
var (
	ErrUnrecognizedSelector = errors.New("call data does not start with a recognized wrapper selector")
	ErrMalformedPayload     = errors.New("wrapper payload does not decode against the declared layout")
	ErrWrongTarget          = errors.New("inner call targets an address other than the pool entrypoint")
	ErrNonzeroValue         = errors.New("inner call carries a nonzero native value")
	ErrEmptyBatch           = errors.New("batch wrapper contains no calls")
	ErrMultipleCalls        = errors.New("batch wrapper contains more than one call")
)

// InnerCall is the single pool-bound call recovered from an account wrapper.
type InnerCall struct {
	Target common.Address
	Value  *big.Int
	Data   []byte
}

// Extractor unwraps one smart-account family's execute encoding and returns
// the inner call destined for the pool entrypoint. Implementations reject
// anything that is not exactly one zero-value call to the configured pool.
type Extractor interface {
	// Variant is the stable name the factory registry binds to.
	Variant() string
	Extract(callData []byte) (*InnerCall, error)
}

// checkInner enforces the shape shared by every account family: the single
// recovered call must carry no native value and hit the pool entrypoint.
// The value check runs first, so a call wrong on both counts reports the
// nonzero value.
func checkInner(pool common.Address, call *InnerCall) error {
	if call.Value != nil && call.Value.Sign() != 0 {
		return fmt.Errorf("%w: %s", ErrNonzeroValue, call.Value.String())
	}
	if call.Target != pool {
		return fmt.Errorf("%w: got %s, want %s", ErrWrongTarget, call.Target.Hex(), pool.Hex())
	}
	return nil
}

// ByVariant returns the extractor registered under the given variant name,
// bound to the pool entrypoint every inner call must target.
func ByVariant(name string, pool common.Address) (Extractor, error) {
	switch name {
	case VariantSimpleAccount:
		return NewSimpleAccountExtractor(pool), nil
	case VariantKernelAccount:
		return NewKernelAccountExtractor(pool), nil
	default:
		return nil, fmt.Errorf("unknown extractor variant %q", name)
	}
}

// Variants lists every extractor variant the registry may bind a factory to.
func Variants() []string {
	return []string{VariantSimpleAccount, VariantKernelAccount}
}
