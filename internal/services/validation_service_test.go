package services

import (
	"context"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"sponsor-backend/internal/extractor"
	"sponsor-backend/internal/scratch"
	"sponsor-backend/internal/types"
	"sponsor-backend/internal/validation"
)

var (
	sponsorAddr   = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	recipientAddr = common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	senderAddr    = common.HexToAddress("0xdddddddddddddddddddddddddddddddddddddddd")
)

type e2eView struct {
	scope      *big.Int
	maxDepth   uint32
	knownRoots map[string]bool
	latestASP  *big.Int
	spent      map[string]bool
}

func (s *e2eView) IsKnownRoot(_ context.Context, root *big.Int) (bool, error) {
	return s.knownRoots[root.String()], nil
}
func (s *e2eView) LatestASPRoot(_ context.Context) (*big.Int, error) { return s.latestASP, nil }
func (s *e2eView) NullifierSpent(_ context.Context, h *big.Int) (bool, error) {
	return s.spent[h.String()], nil
}
func (s *e2eView) Scope(_ context.Context) (*big.Int, error)      { return s.scope, nil }
func (s *e2eView) MaxTreeDepth(_ context.Context) (uint32, error) { return s.maxDepth, nil }

type passOracle struct{}

func (passOracle) Verify(_ [2]*big.Int, _ [2][2]*big.Int, _ [2]*big.Int, _ []*big.Int) (bool, error) {
	return true, nil
}

type richBalance struct{}

func (richBalance) Available(_ context.Context) (*big.Int, error) {
	v, _ := new(big.Int).SetString("1000000000000000000", 10)
	return v, nil
}

// packExecute wraps relay calldata into a SimpleAccount execute call.
func packExecute(t *testing.T, target common.Address, inner []byte) []byte {
	t.Helper()
	const executeABI = `[{"type":"function","name":"execute","inputs":[
		{"name":"dest","type":"address"},
		{"name":"value","type":"uint256"},
		{"name":"func","type":"bytes"}]}]`
	parsed, err := abi.JSON(strings.NewReader(executeABI))
	require.NoError(t, err)
	data, err := parsed.Pack("execute", target, big.NewInt(0), inner)
	require.NoError(t, err)
	return data
}

// buildOperation assembles a fully consistent sponsored withdrawal:
// 50-ether withdrawal at 100 bps with a valid context binding.
func buildOperation(t *testing.T, view *e2eView, factory common.Address) (*types.Operation, common.Hash) {
	t.Helper()
	relayData, err := validation.EncodeRelayData(&validation.RelayData{
		Recipient:    recipientAddr,
		FeeRecipient: sponsorAddr,
		FeeBPS:       big.NewInt(100),
	})
	require.NoError(t, err)

	withdrawal := &validation.WithdrawalRequest{Processor: poolAddr, Data: relayData}
	ctxSignal, err := validation.ComputeContext(withdrawal, view.scope)
	require.NoError(t, err)

	stateRoot := big.NewInt(31337)
	view.knownRoots[stateRoot.String()] = true
	withdrawnValue, _ := new(big.Int).SetString("50000000000000000000", 10)

	proof := &validation.Proof{
		A: [2]*big.Int{big.NewInt(1), big.NewInt(2)},
		B: [2][2]*big.Int{
			{big.NewInt(3), big.NewInt(4)},
			{big.NewInt(5), big.NewInt(6)},
		},
		C: [2]*big.Int{big.NewInt(7), big.NewInt(8)},
		PublicSignals: [8]*big.Int{
			big.NewInt(9001),
			big.NewInt(55),
			withdrawnValue,
			stateRoot,
			big.NewInt(20),
			new(big.Int).Set(view.latestASP),
			big.NewInt(20),
			ctxSignal,
		},
	}

	relayCall, err := validation.EncodeRelayCall(withdrawal, proof)
	require.NoError(t, err)

	op := &types.Operation{
		Sender:        senderAddr,
		Factory:       factory,
		CallData:      packExecute(t, poolAddr, relayCall),
		MaxFeePerUnit: big.NewInt(1),
		GasLimit:      60_000,
	}
	return op, crypto.Keccak256Hash(op.CallData)
}

func e2eFixture(t *testing.T) (*ValidationService, *SettlementService, *e2eView, *scratch.Store, common.Address) {
	t.Helper()
	view := &e2eView{
		scope:      big.NewInt(777),
		maxDepth:   32,
		knownRoots: map[string]bool{},
		latestASP:  big.NewInt(4242),
		spent:      map[string]bool{},
	}
	reg := NewRegistryService(newFakeFactoryRepo(), poolAddr)
	require.NoError(t, reg.Add(context.Background(), factoryA, extractor.VariantSimpleAccount, ""))

	store := scratch.NewStore()
	pre := validation.NewPreValidator(view, passOracle{}, sponsorAddr)
	vs := NewValidationService(reg, pre, store, richBalance{})

	ss := NewSettlementService(store, &fakeSponsorshipRepo{}, &fakeRefundSender{}, nil, nil, 100)
	return vs, ss, view, store, factoryA
}

func TestEndToEndAcceptAndSettle(t *testing.T) {
	vs, ss, view, store, factory := e2eFixture(t)
	op, opHash := buildOperation(t, view, factory)

	result, err := vs.Validate(context.Background(), op, opHash)
	require.NoError(t, err)
	require.True(t, result.Accepted)
	require.Equal(t, 1, store.Len())

	// settle at 40000 cost units, fee per unit 1
	record := ss.Settle(context.Background(), opHash, false, big.NewInt(40_000), big.NewInt(1))

	// promised fee = 50e18 * 1% = 5e17, vastly above 40100 total cost
	refund, ok := new(big.Int).SetString(record.Refund, 10)
	require.True(t, ok)
	require.Positive(t, refund.Sign())
	require.Equal(t, "40100", record.TotalCost)
	require.Equal(t, recipientAddr.Hex(), common.HexToAddress(record.Recipient).Hex())
	require.Equal(t, 0, store.Len(), "scratch slot consumed")
}

func TestValidateUnknownFactory(t *testing.T) {
	vs, _, view, _, _ := e2eFixture(t)
	op, opHash := buildOperation(t, view, factoryB) // not whitelisted

	result, err := vs.Validate(context.Background(), op, opHash)
	require.NoError(t, err)
	require.False(t, result.Accepted)
	require.Equal(t, validation.ReasonUnknownFactory, result.Reason)
}

func TestValidateRejectionLeavesNoResidue(t *testing.T) {
	vs, _, view, store, factory := e2eFixture(t)
	op, opHash := buildOperation(t, view, factory)

	view.spent["55"] = true // nullifier already spent

	result, err := vs.Validate(context.Background(), op, opHash)
	require.NoError(t, err)
	require.False(t, result.Accepted)
	require.Equal(t, validation.ReasonNullifierSpent, result.Reason)
	require.Equal(t, 0, store.Len())
}

func TestValidateInsufficientCost(t *testing.T) {
	vs, _, view, _, factory := e2eFixture(t)
	op, opHash := buildOperation(t, view, factory)

	// inflate the worst-case advance beyond the 5e17 promised fee
	op.MaxFeePerUnit, _ = new(big.Int).SetString("100000000000000", 10)
	op.GasLimit = 10_000_000

	result, err := vs.Validate(context.Background(), op, opHash)
	require.NoError(t, err)
	require.False(t, result.Accepted)
	require.Equal(t, validation.ReasonInsufficientCost, result.Reason)
}
