package validation

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

var (
	sponsorAddr   = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	recipientAddr = common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	processorAddr = common.HexToAddress("0xcccccccccccccccccccccccccccccccccccccccc")
)

type stubView struct {
	scope      *big.Int
	maxDepth   uint32
	knownRoots map[string]bool
	latestASP  *big.Int
	spent      map[string]bool
}

func newStubView() *stubView {
	return &stubView{
		scope:      big.NewInt(777),
		maxDepth:   32,
		knownRoots: map[string]bool{},
		latestASP:  big.NewInt(4242),
		spent:      map[string]bool{},
	}
}

func (s *stubView) IsKnownRoot(_ context.Context, root *big.Int) (bool, error) {
	return s.knownRoots[root.String()], nil
}
func (s *stubView) LatestASPRoot(_ context.Context) (*big.Int, error) { return s.latestASP, nil }
func (s *stubView) NullifierSpent(_ context.Context, h *big.Int) (bool, error) {
	return s.spent[h.String()], nil
}
func (s *stubView) Scope(_ context.Context) (*big.Int, error)      { return s.scope, nil }
func (s *stubView) MaxTreeDepth(_ context.Context) (uint32, error) { return s.maxDepth, nil }

type stubOracle struct {
	ok  bool
	err error
}

func (s *stubOracle) Verify(_ [2]*big.Int, _ [2][2]*big.Int, _ [2]*big.Int, _ []*big.Int) (bool, error) {
	return s.ok, s.err
}

// buildWithdrawal assembles a request/proof pair whose context signal is
// consistent, against the given view.
func buildWithdrawal(t *testing.T, view *stubView, feeBPS int64) (*WithdrawalRequest, *Proof) {
	t.Helper()
	data, err := EncodeRelayData(&RelayData{
		Recipient:    recipientAddr,
		FeeRecipient: sponsorAddr,
		FeeBPS:       big.NewInt(feeBPS),
	})
	require.NoError(t, err)

	w := &WithdrawalRequest{Processor: processorAddr, Data: data}
	ctxSignal, err := ComputeContext(w, view.scope)
	require.NoError(t, err)

	stateRoot := big.NewInt(1001)
	view.knownRoots[stateRoot.String()] = true

	proof := &Proof{
		A: [2]*big.Int{big.NewInt(1), big.NewInt(2)},
		B: [2][2]*big.Int{
			{big.NewInt(3), big.NewInt(4)},
			{big.NewInt(5), big.NewInt(6)},
		},
		C: [2]*big.Int{big.NewInt(7), big.NewInt(8)},
		PublicSignals: [8]*big.Int{
			big.NewInt(9001),                 // new commitment hash
			big.NewInt(55),                   // existing nullifier hash
			big.NewInt(50),                   // withdrawn value
			stateRoot,                        // state root
			big.NewInt(20),                   // state tree depth
			new(big.Int).Set(view.latestASP), // asp root
			big.NewInt(20),                   // asp tree depth
			ctxSignal,                        // context
		},
	}
	return w, proof
}

func TestValidateAccepts(t *testing.T) {
	view := newStubView()
	v := NewPreValidator(view, &stubOracle{ok: true}, sponsorAddr)
	w, proof := buildWithdrawal(t, view, 100)

	facts, err := v.Validate(context.Background(), w, proof)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(50), facts.WithdrawnValue)
	require.Equal(t, big.NewInt(100), facts.FeeBPS)
	require.Equal(t, recipientAddr, facts.Recipient)
}

func TestValidateWrongFeeRecipient(t *testing.T) {
	view := newStubView()
	v := NewPreValidator(view, &stubOracle{ok: true}, sponsorAddr)
	w, proof := buildWithdrawal(t, view, 100)

	data, err := EncodeRelayData(&RelayData{
		Recipient:    recipientAddr,
		FeeRecipient: recipientAddr, // not the sponsor
		FeeBPS:       big.NewInt(100),
	})
	require.NoError(t, err)
	w.Data = data

	_, err = v.Validate(context.Background(), w, proof)
	require.Equal(t, ReasonWrongFeeRecipient, ReasonOf(err))
}

func TestValidateContextMismatch(t *testing.T) {
	view := newStubView()
	v := NewPreValidator(view, &stubOracle{ok: true}, sponsorAddr)
	w, proof := buildWithdrawal(t, view, 100)

	// Re-point the fee to a different recipient without re-deriving the
	// context: the proof no longer binds.
	data, err := EncodeRelayData(&RelayData{
		Recipient:    processorAddr,
		FeeRecipient: sponsorAddr,
		FeeBPS:       big.NewInt(100),
	})
	require.NoError(t, err)
	w.Data = data

	_, err = v.Validate(context.Background(), w, proof)
	require.Equal(t, ReasonContextMismatch, ReasonOf(err))
}

func TestValidateDepthExceeded(t *testing.T) {
	view := newStubView()
	v := NewPreValidator(view, &stubOracle{ok: true}, sponsorAddr)
	w, proof := buildWithdrawal(t, view, 100)

	proof.PublicSignals[4] = big.NewInt(33) // above maxDepth=32

	_, err := v.Validate(context.Background(), w, proof)
	require.Equal(t, ReasonDepthExceeded, ReasonOf(err))
}

func TestValidateUnknownRoot(t *testing.T) {
	view := newStubView()
	v := NewPreValidator(view, &stubOracle{ok: true}, sponsorAddr)
	w, proof := buildWithdrawal(t, view, 100)

	view.knownRoots = map[string]bool{}

	_, err := v.Validate(context.Background(), w, proof)
	require.Equal(t, ReasonUnknownRoot, ReasonOf(err))
}

func TestValidateStaleASPRoot(t *testing.T) {
	view := newStubView()
	v := NewPreValidator(view, &stubOracle{ok: true}, sponsorAddr)
	w, proof := buildWithdrawal(t, view, 100)

	view.latestASP = big.NewInt(5000) // registry moved on

	_, err := v.Validate(context.Background(), w, proof)
	require.Equal(t, ReasonStaleApprovedRoot, ReasonOf(err))
}

func TestValidateNullifierSpent(t *testing.T) {
	view := newStubView()
	v := NewPreValidator(view, &stubOracle{ok: true}, sponsorAddr)
	w, proof := buildWithdrawal(t, view, 100)

	view.spent[proof.ExistingNullifierHash().String()] = true

	_, err := v.Validate(context.Background(), w, proof)
	require.Equal(t, ReasonNullifierSpent, ReasonOf(err))
}

func TestValidateInvalidProof(t *testing.T) {
	view := newStubView()
	v := NewPreValidator(view, &stubOracle{ok: false}, sponsorAddr)
	w, proof := buildWithdrawal(t, view, 100)

	_, err := v.Validate(context.Background(), w, proof)
	require.Equal(t, ReasonInvalidProof, ReasonOf(err))
}

func TestValidateZeroFee(t *testing.T) {
	view := newStubView()
	v := NewPreValidator(view, &stubOracle{ok: true}, sponsorAddr)
	w, proof := buildWithdrawal(t, view, 0)

	_, err := v.Validate(context.Background(), w, proof)
	require.Equal(t, ReasonZeroFee, ReasonOf(err))
}

func TestRelayCallRoundTrip(t *testing.T) {
	view := newStubView()
	w, proof := buildWithdrawal(t, view, 100)

	data, err := EncodeRelayCall(w, proof)
	require.NoError(t, err)

	gotW, gotProof, err := DecodeRelayCall(data)
	require.NoError(t, err)
	require.Equal(t, w.Processor, gotW.Processor)
	require.Equal(t, w.Data, gotW.Data)
	require.Equal(t, proof.PublicSignals, gotProof.PublicSignals)
	require.Equal(t, proof.A, gotProof.A)
	require.Equal(t, proof.B, gotProof.B)
}

func TestDecodeRelayCallRejections(t *testing.T) {
	_, _, err := DecodeRelayCall([]byte{0x01, 0x02})
	require.Error(t, err)

	_, _, err = DecodeRelayCall([]byte{0x01, 0x02, 0x03, 0x04, 0x05})
	require.Error(t, err)
}
