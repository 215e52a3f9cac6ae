package services

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"sponsor-backend/internal/models"
	"sponsor-backend/internal/scratch"
	"sponsor-backend/internal/validation"
)

type fakeSponsorshipRepo struct {
	records []*models.SponsorshipRecord
}

func (f *fakeSponsorshipRepo) Create(_ context.Context, r *models.SponsorshipRecord) error {
	f.records = append(f.records, r)
	return nil
}
func (f *fakeSponsorshipRepo) Update(_ context.Context, _ *models.SponsorshipRecord) error {
	return nil
}
func (f *fakeSponsorshipRepo) GetByOperationHash(_ context.Context, opHash string) (*models.SponsorshipRecord, error) {
	for _, r := range f.records {
		if r.OperationHash == opHash {
			return r, nil
		}
	}
	return nil, nil
}
func (f *fakeSponsorshipRepo) FindByRecipient(_ context.Context, _ string, _, _ int) ([]*models.SponsorshipRecord, int64, error) {
	return f.records, int64(len(f.records)), nil
}
func (f *fakeSponsorshipRepo) FindRecent(_ context.Context, _ int) ([]*models.SponsorshipRecord, error) {
	return f.records, nil
}
func (f *fakeSponsorshipRepo) Count(_ context.Context) (int64, error) {
	return int64(len(f.records)), nil
}
func (f *fakeSponsorshipRepo) CountReverted(_ context.Context) (int64, error) {
	var n int64
	for _, r := range f.records {
		if r.OperationReverted {
			n++
		}
	}
	return n, nil
}

type fakeRefundSender struct {
	fail  bool
	to    common.Address
	sent  *big.Int
	calls int
}

func (f *fakeRefundSender) SendRefund(_ context.Context, to common.Address, amount *big.Int) (string, error) {
	f.calls++
	if f.fail {
		return "", errors.New("rpc unavailable")
	}
	f.to = to
	f.sent = new(big.Int).Set(amount)
	return "0xdeadbeef", nil
}

// settlementFixture: allowance=100 gas units so with feePerUnit=1 the
// allowance cost is exactly 100.
func settlementFixture(refunds *fakeRefundSender) (*SettlementService, *scratch.Store, *fakeSponsorshipRepo) {
	store := scratch.NewStore()
	repo := &fakeSponsorshipRepo{}
	svc := NewSettlementService(store, repo, refunds, nil, nil, 100)
	return svc, store, repo
}

func putFacts(t *testing.T, store *scratch.Store, opHash common.Hash, value, feeBPS int64) {
	t.Helper()
	require.NoError(t, store.Put(opHash, &validation.Facts{
		WithdrawnValue: big.NewInt(value),
		FeeBPS:         big.NewInt(feeBPS),
		Recipient:      common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"),
	}))
}

func TestSettleRefundsSurplus(t *testing.T) {
	refunds := &fakeRefundSender{}
	svc, store, repo := settlementFixture(refunds)
	op := common.HexToHash("0x01")

	// promisedFee = 100000 * 100bps = 1000
	putFacts(t, store, op, 100_000, 100)

	record := svc.Settle(context.Background(), op, false, big.NewInt(600), big.NewInt(1))
	require.Equal(t, "1000", record.PromisedFee)
	require.Equal(t, "700", record.TotalCost)
	require.Equal(t, "300", record.Refund)
	require.True(t, record.RefundDelivered)
	require.Equal(t, big.NewInt(300), refunds.sent)
	require.Len(t, repo.records, 1)
}

func TestSettleRefundNeverNegative(t *testing.T) {
	refunds := &fakeRefundSender{}
	svc, store, _ := settlementFixture(refunds)
	op := common.HexToHash("0x02")

	// promisedFee = 50000 * 100bps = 500, cost 700+100
	putFacts(t, store, op, 50_000, 100)

	record := svc.Settle(context.Background(), op, false, big.NewInt(700), big.NewInt(1))
	require.Equal(t, "0", record.Refund)
	require.Equal(t, 0, refunds.calls, "no transfer for zero refund")
}

func TestSettleRefundFailureSwallowed(t *testing.T) {
	refunds := &fakeRefundSender{fail: true}
	svc, store, repo := settlementFixture(refunds)
	op := common.HexToHash("0x03")

	putFacts(t, store, op, 100_000, 100)

	record := svc.Settle(context.Background(), op, false, big.NewInt(600), big.NewInt(1))
	require.Equal(t, "300", record.Refund)
	require.False(t, record.RefundDelivered)
	require.Contains(t, record.RefundError, "rpc unavailable")
	require.Len(t, repo.records, 1, "failed refund still persists the record")
}

func TestSettleRevertedKeepsFee(t *testing.T) {
	refunds := &fakeRefundSender{}
	svc, store, _ := settlementFixture(refunds)
	op := common.HexToHash("0x04")

	putFacts(t, store, op, 100_000, 100)

	record := svc.Settle(context.Background(), op, true, big.NewInt(600), big.NewInt(1))
	require.True(t, record.OperationReverted)
	require.Equal(t, "0", record.Refund)
	require.Equal(t, 0, refunds.calls)
}

func TestSettleTwiceFindsNoFacts(t *testing.T) {
	refunds := &fakeRefundSender{}
	svc, store, repo := settlementFixture(refunds)
	op := common.HexToHash("0x05")

	putFacts(t, store, op, 100_000, 100)
	first := svc.Settle(context.Background(), op, false, big.NewInt(600), big.NewInt(1))
	require.Equal(t, "300", first.Refund)

	// scratch slot was consumed: the second settle pays nothing
	second := svc.Settle(context.Background(), op, false, big.NewInt(600), big.NewInt(1))
	require.Equal(t, "0", second.Refund)
	require.Equal(t, "0", second.PromisedFee)
	require.Equal(t, 1, refunds.calls)
	require.Len(t, repo.records, 2)
}

func TestRefundArithmetic(t *testing.T) {
	svc := NewSettlementService(scratch.NewStore(), nil, nil, nil, nil, 100)

	require.Equal(t, big.NewInt(300),
		svc.Refund(big.NewInt(1000), big.NewInt(600), big.NewInt(1)))
	require.Equal(t, big.NewInt(0),
		svc.Refund(big.NewInt(500), big.NewInt(700), big.NewInt(1)))
}
