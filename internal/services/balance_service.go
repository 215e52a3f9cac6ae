package services

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"

	"sponsor-backend/internal/metrics"
	"sponsor-backend/internal/models"
	"sponsor-backend/internal/repository"
)

// ChainBalanceReader reads the sponsor account's native balance.
// *ethclient.Client satisfies it.
type ChainBalanceReader interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// BalanceService owns the sponsor's pooled fee balance. Deposits and
// withdrawals are admin-gated; validation only reads the total.
type BalanceService struct {
	repo    repository.BalanceRepository
	chain   ChainBalanceReader
	sponsor common.Address
}

func NewBalanceService(repo repository.BalanceRepository, chain ChainBalanceReader, sponsor common.Address) *BalanceService {
	return &BalanceService{repo: repo, chain: chain, sponsor: sponsor}
}

func (s *BalanceService) Available(ctx context.Context) (*big.Int, error) {
	return s.repo.Get(ctx)
}

func (s *BalanceService) Deposit(ctx context.Context, amount *big.Int, actor, txHash string) (*big.Int, error) {
	return s.apply(ctx, models.BalanceDeposit, amount, actor, txHash)
}

func (s *BalanceService) Withdraw(ctx context.Context, amount *big.Int, actor, txHash string) (*big.Int, error) {
	return s.apply(ctx, models.BalanceWithdraw, amount, actor, txHash)
}

func (s *BalanceService) apply(ctx context.Context, direction models.BalanceDirection, amount *big.Int, actor, txHash string) (*big.Int, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}
	after, err := s.repo.Apply(ctx, &models.BalanceMovement{
		Direction: direction,
		Amount:    amount.String(),
		Actor:     actor,
		TxHash:    txHash,
	})
	if err != nil {
		return nil, err
	}
	balanceFloat, _ := new(big.Float).SetInt(after).Float64()
	metrics.PooledBalanceWei.Set(balanceFloat)
	log.WithFields(log.Fields{
		"direction": direction,
		"amount":    amount.String(),
		"balance":   after.String(),
		"actor":     actor,
	}).Info("Pooled balance updated")
	return after, nil
}

func (s *BalanceService) Movements(ctx context.Context, limit int) ([]*models.BalanceMovement, error) {
	return s.repo.Movements(ctx, limit)
}

// OnChainBalance reads the sponsor account's live native balance. Returns
// nil, nil when no chain reader is wired.
func (s *BalanceService) OnChainBalance(ctx context.Context) (*big.Int, error) {
	if s.chain == nil {
		return nil, nil
	}
	return s.chain.BalanceAt(ctx, s.sponsor, nil)
}
