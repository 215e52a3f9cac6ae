package clients

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	log "github.com/sirupsen/logrus"
)

// refundGasLimit covers a plain native transfer.
const refundGasLimit = 21_000

// RefundSender delivers refund transfers to withdrawal recipients.
type RefundSender interface {
	SendRefund(ctx context.Context, to common.Address, amount *big.Int) (string, error)
}

// ChainRefundSender signs and submits legacy transfers from the sponsor's
// refund key.
type ChainRefundSender struct {
	client  *ethclient.Client
	key     *ecdsa.PrivateKey
	from    common.Address
	chainID *big.Int
}

func NewChainRefundSender(client *ethclient.Client, hexKey string, chainID int64) (*ChainRefundSender, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse refund key: %w", err)
	}
	from := crypto.PubkeyToAddress(key.PublicKey)
	log.WithField("address", from.Hex()).Info("Refund sender initialized")
	return &ChainRefundSender{
		client:  client,
		key:     key,
		from:    from,
		chainID: big.NewInt(chainID),
	}, nil
}

// From returns the refund account address.
func (s *ChainRefundSender) From() common.Address {
	return s.from
}

func (s *ChainRefundSender) SendRefund(ctx context.Context, to common.Address, amount *big.Int) (string, error) {
	nonce, err := s.client.PendingNonceAt(ctx, s.from)
	if err != nil {
		return "", fmt.Errorf("fetch nonce: %w", err)
	}
	gasPrice, err := s.client.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("suggest gas price: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    amount,
		Gas:      refundGasLimit,
		GasPrice: gasPrice,
	})
	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(s.chainID), s.key)
	if err != nil {
		return "", fmt.Errorf("sign refund: %w", err)
	}
	if err := s.client.SendTransaction(ctx, signedTx); err != nil {
		return "", fmt.Errorf("send refund: %w", err)
	}

	log.WithFields(log.Fields{
		"to":     to.Hex(),
		"amount": amount.String(),
		"tx":     signedTx.Hash().Hex(),
	}).Info("Refund submitted")
	return signedTx.Hash().Hex(), nil
}
