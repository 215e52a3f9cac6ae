package services

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"sponsor-backend/internal/clients"
	"sponsor-backend/internal/metrics"
	"sponsor-backend/internal/models"
	"sponsor-backend/internal/repository"
	"sponsor-backend/internal/scratch"
	"sponsor-backend/internal/utils"
	"sponsor-backend/internal/validation"
)

// Publisher is the event fan-out settlement feeds. Both legs are
// best-effort.
type Publisher interface {
	PublishSponsorshipSettled(event *clients.SponsorshipSettledEvent) error
}

// SettlementService closes out a previously validated operation: it takes
// the scratch facts, computes the refund, best-effort delivers it, and
// persists the sponsorship record. Settlement never fails the operation;
// every internal error is absorbed into the record.
type SettlementService struct {
	scratch   *scratch.Store
	records   repository.SponsorshipRepository
	refunds   clients.RefundSender
	publisher Publisher
	push      *WebSocketPushService

	// allowance is the gas charged on top of actual cost for the
	// settlement leg itself.
	allowance uint64
}

func NewSettlementService(
	store *scratch.Store,
	records repository.SponsorshipRepository,
	refunds clients.RefundSender,
	publisher Publisher,
	push *WebSocketPushService,
	allowance uint64,
) *SettlementService {
	return &SettlementService{
		scratch:   store,
		records:   records,
		refunds:   refunds,
		publisher: publisher,
		push:      push,
		allowance: allowance,
	}
}

// Refund computes max(0, promisedFee - (actualCost + allowance*feePerUnit)).
func (s *SettlementService) Refund(promisedFee, actualCost, actualFeePerUnit *big.Int) *big.Int {
	total := new(big.Int).Mul(new(big.Int).SetUint64(s.allowance), actualFeePerUnit)
	total.Add(total, actualCost)
	return utils.BigMaxZero(new(big.Int).Sub(promisedFee, total))
}

// Settle finalizes one operation. opReverted reports whether the downstream
// withdrawal reverted after validation; in that case the sponsor keeps the
// full promised fee and no refund leg runs.
func (s *SettlementService) Settle(ctx context.Context, opHash common.Hash, opReverted bool, actualCost, actualFeePerUnit *big.Int) *models.SponsorshipRecord {
	record := &models.SponsorshipRecord{
		ID:                uuid.NewString(),
		OperationHash:     opHash.Hex(),
		Settled:           true,
		OperationReverted: opReverted,
		ActualCost:        actualCost.String(),
		WithdrawnValue:    "0",
		PromisedFee:       "0",
		TotalCost:         "0",
		Refund:            "0",
	}

	facts, ok := s.scratch.Take(opHash)
	metrics.ScratchSlotsInFlight.Set(float64(s.scratch.Len()))
	if !ok {
		// Slot already consumed or never written: nothing to pay out.
		log.WithField("op", opHash.Hex()).Warn("Settle called without scratch facts")
		s.persist(ctx, record)
		return record
	}

	promisedFee := validation.ExpectedFee(facts.WithdrawnValue, facts.FeeBPS)
	totalCost := new(big.Int).Mul(new(big.Int).SetUint64(s.allowance), actualFeePerUnit)
	totalCost.Add(totalCost, actualCost)

	record.Recipient = strings.ToLower(facts.Recipient.Hex())
	record.WithdrawnValue = facts.WithdrawnValue.String()
	record.FeeBPS = facts.FeeBPS.Int64()
	record.PromisedFee = promisedFee.String()
	record.TotalCost = totalCost.String()

	outcome := "succeeded"
	if opReverted {
		outcome = "reverted"
	}
	metrics.SettlementsTotal.WithLabelValues(outcome).Inc()

	if !opReverted {
		refund := s.Refund(promisedFee, actualCost, actualFeePerUnit)
		record.Refund = refund.String()
		if refund.Sign() > 0 {
			s.deliverRefund(ctx, record, facts.Recipient, refund)
		}
	}

	s.persist(ctx, record)
	s.announce(record)

	log.WithFields(log.Fields{
		"op":        opHash.Hex(),
		"recipient": record.Recipient,
		"promised":  record.PromisedFee,
		"cost":      record.TotalCost,
		"refund":    record.Refund,
		"reverted":  opReverted,
	}).Info("Operation settled")
	return record
}

// deliverRefund attempts the transfer; failure is recorded, never raised.
func (s *SettlementService) deliverRefund(ctx context.Context, record *models.SponsorshipRecord, to common.Address, amount *big.Int) {
	if s.refunds == nil {
		record.RefundError = "refund sender not configured"
		metrics.RefundsTotal.WithLabelValues("skipped").Inc()
		return
	}
	txHash, err := s.refunds.SendRefund(ctx, to, amount)
	if err != nil {
		record.RefundError = err.Error()
		metrics.RefundsTotal.WithLabelValues("failed").Inc()
		log.WithError(err).WithFields(log.Fields{
			"op":     record.OperationHash,
			"amount": amount.String(),
		}).Warn("Refund delivery failed")
		return
	}
	record.RefundDelivered = true
	record.RefundTxHash = txHash
	metrics.RefundsTotal.WithLabelValues("delivered").Inc()
}

func (s *SettlementService) persist(ctx context.Context, record *models.SponsorshipRecord) {
	if s.records == nil {
		return
	}
	if err := s.records.Create(ctx, record); err != nil {
		log.WithError(err).WithField("op", record.OperationHash).
			Error("Failed to persist sponsorship record")
	}
}

func (s *SettlementService) announce(record *models.SponsorshipRecord) {
	event := &clients.SponsorshipSettledEvent{
		OperationHash:     record.OperationHash,
		Recipient:         record.Recipient,
		WithdrawnValue:    record.WithdrawnValue,
		PromisedFee:       record.PromisedFee,
		ActualCost:        record.ActualCost,
		Refund:            record.Refund,
		RefundDelivered:   record.RefundDelivered,
		OperationReverted: record.OperationReverted,
		Timestamp:         time.Now().Unix(),
	}
	if s.publisher != nil {
		if err := s.publisher.PublishSponsorshipSettled(event); err != nil {
			log.WithError(err).Warn("Failed to publish settlement event")
		}
	}
	if s.push != nil {
		s.push.BroadcastSettlement(event)
	}
}
