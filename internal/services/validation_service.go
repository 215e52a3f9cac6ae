package services

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"

	"sponsor-backend/internal/extractor"
	"sponsor-backend/internal/metrics"
	"sponsor-backend/internal/scratch"
	"sponsor-backend/internal/types"
	"sponsor-backend/internal/validation"
)

// ValidationResult is the outcome handed back to the caller: the verdict,
// the rejection reason when rejected, and the scratch context linking a
// later settle call to the facts this validation produced.
type ValidationResult struct {
	Accepted       bool              `json:"accepted"`
	Reason         validation.Reason `json:"reason,omitempty"`
	OperationHash  string            `json:"operation_hash"`
	WithdrawnValue string            `json:"withdrawn_value,omitempty"`
	FeeBPS         int64             `json:"fee_bps,omitempty"`
	Recipient      string            `json:"recipient,omitempty"`
}

// BalanceReader is the pooled-balance view the validator consults. The
// balance itself is owned by the balance service.
type BalanceReader interface {
	Available(ctx context.Context) (*big.Int, error)
}

// ValidationService runs the full acceptance pipeline for one operation:
// factory lookup, call unwrapping, relay decoding, the pre-validator and
// the economic gate, then parks the facts for settlement.
type ValidationService struct {
	registry *RegistryService
	pre      *validation.PreValidator
	scratch  *scratch.Store
	balance  BalanceReader
}

func NewValidationService(registry *RegistryService, pre *validation.PreValidator, store *scratch.Store, balance BalanceReader) *ValidationService {
	return &ValidationService{
		registry: registry,
		pre:      pre,
		scratch:  store,
		balance:  balance,
	}
}

// Validate runs the pipeline. A RejectionError is returned for every
// deterministic refusal; any other error is an infrastructure failure the
// caller may retry.
func (s *ValidationService) Validate(ctx context.Context, op *types.Operation, opHash common.Hash) (*ValidationResult, error) {
	start := time.Now()
	result, err := s.validate(ctx, op, opHash)
	metrics.ValidationDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		reason := validation.ReasonOf(err)
		if reason == "" {
			return nil, err
		}
		metrics.ValidationsTotal.WithLabelValues("rejected").Inc()
		metrics.ValidationRejections.WithLabelValues(string(reason)).Inc()
		log.WithFields(log.Fields{
			"op":     opHash.Hex(),
			"sender": op.Sender.Hex(),
			"reason": reason,
		}).Info("Operation rejected")
		return &ValidationResult{
			Accepted:      false,
			Reason:        reason,
			OperationHash: opHash.Hex(),
		}, nil
	}

	metrics.ValidationsTotal.WithLabelValues("accepted").Inc()
	metrics.ScratchSlotsInFlight.Set(float64(s.scratch.Len()))
	return result, nil
}

func (s *ValidationService) validate(ctx context.Context, op *types.Operation, opHash common.Hash) (*ValidationResult, error) {
	factory, err := op.ResolveFactory()
	if err != nil {
		return nil, validation.Reject(validation.ReasonUnknownFactory, err)
	}
	ex, err := s.registry.ExtractorFor(factory)
	if err != nil {
		return nil, validation.Reject(validation.ReasonUnknownFactory, err)
	}

	inner, err := ex.Extract(op.CallData)
	if err != nil {
		return nil, validation.Reject(extractionReason(err), err)
	}

	withdrawal, proof, err := validation.DecodeRelayCall(inner.Data)
	if err != nil {
		return nil, validation.Reject(extractionReason(err), err)
	}

	facts, err := s.pre.Validate(ctx, withdrawal, proof)
	if err != nil {
		return nil, err
	}

	maxAdvance := op.MaxAdvance()
	if err := validation.CheckBudget(facts, maxAdvance); err != nil {
		return nil, err
	}

	// The advance comes out of the pooled fee balance; refuse work the
	// pool cannot cover.
	if s.balance != nil {
		available, err := s.balance.Available(ctx)
		if err != nil {
			return nil, err
		}
		if available.Cmp(maxAdvance) < 0 {
			return nil, validation.Reject(validation.ReasonBalanceExhausted, nil)
		}
	}

	if err := s.scratch.Put(opHash, facts); err != nil {
		if errors.Is(err, scratch.ErrAlreadyWritten) {
			return nil, validation.Reject(validation.ReasonMalformedPayload, err)
		}
		return nil, err
	}

	return &ValidationResult{
		Accepted:       true,
		OperationHash:  opHash.Hex(),
		WithdrawnValue: facts.WithdrawnValue.String(),
		FeeBPS:         facts.FeeBPS.Int64(),
		Recipient:      strings.ToLower(facts.Recipient.Hex()),
	}, nil
}

// extractionReason maps extractor sentinel errors onto rejection reasons.
func extractionReason(err error) validation.Reason {
	switch {
	case errors.Is(err, extractor.ErrUnrecognizedSelector):
		return validation.ReasonUnrecognizedSelector
	case errors.Is(err, extractor.ErrWrongTarget):
		return validation.ReasonWrongTarget
	case errors.Is(err, extractor.ErrNonzeroValue):
		return validation.ReasonNonzeroValue
	case errors.Is(err, extractor.ErrEmptyBatch):
		return validation.ReasonEmptyBatch
	case errors.Is(err, extractor.ErrMultipleCalls):
		return validation.ReasonMultipleCalls
	default:
		return validation.ReasonMalformedPayload
	}
}
