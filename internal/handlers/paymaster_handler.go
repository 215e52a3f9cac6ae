package handlers

import (
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"sponsor-backend/internal/services"
	"sponsor-backend/internal/types"
)

// PaymasterHandler exposes the validate/settle phases over HTTP.
type PaymasterHandler struct {
	validation *services.ValidationService
	settlement *services.SettlementService
}

func NewPaymasterHandler(validation *services.ValidationService, settlement *services.SettlementService) *PaymasterHandler {
	return &PaymasterHandler{validation: validation, settlement: settlement}
}

// ValidateRequest is one sponsorship candidate. All byte fields are 0x-hex;
// amounts are decimal strings.
type ValidateRequest struct {
	Sender        string `json:"sender" binding:"required"`
	InitCode      string `json:"init_code,omitempty"`
	CallData      string `json:"call_data" binding:"required"`
	Factory       string `json:"factory,omitempty"`
	MaxFeePerUnit string `json:"max_fee_per_unit" binding:"required"`
	GasLimit      uint64 `json:"gas_limit" binding:"required"`
	Signature     string `json:"signature,omitempty"`
	OperationHash string `json:"operation_hash,omitempty"` // derived from the payload when absent
}

// SettleRequest closes out a validated operation.
type SettleRequest struct {
	OperationHash     string `json:"operation_hash" binding:"required"`
	OperationReverted bool   `json:"operation_reverted"`
	ActualCost        string `json:"actual_cost" binding:"required"`
	ActualFeePerUnit  string `json:"actual_fee_per_unit" binding:"required"`
}

// ValidateHandler runs the acceptance pipeline
// POST /api/v1/paymaster/validate
func (h *PaymasterHandler) ValidateHandler(c *gin.Context) {
	var req ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	op, opHash, err := h.decodeOperation(&req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	result, err := h.validation.Validate(c.Request.Context(), op, opHash)
	if err != nil {
		log.WithError(err).WithField("op", opHash.Hex()).Error("Validation failed with infrastructure error")
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "validation temporarily unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "result": result})
}

// SettleHandler finalizes a validated operation
// POST /api/v1/paymaster/settle
func (h *PaymasterHandler) SettleHandler(c *gin.Context) {
	var req SettleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	actualCost, ok := new(big.Int).SetString(req.ActualCost, 10)
	if !ok || actualCost.Sign() < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid actual_cost"})
		return
	}
	feePerUnit, ok := new(big.Int).SetString(req.ActualFeePerUnit, 10)
	if !ok || feePerUnit.Sign() < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid actual_fee_per_unit"})
		return
	}

	record := h.settlement.Settle(
		c.Request.Context(),
		common.HexToHash(req.OperationHash),
		req.OperationReverted,
		actualCost,
		feePerUnit,
	)
	c.JSON(http.StatusOK, gin.H{"success": true, "record": record})
}

func (h *PaymasterHandler) decodeOperation(req *ValidateRequest) (*types.Operation, common.Hash, error) {
	callData, err := hexutil.Decode(req.CallData)
	if err != nil {
		return nil, common.Hash{}, err
	}
	var initCode []byte
	if req.InitCode != "" {
		if initCode, err = hexutil.Decode(req.InitCode); err != nil {
			return nil, common.Hash{}, err
		}
	}
	var signature []byte
	if req.Signature != "" {
		if signature, err = hexutil.Decode(req.Signature); err != nil {
			return nil, common.Hash{}, err
		}
	}
	maxFee, ok := new(big.Int).SetString(req.MaxFeePerUnit, 10)
	if !ok {
		return nil, common.Hash{}, hexutil.ErrSyntax
	}

	op := &types.Operation{
		Sender:        common.HexToAddress(req.Sender),
		InitCode:      initCode,
		CallData:      callData,
		MaxFeePerUnit: maxFee,
		GasLimit:      req.GasLimit,
		Signature:     signature,
	}
	if req.Factory != "" {
		op.Factory = common.HexToAddress(req.Factory)
	}

	var opHash common.Hash
	if req.OperationHash != "" {
		opHash = common.HexToHash(req.OperationHash)
	} else {
		opHash = hashOperation(op)
	}
	return op, opHash, nil
}

// hashOperation derives a stable operation identity from the fields the
// sponsor commits to.
func hashOperation(op *types.Operation) common.Hash {
	var gas [8]byte
	for i := 0; i < 8; i++ {
		gas[7-i] = byte(op.GasLimit >> (8 * i))
	}
	return crypto.Keccak256Hash(
		op.Sender.Bytes(),
		crypto.Keccak256(op.InitCode),
		crypto.Keccak256(op.CallData),
		op.MaxFeePerUnit.Bytes(),
		gas[:],
	)
}
