package handlers

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"sponsor-backend/internal/repository"
	"sponsor-backend/internal/services"
)

// AdminBalanceHandler manages the pooled sponsor balance.
type AdminBalanceHandler struct {
	balance *services.BalanceService
}

func NewAdminBalanceHandler(balance *services.BalanceService) *AdminBalanceHandler {
	return &AdminBalanceHandler{balance: balance}
}

// BalanceMovementRequest credits or debits the pooled balance. Amount is a
// decimal wei string.
type BalanceMovementRequest struct {
	Amount string `json:"amount" binding:"required"`
	TxHash string `json:"tx_hash,omitempty"`
}

// GetBalanceHandler returns the current pooled balance
// GET /api/v1/admin/balance
func (h *AdminBalanceHandler) GetBalanceHandler(c *gin.Context) {
	available, err := h.balance.Available(c.Request.Context())
	if err != nil {
		log.WithError(err).Error("Failed to load pooled balance")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to load balance"})
		return
	}

	resp := gin.H{"success": true, "balance": available.String()}
	// Live chain view of the sponsor account, best-effort.
	if onChain, err := h.balance.OnChainBalance(c.Request.Context()); err != nil {
		log.WithError(err).Warn("Failed to read on-chain sponsor balance")
	} else if onChain != nil {
		resp["on_chain_balance"] = onChain.String()
	}
	c.JSON(http.StatusOK, resp)
}

// DepositHandler credits the pooled balance
// POST /api/v1/admin/balance/deposit
func (h *AdminBalanceHandler) DepositHandler(c *gin.Context) {
	h.move(c, h.balance.Deposit)
}

// WithdrawHandler debits the pooled balance
// POST /api/v1/admin/balance/withdraw
func (h *AdminBalanceHandler) WithdrawHandler(c *gin.Context) {
	h.move(c, h.balance.Withdraw)
}

// MovementsHandler lists recent balance movements
// GET /api/v1/admin/balance/movements?limit=50
func (h *AdminBalanceHandler) MovementsHandler(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	movements, err := h.balance.Movements(c.Request.Context(), limit)
	if err != nil {
		log.WithError(err).Error("Failed to load balance movements")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to load movements"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "movements": movements})
}

func (h *AdminBalanceHandler) move(
	c *gin.Context,
	apply func(ctx context.Context, amount *big.Int, actor, txHash string) (*big.Int, error),
) {
	var req BalanceMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	amount, ok := new(big.Int).SetString(req.Amount, 10)
	if !ok || amount.Sign() <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "amount must be a positive decimal wei string"})
		return
	}

	actor := c.GetString("admin_username")
	if actor == "" {
		actor = "admin"
	}

	newBalance, err := apply(c.Request.Context(), amount, actor, req.TxHash)
	if err != nil {
		if errors.Is(err, repository.ErrInsufficientBalance) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"success": false, "error": "insufficient pooled balance"})
			return
		}
		log.WithError(err).Error("Failed to apply balance movement")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to apply movement"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "balance": newBalance.String()})
}
