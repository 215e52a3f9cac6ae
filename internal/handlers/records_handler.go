package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"sponsor-backend/internal/repository"
)

// RecordsHandler serves read-only sponsorship history.
type RecordsHandler struct {
	records repository.SponsorshipRepository
}

func NewRecordsHandler(records repository.SponsorshipRepository) *RecordsHandler {
	return &RecordsHandler{records: records}
}

// GetRecordHandler returns one record by operation hash
// GET /api/v1/records/op/:opHash
func (h *RecordsHandler) GetRecordHandler(c *gin.Context) {
	opHash := c.Param("opHash")
	if len(strings.TrimPrefix(opHash, "0x")) != 64 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid operation hash"})
		return
	}

	record, err := h.records.GetByOperationHash(c.Request.Context(), normalizeHash(opHash))
	if err != nil {
		log.WithError(err).Error("Failed to load sponsorship record")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to load record"})
		return
	}
	if record == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "record not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "record": record})
}

// ListByRecipientHandler pages a recipient's sponsorship history
// GET /api/v1/records/recipient/:address?page=1&page_size=20
func (h *RecordsHandler) ListByRecipientHandler(c *gin.Context) {
	address := c.Param("address")
	if !common.IsHexAddress(address) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid recipient address"})
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	records, total, err := h.records.FindByRecipient(
		c.Request.Context(),
		strings.ToLower(address),
		page, pageSize,
	)
	if err != nil {
		log.WithError(err).Error("Failed to query records by recipient")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to query records"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"records": records,
		"total":   total,
		"page":    page,
	})
}

// ListRecentHandler returns the newest records
// GET /api/v1/records/recent?limit=50
func (h *RecordsHandler) ListRecentHandler(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	records, err := h.records.FindRecent(c.Request.Context(), limit)
	if err != nil {
		log.WithError(err).Error("Failed to query recent records")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to query records"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "records": records})
}

// StatsHandler summarizes settled operation counts. Rejections are never
// persisted, so every counted record is a settled sponsorship.
// GET /api/v1/records/stats
func (h *RecordsHandler) StatsHandler(c *gin.Context) {
	settled, err := h.records.Count(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to count records"})
		return
	}
	reverted, err := h.records.CountReverted(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to count records"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"settled":  settled,
		"reverted": reverted,
	})
}

func normalizeHash(h string) string {
	h = strings.ToLower(h)
	if !strings.HasPrefix(h, "0x") {
		h = "0x" + h
	}
	return h
}
