package handlers

import (
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"sponsor-backend/internal/extractor"
	"sponsor-backend/internal/services"
)

// AdminRegistryHandler manages the factory allowlist. All routes sit behind
// admin JWT auth.
type AdminRegistryHandler struct {
	registry *services.RegistryService
}

func NewAdminRegistryHandler(registry *services.RegistryService) *AdminRegistryHandler {
	return &AdminRegistryHandler{registry: registry}
}

// AddFactoryRequest registers one account factory with its calldata variant.
type AddFactoryRequest struct {
	Factory string `json:"factory" binding:"required"`
	Variant string `json:"variant" binding:"required"`
	Label   string `json:"label,omitempty"`
}

// AddFactoryHandler registers a factory
// POST /api/v1/admin/registry/factories
func (h *AdminRegistryHandler) AddFactoryHandler(c *gin.Context) {
	var req AddFactoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	if !common.IsHexAddress(req.Factory) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid factory address"})
		return
	}

	err := h.registry.Add(c.Request.Context(), common.HexToAddress(req.Factory), req.Variant, req.Label)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrFactoryListed):
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": "factory already registered"})
		return
	case errors.Is(err, services.ErrUnknownVariant):
		c.JSON(http.StatusBadRequest, gin.H{
			"success":  false,
			"error":    "unknown extractor variant",
			"variants": extractor.Variants(),
		})
		return
	case errors.Is(err, services.ErrZeroFactory), errors.Is(err, services.ErrZeroExtractor):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	default:
		log.WithError(err).Error("Failed to register factory")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to register factory"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "factories": h.registry.List()})
}

// RemoveFactoryHandler unregisters a factory
// DELETE /api/v1/admin/registry/factories/:address
func (h *AdminRegistryHandler) RemoveFactoryHandler(c *gin.Context) {
	address := c.Param("address")
	if !common.IsHexAddress(address) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid factory address"})
		return
	}

	err := h.registry.Remove(c.Request.Context(), common.HexToAddress(address))
	switch {
	case err == nil:
	case errors.Is(err, services.ErrUnknownFactory):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "factory not registered"})
		return
	default:
		log.WithError(err).Error("Failed to unregister factory")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to unregister factory"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "factories": h.registry.List()})
}

// ListFactoriesHandler lists registered factories in position order
// GET /api/v1/admin/registry/factories
func (h *AdminRegistryHandler) ListFactoriesHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"factories": h.registry.List(),
		"variants":  extractor.Variants(),
	})
}
