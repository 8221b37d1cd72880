package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/replenishment-go/internal/service"
)

type InventoryHandler struct {
	service *service.PlanService
}

func NewInventoryHandler(service *service.PlanService) *InventoryHandler {
	return &InventoryHandler{service: service}
}

// GetExpiryBuckets reports on-hand quantity grouped by remaining shelf
// life for one (store, SKU). The optional "within" query selects the
// expiring-soon window, default 3 days.
func (h *InventoryHandler) GetExpiryBuckets(c *gin.Context) {
	storeID, skuID, ok := parseUnitPath(c)
	if !ok {
		return
	}

	withinDays := 3
	if raw := c.Query("within"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "within must be a non-negative integer"})
			return
		}
		withinDays = parsed
	}

	buckets, expiringQty, err := h.service.ExpiryBuckets(c.Request.Context(), storeID, skuID, withinDays)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"store_id":             storeID,
		"sku_id":               skuID,
		"buckets":              buckets,
		"expiring_within_days": withinDays,
		"expiring_within_qty":  expiringQty,
	})
}
