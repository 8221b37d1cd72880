package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/replenishment-go/internal/domain"
	"github.com/andresuchdata/replenishment-go/internal/service"
)

type PlanHandler struct {
	service *service.PlanService
}

func NewPlanHandler(service *service.PlanService) *PlanHandler {
	return &PlanHandler{service: service}
}

// RunPlans triggers a batch planning run for the requested stores/SKUs.
// An empty body or empty filters plan every known unit.
func (h *PlanHandler) RunPlans(c *gin.Context) {
	var req domain.PlanRunRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request body: %v", err)})
			return
		}
	}

	results, summary, err := h.service.RunPlans(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	type unitStatus struct {
		StoreID int64  `json:"store_id"`
		SKUID   string `json:"sku_id"`
		Status  string `json:"status"`
		Error   string `json:"error,omitempty"`
	}
	units := make([]unitStatus, 0, len(results))
	for _, res := range results {
		u := unitStatus{
			StoreID: res.StoreID,
			SKUID:   res.SKUID,
			Status:  string(res.Status),
		}
		if res.Err != nil {
			u.Error = res.Err.Error()
		}
		units = append(units, u)
	}

	status := http.StatusOK
	if summary.Failed > 0 && summary.Completed == 0 {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, gin.H{
		"total_units": summary.TotalUnits,
		"completed":   summary.Completed,
		"failed":      summary.Failed,
		"units":       units,
	})
}

// GetPlan returns the latest plan for one (store, SKU).
func (h *PlanHandler) GetPlan(c *gin.Context) {
	storeID, skuID, ok := parseUnitPath(c)
	if !ok {
		return
	}

	days, err := h.service.GetPlan(c.Request.Context(), storeID, skuID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(days) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no plan found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"store_id": storeID,
		"sku_id":   skuID,
		"days":     days,
	})
}

// ExportPlan streams the latest plan as a CSV download.
func (h *PlanHandler) ExportPlan(c *gin.Context) {
	storeID, skuID, ok := parseUnitPath(c)
	if !ok {
		return
	}

	payload, err := h.service.ExportPlanCSV(c.Request.Context(), storeID, skuID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	filename := fmt.Sprintf("plan_%d_%s.csv", storeID, skuID)
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "text/csv", payload)
}

func parseUnitPath(c *gin.Context) (int64, string, bool) {
	storeID, err := strconv.ParseInt(c.Param("store"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid store id"})
		return 0, "", false
	}
	skuID := c.Param("sku")
	if skuID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing sku id"})
		return 0, "", false
	}
	return storeID, skuID, true
}
