package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/PopeYeahWine/MeterAI/internal/state"
	"github.com/PopeYeahWine/MeterAI/internal/usagelog"
	"github.com/gin-gonic/gin"
)

// UsageHandler handles quota usage API endpoints
type UsageHandler struct {
	manager *state.Manager
	audit   *usagelog.AuditLog
}

// NewUsageHandler creates a new usage handler. The audit log is optional.
func NewUsageHandler(manager *state.Manager, audit *usagelog.AuditLog) *UsageHandler {
	return &UsageHandler{manager: manager, audit: audit}
}

// GetUsage returns the current usage state for a provider
// GET /api/providers/:id/usage
func (h *UsageHandler) GetUsage(c *gin.Context) {
	usage, err := h.manager.GetUsage(c.Param("id"))
	if err != nil {
		respondStateError(c, err)
		return
	}
	c.JSON(http.StatusOK, usage)
}

type recordUsageRequest struct {
	Count int `json:"count"`
}

// RecordUsage reports consumed requests against a provider's window
// POST /api/providers/:id/usage
func (h *UsageHandler) RecordUsage(c *gin.Context) {
	var req recordUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.Count <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "count must be positive"})
		return
	}

	providerID := c.Param("id")
	usage, err := h.manager.RecordUsage(providerID, req.Count)
	if err != nil {
		respondStateError(c, err)
		return
	}

	h.auditEvent(providerID, usagelog.EventRecord, req.Count, usage)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"usage":   usage,
	})
}

// ResetUsage archives the current window and starts a fresh one
// POST /api/providers/:id/usage/reset
func (h *UsageHandler) ResetUsage(c *gin.Context) {
	providerID := c.Param("id")
	usage, err := h.manager.ManualReset(providerID)
	if err != nil {
		respondStateError(c, err)
		return
	}

	h.auditEvent(providerID, usagelog.EventManualReset, 0, usage)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"usage":   usage,
	})
}

// GetAuditTrail returns recent audited usage events for a provider
// GET /api/providers/:id/usage/audit
func (h *UsageHandler) GetAuditTrail(c *gin.Context) {
	if h.audit == nil {
		c.JSON(http.StatusOK, gin.H{"events": []usagelog.Entry{}})
		return
	}

	events, err := h.audit.RecentEvents(c.Param("id"), 50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if events == nil {
		events = []usagelog.Entry{}
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// auditEvent appends to the audit trail best-effort
func (h *UsageHandler) auditEvent(providerID, event string, delta int, usage state.UsageState) {
	if h.audit == nil {
		return
	}
	if err := h.audit.Record(providerID, event, delta, usage.Used, usage.Limit); err != nil {
		log.Printf("⚠️ Failed to audit usage event: %v", err)
	}
}

// respondStateError maps manager errors onto HTTP statuses
func respondStateError(c *gin.Context, err error) {
	if errors.Is(err, state.ErrProviderNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
