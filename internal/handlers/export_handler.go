package handlers

import (
	"io"
	"net/http"

	"github.com/PopeYeahWine/MeterAI/internal/state"
	"github.com/PopeYeahWine/MeterAI/internal/vault"
	"github.com/gin-gonic/gin"
)

// maxImportSize bounds import payloads
const maxImportSize = 1 << 20

// ExportHandler handles state export and import
type ExportHandler struct {
	manager *state.Manager
	vault   *vault.Vault
}

// NewExportHandler creates a new export handler
func NewExportHandler(manager *state.Manager, v *vault.Vault) *ExportHandler {
	return &ExportHandler{manager: manager, vault: v}
}

// Export returns a portable snapshot of the aggregate plus credential
// metadata. Secrets stay in the secret store and never enter the document.
// GET /api/export
func (h *ExportHandler) Export(c *gin.Context) {
	var meta interface{}
	if entry, err := h.vault.Load(); err == nil && entry != nil {
		meta = entry.Metadata
	}

	doc, err := h.manager.Export(meta)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="meterai-export.json"`)
	c.Data(http.StatusOK, "application/json", doc)
}

// Import replaces the aggregate with an exported document
// POST /api/import
func (h *ExportHandler) Import(c *gin.Context) {
	doc, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImportSize))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}

	if err := h.manager.Import(doc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
