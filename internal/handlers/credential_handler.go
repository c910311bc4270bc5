package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/PopeYeahWine/MeterAI/internal/credential"
	"github.com/PopeYeahWine/MeterAI/internal/state"
	"github.com/PopeYeahWine/MeterAI/internal/vault"
	"github.com/gin-gonic/gin"
)

// CredentialHandler handles OAuth credential custody endpoints. Responses
// never carry raw token material; only fingerprints and masked previews
// leave this layer.
type CredentialHandler struct {
	manager  *state.Manager
	vault    *vault.Vault
	detector *vault.Detector
	resolver *credential.Resolver
}

// NewCredentialHandler creates a new credential handler
func NewCredentialHandler(manager *state.Manager, v *vault.Vault, detector *vault.Detector, resolver *credential.Resolver) *CredentialHandler {
	return &CredentialHandler{manager: manager, vault: v, detector: detector, resolver: resolver}
}

// Status reports the vault entry and the currently resolvable source
// GET /api/credential
func (h *CredentialHandler) Status(c *gin.Context) {
	entry, err := h.vault.Load()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := gin.H{"stored": false}
	if entry != nil {
		resp["stored"] = true
		resp["fingerprint"] = entry.TokenFingerprint
		resp["copiedAt"] = entry.CopiedAt
		resp["sourcePath"] = entry.SourcePath
		resp["tokenPreview"] = vault.Mask(entry.Token)
		resp["tokenRetrievable"] = entry.Token != ""
		if entry.ExpiresAt != nil {
			resp["expiresAt"] = entry.ExpiresAt
		}
	}

	if resolved := h.resolver.Resolve(h.manager.CustomCredentialsPath()); resolved != nil {
		resp["source"] = gin.H{
			"tier":        resolved.Source,
			"path":        resolved.Path,
			"fingerprint": vault.Fingerprint(resolved.Token),
		}
	}

	c.JSON(http.StatusOK, resp)
}

// CheckDrift compares the vault against the source credential
// POST /api/credential/check
func (h *CredentialHandler) CheckDrift(c *gin.Context) {
	c.JSON(http.StatusOK, h.detector.Check())
}

// CopyToInternal copies the source credential into the vault
// POST /api/credential/copy
func (h *CredentialHandler) CopyToInternal(c *gin.Context) {
	entry, err := h.detector.CopyToInternal()
	if err != nil {
		if errors.Is(err, vault.ErrCredentialNotFound) {
			c.JSON(http.StatusOK, gin.H{
				"success": false,
				"message": "No credential found in any source",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"fingerprint":  entry.TokenFingerprint,
		"tokenPreview": vault.Mask(entry.Token),
		"sourcePath":   entry.SourcePath,
	})
}

// Clear removes the internal credential copy
// DELETE /api/credential
func (h *CredentialHandler) Clear(c *gin.Context) {
	if err := h.vault.Clear(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ChangeLog returns the drift change log
// GET /api/credential/changelog
func (h *CredentialHandler) ChangeLog(c *gin.Context) {
	entries, lastCheck := h.detector.ChangeLog()
	resp := gin.H{"entries": entries}
	if lastCheck != nil {
		resp["lastCheck"] = lastCheck
	}
	c.JSON(http.StatusOK, resp)
}

// Import accepts pasted credential JSON and stores it into the vault,
// bypassing source resolution. Accepts the same schema variants as the
// file scanner.
// POST /api/credential/import
func (h *CredentialHandler) Import(c *gin.Context) {
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, 64<<10))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}

	resolved := credential.Parse(data)
	if resolved == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No credential found in the pasted content"})
		return
	}

	entry, err := h.vault.Store(resolved.Token, resolved.RefreshToken, "import:manual", resolved.ExpiresAt)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"fingerprint":  entry.TokenFingerprint,
		"tokenPreview": vault.Mask(entry.Token),
	})
}

type settingsRequest struct {
	CustomCredentialsPath *string `json:"customCredentialsPath"`
}

// GetSettings returns the app-level settings
// GET /api/settings
func (h *CredentialHandler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"customCredentialsPath": h.manager.CustomCredentialsPath(),
	})
}

// UpdateSettings updates the app-level settings
// PATCH /api/settings
func (h *CredentialHandler) UpdateSettings(c *gin.Context) {
	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if req.CustomCredentialsPath != nil {
		h.manager.SetCustomCredentialsPath(*req.CustomCredentialsPath)
	}
	h.GetSettings(c)
}
