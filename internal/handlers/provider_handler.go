package handlers

import (
	"net/http"
	"time"

	"github.com/PopeYeahWine/MeterAI/internal/providers"
	"github.com/PopeYeahWine/MeterAI/internal/state"
	"github.com/PopeYeahWine/MeterAI/internal/vault"
	"github.com/gin-gonic/gin"
)

// ProviderHandler handles provider configuration and remote usage endpoints
type ProviderHandler struct {
	manager *state.Manager
	vault   *vault.Vault
	claude  *providers.ClaudeClient
	openai  *providers.OpenAIClient
}

// NewProviderHandler creates a new provider handler
func NewProviderHandler(manager *state.Manager, v *vault.Vault, claude *providers.ClaudeClient, openai *providers.OpenAIClient) *ProviderHandler {
	return &ProviderHandler{manager: manager, vault: v, claude: claude, openai: openai}
}

// ListProviders returns all configured providers
// GET /api/providers
func (h *ProviderHandler) ListProviders(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"providers": h.manager.ListProviders(),
		"active":    h.manager.ActiveProvider(),
	})
}

// GetProvider returns a single provider's configuration
// GET /api/providers/:id
func (h *ProviderHandler) GetProvider(c *gin.Context) {
	cfg, err := h.manager.GetProvider(c.Param("id"))
	if err != nil {
		respondStateError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// AddProvider registers a new provider
// POST /api/providers
func (h *ProviderHandler) AddProvider(c *gin.Context) {
	var cfg state.ProviderConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := h.manager.AddProvider(cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, _ := h.manager.GetProvider(cfg.ID)
	c.JSON(http.StatusCreated, created)
}

// Configure applies a partial configuration update
// PATCH /api/providers/:id
func (h *ProviderHandler) Configure(c *gin.Context) {
	var update state.ProviderUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	cfg, err := h.manager.Configure(c.Param("id"), update)
	if err != nil {
		respondStateError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// SwitchActive changes the active provider
// POST /api/providers/:id/activate
func (h *ProviderHandler) SwitchActive(c *gin.Context) {
	usage, err := h.manager.SwitchActive(c.Param("id"))
	if err != nil {
		respondStateError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"active":  c.Param("id"),
		"usage":   usage,
	})
}

// FetchRemoteUsage queries the provider's own usage endpoint. The call runs
// outside the state lock; only the needed secret is read under it.
// POST /api/providers/:id/fetch
func (h *ProviderHandler) FetchRemoteUsage(c *gin.Context) {
	providerID := c.Param("id")
	cfg, err := h.manager.GetProvider(providerID)
	if err != nil {
		respondStateError(c, err)
		return
	}

	switch cfg.Kind {
	case state.KindClaude:
		entry, err := h.vault.Load()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		var token string
		if entry != nil {
			token = entry.Token
		}
		result := h.claude.FetchUsage(c.Request.Context(), token)
		c.JSON(http.StatusOK, result)

	case state.KindOpenAI:
		apiKey, err := h.manager.ProviderAPIKey(providerID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		now := time.Now()
		result := h.openai.FetchCostUsage(c.Request.Context(), apiKey, now.AddDate(0, -1, 0), now)
		c.JSON(http.StatusOK, result)

	default:
		c.JSON(http.StatusOK, gin.H{
			"success": false,
			"message": "provider has no remote usage endpoint",
		})
	}
}

// ValidateAPIKey checks the provider's stored API key against the remote
// POST /api/providers/:id/validate-key
func (h *ProviderHandler) ValidateAPIKey(c *gin.Context) {
	providerID := c.Param("id")
	if _, err := h.manager.GetProvider(providerID); err != nil {
		respondStateError(c, err)
		return
	}

	apiKey, err := h.manager.ProviderAPIKey(providerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.openai.ValidateKey(c.Request.Context(), apiKey))
}
