// Package providers holds the outbound clients that fetch quota figures
// from provider billing and usage endpoints. These calls are advisory:
// transport failures and non-success statuses come back as results with
// Success=false and a human-readable message, never as hard errors.
package providers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
)

const (
	defaultClaudeBaseURL = "https://api.anthropic.com"
	claudeOAuthBeta      = "oauth-2025-04-20"

	requestTimeout = 15 * time.Second
)

// WindowUsage is one rate-limit window's utilization figure
type WindowUsage struct {
	Utilization int    `json:"utilization"` // percent 0..100
	ResetsAt    string `json:"resetsAt"`
}

// ClaudeUsageResult carries the OAuth usage-window figures. The five-hour
// and seven-day windows are each optional in the upstream response.
type ClaudeUsageResult struct {
	Success  bool         `json:"success"`
	Message  string       `json:"message,omitempty"`
	FiveHour *WindowUsage `json:"fiveHour,omitempty"`
	SevenDay *WindowUsage `json:"sevenDay,omitempty"`
}

// ClaudeClient fetches usage windows from the Claude OAuth usage endpoint
type ClaudeClient struct {
	baseURL string
	http    *http.Client
}

// NewClaudeClient builds a client against the default API host
func NewClaudeClient() *ClaudeClient {
	return &ClaudeClient{
		baseURL: defaultClaudeBaseURL,
		http:    &http.Client{Timeout: requestTimeout},
	}
}

// NewClaudeClientWithBaseURL builds a client against a custom host
func NewClaudeClientWithBaseURL(baseURL string) *ClaudeClient {
	c := NewClaudeClient()
	c.baseURL = baseURL
	return c
}

// FetchUsage retrieves the current usage windows for an OAuth token
func (c *ClaudeClient) FetchUsage(ctx context.Context, token string) ClaudeUsageResult {
	if token == "" {
		return ClaudeUsageResult{Success: false, Message: "no OAuth token available"}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/oauth/usage", nil)
	if err != nil {
		return ClaudeUsageResult{Success: false, Message: fmt.Sprintf("failed to build request: %v", err)}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("anthropic-beta", claudeOAuthBeta)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return ClaudeUsageResult{Success: false, Message: fmt.Sprintf("usage endpoint unreachable: %v", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return ClaudeUsageResult{Success: false, Message: fmt.Sprintf("failed to read response: %v", err)}
	}
	if resp.StatusCode != http.StatusOK {
		return ClaudeUsageResult{Success: false, Message: fmt.Sprintf("usage endpoint returned %d", resp.StatusCode)}
	}

	result := ClaudeUsageResult{Success: true}
	if window := parseWindow(gjson.GetBytes(body, "five_hour")); window != nil {
		result.FiveHour = window
	}
	if window := parseWindow(gjson.GetBytes(body, "seven_day")); window != nil {
		result.SevenDay = window
	}
	return result
}

// parseWindow extracts one utilization/reset pair; absent windows map to nil
func parseWindow(section gjson.Result) *WindowUsage {
	if !section.Exists() {
		return nil
	}
	return &WindowUsage{
		Utilization: int(section.Get("utilization").Int()),
		ResetsAt:    section.Get("resets_at").String(),
	}
}
