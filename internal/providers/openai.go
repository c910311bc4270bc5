package providers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
)

const defaultOpenAIBaseURL = "https://api.openai.com"

// KeyCheckResult reports whether an API key is accepted by the provider
type KeyCheckResult struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

// CostUsageResult carries cost-based usage figures for an account. A failed
// or unreachable fetch comes back with Success=false rather than zero usage,
// so callers can tell "no spend" apart from "could not find out".
type CostUsageResult struct {
	Success       bool    `json:"success"`
	Message       string  `json:"message,omitempty"`
	TotalUsageUSD float64 `json:"totalUsageUsd"`
	HardLimitUSD  float64 `json:"hardLimitUsd"`
}

// OpenAIClient validates API keys and fetches cost-based usage figures
type OpenAIClient struct {
	baseURL string
	http    *http.Client
}

// NewOpenAIClient builds a client against the default API host
func NewOpenAIClient() *OpenAIClient {
	return &OpenAIClient{
		baseURL: defaultOpenAIBaseURL,
		http:    &http.Client{Timeout: requestTimeout},
	}
}

// NewOpenAIClientWithBaseURL builds a client against a custom host
func NewOpenAIClientWithBaseURL(baseURL string) *OpenAIClient {
	c := NewOpenAIClient()
	c.baseURL = baseURL
	return c
}

// ValidateKey checks an API key against the models-listing endpoint
func (c *OpenAIClient) ValidateKey(ctx context.Context, apiKey string) KeyCheckResult {
	if apiKey == "" {
		return KeyCheckResult{Valid: false, Message: "no API key configured"}
	}

	resp, err := c.get(ctx, "/v1/models", apiKey)
	if err != nil {
		return KeyCheckResult{Valid: false, Message: fmt.Sprintf("models endpoint unreachable: %v", err)}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))

	switch resp.StatusCode {
	case http.StatusOK:
		return KeyCheckResult{Valid: true}
	case http.StatusUnauthorized, http.StatusForbidden:
		return KeyCheckResult{Valid: false, Message: "API key rejected"}
	default:
		return KeyCheckResult{Valid: false, Message: fmt.Sprintf("models endpoint returned %d", resp.StatusCode)}
	}
}

// FetchCostUsage retrieves the account's spend over [start, end) plus the
// subscription hard limit
func (c *OpenAIClient) FetchCostUsage(ctx context.Context, apiKey string, start, end time.Time) CostUsageResult {
	if apiKey == "" {
		return CostUsageResult{Success: false, Message: "no API key configured"}
	}

	usagePath := fmt.Sprintf("/v1/dashboard/billing/usage?start_date=%s&end_date=%s",
		start.Format("2006-01-02"), end.Format("2006-01-02"))

	usageResp, err := c.get(ctx, usagePath, apiKey)
	if err != nil {
		return CostUsageResult{Success: false, Message: fmt.Sprintf("usage endpoint unreachable: %v", err)}
	}
	usageBody, err := readBody(usageResp)
	if err != nil {
		return CostUsageResult{Success: false, Message: err.Error()}
	}

	result := CostUsageResult{
		Success: true,
		// total_usage is reported in cents
		TotalUsageUSD: gjson.GetBytes(usageBody, "total_usage").Float() / 100,
	}

	subResp, err := c.get(ctx, "/v1/dashboard/billing/subscription", apiKey)
	if err != nil {
		return CostUsageResult{Success: false, Message: fmt.Sprintf("subscription endpoint unreachable: %v", err)}
	}
	subBody, err := readBody(subResp)
	if err != nil {
		return CostUsageResult{Success: false, Message: err.Error()}
	}
	result.HardLimitUSD = gjson.GetBytes(subBody, "hard_limit_usd").Float()

	return result
}

func (c *OpenAIClient) get(ctx context.Context, path, apiKey string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")
	return c.http.Do(req)
}

// readBody drains a response and rejects non-success statuses
func readBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("endpoint returned %d", resp.StatusCode)
	}
	return body, nil
}
