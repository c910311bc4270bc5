package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestOpenAIValidateKey(t *testing.T) {
	tests := []struct {
		name   string
		status int
		valid  bool
	}{
		{"accepted", http.StatusOK, true},
		{"rejected", http.StatusUnauthorized, false},
		{"forbidden", http.StatusForbidden, false},
		{"server error", http.StatusInternalServerError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/v1/models" {
					t.Errorf("path = %q", r.URL.Path)
				}
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			result := NewOpenAIClientWithBaseURL(srv.URL).ValidateKey(context.Background(), "sk-x")
			if result.Valid != tt.valid {
				t.Errorf("valid = %v, want %v (%s)", result.Valid, tt.valid, result.Message)
			}
		})
	}
}

func TestOpenAIFetchCostUsage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/dashboard/billing/usage":
			if r.URL.Query().Get("start_date") != "2025-03-01" {
				t.Errorf("start_date = %q", r.URL.Query().Get("start_date"))
			}
			w.Write([]byte(`{"total_usage": 1234.5}`))
		case "/v1/dashboard/billing/subscription":
			w.Write([]byte(`{"hard_limit_usd": 120.0}`))
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
		}
	}))
	defer srv.Close()

	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	result := NewOpenAIClientWithBaseURL(srv.URL).FetchCostUsage(context.Background(), "sk-x", start, end)

	if !result.Success {
		t.Fatalf("success = false: %s", result.Message)
	}
	if result.TotalUsageUSD != 12.345 {
		t.Errorf("total usage = %v USD, want 12.345 (cents converted)", result.TotalUsageUSD)
	}
	if result.HardLimitUSD != 120.0 {
		t.Errorf("hard limit = %v", result.HardLimitUSD)
	}
}

func TestOpenAIFetchCostUsageFailureIsExplicit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	result := NewOpenAIClientWithBaseURL(srv.URL).FetchCostUsage(
		context.Background(), "sk-x", time.Now().AddDate(0, -1, 0), time.Now())

	// An unreachable usage endpoint must not masquerade as zero spend
	if result.Success {
		t.Fatal("failed fetch must report success=false")
	}
	if result.Message == "" {
		t.Error("failure result must carry a message")
	}
}

func TestOpenAIEmptyKeyShortCircuits(t *testing.T) {
	c := NewOpenAIClientWithBaseURL("http://127.0.0.1:0")

	if r := c.ValidateKey(context.Background(), ""); r.Valid {
		t.Error("empty key must be invalid without a network call")
	}
	if r := c.FetchCostUsage(context.Background(), "", time.Now(), time.Now()); r.Success {
		t.Error("empty key must yield a failure result without a network call")
	}
}
