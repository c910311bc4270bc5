package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClaudeFetchUsage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/oauth/usage" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("authorization = %q", got)
		}
		if r.Header.Get("anthropic-beta") == "" {
			t.Error("missing anthropic-beta header")
		}
		w.Write([]byte(`{
			"five_hour": {"utilization": 42, "resets_at": "2025-03-10T14:00:00Z"},
			"seven_day": {"utilization": 7, "resets_at": "2025-03-15T00:00:00Z"}
		}`))
	}))
	defer srv.Close()

	c := NewClaudeClientWithBaseURL(srv.URL)
	result := c.FetchUsage(context.Background(), "tok-1")

	if !result.Success {
		t.Fatalf("success = false: %s", result.Message)
	}
	if result.FiveHour == nil || result.FiveHour.Utilization != 42 {
		t.Errorf("five-hour window = %+v, want utilization 42", result.FiveHour)
	}
	if result.SevenDay == nil || result.SevenDay.ResetsAt != "2025-03-15T00:00:00Z" {
		t.Errorf("seven-day window = %+v", result.SevenDay)
	}
}

func TestClaudeFetchUsagePartialWindows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"five_hour": {"utilization": 90, "resets_at": ""}}`))
	}))
	defer srv.Close()

	result := NewClaudeClientWithBaseURL(srv.URL).FetchUsage(context.Background(), "tok")
	if !result.Success {
		t.Fatalf("success = false: %s", result.Message)
	}
	if result.FiveHour == nil {
		t.Error("five-hour window missing")
	}
	if result.SevenDay != nil {
		t.Error("absent seven-day window must stay nil")
	}
}

func TestClaudeFetchUsageFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()
	c := NewClaudeClientWithBaseURL(srv.URL)

	if result := c.FetchUsage(context.Background(), "bad-tok"); result.Success || result.Message == "" {
		t.Errorf("401 must yield a failure result with a message, got %+v", result)
	}
	if result := c.FetchUsage(context.Background(), ""); result.Success {
		t.Error("empty token must short-circuit to a failure result")
	}

	srv.Close()
	if result := c.FetchUsage(context.Background(), "tok"); result.Success {
		t.Error("transport failure must yield a failure result, not an error")
	}
}
