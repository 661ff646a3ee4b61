package tool

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestStockPrice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v8/finance/chart/AAPL" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"chart":{"result":[{"meta":{"symbol":"AAPL","currency":"USD","regularMarketPrice":184.12}}]}}`))
	}))
	defer server.Close()

	tool := NewStockPrice(server.URL, nil)

	result, err := tool.Execute(context.Background(), json.RawMessage(`{"ticker":"AAPL"}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", result.Content)
	}
	if result.Content != "AAPL: 184.12 USD" {
		t.Errorf("content = %q", result.Content)
	}
}

func TestStockPriceUnknownTicker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"chart":{"result":null,"error":{"description":"No data found, symbol may be delisted"}}}`))
	}))
	defer server.Close()

	tool := NewStockPrice(server.URL, nil)

	result, err := tool.Execute(context.Background(), json.RawMessage(`{"ticker":"NOPE"}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !result.IsError {
		t.Fatal("unknown ticker should be a tool error")
	}
	if !strings.Contains(result.Content, "No data found") {
		t.Errorf("content = %q", result.Content)
	}
}

func TestStockPriceMissingTicker(t *testing.T) {
	tool := NewStockPrice("http://unused.invalid", nil)

	result, err := tool.Execute(context.Background(), json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !result.IsError {
		t.Error("missing ticker should be a tool error")
	}
}

func TestCompanyNews(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/finance/search" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("q") != "AAPL" {
			t.Errorf("q = %q", r.URL.Query().Get("q"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"news":[
			{"title":"Apple ships something","publisher":"Newswire","link":"https://example.com/1"},
			{"title":"Apple does a thing","publisher":"Press","link":"https://example.com/2"}
		]}`))
	}))
	defer server.Close()

	tool := NewCompanyNews(server.URL, nil)

	result, err := tool.Execute(context.Background(), json.RawMessage(`{"ticker":"AAPL"}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", result.Content)
	}
	if !strings.Contains(result.Content, "1. Apple ships something (Newswire)") {
		t.Errorf("content = %q", result.Content)
	}
	if !strings.Contains(result.Content, "2. Apple does a thing") {
		t.Errorf("content = %q", result.Content)
	}
}

func TestCompanyNewsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"news":[]}`))
	}))
	defer server.Close()

	tool := NewCompanyNews(server.URL, nil)

	result, err := tool.Execute(context.Background(), json.RawMessage(`{"ticker":"XYZ"}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.IsError {
		t.Fatalf("empty news should not be an error: %s", result.Content)
	}
	if !strings.Contains(result.Content, "no recent news") {
		t.Errorf("content = %q", result.Content)
	}
}

func TestMarketRateLimit(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"chart":{"result":[{"meta":{"symbol":"A","currency":"USD","regularMarketPrice":1}}]}}`))
	}))
	defer server.Close()

	limiter := NewRateLimiter(2, time.Minute)
	tool := NewStockPrice(server.URL, limiter)

	for i := 0; i < 2; i++ {
		result, err := tool.Execute(context.Background(), json.RawMessage(`{"ticker":"A"}`))
		if err != nil || result.IsError {
			t.Fatalf("call %d failed: %v %v", i, err, result)
		}
	}

	result, err := tool.Execute(context.Background(), json.RawMessage(`{"ticker":"A"}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !result.IsError {
		t.Fatal("third call should be rate limited")
	}
	if calls != 2 {
		t.Errorf("server calls = %d, want 2", calls)
	}
}

func TestRateLimiterWindowSlides(t *testing.T) {
	limiter := NewRateLimiter(1, time.Minute)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	if !limiter.Allow() {
		t.Fatal("first call should be allowed")
	}
	if limiter.Allow() {
		t.Fatal("second call within window should be rejected")
	}

	now = now.Add(61 * time.Second)
	if !limiter.Allow() {
		t.Fatal("call after window should be allowed")
	}
}
