package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"fincrew/internal/domain"
)

// StockPrice fetches the latest quote for a ticker from Yahoo Finance.
type StockPrice struct {
	market *marketClient
}

// NewStockPrice creates the stock price tool. baseURL overrides the Yahoo
// host for tests; pass "" for the default. The limiter is shared with the
// other market tools.
func NewStockPrice(baseURL string, limiter *RateLimiter) *StockPrice {
	return &StockPrice{market: newMarketClient(baseURL, limiter)}
}

func (s *StockPrice) Name() string { return "get_stock_price" }

func (s *StockPrice) Description() string {
	return "Fetches the current market price for a stock ticker symbol."
}

func (s *StockPrice) Categories() []string { return []string{"market"} }

func (s *StockPrice) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        s.Name(),
		Description: s.Description(),
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"ticker": {"type": "string", "description": "Stock ticker symbol, e.g. AAPL"}
			},
			"required": ["ticker"]
		}`),
	}
}

type stockPriceParams struct {
	Ticker string `json:"ticker"`
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				Currency           string  `json:"currency"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
		} `json:"result"`
		Error *struct {
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (s *StockPrice) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	var p stockPriceParams
	if err := json.Unmarshal(params, &p); err != nil {
		return &domain.ToolResult{IsError: true, Content: fmt.Sprintf("invalid parameters: %v", err)}, nil
	}
	if p.Ticker == "" {
		return &domain.ToolResult{IsError: true, Content: "ticker is required"}, nil
	}

	body, err := s.market.get(ctx, "/v8/finance/chart/"+url.PathEscape(p.Ticker), nil)
	if err != nil {
		return &domain.ToolResult{IsError: true, Content: err.Error()}, nil
	}

	var resp chartResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return &domain.ToolResult{IsError: true, Content: fmt.Sprintf("parse quote: %v", err)}, nil
	}
	if resp.Chart.Error != nil {
		return &domain.ToolResult{IsError: true, Content: resp.Chart.Error.Description}, nil
	}
	if len(resp.Chart.Result) == 0 {
		return &domain.ToolResult{IsError: true, Content: fmt.Sprintf("no quote found for %q", p.Ticker)}, nil
	}

	meta := resp.Chart.Result[0].Meta
	return &domain.ToolResult{
		Content: fmt.Sprintf("%s: %.2f %s", meta.Symbol, meta.RegularMarketPrice, meta.Currency),
	}, nil
}

var _ domain.Tool = (*StockPrice)(nil)
