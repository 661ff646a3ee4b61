package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"fincrew/internal/domain"
)

// newsCount is how many headlines CompanyNews returns per query.
const newsCount = 5

// CompanyNews fetches recent news headlines for a company from Yahoo Finance.
type CompanyNews struct {
	market *marketClient
}

// NewCompanyNews creates the company news tool. baseURL overrides the Yahoo
// host for tests; pass "" for the default.
func NewCompanyNews(baseURL string, limiter *RateLimiter) *CompanyNews {
	return &CompanyNews{market: newMarketClient(baseURL, limiter)}
}

func (c *CompanyNews) Name() string { return "get_company_news" }

func (c *CompanyNews) Description() string {
	return "Fetches recent news headlines for a company or ticker symbol."
}

func (c *CompanyNews) Categories() []string { return []string{"market"} }

func (c *CompanyNews) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        c.Name(),
		Description: c.Description(),
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"ticker": {"type": "string", "description": "Company name or ticker symbol, e.g. AAPL"}
			},
			"required": ["ticker"]
		}`),
	}
}

type companyNewsParams struct {
	Ticker string `json:"ticker"`
}

type searchResponse struct {
	News []struct {
		Title     string `json:"title"`
		Publisher string `json:"publisher"`
		Link      string `json:"link"`
	} `json:"news"`
}

func (c *CompanyNews) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	var p companyNewsParams
	if err := json.Unmarshal(params, &p); err != nil {
		return &domain.ToolResult{IsError: true, Content: fmt.Sprintf("invalid parameters: %v", err)}, nil
	}
	if p.Ticker == "" {
		return &domain.ToolResult{IsError: true, Content: "ticker is required"}, nil
	}

	query := url.Values{}
	query.Set("q", p.Ticker)
	query.Set("newsCount", fmt.Sprintf("%d", newsCount))

	body, err := c.market.get(ctx, "/v1/finance/search", query)
	if err != nil {
		return &domain.ToolResult{IsError: true, Content: err.Error()}, nil
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return &domain.ToolResult{IsError: true, Content: fmt.Sprintf("parse news: %v", err)}, nil
	}
	if len(resp.News) == 0 {
		return &domain.ToolResult{Content: fmt.Sprintf("no recent news found for %q", p.Ticker)}, nil
	}

	var b strings.Builder
	for i, n := range resp.News {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d. %s (%s) %s", i+1, n.Title, n.Publisher, n.Link)
	}
	return &domain.ToolResult{Content: b.String()}, nil
}

var _ domain.Tool = (*CompanyNews)(nil)
