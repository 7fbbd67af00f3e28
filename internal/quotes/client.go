// Package quotes provides access to the equity market-data provider:
// current quotes, daily closing prices, and symbol search.
package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/joehsu/openclaw/internal/logger"
	"github.com/joehsu/openclaw/internal/models"
)

// Client provides access to the quote provider API.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	maxRetries     int
	retryDelayBase time.Duration
}

// NewClient creates a new quote client.
func NewClient(baseURL string, timeout time.Duration, maxRetries int, retryDelayBase time.Duration) *Client {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}
}

type quoteResponse struct {
	QuoteResponse struct {
		Result []quotePayload `json:"result"`
	} `json:"quoteResponse"`
}

// quotePayload uses pointers so that absent provider fields are
// distinguishable from zero values.
type quotePayload struct {
	Symbol              string   `json:"symbol"`
	LongName            string   `json:"longName"`
	ShortName           string   `json:"shortName"`
	RegularMarketPrice  *float64 `json:"regularMarketPrice"`
	CurrentPrice        *float64 `json:"currentPrice"`
	PreviousClose       *float64 `json:"previousClose"`
	RegularMarketVolume *float64 `json:"regularMarketVolume"`
}

// FetchQuotes returns a quote for every reachable symbol, in the order the
// symbols were given. A symbol whose provider call fails or returns
// incomplete data is omitted from the batch, never an error for the whole
// run.
func (c *Client) FetchQuotes(ctx context.Context, symbols []string) []models.Quote {
	var out []models.Quote
	for _, symbol := range symbols {
		q, err := c.FetchQuote(ctx, symbol)
		if err != nil {
			logger.Warn("Skipping symbol %s: %v", symbol, err)
			continue
		}
		out = append(out, *q)
	}
	return out
}

// FetchQuote fetches a single symbol's quote. The current price comes from
// the live regular-market field, falling back to the plain current-price
// field; a previous close is required to compute the change percentage.
func (c *Client) FetchQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	u, err := url.Parse(c.baseURL + "/v7/finance/quote")
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	q := u.Query()
	q.Set("symbols", symbol)
	u.RawQuery = q.Encode()

	resp, err := c.doRequest(ctx, u.String())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quote: %w", err)
	}
	defer resp.Body.Close()

	var payload quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode quote: %w", err)
	}
	if len(payload.QuoteResponse.Result) == 0 {
		return nil, fmt.Errorf("no quote data for %s", symbol)
	}

	raw := payload.QuoteResponse.Result[0]
	price := raw.RegularMarketPrice
	if price == nil {
		price = raw.CurrentPrice
	}
	if price == nil || raw.PreviousClose == nil {
		return nil, fmt.Errorf("incomplete quote data for %s", symbol)
	}

	name := raw.LongName
	if name == "" {
		name = raw.ShortName
	}
	if name == "" {
		name = symbol
	}

	quote := models.Quote{
		Symbol:        symbol,
		Name:          name,
		Price:         *price,
		PreviousClose: *raw.PreviousClose,
		FetchedAt:     time.Now(),
	}
	if *raw.PreviousClose != 0 {
		quote.ChangePct = (*price - *raw.PreviousClose) / *raw.PreviousClose * 100
	}
	if raw.RegularMarketVolume != nil {
		quote.Volume = *raw.RegularMarketVolume
	}
	if err := quote.Validate(); err != nil {
		return nil, fmt.Errorf("invalid quote for %s: %w", symbol, err)
	}
	return &quote, nil
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
	} `json:"chart"`
}

// DailyCloses returns up to n most recent daily closing prices for symbol,
// oldest first. Null bars from the provider are skipped.
func (c *Client) DailyCloses(ctx context.Context, symbol string, n int) ([]float64, error) {
	u, err := url.Parse(c.baseURL + "/v8/finance/chart/" + url.PathEscape(symbol))
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	q := u.Query()
	q.Set("range", "5d")
	q.Set("interval", "1d")
	u.RawQuery = q.Encode()

	resp, err := c.doRequest(ctx, u.String())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chart: %w", err)
	}
	defer resp.Body.Close()

	var payload chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode chart: %w", err)
	}
	if len(payload.Chart.Result) == 0 || len(payload.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("no chart data for %s", symbol)
	}

	var closes []float64
	for _, bar := range payload.Chart.Result[0].Indicators.Quote[0].Close {
		if bar != nil {
			closes = append(closes, *bar)
		}
	}
	if len(closes) > n {
		closes = closes[len(closes)-n:]
	}
	return closes, nil
}

type searchResponse struct {
	Quotes []struct {
		Symbol string `json:"symbol"`
	} `json:"quotes"`
}

// SearchSymbol resolves a free-text name to the provider's best-match
// exchange-qualified symbol.
func (c *Client) SearchSymbol(ctx context.Context, query string) (string, error) {
	u, err := url.Parse(c.baseURL + "/v1/finance/search")
	if err != nil {
		return "", fmt.Errorf("failed to parse URL: %w", err)
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("quotesCount", "1")
	u.RawQuery = q.Encode()

	resp, err := c.doRequest(ctx, u.String())
	if err != nil {
		return "", fmt.Errorf("failed to search symbol: %w", err)
	}
	defer resp.Body.Close()

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode search result: %w", err)
	}
	if len(payload.Quotes) == 0 || payload.Quotes[0].Symbol == "" {
		return "", fmt.Errorf("no symbol match for %q", query)
	}
	return payload.Quotes[0].Symbol, nil
}

// doRequest performs an HTTP GET with linear-backoff retry on transport
// errors and server errors.
func (c *Client) doRequest(ctx context.Context, urlStr string) (*http.Response, error) {
	var lastErr error

	for i := 0; i < c.maxRetries; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "openclaw/1.0")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			time.Sleep(c.retryDelayBase * time.Duration(i+1))
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
			time.Sleep(c.retryDelayBase * time.Duration(i+1))
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
		}

		return resp, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
