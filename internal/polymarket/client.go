// Package polymarket provides access to the prediction-market venue: the
// Gamma markets listing and the CLOB order-book endpoint, plus the bounded
// fan-out sampler that pairs yes/no best asks into market events.
package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joehsu/openclaw/internal/logger"
	"github.com/joehsu/openclaw/internal/models"
)

// Client provides access to the Polymarket APIs.
type Client struct {
	gammaAPIURL string
	clobAPIURL  string
	httpClient  *http.Client
	bookTimeout time.Duration
	concurrency int
}

// Market is a listed binary market with its pair of outcome-token IDs.
type Market struct {
	Question   string
	Slug       string
	YesToken   string
	NoToken    string
	Volume24hr float64
}

// gammaMarket mirrors the Gamma API market payload. ClobTokenIds is a
// JSON string embedding an array, e.g. "[\"token1\", \"token2\"]".
type gammaMarket struct {
	Question       string  `json:"question"`
	Slug           string  `json:"slug"`
	ClobTokenIds   string  `json:"clobTokenIds"`
	Volume24hrClob float64 `json:"volume24hrClob"`
}

// NewClient creates a new Polymarket client.
func NewClient(gammaAPIURL, clobAPIURL string, timeout, bookTimeout time.Duration, concurrency int) *Client {
	if concurrency <= 0 {
		concurrency = 10
	}
	if bookTimeout <= 0 {
		bookTimeout = 5 * time.Second
	}
	return &Client{
		gammaAPIURL: gammaAPIURL,
		clobAPIURL:  clobAPIURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		bookTimeout: bookTimeout,
		concurrency: concurrency,
	}
}

// FetchMarkets retrieves the top active markets by 24h volume. Markets
// without a full yes/no token pair are dropped.
func (c *Client) FetchMarkets(ctx context.Context, limit int) ([]Market, error) {
	u, err := url.Parse(c.gammaAPIURL + "/markets")
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	q := u.Query()
	q.Set("active", "true")
	q.Set("closed", "false")
	q.Set("limit", strconv.Itoa(limit))
	q.Set("order", "volume24hrClob")
	q.Set("dir", "desc")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch markets: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var raw []gammaMarket
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode markets: %w", err)
	}

	var markets []Market
	for _, m := range raw {
		var tokenIDs []string
		if err := json.Unmarshal([]byte(m.ClobTokenIds), &tokenIDs); err != nil {
			logger.Debug("Skipping market with bad token IDs %q: %v", m.Question, err)
			continue
		}
		if len(tokenIDs) < 2 {
			continue
		}
		markets = append(markets, Market{
			Question:   m.Question,
			Slug:       m.Slug,
			YesToken:   tokenIDs[0],
			NoToken:    tokenIDs[1],
			Volume24hr: m.Volume24hrClob,
		})
	}
	return markets, nil
}

type orderBook struct {
	Asks []struct {
		Price string `json:"price"`
		Size  string `json:"size"`
	} `json:"asks"`
}

// BestAsk fetches the order book for one outcome token and returns the
// price of its first ask entry. An empty book is an error: the token's
// price is unknown this cycle.
func (c *Client) BestAsk(ctx context.Context, tokenID string) (float64, error) {
	u, err := url.Parse(c.clobAPIURL + "/book")
	if err != nil {
		return 0, fmt.Errorf("failed to parse URL: %w", err)
	}
	q := u.Query()
	q.Set("token_id", tokenID)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch book: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var book orderBook
	if err := json.NewDecoder(resp.Body).Decode(&book); err != nil {
		return 0, fmt.Errorf("failed to decode book: %w", err)
	}
	if len(book.Asks) == 0 {
		return 0, fmt.Errorf("no asks for token %s", tokenID)
	}
	price, err := strconv.ParseFloat(book.Asks[0].Price, 64)
	if err != nil {
		return 0, fmt.Errorf("bad ask price %q: %w", book.Asks[0].Price, err)
	}
	return price, nil
}

// askResult holds one token fetch outcome; ok is false when the price is
// unknown (timeout, transport error, or empty book).
type askResult struct {
	price float64
	ok    bool
}

// SampleBooks fans out one best-ask fetch per outcome token with bounded
// concurrency, waits for all, then pairs the results back up per market.
// A market is included only when both tokens resolved to a known price.
// Per-token failures resolve to unknown and are never retried; results
// preserve the original market order.
func (c *Client) SampleBooks(ctx context.Context, markets []Market) []models.MarketEvent {
	yes := make([]askResult, len(markets))
	no := make([]askResult, len(markets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	fetch := func(tokenID string, slot *askResult) func() error {
		return func() error {
			tctx, cancel := context.WithTimeout(gctx, c.bookTimeout)
			defer cancel()
			price, err := c.BestAsk(tctx, tokenID)
			if err != nil {
				logger.Debug("Unresolved token %s: %v", tokenID, err)
				return nil
			}
			// Each goroutine owns exactly one slot; no shared mutable state.
			*slot = askResult{price: price, ok: true}
			return nil
		}
	}

	for i := range markets {
		g.Go(fetch(markets[i].YesToken, &yes[i]))
		g.Go(fetch(markets[i].NoToken, &no[i]))
	}
	_ = g.Wait()

	var events []models.MarketEvent
	for i, m := range markets {
		if !yes[i].ok || !no[i].ok {
			continue
		}
		events = append(events, models.MarketEvent{
			Title:      m.Question,
			Slug:       m.Slug,
			YesAsk:     yes[i].price,
			NoAsk:      no[i].price,
			Volume24hr: m.Volume24hr,
		})
	}
	logger.Info("Order books sampled: %d of %d markets fully resolved", len(events), len(markets))
	return events
}
