// Package currency converts catalog prices (USD) into the currencies
// marketplace listings are actually priced in.
package currency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cardlister/cardlister/internal/cache"
)

// ErrUnknownCurrency is returned when the provider's rate table has no
// entry for the requested target currency.
var ErrUnknownCurrency = errors.New("currency: unknown currency code")

const defaultBaseURL = "https://api.exchangerate-api.com/v4/latest"

// ratesTTL keeps rate tables warm without serving stale conversions for
// long. Exchange rates move slowly at the precision price comparison needs.
const ratesTTL = 6 * time.Hour

// Provider supplies a conversion rate from base to target. Implemented by
// Client; mocked in tests and in anything that wants fixed rates.
type Provider interface {
	Rate(ctx context.Context, base, target string) (float64, error)
}

// Client fetches rate tables from a free exchange-rate API and caches
// them per base currency.
type Client struct {
	baseURL string
	client  *http.Client
	cache   *cache.Cache
}

// New creates a rate client. cache may be nil to disable caching.
func New(c *cache.Cache) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		cache:   c,
	}
}

type ratesResponse struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

// Rate returns the multiplier converting base into target. Identical
// currencies short-circuit to 1 without any network traffic.
func (c *Client) Rate(ctx context.Context, base, target string) (float64, error) {
	base = strings.ToUpper(base)
	target = strings.ToUpper(target)
	if base == target {
		return 1, nil
	}

	rates, err := c.table(ctx, base)
	if err != nil {
		return 0, err
	}
	rate, ok := rates[target]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownCurrency, target)
	}
	return rate, nil
}

// table returns the full rate table for a base currency, from cache when
// fresh.
func (c *Client) table(ctx context.Context, base string) (map[string]float64, error) {
	if c.cache != nil {
		var rates map[string]float64
		if hit, _ := c.cache.Get(cache.RatesKey(base), &rates); hit {
			return rates, nil
		}
	}

	rates, err := c.fetch(ctx, base)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		_ = c.cache.Put(cache.RatesKey(base), rates, ratesTTL)
	}
	return rates, nil
}

func (c *Client) fetch(ctx context.Context, base string) (map[string]float64, error) {
	u := fmt.Sprintf("%s/%s", c.baseURL, base)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rate request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("rate provider status %d: %s", resp.StatusCode, string(body))
	}

	var out ratesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding rate response: %w", err)
	}
	if len(out.Rates) == 0 {
		return nil, errors.New("rate provider returned empty table")
	}
	return out.Rates, nil
}
