// Package catalog is the pokemontcg.io client. All three lookups are
// read-only and idempotent; the catalog owns the data, we only read it.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/cardlister/cardlister/internal/cache"
	"github.com/cardlister/cardlister/internal/model"
)

// ErrNotFound is returned for lookup misses and for any catalog failure
// the caller can only treat as "no data" (non-2xx status, unparseable
// body). The resolution pipeline keeps rendering other listings either
// way.
var ErrNotFound = errors.New("catalog: card not found")

const defaultBaseURL = "https://api.pokemontcg.io/v2"

// searchPageSize matches what the listing UI can usefully show.
const searchPageSize = 50

// Client talks to the catalog API with key auth, a bounded timeout and a
// token-bucket limiter so a large listing render can't trip the
// catalog's rate limits.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	cache   *cache.Cache
}

// New creates a catalog client. cache may be nil to disable set-list
// caching; apiKey may be empty for the catalog's anonymous tier.
func New(apiKey string, c *cache.Cache) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		client: &http.Client{
			Timeout:   10 * time.Second,
			Transport: newDecodingTransport(nil),
		},
		limiter: rate.NewLimiter(rate.Limit(3), 5),
		cache:   c,
	}
}

// cardJSON mirrors the catalog's wire shape for a single card.
type cardJSON struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Number string `json:"number"`
	Rarity string `json:"rarity"`
	Set    struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"set"`
	Images struct {
		Small string `json:"small"`
		Large string `json:"large"`
	} `json:"images"`
	TCGPlayer *struct {
		URL    string                         `json:"url"`
		Prices map[string]model.VariantPrices `json:"prices"`
	} `json:"tcgplayer"`
}

func (c cardJSON) toModel() *model.CatalogCard {
	card := &model.CatalogCard{
		ID:      c.ID,
		Name:    c.Name,
		Number:  c.Number,
		Rarity:  c.Rarity,
		SetID:   c.Set.ID,
		SetName: c.Set.Name,
	}
	card.ImageURL = c.Images.Large
	if card.ImageURL == "" {
		card.ImageURL = c.Images.Small
	}
	if c.TCGPlayer != nil {
		card.DetailURL = c.TCGPlayer.URL
		card.Prices = c.TCGPlayer.Prices
	}
	return card
}

// CardByID fetches a single card by its catalog ID.
func (c *Client) CardByID(ctx context.Context, id string) (*model.CatalogCard, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	var out struct {
		Data *cardJSON `json:"data"`
	}
	u := fmt.Sprintf("%s/cards/%s", c.baseURL, url.PathEscape(id))
	if err := c.get(ctx, u, &out); err != nil {
		return nil, err
	}
	if out.Data == nil {
		return nil, ErrNotFound
	}
	return out.Data.toModel(), nil
}

// CardBySetNumber fetches the card with the given number within a set.
func (c *Client) CardBySetNumber(ctx context.Context, setID, number string) (*model.CatalogCard, error) {
	if setID == "" || number == "" {
		return nil, ErrNotFound
	}
	q := fmt.Sprintf("set.id:%q AND number:%q", setID, number)
	u := fmt.Sprintf("%s/cards?q=%s&pageSize=1", c.baseURL, url.QueryEscape(q))

	var out struct {
		Data []cardJSON `json:"data"`
	}
	if err := c.get(ctx, u, &out); err != nil {
		return nil, err
	}
	if len(out.Data) == 0 {
		return nil, ErrNotFound
	}
	return out.Data[0].toModel(), nil
}

// Search runs a stop-word-filtered name search. Results come back in the
// catalog's own relevance/recency order (newest sets first); callers must
// not assume the order is stable across calls. An empty slice is a valid
// "nothing matched" answer, not an error.
func (c *Client) Search(ctx context.Context, queryText string, consumed ...string) ([]model.CatalogCard, error) {
	terms := SearchTerms(queryText, consumed...)
	q := buildNameQuery(queryText, terms)
	u := fmt.Sprintf("%s/cards?q=%s&pageSize=%d&orderBy=%s",
		c.baseURL, url.QueryEscape(q), searchPageSize, url.QueryEscape("-set.releaseDate"))

	var out struct {
		Data []cardJSON `json:"data"`
	}
	if err := c.get(ctx, u, &out); err != nil {
		return nil, err
	}
	cards := make([]model.CatalogCard, 0, len(out.Data))
	for _, cj := range out.Data {
		cards = append(cards, *cj.toModel())
	}
	return cards, nil
}

// Set is one catalog set, used by the create-listing search UI.
type Set struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ListSets returns all catalog sets, cached for a day; the set list
// changes a handful of times per year.
func (c *Client) ListSets(ctx context.Context) ([]Set, error) {
	if c.cache != nil {
		var sets []Set
		if hit, _ := c.cache.Get(cache.SetsKey(), &sets); hit {
			return sets, nil
		}
	}

	var out struct {
		Data []Set `json:"data"`
	}
	if err := c.get(ctx, c.baseURL+"/sets?orderBy=name", &out); err != nil {
		return nil, err
	}

	if c.cache != nil {
		_ = c.cache.Put(cache.SetsKey(), out.Data, 24*time.Hour)
	}
	return out.Data, nil
}

func (c *Client) get(ctx context.Context, u string, into interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("catalog request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("catalog status %d: %s: %w", resp.StatusCode, string(body), ErrNotFound)
	}

	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		// An unparseable body is treated the same as a miss.
		return fmt.Errorf("decoding catalog response: %v: %w", err, ErrNotFound)
	}
	return nil
}
