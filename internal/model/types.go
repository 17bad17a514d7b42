package model

// Confidence ranks how reliable a title-to-catalog match is. Callers are
// expected to surface this to the user rather than trust matches blindly.
type Confidence string

const (
	// ConfidenceExact means the search returned a card whose name equals
	// the cleaned title exactly (case-insensitive).
	ConfidenceExact Confidence = "exact"
	// ConfidenceSetAndNumber means the card was fetched directly by the
	// set ID and card number parsed from the title.
	ConfidenceSetAndNumber Confidence = "set_and_number"
	// ConfidenceNameSubstring means a search result name contains the
	// cleaned title (or vice versa) as a substring.
	ConfidenceNameSubstring Confidence = "name_substring"
	// ConfidenceFirstResult means nothing better matched and the first
	// search result was taken as-is.
	ConfidenceFirstResult Confidence = "first_result"
	// ConfidenceNone means resolution produced no card at all.
	ConfidenceNone Confidence = "none"
)

// CardIdentity is what the title parser can recover from a free-text
// listing title. Any field may be empty; a partial identity is a valid,
// expected output.
type CardIdentity struct {
	SetID   string `json:"setId,omitempty"`
	SetName string `json:"setName,omitempty"`
	// Number is the numerator of a NNN/NNN card number, e.g. "4" from "4/64".
	Number string `json:"number,omitempty"`
}

// VariantPrices holds catalog market prices for one print variant
// (holofoil, reverseHolofoil, normal, ...). All values are USD.
type VariantPrices struct {
	Low       *float64 `json:"low,omitempty"`
	Mid       *float64 `json:"mid,omitempty"`
	High      *float64 `json:"high,omitempty"`
	Market    *float64 `json:"market,omitempty"`
	DirectLow *float64 `json:"directLow,omitempty"`
}

// CatalogCard is the canonical card record owned by the external catalog.
// We only ever hold references to it, never write back.
type CatalogCard struct {
	ID        string                   `json:"id"`
	Name      string                   `json:"name"`
	SetID     string                   `json:"setId"`
	SetName   string                   `json:"setName"`
	Number    string                   `json:"number"`
	Rarity    string                   `json:"rarity"`
	ImageURL  string                   `json:"imageUrl"`
	DetailURL string                   `json:"detailUrl"`
	Prices    map[string]VariantPrices `json:"prices,omitempty"`
}

// variantOrder is the preference order for picking a market price when a
// card has been printed in several variants.
var variantOrder = []string{"holofoil", "reverseHolofoil", "normal"}

// MarketUSD returns the card's market price in USD, preferring holofoil
// over reverse holo over normal. Returns 0 when no variant has a market
// price, which callers treat as "price unknown".
func (c *CatalogCard) MarketUSD() float64 {
	if c == nil || len(c.Prices) == 0 {
		return 0
	}
	for _, variant := range variantOrder {
		if vp, ok := c.Prices[variant]; ok && vp.Market != nil {
			return *vp.Market
		}
	}
	for _, vp := range c.Prices {
		if vp.Market != nil {
			return *vp.Market
		}
	}
	return 0
}

// ResolvedMatch is the outcome of one resolution attempt. Created fresh
// per attempt, never cached.
type ResolvedMatch struct {
	Card       *CatalogCard `json:"card,omitempty"`
	Confidence Confidence   `json:"confidence"`
}

// Listing is an active sale item on the marketplace.
type Listing struct {
	ItemID   string  `json:"itemId"`
	Title    string  `json:"title"`
	Price    float64 `json:"price"`
	Currency string  `json:"currency"`
	ImageURL string  `json:"image"`
	URL      string  `json:"url"`
}

// PriceComparison compares a marketplace listing price against the
// resolved catalog price, normalized to one currency. Ephemeral, derived,
// recomputed on every currency change.
type PriceComparison struct {
	ListingPrice float64 `json:"listingPrice"`
	CatalogPrice float64 `json:"catalogPrice"`
	Currency     string  `json:"currency"`
	// Unconverted is set when the rate lookup failed and the catalog
	// price is shown as-is instead of converted.
	Unconverted bool `json:"unconverted,omitempty"`
	// PercentDeviation is nil when the catalog price is zero (price
	// unknown), which is a legitimate condition rather than an error.
	PercentDeviation *float64 `json:"percentDeviation,omitempty"`
}

// OAuthCredential is the token material returned by the identity
// provider. Owned by the session; replaced wholesale on each successful
// exchange, never mutated in place.
type OAuthCredential struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}
