// Package prices compares marketplace listing prices against catalog
// market prices and suggests reprice targets.
package prices

import (
	"context"
	"log"
	"math"
	"strings"

	"github.com/cardlister/cardlister/internal/currency"
	"github.com/cardlister/cardlister/internal/model"
)

// catalogCurrency is the currency every catalog price is quoted in.
const catalogCurrency = "USD"

// Reconciler converts catalog prices into a listing's currency and
// derives the deviation between the two.
type Reconciler struct {
	rates    currency.Provider
	fallback string
}

// New creates a reconciler using the given rate provider. fallback is
// the currency assumed for listings that do not state one; empty means
// the catalog currency.
func New(rates currency.Provider, fallback string) *Reconciler {
	if fallback == "" {
		fallback = catalogCurrency
	}
	return &Reconciler{rates: rates, fallback: strings.ToUpper(fallback)}
}

// Compare builds a price comparison for one listing against a resolved
// card. Conversion failures never fail the comparison: the catalog price
// is passed through unconverted and flagged, because a comparison with a
// caveat is more useful to a seller than no row at all.
func (r *Reconciler) Compare(ctx context.Context, listing model.Listing, card *model.CatalogCard) model.PriceComparison {
	target := strings.ToUpper(listing.Currency)
	if target == "" {
		target = r.fallback
	}

	cmp := model.PriceComparison{
		ListingPrice: listing.Price,
		Currency:     target,
	}

	catalogUSD := card.MarketUSD()
	if catalogUSD == 0 {
		// Price unknown in the catalog. Deviation stays nil; this is a
		// normal outcome for obscure or very new cards.
		return cmp
	}

	cmp.CatalogPrice = catalogUSD
	if target != catalogCurrency {
		rate, err := r.rates.Rate(ctx, catalogCurrency, target)
		if err != nil {
			log.Printf("prices: rate %s->%s unavailable, showing unconverted: %v", catalogCurrency, target, err)
			cmp.Unconverted = true
		} else {
			cmp.CatalogPrice = roundCents(catalogUSD * rate)
		}
	}

	// Conversion and rounding can still land on zero (a penny card in a
	// strong currency). Same sentinel as the unknown-price case; never
	// divide by it.
	if cmp.CatalogPrice == 0 {
		return cmp
	}

	deviation := roundCents((listing.Price - cmp.CatalogPrice) / cmp.CatalogPrice * 100)
	cmp.PercentDeviation = &deviation
	return cmp
}

// SuggestPrice returns the catalog market price marked up by marginPct
// percent, rounded to cents. A zero market price yields zero; callers
// must not reprice off it.
func SuggestPrice(card *model.CatalogCard, marginPct float64) float64 {
	market := card.MarketUSD()
	if market == 0 {
		return 0
	}
	return roundCents(market * (1 + marginPct/100))
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
