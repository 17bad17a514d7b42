package currency

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/cardlister/cardlister/internal/cache"
)

// refreshSchedule matches the cache TTL so a scheduled refresh lands just
// as the cached table would have gone stale.
const refreshSchedule = "@every 6h"

// Refresher keeps the rate table for one base currency warm in the
// background so interactive price comparisons rarely pay for a network
// round trip.
type Refresher struct {
	client *Client
	base   string
	cron   *cron.Cron
}

// NewRefresher creates a refresher for the given base currency.
func NewRefresher(client *Client, base string) *Refresher {
	return &Refresher{
		client: client,
		base:   base,
		cron:   cron.New(),
	}
}

// Start primes the table immediately, then refreshes on a fixed schedule
// until Stop is called.
func (r *Refresher) Start() error {
	r.refresh()

	if _, err := r.cron.AddFunc(refreshSchedule, r.refresh); err != nil {
		return fmt.Errorf("schedule rate refresh: %w", err)
	}
	r.cron.Start()
	return nil
}

// Stop halts the schedule. Does not wait for an in-flight refresh.
func (r *Refresher) Stop() {
	r.cron.Stop()
}

func (r *Refresher) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	rates, err := r.client.fetch(ctx, r.base)
	if err != nil {
		// A failed refresh just leaves the previous table in place.
		log.Printf("currency: rate refresh for %s failed: %v", r.base, err)
		return
	}
	if r.client.cache != nil {
		if err := r.client.cache.Put(cache.RatesKey(r.base), rates, ratesTTL); err != nil {
			log.Printf("currency: caching rates for %s failed: %v", r.base, err)
		}
	}
	log.Printf("currency: refreshed %d rates for base %s", len(rates), r.base)
}
