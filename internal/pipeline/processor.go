// Package pipeline fans listing resolution and price comparison out
// across a bounded worker pool. One slow or failing listing must never
// hold up or sink the rest of the page.
package pipeline

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/cardlister/cardlister/internal/model"
)

// perItemTimeout bounds the catalog and rate lookups for one listing.
const perItemTimeout = 10 * time.Second

// DefaultWorkers is the pool size used when the configuration does not
// say otherwise.
const DefaultWorkers = 8

// Resolver resolves a listing title to a catalog match.
type Resolver interface {
	Resolve(ctx context.Context, title string) model.ResolvedMatch
}

// Comparer builds the price comparison for a resolved listing.
type Comparer interface {
	Compare(ctx context.Context, listing model.Listing, card *model.CatalogCard) model.PriceComparison
}

// Row is one fully processed listing. Match and Comparison degrade
// independently: an unresolved listing still carries its raw data.
type Row struct {
	Listing    model.Listing          `json:"listing"`
	Match      model.ResolvedMatch    `json:"match"`
	Comparison *model.PriceComparison `json:"comparison,omitempty"`
}

// Processor runs the resolve-then-compare pipeline over a batch of
// listings.
type Processor struct {
	resolver Resolver
	comparer Comparer
	workers  int
	limiter  *rate.Limiter
}

// New creates a processor. workers <= 0 selects DefaultWorkers; limiter
// may be nil to run unthrottled.
func New(resolver Resolver, comparer Comparer, workers int, limiter *rate.Limiter) *Processor {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Processor{
		resolver: resolver,
		comparer: comparer,
		workers:  workers,
		limiter:  limiter,
	}
}

// Process resolves and compares every listing, preserving input order in
// the returned rows. Cancelling ctx stops scheduling new work; listings
// not yet processed come back as bare rows with ConfidenceNone.
func (p *Processor) Process(ctx context.Context, listings []model.Listing) []Row {
	rows := make([]Row, len(listings))
	for i, l := range listings {
		rows[i] = Row{Listing: l, Match: model.ResolvedMatch{Confidence: model.ConfidenceNone}}
	}

	indexes := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < p.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				p.processOne(ctx, &rows[i])
			}
		}()
	}

feed:
	for i := range listings {
		select {
		case indexes <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(indexes)
	wg.Wait()

	return rows
}

// processOne fills in one row. Workers own disjoint rows, so no locking
// is needed around the writes.
func (p *Processor) processOne(ctx context.Context, row *Row) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return
		}
	}

	itemCtx, cancel := context.WithTimeout(ctx, perItemTimeout)
	defer cancel()

	row.Match = p.resolver.Resolve(itemCtx, row.Listing.Title)
	if row.Match.Card == nil {
		return
	}

	cmp := p.comparer.Compare(itemCtx, row.Listing, row.Match.Card)
	row.Comparison = &cmp

	if itemCtx.Err() != nil {
		log.Printf("pipeline: listing %s hit the per-item deadline", row.Listing.ItemID)
	}
}
