// Package resolve turns free-text listing titles into catalog cards.
//
// Titles mix abbreviations, grading jargon and reseller phrasing, so the
// resolver never fails: it walks an ordered chain of strategies and
// reports how it matched through the confidence field, leaving the trust
// decision to the caller.
package resolve

import (
	"context"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/cardlister/cardlister/internal/catalog"
	"github.com/cardlister/cardlister/internal/model"
	"github.com/cardlister/cardlister/internal/titles"
)

// Catalog is the subset of the catalog client the resolver needs.
type Catalog interface {
	CardBySetNumber(ctx context.Context, setID, number string) (*model.CatalogCard, error)
	Search(ctx context.Context, queryText string, consumed ...string) ([]model.CatalogCard, error)
}

// Resolver resolves listing titles against the external catalog.
type Resolver struct {
	catalog Catalog
}

// New creates a resolver backed by the given catalog.
func New(c Catalog) *Resolver {
	return &Resolver{catalog: c}
}

// Resolve maps a listing title to a catalog card. It never returns an
// error: every failure mode degrades to a lower-confidence match, ending
// at {nil, ConfidenceNone}. Strategies in order:
//
//  1. set ID + card number parsed from the title → direct lookup
//  2. name search with stop words and consumed tokens removed:
//     exact name equality, then substring containment, then first result
func (r *Resolver) Resolve(ctx context.Context, title string) model.ResolvedMatch {
	id := titles.Parse(title)

	if id.SetID != "" && id.Number != "" {
		if card, err := r.catalog.CardBySetNumber(ctx, id.SetID, id.Number); err == nil && card != nil {
			return model.ResolvedMatch{Card: card, Confidence: model.ConfidenceSetAndNumber}
		}
		// Miss or transport failure: fall through to name search.
	}

	consumed := []string{id.SetName, titles.FullNumber(title)}
	results, err := r.catalog.Search(ctx, title, consumed...)
	if err != nil || len(results) == 0 {
		return model.ResolvedMatch{Confidence: model.ConfidenceNone}
	}

	term := strings.ToLower(strings.Join(catalog.SearchTerms(title, consumed...), " "))

	if card := pickExact(results, term); card != nil {
		return model.ResolvedMatch{Card: card, Confidence: model.ConfidenceExact}
	}
	if card := pickSubstring(results, term); card != nil {
		return model.ResolvedMatch{Card: card, Confidence: model.ConfidenceNameSubstring}
	}
	return model.ResolvedMatch{Card: &results[0], Confidence: model.ConfidenceFirstResult}
}

func pickExact(results []model.CatalogCard, term string) *model.CatalogCard {
	if term == "" {
		return nil
	}
	for i := range results {
		if strings.EqualFold(results[i].Name, term) {
			return &results[i]
		}
	}
	return nil
}

// pickSubstring returns the containment candidate closest to the search
// term by edit distance. Substring containment alone can't rank
// "Charizard ex" against "Dark Charizard"; edit distance can.
func pickSubstring(results []model.CatalogCard, term string) *model.CatalogCard {
	if term == "" {
		return nil
	}

	var best *model.CatalogCard
	bestDist := -1
	for i := range results {
		name := strings.ToLower(results[i].Name)
		if !strings.Contains(name, term) && !strings.Contains(term, name) {
			continue
		}
		d := levenshtein.ComputeDistance(name, term)
		if bestDist < 0 || d < bestDist {
			best = &results[i]
			bestDist = d
		}
	}
	if best != nil {
		return best
	}

	// Word-level fallback: any search term appearing in a result name is
	// still better evidence than blindly taking the first result.
	for i := range results {
		name := strings.ToLower(results[i].Name)
		for _, word := range strings.Fields(term) {
			if strings.Contains(name, word) {
				return &results[i]
			}
		}
	}
	return nil
}
