package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/cardlister/cardlister/internal/catalog"
	"github.com/cardlister/cardlister/internal/ebay"
	"github.com/cardlister/cardlister/internal/model"
	"github.com/cardlister/cardlister/internal/pipeline"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeMarketplace struct {
	listings    []model.Listing
	listErr     error
	addedItemID string
	added       *ebay.NewListing
	revised     map[string]float64
}

func (f *fakeMarketplace) GetMyListings(ctx context.Context) ([]model.Listing, error) {
	return f.listings, f.listErr
}

func (f *fakeMarketplace) AddListing(ctx context.Context, nl ebay.NewListing) (string, error) {
	f.added = &nl
	return f.addedItemID, nil
}

func (f *fakeMarketplace) UpdateListingPrice(ctx context.Context, itemID string, price float64) error {
	if f.revised == nil {
		f.revised = map[string]float64{}
	}
	f.revised[itemID] = price
	return nil
}

type fakeCatalogAPI struct {
	card *model.CatalogCard
}

func (f *fakeCatalogAPI) Search(ctx context.Context, queryText string, consumed ...string) ([]model.CatalogCard, error) {
	if f.card == nil {
		return nil, nil
	}
	return []model.CatalogCard{*f.card}, nil
}

func (f *fakeCatalogAPI) CardByID(ctx context.Context, id string) (*model.CatalogCard, error) {
	if f.card == nil || f.card.ID != id {
		return nil, catalog.ErrNotFound
	}
	return f.card, nil
}

func (f *fakeCatalogAPI) ListSets(ctx context.Context) ([]catalog.Set, error) {
	return []catalog.Set{{ID: "base2", Name: "Jungle"}}, nil
}

type fakeAuth struct {
	result ebay.ExchangeResult
}

func (f *fakeAuth) AuthorizationURL() string { return "https://auth.example/authorize" }

func (f *fakeAuth) HandleCallback(ctx context.Context, query url.Values) ebay.ExchangeResult {
	return f.result
}

type fakeResolver struct{ card *model.CatalogCard }

func (f fakeResolver) Resolve(ctx context.Context, title string) model.ResolvedMatch {
	if f.card == nil {
		return model.ResolvedMatch{Confidence: model.ConfidenceNone}
	}
	return model.ResolvedMatch{Card: f.card, Confidence: model.ConfidenceExact}
}

type fakeComparer struct{}

func (fakeComparer) Compare(ctx context.Context, l model.Listing, card *model.CatalogCard) model.PriceComparison {
	return model.PriceComparison{ListingPrice: l.Price, CatalogPrice: 40, Currency: l.Currency}
}

func newTestServer(m *fakeMarketplace, cat *fakeCatalogAPI, auth *fakeAuth) (*Server, *ebay.SessionStore) {
	session := ebay.NewSessionStore()
	proc := pipeline.New(fakeResolver{card: cat.card}, fakeComparer{}, 2, nil)
	return New(m, cat, auth, session, proc, 10), session
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func jolteon() *model.CatalogCard {
	market := 40.0
	return &model.CatalogCard{
		ID: "base2-4", Name: "Jolteon", SetID: "base2", SetName: "Jungle",
		ImageURL: "https://img/jolteon.png",
		Prices:   map[string]model.VariantPrices{"holofoil": {Market: &market}},
	}
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(&fakeMarketplace{}, &fakeCatalogAPI{}, &fakeAuth{})
	w := doRequest(t, s, http.MethodGet, "/healthz", "")
	if w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}
}

func TestListListings(t *testing.T) {
	m := &fakeMarketplace{listings: []model.Listing{
		{ItemID: "1", Title: "Jolteon Jungle 4/64", Price: 30, Currency: "USD"},
	}}
	s, _ := newTestServer(m, &fakeCatalogAPI{card: jolteon()}, &fakeAuth{})

	w := doRequest(t, s, http.MethodGet, "/api/listings", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var resp struct {
		Rows []pipeline.Row `json:"rows"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Rows) != 1 || resp.Rows[0].Match.Card.Name != "Jolteon" {
		t.Errorf("rows = %+v", resp.Rows)
	}
}

func TestListListingsUnauthenticated(t *testing.T) {
	m := &fakeMarketplace{listErr: ebay.ErrNotAuthenticated}
	s, _ := newTestServer(m, &fakeCatalogAPI{}, &fakeAuth{})

	w := doRequest(t, s, http.MethodGet, "/api/listings", "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestListListingsUpstreamFailure(t *testing.T) {
	m := &fakeMarketplace{listErr: errors.New("ebay down")}
	s, _ := newTestServer(m, &fakeCatalogAPI{}, &fakeAuth{})

	w := doRequest(t, s, http.MethodGet, "/api/listings", "")
	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", w.Code)
	}
}

func TestListingsCSV(t *testing.T) {
	m := &fakeMarketplace{listings: []model.Listing{
		{ItemID: "1", Title: "Jolteon Jungle 4/64", Price: 30, Currency: "USD"},
	}}
	s, _ := newTestServer(m, &fakeCatalogAPI{card: jolteon()}, &fakeAuth{})

	w := doRequest(t, s, http.MethodGet, "/api/listings.csv", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(w.Body.String(), "Jolteon") {
		t.Errorf("CSV body missing card name:\n%s", w.Body.String())
	}
}

func TestOAuthCallbackAccepted(t *testing.T) {
	auth := &fakeAuth{result: ebay.ExchangeResult{
		State:      ebay.StateAuthorized,
		Credential: model.OAuthCredential{AccessToken: "tok"},
	}}
	s, session := newTestServer(&fakeMarketplace{}, &fakeCatalogAPI{}, auth)

	w := doRequest(t, s, http.MethodGet, "/oauth/callback?code=abc", "")
	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/auth/accepted" {
		t.Errorf("Location = %q, want /auth/accepted", loc)
	}
	cred, err := session.Snapshot()
	if err != nil || cred.AccessToken != "tok" {
		t.Errorf("session = %+v, %v, want the exchanged credential", cred, err)
	}
}

func TestOAuthCallbackRejected(t *testing.T) {
	auth := &fakeAuth{result: ebay.ExchangeResult{State: ebay.StateRejected, Reason: "access_denied"}}
	s, session := newTestServer(&fakeMarketplace{}, &fakeCatalogAPI{}, auth)

	w := doRequest(t, s, http.MethodGet, "/oauth/callback?error=access_denied", "")
	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/auth/rejected?error=access_denied" {
		t.Errorf("Location = %q", loc)
	}
	if _, err := session.Snapshot(); !errors.Is(err, ebay.ErrNotAuthenticated) {
		t.Error("rejected callback must leave the session unauthenticated")
	}
}

func TestCreateListingSuggestsPrice(t *testing.T) {
	m := &fakeMarketplace{addedItemID: "220"}
	s, _ := newTestServer(m, &fakeCatalogAPI{card: jolteon()}, &fakeAuth{})

	body := `{"cardId":"base2-4","title":"Jolteon Jungle 4/64 Holo"}`
	w := doRequest(t, s, http.MethodPost, "/api/listings", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if m.added == nil {
		t.Fatal("AddListing was never called")
	}
	// 40 market + 10% margin.
	if m.added.Price != 44 {
		t.Errorf("Price = %v, want the suggested 44", m.added.Price)
	}
	if len(m.added.ImageURLs) != 1 || m.added.ImageURLs[0] != "https://img/jolteon.png" {
		t.Errorf("ImageURLs = %v, want the catalog image", m.added.ImageURLs)
	}
}

func TestCreateListingGradedValidation(t *testing.T) {
	s, _ := newTestServer(&fakeMarketplace{}, &fakeCatalogAPI{}, &fakeAuth{})

	body := `{"title":"Jolteon","price":10,"graded":true}`
	w := doRequest(t, s, http.MethodPost, "/api/listings", body)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 without grader/grade", w.Code)
	}
}

func TestUpdatePrice(t *testing.T) {
	m := &fakeMarketplace{}
	s, _ := newTestServer(m, &fakeCatalogAPI{}, &fakeAuth{})

	w := doRequest(t, s, http.MethodPost, "/api/listings/110/price", `{"price":39.99}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if m.revised["110"] != 39.99 {
		t.Errorf("revised = %v", m.revised)
	}
}

func TestUpdatePriceRejectsZero(t *testing.T) {
	s, _ := newTestServer(&fakeMarketplace{}, &fakeCatalogAPI{}, &fakeAuth{})
	w := doRequest(t, s, http.MethodPost, "/api/listings/110/price", `{"price":0}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestSearchCardsRequiresQuery(t *testing.T) {
	s, _ := newTestServer(&fakeMarketplace{}, &fakeCatalogAPI{}, &fakeAuth{})
	w := doRequest(t, s, http.MethodGet, "/api/cards/search", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestGetCardNotFound(t *testing.T) {
	s, _ := newTestServer(&fakeMarketplace{}, &fakeCatalogAPI{}, &fakeAuth{})
	w := doRequest(t, s, http.MethodGet, "/api/cards/missing", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestSummarizeDescription(t *testing.T) {
	s, _ := newTestServer(&fakeMarketplace{}, &fakeCatalogAPI{}, &fakeAuth{})

	body := `{"html":"<p>Near mint</p><img src=\"https://img/x.jpg\">"}`
	w := doRequest(t, s, http.MethodPost, "/api/descriptions/summarize", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "Near mint") {
		t.Errorf("body = %s", w.Body.String())
	}
}
