// Package server exposes the HTTP surface consumed by the listing UI.
package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/cardlister/cardlister/internal/catalog"
	"github.com/cardlister/cardlister/internal/ebay"
	"github.com/cardlister/cardlister/internal/listing"
	"github.com/cardlister/cardlister/internal/model"
	"github.com/cardlister/cardlister/internal/pipeline"
	"github.com/cardlister/cardlister/internal/prices"
	"github.com/cardlister/cardlister/internal/report"
)

// Marketplace is the Trading API surface the server needs.
type Marketplace interface {
	GetMyListings(ctx context.Context) ([]model.Listing, error)
	AddListing(ctx context.Context, nl ebay.NewListing) (string, error)
	UpdateListingPrice(ctx context.Context, itemID string, price float64) error
}

// Catalog is the card catalog surface the server needs.
type Catalog interface {
	Search(ctx context.Context, queryText string, consumed ...string) ([]model.CatalogCard, error)
	CardByID(ctx context.Context, id string) (*model.CatalogCard, error)
	ListSets(ctx context.Context) ([]catalog.Set, error)
}

// Authorizer is the OAuth surface the server needs.
type Authorizer interface {
	AuthorizationURL() string
	HandleCallback(ctx context.Context, query url.Values) ebay.ExchangeResult
}

// Server wires the HTTP routes to the domain services.
type Server struct {
	marketplace Marketplace
	catalog     Catalog
	auth        Authorizer
	session     *ebay.SessionStore
	processor   *pipeline.Processor
	marginPct   float64
}

// New creates a server over the given services.
func New(m Marketplace, c Catalog, a Authorizer, s *ebay.SessionStore, p *pipeline.Processor, marginPct float64) *Server {
	return &Server{
		marketplace: m,
		catalog:     c,
		auth:        a,
		session:     s,
		processor:   p,
		marginPct:   marginPct,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/oauth/login", s.oauthLogin)
	r.GET("/oauth/callback", s.oauthCallback)
	r.POST("/oauth/logout", s.oauthLogout)

	api := r.Group("/api")
	{
		api.GET("/listings", s.listListings)
		api.GET("/listings.csv", s.listingsCSV)
		api.POST("/listings", s.createListing)
		api.POST("/listings/:id/price", s.updatePrice)
		api.GET("/cards/search", s.searchCards)
		api.GET("/cards/:id", s.getCard)
		api.GET("/sets", s.listSets)
		api.POST("/descriptions/summarize", s.summarizeDescription)
	}

	return r
}

func (s *Server) oauthLogin(c *gin.Context) {
	c.Redirect(http.StatusFound, s.auth.AuthorizationURL())
}

// oauthCallback finishes the authorization-code flow. The browser ends
// up on a static accepted/rejected page either way; token material never
// appears in a URL.
func (s *Server) oauthCallback(c *gin.Context) {
	result := s.auth.HandleCallback(c.Request.Context(), c.Request.URL.Query())
	if result.State != ebay.StateAuthorized {
		log.Printf("server: authorization rejected: %s", result.Reason)
		c.Redirect(http.StatusFound, "/auth/rejected?error="+url.QueryEscape(result.Reason))
		return
	}
	s.session.Replace(result.Credential)
	c.Redirect(http.StatusFound, "/auth/accepted")
}

func (s *Server) oauthLogout(c *gin.Context) {
	s.session.Clear()
	c.JSON(http.StatusOK, gin.H{"status": "logged_out"})
}

func (s *Server) listListings(c *gin.Context) {
	listings, err := s.marketplace.GetMyListings(c.Request.Context())
	if err != nil {
		s.marketplaceError(c, err)
		return
	}
	rows := s.processor.Process(c.Request.Context(), listings)
	c.JSON(http.StatusOK, gin.H{"rows": rows})
}

func (s *Server) listingsCSV(c *gin.Context) {
	listings, err := s.marketplace.GetMyListings(c.Request.Context())
	if err != nil {
		s.marketplaceError(c, err)
		return
	}
	rows := s.processor.Process(c.Request.Context(), listings)

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="`+report.Filename("inventory")+`"`)
	if err := report.WriteCSV(c.Writer, rows); err != nil {
		log.Printf("server: writing CSV report: %v", err)
	}
}

type createListingRequest struct {
	CardID    string   `json:"cardId"`
	Title     string   `json:"title" binding:"required"`
	Price     float64  `json:"price"`
	Quantity  int      `json:"quantity"`
	Condition string   `json:"condition"`
	ImageURLs []string `json:"imageUrls"`
	Graded    bool     `json:"graded"`
	Grader    string   `json:"grader"`
	Grade     string   `json:"grade"`
}

// createListing creates a marketplace listing. When no price is given
// and the card is known, the catalog market price plus the configured
// margin is used.
func (s *Server) createListing(c *gin.Context) {
	var req createListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Graded && (req.Grader == "" || req.Grade == "") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "graded listings need grader and grade"})
		return
	}

	imageURLs := req.ImageURLs
	if req.CardID != "" {
		card, err := s.catalog.CardByID(c.Request.Context(), req.CardID)
		if err != nil && !errors.Is(err, catalog.ErrNotFound) {
			c.JSON(http.StatusBadGateway, gin.H{"error": "catalog unavailable"})
			return
		}
		if card != nil {
			if req.Price == 0 {
				req.Price = prices.SuggestPrice(card, s.marginPct)
			}
			if len(imageURLs) == 0 && card.ImageURL != "" {
				imageURLs = []string{card.ImageURL}
			}
		}
	}
	if req.Price <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "price is required when the card has no catalog price"})
		return
	}

	itemID, err := s.marketplace.AddListing(c.Request.Context(), ebay.NewListing{
		Title:       req.Title,
		Description: listing.BuildHTML(req.Title, req.Condition, imageURLs),
		Price:       req.Price,
		Quantity:    req.Quantity,
		ImageURLs:   imageURLs,
		Graded:      req.Graded,
		Grader:      req.Grader,
		Grade:       req.Grade,
	})
	if err != nil {
		s.marketplaceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"itemId": itemID})
}

type updatePriceRequest struct {
	Price float64 `json:"price" binding:"required,gt=0"`
}

func (s *Server) updatePrice(c *gin.Context) {
	var req updatePriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.marketplace.UpdateListingPrice(c.Request.Context(), c.Param("id"), req.Price); err != nil {
		s.marketplaceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"itemId": c.Param("id"), "price": req.Price})
}

func (s *Server) searchCards(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}
	cards, err := s.catalog.Search(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "catalog unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cards": cards})
}

func (s *Server) getCard(c *gin.Context) {
	card, err := s.catalog.CardByID(c.Request.Context(), c.Param("id"))
	if errors.Is(err, catalog.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "card not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "catalog unavailable"})
		return
	}
	c.JSON(http.StatusOK, card)
}

func (s *Server) listSets(c *gin.Context) {
	sets, err := s.catalog.ListSets(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "catalog unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sets": sets})
}

type summarizeRequest struct {
	HTML string `json:"html" binding:"required"`
}

func (s *Server) summarizeDescription(c *gin.Context) {
	var req summarizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	summary, err := listing.Summarize(req.HTML)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unparseable description"})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// marketplaceError maps marketplace failures onto HTTP statuses. A
// missing credential is the caller's problem; everything else is the
// upstream's.
func (s *Server) marketplaceError(c *gin.Context, err error) {
	if errors.Is(err, ebay.ErrNotAuthenticated) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated", "login": "/oauth/login"})
		return
	}
	log.Printf("server: marketplace call failed: %v", err)
	c.JSON(http.StatusBadGateway, gin.H{"error": "marketplace unavailable"})
}
