// Command cardlister serves the listing UI's backend: it reconciles a
// seller's active marketplace listings against catalog prices and
// brokers listing creation and repricing.
package main

import (
	"log"

	"golang.org/x/time/rate"

	"github.com/cardlister/cardlister/internal/cache"
	"github.com/cardlister/cardlister/internal/catalog"
	"github.com/cardlister/cardlister/internal/config"
	"github.com/cardlister/cardlister/internal/currency"
	"github.com/cardlister/cardlister/internal/ebay"
	"github.com/cardlister/cardlister/internal/pipeline"
	"github.com/cardlister/cardlister/internal/prices"
	"github.com/cardlister/cardlister/internal/resolve"
	"github.com/cardlister/cardlister/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	store, err := cache.New(cfg.CachePath)
	if err != nil {
		log.Fatalf("cache: %v", err)
	}

	rates := currency.New(store)
	refresher := currency.NewRefresher(rates, "USD")
	if err := refresher.Start(); err != nil {
		log.Fatalf("currency refresher: %v", err)
	}
	defer refresher.Stop()

	cards := catalog.New(cfg.TCGAPIKey, store)
	session := ebay.NewSessionStore()

	exchanger := ebay.NewExchanger(ebay.OAuthConfig{
		ClientID:     cfg.EbayAppID,
		ClientSecret: cfg.EbayCertID,
		RedirectURI:  cfg.RedirectURI,
		Scopes:       []string{"https://api.ebay.com/oauth/api_scope/sell.inventory"},
		Sandbox:      cfg.Sandbox,
	})
	trading := ebay.NewTradingClient(ebay.TradingConfig{
		DevID:   cfg.EbayDevID,
		AppID:   cfg.EbayAppID,
		CertID:  cfg.EbayCertID,
		Sandbox: cfg.Sandbox,
	}, session)

	processor := pipeline.New(
		resolve.New(cards),
		prices.New(rates, cfg.TargetCurrency),
		cfg.Workers,
		rate.NewLimiter(rate.Limit(5), 10),
	)

	srv := server.New(trading, cards, exchanger, session, processor, cfg.MarginPct)

	log.Printf("listening on %s (sandbox=%v)", cfg.ListenAddr, cfg.Sandbox)
	if err := srv.Router().Run(cfg.ListenAddr); err != nil {
		log.Fatalf("server: %v", err)
	}
}
