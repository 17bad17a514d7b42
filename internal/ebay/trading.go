package ebay

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cardlister/cardlister/internal/model"
)

const (
	tradingNamespace = "urn:ebay:apis:eBLBaseComponents"
	compatibilityLvl = "967"
	siteIDUS         = "0"

	// cardCategoryID is the marketplace's "CCG Individual Cards" leaf.
	cardCategoryID = "183454"
	// Condition IDs: 2750 is "Graded", 4000 is "Ungraded" within the
	// trading-card category tree.
	conditionGraded   = "2750"
	conditionUngraded = "4000"
	// Condition descriptor IDs for graded cards.
	descriptorGrader = "27501"
	descriptorGrade  = "27502"

	listingsPerPage = 200
)

// TradingConfig identifies the application to the Trading API.
type TradingConfig struct {
	DevID   string
	AppID   string
	CertID  string
	Sandbox bool
}

// TradingClient issues authenticated Trading API calls. All calls POST
// an XML body to a single endpoint; the call name travels in a header.
type TradingClient struct {
	cfg      TradingConfig
	client   *http.Client
	session  *SessionStore
	endpoint string
}

// NewTradingClient creates a Trading API client that reads its token
// from the given session store on every call.
func NewTradingClient(cfg TradingConfig, session *SessionStore) *TradingClient {
	endpoint := "https://api.ebay.com/ws/api.dll"
	if cfg.Sandbox {
		endpoint = "https://api.sandbox.ebay.com/ws/api.dll"
	}
	return &TradingClient{
		cfg:      cfg,
		client:   &http.Client{Timeout: 30 * time.Second},
		session:  session,
		endpoint: endpoint,
	}
}

type requesterCredentials struct {
	EBayAuthToken string `xml:"eBayAuthToken"`
}

type apiError struct {
	ShortMessage  string `xml:"ShortMessage"`
	LongMessage   string `xml:"LongMessage"`
	ErrorCode     string `xml:"ErrorCode"`
	SeverityCode  string `xml:"SeverityCode"`
	ErrorClassify string `xml:"ErrorClassification"`
}

type amount struct {
	Value      float64 `xml:",chardata"`
	CurrencyID string  `xml:"currencyID,attr"`
}

type getMyeBaySellingRequest struct {
	XMLName              xml.Name             `xml:"GetMyeBaySellingRequest"`
	Xmlns                string               `xml:"xmlns,attr"`
	RequesterCredentials requesterCredentials `xml:"RequesterCredentials"`
	ActiveList           struct {
		Include    bool `xml:"Include"`
		Pagination struct {
			EntriesPerPage int `xml:"EntriesPerPage"`
			PageNumber     int `xml:"PageNumber"`
		} `xml:"Pagination"`
	} `xml:"ActiveList"`
	DetailLevel string `xml:"DetailLevel"`
}

type sellingItem struct {
	ItemID         string `xml:"ItemID"`
	Title          string `xml:"Title"`
	ListingDetails struct {
		ViewItemURL string `xml:"ViewItemURL"`
	} `xml:"ListingDetails"`
	SellingStatus struct {
		CurrentPrice          amount `xml:"CurrentPrice"`
		ConvertedCurrentPrice amount `xml:"ConvertedCurrentPrice"`
	} `xml:"SellingStatus"`
	PictureDetails struct {
		GalleryURL string   `xml:"GalleryURL"`
		PictureURL []string `xml:"PictureURL"`
	} `xml:"PictureDetails"`
}

type getMyeBaySellingResponse struct {
	XMLName    xml.Name   `xml:"GetMyeBaySellingResponse"`
	Ack        string     `xml:"Ack"`
	Errors     []apiError `xml:"Errors"`
	ActiveList struct {
		ItemArray struct {
			Items []sellingItem `xml:"Item"`
		} `xml:"ItemArray"`
		PaginationResult struct {
			TotalNumberOfPages int `xml:"TotalNumberOfPages"`
		} `xml:"PaginationResult"`
	} `xml:"ActiveList"`
}

// GetMyListings fetches every active listing for the authenticated
// seller, walking pagination until the marketplace reports no more
// pages.
func (c *TradingClient) GetMyListings(ctx context.Context) ([]model.Listing, error) {
	cred, err := c.session.Snapshot()
	if err != nil {
		return nil, err
	}

	var listings []model.Listing
	for page := 1; ; page++ {
		req := getMyeBaySellingRequest{Xmlns: tradingNamespace}
		req.RequesterCredentials.EBayAuthToken = cred.AccessToken
		req.ActiveList.Include = true
		req.ActiveList.Pagination.EntriesPerPage = listingsPerPage
		req.ActiveList.Pagination.PageNumber = page
		req.DetailLevel = "ReturnAll"

		var resp getMyeBaySellingResponse
		if err := c.call(ctx, "GetMyeBaySelling", req, &resp); err != nil {
			return nil, err
		}
		if err := ackError(resp.Ack, resp.Errors); err != nil {
			return nil, err
		}

		for _, item := range resp.ActiveList.ItemArray.Items {
			listings = append(listings, convertItem(item))
		}
		if page >= resp.ActiveList.PaginationResult.TotalNumberOfPages {
			break
		}
	}
	return listings, nil
}

// convertItem maps a Trading API item onto the neutral listing model.
// ConvertedCurrentPrice reflects the seller's site currency and is
// preferred; CurrentPrice is the fallback for items listed in it.
func convertItem(item sellingItem) model.Listing {
	price := item.SellingStatus.ConvertedCurrentPrice
	if price.CurrencyID == "" {
		price = item.SellingStatus.CurrentPrice
	}

	image := item.PictureDetails.GalleryURL
	if image == "" && len(item.PictureDetails.PictureURL) > 0 {
		image = item.PictureDetails.PictureURL[0]
	}

	return model.Listing{
		ItemID:   item.ItemID,
		Title:    item.Title,
		Price:    price.Value,
		Currency: price.CurrencyID,
		ImageURL: image,
		URL:      item.ListingDetails.ViewItemURL,
	}
}

// NewListing describes a card listing to create. Grader and Grade are
// required when Graded is set; the marketplace rejects graded-condition
// listings without their descriptors.
type NewListing struct {
	Title       string
	Description string
	Price       float64
	Quantity    int
	ImageURLs   []string
	Graded      bool
	Grader      string
	Grade       string
}

type conditionDescriptor struct {
	Name  string `xml:"Name"`
	Value string `xml:"Value"`
}

type addItemRequest struct {
	XMLName              xml.Name             `xml:"AddItemRequest"`
	Xmlns                string               `xml:"xmlns,attr"`
	RequesterCredentials requesterCredentials `xml:"RequesterCredentials"`
	Item                 struct {
		Title           string `xml:"Title"`
		Description     string `xml:"Description"`
		PrimaryCategory struct {
			CategoryID string `xml:"CategoryID"`
		} `xml:"PrimaryCategory"`
		StartPrice           amount `xml:"StartPrice"`
		ConditionID          string `xml:"ConditionID"`
		ConditionDescriptors *struct {
			ConditionDescriptor []conditionDescriptor `xml:"ConditionDescriptor"`
		} `xml:"ConditionDescriptors,omitempty"`
		Country         string `xml:"Country"`
		Currency        string `xml:"Currency"`
		DispatchTimeMax int    `xml:"DispatchTimeMax"`
		ListingDuration string `xml:"ListingDuration"`
		ListingType     string `xml:"ListingType"`
		PictureDetails  struct {
			PictureURL []string `xml:"PictureURL"`
		} `xml:"PictureDetails"`
		Quantity       int `xml:"Quantity"`
		ReturnPolicy   struct {
			ReturnsAcceptedOption string `xml:"ReturnsAcceptedOption"`
			ReturnsWithinOption   string `xml:"ReturnsWithinOption"`
			ShippingCostPaidBy    string `xml:"ShippingCostPaidByOption"`
		} `xml:"ReturnPolicy"`
		ShippingDetails struct {
			ShippingType           string `xml:"ShippingType"`
			ShippingServiceOptions struct {
				ShippingServicePriority int     `xml:"ShippingServicePriority"`
				ShippingService         string  `xml:"ShippingService"`
				ShippingServiceCost     float64 `xml:"ShippingServiceCost"`
			} `xml:"ShippingServiceOptions"`
		} `xml:"ShippingDetails"`
		Site string `xml:"Site"`
	} `xml:"Item"`
}

type addItemResponse struct {
	XMLName xml.Name   `xml:"AddItemResponse"`
	Ack     string     `xml:"Ack"`
	ItemID  string     `xml:"ItemID"`
	Errors  []apiError `xml:"Errors"`
	Fees    struct {
		Fee []struct {
			Name string `xml:"Name"`
			Fee  amount `xml:"Fee"`
		} `xml:"Fee"`
	} `xml:"Fees"`
}

// AddListing creates a fixed-price, good-til-cancelled card listing and
// returns the new item ID.
func (c *TradingClient) AddListing(ctx context.Context, nl NewListing) (string, error) {
	cred, err := c.session.Snapshot()
	if err != nil {
		return "", err
	}
	if nl.Quantity <= 0 {
		nl.Quantity = 1
	}

	req := addItemRequest{Xmlns: tradingNamespace}
	req.RequesterCredentials.EBayAuthToken = cred.AccessToken
	req.Item.Title = nl.Title
	req.Item.Description = nl.Description
	req.Item.PrimaryCategory.CategoryID = cardCategoryID
	req.Item.StartPrice = amount{Value: nl.Price, CurrencyID: "USD"}
	req.Item.Country = "US"
	req.Item.Currency = "USD"
	req.Item.DispatchTimeMax = 3
	req.Item.ListingDuration = "GTC"
	req.Item.ListingType = "FixedPriceItem"
	req.Item.PictureDetails.PictureURL = nl.ImageURLs
	req.Item.Quantity = nl.Quantity
	req.Item.ReturnPolicy.ReturnsAcceptedOption = "ReturnsAccepted"
	req.Item.ReturnPolicy.ReturnsWithinOption = "Days_30"
	req.Item.ReturnPolicy.ShippingCostPaidBy = "Buyer"
	req.Item.ShippingDetails.ShippingType = "Flat"
	req.Item.ShippingDetails.ShippingServiceOptions.ShippingServicePriority = 1
	req.Item.ShippingDetails.ShippingServiceOptions.ShippingService = "USPSFirstClass"
	req.Item.ShippingDetails.ShippingServiceOptions.ShippingServiceCost = 4.99
	req.Item.Site = "US"

	if nl.Graded {
		req.Item.ConditionID = conditionGraded
		req.Item.ConditionDescriptors = &struct {
			ConditionDescriptor []conditionDescriptor `xml:"ConditionDescriptor"`
		}{
			ConditionDescriptor: []conditionDescriptor{
				{Name: descriptorGrader, Value: nl.Grader},
				{Name: descriptorGrade, Value: nl.Grade},
			},
		}
	} else {
		req.Item.ConditionID = conditionUngraded
	}

	var resp addItemResponse
	if err := c.call(ctx, "AddItem", req, &resp); err != nil {
		return "", err
	}
	if err := ackError(resp.Ack, resp.Errors); err != nil {
		return "", err
	}
	if resp.ItemID == "" {
		return "", fmt.Errorf("marketplace accepted the listing but returned no item ID")
	}
	return resp.ItemID, nil
}

type reviseItemRequest struct {
	XMLName              xml.Name             `xml:"ReviseItemRequest"`
	Xmlns                string               `xml:"xmlns,attr"`
	RequesterCredentials requesterCredentials `xml:"RequesterCredentials"`
	Item                 struct {
		ItemID     string `xml:"ItemID"`
		StartPrice amount `xml:"StartPrice"`
	} `xml:"Item"`
}

type reviseItemResponse struct {
	XMLName xml.Name   `xml:"ReviseItemResponse"`
	Ack     string     `xml:"Ack"`
	ItemID  string     `xml:"ItemID"`
	Errors  []apiError `xml:"Errors"`
}

// UpdateListingPrice revises an active listing's fixed price.
func (c *TradingClient) UpdateListingPrice(ctx context.Context, itemID string, price float64) error {
	cred, err := c.session.Snapshot()
	if err != nil {
		return err
	}
	if itemID == "" {
		return fmt.Errorf("item ID is required")
	}
	if price <= 0 {
		return fmt.Errorf("price must be positive, got %s", strconv.FormatFloat(price, 'f', -1, 64))
	}

	req := reviseItemRequest{Xmlns: tradingNamespace}
	req.RequesterCredentials.EBayAuthToken = cred.AccessToken
	req.Item.ItemID = itemID
	req.Item.StartPrice = amount{Value: price, CurrencyID: "USD"}

	var resp reviseItemResponse
	if err := c.call(ctx, "ReviseItem", req, &resp); err != nil {
		return err
	}
	return ackError(resp.Ack, resp.Errors)
}

// call POSTs one Trading API request and decodes the XML response.
func (c *TradingClient) call(ctx context.Context, callName string, reqBody, respInto interface{}) error {
	xmlData, err := xml.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshaling %s request: %w", callName, err)
	}
	payload := `<?xml version="1.0" encoding="utf-8"?>` + string(xmlData)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader([]byte(payload)))
	if err != nil {
		return fmt.Errorf("creating %s request: %w", callName, err)
	}
	req.Header.Set("X-EBAY-API-COMPATIBILITY-LEVEL", compatibilityLvl)
	req.Header.Set("X-EBAY-API-DEV-NAME", c.cfg.DevID)
	req.Header.Set("X-EBAY-API-APP-NAME", c.cfg.AppID)
	req.Header.Set("X-EBAY-API-CERT-NAME", c.cfg.CertID)
	req.Header.Set("X-EBAY-API-CALL-NAME", callName)
	req.Header.Set("X-EBAY-API-SITEID", siteIDUS)
	req.Header.Set("Content-Type", "text/xml")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("executing %s: %w", callName, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading %s response: %w", callName, err)
	}
	if err := xml.Unmarshal(body, respInto); err != nil {
		return fmt.Errorf("parsing %s response: %w", callName, err)
	}
	return nil
}

// ackError turns a non-success Ack into an error carrying the first
// API error message. "Warning" still counts as success.
func ackError(ack string, errs []apiError) error {
	if ack == "Success" || ack == "Warning" {
		return nil
	}
	msg := "unknown error"
	if len(errs) > 0 {
		msg = errs[0].LongMessage
		if msg == "" {
			msg = errs[0].ShortMessage
		}
	}
	return fmt.Errorf("marketplace API error: %s", msg)
}
