// Package ebay wraps the marketplace's OAuth flow and Trading API. The
// marketplace owns listings and tokens; this package only brokers
// access to them.
package ebay

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cardlister/cardlister/internal/model"
)

// ExchangeState tracks one authorization attempt through its linear
// lifecycle. There is no path back from a terminal state; a new attempt
// starts fresh.
type ExchangeState string

const (
	StateAwaitingCode    ExchangeState = "awaiting_code"
	StateExchangingToken ExchangeState = "exchanging_token"
	StateAuthorized      ExchangeState = "authorized"
	StateRejected        ExchangeState = "rejected"
)

// ExchangeResult is the terminal outcome of one authorization callback.
// Reason is only set on rejection and is safe to show to the user.
type ExchangeResult struct {
	State      ExchangeState
	Credential model.OAuthCredential
	Reason     string
}

// OAuthConfig carries the app identity registered with the marketplace.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scopes       []string
	Sandbox      bool
}

// Exchanger performs the authorization-code half of the OAuth flow.
type Exchanger struct {
	cfg      OAuthConfig
	client   *http.Client
	authBase string
	apiBase  string
}

// NewExchanger creates an exchanger for the configured marketplace
// environment.
func NewExchanger(cfg OAuthConfig) *Exchanger {
	authBase := "https://auth.ebay.com"
	apiBase := "https://api.ebay.com"
	if cfg.Sandbox {
		authBase = "https://auth.sandbox.ebay.com"
		apiBase = "https://api.sandbox.ebay.com"
	}
	return &Exchanger{
		cfg:      cfg,
		client:   &http.Client{Timeout: 10 * time.Second},
		authBase: authBase,
		apiBase:  apiBase,
	}
}

// AuthorizationURL is where the browser is sent to grant consent.
func (e *Exchanger) AuthorizationURL() string {
	q := url.Values{}
	q.Set("client_id", e.cfg.ClientID)
	q.Set("response_type", "code")
	q.Set("redirect_uri", e.cfg.RedirectURI)
	q.Set("scope", strings.Join(e.cfg.Scopes, " "))
	return e.authBase + "/oauth2/authorize?" + q.Encode()
}

// HandleCallback processes the provider's redirect query. A provider
// error or a missing code rejects the attempt without any token
// request; otherwise the code is exchanged.
func (e *Exchanger) HandleCallback(ctx context.Context, query url.Values) ExchangeResult {
	if reason := query.Get("error"); reason != "" {
		return ExchangeResult{State: StateRejected, Reason: reason}
	}
	code := query.Get("code")
	if code == "" {
		return ExchangeResult{State: StateRejected, Reason: "no_code"}
	}
	return e.Exchange(ctx, code)
}

// Exchange trades an authorization code for a credential. Every failure
// mode maps to a rejection with a stable reason string; the method never
// panics and never returns a partially valid credential.
func (e *Exchanger) Exchange(ctx context.Context, code string) ExchangeResult {
	if code == "" {
		return ExchangeResult{State: StateRejected, Reason: "no_code"}
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", e.cfg.RedirectURI)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		e.apiBase+"/identity/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return ExchangeResult{State: StateRejected, Reason: "transport_error:" + err.Error()}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Basic "+basicAuth(e.cfg.ClientID, e.cfg.ClientSecret))

	resp, err := e.client.Do(req)
	if err != nil {
		return ExchangeResult{State: StateRejected, Reason: "transport_error:" + err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 512))
		return ExchangeResult{State: StateRejected, Reason: fmt.Sprintf("token_http_%d", resp.StatusCode)}
	}

	var cred model.OAuthCredential
	if err := json.NewDecoder(resp.Body).Decode(&cred); err != nil || cred.AccessToken == "" {
		return ExchangeResult{State: StateRejected, Reason: "no_token"}
	}
	return ExchangeResult{State: StateAuthorized, Credential: cred}
}

func basicAuth(id, secret string) string {
	return base64.StdEncoding.EncodeToString([]byte(id + ":" + secret))
}
