// Package auth acquires bearer tokens for the mailbox API with the OAuth2
// resource-owner password grant.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"

	"outlookflat/internal/config"
	"outlookflat/internal/credential"
	"outlookflat/internal/logger"
)

// GraphScope requests every permission granted to the application.
const GraphScope = "https://graph.microsoft.com/.default"

// Authentication errors.
var (
	ErrMissingCredentials   = errors.New("missing credentials")
	ErrAuthenticationFailed = errors.New("authentication failed")
)

// Authenticator obtains and caches access tokens for one account.
type Authenticator struct {
	cfg        config.AuthConfig
	oauth      *oauth2.Config
	store      *credential.Store
	httpClient *http.Client
	log        *logger.Logger
	lookupEnv  func(string) (string, bool)

	mu sync.Mutex
}

// Option customizes an Authenticator.
type Option func(*Authenticator)

// WithHTTPClient sets the client used to reach the token endpoint.
func WithHTTPClient(c *http.Client) Option {
	return func(a *Authenticator) {
		a.httpClient = c
	}
}

// WithLookupEnv replaces os.LookupEnv for password resolution.
func WithLookupEnv(lookup func(string) (string, bool)) Option {
	return func(a *Authenticator) {
		a.lookupEnv = lookup
	}
}

// NewAuthenticator creates an authenticator. store may be nil, which disables
// keyring password lookup and token caching.
func NewAuthenticator(cfg config.AuthConfig, store *credential.Store, log *logger.Logger, opts ...Option) *Authenticator {
	endpoint := microsoft.AzureADEndpoint(cfg.TenantID)
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}

	// Public client: the client id travels in the form body with no secret.
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	a := &Authenticator{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID: cfg.ClientID,
			Endpoint: endpoint,
			Scopes:   []string{GraphScope},
		},
		store:      store,
		httpClient: http.DefaultClient,
		log:        log,
		lookupEnv:  os.LookupEnv,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// TokenURL returns the token endpoint in use.
func (a *Authenticator) TokenURL() string {
	return a.oauth.Endpoint.TokenURL
}

// Password resolves the account password from the config, then the
// environment, then the keyring.
func (a *Authenticator) Password() (string, error) {
	if a.cfg.Password != "" && a.cfg.Password != config.PlaceholderPassword {
		return a.cfg.Password, nil
	}

	if v, ok := a.lookupEnv(config.EnvPassword); ok && v != "" {
		return v, nil
	}

	if a.store != nil {
		v, err := a.store.Get(credential.PasswordKey(a.cfg.Username))
		if err == nil && v != "" {
			return v, nil
		}

		if err != nil && !errors.Is(err, credential.ErrNotFound) {
			return "", err
		}
	}

	return "", fmt.Errorf("%w: no password for %s", ErrMissingCredentials, a.cfg.Username)
}

// Token returns a valid access token, from the cache when possible.
func (a *Authenticator) Token(ctx context.Context) (*oauth2.Token, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if tok := a.cachedToken(); tok != nil {
		a.log.Debug("Using cached token", "expiry", tok.Expiry)
		return tok, nil
	}

	if a.cfg.TenantID == "" || a.cfg.ClientID == "" || a.cfg.Username == "" {
		return nil, fmt.Errorf("%w: tenant_id, client_id and username are required", ErrMissingCredentials)
	}

	password, err := a.Password()
	if err != nil {
		return nil, err
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)

	tok, err := a.oauth.PasswordCredentialsToken(ctx, a.cfg.Username, password)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuthenticationFailed, err)
	}

	a.log.Info("Authentication successful", "user", a.cfg.Username)
	a.saveToken(tok)

	return tok, nil
}

// TokenSource returns a source that reuses the current token until it
// expires and then runs the password grant again.
func (a *Authenticator) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	tok, err := a.Token(ctx)
	if err != nil {
		return nil, err
	}

	return oauth2.ReuseTokenSource(tok, &grantSource{ctx: ctx, auth: a}), nil
}

// Client returns an HTTP client that attaches bearer tokens to requests.
// base supplies the transport and timeout; nil means http.DefaultClient.
func (a *Authenticator) Client(ctx context.Context, base *http.Client) (*http.Client, error) {
	ts, err := a.TokenSource(ctx)
	if err != nil {
		return nil, err
	}

	if base == nil {
		base = http.DefaultClient
	}

	return &http.Client{
		Transport: &oauth2.Transport{Source: ts, Base: base.Transport},
		Timeout:   base.Timeout,
	}, nil
}

// ClearCache removes any cached token for the account.
func (a *Authenticator) ClearCache() error {
	if a.store == nil {
		return nil
	}

	return a.store.Delete(a.tokenKey())
}

func (a *Authenticator) tokenKey() string {
	return credential.TokenKey(a.cfg.ClientID, a.cfg.Username)
}

func (a *Authenticator) cachedToken() *oauth2.Token {
	if !a.cfg.TokenCache || a.store == nil {
		return nil
	}

	raw, err := a.store.Get(a.tokenKey())
	if err != nil {
		return nil
	}

	var tok oauth2.Token
	if err := json.Unmarshal([]byte(raw), &tok); err != nil {
		a.log.Warn("Discarding unreadable cached token", "error", err)
		return nil
	}

	if !tok.Valid() {
		return nil
	}

	return &tok
}

func (a *Authenticator) saveToken(tok *oauth2.Token) {
	if !a.cfg.TokenCache || a.store == nil {
		return
	}

	data, err := json.Marshal(tok)
	if err != nil {
		a.log.Warn("Failed to encode token for cache", "error", err)
		return
	}

	if err := a.store.Set(a.tokenKey(), string(data)); err != nil {
		a.log.Warn("Failed to cache token", "error", err)
	}
}

// grantSource runs a fresh grant each time the reuse wrapper needs a token.
type grantSource struct {
	ctx  context.Context
	auth *Authenticator
}

func (s *grantSource) Token() (*oauth2.Token, error) {
	return s.auth.Token(s.ctx)
}
