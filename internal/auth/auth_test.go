package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/99designs/keyring"
	"golang.org/x/oauth2"

	"outlookflat/internal/config"
	"outlookflat/internal/credential"
	"outlookflat/internal/logger"
)

func noEnv(string) (string, bool) { return "", false }

// newTokenServer fakes the token endpoint. It accepts only the given password.
func newTokenServer(t *testing.T, password string, calls *int32) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)

		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm failed: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")

		if r.Form.Get("grant_type") != "password" || r.Form.Get("password") != password {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"AADSTS50126: invalid username or password"}`))

			return
		}

		if r.Form.Get("client_id") != "client-1" {
			t.Errorf("client_id = %q, want client-1", r.Form.Get("client_id"))
		}

		if r.Form.Get("scope") != GraphScope {
			t.Errorf("scope = %q, want %q", r.Form.Get("scope"), GraphScope)
		}

		_, _ = w.Write([]byte(`{"access_token":"tok-123","token_type":"Bearer","expires_in":3600}`))
	}))

	t.Cleanup(srv.Close)

	return srv
}

func testConfig(tokenURL string) config.AuthConfig {
	return config.AuthConfig{
		TenantID:   "contoso",
		ClientID:   "client-1",
		Username:   "user@contoso.com",
		Password:   "s3cret",
		TokenURL:   tokenURL,
		TokenCache: true,
	}
}

func TestNewAuthenticator_TokenURL(t *testing.T) {
	a := NewAuthenticator(config.AuthConfig{TenantID: "contoso"}, nil, logger.Discard())

	want := "https://login.microsoftonline.com/contoso/oauth2/v2.0/token"
	if a.TokenURL() != want {
		t.Errorf("TokenURL() = %s, want %s", a.TokenURL(), want)
	}

	a = NewAuthenticator(config.AuthConfig{TenantID: "contoso", TokenURL: "http://localhost/token"}, nil, logger.Discard())
	if a.TokenURL() != "http://localhost/token" {
		t.Errorf("TokenURL() override = %s", a.TokenURL())
	}
}

func TestAuthenticator_Token_CachesInKeyring(t *testing.T) {
	var calls int32

	srv := newTokenServer(t, "s3cret", &calls)
	store := credential.NewStore(keyring.NewArrayKeyring(nil))

	a := NewAuthenticator(testConfig(srv.URL), store, logger.Discard(), WithLookupEnv(noEnv))

	tok, err := a.Token(context.Background())
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}

	if tok.AccessToken != "tok-123" {
		t.Errorf("AccessToken = %s, want tok-123", tok.AccessToken)
	}

	// A second authenticator over the same keyring reuses the cached token.
	b := NewAuthenticator(testConfig(srv.URL), store, logger.Discard(), WithLookupEnv(noEnv))

	tok, err = b.Token(context.Background())
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}

	if tok.AccessToken != "tok-123" {
		t.Errorf("cached AccessToken = %s, want tok-123", tok.AccessToken)
	}

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("token endpoint calls = %d, want 1", got)
	}

	if err := b.ClearCache(); err != nil {
		t.Fatalf("ClearCache failed: %v", err)
	}

	if _, err := b.Token(context.Background()); err != nil {
		t.Fatalf("Token failed: %v", err)
	}

	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("token endpoint calls after ClearCache = %d, want 2", got)
	}
}

func TestAuthenticator_Token_ExpiredCache(t *testing.T) {
	var calls int32

	srv := newTokenServer(t, "s3cret", &calls)
	store := credential.NewStore(keyring.NewArrayKeyring(nil))
	cfg := testConfig(srv.URL)

	old, _ := json.Marshal(&oauth2.Token{AccessToken: "old", Expiry: time.Now().Add(-time.Hour)})
	if err := store.Set(credential.TokenKey(cfg.ClientID, cfg.Username), string(old)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	tok, err := NewAuthenticator(cfg, store, logger.Discard(), WithLookupEnv(noEnv)).Token(context.Background())
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}

	if tok.AccessToken != "tok-123" || atomic.LoadInt32(&calls) != 1 {
		t.Errorf("expired cache should trigger a new grant, got %s after %d calls", tok.AccessToken, calls)
	}
}

func TestAuthenticator_Token_NoCacheWhenDisabled(t *testing.T) {
	var calls int32

	srv := newTokenServer(t, "s3cret", &calls)
	store := credential.NewStore(keyring.NewArrayKeyring(nil))
	cfg := testConfig(srv.URL)
	cfg.TokenCache = false

	if _, err := NewAuthenticator(cfg, store, logger.Discard()).Token(context.Background()); err != nil {
		t.Fatalf("Token failed: %v", err)
	}

	if _, err := store.Get(credential.TokenKey(cfg.ClientID, cfg.Username)); !errors.Is(err, credential.ErrNotFound) {
		t.Errorf("token should not be cached, got %v", err)
	}
}

func TestAuthenticator_Token_Rejected(t *testing.T) {
	var calls int32

	srv := newTokenServer(t, "other", &calls)

	_, err := NewAuthenticator(testConfig(srv.URL), nil, logger.Discard()).Token(context.Background())
	if !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("Token() = %v, want ErrAuthenticationFailed", err)
	}

	var retrieveErr *oauth2.RetrieveError
	if !errors.As(err, &retrieveErr) || retrieveErr.ErrorCode != "invalid_grant" {
		t.Errorf("expected wrapped invalid_grant RetrieveError, got %v", err)
	}
}

func TestAuthenticator_Token_MissingCredentials(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.AuthConfig
	}{
		{"No tenant", config.AuthConfig{ClientID: "c", Username: "u", Password: "p"}},
		{"No username", config.AuthConfig{TenantID: "t", ClientID: "c", Password: "p"}},
		{"No password", config.AuthConfig{TenantID: "t", ClientID: "c", Username: "u"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAuthenticator(tt.cfg, nil, logger.Discard(), WithLookupEnv(noEnv))

			if _, err := a.Token(context.Background()); !errors.Is(err, ErrMissingCredentials) {
				t.Errorf("Token() = %v, want ErrMissingCredentials", err)
			}
		})
	}
}

func TestAuthenticator_Password(t *testing.T) {
	withEnv := func(string) (string, bool) { return "from-env", true }

	storeWith := func(value string) *credential.Store {
		s := credential.NewStore(keyring.NewArrayKeyring(nil))
		if value != "" {
			_ = s.Set(credential.PasswordKey("u"), value)
		}

		return s
	}

	tests := []struct {
		name     string
		password string
		env      func(string) (string, bool)
		store    *credential.Store
		want     string
		wantErr  error
	}{
		{name: "Config wins", password: "from-config", env: withEnv, store: storeWith("from-keyring"), want: "from-config"},
		{name: "Placeholder ignored", password: config.PlaceholderPassword, env: withEnv, want: "from-env"},
		{name: "Env before keyring", env: withEnv, store: storeWith("from-keyring"), want: "from-env"},
		{name: "Keyring", env: noEnv, store: storeWith("from-keyring"), want: "from-keyring"},
		{name: "Nothing", env: noEnv, store: storeWith(""), wantErr: ErrMissingCredentials},
		{name: "No store", env: noEnv, wantErr: ErrMissingCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.AuthConfig{Username: "u", Password: tt.password}
			a := NewAuthenticator(cfg, tt.store, logger.Discard(), WithLookupEnv(tt.env))

			got, err := a.Password()
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Password() error = %v, want %v", err, tt.wantErr)
				}

				return
			}

			if err != nil {
				t.Fatalf("Password() unexpected error: %v", err)
			}

			if got != tt.want {
				t.Errorf("Password() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAuthenticator_Client_AddsBearer(t *testing.T) {
	var calls int32

	tokenSrv := newTokenServer(t, "s3cret", &calls)

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok-123" {
			t.Errorf("Authorization = %q, want Bearer tok-123", got)
		}

		w.WriteHeader(http.StatusNoContent)
	}))
	defer api.Close()

	a := NewAuthenticator(testConfig(tokenSrv.URL), nil, logger.Discard())

	client, err := a.Client(context.Background(), &http.Client{Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("Client failed: %v", err)
	}

	resp, err := client.Get(api.URL)
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want 204", resp.StatusCode)
	}
}
