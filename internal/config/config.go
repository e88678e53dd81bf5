// Package config provides configuration management for the mailbox tools.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Configuration validation errors.
var (
	ErrMissingBaseURL       = errors.New("graph.base_url is required")
	ErrInvalidBaseURL       = errors.New("graph.base_url must be an absolute http(s) URL")
	ErrMissingAPIVersion    = errors.New("graph.api_version is required")
	ErrInvalidPageSize      = errors.New("graph.page_size must be between 1 and 1000")
	ErrInvalidTimeout       = errors.New("graph.timeout_sec must be at least 1")
	ErrInvalidTokenURL      = errors.New("auth.token_url must be an absolute http(s) URL")
	ErrMissingFetchOutput   = errors.New("fetch.output is required")
	ErrMissingInput         = errors.New("normalize.input is required")
	ErrMissingOutputCSV     = errors.New("normalize.output_csv is required")
	ErrMissingOutputJSON    = errors.New("normalize.output_json is required")
	ErrSameOutputPaths      = errors.New("normalize.output_csv and normalize.output_json must differ")
	ErrInvalidSnippetWords  = errors.New("normalize.snippet_words must be at least 1")
	ErrInvalidLogLevel      = errors.New("logging.level must be one of: debug, info, warn, error")
	ErrInvalidLogFormat     = errors.New("logging.format must be 'text' or 'json'")
	ErrPlaceholderSettings  = errors.New("credentials still use placeholder values")
	ErrMissingCredentialKey = errors.New("credential value is empty")
)

// Placeholder values shipped in the example configuration.
const (
	PlaceholderTenantID = "your_tenant_id_here"
	PlaceholderClientID = "your_client_id_here"
	PlaceholderUsername = "your_email@domain.com"
	PlaceholderPassword = "your_password_here"
)

// Environment variables that override file settings.
const (
	EnvTenantID = "OUTLOOK_TENANT_ID"
	EnvClientID = "OUTLOOK_CLIENT_ID"
	EnvUsername = "OUTLOOK_USERNAME"
	EnvPassword = "OUTLOOK_PASSWORD"
)

// Config represents the complete tool configuration.
type Config struct {
	Graph     GraphConfig     `yaml:"graph"`
	Auth      AuthConfig      `yaml:"auth"`
	Fetch     FetchConfig     `yaml:"fetch"`
	Normalize NormalizeConfig `yaml:"normalize"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// GraphConfig contains mailbox API settings.
type GraphConfig struct {
	BaseURL    string `yaml:"base_url"`
	APIVersion string `yaml:"api_version"`
	PageSize   int    `yaml:"page_size"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// AuthConfig contains login settings.
type AuthConfig struct {
	TenantID string `yaml:"tenant_id"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	// TokenURL overrides the tenant token endpoint.
	TokenURL string `yaml:"token_url"`
	// TokenCache stores issued tokens in the system keyring.
	TokenCache bool `yaml:"token_cache"`
	// KeyringService names the keyring service holding secrets.
	KeyringService string `yaml:"keyring_service"`
	// KeyringDir is the file backend directory when no system keyring exists.
	KeyringDir string `yaml:"keyring_dir"`
}

// FetchConfig controls retrieval.
type FetchConfig struct {
	InboxFilterKeyword string `yaml:"inbox_filter_keyword"`
	ExpandAttachments  bool   `yaml:"expand_attachments"`
	Output             string `yaml:"output"`
}

// NormalizeConfig controls flattening and export.
type NormalizeConfig struct {
	Input          string `yaml:"input"`
	OutputCSV      string `yaml:"output_csv"`
	OutputJSON     string `yaml:"output_json"`
	SnippetWords   int    `yaml:"snippet_words"`
	HTMLToMarkdown bool   `yaml:"html_to_markdown"`
	Manifest       string `yaml:"manifest"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Graph: GraphConfig{
			BaseURL:    "https://graph.microsoft.com",
			APIVersion: "v1.0",
			PageSize:   100,
			TimeoutSec: 30,
		},
		Auth: AuthConfig{
			TenantID:       PlaceholderTenantID,
			ClientID:       PlaceholderClientID,
			Username:       PlaceholderUsername,
			TokenCache:     true,
			KeyringService: "outlookflat",
		},
		Fetch: FetchConfig{
			InboxFilterKeyword: "wisp",
			Output:             "outlook_data.json",
		},
		Normalize: NormalizeConfig{
			Input:        "outlook_data.json",
			OutputCSV:    "outlook_data_processed.csv",
			OutputJSON:   "outlook_data_processed.json",
			SnippetWords: 50,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig loads configuration from a YAML file over the defaults, then
// applies environment overrides and validates.
func LoadConfig(filepath string) (*Config, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.ApplyEnv(os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault loads filepath when set, otherwise returns the validated
// defaults with environment overrides.
func LoadOrDefault(filepath string) (*Config, error) {
	if filepath != "" {
		return LoadConfig(filepath)
	}

	cfg := Default()
	cfg.ApplyEnv(os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves configuration to YAML file.
func (c *Config) SaveConfig(filepath string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filepath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides credentials from the environment. lookup is usually
// os.LookupEnv; empty values are ignored.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	overrides := map[string]*string{
		EnvTenantID: &c.Auth.TenantID,
		EnvClientID: &c.Auth.ClientID,
		EnvUsername: &c.Auth.Username,
		EnvPassword: &c.Auth.Password,
	}

	for key, field := range overrides {
		if v, ok := lookup(key); ok && v != "" {
			*field = v
		}
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Graph.BaseURL == "" {
		return ErrMissingBaseURL
	}

	if !isHTTPURL(c.Graph.BaseURL) {
		return fmt.Errorf("%w: %s", ErrInvalidBaseURL, c.Graph.BaseURL)
	}

	if c.Graph.APIVersion == "" {
		return ErrMissingAPIVersion
	}

	if c.Graph.PageSize < 1 || c.Graph.PageSize > 1000 {
		return ErrInvalidPageSize
	}

	if c.Graph.TimeoutSec < 1 {
		return ErrInvalidTimeout
	}

	if c.Auth.TokenURL != "" && !isHTTPURL(c.Auth.TokenURL) {
		return fmt.Errorf("%w: %s", ErrInvalidTokenURL, c.Auth.TokenURL)
	}

	if c.Fetch.Output == "" {
		return ErrMissingFetchOutput
	}

	if c.Normalize.Input == "" {
		return ErrMissingInput
	}

	if c.Normalize.OutputCSV == "" {
		return ErrMissingOutputCSV
	}

	if c.Normalize.OutputJSON == "" {
		return ErrMissingOutputJSON
	}

	if c.Normalize.OutputCSV == c.Normalize.OutputJSON {
		return ErrSameOutputPaths
	}

	if c.Normalize.SnippetWords < 1 {
		return ErrInvalidSnippetWords
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return ErrInvalidLogLevel
	}

	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return ErrInvalidLogFormat
	}

	return nil
}

// CredentialCheck is the status of one credential setting.
type CredentialCheck struct {
	Name string
	Err  error
}

// OK reports whether the setting is usable.
func (cc CredentialCheck) OK() bool {
	return cc.Err == nil
}

// CheckCredentials inspects every credential setting. The password is
// optional here because it may live in the keyring.
func (c *Config) CheckCredentials() []CredentialCheck {
	settings := []struct {
		name        string
		value       string
		placeholder string
		required    bool
	}{
		{"tenant_id", c.Auth.TenantID, PlaceholderTenantID, true},
		{"client_id", c.Auth.ClientID, PlaceholderClientID, true},
		{"username", c.Auth.Username, PlaceholderUsername, true},
		{"password", c.Auth.Password, PlaceholderPassword, false},
	}

	checks := make([]CredentialCheck, 0, len(settings))

	for _, s := range settings {
		check := CredentialCheck{Name: s.name}

		switch {
		case s.value == s.placeholder:
			check.Err = ErrPlaceholderSettings
		case strings.TrimSpace(s.value) == "" && s.required:
			check.Err = ErrMissingCredentialKey
		}

		checks = append(checks, check)
	}

	return checks
}

// CredentialsReady returns an error naming every unusable credential setting.
func (c *Config) CredentialsReady() error {
	var failed []string

	for _, check := range c.CheckCredentials() {
		if !check.OK() {
			failed = append(failed, check.Name)
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("%w: %s", ErrPlaceholderSettings, strings.Join(failed, ", "))
	}

	return nil
}

// Timeout returns the HTTP timeout duration.
func (g *GraphConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSec) * time.Second
}

// Endpoint returns the versioned API root, e.g. https://graph.microsoft.com/v1.0.
func (g *GraphConfig) Endpoint() string {
	return strings.TrimRight(g.BaseURL, "/") + "/" + strings.Trim(g.APIVersion, "/")
}

// String returns a string representation of the config. Secrets are omitted.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Endpoint: %s, Tenant: %s, User: %s, PageSize: %d}",
		c.Graph.Endpoint(),
		c.Auth.TenantID,
		c.Auth.Username,
		c.Graph.PageSize,
	)
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}

	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
