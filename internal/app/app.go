// Package app wires configuration, logging, credentials and the mailbox
// client together for the command-line tools.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"outlookflat/internal/auth"
	"outlookflat/internal/config"
	"outlookflat/internal/credential"
	"outlookflat/internal/graph"
	"outlookflat/internal/logger"
)

// LoadConfig loads path, or the defaults when path is empty. A non-empty
// logLevel overrides logging.level.
func LoadConfig(path, logLevel string) (*config.Config, error) {
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, err
	}

	if logLevel != "" {
		cfg.Logging.Level = logLevel
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// ErrConfigExists is returned by InitConfig when the target file exists.
var ErrConfigExists = errors.New("config file already exists")

// InitConfig writes the default configuration to path, creating parent
// directories. An existing file is never overwritten.
func InitConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", ErrConfigExists, path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return config.Default().SaveConfig(path)
}

// NewLogger builds the logger described by cfg.
func NewLogger(cfg *config.Config) *logger.Logger {
	return logger.New(logger.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
}

// OpenStore opens the keyring named in cfg.
func OpenStore(cfg *config.Config) (*credential.Store, error) {
	return credential.Open(cfg.Auth.KeyringService, cfg.Auth.KeyringDir)
}

// NewAuthenticator builds an authenticator. A keyring that cannot be opened
// is logged and skipped, leaving config and environment passwords usable.
func NewAuthenticator(cfg *config.Config, log *logger.Logger) *auth.Authenticator {
	store, err := OpenStore(cfg)
	if err != nil {
		log.Warn("Keyring unavailable, continuing without it", "error", err)

		store = nil
	}

	httpClient := &http.Client{Timeout: cfg.Graph.Timeout()}

	return auth.NewAuthenticator(cfg.Auth, store, log, auth.WithHTTPClient(httpClient))
}

// NewFetcher authenticates and returns a fetcher for the configured mailbox.
func NewFetcher(ctx context.Context, cfg *config.Config, log *logger.Logger) (*graph.Fetcher, error) {
	if err := cfg.CredentialsReady(); err != nil {
		return nil, err
	}

	authenticator := NewAuthenticator(cfg, log)

	httpClient, err := authenticator.Client(ctx, &http.Client{Timeout: cfg.Graph.Timeout()})
	if err != nil {
		return nil, err
	}

	client, err := graph.NewClient(cfg.Graph.Endpoint(), httpClient, log.With("component", "graph"))
	if err != nil {
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}

	opts := graph.FetchOptions{
		InboxFilterKeyword: cfg.Fetch.InboxFilterKeyword,
		ExpandAttachments:  cfg.Fetch.ExpandAttachments,
		PageSize:           cfg.Graph.PageSize,
	}

	return graph.NewFetcher(client, opts, log.With("component", "fetcher")), nil
}
