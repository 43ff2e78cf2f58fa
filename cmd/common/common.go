// Package common provides shared utilities for fedshard CLI commands.
//
// This package contains helper functions used across the standalone service
// binaries (registry, server, aggregator, client) to reduce code
// duplication:
//
//   - Structured logger construction
//   - Ed25519 signing key loading and generation
//   - Round configuration and service discovery against the registry
//   - YAML configuration files with flag overrides
package common

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/privfl/fedshard/crypto"
	"github.com/privfl/fedshard/protocol"
	"github.com/privfl/fedshard/services"
)

// Config is the YAML configuration shared by the service binaries.
// Command-line flags override non-empty fields.
type Config struct {
	HTTPAddr    string `yaml:"http_addr"`
	MetricsAddr string `yaml:"metrics_addr"`
	RegistryURL string `yaml:"registry_url"`

	Keys struct {
		SigningKey string `yaml:"signing_key"`
	} `yaml:"keys"`

	Server struct {
		ID             int    `yaml:"id"`
		PublicEndpoint string `yaml:"public_endpoint"`
	} `yaml:"server"`

	Aggregator struct {
		PublicEndpoint string `yaml:"public_endpoint"`
		DatabaseDSN    string `yaml:"database_dsn"`
	} `yaml:"aggregator"`

	Client struct {
		Sensitivity float64 `yaml:"sensitivity"`
	} `yaml:"client"`
}

// DefaultConfig returns a config with no services wired.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Client.Sensitivity = 1.0
	return cfg
}

// LoadConfig reads a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// NewLogger returns the structured logger used by the service binaries.
func NewLogger(service string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, nil)).With("service", service)
}

// LoadOrGenerateSigningKey loads an Ed25519 private key from a hex string,
// or generates a new key pair if hexKey is empty.
func LoadOrGenerateSigningKey(hexKey string) (crypto.PrivateKey, error) {
	if hexKey != "" {
		keyBytes, err := hex.DecodeString(hexKey)
		if err != nil {
			return nil, fmt.Errorf("invalid hex: %w", err)
		}
		return crypto.NewPrivateKeyFromBytes(keyBytes), nil
	}
	_, privKey, err := crypto.GenerateKeyPair()
	return privKey, err
}

// FetchRoundConfig retrieves the shared round parameters from a registry's
// /config endpoint and validates them.
func FetchRoundConfig(registryURL string) (*protocol.RoundConfig, error) {
	resp, err := http.Get(registryURL + "/config")
	if err != nil {
		return nil, fmt.Errorf("fetch config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("registry returned status %d", resp.StatusCode)
	}

	config, err := protocol.DecodeMessage[protocol.RoundConfig](resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("registry served invalid config: %w", err)
	}
	return config, nil
}

// FetchServices retrieves the current registrations from the registry.
func FetchServices(registryURL string) (*services.ServiceListResponse, error) {
	resp, err := http.Get(registryURL + "/services")
	if err != nil {
		return nil, fmt.Errorf("fetch services: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("registry returned status %d", resp.StatusCode)
	}
	return protocol.DecodeMessage[services.ServiceListResponse](resp.Body)
}

// WaitForServers polls the registry until all n share servers have
// registered or ctx expires.
func WaitForServers(ctx context.Context, registryURL string, n int) (*services.ServiceListResponse, error) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		list, err := FetchServices(registryURL)
		if err == nil && len(list.Servers) == n {
			return list, nil
		}

		select {
		case <-ctx.Done():
			if err == nil {
				err = fmt.Errorf("%d of %d servers registered", len(list.Servers), n)
			}
			return nil, fmt.Errorf("waiting for servers: %w (%v)", ctx.Err(), err)
		case <-ticker.C:
		}
	}
}

// RegisterWithRegistry posts a registration to the given registry path.
func RegisterWithRegistry(registryURL, path string, registration any) error {
	body, err := json.Marshal(registration)
	if err != nil {
		return err
	}

	resp, err := http.Post(registryURL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("register with registry: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("registry rejected registration with status %d", resp.StatusCode)
	}
	return nil
}
