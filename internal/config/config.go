// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatelock Contributors

// Package config loads gatelock configuration from YAML files and command
// line flags and resolves content ids to offer campaigns.
package config

import (
	"time"

	"github.com/gobwas/glob"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/gatelock/gatelock/internal/locker"
	"github.com/gatelock/gatelock/internal/xdg"
)

// CampaignRule maps content ids matching a glob pattern to a campaign.
// Rules are evaluated in order; the first match wins.
type CampaignRule struct {
	Match      string `koanf:"match"`
	CampaignID string `koanf:"campaign_id"`
}

// StoreConfig selects and configures the durable unlock store backend.
type StoreConfig struct {
	// Backend is "sqlite", "redis", "postgres" or "memory".
	Backend string `koanf:"backend"`
	// Path is the sqlite database file.
	Path string `koanf:"path"`
	// RedisURL is the redis connection URL for the redis backend.
	RedisURL string `koanf:"redis_url"`
	// DSN is the PostgreSQL connection string for the postgres backend.
	DSN string `koanf:"dsn"`
	// Prefix namespaces redis keys.
	Prefix string `koanf:"prefix"`
}

// LogConfig configures structured logging output.
type LogConfig struct {
	Format string `koanf:"format"` // "json" or "text"
}

// ObservabilityConfig configures the metrics/health listener of the
// developer tooling. Empty Addr disables it.
type ObservabilityConfig struct {
	Addr string `koanf:"addr"`
}

// Config is the full gatelock configuration.
type Config struct {
	// OfferHost is the offer wall host the embed URL points at.
	OfferHost string `koanf:"offer_host"`
	// CampaignID is the default campaign when no rule matches.
	CampaignID string `koanf:"campaign_id"`
	// LoadTimeout bounds how long the loading indicator is shown before the
	// session optimistically assumes the embed is present.
	LoadTimeout time.Duration `koanf:"load_timeout"`
	// MaxRetries is the embed reload budget per session.
	MaxRetries int `koanf:"max_retries"`

	Campaigns     []CampaignRule      `koanf:"campaigns"`
	Store         StoreConfig         `koanf:"store"`
	Log           LogConfig           `koanf:"log"`
	Observability ObservabilityConfig `koanf:"observability"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		OfferHost:   "cpa-locker.adbluemedia.com",
		LoadTimeout: locker.DefaultLoadTimeout,
		MaxRetries:  locker.MaxRetries,
		Store: StoreConfig{
			Backend: "sqlite",
			Path:    xdg.DataDir() + "/unlocks.db",
			Prefix:  "gatelock:",
		},
		Log: LogConfig{Format: "json"},
	}
}

// Load builds the configuration from defaults, an optional YAML file, and
// an optional flag set, in increasing precedence.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
	}
	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, oops.Code("CONFIG_PARSE_FAILED").With("path", path).Wrap(err)
	}
	return cfg, nil
}

// compiledRule is a CampaignRule with its glob pattern compiled.
type compiledRule struct {
	pattern    glob.Glob
	campaignID string
}

// Resolver maps content ids to campaign ids using the configured rules,
// falling back to the default campaign. Implements locker.CampaignResolver.
type Resolver struct {
	rules    []compiledRule
	fallback string
}

// NewResolver compiles the campaign rules of cfg.
func NewResolver(cfg *Config) (*Resolver, error) {
	rules := make([]compiledRule, 0, len(cfg.Campaigns))
	for _, r := range cfg.Campaigns {
		g, err := glob.Compile(r.Match)
		if err != nil {
			return nil, oops.Code("CONFIG_PARSE_FAILED").
				With("pattern", r.Match).
				Wrap(err)
		}
		rules = append(rules, compiledRule{pattern: g, campaignID: r.CampaignID})
	}
	return &Resolver{rules: rules, fallback: cfg.CampaignID}, nil
}

// CampaignID returns the campaign for a content id: first matching rule, or
// the default campaign.
func (r *Resolver) CampaignID(id locker.ContentID) string {
	for _, rule := range r.rules {
		if rule.pattern.Match(string(id)) {
			return rule.campaignID
		}
	}
	return r.fallback
}
