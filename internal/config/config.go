// KioskBridge - Headless realtime session/event client for home media servers
// Copyright 2026 KioskBridge contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediaserver-tools/kioskbridge

// Package config loads the kiosk configuration from layered sources with
// clear precedence: environment variables over an optional YAML file over
// built-in defaults.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where a config file is searched, first hit wins.
var DefaultConfigPaths = []string{
	"kioskbridge.yaml",
	"kioskbridge.yml",
	"/etc/kioskbridge/config.yaml",
	"/etc/kioskbridge/config.yml",
}

// ConfigPathEnvVar overrides the config file search.
const ConfigPathEnvVar = "KIOSKBRIDGE_CONFIG"

// envPrefix namespaces every environment override, e.g.
// KIOSKBRIDGE_SERVER_URL -> server.url.
const envPrefix = "KIOSKBRIDGE_"

// Config is the full kiosk configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Channels   ChannelsConfig   `koanf:"channels"`
	Client     ClientConfig     `koanf:"client"`
	WebControl WebControlConfig `koanf:"webcontrol"`
	Prefs      PrefsConfig      `koanf:"prefs"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// ServerConfig points at the media server backend.
type ServerConfig struct {
	// URL is the backend base URL (e.g. http://localhost:8000).
	URL     string        `koanf:"url" validate:"required,url"`
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
	// Breaker enables the circuit breaker around REST calls.
	Breaker bool `koanf:"breaker"`
}

// ChannelsConfig configures the push channels.
type ChannelsConfig struct {
	// EventsPath is the general event bus endpoint, joined to server.url.
	EventsPath string `koanf:"events_path" validate:"required,startswith=/"`
	// PlayerPath is the player SSE bus endpoint.
	PlayerPath string `koanf:"player_path" validate:"required,startswith=/"`
	// Topic is the subscription filter sent in the subscribe hello.
	Topic string `koanf:"topic"`
	// ClientID overrides the generated client identifier. Useful for
	// kiosks that must keep a stable identity across reinstalls.
	ClientID string `koanf:"client_id"`
}

// ClientConfig holds client-local behavior.
type ClientConfig struct {
	// AppName is the document-title fallback before a server name is
	// known.
	AppName string `koanf:"app_name" validate:"required"`
	// Secret derives the key encrypting the persisted session token.
	// Empty disables token persistence.
	Secret string `koanf:"secret"`
}

// WebControlConfig configures the local HTTP control surface.
type WebControlConfig struct {
	Enabled         bool          `koanf:"enabled"`
	Host            string        `koanf:"host" validate:"required"`
	Port            int           `koanf:"port" validate:"gte=1,lte=65535"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs" validate:"gte=1"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window" validate:"gt=0"`
}

// PrefsConfig locates the preference database.
type PrefsConfig struct {
	Path string `koanf:"path" validate:"required"`
}

// LoggingConfig mirrors the logging package's settings.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal panic"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig is the bottom layer; file and environment override it.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			URL:     "http://localhost:8000",
			Timeout: 30 * time.Second,
			Breaker: true,
		},
		Channels: ChannelsConfig{
			EventsPath: "/events/ws",
			PlayerPath: "/events/player",
			Topic:      "main",
			ClientID:   "",
		},
		Client: ClientConfig{
			AppName: "KioskBridge",
			Secret:  "",
		},
		WebControl: WebControlConfig{
			Enabled:         true,
			Host:            "127.0.0.1",
			Port:            3980,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Prefs: PrefsConfig{
			Path: "/data/kioskbridge/prefs",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file, and
// KIOSKBRIDGE_* environment variables, then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider(envPrefix, ".", envTransform)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	normalizeSliceFields(k)

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration invalid: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration against its struct tags.
func (c *Config) Validate() error {
	return validator.New(validator.WithRequiredStructEnabled()).Struct(c)
}

// EventsURL joins the server base URL with the general bus path.
func (c *Config) EventsURL() string {
	return strings.TrimSuffix(c.Server.URL, "/") + c.Channels.EventsPath
}

// PlayerURL joins the server base URL with the player bus path.
func (c *Config) PlayerURL() string {
	return strings.TrimSuffix(c.Server.URL, "/") + c.Channels.PlayerPath
}

// envTransform maps KIOSKBRIDGE_SECTION_SOME_KEY to section.some_key.
// Sections are single words, so only the first underscore becomes a dot.
func envTransform(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
	return strings.Replace(key, "_", ".", 1)
}

// findConfigFile returns the first existing config file path.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths lists keys that accept comma-separated env values.
var sliceConfigPaths = []string{
	"webcontrol.cors_origins",
}

// normalizeSliceFields converts comma-separated env strings to slices.
// YAML-sourced values are already slices and pass through.
func normalizeSliceFields(k *koanf.Koanf) {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		str, ok := val.(string)
		if !ok {
			continue
		}
		parts := strings.Split(str, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		_ = k.Set(path, out)
	}
}
