// Package config handles Atlas configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./config.yaml, ~/.config/atlas/config.yaml, /etc/atlas/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "atlas", "config.yaml"))
	}

	paths = append(paths, "/etc/atlas/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all Atlas configuration.
type Config struct {
	Listen       ListenConfig  `yaml:"listen"`
	Advisor      AdvisorConfig `yaml:"advisor"`
	MQTT         MQTTConfig    `yaml:"mqtt"`
	Mail         MailConfig    `yaml:"mail"`
	DataDir      string        `yaml:"data_dir"`
	TemplateDir  string        `yaml:"template_dir"`
	KnowledgeDir string        `yaml:"knowledge_dir"`
	PublicURL    string        `yaml:"public_url"`
	LogLevel     string        `yaml:"log_level"`
	LogFormat    string        `yaml:"log_format"` // text or json
}

// ListenConfig defines the HTTP server settings.
type ListenConfig struct {
	Address string `yaml:"address"` // Bind address (default: "" = all interfaces)
	Port    int    `yaml:"port"`
}

// AdvisorConfig defines the optional LLM advisor. When Provider is empty
// the advisor is disabled and plans ship straight from the renderer.
type AdvisorConfig struct {
	Provider   string                  `yaml:"provider"` // ollama, anthropic, or "" (disabled)
	Model      string                  `yaml:"model"`
	OllamaURL  string                  `yaml:"ollama_url"`
	APIKey     string                  `yaml:"api_key"`
	MaxTokens  int                     `yaml:"max_tokens"`
	TimeoutSec int                     `yaml:"timeout_sec"`
	Pricing    map[string]PricingEntry `yaml:"pricing"`
}

// Enabled reports whether an advisor provider is configured.
func (c AdvisorConfig) Enabled() bool {
	return strings.TrimSpace(c.Provider) != ""
}

// PricingEntry defines per-million-token USD pricing for one model.
// Models without an entry are billed at zero (local models).
type PricingEntry struct {
	InputPerMillion  float64 `yaml:"input_per_million"`
	OutputPerMillion float64 `yaml:"output_per_million"`
}

// MQTTConfig defines optional Home Assistant presence publishing.
type MQTTConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Broker          string `yaml:"broker"` // e.g. mqtt://broker.local:1883
	Username        string `yaml:"username"`
	Password        string `yaml:"password"`
	DeviceName      string `yaml:"device_name"`
	DiscoveryPrefix string `yaml:"discovery_prefix"`
	// PublishIntervalSec is how often sensor states are re-published.
	PublishIntervalSec int `yaml:"publish_interval_sec"`
}

// Configured reports whether presence publishing should run.
func (c MQTTConfig) Configured() bool {
	return c.Enabled && c.Broker != ""
}

// MailConfig defines outbound SMTP for itinerary delivery.
type MailConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	From        string `yaml:"from"`
	ImplicitTLS bool   `yaml:"implicit_tls"` // true for port 465, false for STARTTLS
}

// Enabled reports whether outbound mail is configured.
func (c MailConfig) Enabled() bool {
	return c.Host != "" && c.From != ""
}

// Load reads configuration from a YAML file. Environment variables in the
// file body are expanded before parsing, so secrets can live in the
// environment. Defaults are seeded first; zero-value fields mean "unset".
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	cfg.DataDir = expandHome(cfg.DataDir)
	cfg.TemplateDir = expandHome(cfg.TemplateDir)
	cfg.KnowledgeDir = expandHome(cfg.KnowledgeDir)

	return cfg, nil
}

// Default returns a default configuration.
func Default() *Config {
	return &Config{
		Listen:  ListenConfig{Port: 8080},
		DataDir: "data",
		Advisor: AdvisorConfig{
			Model:      "qwen3:4b",
			OllamaURL:  "http://localhost:11434",
			MaxTokens:  2048,
			TimeoutSec: 60,
			Pricing: map[string]PricingEntry{
				"claude-sonnet-4-20250514": {InputPerMillion: 3.0, OutputPerMillion: 15.0},
				"claude-opus-4-20250514":   {InputPerMillion: 15.0, OutputPerMillion: 75.0},
			},
		},
		MQTT: MQTTConfig{
			DeviceName:         "atlas",
			DiscoveryPrefix:    "homeassistant",
			PublishIntervalSec: 60,
		},
		Mail: MailConfig{
			Port: 587,
		},
		LogFormat: "text",
	}
}

// expandHome replaces a leading "~" with the user's home directory.
// Paths without the prefix pass through unchanged.
func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		if path == "~" {
			return home
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
