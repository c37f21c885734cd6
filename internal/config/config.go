package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/Dmetrikx/aleyya/internal/conversation"
	"github.com/Dmetrikx/aleyya/internal/gateway"
	"github.com/Dmetrikx/aleyya/internal/imaging"
	"github.com/Dmetrikx/aleyya/internal/logging"
)

// Gateway transports
const (
	TransportHTTP = "http"
	TransportSDK  = "sdk"
)

// Config holds all configuration values
type Config struct {
	BaseURL      string `toml:"base_url"`
	Transport    string `toml:"transport"`
	DefaultModel string `toml:"default_model"`
	PrefsPath    string `toml:"prefs_path"`
	StalePolicy  string `toml:"stale_policy"`
	MaxImageEdge int    `toml:"max_image_edge"`
	LogFormat    string `toml:"log_format"`
	LogLevel     string `toml:"log_level"`
	MetricsAddr  string `toml:"metrics_addr"`

	// APIKey only seeds an empty preference store and is never read from the file
	APIKey string `toml:"-"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		BaseURL:      gateway.DefaultBaseURL,
		Transport:    TransportHTTP,
		DefaultModel: gateway.DefaultModelKey,
		PrefsPath:    defaultPrefsPath(),
		StalePolicy:  conversation.StaleAppend.String(),
		MaxImageEdge: imaging.DefaultMaxEdge,
		LogFormat:    logging.FormatText,
		LogLevel:     "info",
	}
}

func defaultPrefsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "aleyya", "prefs.db")
}

// LoadConfig loads the .env file, the optional TOML file named by
// ALEYYA_CONFIG and the environment, in increasing precedence
func LoadConfig() (*Config, error) {
	// Try to load .env file (optional - may not exist in production)
	_ = godotenv.Load(".env")

	cfg := Default()

	if path := os.Getenv("ALEYYA_CONFIG"); path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	overrides := []struct {
		name string
		dst  *string
	}{
		{"GATEWAY_BASE_URL", &c.BaseURL},
		{"GATEWAY_TRANSPORT", &c.Transport},
		{"ALEYYA_DEFAULT_MODEL", &c.DefaultModel},
		{"ALEYYA_PREFS_PATH", &c.PrefsPath},
		{"ALEYYA_STALE_POLICY", &c.StalePolicy},
		{"LOG_FORMAT", &c.LogFormat},
		{"LOG_LEVEL", &c.LogLevel},
		{"METRICS_ADDR", &c.MetricsAddr},
		{"OPENROUTER_API_KEY", &c.APIKey},
	}
	for _, o := range overrides {
		if v := strings.TrimSpace(os.Getenv(o.name)); v != "" {
			*o.dst = v
		}
	}

	if v := strings.TrimSpace(os.Getenv("ALEYYA_MAX_IMAGE_EDGE")); v != "" {
		edge, err := strconv.Atoi(v)
		if err != nil {
			return unparsableSetting("ALEYYA_MAX_IMAGE_EDGE", v, "must be an integer", err)
		}
		c.MaxImageEdge = edge
	}

	return nil
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return unparsableSetting("GATEWAY_BASE_URL", c.BaseURL, "must be an absolute URL", err)
	}

	if c.Transport != TransportHTTP && c.Transport != TransportSDK {
		return invalidSetting("GATEWAY_TRANSPORT", c.Transport, "must be http or sdk")
	}

	if _, ok := gateway.LookupModel(c.DefaultModel); !ok {
		return invalidSetting("ALEYYA_DEFAULT_MODEL", c.DefaultModel, "unknown model")
	}

	if c.PrefsPath == "" {
		return invalidSetting("ALEYYA_PREFS_PATH", "", "a database path is required")
	}

	if _, err := conversation.ParseStalePolicy(c.StalePolicy); err != nil {
		return unparsableSetting("ALEYYA_STALE_POLICY", c.StalePolicy, "must be append or discard", err)
	}

	if c.MaxImageEdge <= 0 {
		return invalidSetting("ALEYYA_MAX_IMAGE_EDGE", strconv.Itoa(c.MaxImageEdge), "must be positive")
	}

	if c.LogFormat != logging.FormatJSON && c.LogFormat != logging.FormatText {
		return invalidSetting("LOG_FORMAT", c.LogFormat, "must be json or text")
	}

	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return unparsableSetting("LOG_LEVEL", c.LogLevel, "must be debug, info, warn or error", err)
	}

	return nil
}

// Stale returns the parsed stale-completion policy
func (c *Config) Stale() conversation.StalePolicy {
	p, _ := conversation.ParseStalePolicy(c.StalePolicy)
	return p
}
