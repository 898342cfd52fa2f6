package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Storage  StorageConfig  `toml:"storage"`
	Gateway  GatewayConfig  `toml:"gateway"`
	Catalog  CatalogConfig  `toml:"catalog"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host      string  `toml:"host"`
	Port      int     `toml:"port"`
	RateLimit float64 `toml:"rate_limit"` // requests per second, 0 disables limiting
	RateBurst int     `toml:"rate_burst"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// StorageConfig contains object store settings.
//
// RestrictedKey covers listing and metadata; ServiceKey is the elevated
// credential used only for binary retrieval when the restricted key is
// rejected. The two tiers are deliberately kept as separate named fields.
type StorageConfig struct {
	BaseURL       string `toml:"base_url"`
	Bucket        string `toml:"bucket"`
	RestrictedKey string `toml:"restricted_key"`
	ServiceKey    string `toml:"service_key"`
}

// GatewayConfig contains payment gateway settings.
//
// Secret is the HMAC key used to verify gateway signatures on recorded
// orders. Order recording refuses to write rows when a configured secret
// does not match the caller's signature.
type GatewayConfig struct {
	Secret string `toml:"secret"`
}

// CatalogConfig contains catalog seeding settings.
type CatalogConfig struct {
	SeedPath string `toml:"seed_path"`
}

// Addr returns the host:port pair the HTTP server binds to.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	// Check if file already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	// Write the embedded example config to the file
	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
