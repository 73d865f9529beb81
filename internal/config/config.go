package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// ClientConfig is the on-disk client configuration. Durations are Go
// duration strings ("5s", "250ms").
type ClientConfig struct {
	Address              string  `toml:"address"`
	Password             string  `toml:"password"`
	ConnectTimeout       string  `toml:"connect_timeout"`
	ReadTimeout          string  `toml:"read_timeout"`
	WriteTimeout         string  `toml:"write_timeout"`
	MaxReconnects        int     `toml:"max_reconnects"`
	BackoffInitial       string  `toml:"backoff_initial"`
	BackoffMax           string  `toml:"backoff_max"`
	BackoffMultiplier    float64 `toml:"backoff_multiplier"`
	BackoffJitter        bool    `toml:"backoff_jitter"`
	MaxBinaryBytes       uint64  `toml:"max_binary_bytes"`
	StatusUpdateInterval string  `toml:"status_update_interval"`
	FetchArt             bool    `toml:"fetch_art"`
	ArtCacheSize         int     `toml:"art_cache_size"`
}

// LoadClientConfig reads path over Default, so absent keys keep their
// default values.
func LoadClientConfig(path string) (ClientConfig, error) {
	cfg := Default()
	if err := loadToml(path, &cfg); err != nil {
		return ClientConfig{}, err
	}
	if err := ValidateClientConfig(cfg); err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateClientConfig(cfg ClientConfig) error {
	if strings.TrimSpace(cfg.Address) == "" {
		return fmt.Errorf("client config missing address")
	}
	durations := []struct {
		key   string
		value string
	}{
		{"connect_timeout", cfg.ConnectTimeout},
		{"read_timeout", cfg.ReadTimeout},
		{"write_timeout", cfg.WriteTimeout},
		{"backoff_initial", cfg.BackoffInitial},
		{"backoff_max", cfg.BackoffMax},
		{"status_update_interval", cfg.StatusUpdateInterval},
	}
	for _, d := range durations {
		if _, err := ParseDuration(d.key, d.value); err != nil {
			return err
		}
	}
	if cfg.MaxReconnects < 0 {
		return fmt.Errorf("max_reconnects must not be negative")
	}
	if cfg.BackoffMultiplier != 0 && cfg.BackoffMultiplier < 1 {
		return fmt.Errorf("backoff_multiplier must be >= 1")
	}
	if cfg.ArtCacheSize < 0 {
		return fmt.Errorf("art_cache_size must not be negative")
	}
	return nil
}

// ParseDuration parses a duration value for key. Empty means zero.
func ParseDuration(key, raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}
	return d, nil
}
