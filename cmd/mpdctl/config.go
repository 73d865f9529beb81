package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/mpdctl/internal/config"
	"github.com/danmuck/mpdctl/internal/monitor"
)

// loadClientConfig overlays the keys present in path onto the defaults.
func loadClientConfig(path string) (monitor.Config, error) {
	cfg := config.Default()

	var raw config.ClientConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return monitor.Config{}, fmt.Errorf("load client config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return monitor.Config{}, fmt.Errorf("load client config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("address") {
		if addr := strings.TrimSpace(raw.Address); addr != "" {
			cfg.Address = addr
		}
	}
	if meta.IsDefined("password") {
		cfg.Password = raw.Password
	}
	if meta.IsDefined("connect_timeout") {
		cfg.ConnectTimeout = raw.ConnectTimeout
	}
	if meta.IsDefined("read_timeout") {
		cfg.ReadTimeout = raw.ReadTimeout
	}
	if meta.IsDefined("write_timeout") {
		cfg.WriteTimeout = raw.WriteTimeout
	}
	if meta.IsDefined("max_reconnects") {
		cfg.MaxReconnects = raw.MaxReconnects
	}
	if meta.IsDefined("backoff_initial") {
		cfg.BackoffInitial = raw.BackoffInitial
	}
	if meta.IsDefined("backoff_max") {
		cfg.BackoffMax = raw.BackoffMax
	}
	if meta.IsDefined("backoff_multiplier") {
		cfg.BackoffMultiplier = raw.BackoffMultiplier
	}
	if meta.IsDefined("backoff_jitter") {
		cfg.BackoffJitter = raw.BackoffJitter
	}
	if meta.IsDefined("max_binary_bytes") {
		cfg.MaxBinaryBytes = raw.MaxBinaryBytes
	}
	if meta.IsDefined("status_update_interval") {
		cfg.StatusUpdateInterval = raw.StatusUpdateInterval
	}
	if meta.IsDefined("fetch_art") {
		cfg.FetchArt = raw.FetchArt
	}
	if meta.IsDefined("art_cache_size") {
		cfg.ArtCacheSize = raw.ArtCacheSize
	}

	return cfg.MonitorConfig()
}

func writeDefaultConfig(w io.Writer) error {
	return toml.NewEncoder(w).Encode(config.Default())
}
