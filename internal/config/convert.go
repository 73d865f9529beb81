package config

import (
	"github.com/danmuck/mpdctl/internal/monitor"
	"github.com/danmuck/mpdctl/internal/protocol/session"
)

// Default mirrors monitor.DefaultConfig in file form.
func Default() ClientConfig {
	m := monitor.DefaultConfig()
	s := m.Session
	return ClientConfig{
		Address:              s.Address,
		Password:             s.Password,
		ConnectTimeout:       s.ConnectTimeout.String(),
		ReadTimeout:          s.ReadTimeout.String(),
		WriteTimeout:         s.WriteTimeout.String(),
		MaxReconnects:        s.MaxReconnects,
		BackoffInitial:       s.Backoff.InitialDelay.String(),
		BackoffMax:           s.Backoff.MaxDelay.String(),
		BackoffMultiplier:    s.Backoff.Multiplier,
		BackoffJitter:        s.Backoff.Jitter,
		MaxBinaryBytes:       s.Limits.MaxBinaryBytes,
		StatusUpdateInterval: m.StatusInterval.String(),
		FetchArt:             m.FetchArt,
		ArtCacheSize:         m.ArtCacheSize,
	}
}

// MonitorConfig converts a validated file config into runtime settings.
func (c ClientConfig) MonitorConfig() (monitor.Config, error) {
	if err := ValidateClientConfig(c); err != nil {
		return monitor.Config{}, err
	}
	m := monitor.DefaultConfig()
	s := session.Config{
		Address:       c.Address,
		Password:      c.Password,
		MaxReconnects: c.MaxReconnects,
		Backoff: session.BackoffConfig{
			Multiplier: c.BackoffMultiplier,
			Jitter:     c.BackoffJitter,
		},
	}
	s.ConnectTimeout, _ = ParseDuration("connect_timeout", c.ConnectTimeout)
	s.ReadTimeout, _ = ParseDuration("read_timeout", c.ReadTimeout)
	s.WriteTimeout, _ = ParseDuration("write_timeout", c.WriteTimeout)
	s.Backoff.InitialDelay, _ = ParseDuration("backoff_initial", c.BackoffInitial)
	s.Backoff.MaxDelay, _ = ParseDuration("backoff_max", c.BackoffMax)
	s.Limits.MaxBinaryBytes = c.MaxBinaryBytes
	m.Session = s.WithDefaults()
	m.StatusInterval, _ = ParseDuration("status_update_interval", c.StatusUpdateInterval)
	m.FetchArt = c.FetchArt
	m.ArtCacheSize = c.ArtCacheSize
	return m, nil
}
