package session

import (
	"strings"
	"time"

	"github.com/danmuck/mpdctl/internal/protocol"
)

const DefaultAddress = "127.0.0.1:6600"

// BackoffConfig defines retry backoff behavior.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

// Config defines connection and replay defaults.
//
// ReadTimeout of zero disables the read deadline, which is what the idle
// connection wants.
type Config struct {
	Address        string
	Password       string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxReconnects  int
	Backoff        BackoffConfig
	Limits         protocol.Limits
}

func DefaultConfig() Config {
	return Config{
		Address:        DefaultAddress,
		ConnectTimeout: 5 * time.Second,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxReconnects:  3,
		Backoff: BackoffConfig{
			InitialDelay: 100 * time.Millisecond,
			Multiplier:   2.0,
			MaxDelay:     2 * time.Second,
			Jitter:       true,
		},
		Limits: protocol.DefaultLimits(),
	}
}

// WithDefaults fills unset fields from DefaultConfig. ReadTimeout and Backoff
// are left alone since their zero values are meaningful.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if strings.TrimSpace(c.Address) == "" {
		c.Address = def.Address
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = def.ConnectTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.MaxReconnects < 0 {
		c.MaxReconnects = 0
	}
	if c.Limits.MaxBinaryBytes == 0 {
		c.Limits = def.Limits
	}
	return c
}
