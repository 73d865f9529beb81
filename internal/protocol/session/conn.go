package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/danmuck/mpdctl/internal/observability"
	"github.com/danmuck/mpdctl/internal/protocol"
	"github.com/rs/zerolog/log"
)

var (
	ErrAddressRequired = errors.New("session: address required")
	ErrConnShutdown    = errors.New("session: connection shut down by owner")
)

// Conn is the net.Conn backed Socket. One caller drives it at a time; Close
// may be called from any goroutine to unblock a pending read.
type Conn struct {
	cfg  Config
	name string

	mu          sync.Mutex
	conn        net.Conn
	reader      *bufio.Reader
	version     string
	readTimeout time.Duration
	shutdown    bool
}

// Dial connects to cfg.Address, consumes the server greeting and
// authenticates when a password is configured. name tags log lines.
func Dial(ctx context.Context, cfg Config, name string) (*Conn, error) {
	cfg = cfg.WithDefaults()
	c := &Conn{
		cfg:         cfg,
		name:        name,
		readTimeout: cfg.ReadTimeout,
	}
	if err := c.connect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Conn) connect(ctx context.Context) error {
	network, address := splitAddress(c.cfg.Address)
	if address == "" {
		return ErrAddressRequired
	}
	dialer := net.Dialer{Timeout: c.cfg.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, network, address)
	if err != nil {
		return fmt.Errorf("session: dial %s %s: %w", network, address, err)
	}

	reader, version, err := c.handshake(conn)
	if err != nil {
		_ = conn.Close()
		return err
	}

	c.mu.Lock()
	if c.shutdown {
		c.mu.Unlock()
		_ = conn.Close()
		return ErrConnShutdown
	}
	c.conn = conn
	c.reader = reader
	c.version = version
	c.mu.Unlock()

	log.Debug().
		Str("conn", c.name).
		Str("addr", c.cfg.Address).
		Str("version", version).
		Msg("session.Conn connected")
	return nil
}

func (c *Conn) handshake(conn net.Conn) (*bufio.Reader, string, error) {
	_ = conn.SetDeadline(time.Now().Add(c.cfg.ConnectTimeout))
	reader := bufio.NewReader(conn)
	greeting, err := reader.ReadString('\n')
	if err != nil {
		return nil, "", fmt.Errorf("session: read greeting: %w", err)
	}
	version, err := protocol.ParseGreeting(greeting)
	if err != nil {
		return nil, "", err
	}
	if c.cfg.Password != "" {
		if _, err := conn.Write([]byte("password " + protocol.Quote(c.cfg.Password) + "\n")); err != nil {
			return nil, "", fmt.Errorf("session: send password: %w", err)
		}
		if err := protocol.ExpectTerminator(reader); err != nil {
			return nil, "", fmt.Errorf("session: password rejected: %w", err)
		}
	}
	_ = conn.SetDeadline(time.Time{})
	return reader, version, nil
}

// Reconnect drops the current socket, if any, and dials again.
func (c *Conn) Reconnect(ctx context.Context) error {
	c.mu.Lock()
	if c.shutdown {
		c.mu.Unlock()
		return ErrConnShutdown
	}
	c.dropLocked()
	c.mu.Unlock()

	log.Debug().Str("conn", c.name).Str("addr", c.cfg.Address).Msg("session.Conn reconnecting")
	err := c.connect(ctx)
	observability.RecordReconnect(c.name, err)
	return err
}

func (c *Conn) Write(p []byte) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("%w: %s not connected", protocol.ErrConnectionClosed, c.name)
	}
	if c.cfg.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	}
	_, err := conn.Write(p)
	return err
}

// Reader arms the read deadline for the response about to be read. With no
// live connection it returns an empty reader, which reads as closed.
func (c *Conn) Reader() *bufio.Reader {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return bufio.NewReader(strings.NewReader(""))
	}
	if c.readTimeout > 0 {
		_ = c.conn.SetReadDeadline(time.Now().Add(c.readTimeout))
	} else {
		_ = c.conn.SetReadDeadline(time.Time{})
	}
	return c.reader
}

// SetReadTimeout changes the per-response read deadline. Zero blocks forever.
func (c *Conn) SetReadTimeout(d time.Duration) {
	c.mu.Lock()
	c.readTimeout = d
	c.mu.Unlock()
}

func (c *Conn) Version() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

func (c *Conn) Name() string {
	return c.name
}

// Close shuts the connection down for good; later reconnects fail.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shutdown = true
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.reader = nil
	return err
}

func (c *Conn) dropLocked() {
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.conn = nil
	c.reader = nil
}

func splitAddress(addr string) (string, string) {
	addr = strings.TrimSpace(addr)
	if strings.HasPrefix(addr, "/") || strings.HasPrefix(addr, "@") {
		return "unix", addr
	}
	return "tcp", addr
}
