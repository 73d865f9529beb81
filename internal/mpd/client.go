package mpd

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/danmuck/mpdctl/internal/observability"
	"github.com/danmuck/mpdctl/internal/protocol"
	"github.com/danmuck/mpdctl/internal/protocol/session"
	"github.com/rs/zerolog/log"
)

var (
	ErrVolumeRange  = errors.New("mpd: volume must be within 0..100")
	ErrInvalidField = errors.New("mpd: invalid field value")
)

// Client runs one command at a time over a single connection.
type Client struct {
	name   string
	mu     sync.Mutex
	sock   session.Socket
	conn   *session.Conn
	engine *session.Engine
}

// Dial opens a named connection and wraps it in a Client.
func Dial(ctx context.Context, cfg session.Config, name string) (*Client, error) {
	conn, err := session.Dial(ctx, cfg, name)
	if err != nil {
		return nil, err
	}
	c := NewClient(conn, cfg)
	c.conn = conn
	c.name = name
	log.Info().Str("conn", name).Str("version", conn.Version()).Msg("mpd.Client connected")
	return c, nil
}

// NewClient builds a Client over an existing socket.
func NewClient(sock session.Socket, cfg session.Config) *Client {
	return &Client{
		name:   "default",
		sock:   sock,
		engine: session.NewEngine(sock, cfg),
	}
}

// Version is the server protocol version, empty for non-dialed clients.
func (c *Client) Version() string {
	if c.conn == nil {
		return ""
	}
	return c.conn.Version()
}

// SetReadTimeout changes the per-response deadline. Idle clients use zero.
func (c *Client) SetReadTimeout(d time.Duration) {
	if c.conn != nil {
		c.conn.SetReadTimeout(d)
	}
}

func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// observe records the outcome of one command. Call it deferred with a
// pointer to the named error result.
func (c *Client) observe(command string, start time.Time, errp *error) {
	observability.RecordCommand(c.name, command, time.Since(start), *errp)
}

func (c *Client) exec(ctx context.Context, command string) (err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.observe(command, time.Now(), &err)
	tx, err := c.engine.Execute(ctx, command)
	if err != nil {
		return err
	}
	return tx.ReadOK()
}

func query[T any, PT protocol.DecoderPtr[T]](ctx context.Context, c *Client, command string) (v T, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.observe(command, time.Now(), &err)
	tx, err := c.engine.Execute(ctx, command)
	if err != nil {
		return v, err
	}
	return session.ReadResponse[T, PT](tx)
}

func queryOpt[T any, PT protocol.DecoderPtr[T]](ctx context.Context, c *Client, command string) (v T, ok bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.observe(command, time.Now(), &err)
	tx, err := c.engine.Execute(ctx, command)
	if err != nil {
		return v, false, err
	}
	return session.ReadOptResponse[T, PT](tx)
}

func (c *Client) Ping(ctx context.Context) error {
	return c.exec(ctx, "ping")
}

func (c *Client) Status(ctx context.Context) (Status, error) {
	return query[Status](ctx, c, "status")
}

// CurrentSong reports ok=false when nothing is queued.
func (c *Client) CurrentSong(ctx context.Context) (Song, bool, error) {
	return queryOpt[Song](ctx, c, "currentsong")
}

func (c *Client) PlaylistInfo(ctx context.Context) ([]Song, error) {
	songs, err := query[Songs](ctx, c, "playlistinfo")
	return []Song(songs), err
}

// Volume reports ok=false when the server has no mixer.
func (c *Client) Volume(ctx context.Context) (int, bool, error) {
	v, ok, err := queryOpt[Volume](ctx, c, "getvol")
	return int(v), ok, err
}

func (c *Client) SetVolume(ctx context.Context, volume int) error {
	if volume < 0 || volume > 100 {
		return fmt.Errorf("%w: %d", ErrVolumeRange, volume)
	}
	return c.exec(ctx, "setvol "+strconv.Itoa(volume))
}

func (c *Client) Play(ctx context.Context) error {
	return c.exec(ctx, "play")
}

func (c *Client) Pause(ctx context.Context, pause bool) error {
	if pause {
		return c.exec(ctx, "pause 1")
	}
	return c.exec(ctx, "pause 0")
}

func (c *Client) Stop(ctx context.Context) error {
	return c.exec(ctx, "stop")
}

func (c *Client) Next(ctx context.Context) error {
	return c.exec(ctx, "next")
}

func (c *Client) Previous(ctx context.Context) error {
	return c.exec(ctx, "previous")
}

// Idle blocks until one of subsystems (any when empty) changes.
func (c *Client) Idle(ctx context.Context, subsystems ...Subsystem) ([]Subsystem, error) {
	command := "idle"
	if len(subsystems) > 0 {
		names := make([]string, len(subsystems))
		for i, s := range subsystems {
			names[i] = string(s)
		}
		command += " " + strings.Join(names, " ")
	}
	events, err := query[IdleEvents](ctx, c, command)
	return []Subsystem(events), err
}

// NoIdle interrupts a pending Idle on the same connection. It writes without
// taking the command lock, which Idle holds while it waits.
func (c *Client) NoIdle() error {
	return c.sock.Write([]byte("noidle\n"))
}
