package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/mpdctl/internal/mpd"
	"github.com/danmuck/mpdctl/internal/observability"
	"github.com/danmuck/mpdctl/internal/protocol/session"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

var (
	ErrAlreadyRunning = errors.New("monitor: service already started")
	ErrIdleFailed     = errors.New("monitor: idle connection failed repeatedly")
)

// Config controls the monitor connections and loops.
type Config struct {
	Session session.Config
	// StatusInterval is the poll period while playing. Zero disables polling.
	StatusInterval   time.Duration
	FetchArt         bool
	ArtCacheSize     int
	IdleFailureLimit int
	IdleBackoffStep  time.Duration
	EventBuffer      int
}

func DefaultConfig() Config {
	return Config{
		Session:          session.DefaultConfig(),
		StatusInterval:   time.Second,
		FetchArt:         true,
		ArtCacheSize:     32,
		IdleFailureLimit: 5,
		IdleBackoffStep:  time.Second,
		EventBuffer:      16,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.IdleFailureLimit <= 0 {
		c.IdleFailureLimit = d.IdleFailureLimit
	}
	if c.IdleBackoffStep <= 0 {
		c.IdleBackoffStep = d.IdleBackoffStep
	}
	if c.EventBuffer <= 0 {
		c.EventBuffer = d.EventBuffer
	}
	if c.StatusInterval < 0 {
		c.StatusInterval = 0
	}
	return c
}

// Service owns the three connections and the loops that drive them.
type Service struct {
	cfg     Config
	command *mpd.Client
	status  *mpd.Client
	idle    *mpd.Client
	art     *mpd.ArtCache

	events  chan Event
	changes chan mpd.Subsystem
	playing atomic.Bool
	started atomic.Bool

	snapMu sync.RWMutex
	snap   Snapshot
}

// New dials the command, status and idle connections. Any dial failure is
// returned after closing what was already opened.
func New(ctx context.Context, cfg Config) (*Service, error) {
	cfg = cfg.withDefaults()
	var opened []*mpd.Client
	dial := func(name string) (*mpd.Client, error) {
		c, err := mpd.Dial(ctx, cfg.Session, name)
		if err != nil {
			for _, o := range opened {
				_ = o.Close()
			}
			return nil, fmt.Errorf("monitor: connect %s: %w", name, err)
		}
		opened = append(opened, c)
		return c, nil
	}

	command, err := dial("command")
	if err != nil {
		return nil, err
	}
	status, err := dial("status")
	if err != nil {
		return nil, err
	}
	idle, err := dial("idle")
	if err != nil {
		return nil, err
	}
	idle.SetReadTimeout(0)
	return NewWithClients(cfg, command, status, idle), nil
}

// NewWithClients builds a Service over already connected clients.
func NewWithClients(cfg Config, command, status, idle *mpd.Client) *Service {
	cfg = cfg.withDefaults()
	return &Service{
		cfg:     cfg,
		command: command,
		status:  status,
		idle:    idle,
		art:     mpd.NewArtCache(command, cfg.ArtCacheSize),
		events:  make(chan Event, cfg.EventBuffer),
		changes: make(chan mpd.Subsystem, cfg.EventBuffer),
	}
}

// Events is closed when Run returns.
func (s *Service) Events() <-chan Event {
	return s.events
}

// Command is the connection for caller-issued commands.
func (s *Service) Command() *mpd.Client {
	return s.command
}

// Run publishes the current player state, then watches for changes until ctx
// ends or the idle connection gives up. Connections are closed on return.
func (s *Service) Run(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer close(s.events)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		s.Close()
		return nil
	})
	g.Go(func() error { return s.idleLoop(gctx) })
	g.Go(func() error { return s.dispatchLoop(gctx) })
	g.Go(func() error { return s.statusLoop(gctx) })

	err := g.Wait()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

// Close ends a pending idle with noidle so the server sees a clean exit, then
// closes every connection.
func (s *Service) Close() {
	if err := s.idle.NoIdle(); err != nil {
		log.Debug().Err(err).Msg("monitor.Service noidle")
	}
	for _, c := range []*mpd.Client{s.idle, s.status, s.command} {
		if err := c.Close(); err != nil {
			log.Debug().Err(err).Msg("monitor.Service close")
		}
	}
}

// idleLoop forwards changed subsystems. Consecutive failures back off
// linearly and the loop gives up past IdleFailureLimit.
func (s *Service) idleLoop(ctx context.Context) error {
	failures := 0
	for {
		changed, err := s.idle.Idle(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			failures++
			if failures > s.cfg.IdleFailureLimit {
				log.Error().Err(err).Int("failures", failures).Msg("monitor.Service idle giving up")
				return fmt.Errorf("%w: %w", ErrIdleFailed, err)
			}
			log.Warn().Err(err).Int("failures", failures).Msg("monitor.Service idle failed")
			if !sleepCtx(ctx, time.Duration(failures)*s.cfg.IdleBackoffStep) {
				return nil
			}
			continue
		}
		failures = 0
		for _, sub := range changed {
			observability.RecordIdleEvent(string(sub))
			log.Trace().Str("subsystem", string(sub)).Msg("monitor.Service idle event")
			select {
			case s.changes <- sub:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

func (s *Service) dispatchLoop(ctx context.Context) error {
	s.handle(ctx, mpd.SubsystemPlayer)
	for {
		select {
		case <-ctx.Done():
			return nil
		case sub := <-s.changes:
			s.handle(ctx, sub)
		}
	}
}

// handle fetches what changed and publishes it. Errors skip the event.
func (s *Service) handle(ctx context.Context, sub mpd.Subsystem) {
	ev, err := s.fetch(ctx, sub)
	if err != nil {
		if ctx.Err() == nil {
			log.Error().Err(err).Str("subsystem", string(sub)).Msg("monitor.Service failed to handle change")
		}
		return
	}
	s.emit(ctx, ev)
}

func (s *Service) fetch(ctx context.Context, sub mpd.Subsystem) (Event, error) {
	ev := Event{Subsystem: sub}
	switch sub {
	case mpd.SubsystemPlayer:
		ev.Kind = EventPlayer
		song, ok, err := s.command.CurrentSong(ctx)
		if err != nil {
			return Event{}, fmt.Errorf("current song: %w", err)
		}
		if ev.Status, err = s.command.Status(ctx); err != nil {
			return Event{}, fmt.Errorf("status: %w", err)
		}
		s.playing.Store(ev.Status.State == mpd.StatePlay)
		if ok {
			ev.Song = &song
			if s.cfg.FetchArt {
				pic, found, err := s.art.Get(ctx, song.File)
				if err != nil {
					return Event{}, fmt.Errorf("album art: %w", err)
				}
				if found {
					ev.Art = &pic
				}
			}
		}
	case mpd.SubsystemOptions:
		ev.Kind = EventStatus
		st, err := s.command.Status(ctx)
		if err != nil {
			return Event{}, fmt.Errorf("status: %w", err)
		}
		ev.Status = st
	case mpd.SubsystemMixer:
		ev.Kind = EventMixer
		v, ok, err := s.command.Volume(ctx)
		if err != nil {
			return Event{}, fmt.Errorf("volume: %w", err)
		}
		ev.Volume, ev.HasVolume = v, ok
	case mpd.SubsystemPlaylist:
		ev.Kind = EventQueue
		songs, err := s.command.PlaylistInfo(ctx)
		if err != nil {
			return Event{}, fmt.Errorf("playlist: %w", err)
		}
		ev.Queue = songs
	default:
		ev.Kind = EventOther
		log.Warn().Str("subsystem", string(sub)).Msg("monitor.Service unhandled change")
	}
	return ev, nil
}

// statusLoop polls status on its own connection while the player is playing.
func (s *Service) statusLoop(ctx context.Context) error {
	if s.cfg.StatusInterval <= 0 {
		return nil
	}
	ticker := time.NewTicker(s.cfg.StatusInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		if !s.playing.Load() {
			continue
		}
		st, err := s.status.Status(ctx)
		if err != nil {
			if ctx.Err() == nil {
				log.Error().Err(err).Msg("monitor.Service status poll failed")
			}
			continue
		}
		s.playing.Store(st.State == mpd.StatePlay)
		s.emit(ctx, Event{Kind: EventStatus, Status: st})
	}
}

func (s *Service) emit(ctx context.Context, ev Event) {
	s.record(ev)
	select {
	case s.events <- ev:
	case <-ctx.Done():
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
