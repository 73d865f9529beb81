package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/danmuck/mpdctl/internal/logging"
	"github.com/danmuck/mpdctl/internal/monitor"
	"github.com/danmuck/mpdctl/internal/mpd"
	"github.com/danmuck/mpdctl/internal/server"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const usage = `usage: mpdctl [-config path] <command>

commands:
  status            player state and position
  current           current song
  queue             queue contents
  volume            mixer volume
  art URI [-out f]  album art for URI
  watch             print changes until interrupted; -http addr also serves
                    /health, /status and /metrics (-token, -cors)
  config            print the default configuration
`

var errUsage = errors.New("invalid usage")

func main() {
	logging.ConfigureRuntime()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
		}
		fmt.Fprintf(os.Stderr, "mpdctl: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("mpdctl", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configPath := fs.String("config", "", "client config path (TOML)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("%w: missing command", errUsage)
	}
	command, rest := fs.Arg(0), fs.Args()[1:]

	if command == "config" {
		return writeDefaultConfig(out)
	}

	cfg := monitor.DefaultConfig()
	if *configPath != "" {
		loaded, err := loadClientConfig(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	if command == "watch" {
		return watch(ctx, cfg, rest, out)
	}

	client, err := mpd.Dial(ctx, cfg.Session, "command")
	if err != nil {
		return err
	}
	defer client.Close()

	switch command {
	case "status":
		return printStatus(ctx, client, out)
	case "current":
		return printCurrent(ctx, client, out)
	case "queue":
		return printQueue(ctx, client, out)
	case "volume":
		return printVolume(ctx, client, out)
	case "art":
		return fetchArt(ctx, client, rest, out)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}
}

func printStatus(ctx context.Context, c *mpd.Client, out io.Writer) error {
	st, err := c.Status(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "state: %s\n", st.State)
	fmt.Fprintf(out, "volume: %d\n", st.Volume)
	fmt.Fprintf(out, "repeat: %t random: %t single: %s consume: %s\n", st.Repeat, st.Random, st.Single, st.Consume)
	if st.Song != nil {
		fmt.Fprintf(out, "song: %d/%d\n", *st.Song+1, st.PlaylistLength)
	}
	if st.Duration > 0 {
		fmt.Fprintf(out, "time: %s/%s\n", st.Elapsed.Truncate(time.Second), st.Duration.Truncate(time.Second))
	}
	if st.Error != "" {
		fmt.Fprintf(out, "error: %s\n", st.Error)
	}
	return nil
}

func printCurrent(ctx context.Context, c *mpd.Client, out io.Writer) error {
	song, ok, err := c.CurrentSong(ctx)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(out, "nothing playing")
		return nil
	}
	fmt.Fprintln(out, formatSong(song))
	return nil
}

func printQueue(ctx context.Context, c *mpd.Client, out io.Writer) error {
	songs, err := c.PlaylistInfo(ctx)
	if err != nil {
		return err
	}
	for _, s := range songs {
		fmt.Fprintf(out, "%3d  %s\n", s.Pos+1, formatSong(s))
	}
	return nil
}

func printVolume(ctx context.Context, c *mpd.Client, out io.Writer) error {
	v, ok, err := c.Volume(ctx)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(out, "volume: n/a")
		return nil
	}
	fmt.Fprintf(out, "volume: %d\n", v)
	return nil
}

func fetchArt(ctx context.Context, c *mpd.Client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("art", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	target := fs.String("out", "", "write the picture to this file")
	if len(args) == 0 {
		return fmt.Errorf("%w: art needs a song URI", errUsage)
	}
	uri := args[0]
	if err := fs.Parse(args[1:]); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	pic, ok, err := c.FindAlbumArt(ctx, uri)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintf(out, "no album art for %s\n", uri)
		return nil
	}
	fmt.Fprintf(out, "%s %d bytes\n", pic.MimeType, len(pic.Data))
	if *target == "" {
		return nil
	}
	if err := os.WriteFile(*target, pic.Data, 0o644); err != nil {
		return fmt.Errorf("write album art: %w", err)
	}
	log.Info().Str("path", *target).Msg("mpdctl wrote album art")
	return nil
}

func watch(ctx context.Context, cfg monitor.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	httpAddr := fs.String("http", "", "serve health, status and metrics on this address")
	origins := fs.String("cors", "", "comma separated origins allowed to read the HTTP surface")
	token := fs.String("token", os.Getenv("MPDCTL_HTTP_TOKEN"), "bearer token required for /status and /metrics")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	svc, err := monitor.New(ctx, cfg)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for ev := range svc.Events() {
			fmt.Fprintln(out, formatEvent(ev))
		}
		return nil
	})
	g.Go(func() error { return svc.Run(gctx) })
	if *httpAddr != "" {
		srv := server.New(server.Config{
			Addr:         *httpAddr,
			AllowOrigins: splitList(*origins),
			Version:      svc.Command().Version(),
			Token:        *token,
		}, svc)
		g.Go(func() error { return srv.Run(gctx) })
	}
	return g.Wait()
}

func splitList(raw string) []string {
	var out []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func formatEvent(ev monitor.Event) string {
	switch ev.Kind {
	case monitor.EventPlayer:
		line := fmt.Sprintf("[player] %s", ev.Status.State)
		if ev.Song != nil {
			line += " " + formatSong(*ev.Song)
		}
		if ev.Art != nil {
			line += fmt.Sprintf(" (art %s)", ev.Art.MimeType)
		}
		return line
	case monitor.EventStatus:
		return fmt.Sprintf("[status] %s %s/%s", ev.Status.State,
			ev.Status.Elapsed.Truncate(time.Second), ev.Status.Duration.Truncate(time.Second))
	case monitor.EventMixer:
		if !ev.HasVolume {
			return "[mixer] n/a"
		}
		return fmt.Sprintf("[mixer] volume %d", ev.Volume)
	case monitor.EventQueue:
		return fmt.Sprintf("[queue] %d songs", len(ev.Queue))
	default:
		return fmt.Sprintf("[%s] changed", ev.Subsystem)
	}
}

func formatSong(s mpd.Song) string {
	title := s.Tag("Title")
	if title == "" {
		return s.File
	}
	if artist := s.Tag("Artist"); artist != "" {
		return strings.Join([]string{artist, title}, " - ")
	}
	return title
}
