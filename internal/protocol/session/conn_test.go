package session

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/danmuck/mpdctl/internal/protocol"
	"github.com/danmuck/mpdctl/internal/testutil/mpdtest"
	"github.com/danmuck/mpdctl/internal/testutil/testlog"
)

type stateOnly struct {
	state string
}

func (s *stateOnly) DecodeLine(key, value string) (bool, error) {
	if key != "state" {
		return false, nil
	}
	s.state = value
	return true, nil
}

func dialConfig(addr string) Config {
	cfg := DefaultConfig()
	cfg.Address = addr
	cfg.ConnectTimeout = time.Second
	cfg.ReadTimeout = time.Second
	cfg.WriteTimeout = time.Second
	cfg.Backoff = BackoffConfig{}
	return cfg
}

func TestDialReadsGreetingAndAuthenticates(t *testing.T) {
	testlog.Start(t)
	srv := mpdtest.NewServer(t, func(_ int, command string) string {
		if command == `password "s3cret"` {
			return "OK\n"
		}
		return "ACK [5@0] {} unknown command\n"
	})
	cfg := dialConfig(srv.Addr())
	cfg.Password = "s3cret"

	conn, err := Dial(context.Background(), cfg, "command")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if conn.Version() != mpdtest.DefaultVersion {
		t.Fatalf("unexpected version: %q", conn.Version())
	}
	if cmds := srv.Commands(); len(cmds) != 1 || cmds[0] != `password "s3cret"` {
		t.Fatalf("unexpected commands: %q", cmds)
	}
}

func TestDialRejectedPassword(t *testing.T) {
	testlog.Start(t)
	srv := mpdtest.NewServer(t, func(int, string) string {
		return "ACK [3@0] {password} incorrect password\n"
	})
	cfg := dialConfig(srv.Addr())
	cfg.Password = "wrong"

	_, err := Dial(context.Background(), cfg, "command")
	var failure *protocol.FailureResponse
	if !errors.As(err, &failure) || failure.Code != protocol.ErrorPassword {
		t.Fatalf("expected password failure, got %v", err)
	}
}

func TestConnReplaysAfterServerHangup(t *testing.T) {
	testlog.Start(t)
	srv := mpdtest.NewServer(t, func(conn int, command string) string {
		if conn == 0 {
			return mpdtest.Hangup
		}
		return "state: play\nOK\n"
	})
	conn, err := Dial(context.Background(), dialConfig(srv.Addr()), "status")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	engine := NewEngine(conn, dialConfig(srv.Addr()))
	tx, err := engine.Execute(context.Background(), "status")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	got, err := ReadResponse[stateOnly](tx)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	if got.state != "play" {
		t.Fatalf("unexpected state: %q", got.state)
	}
	if srv.Connections() != 2 {
		t.Fatalf("expected 2 connections, got %d", srv.Connections())
	}
}

func TestConnCloseStopsReconnects(t *testing.T) {
	testlog.Start(t)
	srv := mpdtest.NewServer(t, func(int, string) string { return "OK\n" })
	conn, err := Dial(context.Background(), dialConfig(srv.Addr()), "command")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := conn.Reconnect(context.Background()); !errors.Is(err, ErrConnShutdown) {
		t.Fatalf("expected ErrConnShutdown, got %v", err)
	}
	if err := conn.Write([]byte("ping\n")); !errors.Is(err, protocol.ErrConnectionClosed) {
		t.Fatalf("expected closed write, got %v", err)
	}
}

func TestDialRejectsBadGreeting(t *testing.T) {
	testlog.Start(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_, _ = conn.Write([]byte("HELLO there\n"))
	}()

	_, err = Dial(context.Background(), dialConfig(ln.Addr().String()), "command")
	if !errors.Is(err, protocol.ErrMalformedGreeting) {
		t.Fatalf("expected ErrMalformedGreeting, got %v", err)
	}
}

func TestSplitAddress(t *testing.T) {
	testlog.Start(t)
	cases := map[string][2]string{
		"localhost:6600":  {"tcp", "localhost:6600"},
		"/run/mpd/socket": {"unix", "/run/mpd/socket"},
		"@mpd":            {"unix", "@mpd"},
		" 10.0.0.2:6600 ": {"tcp", "10.0.0.2:6600"},
	}
	for in, want := range cases {
		network, addr := splitAddress(in)
		if network != want[0] || addr != want[1] {
			t.Fatalf("splitAddress(%q) = %s %s", in, network, addr)
		}
	}
}

func TestReadTimeoutReconnectsBeforeNextCommand(t *testing.T) {
	testlog.Start(t)
	srv := mpdtest.NewServer(t, func(_ int, command string) string {
		if command == "status" {
			time.Sleep(300 * time.Millisecond)
			return "state: play\nOK\n"
		}
		return "OK\n"
	})
	cfg := dialConfig(srv.Addr())
	cfg.ReadTimeout = 100 * time.Millisecond

	conn, err := Dial(context.Background(), cfg, "status")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	engine := NewEngine(conn, cfg)

	tx, err := engine.Execute(context.Background(), "status")
	if err != nil {
		t.Fatalf("execute status: %v", err)
	}
	_, err = ReadResponse[stateOnly](tx)
	var netErr net.Error
	if !errors.As(err, &netErr) || !netErr.Timeout() {
		t.Fatalf("expected read timeout, got %v", err)
	}
	if !engine.Stale() {
		t.Fatalf("timed out reply should leave the engine stale")
	}

	tx, err = engine.Execute(context.Background(), "ping")
	if err != nil {
		t.Fatalf("execute ping: %v", err)
	}
	if err := tx.ReadOK(); err != nil {
		t.Fatalf("ping read leftovers of the timed out status: %v", err)
	}
	if srv.Connections() != 2 {
		t.Fatalf("expected a fresh connection for ping, got %d connections", srv.Connections())
	}
}
