package mpd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/mpdctl/internal/protocol"
	"github.com/danmuck/mpdctl/internal/protocol/session"
	"github.com/danmuck/mpdctl/internal/testutil/mpdtest"
	"github.com/danmuck/mpdctl/internal/testutil/testlog"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func newTestClient(scripts ...string) (*Client, *mpdtest.Socket) {
	sock := mpdtest.NewSocket(scripts...)
	return NewClient(sock, session.Config{MaxReconnects: 1}), sock
}

func binarySlice(size int, mime string, payload []byte) string {
	var b strings.Builder
	fmt.Fprintf(&b, "size: %d\n", size)
	if mime != "" {
		fmt.Fprintf(&b, "type: %s\n", mime)
	}
	fmt.Fprintf(&b, "binary: %d\n", len(payload))
	b.Write(payload)
	b.WriteString("\nOK\n")
	return b.String()
}

func assertWrites(t *testing.T, sock *mpdtest.Socket, want ...string) {
	t.Helper()
	got := sock.Writes()
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected writes: got=%q want=%q", got, want)
	}
}

func TestClientStatus(t *testing.T) {
	testlog.Start(t)
	c, sock := newTestClient(strings.Join([]string{
		"volume: 70",
		"repeat: 1",
		"random: 0",
		"single: oneshot",
		"consume: 0",
		"partition: default",
		"playlist: 12",
		"playlistlength: 3",
		"state: play",
		"song: 1",
		"songid: 7",
		"elapsed: 12.500",
		"duration: 200.250",
		"bitrate: 320",
		"audio: 44100:24:2",
		"OK",
	}, "\n") + "\n")

	st, err := c.Status(context.Background())
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.State != StatePlay || st.Volume != 70 || !st.Repeat || st.Random {
		t.Fatalf("unexpected status flags: %+v", st)
	}
	if st.Single != ToggleOneshot || st.Consume != ToggleOff {
		t.Fatalf("unexpected toggles: single=%q consume=%q", st.Single, st.Consume)
	}
	if st.SongID == nil || *st.SongID != 7 || st.NextSongID != nil {
		t.Fatalf("unexpected song ids: %+v", st)
	}
	if st.Elapsed != 12500*time.Millisecond || st.Duration != 200250*time.Millisecond {
		t.Fatalf("unexpected times: elapsed=%s duration=%s", st.Elapsed, st.Duration)
	}
	if st.PlaylistLength != 3 || st.Bitrate != 320 || st.Audio != "44100:24:2" {
		t.Fatalf("unexpected status: %+v", st)
	}
	assertWrites(t, sock, "status")
}

func TestClientStatusRejectsBadValue(t *testing.T) {
	testlog.Start(t)
	c, _ := newTestClient("state: dancing\nOK\n")
	_, err := c.Status(context.Background())
	if !errors.Is(err, ErrInvalidField) {
		t.Fatalf("expected ErrInvalidField, got %v", err)
	}
}

func TestClientCurrentSongEmpty(t *testing.T) {
	testlog.Start(t)
	c, _ := newTestClient("OK\n")
	_, ok, err := c.CurrentSong(context.Background())
	if err != nil || ok {
		t.Fatalf("expected no current song, ok=%v err=%v", ok, err)
	}
}

func TestClientPlaylistInfo(t *testing.T) {
	testlog.Start(t)
	c, _ := newTestClient(strings.Join([]string{
		"file: a/one.flac",
		"Last-Modified: 2024-01-02T03:04:05Z",
		"Artist: First",
		"Artist: Second",
		"Title: One",
		"Time: 181",
		"duration: 180.900",
		"Pos: 0",
		"Id: 10",
		"file: b/two.mp3",
		"Title: Two",
		"Time: 60",
		"Pos: 1",
		"Id: 11",
		"OK",
	}, "\n") + "\n")

	songs, err := c.PlaylistInfo(context.Background())
	if err != nil {
		t.Fatalf("playlistinfo: %v", err)
	}
	if len(songs) != 2 {
		t.Fatalf("expected 2 songs, got %d", len(songs))
	}
	first, second := songs[0], songs[1]
	if first.File != "a/one.flac" || first.ID != 10 || first.Pos != 0 {
		t.Fatalf("unexpected first song: %+v", first)
	}
	if first.Duration != 180900*time.Millisecond {
		t.Fatalf("duration should win over Time: %s", first.Duration)
	}
	if got := first.Tags["Artist"]; len(got) != 2 || got[1] != "Second" {
		t.Fatalf("unexpected artists: %q", got)
	}
	if first.LastModified.Year() != 2024 {
		t.Fatalf("unexpected last modified: %s", first.LastModified)
	}
	if second.Tag("title") != "Two" || second.Duration != time.Minute || second.ID != 11 {
		t.Fatalf("unexpected second song: %+v", second)
	}
}

func TestClientVolume(t *testing.T) {
	testlog.Start(t)
	c, sock := newTestClient("volume: 42\nOK\nOK\n")
	v, ok, err := c.Volume(context.Background())
	if err != nil || !ok || v != 42 {
		t.Fatalf("unexpected volume: v=%d ok=%v err=%v", v, ok, err)
	}
	_, ok, err = c.Volume(context.Background())
	if err != nil || ok {
		t.Fatalf("expected no mixer, ok=%v err=%v", ok, err)
	}
	assertWrites(t, sock, "getvol", "getvol")
}

func TestClientSetVolumeRange(t *testing.T) {
	testlog.Start(t)
	c, sock := newTestClient("OK\n")
	if err := c.SetVolume(context.Background(), 101); !errors.Is(err, ErrVolumeRange) {
		t.Fatalf("expected ErrVolumeRange, got %v", err)
	}
	if err := c.SetVolume(context.Background(), 55); err != nil {
		t.Fatalf("setvol: %v", err)
	}
	assertWrites(t, sock, "setvol 55")
}

func TestClientPlaybackCommands(t *testing.T) {
	testlog.Start(t)
	c, sock := newTestClient(strings.Repeat("OK\n", 7))
	ctx := context.Background()
	steps := []func() error{
		func() error { return c.Ping(ctx) },
		func() error { return c.Play(ctx) },
		func() error { return c.Pause(ctx, true) },
		func() error { return c.Pause(ctx, false) },
		func() error { return c.Next(ctx) },
		func() error { return c.Previous(ctx) },
		func() error { return c.Stop(ctx) },
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	assertWrites(t, sock, "ping", "play", "pause 1", "pause 0", "next", "previous", "stop")
}

func TestClientCommandFailure(t *testing.T) {
	testlog.Start(t)
	c, _ := newTestClient("ACK [2@0] {play} Bad song index\n")
	err := c.Play(context.Background())
	var failure *protocol.FailureResponse
	if !errors.As(err, &failure) || failure.Code != protocol.ErrorArg || failure.Command != "play" {
		t.Fatalf("expected argument failure, got %v", err)
	}
}

func TestClientIdle(t *testing.T) {
	testlog.Start(t)
	c, sock := newTestClient("changed: player\nchanged: bogus\nchanged: mixer\nOK\n")
	events, err := c.Idle(context.Background(), SubsystemPlayer, SubsystemMixer)
	if err != nil {
		t.Fatalf("idle: %v", err)
	}
	if len(events) != 2 || events[0] != SubsystemPlayer || events[1] != SubsystemMixer {
		t.Fatalf("unexpected events: %q", events)
	}
	if err := c.NoIdle(); err != nil {
		t.Fatalf("noidle: %v", err)
	}
	assertWrites(t, sock, "idle player mixer", "noidle")
}

func TestFindAlbumArtFallsBackToAlbumArt(t *testing.T) {
	testlog.Start(t)
	c, sock := newTestClient("OK\n" + binarySlice(len(pngMagic), "", pngMagic))
	pic, ok, err := c.FindAlbumArt(context.Background(), `dir/a "b".flac`)
	if err != nil || !ok {
		t.Fatalf("find album art ok=%v err=%v", ok, err)
	}
	if pic.MimeType != "image/png" || len(pic.Data) != len(pngMagic) {
		t.Fatalf("unexpected picture: mime=%q len=%d", pic.MimeType, len(pic.Data))
	}
	assertWrites(t, sock, `readpicture "dir/a \"b\".flac" 0`, `albumart "dir/a \"b\".flac" 0`)
}

func TestFindAlbumArtPrefersEmbedded(t *testing.T) {
	testlog.Start(t)
	c, sock := newTestClient(binarySlice(3, "image/jpeg", []byte{1, 2, 3}))
	pic, ok, err := c.FindAlbumArt(context.Background(), "a.flac")
	if err != nil || !ok || pic.MimeType != "image/jpeg" {
		t.Fatalf("unexpected result: pic=%+v ok=%v err=%v", pic, ok, err)
	}
	assertWrites(t, sock, `readpicture "a.flac" 0`)
}

func TestFindAlbumArtMissing(t *testing.T) {
	testlog.Start(t)
	c, _ := newTestClient("ACK [5@0] {} unknown command \"readpicture\"\nACK [50@0] {albumart} No file exists\n")
	_, ok, err := c.FindAlbumArt(context.Background(), "a.flac")
	if err != nil || ok {
		t.Fatalf("expected missing art, ok=%v err=%v", ok, err)
	}
}

func TestFindAlbumArtSurfacesConnectionLoss(t *testing.T) {
	testlog.Start(t)
	c, _ := newTestClient("", "")
	_, _, err := c.FindAlbumArt(context.Background(), "a.flac")
	if !errors.Is(err, protocol.ErrConnectionClosed) || !errors.Is(err, session.ErrReconnectsExhausted) {
		t.Fatalf("expected exhausted reconnects, got %v", err)
	}
}

func TestClientRecoversAfterInvalidStatus(t *testing.T) {
	testlog.Start(t)
	c, sock := newTestClient("state: bogus\nvolume: 5\nOK\nfile: a.mp3\nOK\n")
	ctx := context.Background()

	if _, err := c.Status(ctx); !errors.Is(err, ErrInvalidField) {
		t.Fatalf("expected ErrInvalidField, got %v", err)
	}
	song, ok, err := c.CurrentSong(ctx)
	if err != nil || !ok {
		t.Fatalf("current song: ok=%v err=%v", ok, err)
	}
	if song.File != "a.mp3" || len(song.Tags) != 0 {
		t.Fatalf("current song picked up status leftovers: %+v", song)
	}
	if sock.Reconnects() != 0 {
		t.Fatalf("expected the reply to be drained in place, got %d reconnects", sock.Reconnects())
	}
	assertWrites(t, sock, "status", "currentsong")
}
