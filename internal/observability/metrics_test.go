package observability

import (
	"errors"
	"fmt"
	"io"
	"syscall"
	"testing"
	"time"

	"github.com/danmuck/mpdctl/internal/protocol"
	"github.com/danmuck/mpdctl/internal/testutil/testlog"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	testlog.Start(t)
	RegisterMetrics()
	RegisterMetrics()

	before := testutil.ToFloat64(commands.WithLabelValues("command", "status", "ok"))
	RecordCommand("command", "status", 3*time.Millisecond, nil)
	RecordCommand("command", `albumart "a.flac" 0`, 3*time.Millisecond, io.EOF)
	RecordReconnect("idle", nil)
	RecordBinaryBytes(111)
	RecordIdleEvent("player")
	RecordHTTPRequest("GET", "/health", 200, time.Millisecond)

	if got := testutil.ToFloat64(commands.WithLabelValues("command", "status", "ok")); got != before+1 {
		t.Fatalf("expected status counter to advance, got %v want %v", got, before+1)
	}
	if got := testutil.ToFloat64(commands.WithLabelValues("command", "albumart", "closed")); got < 1 {
		t.Fatalf("expected closed albumart sample, got %v", got)
	}
}

func TestCommandLabels(t *testing.T) {
	testlog.Start(t)
	if v := CommandVerb(`  readpicture "x" 0`); v != "readpicture" {
		t.Fatalf("unexpected verb: %q", v)
	}
	if v := CommandVerb(""); v != "none" {
		t.Fatalf("unexpected empty verb: %q", v)
	}

	ack, err := protocol.ParseFailure("ACK [50@0] {albumart} No file exists")
	if err != nil {
		t.Fatalf("parse failure: %v", err)
	}
	cases := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{fmt.Errorf("wrapped: %w", ack), "failure"},
		{syscall.EPIPE, "closed"},
		{errors.New("boom"), "error"},
	}
	for _, tc := range cases {
		if got := CommandResult(tc.err); got != tc.want {
			t.Fatalf("CommandResult(%v) = %q want %q", tc.err, got, tc.want)
		}
	}
}
