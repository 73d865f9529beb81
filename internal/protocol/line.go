package protocol

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	terminatorPrefix     = "OK"
	listTerminatorPrefix = "list_OK"
	failurePrefix        = "ACK"
	greetingPrefix       = "OK MPD "
)

// LineKind is the lexical class of one response line.
type LineKind int

const (
	LineValue LineKind = iota
	LineTerminator
)

func (k LineKind) String() string {
	switch k {
	case LineTerminator:
		return "terminator"
	case LineValue:
		return "value"
	default:
		return fmt.Sprintf("LineKind(%d)", int(k))
	}
}

// Line is one classified response line. Value holds the raw text without the
// trailing newline and is empty for terminators.
type Line struct {
	Kind  LineKind
	Value string
}

func (l Line) IsTerminator() bool {
	return l.Kind == LineTerminator
}

// ReadLine reads and classifies one line from r.
//
// A zero-byte read and a broken pipe both yield ErrConnectionClosed. An ACK
// line is returned as a *FailureResponse error.
func ReadLine(r *bufio.Reader) (Line, error) {
	raw, err := r.ReadString('\n')
	switch {
	case err == nil:
	case errors.Is(err, io.EOF) && raw != "":
		// last line arrived without a newline; classify what we have
	case IsConnectionClosed(err):
		return Line{}, closedError(err)
	default:
		return Line{}, err
	}
	return classify(strings.TrimSuffix(raw, "\n"))
}

func classify(line string) (Line, error) {
	switch {
	case strings.HasPrefix(line, terminatorPrefix), strings.HasPrefix(line, listTerminatorPrefix):
		return Line{Kind: LineTerminator}, nil
	case strings.HasPrefix(line, failurePrefix):
		failure, err := ParseFailure(line)
		if err != nil {
			return Line{}, err
		}
		return Line{}, failure
	}
	return Line{Kind: LineValue, Value: line}, nil
}

func closedError(cause error) error {
	if errors.Is(cause, ErrConnectionClosed) {
		return cause
	}
	return fmt.Errorf("%w: %v", ErrConnectionClosed, cause)
}

// ParseGreeting extracts the protocol version from the banner the server
// sends on connect ("OK MPD 0.23.5").
func ParseGreeting(line string) (string, error) {
	line = strings.TrimRight(line, "\r\n")
	if !strings.HasPrefix(line, greetingPrefix) {
		return "", fmt.Errorf("%w: %q", ErrMalformedGreeting, line)
	}
	version := strings.TrimSpace(strings.TrimPrefix(line, greetingPrefix))
	if version == "" {
		return "", fmt.Errorf("%w: missing version", ErrMalformedGreeting)
	}
	return version, nil
}

// Quote renders s as a single command argument, escaping quotes and
// backslashes.
func Quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		if s[i] == '"' || s[i] == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	b.WriteByte('"')
	return b.String()
}
