package protocol

import (
	"errors"
	"io"
	"net"
	"syscall"
)

var (
	ErrConnectionClosed    = errors.New("protocol: connection closed")
	ErrUnexpectedValue     = errors.New("protocol: expected terminator, got value")
	ErrMalformedAck        = errors.New("protocol: malformed ack line")
	ErrUnknownErrorCode    = errors.New("protocol: unknown error code")
	ErrMalformedLine       = errors.New("protocol: malformed key/value line")
	ErrMalformedGreeting   = errors.New("protocol: malformed greeting")
	ErrUnexpectedBinaryKey = errors.New("protocol: unexpected key in binary preamble")
	ErrInvalidBinaryHeader = errors.New("protocol: invalid binary preamble value")
	ErrPayloadTooLarge     = errors.New("protocol: payload too large")
)

// IsConnectionClosed reports whether err means the peer is gone and the
// request may be replayed on a fresh connection.
func IsConnectionClosed(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, ErrConnectionClosed),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, net.ErrClosed),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNABORTED):
		return true
	}
	return false
}
