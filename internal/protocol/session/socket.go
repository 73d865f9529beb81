package session

import (
	"bufio"
	"context"
)

// Socket is a duplex byte stream that can be re-dialed in place.
//
// Reconnect must be safe to call repeatedly while the peer stays down. Reader
// returns the buffered read side of the current connection.
type Socket interface {
	Reconnect(ctx context.Context) error
	Write(p []byte) error
	Reader() *bufio.Reader
}
