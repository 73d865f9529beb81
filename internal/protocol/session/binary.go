package session

import (
	"fmt"
	"io"
	"strings"

	"github.com/danmuck/mpdctl/internal/protocol"
	"github.com/rs/zerolog/log"
)

// BinaryPayload is a fully assembled binary response.
type BinaryPayload struct {
	Data      []byte
	MimeType  string
	SizeTotal uint32
}

// ReadBinary assembles a sliced binary response, re-issuing the base command
// with the buffered length as offset until the declared size arrives or a
// slice comes back empty. ok is false when the server had no binary data.
func (t *Transaction) ReadBinary() (BinaryPayload, bool, error) {
	if t.base == "" {
		return BinaryPayload{}, false, ErrNotBinary
	}
	if err := t.begin(); err != nil {
		return BinaryPayload{}, false, err
	}
	out, ok, err := t.readBinary()
	return out, ok, t.finish(err)
}

func (t *Transaction) readBinary() (BinaryPayload, bool, error) {
	var (
		out      BinaryPayload
		buf      []byte
		received bool
	)
	for {
		h, chunk, ok, err := t.readChunk()
		if protocol.IsConnectionClosed(err) {
			// only acknowledged slices are in buf, so its length is the
			// offset the server has to resume from
			if err := t.recover(withOffset(t.base, len(buf)), err); err != nil {
				return BinaryPayload{}, false, err
			}
			continue
		}
		if err != nil {
			return BinaryPayload{}, false, err
		}
		if !ok {
			if !received {
				log.Debug().Str("command", t.base).Msg("session.Transaction no binary data")
				return BinaryPayload{}, false, nil
			}
			return BinaryPayload{}, false, fmt.Errorf("%w: %s at offset %d", ErrValueExpected, t.base, len(buf))
		}

		received = true
		buf = append(buf, chunk...)
		out.SizeTotal = h.SizeTotal
		if h.MimeType != "" {
			out.MimeType = h.MimeType
		}
		if uint64(len(buf)) >= uint64(h.SizeTotal) || h.BytesRead == 0 {
			break
		}

		next := withOffset(t.base, len(buf))
		t.command = next
		if err := t.send(next); err != nil {
			return BinaryPayload{}, false, err
		}
	}

	log.Trace().Str("command", t.base).Int("len", len(buf)).Msg("session.Transaction binary response complete")
	out.Data = buf
	return out, true, nil
}

// readChunk reads one slice: preamble, raw bytes, blank trailer, terminator.
func (t *Transaction) readChunk() (protocol.BinaryHeader, []byte, bool, error) {
	limits := t.engine.cfg.Limits
	r := t.engine.sock.Reader()
	h, ok, err := protocol.ReadBinaryHeader(r)
	if err != nil || !ok {
		return protocol.BinaryHeader{}, nil, false, err
	}
	if uint64(h.SizeTotal) > limits.MaxBinaryBytes || h.BytesRead > limits.MaxBinaryBytes {
		return protocol.BinaryHeader{}, nil, false, fmt.Errorf("%w: size=%d binary=%d limit=%d",
			protocol.ErrPayloadTooLarge, h.SizeTotal, h.BytesRead, limits.MaxBinaryBytes)
	}

	chunk := make([]byte, h.BytesRead)
	if _, err := io.ReadFull(r, chunk); err != nil {
		return protocol.BinaryHeader{}, nil, false, readErr("binary payload", err)
	}
	trailer, err := r.ReadString('\n')
	if err != nil {
		return protocol.BinaryHeader{}, nil, false, readErr("binary trailer", err)
	}
	if trailer = strings.TrimRight(trailer, "\r\n"); trailer != "" {
		return protocol.BinaryHeader{}, nil, false, fmt.Errorf("%w: binary trailer '%s'", protocol.ErrUnexpectedValue, trailer)
	}
	if err := protocol.ExpectTerminator(r); err != nil {
		return protocol.BinaryHeader{}, nil, false, err
	}
	return h, chunk, true, nil
}

func readErr(what string, err error) error {
	if protocol.IsConnectionClosed(err) {
		return fmt.Errorf("%w: %s: %v", protocol.ErrConnectionClosed, what, err)
	}
	return fmt.Errorf("session: read %s: %w", what, err)
}
