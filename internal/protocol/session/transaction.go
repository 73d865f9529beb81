package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/danmuck/mpdctl/internal/protocol"
	"github.com/rs/zerolog/log"
)

var (
	ErrTransactionConsumed = errors.New("session: transaction already read")
	ErrReconnectsExhausted = errors.New("session: reconnect attempts exhausted")
	ErrValueExpected       = errors.New("session: expected binary data but got none")
	ErrNotBinary           = errors.New("session: transaction was not started as a binary request")
)

// Engine executes commands over one Socket. It is not safe for concurrent
// use; callers serialize access per connection.
type Engine struct {
	sock Socket
	cfg  Config
	rng  *rand.Rand

	// stale is set when a read stopped partway through a reply; the next
	// command reconnects before it is sent.
	stale bool
}

func NewEngine(sock Socket, cfg Config) *Engine {
	return &Engine{
		sock: sock,
		cfg:  cfg.WithDefaults(),
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Transaction is one command round trip. Exactly one read method may be
// called on it.
type Transaction struct {
	ctx      context.Context
	engine   *Engine
	command  string
	base     string
	attempts int
	consumed bool
}

// Execute writes command and returns the transaction that reads its reply.
func (e *Engine) Execute(ctx context.Context, command string) (*Transaction, error) {
	if err := e.resync(ctx); err != nil {
		return nil, err
	}
	t := &Transaction{ctx: ctx, engine: e, command: command}
	if err := t.send(command); err != nil {
		return nil, err
	}
	return t, nil
}

// ExecuteBinary starts a sliced binary request. command is sent with a
// trailing byte offset that ReadBinary advances as slices arrive.
func (e *Engine) ExecuteBinary(ctx context.Context, command string) (*Transaction, error) {
	if err := e.resync(ctx); err != nil {
		return nil, err
	}
	first := withOffset(command, 0)
	t := &Transaction{ctx: ctx, engine: e, command: first, base: command}
	if err := t.send(first); err != nil {
		return nil, err
	}
	return t, nil
}

// Stale reports whether the socket still holds part of an abandoned reply.
func (e *Engine) Stale() bool {
	return e.stale
}

func (e *Engine) resync(ctx context.Context) error {
	if !e.stale {
		return nil
	}
	log.Debug().Msg("session.Engine dropping connection with unread reply")
	if err := e.sock.Reconnect(ctx); err != nil {
		return err
	}
	e.stale = false
	return nil
}

func (t *Transaction) Command() string {
	return t.command
}

// send writes one command line. A write that finds the connection closed is
// retried once on a fresh connection.
func (t *Transaction) send(command string) error {
	payload := []byte(command + "\n")
	err := t.engine.sock.Write(payload)
	if err == nil || !protocol.IsConnectionClosed(err) {
		return err
	}
	log.Warn().Err(err).Str("command", loggable(command)).Msg("session.Transaction write hit closed connection, reconnecting")
	if err := t.engine.sock.Reconnect(t.ctx); err != nil {
		return err
	}
	return t.engine.sock.Write(payload)
}

func (t *Transaction) begin() error {
	if t.consumed {
		return ErrTransactionConsumed
	}
	t.consumed = true
	log.Trace().Str("command", loggable(t.command)).Msg("session.Transaction reading response")
	return nil
}

// recover re-dials and replays command after the connection closed under a
// read. It gives up after Config.MaxReconnects attempts per transaction.
func (t *Transaction) recover(command string, cause error) error {
	limit := t.engine.cfg.MaxReconnects
	for {
		t.attempts++
		if t.attempts > limit {
			if !errors.Is(cause, protocol.ErrConnectionClosed) {
				cause = fmt.Errorf("%w: %w", protocol.ErrConnectionClosed, cause)
			}
			return fmt.Errorf("%w after %d attempts: %w", ErrReconnectsExhausted, limit, cause)
		}
		log.Warn().
			Err(cause).
			Int("attempt", t.attempts).
			Str("command", loggable(command)).
			Msg("session.Transaction connection closed, replaying")
		if err := SleepBackoff(t.ctx, t.engine.cfg.Backoff, t.attempts, t.engine.rng); err != nil {
			return err
		}
		err := t.engine.sock.Reconnect(t.ctx)
		if err == nil {
			err = t.send(command)
		}
		if err == nil {
			t.command = command
			return nil
		}
		if errors.Is(err, ErrConnShutdown) || t.ctx.Err() != nil {
			return err
		}
		cause = err
	}
}

// lineError is a failure raised after a whole line was consumed, with the
// rest of the reply still on the stream.
type lineError struct {
	err error
}

func (e *lineError) Error() string { return e.err.Error() }

func (e *lineError) Unwrap() error { return e.err }

// finish leaves the socket at a reply boundary once a read has ended with
// err. Text replies that failed on a line are drained to their terminator;
// anything else marks the engine stale.
func (t *Transaction) finish(err error) error {
	if err == nil {
		return nil
	}
	var (
		le      *lineError
		failure *protocol.FailureResponse
	)
	drain := false
	if errors.As(err, &le) {
		err = le.err
		drain = t.base == ""
	}
	switch {
	case errors.As(err, &failure), errors.Is(err, ErrValueExpected):
		// the reply is over
		return err
	case drain:
		derr := drainReply(t.engine.sock.Reader())
		if derr == nil {
			return err
		}
		log.Debug().Err(derr).Str("command", loggable(t.command)).Msg("session.Transaction drain failed")
	}
	t.engine.stale = true
	return err
}

// drainReply discards lines up to and including the reply terminator.
func drainReply(r *bufio.Reader) error {
	var failure *protocol.FailureResponse
	for {
		line, err := protocol.ReadLine(r)
		if errors.As(err, &failure) {
			return nil
		}
		if err != nil {
			return err
		}
		if line.IsTerminator() {
			return nil
		}
	}
}

// ReadOK expects a bare terminator.
func (t *Transaction) ReadOK() error {
	if err := t.begin(); err != nil {
		return err
	}
	return t.finish(t.readOK())
}

func (t *Transaction) readOK() error {
	for {
		err := protocol.ExpectTerminator(t.engine.sock.Reader())
		if errors.Is(err, protocol.ErrUnexpectedValue) {
			return &lineError{err: err}
		}
		if !protocol.IsConnectionClosed(err) {
			return err
		}
		if err := t.recover(t.command, err); err != nil {
			return err
		}
	}
}

// ReadResponse decodes the reply into a fresh T.
func ReadResponse[T any, PT protocol.DecoderPtr[T]](t *Transaction) (T, error) {
	v, _, err := readDecoded[T, PT](t)
	return v, err
}

// ReadOptResponse is ReadResponse that reports found=false when the reply
// carried no value lines at all.
func ReadOptResponse[T any, PT protocol.DecoderPtr[T]](t *Transaction) (T, bool, error) {
	return readDecoded[T, PT](t)
}

func readDecoded[T any, PT protocol.DecoderPtr[T]](t *Transaction) (T, bool, error) {
	var zero T
	if err := t.begin(); err != nil {
		return zero, false, err
	}
	for {
		v, found, err := decodeStream[T, PT](t.engine.sock.Reader())
		if !protocol.IsConnectionClosed(err) {
			return v, found, t.finish(err)
		}
		// the server restarts the reply from the top; partial state is dropped
		if err := t.recover(t.command, err); err != nil {
			return zero, false, t.finish(err)
		}
	}
}

func decodeStream[T any, PT protocol.DecoderPtr[T]](r *bufio.Reader) (T, bool, error) {
	var result, zero T
	found := false
	for {
		line, err := protocol.ReadLine(r)
		if err != nil {
			return zero, false, err
		}
		if line.IsTerminator() {
			return result, found, nil
		}
		found = true
		if err := protocol.Feed(PT(&result), line.Value); err != nil {
			return zero, false, &lineError{err: err}
		}
	}
}

func withOffset(command string, offset int) string {
	return fmt.Sprintf("%s %d", command, offset)
}

func loggable(command string) string {
	if strings.HasPrefix(command, "password ") {
		return "password ***"
	}
	return command
}
