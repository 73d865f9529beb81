// Package mpdtest provides scripted stand-ins for the daemon: an in-memory
// Socket for driving transactions deterministically and a TCP server for
// exercising real connections.
package mpdtest

import (
	"bufio"
	"context"
	"strings"
	"sync"
)

// Socket is an in-memory session.Socket. Each connection replays one
// scripted response stream; Reconnect moves on to the next script. Once the
// scripts run out every read sees a closed stream.
type Socket struct {
	mu           sync.Mutex
	scripts      []string
	current      int
	reader       *bufio.Reader
	writes       []string
	writeErrs    []error
	reconnects   int
	reconnectErr error
}

func NewSocket(scripts ...string) *Socket {
	s := &Socket{scripts: scripts}
	s.reader = bufio.NewReader(strings.NewReader(s.script(0)))
	return s
}

func (s *Socket) script(i int) string {
	if i < len(s.scripts) {
		return s.scripts[i]
	}
	return ""
}

func (s *Socket) Reconnect(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reconnects++
	if s.reconnectErr != nil {
		return s.reconnectErr
	}
	s.current++
	s.reader = bufio.NewReader(strings.NewReader(s.script(s.current)))
	return nil
}

func (s *Socket) Write(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.writeErrs) > 0 {
		err := s.writeErrs[0]
		s.writeErrs = s.writeErrs[1:]
		if err != nil {
			return err
		}
	}
	s.writes = append(s.writes, string(p))
	return nil
}

func (s *Socket) Reader() *bufio.Reader {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reader
}

// FailWrites queues errors for the next writes; nil entries succeed.
func (s *Socket) FailWrites(errs ...error) {
	s.mu.Lock()
	s.writeErrs = append(s.writeErrs, errs...)
	s.mu.Unlock()
}

// FailReconnects makes every later Reconnect return err.
func (s *Socket) FailReconnects(err error) {
	s.mu.Lock()
	s.reconnectErr = err
	s.mu.Unlock()
}

// Writes returns the command lines written so far, newline stripped.
func (s *Socket) Writes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.writes))
	for i, w := range s.writes {
		out[i] = strings.TrimSuffix(w, "\n")
	}
	return out
}

func (s *Socket) Reconnects() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reconnects
}
