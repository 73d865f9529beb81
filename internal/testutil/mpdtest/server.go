package mpdtest

import (
	"bufio"
	"net"
	"strings"
	"sync"
	"testing"
)

const (
	// Hangup as a handler response closes the connection without replying.
	Hangup = "\x00hangup"

	DefaultVersion = "0.23.5"
)

// HandlerFunc answers one command on connection number conn (0-based, in
// accept order) with the raw bytes to send back.
type HandlerFunc func(conn int, command string) string

// Server is a scripted TCP daemon that greets with "OK MPD <version>".
type Server struct {
	ln      net.Listener
	handler HandlerFunc
	version string

	mu       sync.Mutex
	conns    []net.Conn
	commands []string
	closed   bool
	wg       sync.WaitGroup
}

func NewServer(t testing.TB, handler HandlerFunc) *Server {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &Server{ln: ln, handler: handler, version: DefaultVersion}
	s.wg.Add(1)
	go s.acceptLoop()
	t.Cleanup(s.Close)
	return s
}

func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Connections is the number of connections accepted so far.
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Commands returns every command received, in arrival order.
func (s *Server) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.commands))
	copy(out, s.commands)
	return out
}

func (s *Server) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	_ = s.ln.Close()
	for _, c := range s.conns {
		_ = c.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			_ = conn.Close()
			return
		}
		idx := len(s.conns)
		s.conns = append(s.conns, conn)
		s.wg.Add(1)
		s.mu.Unlock()
		go s.serve(conn, idx)
	}
}

func (s *Server) serve(conn net.Conn, idx int) {
	defer s.wg.Done()
	defer conn.Close()
	if _, err := conn.Write([]byte("OK MPD " + s.version + "\n")); err != nil {
		return
	}
	r := bufio.NewReader(conn)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		command := strings.TrimSuffix(line, "\n")
		s.mu.Lock()
		s.commands = append(s.commands, command)
		s.mu.Unlock()

		resp := s.handler(idx, command)
		if resp == Hangup {
			return
		}
		if _, err := conn.Write([]byte(resp)); err != nil {
			return
		}
	}
}
