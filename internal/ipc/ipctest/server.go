// Package ipctest provides a scripted stand-in for mpv's IPC server.
package ipctest

import (
	"bufio"
	"encoding/json"
	"errors"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// Request is one command received from the client.
type Request struct {
	ID      int64
	Command []any
	Raw     map[string]any
}

// Handler produces the raw lines (without newlines) written back for a
// request. Returning nil writes nothing.
type Handler func(Request) []string

// Server accepts a single client on a Unix socket and records the commands
// it sends.
type Server struct {
	path     string
	listener net.Listener

	mu      sync.Mutex
	conn    net.Conn
	handler Handler

	accepted chan struct{}
	requests chan Request
	done     chan struct{}
	wg       sync.WaitGroup
}

// SocketPath returns a fresh socket path short enough for sun_path.
func SocketPath(t testing.TB) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "mpvipc")
	if err != nil {
		t.Fatalf("mkdir temp: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return filepath.Join(dir, "mpv.sock")
}

// NewServer listens on a fresh socket and closes it when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()
	srv, err := Listen(SocketPath(t))
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(srv.Close)
	return srv
}

// Listen starts a server on path.
func Listen(path string) (*Server, error) {
	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	srv := &Server{
		path:     path,
		listener: listener,
		accepted: make(chan struct{}),
		requests: make(chan Request, 256),
		done:     make(chan struct{}),
	}
	srv.wg.Add(1)
	go srv.acceptOne()
	return srv, nil
}

// Path returns the socket path.
func (s *Server) Path() string { return s.path }

// Handle installs a handler that answers requests as they arrive.
func (s *Server) Handle(h Handler) {
	s.mu.Lock()
	s.handler = h
	s.mu.Unlock()
}

// Requests streams every request the client sent.
func (s *Server) Requests() <-chan Request { return s.requests }

// NextRequest waits for the next request.
func (s *Server) NextRequest(t testing.TB, timeout time.Duration) Request {
	t.Helper()
	select {
	case req := <-s.requests:
		return req
	case <-time.After(timeout):
		t.Fatalf("no request within %s", timeout)
		return Request{}
	}
}

// WaitAccepted blocks until a client has connected.
func (s *Server) WaitAccepted(t testing.TB, timeout time.Duration) {
	t.Helper()
	select {
	case <-s.accepted:
	case <-time.After(timeout):
		t.Fatalf("client did not connect within %s", timeout)
	}
}

// Accepted is closed once a client has connected.
func (s *Server) Accepted() <-chan struct{} { return s.accepted }

// Send writes raw bytes to the client. Unlike Push it is safe to call from
// goroutines other than the test's own.
func (s *Server) Send(data string) error {
	return s.write([]byte(data))
}

// Push writes raw bytes to the client exactly as given.
func (s *Server) Push(t testing.TB, data string) {
	t.Helper()
	if err := s.write([]byte(data)); err != nil {
		t.Fatalf("push: %v", err)
	}
}

// Reply writes a reply line for the given request id.
func (s *Server) Reply(t testing.TB, id int64, errCode string, data any) {
	t.Helper()
	s.Push(t, ReplyLine(id, errCode, data)+"\n")
}

// Event writes a generic event line.
func (s *Server) Event(t testing.TB, name string) {
	t.Helper()
	s.Push(t, EventLine(name)+"\n")
}

// ScriptMessage writes a client-message event line.
func (s *Server) ScriptMessage(t testing.TB, args ...string) {
	t.Helper()
	s.Push(t, ScriptMessageLine(args...)+"\n")
}

// Hangup closes the client connection while keeping the listener.
func (s *Server) Hangup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		_ = s.conn.Close()
	}
}

// Close shuts the server down.
func (s *Server) Close() {
	select {
	case <-s.done:
		return
	default:
		close(s.done)
	}
	_ = s.listener.Close()
	s.Hangup()
	s.wg.Wait()
}

func (s *Server) write(data []byte) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return errors.New("no client connected")
	}
	_, err := conn.Write(data)
	return err
}

func (s *Server) acceptOne() {
	defer s.wg.Done()
	conn, err := s.listener.Accept()
	if err != nil {
		return
	}
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	close(s.accepted)

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		var raw map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &raw); err != nil {
			continue
		}
		req := Request{Raw: raw}
		if id, ok := raw["request_id"].(float64); ok {
			req.ID = int64(id)
		}
		if cmd, ok := raw["command"].([]any); ok {
			req.Command = cmd
		}

		s.mu.Lock()
		h := s.handler
		s.mu.Unlock()
		if h != nil {
			for _, line := range h(req) {
				if err := s.write([]byte(line + "\n")); err != nil {
					return
				}
			}
		}
		select {
		case s.requests <- req:
		case <-s.done:
			return
		}
	}
}

// ReplyLine renders a reply object.
func ReplyLine(id int64, errCode string, data any) string {
	obj := map[string]any{"error": errCode, "request_id": id}
	if data != nil {
		obj["data"] = data
	}
	return mustJSON(obj)
}

// EventLine renders a generic event object.
func EventLine(name string) string {
	return mustJSON(map[string]any{"event": name})
}

// ScriptMessageLine renders a client-message event object.
func ScriptMessageLine(args ...string) string {
	if args == nil {
		args = []string{}
	}
	return mustJSON(map[string]any{"event": "client-message", "args": args})
}

// Success answers every request with {"error":"success"} and the given data.
func Success(data any) Handler {
	return func(req Request) []string {
		return []string{ReplyLine(req.ID, "success", data)}
	}
}

func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(data)
}
