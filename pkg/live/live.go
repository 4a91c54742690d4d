// Package live pushes chat-log updates to websocket clients. Each connection
// subscribes to one patient's log; whenever the log changes the client
// receives the full ordered entry view, so a client never has to merge
// deltas and out-of-order appends are invisible to it.
package live

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ScrewVolt/halov2/pkg/chatlog"
	"github.com/ScrewVolt/halov2/pkg/kv"
)

const (
	// writeWait bounds a single frame write. A client that cannot drain a
	// frame within it is dropped.
	writeWait = 10 * time.Second

	// sendBuffer is the per-client frame queue. Entry frames supersede
	// each other, so a shallow queue loses nothing a client needs.
	sendBuffer = 8
)

// Frame is one websocket message: a full entries view or a notice.
type Frame struct {
	Type    string          `json:"type"`
	Entries []chatlog.Entry `json:"entries,omitempty"`
	Message string          `json:"message,omitempty"`
}

// Frame types.
const (
	FrameEntries = "entries"
	FrameNotice  = "notice"
)

// Server is an http.Handler that upgrades requests to websocket
// subscriptions. Clients select a log with the "user" and "patient" query
// parameters.
type Server struct {
	store  kv.Store
	logger *slog.Logger

	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[string]map[*client]struct{}
}

// Option configures a Server.
type Option func(*Server)

// WithLogger overrides the default slog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithCheckOrigin overrides the upgrader's origin policy.
func WithCheckOrigin(check func(*http.Request) bool) Option {
	return func(s *Server) { s.upgrader.CheckOrigin = check }
}

// NewServer creates a Server reading logs from store.
func NewServer(store kv.Store, opts ...Option) *Server {
	s := &Server{
		store:  store,
		logger: slog.Default(),
		conns:  make(map[string]map[*client]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type client struct {
	conn   *websocket.Conn
	send   chan Frame
	cancel context.CancelFunc
	once   sync.Once
}

// drop severs the connection at most once.
func (c *client) drop() {
	c.once.Do(func() {
		c.cancel()
		c.conn.Close()
	})
}

// enqueue queues a frame without blocking. A full queue means the client is
// not keeping up; it gets dropped rather than stalling the watch loop.
func (c *client) enqueue(f Frame) {
	select {
	case c.send <- f:
	default:
		c.drop()
	}
}

// Notify sends a notice frame to every client subscribed to the given log.
func (s *Server) Notify(user, patient, message string) {
	key := user + "\x00" + patient
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns[key] {
		c.enqueue(Frame{Type: FrameNotice, Message: message})
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user := r.URL.Query().Get("user")
	patient := r.URL.Query().Get("patient")
	if user == "" || patient == "" {
		http.Error(w, "user and patient query parameters are required", http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		s.logger.Warn("live: websocket upgrade failed", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	c := &client{
		conn:   conn,
		send:   make(chan Frame, sendBuffer),
		cancel: cancel,
	}

	key := user + "\x00" + patient
	s.register(key, c)
	defer s.unregister(key, c)
	defer c.drop()

	log := chatlog.New(s.store, user, patient)
	views, err := log.Watch(ctx)
	if err != nil {
		s.logger.Error("live: watch failed", "user", user, "patient", patient, "error", err)
		return
	}

	// Read pump: the client sends nothing meaningful, but reading is how
	// we learn it went away.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				c.drop()
				return
			}
		}
	}()

	// Watch pump: fold log views into the send queue.
	go func() {
		for view := range views {
			c.enqueue(Frame{Type: FrameEntries, Entries: view})
		}
		c.drop()
	}()

	// Write pump.
	for {
		select {
		case <-ctx.Done():
			return
		case f := <-c.send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(f); err != nil {
				return
			}
		}
	}
}

func (s *Server) register(key string, c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conns[key] == nil {
		s.conns[key] = make(map[*client]struct{})
	}
	s.conns[key][c] = struct{}{}
}

func (s *Server) unregister(key string, c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns[key], c)
	if len(s.conns[key]) == 0 {
		delete(s.conns, key)
	}
}
