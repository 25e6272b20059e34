// Package diagstream optionally broadcasts diagnostics to connected editor
// clients over a websocket as each pipeline phase finishes (SPEC_FULL.md
// §4.11). It is entirely observational: disabling it (the default) changes
// nothing about compiled output, matching how internal/network's websocket
// server only ever echoes state that already exists elsewhere.
package diagstream

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"volta/internal/diagnostics"
)

// Message is one JSON frame sent to connected clients: either a diagnostic
// emitted by a just-finished phase, or the final summary.
type Message struct {
	Kind     string                 `json:"kind"` // "diagnostic" or "summary"
	Phase    string                 `json:"phase,omitempty"`
	Severity string                 `json:"severity,omitempty"`
	Text     string                 `json:"text,omitempty"`
	Line     int                    `json:"line,omitempty"`
	Column   int                    `json:"column,omitempty"`
	Errors   int    `json:"errors,omitempty"`
	Warnings int    `json:"warnings,omitempty"`
}

// client is one connected websocket peer, identified the way
// internal/network.WebSocketConn identifies connections — here with a real
// uuid.UUID since google/uuid is already a dependency, rather than the
// teacher's fmt.Sprintf("ws_%d", time.Now().UnixNano()) scheme.
type client struct {
	id   uuid.UUID
	conn *websocket.Conn
	mu   sync.Mutex
}

// Server is an optional websocket broadcaster the driver can start before
// running the pipeline. The zero value is not usable; construct with New.
type Server struct {
	upgrader websocket.Upgrader
	httpSrv  *http.Server

	mu      sync.RWMutex
	clients map[uuid.UUID]*client
}

// New returns a Server that is not yet listening.
func New() *Server {
	return &Server{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[uuid.UUID]*client),
	}
}

// Start begins listening on addr and returns immediately; the HTTP server
// runs in its own goroutine, matching gorilla/websocket's usual idiom.
func (s *Server) Start(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/diagnostics", s.handleConn)
	s.httpSrv = &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpSrv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	default:
	}
	return nil
}

// Stop closes every client connection and shuts down the HTTP server.
func (s *Server) Stop() error {
	s.mu.Lock()
	for id, c := range s.clients {
		c.mu.Lock()
		c.conn.Close()
		c.mu.Unlock()
		delete(s.clients, id)
	}
	s.mu.Unlock()
	if s.httpSrv != nil {
		return s.httpSrv.Close()
	}
	return nil
}

func (s *Server) handleConn(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &client{id: uuid.New(), conn: conn}
	s.mu.Lock()
	s.clients[c.id] = c
	s.mu.Unlock()
}

// BroadcastDiagnostic sends one diagnostic, tagged with the phase that
// produced it, to every connected client.
func (s *Server) BroadcastDiagnostic(phase string, d diagnostics.Diagnostic) {
	s.broadcast(Message{
		Kind:     "diagnostic",
		Phase:    phase,
		Severity: string(d.Severity),
		Text:     d.Message,
		Line:     d.Loc.Line,
		Column:   d.Loc.Column,
	})
}

// BroadcastSummary sends the final error/warning tally once a whole build
// finishes.
func (s *Server) BroadcastSummary(errors, warnings int) {
	s.broadcast(Message{Kind: "summary", Errors: errors, Warnings: warnings})
}

func (s *Server) broadcast(msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	s.mu.RLock()
	clients := make([]*client, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.RUnlock()

	for _, c := range clients {
		c.mu.Lock()
		c.conn.WriteMessage(websocket.TextMessage, payload)
		c.mu.Unlock()
	}
}
