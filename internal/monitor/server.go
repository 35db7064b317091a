// Package monitor serves the optional HTTP/push front-end: a static
// viewer page and a WebSocket endpoint that speaks the push protocol
// defined in protocol.go, backed by a hub.Hub.
package monitor

import (
	"context"
	"crypto/rand"
	"embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/artpar/termcast/internal/hub"
	"github.com/artpar/termcast/internal/logging"
	"github.com/artpar/termcast/internal/session"
)

//go:embed static/index.html
var staticFS embed.FS

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server owns the two listeners named in the spec: an HTTP server
// serving the viewer page, and a push endpoint one port above it.
type Server struct {
	httpServer *http.Server
	pushServer *http.Server
	hub        *hub.Hub
	meta       session.Metadata
	size       Size
	log        *logging.Logger
}

// New builds a Server bound to host at httpPort, with the push endpoint
// at httpPort+1, both sharing h.
func New(host string, httpPort int, h *hub.Hub, meta session.Metadata, size Size) *Server {
	s := &Server{hub: h, meta: meta, size: size, log: logging.WithComponent("monitor")}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/health", s.handleHealth)
	s.httpServer = &http.Server{Addr: fmt.Sprintf("%s:%d", host, httpPort), Handler: mux}

	pushMux := http.NewServeMux()
	pushMux.HandleFunc("/ws", s.handleWS)
	s.pushServer = &http.Server{Addr: fmt.Sprintf("%s:%d", host, httpPort+1), Handler: pushMux}

	return s
}

// Start begins serving both listeners in background goroutines.
func (s *Server) Start() error {
	httpErr := make(chan error, 1)
	go func() { httpErr <- s.httpServer.ListenAndServe() }()

	pushErrCh := make(chan error, 1)
	go func() { pushErrCh <- s.pushServer.ListenAndServe() }()

	select {
	case err := <-httpErr:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("monitor: http listen: %w", err)
		}
	case err := <-pushErrCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("monitor: push listen: %w", err)
		}
	case <-time.After(200 * time.Millisecond):
		// Neither listener failed within the startup window; assume ok.
	}
	return nil
}

// Close shuts both listeners down with a bounded timeout.
func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.httpServer.Shutdown(ctx)
	return s.pushServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data, err := staticFS.ReadFile("static/index.html")
	if err != nil {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, "<!doctype html><title>termcast monitor</title><p>viewer unavailable</p>")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "ok")
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", logging.F("error", err.Error()))
		return
	}
	defer conn.Close()

	id := randomID()
	viewer, entries, info := s.hub.Attach(id)
	defer s.hub.Detach(viewer)

	recent := make([]OutputEntry, 0, len(entries))
	for _, e := range entries {
		recent = append(recent, OutputEntry{
			Timestamp: e.Time,
			EventType: e.Kind,
			Data:      e.Payload,
		})
	}

	sync := TerminalSync{
		Type:            TypeTerminalSync,
		SessionMetadata: s.meta,
		TerminalSize:    s.size,
		RecentOutput:    recent,
		BufferInfo: BufferInfo{
			TotalEvents:   info.TotalEvents,
			ShowingRecent: info.ShowingRecent,
			SyncTime:      info.SyncTime.Format(time.RFC3339),
		},
	}
	if err := conn.WriteJSON(sync); err != nil {
		return
	}

	done := make(chan struct{})
	go s.readLoop(conn, done)
	s.writeLoop(conn, viewer, done)
}

// readLoop drains inbound client messages, accepting and ignoring
// client_hello and ignoring everything else, until the connection closes.
func (s *Server) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var env Envelope
		_ = json.Unmarshal(data, &env)
	}
}

func (s *Server) writeLoop(conn *websocket.Conn, viewer *hub.Viewer, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		case entry, ok := <-viewer.Outbox():
			if !ok {
				conn.WriteJSON(SessionEvent{Type: TypeSessionEvent, Event: "session_ended"})
				return
			}
			msg := TerminalData{
				Type:      TypeTerminalData,
				Timestamp: entry.Time,
				EventType: entry.Kind,
				Data:      entry.Payload,
			}
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		}
	}
}

func randomID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return hex.EncodeToString(b)
}
