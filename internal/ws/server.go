// Package ws serves the HTTP and websocket control plane.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/coreman2200/funtimes-ledstrip/internal/command"
	"github.com/coreman2200/funtimes-ledstrip/internal/controller"
	diag "github.com/coreman2200/funtimes-ledstrip/internal/diagnostics"
)

const writeWait = 200 * time.Millisecond

type frame struct {
	T       int64  `json:"t"`
	FrameID uint64 `json:"frame_id"`
	RGB     []byte `json:"rgb"`
}

type Server struct {
	ch      *command.Channel
	status  func() controller.Status
	log     zerolog.Logger
	timeout time.Duration

	mu          sync.RWMutex
	clients     map[*websocket.Conn]bool
	diagClients map[*websocket.Conn]bool
	recent      *diag.Ring

	frames    chan frame
	diags     chan diag.Diagnostic
	startTime time.Time
	up        websocket.Upgrader
}

// New returns a server that forwards commands into ch. status is called
// from HTTP handlers and must be safe for concurrent use.
func New(ch *command.Channel, status func() controller.Status, log zerolog.Logger) *Server {
	return &Server{
		ch:          ch,
		status:      status,
		log:         log,
		timeout:     2 * time.Second,
		clients:     map[*websocket.Conn]bool{},
		diagClients: map[*websocket.Conn]bool{},
		recent:      diag.NewRing(32),
		frames:      make(chan frame, 1),
		diags:       make(chan diag.Diagnostic, 16),
		startTime:   time.Now(),
		up:          websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/control", s.HandleControlWS)
	mux.HandleFunc("/ws", s.HandleFramesWS)
	mux.HandleFunc("/diag", s.HandleDiagWS)
	mux.HandleFunc("/health", s.HandleHealth)
	mux.HandleFunc("/patterns", s.HandlePatterns)
	mux.HandleFunc("/command", s.HandleCommand)
	return mux
}

// PublishFrame queues a frame for websocket clients. When the broadcaster is
// behind, the frame is dropped.
func (s *Server) PublishFrame(id uint64, rgb []byte) {
	select {
	case s.frames <- frame{T: time.Now().UnixNano(), FrameID: id, RGB: rgb}:
	default:
	}
}

// PublishDiag queues d for diagnostic clients, dropping it when the queue is full.
func (s *Server) PublishDiag(d diag.Diagnostic) {
	select {
	case s.diags <- d:
	default:
	}
}

// Run broadcasts published frames and diagnostics until ctx is done.
func (s *Server) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.closeAll()
			return
		case f := <-s.frames:
			b, _ := json.Marshal(f)
			s.broadcast(s.clients, b)
		case d := <-s.diags:
			s.mu.Lock()
			s.recent.Add(d)
			s.mu.Unlock()
			b, _ := json.Marshal(d)
			s.broadcast(s.diagClients, b)
		}
	}
}

func (s *Server) broadcast(set map[*websocket.Conn]bool, b []byte) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for c := range set {
		c.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.WriteMessage(websocket.TextMessage, b); err != nil {
			s.log.Debug().Err(err).Msg("websocket write")
		}
	}
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		c.Close()
	}
	for c := range s.diagClients {
		c.Close()
	}
}

// subscribe registers conn in set and drops it once the peer goes away.
func (s *Server) subscribe(set map[*websocket.Conn]bool, conn *websocket.Conn) {
	s.mu.Lock()
	set[conn] = true
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			delete(set, conn)
			s.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) HandleFramesWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.subscribe(s.clients, conn)
}

func (s *Server) HandleDiagWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.mu.RLock()
	backlog := s.recent.Recent()
	s.mu.RUnlock()
	for _, d := range backlog {
		b, _ := json.Marshal(d)
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
			conn.Close()
			return
		}
	}
	s.subscribe(s.diagClients, conn)
}

// HandleControlWS answers each JSON command message with one JSON reply.
func (s *Server) HandleControlWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		reply := s.dispatch(r.Context(), data)
		b, _ := json.Marshal(reply)
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
			return
		}
	}
}

// HandleCommand is the plain HTTP form of /control: POST one JSON command.
func (s *Server) HandleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	var buf json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&buf); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	reply := s.dispatch(r.Context(), buf)
	w.Header().Set("Content-Type", "application/json")
	if reply.Status != command.Ok {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}
	_ = json.NewEncoder(w).Encode(reply)
}

func (s *Server) dispatch(ctx context.Context, data []byte) command.Reply {
	m, err := command.Decode(data)
	if err != nil {
		return command.NewReply(m, command.Fail(err))
	}
	req, err := m.Request()
	if err != nil {
		return command.NewReply(m, command.Fail(err))
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	resp, err := s.ch.Send(ctx, req)
	if err != nil {
		s.log.Warn().Err(err).Str("command", string(m.Command)).Msg("command not delivered")
		return command.NewReply(m, command.Fail(err))
	}
	return command.NewReply(m, resp)
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	st := s.status()
	resp := map[string]any{
		"frame_id":     st.Frame,
		"uptime_s":     time.Since(s.startTime).Seconds(),
		"count":        st.Pixels,
		"fps":          st.FPS,
		"brightness":   st.Brightness,
		"increment":    st.Increment,
		"pattern":      st.Pattern,
		"state":        st.State,
		"flush_errors": st.FlushErrors,
	}
	w.Header().Set("Content-Type", "application/json")
	if st.State != controller.Running.String() {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// HandlePatterns lists pattern names through the render loop.
func (s *Server) HandlePatterns(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()
	resp, err := s.ch.Send(ctx, command.ListPatterns{})
	if err == nil {
		err = resp.Err()
	}
	if err != nil {
		code := http.StatusServiceUnavailable
		if errors.Is(err, context.DeadlineExceeded) {
			code = http.StatusGatewayTimeout
		}
		http.Error(w, err.Error(), code)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp.Data)
}
