package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"voicecoach/internal/render"
)

// Store is the session result store as seen by the feedback view.
type Store interface {
	render.ResultLoader
	Subscribe() (<-chan struct{}, func())
}

// Config controls the local feedback server.
type Config struct {
	Addr   string
	Assets fs.FS
}

// Message is the websocket envelope.
type Message struct {
	Type  string       `json:"type"`
	Plan  *render.Plan `json:"plan,omitempty"`
	Error string       `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Server serves the stored analysis to the standalone feedback view.
type Server struct {
	cfg   Config
	store Store
	log   zerolog.Logger

	mu  sync.Mutex
	url string
}

func NewServer(cfg Config, store Store, log zerolog.Logger) *Server {
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:0"
	}
	return &Server{cfg: cfg, store: store, log: log.With().Str("component", "feedback").Logger()}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/api/feedback", s.handlePlan).Methods(http.MethodGet)
	router.HandleFunc("/ws", s.handleWebSocket)
	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	if s.cfg.Assets != nil {
		router.PathPrefix("/").Handler(http.FileServer(http.FS(s.cfg.Assets)))
	}
	return router
}

// Start listens on the configured address and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	s.mu.Lock()
	s.url = "http://" + ln.Addr().String()
	s.mu.Unlock()
	s.log.Info().Str("url", s.URL()).Msg("feedback server listening")

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("feedback server stopped")
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	return nil
}

// URL is the base address once started.
func (s *Server) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url
}

// Plan renders whatever the store holds.
func (s *Server) Plan() render.Plan {
	plan, err := render.Render(render.StoredSource{Store: s.store})
	if err != nil {
		s.log.Warn().Err(err).Msg("stored result unreadable")
	}
	return plan
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.Plan()); err != nil {
		s.log.Error().Err(err).Msg("encode plan")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	changes, unsubscribe := s.store.Subscribe()
	defer unsubscribe()

	var writeMu sync.Mutex
	send := func(msg Message) {
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := conn.WriteJSON(msg); err != nil {
			s.log.Debug().Err(err).Msg("websocket write failed")
			cancel()
		}
	}

	plan := s.Plan()
	send(Message{Type: "plan", Plan: &plan})

	go func() {
		defer cancel()
		for {
			var msg Message
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			switch msg.Type {
			case "ping":
				send(Message{Type: "pong"})
			default:
				send(Message{Type: "error", Error: "unknown message type"})
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			plan := s.Plan()
			send(Message{Type: "plan", Plan: &plan})
		}
	}
}
