// Package server exposes the debate scheduler over a websocket endpoint.
// It receives one debate configuration per connection, validates it, and
// relays the scheduler's event stream to the client with pacing, translating
// stream exhaustion and failure into complete/error frames.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/debatelab/debategraph/pkg/config"
	"github.com/debatelab/debategraph/pkg/debate"
	"github.com/debatelab/debategraph/pkg/llms"
)

// Server is the websocket debate server.
type Server struct {
	cfg        *config.ServerConfig
	factory    llms.Factory
	upgrader   websocket.Upgrader
	httpServer *http.Server
}

// envelope is the wire frame for wrapped message events and control frames.
type envelope struct {
	Type  string      `json:"type"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

// NewServer creates a server. factory builds the LLM client for each debate
// participant; pass llms.OpenAIFactory{} for the real backend.
func NewServer(cfg *config.ServerConfig, factory llms.Factory) *Server {
	cfg.SetDefaults()
	return &Server{
		cfg:     cfg,
		factory: factory,
		upgrader: websocket.Upgrader{
			// The graph builder UI runs on a different origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Router returns the HTTP handler, exposed separately for tests.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)
	r.Get("/", s.handleHealth)
	r.Get("/ws", s.handleDebate)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// Start runs the HTTP server until ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("debate server listening", "addr", addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"message": "Multi-Agent Debate API",
	})
}

// handleDebate runs one debate per websocket connection.
func (s *Server) handleDebate(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	debateID := uuid.New().String()
	slog.Info("websocket connection accepted", "debate", debateID)

	var cfg config.DebateConfig
	if err := conn.ReadJSON(&cfg); err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return
		}
		slog.Warn("invalid debate config", "debate", debateID, "error", err)
		_ = conn.WriteJSON(envelope{Type: "error", Error: "Invalid JSON format"})
		return
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		_ = conn.WriteJSON(envelope{Type: "error", Error: err.Error()})
		return
	}

	slog.Info("received debate config", "debate", debateID, "agents", len(cfg.Nodes), "rounds", cfg.RoundCount())
	debatesStarted.Inc()
	start := time.Now()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// The client sends nothing after the config; a read error means it went
	// away, which stops the scheduler before its next node.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	events := make(chan debate.Event)
	sched := debate.NewScheduler(&cfg, s.factory, s.cfg.Model, s.cfg.LLMHost)

	errCh := make(chan error, 1)
	go func() {
		errCh <- sched.Run(ctx, events)
		close(events)
	}()

	delay := s.cfg.MessageDelay.Duration()
	for ev := range events {
		var writeErr error
		switch ev := ev.(type) {
		case debate.PositionEvent:
			writeErr = conn.WriteJSON(ev)
			eventsRelayed.WithLabelValues(debate.EventTypePosition).Inc()
		case debate.MessageEvent:
			writeErr = conn.WriteJSON(envelope{Type: debate.EventTypeMessage, Data: ev})
			eventsRelayed.WithLabelValues(debate.EventTypeMessage).Inc()
		}
		if writeErr != nil {
			cancel()
			for range events {
				// drain so the scheduler is not blocked on a dead client
			}
			break
		}
		// Small delay between messages for visual effect on the client.
		if delay > 0 {
			time.Sleep(delay)
		}
	}

	err = <-errCh
	switch {
	case err == nil:
		debatesCompleted.Inc()
		debateDuration.Observe(time.Since(start).Seconds())
		_ = conn.WriteJSON(envelope{Type: "complete"})
		slog.Info("debate completed", "debate", debateID, "duration", time.Since(start))
	case errors.Is(err, context.Canceled):
		debatesFailed.Inc()
		slog.Info("debate canceled", "debate", debateID)
	default:
		debatesFailed.Inc()
		slog.Error("debate failed", "debate", debateID, "error", err)
		_ = conn.WriteJSON(envelope{Type: "error", Error: err.Error()})
	}
}
