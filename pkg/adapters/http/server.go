package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/callflow/internal/logging"
	"github.com/aretw0/callflow/pkg/config"
	"github.com/aretw0/callflow/pkg/dispatch"
	"github.com/aretw0/callflow/pkg/domain"
	"github.com/aretw0/callflow/pkg/observability"
	"github.com/aretw0/callflow/pkg/pathway"
	"github.com/aretw0/callflow/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// MaxBodyBytes bounds request bodies.
const MaxBodyBytes = 1 << 20

// Greeting is the body of GET /.
const Greeting = "Hello from callflow! The server is running."

// Server serves the callflow HTTP API.
type Server struct {
	Dispatcher *dispatch.Dispatcher
	Config     *config.Store
	Sessions   *session.Manager
	Graph      *pathway.Graph
	Metrics    *observability.Metrics
	Streams    *StreamManager
	Version    string

	logger *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures a logger for the Server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics exposes m on /metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) {
		s.Metrics = m
	}
}

// WithVersion sets the version reported by /info.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.Version = v
	}
}

// NewServer creates a Server.
func NewServer(d *dispatch.Dispatcher, cfg *config.Store, sessions *session.Manager, opts ...Option) *Server {
	s := &Server{
		Dispatcher: d,
		Config:     cfg,
		Sessions:   sessions,
		Graph:      d.Graph(),
		Streams:    NewStreamManager(),
		Version:    "dev",
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams.logger = s.logger
	return s
}

// NewHandler creates the HTTP handler for the dispatcher.
func NewHandler(d *dispatch.Dispatcher, cfg *config.Store, sessions *session.Manager, opts ...Option) http.Handler {
	return NewServer(d, cfg, sessions, opts...).Routes()
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/", s.Root)
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Post("/chat/completions", s.ChatCompletions)
	r.Get("/config", s.GetConfig)
	r.Post("/config", s.UpdateConfig)
	r.Get("/pathways", s.GetPathways)
	r.Get("/calls/{callID}", s.GetCall)
	r.Get("/calls/{callID}/events", s.SubscribeEvents)
	r.Method(http.MethodGet, "/metrics", s.Metrics.Handler())

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	_ = writeJSON(w, status, statusResponse{Status: "error", Message: message})
}

// statusFor maps dispatch errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrProviderTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrProvider):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Root handles GET /.
func (s *Server) Root(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, Greeting)
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	_ = writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	_ = writeJSON(w, http.StatusOK, map[string]any{
		"app":     "callflow-http",
		"version": strings.TrimSpace(s.Version),
		"nodes":   s.Graph.Len(),
	})
}

// ChatCompletions handles the POST /chat/completions request.
func (s *Server) ChatCompletions(w http.ResponseWriter, r *http.Request) {
	var body domain.ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		s.logger.Warn("ChatCompletions: Invalid request body", "err", err)
		return
	}

	res, err := s.Dispatcher.Dispatch(r.Context(), body)
	if err != nil {
		status := statusFor(err)
		writeError(w, status, err.Error())
		if status >= http.StatusInternalServerError {
			s.logger.Error("Dispatch failed", "call_id", body.CallID(), "err", err)
		} else {
			s.logger.Warn("Dispatch rejected", "call_id", body.CallID(), "err", err)
		}
		return
	}
	s.publish(res)

	if res.Frames == nil {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(res.Completion)
		return
	}
	s.streamFrames(w, r, res)
}

func (s *Server) streamFrames(w http.ResponseWriter, r *http.Request, res *dispatch.Result) {
	frames := res.Frames
	defer frames.Close()

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming not supported")
		s.logger.Error("ChatCompletions: Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for frames.Next() {
		if _, err := fmt.Fprintf(w, "data: %s\n\n", frames.Frame()); err != nil {
			s.logger.Info("SSE client disconnected", "call_id", res.CallID, "err", err)
			return
		}
		flusher.Flush()
	}
	if err := frames.Err(); err != nil && r.Context().Err() == nil {
		// Headers are gone; the stream just ends.
		s.logger.Error("Stream ended with provider error", "call_id", res.CallID, "turn_id", res.TurnID, "err", err)
	}
}

func (s *Server) publish(res *dispatch.Result) {
	event := CallEvent{
		CallID:   res.CallID,
		TurnID:   res.TurnID,
		Node:     res.Node,
		NextNode: res.NextNode,
		Advanced: res.Advanced,
	}
	if b, err := json.Marshal(event); err == nil {
		s.Streams.Broadcast(res.CallID, string(b))
	}
}

// GetConfig handles the GET /config request.
func (s *Server) GetConfig(w http.ResponseWriter, r *http.Request) {
	if err := writeJSON(w, http.StatusOK, s.Config.Get()); err != nil {
		s.logger.Error("GetConfig response encode failed", "err", err)
	}
}

// UpdateConfig handles the POST /config request.
func (s *Server) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid configuration")
		return
	}

	if _, err := s.Config.Update(r.Context(), body); err != nil {
		if errors.Is(err, domain.ErrInvalidConfig) {
			writeError(w, http.StatusBadRequest, "Invalid configuration")
			s.logger.Warn("UpdateConfig: rejected", "err", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to persist configuration")
		s.logger.Error("UpdateConfig failed", "err", err)
		return
	}
	_ = writeJSON(w, http.StatusOK, statusResponse{Status: "success", Message: "Configuration updated"})
}

// GetPathways handles the GET /pathways request.
func (s *Server) GetPathways(w http.ResponseWriter, r *http.Request) {
	body, err := pathway.Encode(s.Graph, pathway.JSON)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to encode pathway")
		s.logger.Error("GetPathways encode failed", "err", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

// GetCall handles the GET /calls/{callID} request.
func (s *Server) GetCall(w http.ResponseWriter, r *http.Request) {
	callID := chi.URLParam(r, "callID")
	node, err := s.Sessions.Lookup(r.Context(), callID)
	if err != nil {
		if errors.Is(err, domain.ErrCallNotFound) {
			writeError(w, http.StatusNotFound, "Call not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to read call state")
		s.logger.Error("GetCall failed", "call_id", callID, "err", err)
		return
	}
	_ = writeJSON(w, http.StatusOK, map[string]string{"call_id": callID, "node": node})
}

// SubscribeEvents handles the GET /calls/{callID}/events request (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	callID := chi.URLParam(r, "callID")
	s.logger.Info("SSE: Subscribing to call updates", "call_id", callID)

	ch, cancel := s.Streams.Subscribe(callID)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE client disconnected", "call_id", callID)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}
