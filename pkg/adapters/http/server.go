package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/voyage"
	"github.com/aretw0/voyage/pkg/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MessageRequest is the body of POST /sessions/{id}/messages.
type MessageRequest struct {
	Content string `json:"content"`
}

// ApproveRequest is the body of POST /sessions/{id}/approve.
type ApproveRequest struct {
	Approved bool   `json:"approved"`
	Reason   string `json:"reason,omitempty"`
}

// SessionResponse wraps a session with what a client needs to act next.
type SessionResponse struct {
	State            *domain.State `json:"state,omitempty"`
	AwaitingApproval bool          `json:"awaiting_approval"`
	Draft            string        `json:"draft,omitempty"`
	Output           string        `json:"output,omitempty"`
	Error            string        `json:"error,omitempty"`
}

// Server serves the agent over HTTP.
type Server struct {
	Agent   *voyage.Agent
	Streams *StreamManager
	logger  *slog.Logger
}

// Option configures the handler built by NewHandler.
type Option func(*options)

type options struct {
	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

// WithGatherer exposes the given registry on GET /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(o *options) {
		o.gatherer = g
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// NewHandler creates a new HTTP handler for the agent.
func NewHandler(agent *voyage.Agent, opts ...Option) http.Handler {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Server{
		Agent:   agent,
		Streams: NewStreamManager(o.logger),
		logger:  o.logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/graph", s.GetGraph)
	if o.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(o.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.ListSessions)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.GetSession)
			r.Delete("/", s.DeleteSession)
			r.Post("/messages", s.PostMessage)
			r.Post("/approve", s.Approve)
			r.Get("/events", s.SubscribeEvents)
		})
	})

	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// PostMessage handles POST /sessions/{id}/messages.
func (s *Server) PostMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("PostMessage: Invalid request body", "error", err)
		return
	}

	before, _ := s.Agent.State(r.Context(), id)
	state, err := s.Agent.Invoke(r.Context(), id, body.Content)
	if err != nil && (state == nil || voyage.IsInputError(err) || errors.Is(err, domain.ErrSessionComplete)) {
		s.writeError(w, err)
		return
	}
	s.broadcast(before, state)

	if err != nil {
		s.logger.Error("PostMessage: run stopped early", "session_id", id, "error", err)
		writeJSON(w, statusFor(err), toResponse(state, err))
		return
	}
	writeJSON(w, http.StatusOK, toResponse(state, nil))
}

// Approve handles POST /sessions/{id}/approve.
func (s *Server) Approve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body ApproveRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("Approve: Invalid request body", "error", err)
		return
	}

	decision := domain.Approve()
	if !body.Approved {
		decision = domain.Reject(body.Reason)
	}

	before, _ := s.Agent.State(r.Context(), id)
	state, err := s.Agent.Resume(r.Context(), id, decision)
	if err != nil {
		if errors.Is(err, domain.ErrApprovalDenied) && state != nil {
			writeJSON(w, http.StatusConflict, toResponse(state, err))
			return
		}
		s.writeError(w, err)
		return
	}
	s.broadcast(before, state)
	writeJSON(w, http.StatusOK, toResponse(state, nil))
}

// GetSession handles GET /sessions/{id}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	state, err := s.Agent.State(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(state, nil))
}

// DeleteSession handles DELETE /sessions/{id}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.Agent.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListSessions handles GET /sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Agent.Sessions(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"sessions": ids})
}

// GetGraph handles GET /graph. The session_id query parameter highlights a
// session's progress.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	chart, err := s.Agent.Graph(r.Context(), r.URL.Query().Get("session_id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, chart)
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0)
	for _, t := range s.Agent.Tools() {
		names = append(names, t.Name)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"app":     "voyage-http",
		"version": strings.TrimSpace(voyage.Version),
		"tools":   names,
	})
}

func (s *Server) broadcast(before, after *domain.State) {
	s.Streams.Broadcast(domain.Diff(before, after))
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	writeJSON(w, status, SessionResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case voyage.IsInputError(err), errors.Is(err, domain.ErrInvalidSessionID):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSessionComplete),
		errors.Is(err, domain.ErrNotPaused),
		errors.Is(err, domain.ErrApprovalDenied):
		return http.StatusConflict
	case errors.Is(err, domain.ErrStepLimit):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

func toResponse(state *domain.State, err error) SessionResponse {
	resp := SessionResponse{State: state}
	if state != nil {
		resp.AwaitingApproval = state.Phase.Paused()
		resp.Output = state.Output
		if last, ok := state.Last(); ok && resp.AwaitingApproval {
			resp.Draft = last.Content
		}
	}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "error", err)
	}
}
