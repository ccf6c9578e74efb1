package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/aretw0/voyage/pkg/domain"
	"github.com/go-chi/chi/v5"
)

// streamBuffer is how many diffs a slow client may lag behind before drops.
const streamBuffer = 10

// watchFilter selects which diff fields a subscriber cares about.
// An empty filter accepts every diff.
type watchFilter []string

func parseWatch(raw string) watchFilter {
	var f watchFilter
	for _, field := range strings.Split(raw, ",") {
		if field = strings.TrimSpace(field); field != "" {
			f = append(f, field)
		}
	}
	return f
}

func (f watchFilter) accepts(diff *domain.StateDiff) bool {
	if len(f) == 0 {
		return true
	}
	for _, field := range f {
		switch field {
		case "phase":
			if diff.Phase != nil {
				return true
			}
		case "messages":
			if len(diff.Appended) > 0 {
				return true
			}
		case "output":
			if diff.Output != nil {
				return true
			}
		}
	}
	return false
}

type subscriber struct {
	ch    chan []byte
	watch watchFilter
}

// StreamManager fans state diffs out to the SSE clients of each session.
type StreamManager struct {
	logger *slog.Logger

	mu   sync.RWMutex
	subs map[string]map[*subscriber]struct{}
}

func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamManager{
		logger: logger,
		subs:   make(map[string]map[*subscriber]struct{}),
	}
}

// Subscribe registers a client for a session, optionally restricted to the
// given diff fields. The returned cancel func unregisters it and closes the
// channel.
func (sm *StreamManager) Subscribe(sessionID string, watch ...string) (<-chan []byte, func()) {
	sub := &subscriber{ch: make(chan []byte, streamBuffer), watch: watch}

	sm.mu.Lock()
	if sm.subs[sessionID] == nil {
		sm.subs[sessionID] = make(map[*subscriber]struct{})
	}
	sm.subs[sessionID][sub] = struct{}{}
	sm.mu.Unlock()

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			delete(sm.subs[sessionID], sub)
			if len(sm.subs[sessionID]) == 0 {
				delete(sm.subs, sessionID)
			}
			close(sub.ch)
		})
	}
}

// Subscribers reports how many clients follow a session.
func (sm *StreamManager) Subscribers(sessionID string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subs[sessionID])
}

// Broadcast encodes the diff once and hands it to every subscriber whose
// filter accepts it. Clients with a full buffer miss the diff.
func (sm *StreamManager) Broadcast(diff *domain.StateDiff) {
	if diff == nil || diff.IsEmpty() {
		return
	}

	sm.mu.RLock()
	defer sm.mu.RUnlock()
	subs := sm.subs[diff.SessionID]
	if len(subs) == 0 {
		return
	}

	payload, err := json.Marshal(diff)
	if err != nil {
		sm.logger.Error("SSE: encode diff", "session_id", diff.SessionID, "err", err)
		return
	}
	for sub := range subs {
		if !sub.watch.accepts(diff) {
			continue
		}
		select {
		case sub.ch <- payload:
		default:
			sm.logger.Warn("SSE: client buffer full, dropping diff", "session_id", diff.SessionID)
		}
	}
}

// SubscribeEvents handles GET /sessions/{id}/events (SSE). The watch query
// parameter filters diffs by field: phase, messages or output.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	sessionID := chi.URLParam(r, "id")
	diffs, cancel := s.Streams.Subscribe(sessionID, parseWatch(r.URL.Query().Get("watch"))...)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	s.logger.Info("SSE client connected", "session_id", sessionID)
	fmt.Fprint(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE client disconnected", "session_id", sessionID)
			return
		case payload, ok := <-diffs:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}
