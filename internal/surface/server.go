package surface

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"filepilot/internal/api"
	"filepilot/internal/gate"
	"filepilot/internal/logging"
	"filepilot/internal/metrics"
)

const keepAliveInterval = 15 * time.Second

// Authorizer is satisfied by *gate.Gate.
type Authorizer interface {
	Authorize(call, origin string) error
}

// Server exposes privileged calls and the push stream over HTTP.
type Server struct {
	bind   string
	svc    *api.Service
	hub    *Hub
	gate   Authorizer
	logger *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server

	// baseCtx parents every request context; cancelling it ends open streams.
	baseCtx    context.Context
	baseCancel context.CancelFunc
	stopOnce   sync.Once
}

// New builds the surface server. Call Start to listen.
func New(bind string, svc *api.Service, hub *Hub, g Authorizer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		bind:   strings.TrimSpace(bind),
		svc:    svc,
		hub:    hub,
		gate:   g,
		logger: logging.NewComponentLogger(logger, "surface"),
	}
	s.baseCtx, s.baseCancel = context.WithCancel(context.Background())
	s.server = &http.Server{
		Handler:           s.Handler(),
		BaseContext:       func(net.Listener) context.Context { return s.baseCtx },
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware(func(r *http.Request) string {
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			return rctx.RoutePattern()
		}
		return ""
	}))

	r.Route("/ipc", func(r chi.Router) {
		r.Post("/getSuggestions", s.handleGetSuggestions)
		r.Post("/deleteSuggestion", s.handleDeleteSuggestion)
		r.Post("/acceptSuggestion", s.handleAcceptSuggestion)
	})
	r.Get("/events", s.handleEvents)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	return r
}

// Start listens on the configured address and serves until ctx ends.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("surface listen: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.ErrorWithContext(s.logger, "surface server error", "surface_server_failed", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("surface server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound address once Start has succeeded.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop ends open event streams and shuts the server down, waiting briefly
// for in-flight calls before closing connections outright.
// Concurrent and repeated calls wait for the first to finish.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		s.baseCancel()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("surface shutdown timed out; closing connections", logging.Error(err))
			_ = s.server.Close()
		}
	})
}

type suggestionsResponse struct {
	Suggestions []api.SuggestionDTO `json:"suggestions"`
}

func (s *Server) handleGetSuggestions(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.GetSuggestions(r.Context(), callerOrigin(r, false))
	if err != nil {
		s.writeCallError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, suggestionsResponse{Suggestions: list})
}

func (s *Server) handleDeleteSuggestion(w http.ResponseWriter, r *http.Request) {
	var args api.DeleteArgs
	if !s.decode(w, r, &args) {
		return
	}
	if err := s.svc.DeleteSuggestion(r.Context(), callerOrigin(r, false), args); err != nil {
		s.writeCallError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAcceptSuggestion(w http.ResponseWriter, r *http.Request) {
	var args api.AcceptArgs
	if !s.decode(w, r, &args) {
		return
	}
	if err := s.svc.AcceptSuggestion(r.Context(), callerOrigin(r, false), args); err != nil {
		s.writeCallError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if err := s.gate.Authorize("events", callerOrigin(r, true)); err != nil {
		s.writeCallError(w, err)
		return
	}
	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		return
	}

	since := s.hub.Last()
	if last, err := strconv.ParseUint(r.Header.Get("Last-Event-ID"), 10, 64); err == nil && last < since {
		since = last
	}
	s.hub.connect()
	defer s.hub.disconnect()

	ctx := r.Context()
	for {
		fetchCtx, cancel := context.WithTimeout(ctx, keepAliveInterval)
		events, next, err := s.hub.Fetch(fetchCtx, since)
		cancel()
		if ctx.Err() != nil {
			return
		}
		if err != nil && isTimeout(err) {
			if _, werr := fmt.Fprint(w, ": keepalive\n\n"); werr != nil {
				return
			}
			if rc.Flush() != nil {
				return
			}
			continue
		}
		for _, evt := range events {
			if _, werr := fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", evt.Seq, evt.Name, evt.Data); werr != nil {
				return
			}
		}
		if rc.Flush() != nil {
			return
		}
		since = next
	}
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (s *Server) writeCallError(w http.ResponseWriter, err error) {
	switch gate.Kind(err) {
	case "security":
		s.writeError(w, http.StatusForbidden, err.Error())
	case "validation":
		s.writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("privileged call failed", logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
