package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"futures-monitor/internal/engine"
)

var log = logrus.WithField("module", "httpapi")

// Server is a local read-only status surface. It implements engine.Sink so
// it can sit next to the terminal view and keep the last refresh.
type Server struct {
	// Session identifies this process in health responses.
	Session string

	router  *mux.Router
	metrics http.Handler
	state   func() engine.State

	mu      sync.RWMutex
	last    *engine.Snapshot
	lastErr error
}

type healthResponse struct {
	Status      string     `json:"status"`
	Session     string     `json:"session,omitempty"`
	State       string     `json:"state"`
	LastRefresh *time.Time `json:"last_refresh,omitempty"`
	Error       string     `json:"error,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewServer builds the router. metrics may be nil; state reports the refresh
// loop state and may be nil too.
func NewServer(metrics http.Handler, state func() engine.State) *Server {
	s := &Server{router: mux.NewRouter(), metrics: metrics, state: state}
	s.router.Use(s.loggingMiddleware)
	s.router.HandleFunc("/healthz", s.health).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/snapshot", s.snapshot).Methods(http.MethodGet)
	if metrics != nil {
		s.router.Handle("/metrics", metrics).Methods(http.MethodGet)
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Render(snap engine.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = &snap
	s.lastErr = nil
}

func (s *Server) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.WithField("addr", ln.Addr().String()).Info("status server listening")
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	resp := healthResponse{Status: "ok", Session: s.Session, State: engine.Idle.String()}
	if s.state != nil {
		resp.State = s.state().String()
	}
	if s.last != nil {
		refreshed := s.last.RefreshedAt
		resp.LastRefresh = &refreshed
	}
	status := http.StatusOK
	if s.lastErr != nil {
		resp.Status = "failed"
		resp.Error = s.lastErr.Error()
		status = http.StatusServiceUnavailable
	}
	s.mu.RUnlock()
	writeJSON(w, status, resp)
}

func (s *Server) snapshot(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	last := s.last
	s.mu.RUnlock()
	if last == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no snapshot yet"})
		return
	}
	writeJSON(w, http.StatusOK, last)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.WithFields(logrus.Fields{
			"method":  r.Method,
			"path":    r.URL.Path,
			"elapsed": time.Since(start).String(),
		}).Debug("http request")
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("write response failed")
	}
}

var _ engine.Sink = (*Server)(nil)
