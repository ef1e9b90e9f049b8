package watch

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/pprof"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// SourceInfo describes a source in the /sources listing.
type SourceInfo struct {
	ID       string `json:"id"`
	Hash     string `json:"hash,omitempty"`
	Elements int    `json:"elements"`
}

// Server exposes a session over HTTP: compile events on /events, metrics
// on /metrics, the last compile on /status and the sources on /sources.
type Server struct {
	session    *Session
	events     *EventServer
	gatherer   prometheus.Gatherer
	profiling  bool
	logger     *zap.Logger
	httpServer *http.Server
	wg         sync.WaitGroup
}

// ServerOption configures a Server.
type ServerOption func(*Server)

func WithServerLogger(logger *zap.Logger) ServerOption {
	return func(s *Server) { s.logger = logger }
}

// WithGatherer serves the metrics of g instead of the default registry.
func WithGatherer(g prometheus.Gatherer) ServerOption {
	return func(s *Server) { s.gatherer = g }
}

// WithProfiling mounts the pprof handlers under /debug/pprof.
func WithProfiling(enabled bool) ServerOption {
	return func(s *Server) { s.profiling = enabled }
}

// NewServer creates a server for session publishing the events of es.
func NewServer(session *Session, es *EventServer, opts ...ServerOption) *Server {
	s := &Server{
		session:  session,
		events:   es,
		gatherer: prometheus.DefaultGatherer,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the router of the server.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/events", s.events.HandleWebSocket)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Get("/status", s.handleStatus)
	r.Get("/sources", s.handleSources)

	if s.profiling {
		r.Route("/debug/pprof", func(r chi.Router) {
			r.HandleFunc("/", pprof.Index)
			r.HandleFunc("/cmdline", pprof.Cmdline)
			r.HandleFunc("/profile", pprof.Profile)
			r.HandleFunc("/symbol", pprof.Symbol)
			r.HandleFunc("/trace", pprof.Trace)
			r.Handle("/{profile}", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				pprof.Handler(chi.URLParam(req, "profile")).ServeHTTP(w, req)
			}))
		})
	}
	return r
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	status := s.session.Status()
	code := http.StatusOK
	if !status.OK {
		code = http.StatusUnprocessableEntity
	}
	s.writeJSON(w, code, status)
}

func (s *Server) handleSources(w http.ResponseWriter, _ *http.Request) {
	rt := s.session.Runtime()
	ids := rt.Sources()
	infos := make([]SourceInfo, 0, len(ids))
	for _, id := range ids {
		src, ok := rt.Source(id)
		if !ok {
			continue
		}
		infos = append(infos, SourceInfo{ID: id, Hash: src.Hash, Elements: len(src.Elements)})
	}
	s.writeJSON(w, http.StatusOK, infos)
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("failed to write response", zap.Error(err))
	}
}

// Start listens on addr and serves in the background. It returns the
// address actually bound, which differs from addr when its port is 0.
func (s *Server) Start(addr string) (string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", err
	}
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", zap.Error(err))
		}
	}()

	s.logger.Info("serving", zap.String("addr", ln.Addr().String()))
	return ln.Addr().String(), nil
}

// Shutdown closes the event connections and stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.events.Close()
	if s.httpServer == nil {
		return nil
	}
	err := s.httpServer.Shutdown(ctx)
	s.wg.Wait()
	return err
}
