// Package api implements the HTTP/WebSocket surface in front of the stream
// core: HLS delivery, WebRTC signaling, snapshot capture, and PTZ dispatch,
// plus the minimal in-memory collaborators (monitor registry, capability
// store, authenticator) that the real deployment sources from its
// relational store and auth stack.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/zmstream/streamcore/internal/config"
	"github.com/zmstream/streamcore/internal/core/hlssession"
	"github.com/zmstream/streamcore/internal/core/ptz"
	"github.com/zmstream/streamcore/internal/core/snapshot"
	"github.com/zmstream/streamcore/internal/core/sourcerouter"
	"github.com/zmstream/streamcore/internal/core/webrtcsession"
	"github.com/zmstream/streamcore/internal/logger"
)

// Server wires the core components into routed HTTP handlers.
type Server struct {
	cfg config.APIConfig
	log *logger.Logger

	router   *sourcerouter.Router
	hls      *hlssession.Manager
	webrtc   *webrtcsession.Manager
	snap     *snapshot.Service
	ptzCtrl  *ptz.Controller
	monitors *MonitorRegistry
	caps     *CapabilityStore
	auth     *Authenticator

	feeder     *hlsFeeder
	hlsWaitMax time.Duration

	httpServer *http.Server
	stopFeeder context.CancelFunc
}

// Deps bundles the collaborators Server wires into its handlers.
type Deps struct {
	Router     *sourcerouter.Router
	HLS        *hlssession.Manager
	WebRTC     *webrtcsession.Manager
	Snapshot   *snapshot.Service
	PTZ        *ptz.Controller
	Monitors   *MonitorRegistry
	Caps       *CapabilityStore
	Auth       *Authenticator
	HLSWaitMax time.Duration
}

// NewServer constructs a Server ready to Start.
func NewServer(cfg config.APIConfig, deps Deps, log *logger.Logger) *Server {
	waitMax := deps.HLSWaitMax
	if waitMax <= 0 {
		waitMax = 6 * time.Second
	}
	return &Server{
		cfg:        cfg,
		log:        log,
		router:     deps.Router,
		hls:        deps.HLS,
		webrtc:     deps.WebRTC,
		snap:       deps.Snapshot,
		ptzCtrl:    deps.PTZ,
		monitors:   deps.Monitors,
		caps:       deps.Caps,
		auth:       deps.Auth,
		feeder:     newHLSFeeder(deps.HLS, deps.Router, 2*time.Minute, log),
		hlsWaitMax: waitMax,
	}
}

// Start builds the route table and begins serving HTTP in a background
// goroutine, returning once the listener is bound or an immediate error is
// observed.
func (s *Server) Start(ctx context.Context) error {
	r := mux.NewRouter()

	r.HandleFunc("/hls/{id:[0-9]+}/master.m3u8", s.handleHLSMaster).Methods(http.MethodGet)
	r.HandleFunc("/hls/{id:[0-9]+}/playlist.m3u8", s.handleHLSPlaylist).Methods(http.MethodGet)
	r.HandleFunc("/hls/{id:[0-9]+}/init.mp4", s.handleHLSInit).Methods(http.MethodGet)
	r.HandleFunc("/hls/{id:[0-9]+}/segment_{seq:[0-9]+}.m4s", s.handleHLSSegment).Methods(http.MethodGet)

	r.HandleFunc("/webrtc/{id:[0-9]+}", s.handleWebRTCSignaling)

	r.HandleFunc("/snapshot/{id:[0-9]+}", s.handleSnapshot).Methods(http.MethodGet)

	r.HandleFunc("/ptz/{id:[0-9]+}/{command}", s.handlePTZCommand).Methods(http.MethodPost)

	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)

	s.httpServer = &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.withLogging(s.withAuth(r)),
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      0, // blocking HLS reloads and long-lived WS signaling exceed a fixed write deadline
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	feederCtx, cancel := context.WithCancel(ctx)
	s.stopFeeder = cancel
	go s.feeder.run(feederCtx, 30*time.Second)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("http server error", "error", err)
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-time.After(100 * time.Millisecond):
		s.log.Info("api server started", "address", s.cfg.ListenAddr)
		return nil
	}
}

// Stop gracefully shuts the HTTP server and idle-reaper goroutine down.
func (s *Server) Stop(ctx context.Context) error {
	if s.stopFeeder != nil {
		s.stopFeeder()
	}
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		s.log.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// withAuth validates the bearer token on every request except the status
// probe. Validation failures are surfaced as a 401 with the same JSON error
// shape as the rest of the taxonomy.
func (s *Server) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/status" {
			next.ServeHTTP(w, r)
			return
		}

		token := bearerToken(r)
		if _, err := s.auth.Validate(token); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"unauthorized","message":"invalid or missing bearer token"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	return r.URL.Query().Get("token")
}

type statusWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}
