package httpserver

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/flashbots/go-utils/httplogger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/ruteri/driving-tests-backend/common"
	"github.com/ruteri/driving-tests-backend/cryptoutils"
	"github.com/ruteri/driving-tests-backend/metrics"
	"go.uber.org/atomic"
)

// HTTPServerConfig configures the API server and its metrics listener.
type HTTPServerConfig struct {
	ListenAddr string

	// MetricsAddr is where /metrics is served. Empty disables the listener;
	// metrics are still collected.
	MetricsAddr string

	// EnablePprof mounts net/http/pprof under /debug.
	EnablePprof bool

	// SelfSignedTLS serves HTTPS with a freshly generated certificate. Development only.
	SelfSignedTLS bool

	// PoolStats, if set, is exported as connection pool gauges.
	PoolStats metrics.PoolStatsFunc

	Log *slog.Logger

	// DrainDuration is how long /drain reports the server as draining
	// before logging that the period is over.
	DrainDuration            time.Duration
	GracefulShutdownDuration time.Duration

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server is the quiz API server.
type Server struct {
	cfg     *HTTPServerConfig
	isReady atomic.Bool
	log     *slog.Logger

	srv        *http.Server
	metricsSrv *metrics.MetricsServer
	handler    *Handler
}

// New creates a server for service. The handler records into the server's metrics registry.
func New(cfg *HTTPServerConfig, service QuizService) (srv *Server, err error) {
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}

	metricsSrv, err := metrics.New(common.PackageName, cfg.MetricsAddr)
	if err != nil {
		return nil, err
	}
	if cfg.PoolStats != nil {
		if err := metrics.RegisterPoolStats(common.PackageName, metricsSrv.Registry(), cfg.PoolStats); err != nil {
			return nil, err
		}
	}

	srv = &Server{
		cfg:        cfg,
		log:        cfg.Log,
		metricsSrv: metricsSrv,
		handler:    NewHandler(service, metricsSrv.Recorder(), cfg.Log),
	}
	srv.isReady.Store(true)

	srv.srv = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      srv.getRouter(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	if cfg.SelfSignedTLS {
		cert, err := cryptoutils.RandomCert("localhost", "127.0.0.1")
		if err != nil {
			return nil, err
		}
		srv.srv.TLSConfig = &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}
	}

	return srv, nil
}

func (srv *Server) getRouter() http.Handler {
	mux := chi.NewRouter()
	mux.Use(srv.httpLogger)

	mux.Group(func(api chi.Router) {
		api.Use(srv.observe)
		api.Post("/user", srv.handler.HandleSignUp)
		api.Post("/user/signin", srv.handler.HandleSignIn)
		api.Delete("/user", srv.handler.HandleDeleteAccount)
		api.Get("/test", srv.handler.HandleGetTest)
		api.Get("/check_answer", srv.handler.HandleCheckAnswer)
		api.Post("/check_test", srv.handler.HandleCheckTest)
		api.Get("/leaderboard", srv.handler.HandleLeaderboard)
		api.Post("/leaderboard/me", srv.handler.HandleStanding)
		api.Get("/healthy", srv.handler.HandleHealthy)
	})

	// Health and diagnostic endpoints
	mux.Get("/livez", srv.handleLivenessCheck)
	mux.Get("/readyz", srv.handleReadinessCheck)
	mux.Get("/drain", srv.handleDrain)
	mux.Get("/undrain", srv.handleUndrain)

	if srv.cfg.EnablePprof {
		srv.log.Info("pprof API enabled")
		mux.Mount("/debug", middleware.Profiler())
	}
	return mux
}

func (srv *Server) httpLogger(next http.Handler) http.Handler {
	return httplogger.LoggingMiddlewareSlog(srv.log, next)
}

// observe records request latency labelled by route pattern.
func (srv *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		srv.handler.recorder.ObserveRequest(route, status, time.Since(start))
	})
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	fmt.Fprintf(w, `{"status":%q}`, status)
}

func (srv *Server) handleLivenessCheck(w http.ResponseWriter, r *http.Request) {
	writeStatus(w, http.StatusOK, "alive")
}

func (srv *Server) handleReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if !srv.isReady.Load() {
		writeStatus(w, http.StatusServiceUnavailable, "not ready")
		return
	}
	writeStatus(w, http.StatusOK, "ready")
}

// handleDrain marks the server not ready so load balancers stop routing to it.
// Requests keep being served.
func (srv *Server) handleDrain(w http.ResponseWriter, r *http.Request) {
	if !srv.isReady.Swap(false) {
		writeStatus(w, http.StatusOK, "already draining")
		return
	}

	srv.log.Info("Server marked as not ready", "drainDuration", srv.cfg.DrainDuration)
	time.AfterFunc(srv.cfg.DrainDuration, func() {
		srv.log.Info("Drain period completed")
	})
	writeStatus(w, http.StatusOK, "draining")
}

func (srv *Server) handleUndrain(w http.ResponseWriter, r *http.Request) {
	if srv.isReady.Swap(true) {
		writeStatus(w, http.StatusOK, "already ready")
		return
	}

	srv.log.Info("Server marked as ready")
	writeStatus(w, http.StatusOK, "ready")
}

// Handler returns the router, for embedding and tests.
func (srv *Server) Handler() http.Handler {
	return srv.srv.Handler
}

func (srv *Server) serve(name string, listen func() error) {
	if err := listen(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		srv.log.Error("Server failed", "server", name, "err", err)
	}
}

// RunInBackground starts the API listener, and the metrics listener if configured.
func (srv *Server) RunInBackground() {
	if srv.cfg.MetricsAddr != "" {
		srv.log.Info("Starting metrics server", "metricsAddress", srv.cfg.MetricsAddr)
		go srv.serve("metrics", srv.metricsSrv.ListenAndServe)
	}

	srv.log.Info("Starting HTTP server", "listenAddress", srv.cfg.ListenAddr, "tls", srv.srv.TLSConfig != nil)
	if srv.srv.TLSConfig != nil {
		go srv.serve("api", func() error { return srv.srv.ListenAndServeTLS("", "") })
	} else {
		go srv.serve("api", srv.srv.ListenAndServe)
	}
}

// Shutdown stops accepting connections and waits up to GracefulShutdownDuration
// for in-flight requests on each listener.
func (srv *Server) Shutdown() {
	stop := func(name string, shutdown func(context.Context) error) {
		ctx, cancel := context.WithTimeout(context.Background(), srv.cfg.GracefulShutdownDuration)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			srv.log.Error("Graceful shutdown failed", "server", name, "err", err)
			return
		}
		srv.log.Info("Server gracefully stopped", "server", name)
	}

	stop("api", srv.srv.Shutdown)
	if srv.cfg.MetricsAddr != "" {
		stop("metrics", srv.metricsSrv.Shutdown)
	}
}
