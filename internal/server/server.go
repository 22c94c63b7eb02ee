// Package server runs the HTTP API together with the sync workers and the
// optional cron scheduler, and stops them in order on shutdown.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/verustcode/codesync/internal/api/router"
	"github.com/verustcode/codesync/internal/config"
	"github.com/verustcode/codesync/internal/syncer"
	"github.com/verustcode/codesync/pkg/logger"
)

const (
	readTimeout = 30 * time.Second
	// PDF downloads wait on a headless browser
	writeTimeout    = 120 * time.Second
	idleTimeout     = 60 * time.Second
	shutdownTimeout = 30 * time.Second
	stopTimeout     = 5 * time.Second
)

// Server owns the listener, the gin engine and the background sync
// machinery the routes enqueue into.
type Server struct {
	cfg        *config.Config
	deps       router.Deps
	scheduler  *syncer.Scheduler
	router     *gin.Engine
	listener   net.Listener
	httpServer *http.Server
}

// New builds a server for cfg. scheduler may be nil when no sync.schedule
// is configured.
func New(cfg *config.Config, deps router.Deps, scheduler *syncer.Scheduler) *Server {
	mode := gin.ReleaseMode
	if cfg.Server.Debug {
		mode = gin.DebugMode
	}
	gin.SetMode(mode)

	engine := gin.New()
	// /api/projects and /api/projects/ are distinct routes
	engine.RedirectTrailingSlash = false
	engine.RedirectFixedPath = false

	deps.Config = cfg
	return &Server{cfg: cfg, deps: deps, scheduler: scheduler, router: engine}
}

// SetupRoutes registers the API on the engine
func (s *Server) SetupRoutes() error {
	return router.Setup(s.router, s.deps)
}

// Start binds the listen address, then starts the sync workers and the
// scheduler, then serves in the background. Nothing is left running when
// an error is returned.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Server.Address())
	if err != nil {
		return err
	}

	s.deps.Syncer.Start()
	if s.scheduler != nil {
		if err := s.scheduler.Start(); err != nil {
			_ = ln.Close()
			ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
			defer cancel()
			_ = s.deps.Syncer.Stop(ctx)
			return err
		}
	}

	s.listener = ln
	s.httpServer = &http.Server{
		Handler:      s.router,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
	logger.Info("HTTP server listening",
		zap.String("address", ln.Addr().String()),
		zap.Bool("debug", s.cfg.Server.Debug),
		zap.Bool("scheduler", s.scheduler != nil),
	)

	go s.serve(ln)
	return nil
}

func (s *Server) serve(ln net.Listener) {
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("HTTP server stopped unexpectedly", zap.Error(err))
	}
}

// Addr returns the bound address, or "" before Start. With port 0 it
// carries the port the kernel picked.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// WaitForShutdown blocks until SIGINT or SIGTERM and then shuts down
// gracefully. A second signal exits the process at once.
func (s *Server) WaitForShutdown() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	<-ctx.Done()
	stop()
	logger.Info("Shutdown requested, draining running syncs (signal again to force exit)")

	force := make(chan os.Signal, 1)
	signal.Notify(force, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-force
		logger.Warn("Forced exit", zap.String("signal", sig.String()))
		os.Exit(1)
	}()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown did not complete cleanly", zap.Error(err))
		return
	}
	logger.Info("Server stopped")
}

// Shutdown stops in dependency order: HTTP first so no new syncs arrive,
// then the scheduler, then the workers. Running syncs get until ctx ends;
// queued ones fail with syncer.ErrStopped.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if s.httpServer != nil {
		errs = append(errs, s.httpServer.Shutdown(ctx))
	}
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
	if s.deps.Syncer != nil {
		errs = append(errs, s.deps.Syncer.Stop(ctx))
	}
	return errors.Join(errs...)
}

// Stop is Shutdown with a short deadline
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	return s.Shutdown(ctx)
}

// Router returns the gin engine
func (s *Server) Router() *gin.Engine {
	return s.router
}
