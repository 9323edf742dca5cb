package devserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/euphroshub/minimalist-stack/internal/ctxlog"
)

// shutdownTimeout bounds the graceful shutdown of both listeners.
const shutdownTimeout = 5 * time.Second

// Options configures a Server.
type Options struct {
	// Dir is the directory served by the static listener.
	Dir  string
	Host string
	// Port and ReloadPort may be zero to pick free ports.
	Port       int
	ReloadPort int
	// Index is the document served for directory requests.
	Index string
}

// Server is the development server: a static listener plus the reload
// listener hosting the Hub.
type Server struct {
	opts Options
	hub  *Hub

	mu       sync.Mutex
	static   *http.Server
	reload   *http.Server
	staticLn net.Listener
	reloadLn net.Listener
}

// New creates a server. Nothing is bound until Start.
func New(ctx context.Context, opts Options) *Server {
	if opts.Index == "" {
		opts.Index = "index.html"
	}
	return &Server{opts: opts, hub: NewHub(ctx)}
}

// Hub returns the reload registry of this server.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start binds both listeners and serves them in the background. It returns
// once the sockets accept connections, or the listen error when a port is
// unavailable.
func (s *Server) Start(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.static != nil {
		return errors.New("dev server already started")
	}

	reloadLn, err := net.Listen("tcp", net.JoinHostPort(s.opts.Host, strconv.Itoa(s.opts.ReloadPort)))
	if err != nil {
		return fmt.Errorf("reload server failed to listen: %w", err)
	}
	staticLn, err := net.Listen("tcp", net.JoinHostPort(s.opts.Host, strconv.Itoa(s.opts.Port)))
	if err != nil {
		_ = reloadLn.Close()
		return fmt.Errorf("static server failed to listen: %w", err)
	}
	s.reloadLn, s.staticLn = reloadLn, staticLn

	baseCtx := func(net.Listener) context.Context { return ctx }
	s.reload = &http.Server{Handler: reloadMux(s.hub), BaseContext: baseCtx}
	s.static = &http.Server{
		Handler: noCache(&staticHandler{
			dir:        s.opts.Dir,
			index:      s.opts.Index,
			reloadPort: s.boundReloadPort,
		}),
		BaseContext: baseCtx,
	}

	s.serve(ctx, "reload", s.reload, reloadLn)
	s.serve(ctx, "static", s.static, staticLn)

	logger.Info("🌐 Dev server listening",
		"url", "http://"+staticLn.Addr().String()+"/",
		"reload", "http://"+reloadLn.Addr().String()+"/",
		"dir", s.opts.Dir)
	return nil
}

func (s *Server) serve(ctx context.Context, name string, srv *http.Server, ln net.Listener) {
	logger := ctxlog.FromContext(ctx)
	go func() {
		// Serve returns ErrServerClosed on graceful shutdown.
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Dev server failed unexpectedly", "listener", name, "error", err)
		}
	}()
}

// Addr returns the bound address of the static listener, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.staticLn == nil {
		return ""
	}
	return s.staticLn.Addr().String()
}

// ReloadAddr returns the bound address of the reload listener, or "" before
// Start.
func (s *Server) ReloadAddr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reloadLn == nil {
		return ""
	}
	return s.reloadLn.Addr().String()
}

func (s *Server) boundReloadPort() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reloadLn == nil {
		return s.opts.ReloadPort
	}
	return s.reloadLn.Addr().(*net.TCPAddr).Port
}

// Shutdown disconnects every browser and gracefully stops both listeners.
func (s *Server) Shutdown(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	s.mu.Lock()
	static, reload := s.static, s.reload
	s.mu.Unlock()
	if static == nil {
		logger.Debug("Dev server was not running.")
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	logger.Info("🌐 Shutting down dev server...")
	s.hub.close()
	err := errors.Join(static.Shutdown(ctx), reload.Shutdown(ctx))
	if err != nil {
		logger.Error("Dev server shutdown failed", "error", err)
		return err
	}
	logger.Debug("Dev server shut down gracefully.")
	return nil
}
