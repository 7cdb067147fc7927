package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plshuffle/internal/shared"
	"golang.org/x/oauth2"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Handler is an [http.Handler] that knows which paths it serves.
type Handler interface {
	http.Handler
	Routes() []string
}

// Router registers [Handler] implementations behind a middleware stack.
type Router struct {
	mux         *http.ServeMux
	middlewares []Middleware
}

// NewRouter creates an empty [Router].
func NewRouter() *Router {
	return &Router{mux: http.NewServeMux()}
}

// Use appends middleware to the stack.
func (r *Router) Use(middleware ...Middleware) {
	r.middlewares = append(r.middlewares, middleware...)
}

// Handle registers h for every path in [Handler.Routes], restricted to GET.
func (r *Router) Handle(h Handler) {
	wrapped := r.apply(h)
	for _, route := range h.Routes() {
		r.mux.Handle("GET "+route, wrapped)
	}
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func (r *Router) apply(h http.Handler) http.Handler {
	wrapped := h
	for i := len(r.middlewares) - 1; i >= 0; i-- {
		wrapped = r.middlewares[i](wrapped)
	}
	return wrapped
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// LogRequests logs method, path, status and duration of every request at debug level.
func LogRequests(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Debug("callback request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration", time.Since(start),
			)
		})
	}
}

// CallbackServer serves a [CallbackHandler] on the redirect URI's host and port.
type CallbackServer struct {
	handler  *CallbackHandler
	srv      *http.Server
	listener net.Listener
	logger   *log.Logger
}

// NewCallbackServer creates a server for config.RedirectURL.
//
// The redirect URI must be an http URL with an explicit host, e.g. http://127.0.0.1:3000/callback.
func NewCallbackServer(config *oauth2.Config, state string, logger *log.Logger) (*CallbackServer, error) {
	u, err := url.Parse(config.RedirectURL)
	if err != nil || u.Scheme != "http" || u.Host == "" {
		return nil, fmt.Errorf("%w: redirect uri %q must be a local http URL", shared.ErrInvalidConfig, config.RedirectURL)
	}

	path := u.Path
	if path == "" {
		path = "/"
	}

	handler := NewCallbackHandler(config, state, path)
	router := NewRouter()
	router.Use(LogRequests(logger))
	router.Handle(handler)

	return &CallbackServer{
		handler: handler,
		srv:     &http.Server{Addr: u.Host, Handler: router, ReadHeaderTimeout: 10 * time.Second},
		logger:  logger,
	}, nil
}

// Start begins listening. It returns once the listener is bound.
func (s *CallbackServer) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.srv.Addr, err)
	}
	s.listener = ln

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("callback server stopped", "error", err)
		}
	}()

	s.logger.Debug("callback server listening", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound address, useful when listening on port 0.
func (s *CallbackServer) Addr() string {
	if s.listener == nil {
		return s.srv.Addr
	}
	return s.listener.Addr().String()
}

// Wait blocks until the callback produces a token, the context ends, or timeout elapses.
func (s *CallbackServer) Wait(ctx context.Context, timeout time.Duration) (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case result := <-s.handler.Result():
		if result.Err != nil {
			return nil, fmt.Errorf("%w: %w", shared.ErrAuthFailed, result.Err)
		}
		return result.Token, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: no callback within %s", shared.ErrTimeout, timeout)
		}
		return nil, ctx.Err()
	}
}

// Shutdown stops the server, waiting briefly for in-flight responses.
func (s *CallbackServer) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
