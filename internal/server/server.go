// Package server is the HTTP front-end: save/delete endpoints, feed rendering
// and the health and status probes.
package server

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/apohrebniak/paket/internal/article"
	"github.com/apohrebniak/paket/internal/common/httputil"
	"github.com/apohrebniak/paket/internal/common/requestid"
	"github.com/apohrebniak/paket/internal/feed"
	"github.com/apohrebniak/paket/internal/metrics"
)

// Path constants for the public endpoints
const (
	PathSave     = "/save"
	PathDelete   = "/delete"
	PathFeedXML  = "/feed.xml"
	PathFeedHTML = "/feed.html"
	PathHealth   = "/health"
	PathStatus   = "/status"
)

// HealthChecker reports whether a backing component is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// ArticleCounter reports how many articles are stored.
type ArticleCounter interface {
	CountArticles(ctx context.Context) (int64, error)
}

// Server handles the public HTTP API.
type Server struct {
	articles *article.Service
	rss      feed.Writer
	html     feed.Writer

	db      HealthChecker
	counter ArticleCounter
	redis   HealthChecker // nil when the title cache is disabled

	metrics *metrics.MetricsCollector
	logger  *zap.Logger

	timeout   time.Duration
	server    *fasthttp.Server
	listener  net.Listener
	address   string
	startTime time.Time
}

// NewServer creates the front-end server. redis and mc may be nil.
func NewServer(
	articles *article.Service,
	db HealthChecker,
	counter ArticleCounter,
	redisClient HealthChecker,
	mc *metrics.MetricsCollector,
	timeout time.Duration,
	logger *zap.Logger,
) *Server {
	return &Server{
		articles:  articles,
		rss:       feed.NewRSSWriter(),
		html:      feed.NewHTMLWriter(),
		db:        db,
		counter:   counter,
		redis:     redisClient,
		metrics:   mc,
		logger:    logger,
		timeout:   timeout,
		startTime: time.Now().UTC(),
	}
}

// Start begins accepting HTTP requests on the given address
func (s *Server) Start(address string) error {
	s.address = address

	s.server = &fasthttp.Server{
		Handler:      s.Handler(),
		Name:         "Paket",
		ReadTimeout:  s.timeout,
		WriteTimeout: s.timeout,
	}

	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", address, err)
	}
	s.listener = listener

	s.logger.Info("Server started", zap.String("address", address))

	return s.server.Serve(listener)
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	s.logger.Info("Shutting down server")
	return s.server.ShutdownWithContext(ctx)
}

// GetAddress returns the address the server is listening on
func (s *Server) GetAddress() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.address
}

// Handler returns the FastHTTP request handler
func (s *Server) Handler() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		customRequestID := string(ctx.Request.Header.Peek("X-Request-ID"))
		requestID := requestid.GenerateRequestID(customRequestID)
		ctx.Response.Header.Set("X-Request-ID", requestID)

		logger := s.logger.With(zap.String("request_id", requestID))

		s.metrics.IncActiveRequests()
		defer s.metrics.DecActiveRequests()

		path := string(ctx.Path())
		method := string(ctx.Method())

		switch {
		case path == PathSave && method == fasthttp.MethodPut:
			s.handleSave(ctx, logger)
		case path == PathDelete && method == fasthttp.MethodPost:
			s.handleDelete(ctx, logger)
		case path == PathFeedXML && ctx.IsGet():
			s.handleFeed(ctx, s.rss, "rss", logger)
		case path == PathFeedHTML && ctx.IsGet():
			s.handleFeed(ctx, s.html, "html", logger)
		case path == PathHealth && ctx.IsGet():
			s.handleHealth(ctx)
		case path == PathStatus && ctx.IsGet():
			s.handleStatus(ctx)
		case path == PathSave || path == PathDelete || path == PathFeedXML ||
			path == PathFeedHTML || path == PathHealth || path == PathStatus:
			logger.Warn("Method not allowed",
				zap.String("method", method),
				zap.String("path", path))
			httputil.JSONError(ctx, "method not allowed", fasthttp.StatusMethodNotAllowed)
		default:
			logger.Warn("Not found", zap.String("path", path))
			httputil.JSONError(ctx, "not found", fasthttp.StatusNotFound)
		}

		s.metrics.RecordHTTPRequest(path, fmt.Sprintf("%d", ctx.Response.StatusCode()))
	}
}
