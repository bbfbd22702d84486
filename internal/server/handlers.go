package server

import (
	"errors"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/mem"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/apohrebniak/paket/internal/article"
	"github.com/apohrebniak/paket/internal/common/httputil"
	"github.com/apohrebniak/paket/internal/feed"
	"github.com/apohrebniak/paket/internal/fetch"
)

// handleSave fetches the submitted URL and stores it as an article.
func (s *Server) handleSave(ctx *fasthttp.RequestCtx, logger *zap.Logger) {
	rawURL := string(ctx.FormValue("url"))
	if rawURL == "" {
		httputil.JSONError(ctx, "missing url parameter", fasthttp.StatusBadRequest)
		return
	}

	start := time.Now()
	a, err := s.articles.Save(ctx, rawURL)
	if err != nil {
		logger.Warn("Save failed",
			zap.String("url", rawURL),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		httputil.JSONError(ctx, "failed to save article", saveStatusCode(err))
		return
	}

	logger.Info("Save completed",
		zap.String("guid", a.GUID),
		zap.Duration("duration", time.Since(start)))

	httputil.JSONData(ctx, map[string]string{
		"guid":  a.GUID,
		"title": a.Title,
		"url":   a.URL,
	}, fasthttp.StatusOK)
}

// saveStatusCode maps a save failure to its HTTP status: client mistakes are
// 400, throttling is 429, upstream fetch trouble is 502, the rest is 500.
func saveStatusCode(err error) int {
	switch {
	case errors.Is(err, fetch.ErrInvalidURL), errors.Is(err, fetch.ErrUnsupportedScheme):
		return fasthttp.StatusBadRequest
	case errors.Is(err, article.ErrRateLimited):
		return fasthttp.StatusTooManyRequests
	case fetch.ErrorKind(err) != "other":
		return fasthttp.StatusBadGateway
	default:
		return fasthttp.StatusInternalServerError
	}
}

// handleDelete removes an article and sends the browser back to the HTML feed.
func (s *Server) handleDelete(ctx *fasthttp.RequestCtx, logger *zap.Logger) {
	guid := string(ctx.FormValue("guid"))
	if guid == "" {
		httputil.JSONError(ctx, "missing guid parameter", fasthttp.StatusBadRequest)
		return
	}

	if err := s.articles.Delete(ctx, guid); err != nil {
		logger.Error("Delete failed", zap.String("guid", guid), zap.Error(err))
		httputil.JSONError(ctx, "failed to delete article", fasthttp.StatusInternalServerError)
		return
	}

	ctx.Redirect(PathFeedHTML, fasthttp.StatusSeeOther)
}

// handleFeed renders the stored articles with the given writer.
func (s *Server) handleFeed(ctx *fasthttp.RequestCtx, w feed.Writer, format string, logger *zap.Logger) {
	body, err := s.articles.Feed(ctx, w)
	if err != nil {
		logger.Error("Feed rendering failed", zap.String("format", format), zap.Error(err))
		httputil.JSONError(ctx, "failed to render feed", fasthttp.StatusInternalServerError)
		return
	}

	s.metrics.RecordFeedRequest(format)
	httputil.WriteBody(ctx, w.ContentType(), body)
}

func (s *Server) handleHealth(ctx *fasthttp.RequestCtx) {
	checks := map[string]string{}
	healthy := true

	if err := s.db.HealthCheck(ctx); err != nil {
		checks["database"] = err.Error()
		healthy = false
	} else {
		checks["database"] = "ok"
	}

	if s.redis != nil {
		if err := s.redis.HealthCheck(ctx); err != nil {
			checks["redis"] = err.Error()
			healthy = false
		} else {
			checks["redis"] = "ok"
		}
	}

	if !healthy {
		httputil.JSONResponse(ctx, false, "unhealthy", checks, fasthttp.StatusServiceUnavailable)
		return
	}
	httputil.JSONData(ctx, checks, fasthttp.StatusOK)
}

func (s *Server) handleStatus(ctx *fasthttp.RequestCtx) {
	status := map[string]interface{}{
		"uptime_seconds": int64(time.Since(s.startTime).Seconds()),
		"goroutines":     runtime.NumGoroutine(),
	}

	if count, err := s.counter.CountArticles(ctx); err == nil {
		status["articles_stored"] = count
	}

	if v, err := mem.VirtualMemory(); err == nil {
		status["memory_used_percent"] = v.UsedPercent
	}

	httputil.JSONData(ctx, status, fasthttp.StatusOK)
}
