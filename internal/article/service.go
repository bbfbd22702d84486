// Package article implements the save/delete/feed pipeline: fetch a URL,
// derive a title for it, persist it, and render the stored set as a feed.
package article

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/apohrebniak/paket/internal/feed"
	"github.com/apohrebniak/paket/internal/fetch"
	"github.com/apohrebniak/paket/internal/metrics"
	"github.com/apohrebniak/paket/internal/store"
)

// ErrRateLimited rejects a save when the outbound fetch budget is exhausted.
var ErrRateLimited = errors.New("save rate limit exceeded")

// Storage is the subset of store operations the service needs.
type Storage interface {
	SaveArticle(ctx context.Context, a store.Article) error
	DeleteArticle(ctx context.Context, guid string) error
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
	ListArticles(ctx context.Context) ([]store.Article, error)
	WeeklyStats(ctx context.Context) ([]store.WeekCount, error)
	CountArticles(ctx context.Context) (int64, error)
}

// Fetcher retrieves and classifies documents.
type Fetcher interface {
	Fetch(ctx context.Context, rawurl string) (*fetch.Document, error)
}

// Config carries the service settings derived from the application config.
type Config struct {
	// FetchTimeout bounds fetching plus title extraction per save.
	FetchTimeout time.Duration

	// Feed channel identity.
	FeedName        string
	FeedDescription string
	FeedLink        string

	// FeedTTL expires articles older than this on every feed render.
	// Zero disables expiry.
	FeedTTL time.Duration

	// RateLimit throttles outbound fetches in requests per second.
	// Zero disables throttling.
	RateLimit float64
	RateBurst int
}

// Service coordinates saves, deletes and feed rendering.
type Service struct {
	storage Storage
	fetcher Fetcher
	cache   *TitleCache
	limiter *rate.Limiter
	metrics *metrics.MetricsCollector
	logger  *zap.Logger

	fetchTimeout time.Duration
	feedTTL      time.Duration
	channel      feed.Channel

	now func() time.Time
}

// NewService creates the article service. cache and mc may be nil.
func NewService(cfg Config, storage Storage, fetcher Fetcher, cache *TitleCache, mc *metrics.MetricsCollector, logger *zap.Logger) *Service {
	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)
	}

	return &Service{
		storage: storage,
		fetcher: fetcher,
		cache:   cache,
		limiter: limiter,
		metrics: mc,
		logger:  logger,

		fetchTimeout: cfg.FetchTimeout,
		feedTTL:      cfg.FeedTTL,
		channel: feed.Channel{
			Title:       cfg.FeedName,
			Description: cfg.FeedDescription,
			Link:        cfg.FeedLink,
		},

		now: time.Now,
	}
}

// Save fetches rawURL, derives a title and persists the article. Saving a URL
// that is already stored replaces it, moving it to the top of the feed.
func (s *Service) Save(ctx context.Context, rawURL string) (store.Article, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		s.metrics.RecordSaveInvalidRequest()
		return store.Article{}, fmt.Errorf("%w: %v", fetch.ErrInvalidURL, err)
	}

	// The GUID is derived from the URL, so the same link always maps to the
	// same article row.
	guid := uuid.NewSHA1(uuid.NameSpaceURL, []byte(u.String())).String()

	title, cached := s.cache.Get(ctx, u.String())
	if !cached {
		title, err = s.fetchTitle(ctx, u.String())
		if err != nil {
			return store.Article{}, err
		}
		s.cache.Set(ctx, u.String(), title)
	}

	article := store.Article{
		GUID:      guid,
		Title:     title,
		URL:       u.String(),
		CreatedAt: s.now().UTC(),
	}

	if err := s.storage.SaveArticle(ctx, article); err != nil {
		s.metrics.RecordSaveStoreError()
		return store.Article{}, fmt.Errorf("failed to save article: %w", err)
	}

	s.metrics.RecordSaveSuccess()
	s.updateStoredGauge(ctx)
	s.logger.Info("Article saved",
		zap.String("guid", guid),
		zap.String("url", u.String()),
		zap.String("title", title),
		zap.Bool("title_cached", cached))

	return article, nil
}

// fetchTitle retrieves the document and derives its display title. The fetch
// timeout covers both the network fetch and the incremental extraction.
func (s *Service) fetchTitle(ctx context.Context, rawURL string) (string, error) {
	if s.limiter != nil && !s.limiter.Allow() {
		s.metrics.RecordSaveRateLimited()
		return "", ErrRateLimited
	}

	if s.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.fetchTimeout)
		defer cancel()
	}

	start := time.Now()
	doc, err := s.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		s.metrics.RecordFetchError(fetch.ErrorKind(err))
		s.metrics.RecordSaveFetchError()
		return "", fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer doc.Close()

	title, err := deriveTitle(ctx, doc)
	s.metrics.RecordFetchDuration(time.Since(start).Seconds())
	if err != nil {
		s.metrics.RecordFetchError(fetch.ErrorKind(err))
		s.metrics.RecordSaveFetchError()
		return "", fmt.Errorf("failed to extract title from %s: %w", rawURL, err)
	}
	return title, nil
}

// deriveTitle maps a classified document to its feed title. Kinds without a
// usable title fall back to a marker plus something identifying the document.
func deriveTitle(ctx context.Context, doc *fetch.Document) (string, error) {
	switch doc.Kind {
	case fetch.DocPDF:
		return "[PDF] " + pdfName(doc.URL), nil
	case fetch.DocUnsupported:
		return "[???] " + doc.URL.String(), nil
	}

	title, found, err := doc.Body.ExtractTitle(ctx)
	if err != nil {
		return "", err
	}
	if !found {
		return "[NO TITLE]", nil
	}
	return title, nil
}

// pdfName returns the last path segment of the URL, or the whole URL when the
// path has no usable segment.
func pdfName(u *url.URL) string {
	path := u.Path
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		path = path[i+1:]
	}
	if path == "" {
		return u.String()
	}
	return path
}

// Delete removes the article with the given GUID. Deleting an absent GUID is
// not an error.
func (s *Service) Delete(ctx context.Context, guid string) error {
	if err := s.storage.DeleteArticle(ctx, guid); err != nil {
		return fmt.Errorf("failed to delete article: %w", err)
	}

	s.updateStoredGauge(ctx)
	s.logger.Info("Article deleted", zap.String("guid", guid))
	return nil
}

// Feed expires old articles, then renders the remaining set with the given
// writer.
func (s *Service) Feed(ctx context.Context, w feed.Writer) ([]byte, error) {
	now := s.now().UTC()

	if s.feedTTL > 0 {
		if _, err := s.storage.DeleteExpired(ctx, now.Add(-s.feedTTL)); err != nil {
			return nil, fmt.Errorf("failed to expire articles: %w", err)
		}
	}

	articles, err := s.storage.ListArticles(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}

	items := make([]feed.Item, len(articles))
	for i, a := range articles {
		items[i] = feed.Item{
			Title:   a.Title,
			Link:    a.URL,
			GUID:    a.GUID,
			PubDate: a.CreatedAt,
		}
	}

	weekly, err := s.weeklyCounts(ctx, now)
	if err != nil {
		return nil, err
	}

	ch := s.channel
	ch.BuildTime = now

	s.metrics.UpdateArticlesStored(int64(len(articles)))
	return w.Render(ch, weekly, items), nil
}

// weeklyCounts maps the stored stats of the current ISO year onto a slice
// indexed by week number.
func (s *Service) weeklyCounts(ctx context.Context, now time.Time) ([]int, error) {
	stats, err := s.storage.WeeklyStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load weekly stats: %w", err)
	}

	year, _ := now.ISOWeek()
	weekly := make([]int, feed.MaxWeeks)
	for _, wc := range stats {
		if wc.Year == year && wc.Week >= 1 && wc.Week <= feed.MaxWeeks {
			weekly[wc.Week-1] = wc.Saved
		}
	}
	return weekly, nil
}

func (s *Service) updateStoredGauge(ctx context.Context) {
	count, err := s.storage.CountArticles(ctx)
	if err != nil {
		s.logger.Debug("Failed to count stored articles", zap.Error(err))
		return
	}
	s.metrics.UpdateArticlesStored(count)
}
