// Package store persists articles and weekly save statistics in MySQL.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/apohrebniak/paket/internal/common/config"
)

// Article is a saved link as it appears in the feed.
type Article struct {
	GUID      string
	Title     string
	URL       string
	CreatedAt time.Time
}

// WeekCount is the number of articles saved during one ISO week.
type WeekCount struct {
	Year  int
	Week  int
	Saved int
}

// Store handles all database operations.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// New opens a connection pool to the configured MySQL database and verifies
// connectivity.
func New(cfg config.StorageConfig, logger *zap.Logger) (*Store, error) {
	dsn := mysql.Config{
		User:                 cfg.User,
		Passwd:               cfg.Password,
		Net:                  "tcp",
		Addr:                 cfg.Addr,
		DBName:               cfg.Database,
		ParseTime:            true,
		Loc:                  time.UTC,
		AllowNativePasswords: true,
	}

	db, err := sql.Open("mysql", dsn.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Debug("Database connected", zap.String("addr", cfg.Addr), zap.String("database", cfg.Database))

	return &Store{db: db, logger: logger}, nil
}

// Initialize creates the tables if they do not exist yet.
func (s *Store) Initialize(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS articles (
			guid       VARCHAR(36) NOT NULL PRIMARY KEY,
			title      TEXT        NOT NULL,
			url        TEXT        NOT NULL,
			created_at DATETIME    NOT NULL
		)`); err != nil {
		return fmt.Errorf("failed to create articles table: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS stats_per_week (
			year  INT NOT NULL,
			week  INT NOT NULL,
			saved INT NOT NULL,
			PRIMARY KEY (year, week)
		)`); err != nil {
		return fmt.Errorf("failed to create stats_per_week table: %w", err)
	}

	return nil
}

// SaveArticle stores the article and refreshes the save counter of its ISO
// week in the same transaction. Saving the same GUID again replaces the
// previous row, so a re-saved link moves to the top of the feed without
// inflating the stats.
func (s *Store) SaveArticle(ctx context.Context, a Article) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM articles WHERE guid = ?`, a.GUID); err != nil {
		return fmt.Errorf("failed to delete previous article: %w", err)
	}

	createdAt := a.CreatedAt.UTC()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO articles (guid, title, url, created_at) VALUES (?, ?, ?, ?)`,
		a.GUID, a.Title, a.URL, createdAt); err != nil {
		return fmt.Errorf("failed to insert article: %w", err)
	}

	weekStart, weekEnd := isoWeekBounds(createdAt)
	var saved int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM articles WHERE created_at >= ? AND created_at < ?`,
		weekStart, weekEnd).Scan(&saved); err != nil {
		return fmt.Errorf("failed to count articles for week: %w", err)
	}

	year, week := createdAt.ISOWeek()
	if _, err := tx.ExecContext(ctx,
		`REPLACE INTO stats_per_week (year, week, saved) VALUES (?, ?, ?)`,
		year, week, saved); err != nil {
		return fmt.Errorf("failed to update weekly stats: %w", err)
	}

	return tx.Commit()
}

// DeleteArticle removes the article with the given GUID. Weekly stats keep
// the historical save count.
func (s *Store) DeleteArticle(ctx context.Context, guid string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM articles WHERE guid = ?`, guid); err != nil {
		return fmt.Errorf("failed to delete article: %w", err)
	}
	return nil
}

// DeleteExpired removes articles created before the cutoff and reports how
// many rows went away.
func (s *Store) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM articles WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired articles: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.logger.Info("Removed expired articles",
			zap.Int64("count", removed),
			zap.Time("cutoff", cutoff))
	}
	return removed, nil
}

// ListArticles returns all articles, newest first.
func (s *Store) ListArticles(ctx context.Context) ([]Article, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT guid, title, url, created_at FROM articles ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	defer rows.Close()

	var articles []Article
	for rows.Next() {
		var a Article
		if err := rows.Scan(&a.GUID, &a.Title, &a.URL, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.CreatedAt = a.CreatedAt.UTC()
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// GetArticle returns the article with the given GUID, or nil when absent.
func (s *Store) GetArticle(ctx context.Context, guid string) (*Article, error) {
	var a Article
	err := s.db.QueryRowContext(ctx,
		`SELECT guid, title, url, created_at FROM articles WHERE guid = ?`, guid).
		Scan(&a.GUID, &a.Title, &a.URL, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get article: %w", err)
	}
	a.CreatedAt = a.CreatedAt.UTC()
	return &a, nil
}

// WeeklyStats returns the save counters ordered by year and week.
func (s *Store) WeeklyStats(ctx context.Context) ([]WeekCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT year, week, saved FROM stats_per_week ORDER BY year, week`)
	if err != nil {
		return nil, fmt.Errorf("failed to query weekly stats: %w", err)
	}
	defer rows.Close()

	var stats []WeekCount
	for rows.Next() {
		var wc WeekCount
		if err := rows.Scan(&wc.Year, &wc.Week, &wc.Saved); err != nil {
			return nil, err
		}
		stats = append(stats, wc)
	}
	return stats, rows.Err()
}

// CountArticles returns the number of stored articles.
func (s *Store) CountArticles(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count articles: %w", err)
	}
	return count, nil
}

// HealthCheck verifies the database connection is alive.
func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// isoWeekBounds returns the UTC half-open interval [monday, next monday) of
// t's ISO week.
func isoWeekBounds(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)

	weekday := int(day.Weekday())
	if weekday == 0 {
		weekday = 7 // ISO weeks start on Monday
	}
	monday := day.AddDate(0, 0, 1-weekday)
	return monday, monday.AddDate(0, 0, 7)
}
