package db

import (
	"context"
	"fmt"

	"feed_aggregator/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Database инкапсулирует пул соединений к PostgreSQL, где хранится список лент.
type Database struct {
	Pool *pgxpool.Pool
}

// NewDB создаёт новый пул соединений по connString и возвращает Database.
func NewDB(ctx context.Context, connString string) (*Database, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	return &Database{Pool: pool}, nil
}

// Close закрывает пул соединений.
func (db *Database) Close() {
	db.Pool.Close()
}

// Ping проверяет доступность базы.
func (db *Database) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// ListSources читает включённые ленты из rss_feeds в порядке id,
// который и становится порядком регистрации.
func (db *Database) ListSources(ctx context.Context) ([]models.FeedSource, error) {
	rows, err := db.Pool.Query(ctx, `
        SELECT url, COALESCE(name, '')
        FROM rss_feeds
        WHERE enabled
        ORDER BY id
    `)
	if err != nil {
		return nil, fmt.Errorf("query rss_feeds: %w", err)
	}
	defer rows.Close()

	var sources []models.FeedSource
	for rows.Next() {
		var s models.FeedSource
		if err := rows.Scan(&s.URL, &s.DisplayName); err != nil {
			return nil, fmt.Errorf("scan rss_feeds: %w", err)
		}
		sources = append(sources, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read rss_feeds: %w", err)
	}
	return sources, nil
}
