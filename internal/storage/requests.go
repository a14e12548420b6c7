package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// RequestLogEntry is one row of the request log. Rows are insert-only; the
// most recent row with a non-null file_id for a link is the cache entry.
type RequestLogEntry struct {
	ID          int64
	UserID      int64
	Username    string
	ChatID      int64
	Link        string
	Service     string
	FileID      string
	IsPublished bool
	CreatedAt   time.Time
}

// CachedMedia is a cache entry resolved from the request log.
type CachedMedia struct {
	Link    string
	FileID  string
	Service string
}

// ServiceStat is a per-service request count for admin stats.
type ServiceStat struct {
	Service string
	Count   int
}

// insertArgs binds the row values. Username stays plain text because the
// column is NOT NULL and Telegram users without a username are common; only
// file_id binds NULL when empty, so failed sends never look like cache
// entries.
func (e RequestLogEntry) insertArgs() []any {
	return []any{e.UserID, sanitizeUTF8(e.Username), e.ChatID, e.Link, e.Service, toText(e.FileID), e.IsPublished}
}

// InsertRequest appends one row to the request log.
func (db *DB) InsertRequest(ctx context.Context, entry RequestLogEntry) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO requests_log (user_id, username, chat_id, link, service, file_id, is_published)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, entry.insertArgs()...)
	if err != nil {
		return fmt.Errorf("insert request log row: %w", err)
	}

	return nil
}

// GetCachedFileID returns the most recent non-null file_id recorded for a
// normalized link, or "" when the link was never delivered.
func (db *DB) GetCachedFileID(ctx context.Context, link string) (string, error) {
	var fileID string

	err := db.Pool.QueryRow(ctx, `
		SELECT file_id FROM requests_log
		WHERE link = $1 AND file_id IS NOT NULL
		ORDER BY created_at DESC
		LIMIT 1
	`, link).Scan(&fileID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}

	if err != nil {
		return "", fmt.Errorf("query cached file_id: %w", err)
	}

	return fileID, nil
}

// SearchCachedMedia returns the latest cache entry per link matching the
// query substring, newest first. Used by inline mode.
func (db *DB) SearchCachedMedia(ctx context.Context, query string, limit int) ([]CachedMedia, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT DISTINCT ON (link) link, file_id, service
		FROM requests_log
		WHERE file_id IS NOT NULL AND link ILIKE '%' || $1 || '%'
		ORDER BY link, created_at DESC
		LIMIT $2
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query cached media: %w", err)
	}
	defer rows.Close()

	results := make([]CachedMedia, 0, limit)

	for rows.Next() {
		var entry CachedMedia
		if err := rows.Scan(&entry.Link, &entry.FileID, &entry.Service); err != nil {
			return nil, fmt.Errorf("scan cached media row: %w", err)
		}

		results = append(results, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cached media rows: %w", err)
	}

	return results, nil
}

// GetServiceStats returns per-service request counts since the given time.
func (db *DB) GetServiceStats(ctx context.Context, since time.Time, limit int) ([]ServiceStat, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT service, COUNT(*)::int
		FROM requests_log
		WHERE created_at >= $1
		GROUP BY service
		ORDER BY COUNT(*) DESC
		LIMIT $2
	`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("query service stats: %w", err)
	}
	defer rows.Close()

	stats := make([]ServiceStat, 0, limit)

	for rows.Next() {
		var entry ServiceStat
		if err := rows.Scan(&entry.Service, &entry.Count); err != nil {
			return nil, fmt.Errorf("scan service stat row: %w", err)
		}

		stats = append(stats, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate service stat rows: %w", err)
	}

	return stats, nil
}

// CountRequests returns the total and cache-served request counts since the
// given time. A row whose service is the cached-media marker was answered
// without a download.
func (db *DB) CountRequests(ctx context.Context, since time.Time, cachedService string) (total, cached int, err error) {
	err = db.Pool.QueryRow(ctx, `
		SELECT COUNT(*)::int,
		       COUNT(*) FILTER (WHERE service = $2)::int
		FROM requests_log
		WHERE created_at >= $1
	`, since, cachedService).Scan(&total, &cached)
	if err != nil {
		return 0, 0, fmt.Errorf("count requests: %w", err)
	}

	return total, cached, nil
}

// DistinctChatIDs returns every chat the bot has served, for broadcasts.
func (db *DB) DistinctChatIDs(ctx context.Context) ([]int64, error) {
	rows, err := db.Pool.Query(ctx, `SELECT DISTINCT chat_id FROM requests_log`)
	if err != nil {
		return nil, fmt.Errorf("query distinct chat ids: %w", err)
	}
	defer rows.Close()

	var ids []int64

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan chat id: %w", err)
		}

		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat id rows: %w", err)
	}

	return ids, nil
}
