// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/poiesic/datagen/core"
	"github.com/poiesic/datagen/storage"

	_ "modernc.org/sqlite" // cgo-free driver
)

const schema = `
CREATE TABLE IF NOT EXISTS reviews (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	topic TEXT NOT NULL,
	product_name TEXT NOT NULL,
	review_text TEXT NOT NULL,
	sentiment TEXT NOT NULL CHECK (sentiment IN ('Positive', 'Neutral', 'Negative')),
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_reviews_topic_id ON reviews(topic, id);
`

// ReviewRepository implements storage.ReviewRepository on SQLite.
type ReviewRepository struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

var _ storage.ReviewRepository = (*ReviewRepository)(nil)

// NewReviewRepository opens the database at path and ensures the schema exists.
// The parent directory is created if missing.
func NewReviewRepository(ctx context.Context, path string) (storage.ReviewRepository, error) {
	return open(ctx, path)
}

func open(ctx context.Context, path string) (*ReviewRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, storage.WrapError("open", fmt.Errorf("failed to create database directory: %w", err))
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, storage.WrapError("open", fmt.Errorf("failed to open database: %w", err))
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)

	r := &ReviewRepository{
		db:     db,
		path:   path,
		logger: slog.Default().With("component", "sqlite-reviews"),
	}
	if err := r.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	r.logger.Debug("database opened", "path", path)
	return r, nil
}

// EnsureSchema creates the reviews table and its index if they do not exist.
func (r *ReviewRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return storage.WrapError("ensure_schema", err)
	}
	return nil
}

// InsertReviews appends records for topic in one transaction.
func (r *ReviewRepository) InsertReviews(ctx context.Context, topic string, records []core.Record) ([]core.StoredRecord, error) {
	if len(records) == 0 {
		return []core.StoredRecord{}, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storage.WrapError("insert_reviews", fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer func() {
		if rollErr := tx.Rollback(); rollErr != nil && !errors.Is(rollErr, sql.ErrTxDone) {
			r.logger.Warn("failed to rollback transaction", "error", rollErr)
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO reviews (topic, product_name, review_text, sentiment)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return nil, storage.WrapError("insert_reviews", fmt.Errorf("failed to prepare statement: %w", err))
	}
	defer stmt.Close()

	stored := make([]core.StoredRecord, 0, len(records))
	for i, rec := range records {
		res, err := stmt.ExecContext(ctx, topic, rec.ProductName, rec.ReviewText, string(rec.Sentiment))
		if err != nil {
			return nil, storage.WrapError("insert_reviews", fmt.Errorf("failed to insert review at index %d: %w", i, err))
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, storage.WrapError("insert_reviews", err)
		}
		stored = append(stored, core.StoredRecord{ID: id, Topic: topic, Record: rec})
	}

	if err := tx.Commit(); err != nil {
		return nil, storage.WrapError("insert_reviews", fmt.Errorf("failed to commit transaction: %w", err))
	}

	r.logger.Debug("inserted reviews", "topic", topic, "count", len(stored))
	return stored, nil
}

// RecentReviews returns up to limit rows for topic, newest first.
func (r *ReviewRepository) RecentReviews(ctx context.Context, topic string, limit int) ([]core.StoredRecord, error) {
	if limit <= 0 {
		return []core.StoredRecord{}, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, topic, product_name, review_text, sentiment
		FROM reviews
		WHERE topic = ?
		ORDER BY id DESC
		LIMIT ?
	`, topic, limit)
	if err != nil {
		return nil, storage.WrapError("recent_reviews", err)
	}
	return scanReviews("recent_reviews", rows)
}

// ReviewsAfter returns up to limit rows for topic with id greater than afterID, oldest first.
func (r *ReviewRepository) ReviewsAfter(ctx context.Context, topic string, afterID int64, limit int) ([]core.StoredRecord, error) {
	if limit <= 0 {
		return nil, storage.WrapError("reviews_after", storage.ErrInvalidQuery)
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, topic, product_name, review_text, sentiment
		FROM reviews
		WHERE topic = ? AND id > ?
		ORDER BY id ASC
		LIMIT ?
	`, topic, afterID, limit)
	if err != nil {
		return nil, storage.WrapError("reviews_after", err)
	}
	return scanReviews("reviews_after", rows)
}

// CountReviews returns the number of rows stored for topic.
func (r *ReviewRepository) CountReviews(ctx context.Context, topic string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reviews WHERE topic = ?`, topic).Scan(&n)
	if err != nil {
		return 0, storage.WrapError("count_reviews", err)
	}
	return n, nil
}

// Close closes the database handle.
func (r *ReviewRepository) Close() error {
	return r.db.Close()
}

func scanReviews(op string, rows *sql.Rows) ([]core.StoredRecord, error) {
	defer rows.Close()

	out := []core.StoredRecord{}
	for rows.Next() {
		var (
			rec       core.StoredRecord
			sentiment string
		)
		if err := rows.Scan(&rec.ID, &rec.Topic, &rec.ProductName, &rec.ReviewText, &sentiment); err != nil {
			return nil, storage.WrapError(op, err)
		}
		rec.Sentiment = core.Sentiment(strings.TrimSpace(sentiment))
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.WrapError(op, err)
	}
	return out, nil
}
