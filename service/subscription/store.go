package subscription

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	DB *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// _busy_timeout=5000: wait up to 5s when DB is locked (default=0, fails immediately)
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{DB: db}
	if err := store.createTables(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS subscriptions (
			userId TEXT PRIMARY KEY,
			descriptor TEXT NOT NULL,
			updatedAt INTEGER NOT NULL
		)`,
	}

	for _, query := range queries {
		if _, err := s.DB.Exec(query); err != nil {
			return fmt.Errorf("failed to create tables: %w", err)
		}
	}

	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, userID string) (*Subscription, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT userId, descriptor, updatedAt FROM subscriptions WHERE userId = ?`, userID)

	sub, err := scanSubscription(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *SQLiteStore) Set(ctx context.Context, sub Subscription) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO subscriptions (userId, descriptor, updatedAt) VALUES (?, ?, ?)
		ON CONFLICT(userId) DO UPDATE SET descriptor = excluded.descriptor, updatedAt = excluded.updatedAt
	`, sub.UserID, string(sub.Descriptor), sub.UpdatedAt.UnixMilli())
	return err
}

func (s *SQLiteStore) Delete(ctx context.Context, userID string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM subscriptions WHERE userId = ?`, userID)
	return err
}

func (s *SQLiteStore) Evict(ctx context.Context, sub Subscription) (bool, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM subscriptions WHERE userId = ? AND descriptor = ?`, sub.UserID, string(sub.Descriptor))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]Subscription, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT userId, descriptor, updatedAt FROM subscriptions ORDER BY userId`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subs := make([]Subscription, 0)
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}

	return subs, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.DB.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row scanner) (*Subscription, error) {
	var (
		sub        Subscription
		descriptor string
		updatedAt  int64
	)
	if err := row.Scan(&sub.UserID, &descriptor, &updatedAt); err != nil {
		return nil, err
	}
	sub.Descriptor = []byte(descriptor)
	sub.UpdatedAt = time.UnixMilli(updatedAt)
	return &sub, nil
}
