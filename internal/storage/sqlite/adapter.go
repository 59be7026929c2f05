package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kurihiro0119/github-repo-analyzer/internal/domain"
	apperrors "github.com/kurihiro0119/github-repo-analyzer/internal/errors"
	"github.com/kurihiro0119/github-repo-analyzer/internal/storage"
)

// sqliteStorage implements the Storage interface for SQLite
type sqliteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (storage.Storage, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	s := &sqliteStorage{db: db}
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Migrate runs database migrations
func (s *sqliteStorage) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		generated_at TIMESTAMP NOT NULL,
		total_repos_analyzed INTEGER NOT NULL,
		total_estimated_loc INTEGER NOT NULL,
		average_quality_score REAL NOT NULL,
		data TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_username_created ON snapshots(username, created_at);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// SaveSnapshot saves a snapshot with its summary serialized as JSON
func (s *sqliteStorage) SaveSnapshot(ctx context.Context, snapshot *domain.Snapshot) error {
	data, err := json.Marshal(snapshot.Summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	query := `
		INSERT INTO snapshots (id, username, generated_at, total_repos_analyzed, total_estimated_loc, average_quality_score, data, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		snapshot.ID,
		storage.NormalizeUsername(snapshot.Username),
		snapshot.GeneratedAt.UTC(),
		snapshot.TotalReposAnalyzed,
		snapshot.TotalEstimatedLOC,
		snapshot.AverageQualityScore,
		string(data),
		snapshot.CreatedAt.UTC(),
	)
	return err
}

// GetSnapshots retrieves the snapshot history of an account
func (s *sqliteStorage) GetSnapshots(ctx context.Context, username string, limit int) ([]*domain.Snapshot, error) {
	query := `
		SELECT id, username, generated_at, total_repos_analyzed, total_estimated_loc, average_quality_score, created_at
		FROM snapshots
		WHERE username = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, storage.NormalizeUsername(username), storage.HistoryLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snapshots := []*domain.Snapshot{}
	for rows.Next() {
		var snap domain.Snapshot
		err := rows.Scan(&snap.ID, &snap.Username, &snap.GeneratedAt, &snap.TotalReposAnalyzed,
			&snap.TotalEstimatedLOC, &snap.AverageQualityScore, &snap.CreatedAt)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, &snap)
	}

	return snapshots, rows.Err()
}

// GetLatestSnapshot retrieves the newest snapshot of an account
func (s *sqliteStorage) GetLatestSnapshot(ctx context.Context, username string) (*domain.Snapshot, error) {
	query := `
		SELECT id, username, generated_at, total_repos_analyzed, total_estimated_loc, average_quality_score, data, created_at
		FROM snapshots
		WHERE username = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	var snap domain.Snapshot
	var data string
	err := s.db.QueryRowContext(ctx, query, storage.NormalizeUsername(username)).Scan(
		&snap.ID, &snap.Username, &snap.GeneratedAt, &snap.TotalReposAnalyzed,
		&snap.TotalEstimatedLOC, &snap.AverageQualityScore, &data, &snap.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("snapshot")
	}
	if err != nil {
		return nil, err
	}

	var summary domain.AccountSummary
	if err := json.Unmarshal([]byte(data), &summary); err != nil {
		return nil, fmt.Errorf("failed to unmarshal summary: %w", err)
	}
	snap.Summary = &summary

	return &snap, nil
}

// Close closes the database connection
func (s *sqliteStorage) Close() error {
	return s.db.Close()
}
