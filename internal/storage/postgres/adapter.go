package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/kurihiro0119/github-repo-analyzer/internal/domain"
	apperrors "github.com/kurihiro0119/github-repo-analyzer/internal/errors"
	"github.com/kurihiro0119/github-repo-analyzer/internal/storage"
)

// postgresStorage implements the Storage interface for PostgreSQL
type postgresStorage struct {
	db *sql.DB
}

// NewPostgresStorage creates a new PostgreSQL storage instance
func NewPostgresStorage(connStr string) (storage.Storage, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	s := &postgresStorage{db: db}
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Migrate runs database migrations
func (s *postgresStorage) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		generated_at TIMESTAMPTZ NOT NULL,
		total_repos_analyzed INTEGER NOT NULL,
		total_estimated_loc BIGINT NOT NULL,
		average_quality_score DOUBLE PRECISION NOT NULL,
		data JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_username_created ON snapshots(username, created_at DESC);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// SaveSnapshot saves a snapshot with its summary stored as JSONB
func (s *postgresStorage) SaveSnapshot(ctx context.Context, snapshot *domain.Snapshot) error {
	data, err := json.Marshal(snapshot.Summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	query := `
		INSERT INTO snapshots (id, username, generated_at, total_repos_analyzed, total_estimated_loc, average_quality_score, data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			generated_at = EXCLUDED.generated_at,
			total_repos_analyzed = EXCLUDED.total_repos_analyzed,
			total_estimated_loc = EXCLUDED.total_estimated_loc,
			average_quality_score = EXCLUDED.average_quality_score,
			data = EXCLUDED.data
	`
	_, err = s.db.ExecContext(ctx, query,
		snapshot.ID,
		storage.NormalizeUsername(snapshot.Username),
		snapshot.GeneratedAt,
		snapshot.TotalReposAnalyzed,
		snapshot.TotalEstimatedLOC,
		snapshot.AverageQualityScore,
		string(data),
		snapshot.CreatedAt,
	)
	return err
}

// GetSnapshots retrieves the snapshot history of an account
func (s *postgresStorage) GetSnapshots(ctx context.Context, username string, limit int) ([]*domain.Snapshot, error) {
	query := `
		SELECT id, username, generated_at, total_repos_analyzed, total_estimated_loc, average_quality_score, created_at
		FROM snapshots
		WHERE username = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
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
func (s *postgresStorage) GetLatestSnapshot(ctx context.Context, username string) (*domain.Snapshot, error) {
	query := `
		SELECT id, username, generated_at, total_repos_analyzed, total_estimated_loc, average_quality_score, data, created_at
		FROM snapshots
		WHERE username = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	var snap domain.Snapshot
	var data []byte
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
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("failed to unmarshal summary: %w", err)
	}
	snap.Summary = &summary

	return &snap, nil
}

// Close closes the database connection
func (s *postgresStorage) Close() error {
	return s.db.Close()
}
