package storage

import (
	"context"
	"strings"

	"github.com/kurihiro0119/github-repo-analyzer/internal/domain"
)

// DefaultHistoryLimit is used when a history query gives no positive limit
const DefaultHistoryLimit = 20

// Storage is the abstract interface for the persistence layer
type Storage interface {
	// SaveSnapshot persists a freshly computed account summary
	SaveSnapshot(ctx context.Context, snapshot *domain.Snapshot) error

	// GetSnapshots lists the snapshots of an account, newest first. The
	// returned records carry headline figures only; Summary is nil.
	GetSnapshots(ctx context.Context, username string, limit int) ([]*domain.Snapshot, error)

	// GetLatestSnapshot returns the newest snapshot of an account including
	// its full summary, or a not found error
	GetLatestSnapshot(ctx context.Context, username string) (*domain.Snapshot, error)

	// Migration
	Migrate(ctx context.Context) error

	// Connection management
	Close() error
}

// NormalizeUsername returns the form usernames are stored and queried in
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// HistoryLimit clamps a requested history size
func HistoryLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	return limit
}
