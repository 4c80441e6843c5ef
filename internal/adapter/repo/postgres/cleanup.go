package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// CleanupService deletes completed sessions past the retention window.
// Messages go with them through ON DELETE CASCADE.
type CleanupService struct {
	Pool          PgxPool
	RetentionDays int
	now           func() time.Time
}

// NewCleanupService creates a cleanup service. retentionDays <= 0 disables it.
func NewCleanupService(pool PgxPool, retentionDays int) *CleanupService {
	return &CleanupService{Pool: pool, RetentionDays: retentionDays, now: time.Now}
}

// Enabled reports whether a retention window is configured.
func (s *CleanupService) Enabled() bool { return s.RetentionDays > 0 }

// CleanupOldData removes completed sessions older than the retention period
// and returns how many were deleted.
func (s *CleanupService) CleanupOldData(ctx context.Context) (int64, error) {
	if !s.Enabled() {
		return 0, nil
	}
	ctx, span := startSpan(ctx, "repo.cleanup", "cleanup.CleanupOldData", "DELETE", "practice_sessions")
	defer span.End()
	cutoff := s.now().UTC().AddDate(0, 0, -s.RetentionDays)
	tag, err := s.Pool.Exec(ctx, `DELETE FROM practice_sessions WHERE stage = 'completed' AND completed_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("op=cleanup.delete: %w", err)
	}
	n := tag.RowsAffected()
	slog.Info("data cleanup completed", slog.Int64("deleted_sessions", n), slog.Time("cutoff", cutoff))
	return n, nil
}

// RunPeriodic runs cleanup immediately and then on every interval until ctx ends.
func (s *CleanupService) RunPeriodic(ctx context.Context, interval time.Duration) {
	if !s.Enabled() {
		return
	}
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if _, err := s.CleanupOldData(ctx); err != nil {
		slog.Error("initial cleanup failed", slog.Any("error", err))
	}
	for {
		select {
		case <-ctx.Done():
			slog.Info("cleanup service stopping")
			return
		case <-ticker.C:
			if _, err := s.CleanupOldData(ctx); err != nil {
				slog.Error("periodic cleanup failed", slog.Any("error", err))
			}
		}
	}
}
