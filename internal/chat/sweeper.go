package chat

import (
	"context"
	"log/slog"
	"time"

	"github.com/yuh2k/FAQ-system/internal/store"
)

// RunSessionSweeper periodically deletes sessions idle for longer than ttl,
// until ctx is done. Tickets are never swept.
func RunSessionSweeper(ctx context.Context, repo store.Repository, ttl, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	slog.Info("Session sweeper started", "interval", interval, "ttl", ttl)

	for {
		select {
		case <-ticker.C:
			sweepExpiredSessions(ctx, repo, ttl)
		case <-ctx.Done():
			slog.Info("Session sweeper shutting down", "reason", ctx.Err())
			return nil
		}
	}
}

func sweepExpiredSessions(ctx context.Context, repo store.Repository, ttl time.Duration) {
	deleted, err := repo.CleanupExpiredSessions(ctx, ttl)
	if err != nil {
		if ctx.Err() != nil {
			slog.Debug("Session sweep canceled", "error", err)
			return
		}
		slog.Error("Session sweeper failed to clean up expired sessions", "error", err)
		return
	}
	if deleted > 0 {
		slog.Info("Session sweeper removed expired sessions", "count", deleted)
	}
}
