package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/meridian-his/meridian-his/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSnapshotRefresh periodically rebuilds the registry snapshot so
	// instances that missed a reload notification converge anyway.
	TaskSnapshotRefresh = "rbac:snapshot_refresh"
)

// Reloader rebuilds the in-memory registry snapshot from storage.
type Reloader interface {
	Reload(ctx context.Context) error
}

// NewSnapshotRefreshTask constructs the refresh task.
func NewSnapshotRefreshTask() *asynq.Task {
	return asynq.NewTask(TaskSnapshotRefresh, nil)
}

// NewSnapshotRefreshHandler returns the worker-side handler that reloads
// the snapshot.
func NewSnapshotRefreshHandler(reloader Reloader, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		if err := reloader.Reload(ctx); err != nil {
			logger.Warn("snapshot refresh", slog.Any("error", err))
			return err
		}
		return nil
	}
}

// Instrument wraps a task handler with run, failure and duration metrics.
func Instrument(metrics *jobmetrics.Metrics, job string, handler asynq.HandlerFunc) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track(job)
		return tracker.End(handler(ctx, t))
	}
}
