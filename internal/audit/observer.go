package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/meridian-his/meridian-his/internal/rbac"
)

// TaskDecisionAudit is the queue task type carrying one verdict.
const TaskDecisionAudit = "audit:decision"

// NewDecisionTask wraps a verdict into a queue task.
func NewDecisionTask(rec DecisionRecord) (*asynq.Task, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDecisionAudit, data), nil
}

// NewDecisionTaskHandler returns the worker-side handler that writes a
// queued verdict into the trail. Malformed payloads are dropped, not
// retried.
func NewDecisionTaskHandler(repo Repository, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var rec DecisionRecord
		if err := json.Unmarshal(t.Payload(), &rec); err != nil {
			logger.Warn("decision audit payload", slog.Any("error", err))
			return asynq.SkipRetry
		}
		return repo.Insert(ctx, rec)
	}
}

// Enqueuer submits tasks to the queue. *asynq.Client satisfies it.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Recorder observes verdicts at the enforcement point and ships them to
// the queue. Enqueue failures are logged and swallowed so a broker outage
// never blocks or fails an authorized request.
type Recorder struct {
	enqueuer Enqueuer
	logger   *slog.Logger
	queue    string
}

// NewRecorder constructs a Recorder publishing to the given queue.
func NewRecorder(enqueuer Enqueuer, logger *slog.Logger, queue string) *Recorder {
	return &Recorder{enqueuer: enqueuer, logger: logger, queue: queue}
}

// ObserveDecision implements the enforcement point observer hook.
func (r *Recorder) ObserveDecision(ctx context.Context, principal rbac.Principal, resource string, action rbac.Action, decision rbac.Decision) {
	rec := DecisionRecord{
		PrincipalID: principal.ID,
		Resource:    resource,
		Action:      string(action),
		Allowed:     decision.Allowed,
		Reason:      string(decision.Reason),
		At:          time.Now().UTC(),
	}
	task, err := NewDecisionTask(rec)
	if err != nil {
		r.logger.Warn("decision audit marshal", slog.Any("error", err))
		return
	}
	if _, err := r.enqueuer.EnqueueContext(ctx, task, asynq.Queue(r.queue)); err != nil {
		r.logger.Warn("decision audit enqueue", slog.Any("error", err))
	}
}

var _ rbac.DecisionObserver = (*Recorder)(nil)
