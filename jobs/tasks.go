package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeOutboxDispatch drains pending outbox messages.
	TaskTypeOutboxDispatch = "ledger:outbox_dispatch"
	// TaskTypeGLIntegrity re-verifies the balance invariant per chain.
	TaskTypeGLIntegrity = "ledger:gl_integrity"
	// TaskTypeIdempotencyCleanup prunes expired idempotency keys.
	TaskTypeIdempotencyCleanup = "ledger:idempotency_cleanup"
)

// IdempotencyCleanupPayload carries the retention window.
type IdempotencyCleanupPayload struct {
	RetainHours int `json:"retainHours"`
}

// NewOutboxDispatchTask constructs the outbox drain task.
func NewOutboxDispatchTask() *asynq.Task {
	return asynq.NewTask(TaskTypeOutboxDispatch, nil)
}

// NewGLIntegrityTask constructs the balance re-check task.
func NewGLIntegrityTask() *asynq.Task {
	return asynq.NewTask(TaskTypeGLIntegrity, nil)
}

// NewIdempotencyCleanupTask constructs the key-pruning task.
func NewIdempotencyCleanupTask(retain time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(IdempotencyCleanupPayload{RetainHours: int(retain.Hours())})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeIdempotencyCleanup, data), nil
}
