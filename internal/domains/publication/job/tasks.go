package job

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// TypeCleanupBlobs removes orphaned blobs after a publication mutation
// commits. Cleanup is deliberately asynchronous: the database transaction is
// the source of truth and blob removal only has to happen eventually.
const TypeCleanupBlobs = "publication:cleanup_blobs"

// CleanupBlobsPayload names what to remove: individual keys after an
// image-removing update, or the listing's whole storage prefix after a
// delete.
type CleanupBlobsPayload struct {
	PublicationID string   `json:"publication_id"`
	StorageKeys   []string `json:"storage_keys,omitempty"`
	Prefix        string   `json:"prefix,omitempty"`
}

func (p CleanupBlobsPayload) empty() bool {
	return len(p.StorageKeys) == 0 && p.Prefix == ""
}

func NewCleanupBlobsTask(payload CleanupBlobsPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal cleanup payload: %w", err)
	}
	return asynq.NewTask(TypeCleanupBlobs, data, asynq.MaxRetry(5)), nil
}

// Enqueuer schedules background work. The service layer only sees this
// interface so tests can capture enqueued tasks.
type Enqueuer interface {
	EnqueueBlobCleanup(ctx context.Context, payload CleanupBlobsPayload) error
}

// AsynqEnqueuer pushes tasks onto the Redis-backed asynq queue.
type AsynqEnqueuer struct {
	client *asynq.Client
}

func NewAsynqEnqueuer(client *asynq.Client) *AsynqEnqueuer {
	return &AsynqEnqueuer{client: client}
}

func (e *AsynqEnqueuer) EnqueueBlobCleanup(ctx context.Context, payload CleanupBlobsPayload) error {
	if payload.empty() {
		return nil
	}
	task, err := NewCleanupBlobsTask(payload)
	if err != nil {
		return err
	}
	if _, err := e.client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("enqueue blob cleanup: %w", err)
	}
	return nil
}
