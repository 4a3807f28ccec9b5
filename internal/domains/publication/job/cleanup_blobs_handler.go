package job

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"marketplace-backend/internal/infrastructure/storage"
)

// CleanupBlobsHandler deletes blobs whose database rows are already gone.
type CleanupBlobsHandler struct {
	store storage.BlobStore
}

func NewCleanupBlobsHandler(store storage.BlobStore) *CleanupBlobsHandler {
	return &CleanupBlobsHandler{store: store}
}

// ProcessTask removes every named key, then the prefix when one is set. A
// missing blob is fine; the task may be retried after a partial failure.
func (h *CleanupBlobsHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload CleanupBlobsPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		log.Error().Err(err).Msg("Failed to unmarshal cleanup_blobs payload")
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	log.Info().
		Str("publication_id", payload.PublicationID).
		Int("keys", len(payload.StorageKeys)).
		Str("prefix", payload.Prefix).
		Msg("Cleaning up publication blobs")

	var failed int
	for _, key := range payload.StorageKeys {
		if err := h.store.Remove(ctx, key); err != nil {
			log.Error().
				Err(err).
				Str("publication_id", payload.PublicationID).
				Str("key", key).
				Msg("Failed to remove blob")
			failed++
		}
	}
	if payload.Prefix != "" {
		if err := h.store.RemovePrefix(ctx, payload.Prefix); err != nil {
			log.Error().
				Err(err).
				Str("publication_id", payload.PublicationID).
				Str("prefix", payload.Prefix).
				Msg("Failed to remove blob prefix")
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("cleanup_blobs: %d removals failed", failed)
	}
	return nil
}
