package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"marketplace-backend/internal/domains/publication/job"
	"marketplace-backend/internal/domains/publication/model"
	"marketplace-backend/internal/domains/publication/repository"
	"marketplace-backend/internal/infrastructure/database"
	"marketplace-backend/internal/infrastructure/storage"
	"marketplace-backend/pkg/cache"
	"marketplace-backend/pkg/logger"
)

const (
	feedCacheKey = "publications:feed"
	feedCacheTTL = 60 * time.Second

	// processWorkers bounds concurrent image transcoding per request.
	processWorkers = 4
)

type PublicationService struct {
	db        database.DB
	repo      repository.Repository
	processor *storage.ImageProcessor
	store     storage.BlobStore
	cache     cache.Cache
	enqueuer  job.Enqueuer
}

func NewService(
	db database.DB,
	repo repository.Repository,
	processor *storage.ImageProcessor,
	store storage.BlobStore,
	cache cache.Cache,
	enqueuer job.Enqueuer,
) Service {
	return &PublicationService{
		db:        db,
		repo:      repo,
		processor: processor,
		store:     store,
		cache:     cache,
		enqueuer:  enqueuer,
	}
}

// Create validates the input, transcodes and stores every image, then writes
// the publication and image rows in one transaction. Image order follows the
// submission order of the uploads. On any failure nothing is persisted and
// already-stored blobs are discarded.
func (s *PublicationService) Create(ctx context.Context, ownerID uuid.UUID, in model.CreateInput) (*model.CreateResponse, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	processed, err := s.processUploads(ctx, in.Images)
	if err != nil {
		return nil, err
	}

	pubID := uuid.New()
	objects, err := s.storeBlobs(ctx, pubID, processed)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	p := &model.Publication{
		ID:          pubID,
		OwnerID:     ownerID,
		Title:       in.Title,
		Description: in.Description,
		Price:       in.Price,
		State:       model.StateActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.db.WithTx(ctx, func(q database.Querier) error {
		if err := s.repo.Insert(ctx, q, p); err != nil {
			return err
		}
		for i, obj := range objects {
			img := &model.Image{
				ID:            uuid.New(),
				PublicationID: pubID,
				URL:           obj.URL,
				StorageKey:    obj.Key,
				Order:         i,
			}
			if err := s.repo.InsertImage(ctx, q, img); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.discardBlobs(ctx, objects)
		return nil, fmt.Errorf("create publication: %w", err)
	}

	s.invalidateFeed(ctx)
	return &model.CreateResponse{ID: pubID}, nil
}

// Update edits title, description and price, removes the listed images and
// appends new ones. The gallery cap is enforced before any image is
// transcoded. Removed blobs are cleaned up asynchronously after commit.
func (s *PublicationService) Update(ctx context.Context, requesterID, id uuid.UUID, in model.UpdateInput) (*model.Publication, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkOwnership(ctx, requesterID, id); err != nil {
		return nil, err
	}

	existing, err := s.repo.ImagesByPublication(ctx, s.db, id)
	if err != nil {
		return nil, err
	}

	// Only ids actually belonging to this publication count as removals.
	removeSet := make(map[uuid.UUID]bool, len(in.RemoveImageIDs))
	for _, rid := range in.RemoveImageIDs {
		removeSet[rid] = true
	}
	var removeIDs []uuid.UUID
	var removeKeys []string
	for _, img := range existing {
		if removeSet[img.ID] {
			removeIDs = append(removeIDs, img.ID)
			removeKeys = append(removeKeys, img.StorageKey)
		}
	}

	if len(existing)-len(removeIDs)+len(in.Images) > model.MaxImages {
		return nil, model.ErrTooManyImages
	}

	processed, err := s.processUploads(ctx, in.Images)
	if err != nil {
		return nil, err
	}
	objects, err := s.storeBlobs(ctx, id, processed)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	err = s.db.WithTx(ctx, func(q database.Querier) error {
		if err := s.repo.UpdateFields(ctx, q, id, in.Title, in.Description, in.Price, now); err != nil {
			return err
		}
		if len(removeIDs) > 0 {
			if err := s.repo.DeleteImages(ctx, q, id, removeIDs); err != nil {
				return err
			}
		}
		if len(objects) > 0 {
			// New images slot in after the highest surviving order. Gaps
			// left by removals are preserved.
			maxOrder, err := s.repo.MaxImageOrder(ctx, q, id)
			if err != nil {
				return err
			}
			for i, obj := range objects {
				img := &model.Image{
					ID:            uuid.New(),
					PublicationID: id,
					URL:           obj.URL,
					StorageKey:    obj.Key,
					Order:         maxOrder + 1 + i,
				}
				if err := s.repo.InsertImage(ctx, q, img); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		s.discardBlobs(ctx, objects)
		return nil, fmt.Errorf("update publication: %w", err)
	}

	s.scheduleCleanup(ctx, job.CleanupBlobsPayload{
		PublicationID: id.String(),
		StorageKeys:   removeKeys,
	})
	s.invalidateFeed(ctx)
	return s.GetByID(ctx, id)
}

// Delete removes the publication and its image rows (the row delete cascades
// to images), then schedules cleanup of the listing's whole blob prefix.
func (s *PublicationService) Delete(ctx context.Context, requesterID, id uuid.UUID) error {
	if err := s.checkOwnership(ctx, requesterID, id); err != nil {
		return err
	}

	err := s.db.WithTx(ctx, func(q database.Querier) error {
		return s.repo.Delete(ctx, q, id)
	})
	if err != nil {
		return fmt.Errorf("delete publication: %w", err)
	}

	s.scheduleCleanup(ctx, job.CleanupBlobsPayload{
		PublicationID: id.String(),
		Prefix:        blobFolder(id),
	})
	s.invalidateFeed(ctx)
	return nil
}

// SetState transitions a publication to active, sold or inactive. Setting the
// current state again is allowed and still bumps updated_at.
func (s *PublicationService) SetState(ctx context.Context, requesterID, id uuid.UUID, state string) error {
	if !model.ValidState(state) {
		return model.ErrInvalidState
	}
	if err := s.checkOwnership(ctx, requesterID, id); err != nil {
		return err
	}

	if err := s.repo.UpdateState(ctx, s.db, id, state, time.Now().UTC()); err != nil {
		return fmt.Errorf("set publication state: %w", err)
	}

	s.invalidateFeed(ctx)
	return nil
}

func (s *PublicationService) GetByID(ctx context.Context, id uuid.UUID) (*model.Publication, error) {
	p, err := s.repo.GetByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	images, err := s.repo.ImagesByPublication(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	p.Images = images
	return p, nil
}

// ListActive returns the public feed of active publications, newest first,
// served from cache when fresh.
func (s *PublicationService) ListActive(ctx context.Context) ([]model.Summary, error) {
	var cached []model.Summary
	found, err := s.cache.Get(ctx, feedCacheKey, &cached)
	if err != nil {
		logger.Warn("feed cache read failed", map[string]interface{}{"error": err.Error()})
	} else if found {
		return cached, nil
	}

	summaries, err := s.repo.ListActive(ctx, s.db)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, feedCacheKey, summaries, feedCacheTTL); err != nil {
		logger.Warn("feed cache write failed", map[string]interface{}{"error": err.Error()})
	}
	return summaries, nil
}

func (s *PublicationService) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Summary, error) {
	return s.repo.ListByOwner(ctx, s.db, ownerID)
}

// checkOwnership returns ErrPublicationNotFound for a missing row and
// ErrForbidden when the requester is not the owner.
func (s *PublicationService) checkOwnership(ctx context.Context, requesterID, id uuid.UUID) error {
	ownerID, err := s.repo.GetOwnerID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if ownerID != requesterID {
		return model.ErrForbidden
	}
	return nil
}

// processUploads transcodes all uploads concurrently. Results keep the
// submission order regardless of which worker finished first; the first
// failure aborts the whole batch.
func (s *PublicationService) processUploads(ctx context.Context, uploads []model.ImageUpload) ([]*storage.ProcessedImage, error) {
	if len(uploads) == 0 {
		return nil, nil
	}

	processed := make([]*storage.ProcessedImage, len(uploads))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(processWorkers)
	for i, up := range uploads {
		g.Go(func() error {
			img, err := s.processor.Process(up.Data, up.Filename, up.ContentType)
			if err != nil {
				return fmt.Errorf("image %q: %w", up.Filename, err)
			}
			processed[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return processed, nil
}

// blobFolder is the storage prefix holding every image of one publication.
func blobFolder(pubID uuid.UUID) string {
	return "publications/" + pubID.String()
}

// storeBlobs writes processed images to the blob store, in order. If one
// write fails the earlier ones are discarded so no orphan survives the
// request.
func (s *PublicationService) storeBlobs(ctx context.Context, pubID uuid.UUID, processed []*storage.ProcessedImage) ([]*storage.Object, error) {
	folder := blobFolder(pubID)
	objects := make([]*storage.Object, 0, len(processed))
	for _, img := range processed {
		obj, err := s.store.Store(ctx, folder, img)
		if err != nil {
			s.discardBlobs(ctx, objects)
			return nil, err
		}
		objects = append(objects, obj)
	}
	return objects, nil
}

// discardBlobs is best effort. Anything it misses is orphaned blob data, not
// a correctness problem.
func (s *PublicationService) discardBlobs(ctx context.Context, objects []*storage.Object) {
	for _, obj := range objects {
		if err := s.store.Remove(ctx, obj.Key); err != nil {
			logger.Warn("failed to discard blob after rollback", map[string]interface{}{
				"key":   obj.Key,
				"error": err.Error(),
			})
		}
	}
}

func (s *PublicationService) scheduleCleanup(ctx context.Context, payload job.CleanupBlobsPayload) {
	if len(payload.StorageKeys) == 0 && payload.Prefix == "" {
		return
	}
	if err := s.enqueuer.EnqueueBlobCleanup(ctx, payload); err != nil {
		logger.Warn("failed to enqueue blob cleanup", map[string]interface{}{
			"publication_id": payload.PublicationID,
			"error":          err.Error(),
		})
	}
}

func (s *PublicationService) invalidateFeed(ctx context.Context) {
	if err := s.cache.Delete(ctx, feedCacheKey); err != nil {
		logger.Warn("feed cache invalidation failed", map[string]interface{}{"error": err.Error()})
	}
}
