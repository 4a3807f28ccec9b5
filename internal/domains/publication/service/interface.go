package service

import (
	"context"

	"github.com/google/uuid"

	"marketplace-backend/internal/domains/publication/model"
)

// Service orchestrates publication mutations: validation and ownership checks
// run before any write, all row changes happen inside one transaction, and
// blob cleanup is deferred until after commit.
type Service interface {
	Create(ctx context.Context, ownerID uuid.UUID, in model.CreateInput) (*model.CreateResponse, error)
	Update(ctx context.Context, requesterID, id uuid.UUID, in model.UpdateInput) (*model.Publication, error)
	Delete(ctx context.Context, requesterID, id uuid.UUID) error
	SetState(ctx context.Context, requesterID, id uuid.UUID, state string) error

	GetByID(ctx context.Context, id uuid.UUID) (*model.Publication, error)
	ListActive(ctx context.Context) ([]model.Summary, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Summary, error)
}
