package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"marketplace-backend/internal/domains/publication/model"
	"marketplace-backend/internal/infrastructure/database"
)

// Repository is the publication data-access contract. Every method takes the
// Querier it should run on, so the same code serves pool reads and
// transactional writes. All SQL goes through the dialect layer.
type Repository interface {
	Insert(ctx context.Context, q database.Querier, p *model.Publication) error
	GetByID(ctx context.Context, q database.Querier, id uuid.UUID) (*model.Publication, error)
	GetOwnerID(ctx context.Context, q database.Querier, id uuid.UUID) (uuid.UUID, error)
	UpdateFields(ctx context.Context, q database.Querier, id uuid.UUID, title, description string, price decimal.Decimal, now time.Time) error
	UpdateState(ctx context.Context, q database.Querier, id uuid.UUID, state string, now time.Time) error
	Delete(ctx context.Context, q database.Querier, id uuid.UUID) error

	ListActive(ctx context.Context, q database.Querier) ([]model.Summary, error)
	ListByOwner(ctx context.Context, q database.Querier, ownerID uuid.UUID) ([]model.Summary, error)

	InsertImage(ctx context.Context, q database.Querier, img *model.Image) error
	DeleteImages(ctx context.Context, q database.Querier, publicationID uuid.UUID, ids []uuid.UUID) error
	ImagesByPublication(ctx context.Context, q database.Querier, publicationID uuid.UUID) ([]model.Image, error)
	MaxImageOrder(ctx context.Context, q database.Querier, publicationID uuid.UUID) (int, error)
}
