package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"marketplace-backend/internal/domains/publication/model"
	"marketplace-backend/internal/infrastructure/database"
)

type publicationRepository struct{}

func NewRepository() Repository {
	return &publicationRepository{}
}

func (r *publicationRepository) Insert(ctx context.Context, q database.Querier, p *model.Publication) error {
	query := `
        INSERT INTO publications (id, owner_id, title, description, price, state, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err := q.Exec(ctx, query,
		p.ID.String(),
		p.OwnerID.String(),
		p.Title,
		p.Description,
		p.Price.String(),
		p.State,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert publication: %w", err)
	}
	return nil
}

func (r *publicationRepository) GetByID(ctx context.Context, q database.Querier, id uuid.UUID) (*model.Publication, error) {
	query := `
        SELECT p.id, p.owner_id, p.title, p.description, p.price, p.state,
               p.created_at, p.updated_at,
               u.name AS owner_name, u.email AS owner_email
        FROM publications p
        INNER JOIN users u ON u.id = p.owner_id
        WHERE p.id = ?
    `
	rows, err := q.Query(ctx, query, id.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query publication: %w", err)
	}
	if len(rows) == 0 {
		return nil, model.ErrPublicationNotFound
	}

	row := rows[0]
	p := &model.Publication{
		ID:          database.AsUUID(row["id"]),
		OwnerID:     database.AsUUID(row["owner_id"]),
		Title:       database.AsString(row["title"]),
		Description: database.AsString(row["description"]),
		Price:       database.AsDecimal(row["price"]),
		State:       database.AsString(row["state"]),
		CreatedAt:   database.AsTime(row["created_at"]),
		UpdatedAt:   database.AsTime(row["updated_at"]),
		OwnerName:   database.AsString(row["owner_name"]),
		OwnerEmail:  database.AsString(row["owner_email"]),
	}
	return p, nil
}

// GetOwnerID loads just the owner for the ownership check that precedes every
// mutation.
func (r *publicationRepository) GetOwnerID(ctx context.Context, q database.Querier, id uuid.UUID) (uuid.UUID, error) {
	rows, err := q.Query(ctx, `SELECT owner_id FROM publications WHERE id = ?`, id.String())
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to query publication owner: %w", err)
	}
	if len(rows) == 0 {
		return uuid.Nil, model.ErrPublicationNotFound
	}
	return database.AsUUID(rows[0]["owner_id"]), nil
}

func (r *publicationRepository) UpdateFields(ctx context.Context, q database.Querier, id uuid.UUID, title, description string, price decimal.Decimal, now time.Time) error {
	query := `
        UPDATE publications
        SET title = ?, description = ?, price = ?, updated_at = ?
        WHERE id = ?
    `
	_, err := q.Exec(ctx, query, title, description, price.String(), now, id.String())
	if err != nil {
		return fmt.Errorf("failed to update publication: %w", err)
	}
	return nil
}

func (r *publicationRepository) UpdateState(ctx context.Context, q database.Querier, id uuid.UUID, state string, now time.Time) error {
	query := `UPDATE publications SET state = ?, updated_at = ? WHERE id = ?`
	_, err := q.Exec(ctx, query, state, now, id.String())
	if err != nil {
		return fmt.Errorf("failed to update publication state: %w", err)
	}
	return nil
}

// Delete removes the publication row; image rows go with it via the foreign
// key cascade.
func (r *publicationRepository) Delete(ctx context.Context, q database.Querier, id uuid.UUID) error {
	_, err := q.Exec(ctx, `DELETE FROM publications WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete publication: %w", err)
	}
	return nil
}

const summarySelect = `
    SELECT p.id, p.title, p.description, p.price, p.state, p.created_at,
           p.owner_id, u.name AS owner_name,
           (SELECT i.url FROM images i
            WHERE i.publication_id = p.id
            ORDER BY i.sort_order LIMIT 1) AS primary_image
    FROM publications p
    INNER JOIN users u ON u.id = p.owner_id
`

func (r *publicationRepository) ListActive(ctx context.Context, q database.Querier) ([]model.Summary, error) {
	rows, err := q.Query(ctx, summarySelect+` WHERE p.state = ? ORDER BY p.created_at DESC`, model.StateActive)
	if err != nil {
		return nil, fmt.Errorf("failed to list active publications: %w", err)
	}
	return scanSummaries(rows), nil
}

func (r *publicationRepository) ListByOwner(ctx context.Context, q database.Querier, ownerID uuid.UUID) ([]model.Summary, error) {
	rows, err := q.Query(ctx, summarySelect+` WHERE p.owner_id = ? ORDER BY p.created_at DESC`, ownerID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list publications by owner: %w", err)
	}
	return scanSummaries(rows), nil
}

func scanSummaries(rows []database.Row) []model.Summary {
	summaries := make([]model.Summary, 0, len(rows))
	for _, row := range rows {
		summaries = append(summaries, model.Summary{
			ID:           database.AsUUID(row["id"]),
			Title:        database.AsString(row["title"]),
			Description:  database.AsString(row["description"]),
			Price:        database.AsDecimal(row["price"]),
			State:        database.AsString(row["state"]),
			CreatedAt:    database.AsTime(row["created_at"]),
			OwnerID:      database.AsUUID(row["owner_id"]),
			OwnerName:    database.AsString(row["owner_name"]),
			PrimaryImage: database.AsString(row["primary_image"]),
		})
	}
	return summaries
}

func (r *publicationRepository) InsertImage(ctx context.Context, q database.Querier, img *model.Image) error {
	query := `
        INSERT INTO images (id, publication_id, url, storage_key, sort_order)
        VALUES (?, ?, ?, ?, ?)
    `
	_, err := q.Exec(ctx, query,
		img.ID.String(),
		img.PublicationID.String(),
		img.URL,
		img.StorageKey,
		img.Order,
	)
	if err != nil {
		return fmt.Errorf("failed to insert image: %w", err)
	}
	return nil
}

// DeleteImages removes the listed image ids, restricted to this publication.
// Ids belonging to other publications are silently ignored.
func (r *publicationRepository) DeleteImages(ctx context.Context, q database.Querier, publicationID uuid.UUID, ids []uuid.UUID) error {
	for _, id := range ids {
		_, err := q.Exec(ctx, `DELETE FROM images WHERE id = ? AND publication_id = ?`,
			id.String(), publicationID.String())
		if err != nil {
			return fmt.Errorf("failed to delete image: %w", err)
		}
	}
	return nil
}

func (r *publicationRepository) ImagesByPublication(ctx context.Context, q database.Querier, publicationID uuid.UUID) ([]model.Image, error) {
	query := `
        SELECT id, publication_id, url, storage_key, sort_order
        FROM images
        WHERE publication_id = ?
        ORDER BY sort_order
    `
	rows, err := q.Query(ctx, query, publicationID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query images: %w", err)
	}

	images := make([]model.Image, 0, len(rows))
	for _, row := range rows {
		images = append(images, model.Image{
			ID:            database.AsUUID(row["id"]),
			PublicationID: database.AsUUID(row["publication_id"]),
			URL:           database.AsString(row["url"]),
			StorageKey:    database.AsString(row["storage_key"]),
			Order:         database.AsInt(row["sort_order"]),
		})
	}
	return images, nil
}

// MaxImageOrder returns -1 when the publication has no images, so the next
// order is always max+1.
func (r *publicationRepository) MaxImageOrder(ctx context.Context, q database.Querier, publicationID uuid.UUID) (int, error) {
	rows, err := q.Query(ctx,
		`SELECT COALESCE(MAX(sort_order), -1) AS max_order FROM images WHERE publication_id = ?`,
		publicationID.String())
	if err != nil {
		return 0, fmt.Errorf("failed to query max image order: %w", err)
	}
	if len(rows) == 0 {
		return -1, nil
	}
	return database.AsInt(rows[0]["max_order"]), nil
}
