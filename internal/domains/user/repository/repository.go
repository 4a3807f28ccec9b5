package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"marketplace-backend/internal/domains/user/model"
	"marketplace-backend/internal/infrastructure/database"
)

type Repository interface {
	Insert(ctx context.Context, q database.Querier, u *model.User) error
	GetByID(ctx context.Context, q database.Querier, id uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, q database.Querier, email string) (*model.User, error)
	ExistsByEmail(ctx context.Context, q database.Querier, email string) (bool, error)
}

type userRepository struct{}

func NewRepository() Repository {
	return &userRepository{}
}

func (r *userRepository) Insert(ctx context.Context, q database.Querier, u *model.User) error {
	query := `
        INSERT INTO users (id, name, email, password_hash, phone, department, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err := q.Exec(ctx, query,
		u.ID.String(),
		u.Name,
		u.Email,
		u.PasswordHash,
		u.Phone,
		u.Department,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

const userSelect = `
    SELECT id, name, email, password_hash, phone, department, created_at, updated_at
    FROM users
`

func (r *userRepository) GetByID(ctx context.Context, q database.Querier, id uuid.UUID) (*model.User, error) {
	rows, err := q.Query(ctx, userSelect+` WHERE id = ?`, id.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	if len(rows) == 0 {
		return nil, model.ErrUserNotFound
	}
	return scanUser(rows[0]), nil
}

func (r *userRepository) GetByEmail(ctx context.Context, q database.Querier, email string) (*model.User, error) {
	rows, err := q.Query(ctx, userSelect+` WHERE email = ?`, email)
	if err != nil {
		return nil, fmt.Errorf("failed to query user by email: %w", err)
	}
	if len(rows) == 0 {
		return nil, model.ErrUserNotFound
	}
	return scanUser(rows[0]), nil
}

func (r *userRepository) ExistsByEmail(ctx context.Context, q database.Querier, email string) (bool, error) {
	rows, err := q.Query(ctx, `SELECT 1 AS x FROM users WHERE email = ?`, email)
	if err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return len(rows) > 0, nil
}

func scanUser(row database.Row) *model.User {
	return &model.User{
		ID:           database.AsUUID(row["id"]),
		Name:         database.AsString(row["name"]),
		Email:        database.AsString(row["email"]),
		PasswordHash: database.AsString(row["password_hash"]),
		Phone:        database.AsString(row["phone"]),
		Department:   database.AsString(row["department"]),
		CreatedAt:    database.AsTime(row["created_at"]),
		UpdatedAt:    database.AsTime(row["updated_at"]),
	}
}
