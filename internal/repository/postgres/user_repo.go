package postgres

import (
	"context"
	"database/sql"
	"errors"

	"eventboard/internal/domain"
)

type userRepository struct {
	DB *sql.DB
}

func NewUserRepository(db *sql.DB) domain.UserRepository {
	return &userRepository{DB: db}
}

// Upsert records the display name for an identity so events can resolve it.
func (r *userRepository) Upsert(ctx context.Context, u *domain.UserSummary) error {
	query := `
		INSERT INTO users (id, username)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET username = EXCLUDED.username
	`
	_, err := r.DB.ExecContext(ctx, query, u.ID, u.Username)
	return err
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.UserSummary, error) {
	query := `
		SELECT id, username
		FROM users
		WHERE id = $1
	`
	u := &domain.UserSummary{}
	err := r.DB.QueryRowContext(ctx, query, id).Scan(&u.ID, &u.Username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return u, nil
}
