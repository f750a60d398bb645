package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/couchcryptid/match-forecast-service/internal/auth"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// CreateUser inserts a user. A duplicate email returns auth.ErrEmailTaken.
func (s *Store) CreateUser(ctx context.Context, email, hashedPassword string) (auth.User, error) {
	u := auth.User{Email: email, HashedPassword: hashedPassword}
	err := s.pool.QueryRow(ctx, `
	INSERT INTO users (email, hashed_password)
	VALUES ($1, $2)
	RETURNING id, created_at;
	`, email, hashedPassword).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return auth.User{}, auth.ErrEmailTaken
		}
		return auth.User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

// GetUserByEmail returns auth.ErrUserNotFound when no row matches.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (auth.User, error) {
	var u auth.User
	err := s.pool.QueryRow(ctx, `
	SELECT id, email, hashed_password, created_at
	FROM users
	WHERE email = $1;
	`, email).Scan(&u.ID, &u.Email, &u.HashedPassword, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return auth.User{}, auth.ErrUserNotFound
	}
	if err != nil {
		return auth.User{}, fmt.Errorf("select user: %w", err)
	}
	return u, nil
}
