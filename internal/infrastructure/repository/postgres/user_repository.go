package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kirillkom/knowledge-hub/internal/core/domain"
)

const uniqueViolationCode = "23505"

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	row := r.db.QueryRowContext(ctx, `
INSERT INTO users (username, password_hash)
VALUES ($1,$2)
RETURNING id
`, user.Username, user.PasswordHash)

	if err := row.Scan(&user.ID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return domain.WrapError(domain.ErrInvalidInput, "create user",
				fmt.Errorf("username %s already taken", user.Username))
		}
		return domain.WrapError(domain.ErrStorage, "create user", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, username, password_hash FROM users WHERE id = $1
`, id)
	return scanUser(row)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, username, password_hash FROM users WHERE username = $1
`, username)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(&user.ID, &user.Username, &user.PasswordHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrUserNotFound, "get user", err)
		}
		return nil, domain.WrapError(domain.ErrStorage, "scan user", err)
	}
	return &user, nil
}
