package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"dashgg/internal/user"
)

const (
	uniqueViolation   = "23505"
	panelUserIDUnique = "users_panel_user_id_key"
)

const selectUser = `SELECT id, email, password, panel_user_id, is_admin, created_at FROM users`

type PostgresUserRepository struct {
	DB *sqlx.DB
}

func NewPostgresUserRepository(db *sqlx.DB) *PostgresUserRepository {
	return &PostgresUserRepository{DB: db}
}

func (r *PostgresUserRepository) Create(ctx context.Context, u *user.User) error {
	query := `INSERT INTO users (email, password, panel_user_id, created_at) VALUES ($1, $2, $3, NOW()) RETURNING id, created_at`

	err := r.DB.QueryRowxContext(ctx, query, u.Email, u.Password, u.PanelUserID).Scan(&u.ID, &u.CreatedAt)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		if pqErr.Constraint == panelUserIDUnique {
			return user.ErrPanelUserTaken
		}
		return user.ErrEmailTaken
	}
	return err
}

func (r *PostgresUserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.get(ctx, selectUser+` WHERE email = $1`, email)
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	return r.get(ctx, selectUser+` WHERE id = $1`, id)
}

func (r *PostgresUserRepository) GetByPanelUserID(ctx context.Context, panelUserID int64) (*user.User, error) {
	return r.get(ctx, selectUser+` WHERE panel_user_id = $1`, panelUserID)
}

func (r *PostgresUserRepository) get(ctx context.Context, query string, arg interface{}) (*user.User, error) {
	u := &user.User{}
	if err := r.DB.GetContext(ctx, u, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, err
	}
	return u, nil
}
