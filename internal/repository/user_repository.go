package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/locvowork/tasktracker/internal/database"
	"github.com/locvowork/tasktracker/internal/domain"
)

const userColumns = "id, email, username, hashed_password, created_at"

type userRepository struct {
	db *database.DB
}

func NewUserRepository(db *database.DB) domain.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user domain.User) (domain.User, error) {
	query := r.db.Rebind(`INSERT INTO users (email, username, hashed_password, created_at)
		VALUES (?, ?, ?, ?) RETURNING id`)
	user.CreatedAt = user.CreatedAt.UTC()
	err := r.db.QueryRowContext(ctx, query, user.Email, user.Username, user.PasswordHash, user.CreatedAt).Scan(&user.ID)
	if err != nil {
		if column, ok := database.UniqueViolation(err); ok {
			if column == "username" {
				return domain.User{}, domain.ErrUsernameTaken
			}
			return domain.User{}, domain.ErrEmailTaken
		}
		return domain.User{}, domain.Internal("insert user", err)
	}
	return user, nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (domain.User, error) {
	return r.getOne(ctx, "id = ?", id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.getOne(ctx, "email = ?", email)
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	return r.getOne(ctx, "username = ?", username)
}

func (r *userRepository) getOne(ctx context.Context, where string, arg interface{}) (domain.User, error) {
	query := r.db.Rebind("SELECT " + userColumns + " FROM users WHERE " + where)
	var u domain.User
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, domain.Internal("select user", err)
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}
