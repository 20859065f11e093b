package domain

import (
	"context"
	"time"
)

// User is the persisted identity. PasswordHash never leaves the service layer.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// AccessToken is the login result. It is never persisted.
type AccessToken struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type RegisterInput struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

var (
	ErrEmailTaken    = Duplicate("email already registered")
	ErrUsernameTaken = Duplicate("username already taken")
	ErrUserNotFound  = NotFound("user not found")
)

type UserRepository interface {
	// Create inserts the user and returns it with ID and CreatedAt set.
	// Unique collisions come back as Duplicate errors naming the field.
	Create(ctx context.Context, user User) (User, error)
	GetByID(ctx context.Context, id int64) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByUsername(ctx context.Context, username string) (User, error)
}
