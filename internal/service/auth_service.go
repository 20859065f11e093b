package service

import (
	"context"
	"errors"
	"net/mail"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/locvowork/tasktracker/internal/domain"
	"github.com/locvowork/tasktracker/internal/logger"
	"github.com/locvowork/tasktracker/internal/security"
)

// msgBadCredentials is shared by the unknown-email and wrong-password paths
// so callers cannot tell which emails are registered.
const msgBadCredentials = "incorrect email or password"

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.\-]{3,32}$`)

type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}

type TokenService interface {
	Issue(subject string, ttl time.Duration) (string, time.Time, error)
	Validate(token string) (string, error)
}

type AuthService interface {
	Register(ctx context.Context, in domain.RegisterInput) (domain.User, error)
	Login(ctx context.Context, in domain.LoginInput) (domain.AccessToken, error)
	ResolveCurrentUser(ctx context.Context, token string) (domain.User, error)
}

type authService struct {
	users    domain.UserRepository
	hasher   PasswordHasher
	tokens   TokenService
	tokenTTL time.Duration
	now      func() time.Time

	dummyOnce   sync.Once
	dummyDigest string
}

func NewAuthService(users domain.UserRepository, hasher PasswordHasher, tokens TokenService, tokenTTL time.Duration) AuthService {
	return &authService{
		users:    users,
		hasher:   hasher,
		tokens:   tokens,
		tokenTTL: tokenTTL,
		now:      time.Now,
	}
}

func (s *authService) Register(ctx context.Context, in domain.RegisterInput) (domain.User, error) {
	in, err := normalizeRegisterInput(in)
	if err != nil {
		return domain.User{}, err
	}

	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return domain.User{}, domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, err
	}
	if _, err := s.users.GetByUsername(ctx, in.Username); err == nil {
		return domain.User{}, domain.ErrUsernameTaken
	} else if !errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, err
	}

	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		if errors.Is(err, security.ErrPasswordTooLong) {
			return domain.User{}, domain.Validation("password must be at most %d bytes", security.MaxPasswordBytes)
		}
		return domain.User{}, domain.Internal("hash password", err)
	}

	user, err := s.users.Create(ctx, domain.User{
		Email:        in.Email,
		Username:     in.Username,
		PasswordHash: digest,
		CreatedAt:    s.now().UTC(),
	})
	if err != nil {
		return domain.User{}, err
	}
	logger.InfoLog(ctx, "registered user %d", user.ID)
	return user, nil
}

func (s *authService) Login(ctx context.Context, in domain.LoginInput) (domain.AccessToken, error) {
	email := normalizeEmail(in.Email)
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return domain.AccessToken{}, err
		}
		// Burn a comparable amount of time so response latency does not
		// reveal whether the email exists.
		s.hasher.Verify(in.Password, s.dummy())
		return domain.AccessToken{}, domain.Unauthenticated(msgBadCredentials)
	}
	if !s.hasher.Verify(in.Password, user.PasswordHash) {
		return domain.AccessToken{}, domain.Unauthenticated(msgBadCredentials)
	}

	token, expiresAt, err := s.tokens.Issue(user.Email, s.tokenTTL)
	if err != nil {
		return domain.AccessToken{}, domain.Internal("issue token", err)
	}
	return domain.AccessToken{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   expiresAt.UTC(),
	}, nil
}

func (s *authService) ResolveCurrentUser(ctx context.Context, token string) (domain.User, error) {
	email, err := s.tokens.Validate(token)
	if err != nil {
		return domain.User{}, domain.Unauthenticated("could not validate credentials")
	}
	return s.users.GetByEmail(ctx, email)
}

func (s *authService) dummy() string {
	s.dummyOnce.Do(func() {
		digest, err := s.hasher.Hash("timing-equalizer")
		if err == nil {
			s.dummyDigest = digest
		}
	})
	return s.dummyDigest
}

func normalizeRegisterInput(in domain.RegisterInput) (domain.RegisterInput, error) {
	in.Email = normalizeEmail(in.Email)
	in.Username = strings.TrimSpace(in.Username)

	if in.Email == "" {
		return in, domain.Validation("email is required")
	}
	addr, err := mail.ParseAddress(in.Email)
	if err != nil || addr.Address != in.Email {
		return in, domain.Validation("email is not a valid address")
	}
	if !usernamePattern.MatchString(in.Username) {
		return in, domain.Validation("username must be 3-32 letters, digits, dot, dash, or underscore characters")
	}
	if in.Password == "" {
		return in, domain.Validation("password is required")
	}
	if len(in.Password) > security.MaxPasswordBytes {
		return in, domain.Validation("password must be at most %d bytes", security.MaxPasswordBytes)
	}
	return in, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
