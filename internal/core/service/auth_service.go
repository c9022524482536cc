package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/rackcentre/incident-logger/internal/core/domain"
	"github.com/rackcentre/incident-logger/internal/core/ports"
)

const minPasswordLength = 6

var emailPattern = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,3})+$`)

// AuthService implements registration, login, and profile maintenance.
type AuthService struct {
	users  ports.UserRepository
	tokens ports.TokenService
	files  ports.FileStore
	logger zerolog.Logger
}

func NewAuthService(users ports.UserRepository, tokens ports.TokenService, files ports.FileStore, logger zerolog.Logger) *AuthService {
	return &AuthService{users: users, tokens: tokens, files: files, logger: logger}
}

func (s *AuthService) Register(ctx context.Context, name, email, password string) (*domain.User, error) {
	if name == "" {
		return nil, domain.NewValidationError("name", "is required")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, domain.NewValidationError("email", "is required")
	}
	if !emailPattern.MatchString(email) {
		return nil, domain.NewValidationError("email", "is not a valid address")
	}
	if password == "" {
		return nil, domain.NewValidationError("password", "is required")
	}
	if len(password) < minPasswordLength {
		return nil, domain.NewValidationError("password", "must be at least 6 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         domain.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", created.ID).Str("email", created.Email).Msg("user registered")
	return created, nil
}

// Login authenticates by email and password. An unknown email and a wrong
// password both return ErrInvalidCredentials so the response never reveals
// which accounts exist.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	if email == "" || password == "" {
		return "", nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return "", nil, domain.ErrInvalidCredentials
		}
		return "", nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", nil, domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID, user.Name, user.Role)
	if err != nil {
		return "", nil, err
	}

	user.PasswordHash = ""
	return token, user, nil
}

// UpdateProfilePic stores the new image first, commits the reference, then
// best-effort deletes the previous image so the record never points at a
// missing object.
func (s *AuthService) UpdateProfilePic(ctx context.Context, caller *domain.User, userID string, file ports.Attachment) (*domain.User, error) {
	if caller.ID != userID {
		return nil, domain.ErrForbidden
	}
	if len(file.Data) == 0 {
		return nil, domain.NewValidationError("profile_pic", "is required")
	}

	key, err := s.files.Put(ctx, file.Data, file.Name)
	if err != nil {
		return nil, &domain.StorageError{Op: "put", Err: err}
	}

	if err := s.users.UpdateProfilePic(ctx, userID, key); err != nil {
		s.cleanupFile(ctx, key)
		return nil, err
	}

	if caller.ProfilePic != "" {
		s.cleanupFile(ctx, caller.ProfilePic)
	}

	updated, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	updated.PasswordHash = ""
	return updated, nil
}

func (s *AuthService) cleanupFile(ctx context.Context, key string) {
	if err := s.files.Delete(ctx, key); err != nil {
		s.logger.Warn().Err(err).Str("file", key).Msg("profile picture cleanup failed")
	}
}
