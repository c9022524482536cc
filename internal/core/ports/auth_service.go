package ports

import (
	"context"

	"github.com/rackcentre/incident-logger/internal/core/domain"
)

// AuthService implements registration, login, and profile maintenance.
type AuthService interface {
	Register(ctx context.Context, name, email, password string) (*domain.User, error)
	// Login returns a signed session token and the authenticated user. A
	// missing account and a wrong password both fail with
	// ErrInvalidCredentials; the two are never distinguished.
	Login(ctx context.Context, email, password string) (string, *domain.User, error)
	// UpdateProfilePic stores the image and swaps the caller's profile
	// picture reference. Only the owning user may change it.
	UpdateProfilePic(ctx context.Context, caller *domain.User, userID string, file Attachment) (*domain.User, error)
}
