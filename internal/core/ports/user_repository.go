package ports

import (
	"context"

	"github.com/rackcentre/incident-logger/internal/core/domain"
)

// UserRepository defines the interface for credential-store persistence.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	// UpdateProfilePic sets (or clears, with an empty key) the user's
	// profile picture reference.
	UpdateProfilePic(ctx context.Context, id, fileKey string) error
	// UpdateRole changes the user's role. Only the out-of-band promotion
	// tool calls this; no API surface reaches it.
	UpdateRole(ctx context.Context, id, role string) error
	ListByRole(ctx context.Context, role string) ([]*domain.User, error)
	CountByRole(ctx context.Context, role string) (int64, error)
}
