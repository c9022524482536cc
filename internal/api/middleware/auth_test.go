package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rackcentre/incident-logger/internal/core/domain"
	"github.com/rackcentre/incident-logger/internal/core/service"
)

type stubUserRepo struct {
	byID map[string]*domain.User
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	if u, ok := r.byID[id]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByEmail(context.Context, string) (*domain.User, error) {
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) Create(_ context.Context, u *domain.User) (*domain.User, error) {
	return u, nil
}

func (r *stubUserRepo) UpdateProfilePic(context.Context, string, string) error { return nil }
func (r *stubUserRepo) UpdateRole(context.Context, string, string) error      { return nil }
func (r *stubUserRepo) ListByRole(context.Context, string) ([]*domain.User, error) {
	return nil, nil
}
func (r *stubUserRepo) CountByRole(context.Context, string) (int64, error) { return 0, nil }

func newAuthContext(header string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/incidents", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func okHandler(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func TestAuth_ValidToken(t *testing.T) {
	tokens := service.NewTokenService("secret", time.Hour)
	users := &stubUserRepo{byID: map[string]*domain.User{
		"user-1": {ID: "user-1", Name: "Carla", Role: domain.RoleUser, PasswordHash: "digest"},
	}}

	token, err := tokens.Issue("user-1", "Carla", domain.RoleUser)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	c, rec := newAuthContext("Bearer " + token)
	if err := Auth(tokens, users)(okHandler)(c); err != nil {
		t.Fatalf("middleware rejected a valid token: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}

	user, ok := c.Get(UserContextKey).(*domain.User)
	if !ok || user.ID != "user-1" {
		t.Fatalf("user not stored in context: %#v", c.Get(UserContextKey))
	}
	if user.PasswordHash != "" {
		t.Error("password digest must be stripped before the context")
	}
}

func TestAuth_Rejections(t *testing.T) {
	tokens := service.NewTokenService("secret", time.Hour)
	users := &stubUserRepo{byID: map[string]*domain.User{}}

	validForDeleted, err := tokens.Issue("user-gone", "Ghost", domain.RoleUser)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	otherSecret, err := service.NewTokenService("other", time.Hour).Issue("user-1", "Carla", domain.RoleUser)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic dXNlcjpwYXNz"},
		{"garbage token", "Bearer not-a-jwt"},
		{"wrong signature", "Bearer " + otherSecret},
		{"deleted account", "Bearer " + validForDeleted},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := newAuthContext(tc.header)
			err := Auth(tokens, users)(okHandler)(c)

			httpErr, ok := err.(*echo.HTTPError)
			if !ok {
				t.Fatalf("expected *echo.HTTPError, got %v", err)
			}
			if httpErr.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", httpErr.Code)
			}
		})
	}
}

func TestAuth_BearerSchemeIsCaseInsensitive(t *testing.T) {
	tokens := service.NewTokenService("secret", time.Hour)
	users := &stubUserRepo{byID: map[string]*domain.User{
		"user-1": {ID: "user-1", Role: domain.RoleUser},
	}}

	token, err := tokens.Issue("user-1", "Carla", domain.RoleUser)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	c, rec := newAuthContext("bearer " + token)
	if err := Auth(tokens, users)(okHandler)(c); err != nil {
		t.Fatalf("lowercase scheme rejected: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}
