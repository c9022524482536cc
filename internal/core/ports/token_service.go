package ports

import "time"

// TokenClaims is the identity embedded in a session token. Role is the role
// as of issuance: a promotion or demotion only takes effect when the holder
// re-authenticates.
type TokenClaims struct {
	UserID    string
	Username  string
	Role      string
	ExpiresAt time.Time
}

// TokenService issues and verifies signed session tokens. Verification is
// pure and stateless; it never consults the credential store.
type TokenService interface {
	Issue(userID, username, role string) (string, error)
	Verify(token string) (*TokenClaims, error)
}
