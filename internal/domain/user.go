package domain

import (
	"context"
	"time"
)

// UserSummary is the display projection of an identity referenced by an event.
// swagger:model UserSummary
type UserSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// TokenIssuer issues tokens (e.g. JWT) for a user. Only used for local development;
// production tokens come from the identity provider.
type TokenIssuer interface {
	Issue(userID, username string, expiry time.Duration) (string, error)
}

// TokenVerifier verifies a token and returns the authenticated user ID.
type TokenVerifier interface {
	Verify(token string) (userID string, err error)
}

// UserRepository stores the display names events resolve identities to.
// The identity provider owns these rows; this service only reads them, except
// for local development tokens.
type UserRepository interface {
	Upsert(ctx context.Context, user *UserSummary) error
	GetByID(ctx context.Context, id string) (*UserSummary, error)
}
