package adapter

import "context"

// Identity is the authenticated caller as reported by the auth platform.
type Identity struct {
	UserID        string
	Email         string
	EmailVerified bool
}

// TokenVerifier validates a bearer access token issued by the auth platform
// and returns the identity it encodes. Invalid, expired, or malformed tokens
// map to domain.ErrUnauthorized.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}
