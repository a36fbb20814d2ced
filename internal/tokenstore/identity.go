package tokenstore

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrOpaqueToken means the token is not a JWT; it is still stored and sent.
var ErrOpaqueToken = errors.New("token is opaque")

// Identity is what a JWT says about its holder. The signature is NOT
// verified: this is for display only, never for authorization.
type Identity struct {
	Subject   string
	Email     string
	ExpiresAt time.Time
}

func Describe(token string) (Identity, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrOpaqueToken, err)
	}

	var id Identity
	id.Subject, _ = claims.GetSubject()
	if email, ok := claims["email"].(string); ok {
		id.Email = email
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		id.ExpiresAt = exp.Time
	}
	return id, nil
}

// Name is the best human-readable label for the identity.
func (id Identity) Name() string {
	if id.Email != "" {
		return id.Email
	}
	return id.Subject
}
