package backend

import (
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// TokenExpiry reads the exp claim of a JWT access token without verifying
// the signature; the backend verifies it on every request. ok is false for
// opaque tokens and tokens without exp.
func TokenExpiry(token string) (exp time.Time, ok bool) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// checkToken fails fast for missing or expired tokens so the caller can
// prompt for re-authentication instead of seeing a generic 401.
func (c *Client) checkToken(token string) error {
	if token == "" {
		return ErrMissingToken
	}
	if exp, ok := TokenExpiry(token); ok && !c.now().Before(exp) {
		return ErrSessionExpired
	}
	return nil
}
