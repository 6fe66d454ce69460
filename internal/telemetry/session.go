package telemetry

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session describes the bearer credential attached to every request.
// The signature is not checked here; the backend does that.
type Session struct {
	Token     string
	Subject   string
	ExpiresAt time.Time
}

// ParseSession reads the subject and expiry claims of a bearer token.
// Tokens that are not JWTs are accepted as opaque credentials.
func ParseSession(token string) (Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Session{}, fmt.Errorf("%w: empty bearer token", ErrAuth)
	}
	session := Session{Token: token}
	if strings.Count(token, ".") != 2 {
		return session, nil
	}

	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Session{}, fmt.Errorf("%w: parse bearer token: %v", ErrAuth, err)
	}
	session.Subject = claims.Subject
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}
	return session, nil
}

// Expired reports whether the token carries an expiry that has passed.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
