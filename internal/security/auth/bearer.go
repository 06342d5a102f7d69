// Package auth verifies the bearer credential carried by ingestion API
// requests. Authoritative authorization (users, roles, sessions) is outside
// this system's scope; this package only answers "does this request carry
// the configured shared secret".
package auth

import (
	"crypto/subtle"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier checks bearer tokens presented on ingestion requests.
type Verifier struct {
	// secret is the configured shared secret (POINTERD_AUTH_SHARED_SECRET). When empty,
	// Verify always succeeds, matching a deployment with auth disabled.
	secret []byte
	// jwtSecret, when set, causes Verify to additionally accept HS256 JWTs
	// signed with this key instead of a raw shared-secret match — used when
	// the scheduler and ingestion server want signed, expiring credentials
	// rather than a static key.
	jwtSecret []byte
}

// NewVerifier builds a Verifier from a static shared secret and an optional
// HMAC signing key for JWT-mode credentials.
func NewVerifier(sharedSecret, jwtSigningKey string) *Verifier {
	return &Verifier{
		secret:    []byte(sharedSecret),
		jwtSecret: []byte(jwtSigningKey),
	}
}

// Enabled reports whether any credential is configured.
func (v *Verifier) Enabled() bool {
	return len(v.secret) > 0 || len(v.jwtSecret) > 0
}

// ExtractBearer pulls the token out of an Authorization header value.
func ExtractBearer(header string) (string, error) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", fmt.Errorf("authorization header missing bearer prefix")
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if token == "" {
		return "", fmt.Errorf("empty bearer token")
	}
	return token, nil
}

// Verify checks the supplied bearer token against the configured
// credential. A Verifier with no credential configured accepts everything.
func (v *Verifier) Verify(token string) error {
	if !v.Enabled() {
		return nil
	}

	if len(v.secret) > 0 && constantTimeEqual([]byte(token), v.secret) {
		return nil
	}

	if len(v.jwtSecret) > 0 {
		if err := v.verifyJWT(token); err == nil {
			return nil
		}
	}

	return fmt.Errorf("invalid bearer token")
}

func (v *Verifier) verifyJWT(token string) error {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.jwtSecret, nil
	})
	if err != nil {
		return fmt.Errorf("parse jwt: %w", err)
	}
	if !parsed.Valid {
		return fmt.Errorf("jwt not valid")
	}
	return nil
}

func constantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}
