// Package identity verifies caller credentials before a turn is built.
package identity

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrUnauthenticated covers every credential that does not yield a user id.
var ErrUnauthenticated = errors.New("unauthenticated")

// Identity is a verified caller.
type Identity struct {
	UserID string
	Roles  []string
}

// HasRole reports whether the caller carries role.
func (i Identity) HasRole(role string) bool {
	for _, r := range i.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// claims shadows the registered "sub" so numeric subjects decode too.
type claims struct {
	Subject any      `json:"sub,omitempty"`
	Roles   []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

func (c *claims) userID() string {
	switch v := c.Subject.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		if v == math.Trunc(v) && v > 0 {
			return strconv.FormatInt(int64(v), 10)
		}
	}
	return ""
}

// Verifier checks HMAC-signed JWTs.
type Verifier struct {
	secret []byte
	method jwt.SigningMethod
}

// NewVerifier creates a verifier for one HMAC algorithm (HS256, HS384, HS512).
func NewVerifier(secret, algorithm string) (*Verifier, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	method := jwt.GetSigningMethod(algorithm)
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unsupported jwt algorithm %q", algorithm)
	}
	return &Verifier{secret: []byte(secret), method: method}, nil
}

// Verify parses token and returns the caller it identifies.
func (v *Verifier) Verify(token string) (Identity, error) {
	if token == "" {
		return Identity{}, fmt.Errorf("%w: missing token", ErrUnauthenticated)
	}

	parsed, err := jwt.ParseWithClaims(token, &claims{},
		func(token *jwt.Token) (any, error) {
			return v.secret, nil
		},
		jwt.WithValidMethods([]string{v.method.Alg()}),
	)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid {
		return Identity{}, fmt.Errorf("%w: invalid claims", ErrUnauthenticated)
	}
	userID := c.userID()
	if userID == "" {
		return Identity{}, fmt.Errorf("%w: token has no usable subject", ErrUnauthenticated)
	}

	return Identity{UserID: userID, Roles: c.Roles}, nil
}

// Sign issues a token for userID. It backs tests and local tooling.
func (v *Verifier) Sign(userID string, roles ...string) (string, error) {
	c := &claims{Subject: userID, Roles: roles}
	return jwt.NewWithClaims(v.method, c).SignedString(v.secret)
}
