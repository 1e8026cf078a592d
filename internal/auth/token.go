package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMissingToken means the request carried no bearer token.
	ErrMissingToken = errors.New("missing bearer token")
	// ErrInvalidToken covers bad signatures, expiry, wrong algorithm and
	// malformed claims.
	ErrInvalidToken = errors.New("invalid token")
)

// Identity is the authenticated caller decoded from a session token.
type Identity struct {
	UserID   int64
	Username string
}

type claims struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Issuer mints and verifies HS256 session tokens. Tokens are self-contained;
// nothing is stored server side and they cannot be revoked before expiry.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer returns an Issuer signing with secret. Tokens expire ttl after
// issuance.
func NewIssuer(secret []byte, ttl time.Duration) *Issuer {
	return &Issuer{secret: secret, ttl: ttl, now: time.Now}
}

// WithClock returns a copy of the issuer that reads time from now. Tests use
// it to move past expiry.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	cp := *i
	cp.now = now
	return &cp
}

// Issue signs a token for the given user and returns it with its expiry.
func (i *Issuer) Issue(id Identity) (string, time.Time, error) {
	if len(i.secret) == 0 {
		return "", time.Time{}, errors.New("jwt secret is empty")
	}
	issuedAt := i.now()
	expiresAt := issuedAt.Add(i.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		UserID:   id.UserID,
		Username: id.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(id.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify checks the signature and expiry of tokenStr and returns the identity
// it carries. Every failure wraps ErrInvalidToken.
func (i *Issuer) Verify(tokenStr string) (Identity, error) {
	if len(i.secret) == 0 {
		return Identity{}, fmt.Errorf("%w: jwt secret is empty", ErrInvalidToken)
	}
	parsed, err := jwt.ParseWithClaims(tokenStr, &claims{}, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid || c.UserID <= 0 || c.Username == "" {
		return Identity{}, fmt.Errorf("%w: invalid claims", ErrInvalidToken)
	}
	return Identity{UserID: c.UserID, Username: c.Username}, nil
}
