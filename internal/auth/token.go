package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrWrongKind    = errors.New("token issued for another audience")
)

// Claims is the JWT payload for both cookie kinds.
type Claims struct {
	Kind  Kind   `json:"kind"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role,omitempty"`
	SID   string `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 tokens with a shared secret.
type Issuer struct {
	secret []byte
	now    func() time.Time
}

func NewIssuer(secret string) *Issuer {
	return &Issuer{secret: []byte(secret), now: time.Now}
}

// Issue signs a token for p that expires after ttl.
func (i *Issuer) Issue(p Principal, ttl time.Duration) (string, time.Time, error) {
	now := i.now()
	exp := now.Add(ttl)
	claims := Claims{
		Kind:  p.Kind,
		Email: p.Email,
		Name:  p.Name,
		Role:  p.Role,
		SID:   p.SessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			Audience:  jwt.ClaimStrings{string(p.Kind)},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := tok.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return s, exp, nil
}

// Parse verifies raw and returns its principal.  Tokens of another kind are
// rejected with ErrWrongKind so an admin cookie never authenticates a user
// route and vice versa.
func (i *Issuer) Parse(raw string, want Kind) (Principal, error) {
	var claims Claims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !tok.Valid {
		return Principal{}, ErrInvalidToken
	}
	if claims.Kind != want {
		return Principal{}, ErrWrongKind
	}
	if claims.Subject == "" {
		return Principal{}, ErrInvalidToken
	}
	return Principal{
		Kind:      claims.Kind,
		ID:        claims.Subject,
		Email:     claims.Email,
		Name:      claims.Name,
		Role:      claims.Role,
		SessionID: claims.SID,
	}, nil
}
