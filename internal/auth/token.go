package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims are the session claims carried by an issued token. Only subject
// and company code are trusted downstream; everything else is re-read live.
type Claims struct {
	Subject  string
	EmpID    string
	CompCode string
	RoleName string
	FullName string
	JTI      string
	Expires  time.Time
}

// TokenIssuer signs and verifies HS256 session tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenIssuer constructs a TokenIssuer.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl}
}

// TTL exposes the configured token lifetime.
func (t *TokenIssuer) TTL() time.Duration {
	return t.ttl
}

// Issue signs a token for the authenticated identity.
func (t *TokenIssuer) Issue(ident *Identity, roleName string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":       ident.ID,
		"emp_id":    ident.EmpID,
		"comp_code": ident.CompCode,
		"role_name": roleName,
		"fullname":  ident.FullName,
		"jti":       uuid.NewString(),
		"iat":       now.Unix(),
		"exp":       now.Add(t.ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Verify parses and validates a token, returning its claims. Signature and
// expiry failures map to the auth sentinel errors; missing subject or
// company claims are malformed.
func (t *TokenIssuer) Verify(raw string) (*Claims, error) {
	token, err := jwt.Parse(raw, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", tok.Method.Alg())
		}
		return t.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	mapped, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	claims := &Claims{
		Subject:  stringClaim(mapped, "sub"),
		EmpID:    stringClaim(mapped, "emp_id"),
		CompCode: stringClaim(mapped, "comp_code"),
		RoleName: stringClaim(mapped, "role_name"),
		FullName: stringClaim(mapped, "fullname"),
		JTI:      stringClaim(mapped, "jti"),
	}
	if exp, err := mapped.GetExpirationTime(); err == nil && exp != nil {
		claims.Expires = exp.Time
	}
	if claims.Subject == "" || claims.CompCode == "" {
		return nil, ErrMalformedToken
	}
	return claims, nil
}

func stringClaim(claims jwt.MapClaims, key string) string {
	v, _ := claims[key].(string)
	return v
}
