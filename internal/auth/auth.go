package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Identity is an authenticated caller.
type Identity struct {
	UserID uuid.UUID
}

// ErrorKind tells callers why a credential was rejected.
type ErrorKind string

const (
	KindExpired        ErrorKind = "expired"
	KindMalformed      ErrorKind = "malformed"
	KindMissingSubject ErrorKind = "missing-subject"
)

type Error struct {
	Kind ErrorKind
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid token: %s", e.Kind)
}

// Decoder validates HS256 bearer tokens carrying a "userId" claim.
type Decoder struct {
	secret []byte
}

func NewDecoder(secret string) *Decoder {
	return &Decoder{secret: []byte(secret)}
}

// Decode returns the identity carried by token, or an *Error variant.
// Callers branch on the kind rather than on message text.
func (d *Decoder) Decode(token string) (Identity, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return d.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, &Error{Kind: KindExpired}
		}
		return Identity{}, &Error{Kind: KindMalformed}
	}

	sub, _ := claims["userId"].(string)
	if sub == "" {
		return Identity{}, &Error{Kind: KindMissingSubject}
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return Identity{}, &Error{Kind: KindMissingSubject}
	}
	return Identity{UserID: userID}, nil
}
