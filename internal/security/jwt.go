package security

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tazhibayda/event-service/internal/apperr"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const DefaultTokenTTL = 24 * time.Hour

type Claims struct {
	UID string `json:"_id"`
	jwt.RegisteredClaims
}

// TokenStore records every issued token on the owning user.
type TokenStore interface {
	AppendToken(ctx context.Context, userID primitive.ObjectID, token string) error
}

// TokenService issues and verifies RS256 session tokens.
type TokenService struct {
	keys  *KeyManager
	store TokenStore
	ttl   time.Duration
	now   func() time.Time
}

func NewTokenService(km *KeyManager, store TokenStore, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{keys: km, store: store, ttl: ttl, now: time.Now}
}

// WithClock overrides the time source; used by tests.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

// Sign produces a token for userID without recording it.
func (s *TokenService) Sign(userID string) (string, error) {
	now := s.now()
	c := Claims{
		UID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			Subject:   userID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, c)
	token.Header["kid"] = s.keys.Active.Kid
	return token.SignedString(s.keys.Active.Private)
}

// Issue signs a token for the user and appends it to the user's token list.
func (s *TokenService) Issue(ctx context.Context, userID primitive.ObjectID) (string, error) {
	tok, err := s.Sign(userID.Hex())
	if err != nil {
		return "", apperr.Wrap(apperr.Upstream, err, "token signing failed")
	}
	if s.store != nil {
		if err := s.store.AppendToken(ctx, userID, tok); err != nil {
			return "", apperr.Wrap(apperr.Upstream, err, "token save failed")
		}
	}
	return tok, nil
}

// Verify checks signature, algorithm and expiry and returns the token subject.
func (s *TokenService) Verify(token string) (string, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, errors.New("bad method")
		}
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return s.keys.Active.Public, nil
		}
		if pk, ok := s.keys.PublicByKid(kid); ok {
			return pk, nil
		}
		return nil, errors.New("unknown kid")
	},
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", apperr.Wrap(apperr.Auth, err, "Unauthorized: Invalid token")
	}
	sub := claims.Subject
	if sub == "" {
		sub = claims.UID
	}
	if sub == "" {
		return "", apperr.New(apperr.Auth, "Unauthorized: Invalid token")
	}
	return sub, nil
}
