package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dukeofgo/librarius/internal/domain"
)

const (
	KindAccess  = "access"
	KindRefresh = "refresh"
)

var ErrTokenKind = errors.New("wrong token kind")

type Claims struct {
	Email string `json:"email"`
	Scope string `json:"scope"` // superuser / admin / user
	Kind  string `json:"kind"`
	jwt.RegisteredClaims
}

func (c *Claims) Principal() domain.Principal {
	return domain.Principal{Email: c.Email, Role: domain.Role(c.Scope)}
}

type JWTer struct {
	Secret     []byte
	Issuer     string
	TTL        time.Duration // access token
	RefreshTTL time.Duration
	Now        func() time.Time
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

func (j *JWTer) now() time.Time {
	if j.Now != nil {
		return j.Now()
	}
	return time.Now()
}

func (j *JWTer) sign(email string, role domain.Role, kind string, ttl time.Duration) (string, error) {
	now := j.now()
	claims := Claims{
		Email: email,
		Scope: string(role),
		Kind:  kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    j.Issuer,
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.Secret)
}

func (j *JWTer) Issue(email string, role domain.Role) (string, error) {
	return j.sign(email, role, KindAccess, j.TTL)
}

func (j *JWTer) IssuePair(email string, role domain.Role) (TokenPair, error) {
	at, err := j.sign(email, role, KindAccess, j.TTL)
	if err != nil {
		return TokenPair{}, err
	}
	rt, err := j.sign(email, role, KindRefresh, j.RefreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: at, RefreshToken: rt, TokenType: "bearer"}, nil
}

// Parse 校验签名/issuer/过期，只接受 access token
func (j *JWTer) Parse(tokenStr string) (*Claims, error) {
	return j.parse(tokenStr, KindAccess)
}

func (j *JWTer) ParseRefresh(tokenStr string) (*Claims, error) {
	return j.parse(tokenStr, KindRefresh)
}

func (j *JWTer) parse(tokenStr, kind string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected alg")
		}
		return j.Secret, nil
	}, jwt.WithIssuer(j.Issuer), jwt.WithLeeway(60*time.Second), jwt.WithTimeFunc(j.now))

	if err != nil {
		return nil, err
	}
	c, ok := t.Claims.(*Claims)
	if !ok || !t.Valid {
		return nil, errors.New("invalid token")
	}
	if c.Kind != kind {
		return nil, ErrTokenKind
	}
	return c, nil
}
