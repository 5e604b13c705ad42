package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token uses carried in the "use" claim. Access tokens authorize API calls;
// refresh tokens are only good for the token exchange endpoint.
const (
	useAccess  = "access"
	useRefresh = "refresh"
)

// TokenPair holds the access and refresh tokens issued at login or exchange.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
}

// Claims is the JWT payload. Subject is the account's ID number; Role is
// "student" or "instructor".
type Claims struct {
	Subject  string `json:"sub"`
	Role     string `json:"role"`
	TokenUse string `json:"use"`
	jwt.RegisteredClaims
}

// Issue signs an access/refresh token pair for an account.
func Issue(subject, role, issuer, key string, accessTTL, refreshTTL time.Duration) (TokenPair, error) {
	access, accessExp, err := sign(subject, role, useAccess, issuer, key, accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, refreshExp, err := sign(subject, role, useRefresh, issuer, key, refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
	}, nil
}

func sign(subject, role, use, issuer, key string, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(ttl)
	claims := Claims{
		Subject:  subject,
		Role:     role,
		TokenUse: use,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	return token, exp, err
}

// Parse validates an access token. Refresh tokens are rejected here; they
// never authorize API calls directly.
func Parse(tokenStr, key, issuer string) (Claims, error) {
	return parseUse(tokenStr, key, issuer, useAccess)
}

// ParseRefresh validates a refresh token for the token exchange endpoint.
func ParseRefresh(tokenStr, key, issuer string) (Claims, error) {
	return parseUse(tokenStr, key, issuer, useRefresh)
}

func parseUse(tokenStr, key, issuer, use string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(key), nil
	})
	if err != nil {
		return Claims{}, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, errors.New("invalid token")
	}
	if issuer != "" && claims.Issuer != issuer {
		return Claims{}, errors.New("issuer mismatch")
	}
	if claims.TokenUse != use {
		return Claims{}, errors.New("wrong token use")
	}
	return *claims, nil
}
