package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hongminglow/access-web-be/internal/apperr"
)

// Claims carry nothing but the account id and the registered claims.
type Claims struct {
	jwt.RegisteredClaims
	AccountID string `json:"accountId"`
}

// TokenPair is what a successful login or refresh hands back.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int64
}

// TokenManager issues and verifies signed JWTs. Access and refresh tokens
// use different secrets so one can never stand in for the other.
type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewTokenManager creates a manager with the provided secrets, issuer, and lifetimes.
func NewTokenManager(accessSecret, refreshSecret, issuer string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		issuer:        issuer,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

// AccessTTL is the lifetime of access tokens; the session cookie uses it too.
func (t *TokenManager) AccessTTL() time.Duration {
	return t.accessTTL
}

// Issue signs a fresh access/refresh pair for accountID.
func (t *TokenManager) Issue(accountID string) (TokenPair, error) {
	access, err := t.sign(accountID, t.accessSecret, t.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := t.sign(accountID, t.refreshSecret, t.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(t.accessTTL / time.Second),
	}, nil
}

// ParseAccess verifies an access token and returns its account id.
func (t *TokenManager) ParseAccess(token string) (string, error) {
	return t.parse(token, t.accessSecret)
}

// ParseRefresh verifies a refresh token and returns its account id.
func (t *TokenManager) ParseRefresh(token string) (string, error) {
	return t.parse(token, t.refreshSecret)
}

func (t *TokenManager) sign(accountID string, secret []byte, ttl time.Duration) (string, error) {
	now := t.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		AccountID: accountID,
	})
	return token.SignedString(secret)
}

// parse keeps an expired token distinct from an invalid one: the first
// should prompt a refresh, the second should not.
func (t *TokenManager) parse(tokenString string, secret []byte) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", apperr.New(apperr.ErrTokenExpired, apperr.CodeTokenExpired, "Session expired. Please sign in again.")
		}
		return "", apperr.Wrap(apperr.ErrInvalidToken, apperr.CodeInvalidToken, "Invalid session token.", err)
	}
	if !token.Valid || claims.AccountID == "" {
		return "", apperr.New(apperr.ErrInvalidToken, apperr.CodeInvalidToken, "Invalid session token.")
	}
	return claims.AccountID, nil
}
