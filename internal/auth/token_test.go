package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/access-web-be/internal/apperr"
)

func newTestTokens(now func() time.Time) *TokenManager {
	tm := NewTokenManager("access-secret", "refresh-secret", "access-web", 7*24*time.Hour, 30*24*time.Hour)
	if now != nil {
		tm.now = now
	}
	return tm
}

func TestIssueAndParse(t *testing.T) {
	tm := newTestTokens(nil)

	pair, err := tm.Issue("acc-1")
	require.NoError(t, err)
	assert.Equal(t, int64(7*24*3600), pair.ExpiresIn)

	id, err := tm.ParseAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", id)

	id, err = tm.ParseRefresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", id)
}

func TestTokensCarryOnlyAccountID(t *testing.T) {
	tm := newTestTokens(nil)
	pair, err := tm.Issue("acc-1")
	require.NoError(t, err)

	claims := jwt.MapClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(pair.AccessToken, claims)
	require.NoError(t, err)

	keys := make([]string, 0, len(claims))
	for k := range claims {
		keys = append(keys, k)
	}
	assert.ElementsMatch(t, []string{"accountId", "iss", "iat", "exp"}, keys)
}

func TestAccessAndRefreshAreNotInterchangeable(t *testing.T) {
	tm := newTestTokens(nil)
	pair, err := tm.Issue("acc-1")
	require.NoError(t, err)

	_, err = tm.ParseAccess(pair.RefreshToken)
	assert.True(t, errors.Is(err, apperr.ErrInvalidToken))

	_, err = tm.ParseRefresh(pair.AccessToken)
	assert.True(t, errors.Is(err, apperr.ErrInvalidToken))
}

func TestParse_ExpiredIsDistinctFromInvalid(t *testing.T) {
	issuedAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := issuedAt
	tm := newTestTokens(func() time.Time { return clock })

	pair, err := tm.Issue("acc-1")
	require.NoError(t, err)

	clock = issuedAt.Add(7*24*time.Hour + time.Minute)
	_, err = tm.ParseAccess(pair.AccessToken)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrTokenExpired))
	assert.False(t, errors.Is(err, apperr.ErrInvalidToken))

	// refresh token still has weeks left
	_, err = tm.ParseRefresh(pair.RefreshToken)
	assert.NoError(t, err)
}

func TestParse_Invalid(t *testing.T) {
	tm := newTestTokens(nil)
	pair, err := tm.Issue("acc-1")
	require.NoError(t, err)

	other := NewTokenManager("other-secret", "refresh-secret", "access-web", time.Hour, time.Hour)
	_, err = other.ParseAccess(pair.AccessToken)
	assert.True(t, errors.Is(err, apperr.ErrInvalidToken))

	wrongIssuer := NewTokenManager("access-secret", "refresh-secret", "someone-else", time.Hour, time.Hour)
	_, err = wrongIssuer.ParseAccess(pair.AccessToken)
	assert.True(t, errors.Is(err, apperr.ErrInvalidToken))

	_, err = tm.ParseAccess("not.a.jwt")
	assert.True(t, errors.Is(err, apperr.ErrInvalidToken))

	tampered := pair.AccessToken[:strings.LastIndex(pair.AccessToken, ".")] + ".c2lnbmF0dXJl"
	_, err = tm.ParseAccess(tampered)
	assert.True(t, errors.Is(err, apperr.ErrInvalidToken))
}

func TestParse_RejectsNoneAlgorithm(t *testing.T) {
	tm := newTestTokens(nil)
	token := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "access-web",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		AccountID: "acc-1",
	})
	s, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = tm.ParseAccess(s)
	assert.True(t, errors.Is(err, apperr.ErrInvalidToken))
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse", 4)
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)
	assert.True(t, CheckPassword(hash, "correct horse"))
	assert.False(t, CheckPassword(hash, "Correct horse"))
	assert.False(t, CheckPassword("not-a-hash", "correct horse"))
}
