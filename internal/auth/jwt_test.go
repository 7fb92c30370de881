package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndValidate(t *testing.T) {
	svc := NewService("test-secret", time.Hour)

	tok, err := svc.IssueGuest("  Alice ")
	require.NoError(t, err)
	assert.NotEmpty(t, tok.UserID)
	assert.Equal(t, "Alice", tok.DisplayName)

	claims, err := svc.Validate(tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, tok.UserID, claims.UserID)
	assert.Equal(t, "Alice", claims.DisplayName)

	// 同一用户改名后用户ID不变
	renamed, err := svc.Issue(tok.UserID, "Alicia")
	require.NoError(t, err)
	claims, err = svc.Validate(renamed.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, tok.UserID, claims.UserID)
	assert.Equal(t, "Alicia", claims.DisplayName)
}

func TestValidateRejects(t *testing.T) {
	svc := NewService("test-secret", time.Hour)
	tok, err := svc.IssueGuest("Bob")
	require.NoError(t, err)

	other := NewService("other-secret", time.Hour)
	_, err = other.Validate(tok.AccessToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = svc.Validate("not-a-token")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	expired := NewService("test-secret", time.Hour)
	expired.accessExpire = -time.Minute
	old, err := expired.IssueGuest("Carol")
	require.NoError(t, err)
	_, err = svc.Validate(old.AccessToken)
	assert.ErrorIs(t, err, ErrTokenExpired)

	// 非 HMAC 签名
	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: "x"})
	raw, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.Validate(raw)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestNormalizeDisplayName(t *testing.T) {
	assert.Equal(t, "Guest", NormalizeDisplayName("   "))
	long := strings.Repeat("名", 40)
	assert.Len(t, []rune(NormalizeDisplayName(long)), maxDisplayName)
}
