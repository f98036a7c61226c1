package auth

import (
	"testing"
	"time"

	"backend/internal/apperr"
	"backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "unit-test-secret"

func testUser() *model.User {
	return &model.User{ID: 42, Username: "berta", Role: model.RoleOwner}
}

func TestSessionTokenRoundTrip(t *testing.T) {
	svc := NewTokenService(testSecret, 15*time.Minute, 15*time.Minute)

	token, err := svc.IssueSession(testUser())
	require.NoError(t, err)

	claims, err := svc.VerifySession(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.SubjectID)
	assert.Equal(t, "berta", claims.Username)
	assert.Equal(t, model.RoleOwner, claims.Role)
	assert.Equal(t, PurposeSession, claims.Purpose)
}

func TestRestoreTokenRoundTrip(t *testing.T) {
	svc := NewTokenService(testSecret, 15*time.Minute, 15*time.Minute)

	token, err := svc.IssueRestore(7)
	require.NoError(t, err)

	subjectID, err := svc.VerifyRestore(token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), subjectID)
}

func TestPurposeDiscrimination(t *testing.T) {
	svc := NewTokenService(testSecret, 15*time.Minute, 15*time.Minute)

	t.Run("SessionTokenRejectedAsRestore", func(t *testing.T) {
		token, err := svc.IssueSession(testUser())
		require.NoError(t, err)

		_, err = svc.VerifyRestore(token)
		assert.ErrorIs(t, err, apperr.ErrWrongTokenPurpose)
	})

	t.Run("RestoreTokenRejectedAsSession", func(t *testing.T) {
		token, err := svc.IssueRestore(7)
		require.NoError(t, err)

		_, err = svc.VerifySession(token)
		assert.ErrorIs(t, err, apperr.ErrWrongTokenPurpose)
	})
}

func TestExpiredToken(t *testing.T) {
	// Negative TTLs mint tokens that are already past their expiry.
	svc := NewTokenService(testSecret, -time.Minute, -time.Minute)

	sessionToken, err := svc.IssueSession(testUser())
	require.NoError(t, err)
	_, err = svc.Verify(sessionToken)
	assert.ErrorIs(t, err, apperr.ErrTokenExpired)

	restoreToken, err := svc.IssueRestore(7)
	require.NoError(t, err)
	_, err = svc.VerifyRestore(restoreToken)
	assert.ErrorIs(t, err, apperr.ErrTokenExpired)
}

func TestInvalidToken(t *testing.T) {
	svc := NewTokenService(testSecret, 15*time.Minute, 15*time.Minute)

	t.Run("Garbage", func(t *testing.T) {
		_, err := svc.Verify("not.a.jwt")
		assert.ErrorIs(t, err, apperr.ErrTokenInvalid)
	})

	t.Run("WrongSecret", func(t *testing.T) {
		other := NewTokenService("different-secret", 15*time.Minute, 15*time.Minute)
		token, err := other.IssueSession(testUser())
		require.NoError(t, err)

		_, err = svc.Verify(token)
		assert.ErrorIs(t, err, apperr.ErrTokenInvalid)
	})

	t.Run("ExpiredAndInvalidAreDistinct", func(t *testing.T) {
		expired := NewTokenService(testSecret, -time.Minute, -time.Minute)
		token, err := expired.IssueSession(testUser())
		require.NoError(t, err)

		_, err = svc.Verify(token)
		assert.ErrorIs(t, err, apperr.ErrTokenExpired)
		assert.NotErrorIs(t, err, apperr.ErrTokenInvalid)
	})
}
