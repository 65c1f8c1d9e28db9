package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinkTokenRoundTrip(t *testing.T) {
	svc := NewTokenService("test-secret")

	token, err := svc.GenerateLink(TokenPurposeInvite, "invitation-42", time.Hour)
	require.NoError(t, err)

	recordID, err := svc.ValidateLink(token, TokenPurposeInvite)
	require.NoError(t, err)
	assert.Equal(t, "invitation-42", recordID)
}

func TestLinkTokenPurposeMismatch(t *testing.T) {
	svc := NewTokenService("test-secret")

	token, err := svc.GenerateLink(TokenPurposeReset, "reset-1", time.Hour)
	require.NoError(t, err)

	_, err = svc.ValidateLink(token, TokenPurposeInvite)
	assert.Error(t, err)
}

func TestLinkTokenWrongSecret(t *testing.T) {
	token, err := NewTokenService("secret-a").GenerateLink(TokenPurposeInvite, "invitation-1", time.Hour)
	require.NoError(t, err)

	_, err = NewTokenService("secret-b").ValidateLink(token, TokenPurposeInvite)
	assert.Error(t, err)
}

func TestLinkTokenExpired(t *testing.T) {
	svc := NewTokenService("test-secret")

	token, err := svc.GenerateLink(TokenPurposeReset, "reset-1", -time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateLink(token, TokenPurposeReset)
	assert.Error(t, err)
}

func TestGenerateLinkRequiresRecordID(t *testing.T) {
	_, err := NewTokenService("test-secret").GenerateLink(TokenPurposeReset, "", time.Hour)
	assert.Error(t, err)
}

func TestNewAPIKeyShape(t *testing.T) {
	seen := map[string]struct{}{}
	for i := 0; i < 32; i++ {
		key := NewAPIKey()
		assert.Len(t, key, 20)
		seen[key] = struct{}{}
	}
	assert.Len(t, seen, 32)
}

func TestNewInvitationIDShape(t *testing.T) {
	assert.Len(t, NewInvitationID(), 40)
}
