package middleware

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuganosora/hearthquest/game/quest"
	"github.com/kasuganosora/hearthquest/model"
)

const testSecret = "test-jwt-secret-32bytes-padded!!"

var guardian = quest.Actor{UserID: 1, FamilyID: 7, Role: model.RoleGuardian}

func TestParseToken_Valid(t *testing.T) {
	tok, err := GenerateToken(guardian, testSecret, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	claims, err := ParseToken(tok, testSecret)
	require.NoError(t, err)
	assert.Equal(t, guardian, claims.Actor())
}

func TestParseToken_WrongSecret(t *testing.T) {
	tok, err := GenerateToken(guardian, testSecret, time.Hour)
	require.NoError(t, err)

	_, err = ParseToken(tok, "wrong-secret")
	assert.Error(t, err)
}

func TestParseToken_Expired(t *testing.T) {
	tok, err := GenerateToken(guardian, testSecret, -time.Second)
	require.NoError(t, err)

	_, err = ParseToken(tok, testSecret)
	assert.Error(t, err)
}

func TestParseToken_Malformed(t *testing.T) {
	_, err := ParseToken("not.a.jwt", testSecret)
	assert.Error(t, err)
	_, err = ParseToken("", testSecret)
	assert.Error(t, err)
}

func TestParseToken_RejectsIncompleteIdentity(t *testing.T) {
	for name, a := range map[string]quest.Actor{
		"no user":      {FamilyID: 7, Role: model.RoleMember},
		"no family":    {UserID: 2, Role: model.RoleMember},
		"unknown role": {UserID: 2, FamilyID: 7, Role: "ADMIN"},
	} {
		tok, err := GenerateToken(a, testSecret, time.Hour)
		require.NoError(t, err, name)
		_, err = ParseToken(tok, testSecret)
		assert.Error(t, err, name)
	}
}

func TestParseToken_RejectsNoneAlgorithm(t *testing.T) {
	claims := &Claims{UserID: 1, FamilyID: 7, Role: model.RoleGuardian}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ParseToken(tok, testSecret)
	assert.Error(t, err)
}
