package gatewaytest

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssuer_LoginCodeIsSingleUse(t *testing.T) {
	i := newIssuer([]byte("k"))
	i.addUser("bob@example.com", "Bob")

	require.NoError(t, i.startLogin("bob@example.com"))
	code, ok := i.lastCode("bob@example.com")
	require.True(t, ok)
	require.Len(t, code, 4)

	_, err := i.claim("bob@example.com", code, purposeLogin)
	require.NoError(t, err)
	_, err = i.claim("bob@example.com", code, purposeLogin)
	assert.ErrorIs(t, err, errCodeInvalid)
}

func TestIssuer_UnknownUserCannotLogin(t *testing.T) {
	i := newIssuer([]byte("k"))
	assert.ErrorIs(t, i.startLogin("nobody@example.com"), errUserNotFound)
}

func TestIssuer_CodeExpires(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	i := newIssuer([]byte("k"))
	i.now = func() time.Time { return now }
	i.addUser("bob@example.com", "Bob")

	require.NoError(t, i.startLogin("bob@example.com"))
	code, _ := i.lastCode("bob@example.com")

	now = now.Add(defaultCodeTTL + time.Second)
	_, err := i.claim("bob@example.com", code, purposeLogin)
	assert.ErrorIs(t, err, errCodeInvalid)
}

func TestIssuer_ReissueReplacesCode(t *testing.T) {
	i := newIssuer([]byte("k"))
	require.NoError(t, i.startRegister("Bob", "bob@example.com", "9876543210"))
	first, _ := i.lastCode("bob@example.com")

	// Loop until the fresh code differs; 1 in 10000 draws repeats.
	second := first
	for second == first {
		require.NoError(t, i.reissue("bob@example.com"))
		second, _ = i.lastCode("bob@example.com")
	}

	_, err := i.claim("bob@example.com", first, purposeRegister)
	assert.ErrorIs(t, err, errCodeInvalid, "old code")
	_, err = i.claim("bob@example.com", second, purposeRegister)
	require.NoError(t, err, "new code")
	assert.True(t, i.registered("bob@example.com"))
}

func TestIssuer_ReissueWithoutChallenge(t *testing.T) {
	i := newIssuer([]byte("k"))
	assert.ErrorIs(t, i.reissue("bob@example.com"), errNoChallenge)
}

func TestIssuer_PurposeMustMatch(t *testing.T) {
	i := newIssuer([]byte("k"))
	require.NoError(t, i.startRegister("Bob", "bob@example.com", ""))
	code, _ := i.lastCode("bob@example.com")

	_, err := i.claim("bob@example.com", code, purposeLogin)
	assert.ErrorIs(t, err, errCodeInvalid)
}

func TestIssuer_SignedTokenCarriesEmail(t *testing.T) {
	key := []byte("signing-key")
	i := newIssuer(key)

	signed, err := i.sign("bob@example.com")
	require.NoError(t, err)

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(signed, claims, func(*jwt.Token) (any, error) { return key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", claims["email"])
}
