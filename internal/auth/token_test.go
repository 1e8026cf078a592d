package auth

import (
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func TestIssueVerify_RoundTrip(t *testing.T) {
	iss := NewIssuer(testSecret, time.Hour)
	tok, exp, err := iss.Issue(Identity{UserID: 7, Username: "alice"})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 2*time.Second)

	id, err := iss.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: 7, Username: "alice"}, id)

	// Verification has no side effects.
	again, err := iss.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, id, again)
}

func TestVerify_TamperedSignature(t *testing.T) {
	iss := NewIssuer(testSecret, time.Hour)
	tok, _, err := iss.Issue(Identity{UserID: 1, Username: "alice"})
	require.NoError(t, err)

	parts := strings.Split(tok, ".")
	require.Len(t, parts, 3)
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	_, err = iss.Verify(tampered)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_WrongSecret(t *testing.T) {
	tok, _, err := NewIssuer([]byte("other"), time.Hour).Issue(Identity{UserID: 1, Username: "alice"})
	require.NoError(t, err)

	_, err = NewIssuer(testSecret, time.Hour).Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_Expired(t *testing.T) {
	start := time.Now()
	iss := NewIssuer(testSecret, time.Hour).WithClock(func() time.Time { return start })
	tok, _, err := iss.Issue(Identity{UserID: 1, Username: "alice"})
	require.NoError(t, err)

	_, err = iss.WithClock(func() time.Time { return start.Add(59 * time.Minute) }).Verify(tok)
	require.NoError(t, err, "token is valid just before expiry")

	_, err = iss.WithClock(func() time.Time { return start.Add(61 * time.Minute) }).Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_RejectsOtherAlgorithms(t *testing.T) {
	c := jwt.MapClaims{
		"userId":   1,
		"username": "alice",
		"exp":      time.Now().Add(time.Hour).Unix(),
	}
	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, c).SignedString(testSecret)
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, c).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	iss := NewIssuer(testSecret, time.Hour)
	for name, tok := range map[string]string{"HS512": hs512, "none": none} {
		_, err := iss.Verify(tok)
		assert.ErrorIs(t, err, ErrInvalidToken, name)
	}
}

func TestVerify_ClaimsValidation(t *testing.T) {
	iss := NewIssuer(testSecret, time.Hour)
	sign := func(c jwt.MapClaims) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(testSecret)
		require.NoError(t, err)
		return s
	}
	exp := time.Now().Add(time.Hour).Unix()

	tests := map[string]string{
		"no expiry":    sign(jwt.MapClaims{"userId": 1, "username": "alice"}),
		"no user id":   sign(jwt.MapClaims{"username": "alice", "exp": exp}),
		"no username":  sign(jwt.MapClaims{"userId": 1, "exp": exp}),
		"garbage":      "not.a.token",
		"empty string": "",
	}
	for name, tok := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := iss.Verify(tok)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestIssue_EmptySecret(t *testing.T) {
	_, _, err := NewIssuer(nil, time.Hour).Issue(Identity{UserID: 1, Username: "alice"})
	assert.Error(t, err)
}
