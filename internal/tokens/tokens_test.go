package tokens

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, accessTTL time.Duration) *Service {
	t.Helper()
	svc, err := NewService(Config{
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
		AccessTTL:     accessTTL,
		RefreshTTL:    time.Hour,
	})
	require.NoError(t, err)
	return svc
}

func TestMintAndVerifyRoundTrip(t *testing.T) {
	svc := newTestService(t, time.Minute)

	access, err := svc.MintAccess("user-1")
	require.NoError(t, err)
	refresh, err := svc.MintRefresh("user-1")
	require.NoError(t, err)

	userID, err := svc.VerifyAccess(access)
	require.NoError(t, err)
	require.Equal(t, "user-1", userID)

	userID, err = svc.VerifyRefresh(refresh)
	require.NoError(t, err)
	require.Equal(t, "user-1", userID)
}

func TestVerifyRejectsCrossSecretUse(t *testing.T) {
	svc := newTestService(t, time.Minute)

	// a refresh token must never pass access verification and vice versa
	refresh, err := svc.MintRefresh("user-1")
	require.NoError(t, err)
	_, err = svc.VerifyAccess(refresh)
	require.ErrorIs(t, err, ErrInvalidToken)

	access, err := svc.MintAccess("user-1")
	require.NoError(t, err)
	_, err = svc.VerifyRefresh(access)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyCollapsesFailures(t *testing.T) {
	svc := newTestService(t, time.Minute)

	expired := newTestService(t, -time.Minute)
	expiredToken, err := expired.MintAccess("user-1")
	require.NoError(t, err)

	other, err := NewService(Config{
		AccessSecret:  []byte("some-other-secret"),
		RefreshSecret: []byte("refresh-secret"),
	})
	require.NoError(t, err)
	forged, err := other.MintAccess("user-1")
	require.NoError(t, err)

	cases := map[string]string{
		"expired":   expiredToken,
		"forged":    forged,
		"malformed": "not.a.jwt",
		"empty":     "",
	}
	for name, token := range cases {
		_, err := svc.VerifyAccess(token)
		require.ErrorIs(t, err, ErrInvalidToken, "case %s", name)
	}
}

func TestNewServiceRequiresSecrets(t *testing.T) {
	_, err := NewService(Config{RefreshSecret: []byte("x")})
	require.Error(t, err)

	_, err = NewService(Config{AccessSecret: []byte("x")})
	require.Error(t, err)
}

func TestDefaultsApplied(t *testing.T) {
	svc, err := NewService(Config{
		AccessSecret:  []byte("a"),
		RefreshSecret: []byte("b"),
	})
	require.NoError(t, err)
	require.Equal(t, DefaultAccessTTL, svc.AccessTTL())
	require.Equal(t, DefaultRefreshTTL, svc.RefreshTTL())
}
