package storage

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerGenerateAndParse(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("share-1", "share-1/weeklyworks.csv")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.False(t, expiresAt.IsZero())

	shareID, path, parsedExpiry, err := signer.Parse(token, false)
	require.NoError(t, err)
	require.Equal(t, "share-1", shareID)
	require.Equal(t, "share-1/weeklyworks.csv", path)
	require.WithinDuration(t, expiresAt, parsedExpiry, time.Second)
}

func TestSignedURLSignerExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)
	token, _, err := signer.Generate("share-1", "share-1/weeklyworks.csv")
	require.NoError(t, err)

	signer.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, _, _, err = signer.Parse(token, false)
	require.True(t, errors.Is(err, ErrTokenExpired))

	shareID, path, _, err := signer.Parse(token, true)
	require.NoError(t, err)
	require.Equal(t, "share-1", shareID)
	require.Equal(t, "share-1/weeklyworks.csv", path)
}

func TestSignedURLSignerRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("share-1", "share-1/weeklyworks.csv")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	parts[0] = "share-2"
	_, _, _, err = signer.Parse(strings.Join(parts, "."), false)
	require.True(t, errors.Is(err, ErrInvalidToken))

	_, _, _, err = NewSignedURLSigner("other", time.Hour).Parse(token, false)
	require.True(t, errors.Is(err, ErrInvalidToken))

	_, _, _, err = signer.Parse("garbage", false)
	require.True(t, errors.Is(err, ErrInvalidToken))

	_, _, err = signer.Generate("a.b", "file.csv")
	require.Error(t, err)
}
