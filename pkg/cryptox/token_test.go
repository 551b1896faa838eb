package cryptox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	t.Run("rejects non-positive sizes", func(t *testing.T) {
		_, err := GenerateToken(0)
		require.Error(t, err)
		_, err = GenerateToken(-1)
		require.Error(t, err)
	})

	t.Run("produces distinct url-safe tokens", func(t *testing.T) {
		a, err := GenerateToken(TokenSize256)
		require.NoError(t, err)
		b, err := GenerateToken(TokenSize256)
		require.NoError(t, err)

		require.NotEqual(t, a, b)
		require.NotContains(t, a, "+")
		require.NotContains(t, a, "/")
		require.NotContains(t, a, "=")
	})
}

func TestFingerprintToken(t *testing.T) {
	fp := FingerprintToken("opaque-value")

	require.Equal(t, fp, FingerprintToken("opaque-value"))
	require.NotEqual(t, fp, FingerprintToken("other-value"))
	require.Len(t, fp, 43) // 32 bytes, base64url without padding

	require.True(t, FingerprintEqual(fp, "opaque-value"))
	require.False(t, FingerprintEqual(fp, "other-value"))
}
