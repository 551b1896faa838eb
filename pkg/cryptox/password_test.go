package cryptox

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "cryptox-test-*")
	if err != nil {
		panic(err)
	}
	SetPepperPath(filepath.Join(dir, "pepper"))

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$"))

	require.NoError(t, VerifyPassword("correct horse battery staple", hash))
	require.ErrorIs(t, VerifyPassword("wrong password", hash), ErrPasswordMismatch)
}

func TestHashPasswordProducesUniqueSalts(t *testing.T) {
	h1, err := HashPassword("same input")
	require.NoError(t, err)
	h2, err := HashPassword("same input")
	require.NoError(t, err)

	require.NotEqual(t, h1, h2)
	require.NoError(t, VerifyPassword("same input", h1))
	require.NoError(t, VerifyPassword("same input", h2))
}

func TestVerifyPasswordRejectsMalformedHashes(t *testing.T) {
	t.Run("wrong part count", func(t *testing.T) {
		err := VerifyPassword("pw", "$argon2id$v=19$m=19456,t=2,p=1$salt")
		require.Error(t, err)
		require.NotErrorIs(t, err, ErrPasswordMismatch)
	})

	t.Run("wrong algorithm", func(t *testing.T) {
		err := VerifyPassword("pw", "$argon2i$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA")
		require.Error(t, err)
	})

	t.Run("bad salt encoding", func(t *testing.T) {
		err := VerifyPassword("pw", "$argon2id$v=19$m=19456,t=2,p=1$!!!$aGFzaA")
		require.Error(t, err)
	})
}

func TestHasherContract(t *testing.T) {
	h := Hasher{}

	hash, err := h.Hash("swordfish")
	require.NoError(t, err)
	require.True(t, h.Verify("swordfish", hash))
	require.False(t, h.Verify("marlin", hash))
}
