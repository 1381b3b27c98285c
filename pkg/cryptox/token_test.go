package cryptox

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	t.Parallel()

	t.Run("generates token of expected length", func(t *testing.T) {
		token, err := GenerateToken(TokenSize256)
		require.NoError(t, err)

		decoded, err := base64.RawURLEncoding.DecodeString(token)
		require.NoError(t, err)
		require.Len(t, decoded, TokenSize256)
	})

	t.Run("tokens are unique", func(t *testing.T) {
		seen := make(map[string]bool)
		for i := 0; i < 100; i++ {
			token, err := GenerateToken(TokenSize128)
			require.NoError(t, err)
			require.False(t, seen[token], "duplicate token generated")
			seen[token] = true
		}
	})

	t.Run("rejects non-positive size", func(t *testing.T) {
		_, err := GenerateToken(0)
		require.Error(t, err)

		_, err = GenerateToken(-1)
		require.Error(t, err)
	})
}

func TestMustGenerateToken(t *testing.T) {
	t.Parallel()

	require.NotPanics(t, func() {
		token := MustGenerateToken(TokenSize128)
		require.NotEmpty(t, token)
	})

	require.Panics(t, func() {
		MustGenerateToken(-1)
	})
}
