package encryption

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenSealerRoundTrip(t *testing.T) {
	sealer := NewTokenSealer(NewLocalKeyManager(newEncryptionKey()))
	ctx := context.Background()

	sealed, err := sealer.Seal(ctx, "ghp_supersecrettoken")
	require.NoError(t, err)
	require.NotContains(t, string(sealed), "supersecret")

	token, err := sealer.Unseal(ctx, sealed)
	require.NoError(t, err)
	require.Equal(t, "ghp_supersecrettoken", token)

	// two seals of the same token produce different ciphertexts
	sealed2, err := sealer.Seal(ctx, "ghp_supersecrettoken")
	require.NoError(t, err)
	require.NotEqual(t, sealed, sealed2)
}

func TestTokenSealerRejectsGarbage(t *testing.T) {
	sealer := NewTokenSealer(NewLocalKeyManager(newEncryptionKey()))
	ctx := context.Background()

	_, err := sealer.Unseal(ctx, []byte{0x01})
	require.Error(t, err)

	sealed, err := sealer.Seal(ctx, "token")
	require.NoError(t, err)
	sealed[len(sealed)-1] ^= 0xff
	_, err = sealer.Unseal(ctx, sealed)
	require.Error(t, err)
}

func TestEncryptDecryptGCM(t *testing.T) {
	key := newEncryptionKey()
	ciphertext, err := encrypt([]byte("Hello, world!"), key)
	require.NoError(t, err)

	plaintext, err := decrypt(ciphertext, key)
	require.NoError(t, err)
	require.Equal(t, []byte("Hello, world!"), plaintext)

	ciphertext[0] ^= 0xff
	_, err = decrypt(ciphertext, key)
	require.Error(t, err)
}
