package encryption

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"
)

// TokenSealer seals and unseals pipeline admin SCM tokens using wrapped
// encryption: each token is encrypted with a fresh data key, and the data
// key is encrypted by the KeyManager. The sealed form stored on the pipeline
// row is keyLen|encryptedDataKey|encryptedToken.
// Unsealed tokens are short-lived secrets and must never be logged.
type TokenSealer struct {
	keyManager KeyManager
}

func NewTokenSealer(keyManager KeyManager) *TokenSealer {
	return &TokenSealer{
		keyManager: keyManager,
	}
}

// Seal encrypts a token for storage.
func (s *TokenSealer) Seal(ctx context.Context, token string) ([]byte, error) {
	dataKeyPlainText, dataKeyEncrypted, err := s.keyManager.GenerateDataKey(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "error generating data key")
	}
	tokenEncrypted, err := encrypt([]byte(token), dataKeyPlainText)
	if err != nil {
		return nil, errors.Wrap(err, "error encrypting token")
	}
	sealed := make([]byte, 4, 4+len(dataKeyEncrypted)+len(tokenEncrypted))
	binary.BigEndian.PutUint32(sealed, uint32(len(dataKeyEncrypted)))
	sealed = append(sealed, dataKeyEncrypted...)
	sealed = append(sealed, tokenEncrypted...)
	return sealed, nil
}

// Unseal decrypts a previously sealed token.
func (s *TokenSealer) Unseal(ctx context.Context, sealed []byte) (string, error) {
	if len(sealed) < 4 {
		return "", fmt.Errorf("error unsealing token: sealed data too short")
	}
	keyLen := binary.BigEndian.Uint32(sealed)
	if uint32(len(sealed)-4) < keyLen {
		return "", fmt.Errorf("error unsealing token: sealed data truncated")
	}
	dataKeyEncrypted := sealed[4 : 4+keyLen]
	tokenEncrypted := sealed[4+keyLen:]
	dataKeyPlainText, err := s.keyManager.DecryptDataKey(ctx, dataKeyEncrypted)
	if err != nil {
		return "", errors.Wrap(err, "error decrypting data key")
	}
	token, err := decrypt(tokenEncrypted, dataKeyPlainText)
	if err != nil {
		return "", errors.Wrap(err, "error decrypting token")
	}
	return string(token), nil
}
