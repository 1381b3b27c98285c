package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

const (
	sealSaltLength  = 16
	sealNonceLength = 12

	// Argon2id parameters for deriving the sealing key from a passphrase.
	sealIterations  = 1
	sealMemory      = 64 * 1024
	sealParallelism = 4
	sealKeyLength   = 32
)

// ErrSealedCorrupt reports sealed data that is too short or fails
// authentication (wrong passphrase or tampered content).
var ErrSealedCorrupt = errors.New("cryptox: sealed data corrupt or wrong passphrase")

// SealWithPassphrase encrypts plaintext with a key derived from the
// passphrase using Argon2id and AES-256-GCM. The output format is:
// [16-byte salt][12-byte nonce][ciphertext + auth tag]. A fresh salt and
// nonce are generated for every call.
func SealWithPassphrase(passphrase, plaintext []byte) ([]byte, error) {
	salt := make([]byte, sealSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	aead, err := newSealAEAD(passphrase, salt)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, sealNonceLength)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	out := make([]byte, 0, sealSaltLength+sealNonceLength+len(plaintext)+aead.Overhead())
	out = append(out, salt...)
	out = append(out, nonce...)
	return aead.Seal(out, nonce, plaintext, nil), nil
}

// OpenWithPassphrase decrypts data produced by SealWithPassphrase.
func OpenWithPassphrase(passphrase, sealed []byte) ([]byte, error) {
	if len(sealed) < sealSaltLength+sealNonceLength {
		return nil, ErrSealedCorrupt
	}

	salt := sealed[:sealSaltLength]
	nonce := sealed[sealSaltLength : sealSaltLength+sealNonceLength]
	ciphertext := sealed[sealSaltLength+sealNonceLength:]

	aead, err := newSealAEAD(passphrase, salt)
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrSealedCorrupt
	}
	return plaintext, nil
}

func newSealAEAD(passphrase, salt []byte) (cipher.AEAD, error) {
	key := argon2.IDKey(passphrase, salt, sealIterations, sealMemory, sealParallelism, sealKeyLength)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise GCM: %w", err)
	}
	return aead, nil
}
