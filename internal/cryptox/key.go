package cryptox

import (
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/argon2"
)

// DeriveKey stretches a passphrase into a 32-byte AES-256 key with argon2id.
func DeriveKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, 32)
}

// ParseKey accepts either 64 hex characters or a raw 16/24/32 byte string.
func ParseKey(s string) ([]byte, error) {
	if len(s) == 64 {
		if k, err := hex.DecodeString(s); err == nil {
			return k, nil
		}
	}
	switch len(s) {
	case 16, 24, 32:
		return []byte(s), nil
	}
	return nil, ErrInvalidKeyLength
}

// ResolveKey picks the content key from configuration: a passphrase (with
// salt) wins over a literal key.
func ResolveKey(literal, passphrase, salt string) ([]byte, error) {
	if passphrase != "" {
		if salt == "" {
			return nil, errors.New("encryption salt is required with a passphrase")
		}
		return DeriveKey([]byte(passphrase), []byte(salt)), nil
	}
	return ParseKey(literal)
}
