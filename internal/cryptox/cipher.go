// Package cryptox implements the at-rest content cipher, chunk digests and
// key provisioning.
//
// Envelope format produced by Encrypt:
//
//	| IV (16 bytes) | AES-CBC ciphertext of PKCS#7-padded plaintext |
package cryptox

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"

	"github.com/dmitrijs2005/gophvault/internal/common"
)

// IVSize is the length of the initialization vector prepended to every envelope.
const IVSize = aes.BlockSize

var ErrInvalidKeyLength = errors.New("invalid key length: must be 16, 24 or 32 bytes")

func newBlock(key []byte) (cipher.Block, error) {
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, ErrInvalidKeyLength
	}
	return aes.NewCipher(key)
}

// Encrypt pads plaintext, encrypts it with AES-CBC under a fresh random IV and
// returns IV || ciphertext. Two calls with the same input produce different
// envelopes.
func Encrypt(plaintext, key []byte) ([]byte, error) {
	block, err := newBlock(key)
	if err != nil {
		return nil, err
	}

	padded := pkcs7Pad(plaintext, aes.BlockSize)

	envelope := make([]byte, IVSize+len(padded))
	iv := envelope[:IVSize]
	if _, err := rand.Read(iv); err != nil {
		return nil, err
	}

	cipher.NewCBCEncrypter(block, iv).CryptBlocks(envelope[IVSize:], padded)
	return envelope, nil
}

// Decrypt reverses Encrypt. Any malformed envelope (too short, not
// block-aligned, bad padding) yields a *common.IntegrityError.
func Decrypt(envelope, key []byte) ([]byte, error) {
	block, err := newBlock(key)
	if err != nil {
		return nil, err
	}

	if len(envelope) < IVSize {
		return nil, &common.IntegrityError{Reason: "envelope shorter than iv"}
	}
	iv, body := envelope[:IVSize], envelope[IVSize:]
	if len(body) == 0 || len(body)%aes.BlockSize != 0 {
		return nil, &common.IntegrityError{Reason: "ciphertext is not a multiple of the block size"}
	}

	out := make([]byte, len(body))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, body)

	plain, err := pkcs7Unpad(out, aes.BlockSize)
	if err != nil {
		return nil, &common.IntegrityError{Reason: err.Error()}
	}
	return plain, nil
}

func pkcs7Pad(b []byte, blockSize int) []byte {
	n := blockSize - len(b)%blockSize
	out := make([]byte, len(b), len(b)+n)
	copy(out, b)
	return append(out, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, blockSize int) ([]byte, error) {
	if len(b) == 0 || len(b)%blockSize != 0 {
		return nil, errors.New("invalid padded length")
	}
	n := int(b[len(b)-1])
	if n == 0 || n > blockSize || n > len(b) {
		return nil, errors.New("invalid padding")
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, errors.New("invalid padding")
		}
	}
	return b[:len(b)-n], nil
}
