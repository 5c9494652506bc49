// Package common defines shared constants, helpers and the error taxonomy used
// across client and server layers of GophVault. Callers should use errors.Is
// and errors.As to match these values.
package common

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// repository specific errors
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// service specific errors
	ErrInternal     = errors.New("internal error")
	ErrUnauthorized = errors.New("unauthorized")
	ErrValidation   = errors.New("validation error")
	ErrInvalidToken = errors.New("invalid token")

	// upload lifecycle errors
	ErrSessionState      = errors.New("operation not allowed in current session state")
	ErrIntegrity         = errors.New("integrity check failed")
	ErrIncompleteUpload  = errors.New("upload is incomplete")
	ErrAssembly          = errors.New("assembly failed")
	ErrDecryptionFailed  = errors.New("decryption failed")
	ErrMissingChunk      = errors.New("chunk is missing")
	ErrInvalidDigestSize = errors.New("invalid digest length")
)

// IntegrityError reports a digest mismatch or a corrupted envelope.
// Expected and Computed are set for digest mismatches only.
type IntegrityError struct {
	Expected string
	Computed string
	Reason   string
}

func (e *IntegrityError) Error() string {
	if e.Expected != "" || e.Computed != "" {
		return fmt.Sprintf("hash mismatch: expected %s, got %s", e.Expected, e.Computed)
	}
	if e.Reason != "" {
		return "integrity check failed: " + e.Reason
	}
	return ErrIntegrity.Error()
}

func (e *IntegrityError) Is(target error) bool { return target == ErrIntegrity }

// DigestFormatError is returned when a digest is neither 8 nor 32 characters long.
type DigestFormatError struct {
	Length int
}

func (e *DigestFormatError) Error() string {
	return fmt.Sprintf("invalid hash length %d: expected 8 or 32 characters", e.Length)
}

func (e *DigestFormatError) Is(target error) bool {
	return target == ErrInvalidDigestSize || target == ErrValidation
}

// IncompleteUploadError carries the ordered list of chunk indices not yet received.
type IncompleteUploadError struct {
	Missing []int
}

func (e *IncompleteUploadError) Error() string {
	return fmt.Sprintf("upload is incomplete, missing chunks: %s", JoinInts(e.Missing))
}

func (e *IncompleteUploadError) Is(target error) bool { return target == ErrIncompleteUpload }

// MissingChunkError is returned by the chunk store when an expected index is absent.
type MissingChunkError struct {
	Index int
}

func (e *MissingChunkError) Error() string {
	return fmt.Sprintf("chunk %d is missing", e.Index)
}

func (e *MissingChunkError) Is(target error) bool { return target == ErrMissingChunk }

// AssemblyError wraps any failure that happened while reading, encrypting or
// persisting an assembled file.
type AssemblyError struct {
	Err error
}

func (e *AssemblyError) Error() string {
	return "assembly failed: " + e.Err.Error()
}

func (e *AssemblyError) Is(target error) bool { return target == ErrAssembly }
func (e *AssemblyError) Unwrap() error        { return e.Err }

// DecryptionFailedError wraps an integrity failure observed while reading a stored blob.
type DecryptionFailedError struct {
	Err error
}

func (e *DecryptionFailedError) Error() string {
	return "decryption failed: " + e.Err.Error()
}

func (e *DecryptionFailedError) Is(target error) bool { return target == ErrDecryptionFailed }
func (e *DecryptionFailedError) Unwrap() error        { return e.Err }

// JoinInts renders a list of integers as "1, 2, 3".
func JoinInts(v []int) string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}
