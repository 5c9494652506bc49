package cryptox

import (
	"crypto/md5"
	"encoding/hex"
	"strings"

	"github.com/dmitrijs2005/gophvault/internal/common"
)

const (
	// FullDigestLen is the length of a hex MD5 digest.
	FullDigestLen = 32
	// ShortDigestLen is the truncated prefix form sent by browser clients.
	ShortDigestLen = 8
)

// MD5Hex returns the lowercase hex MD5 of data.
func MD5Hex(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// CheckDigestFormat accepts an empty digest (no check requested) or one of
// ShortDigestLen / FullDigestLen characters.
func CheckDigestFormat(digest string) error {
	switch len(digest) {
	case 0, ShortDigestLen, FullDigestLen:
		return nil
	default:
		return &common.DigestFormatError{Length: len(digest)}
	}
}

// VerifyDigest compares digest with the MD5 of data. A full digest is compared
// entirely, a short one against the computed prefix. Returns the computed full
// digest so callers can persist it.
func VerifyDigest(data []byte, digest string) (string, error) {
	computed := MD5Hex(data)
	if err := CheckDigestFormat(digest); err != nil {
		return computed, err
	}
	if digest == "" {
		return computed, nil
	}

	expected := strings.ToLower(digest)
	got := computed[:len(expected)]
	if got != expected {
		return computed, &common.IntegrityError{Expected: expected, Computed: got}
	}
	return computed, nil
}
