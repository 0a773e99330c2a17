package crypto

import (
	"crypto/hmac"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// DigestPrefix identifies the algorithm used by SumObject.
const DigestPrefix = "blake2b-256:"

// ErrEmptyKey is returned when a keyed digest is requested without a key.
var ErrEmptyKey = errors.New("crypto: digest key is required")

// SumObject returns a keyed BLAKE2b-256 digest over the canonical JSON encoding of v.
// Struct field order (and sorted map keys) make the encoding deterministic.
func SumObject(key []byte, v any) (string, error) {
	if len(key) == 0 {
		return "", ErrEmptyKey
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return "", err
	}

	if len(key) > blake2b.Size {
		sum := blake2b.Sum256(key)
		key = sum[:]
	}

	h, err := blake2b.New256(key)
	if err != nil {
		return "", err
	}
	_, _ = h.Write(payload)
	return DigestPrefix + hex.EncodeToString(h.Sum(nil)), nil
}

// VerifyObject recomputes the digest for v and compares it in constant time.
func VerifyObject(key []byte, v any, digest string) (bool, error) {
	expected, err := SumObject(key, v)
	if err != nil {
		return false, err
	}
	if !strings.HasPrefix(digest, DigestPrefix) {
		return false, nil
	}
	return hmac.Equal([]byte(expected), []byte(digest)), nil
}

// SumBytes returns an unkeyed BLAKE2b-256 hex digest, used to fingerprint opaque payloads.
func SumBytes(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}
