// Package crypto provides the keyed derivations behind tinymask pseudonyms.
// It stretches the configured salt with Argon2id and derives per-value
// digests with HMAC-SHA256.
package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/argon2"
)

const (
	// KeySize is the size of the derivation key in bytes.
	KeySize = 32

	// SaltSize is the size of the Argon2id domain salt in bytes.
	SaltSize = 16

	// Argon2Time is the time parameter for Argon2id.
	Argon2Time = 3

	// Argon2Memory is the memory parameter for Argon2id in KiB.
	Argon2Memory = 64 * 1024

	// Argon2Threads is the parallelism parameter for Argon2id.
	Argon2Threads = 4
)

// DomainSalt separates tinymask keys from any other use of the same secret.
// Changing it changes every derived pseudonym.
var DomainSalt = []byte("tinymask-pseud-1")

var (
	// ErrEmptySecret is returned when the configured salt is empty.
	ErrEmptySecret = errors.New("salt must not be empty")

	// ErrInvalidSaltSize is returned when a domain salt has an incorrect size.
	ErrInvalidSaltSize = errors.New("domain salt must be 16 bytes")

	// ErrInvalidKeySize is returned when a key has an incorrect size.
	ErrInvalidKeySize = errors.New("key must be 32 bytes")
)

// DeriveKey stretches secret into a 32-byte key using Argon2id.
// The result depends only on its inputs, so every process configured with
// the same secret arrives at the same key.
func DeriveKey(secret, domainSalt []byte) ([]byte, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	if len(domainSalt) != SaltSize {
		return nil, ErrInvalidSaltSize
	}

	key := argon2.IDKey(secret, domainSalt, Argon2Time, Argon2Memory, Argon2Threads, KeySize)
	return key, nil
}

// Digest computes HMAC-SHA256 over the given parts. Each part is length
// prefixed so ("ab", "c") and ("a", "bc") never produce the same input.
func Digest(key []byte, parts ...[]byte) ([]byte, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKeySize
	}

	mac := hmac.New(sha256.New, key)
	var lenBuf [8]byte
	for _, p := range parts {
		binary.BigEndian.PutUint64(lenBuf[:], uint64(len(p)))
		mac.Write(lenBuf[:])
		mac.Write(p)
	}
	return mac.Sum(nil), nil
}

// Fingerprint returns a hex SHA-256 fingerprint of a key. It identifies a
// key without revealing it and is stored alongside the mappings.
func Fingerprint(key []byte) string {
	sum := sha256.Sum256(append([]byte("tinymask-fingerprint:"), key...))
	return hex.EncodeToString(sum[:])
}

// CompareFingerprints compares two fingerprints in constant time.
func CompareFingerprints(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// ZeroBytes securely zeros a byte slice.
// Use this to clear key material from memory when done.
func ZeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
