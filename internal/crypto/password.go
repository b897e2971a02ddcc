// Package crypto provides password hashing and verification.
package crypto

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	argon2Time    = 1
	argon2Memory  = 64 * 1024
	argon2Threads = 4
	argon2SaltLen = 16
	argon2KeyLen  = 32
)

const argon2Prefix = "$argon2id$"

// GenerateHash generates the legacy hash for the given password.
//
// NOTE: This implementation is just for testing stuff. The generated hash
// uses neither a salt nor any strong hashing algorithm or rotation, so it is
// pretty weak. Never ever use this in production! Newly registered accounts
// get an argon2id hash via HashPassword instead.
//
// Returns the empty string if no password is given, the calculated hash
// otherwise.
func GenerateHash(password string) string {
	if password == "" {
		return ""
	}
	sum := sha512.Sum512([]byte(password))
	return hex.EncodeToString(sum[:])[:126]
}

// HashPassword uses Argon2id to hash the password. The result is encoded in
// PHC string format: $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password must not be empty")
	}

	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argon2Memory, argon2Time, argon2Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash)), nil
}

// VerifyPassword compares a plaintext password with a stored hash. The hash
// format decides the scheme: PHC argon2id strings verify via argon2,
// everything else via the legacy digest of GenerateHash. Empty passwords
// always fail.
func VerifyPassword(password, stored string) bool {
	if password == "" || stored == "" {
		return false
	}
	if strings.HasPrefix(stored, argon2Prefix) {
		return verifyArgon2(password, stored)
	}
	return GenerateHash(password) == stored
}

// verifyArgon2 re-hashes the password with the parameters and salt extracted
// from the encoded hash and compares in constant time.
func verifyArgon2(password, encoded string) bool {
	// ["", "argon2id", "v=19", "m=65536,t=1,p=4", salt, hash]
	sections := strings.Split(encoded, "$")
	if len(sections) != 6 || sections[1] != "argon2id" {
		return false
	}

	var version int
	if _, err := fmt.Sscanf(sections[2], "v=%d", &version); err != nil {
		return false
	}

	var m, t, p uint32
	if _, err := fmt.Sscanf(sections[3], "m=%d,t=%d,p=%d", &m, &t, &p); err != nil {
		return false
	}
	if p == 0 || p > 255 {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(sections[4])
	if err != nil {
		return false
	}
	hash, err := base64.RawStdEncoding.DecodeString(sections[5])
	if err != nil {
		return false
	}
	if len(hash) == 0 {
		return false
	}

	computed := argon2.IDKey([]byte(password), salt, t, m, uint8(p), uint32(len(hash)))
	return subtle.ConstantTimeCompare(computed, hash) == 1
}
