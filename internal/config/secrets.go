package config

import (
	"crypto/rand"
	"crypto/subtle"
	"math/big"

	"golang.org/x/crypto/argon2"
)

const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
	saltLen      = 16

	setupTokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	setupTokenLength   = 32
)

// hashSecret derives an Argon2id hash of secret under a fresh random salt.
func hashSecret(secret string) (hash, salt []byte, err error) {
	salt = make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, nil, err
	}
	hash = argon2.IDKey([]byte(secret), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return hash, salt, nil
}

// verifySecret recomputes the hash under the stored salt and compares in
// constant time.
func verifySecret(secret string, hash, salt []byte) bool {
	candidate := argon2.IDKey([]byte(secret), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return subtle.ConstantTimeCompare(candidate, hash) == 1
}

// generateSetupToken returns a fresh alphanumeric secret of
// setupTokenLength characters, drawn from a CSPRNG.
func generateSetupToken() (string, error) {
	out := make([]byte, setupTokenLength)
	for i := range out {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(setupTokenAlphabet))))
		if err != nil {
			return "", err
		}
		out[i] = setupTokenAlphabet[n.Int64()]
	}
	return string(out), nil
}
