package auth

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
)

// QRTokenBytes is the entropy width of a QR token: 32 random bytes,
// hex-encoded to 64 characters.
const QRTokenBytes = 32

// GenerateQRToken returns a new opaque QR token from a cryptographically
// secure random source.
func GenerateQRToken() (string, error) {
	b := make([]byte, QRTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// GenerateRandomString returns a random alphanumeric string of the given
// length, used for one-time passwords on the admin surface.
func GenerateRandomString(length int) string {
	const letters = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	b := make([]byte, length)
	for i := range b {
		randIndex, _ := rand.Int(rand.Reader, big.NewInt(int64(len(letters))))
		b[i] = letters[randIndex.Int64()]
	}
	return string(b)
}
