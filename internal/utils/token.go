package utils // package utils provides helper functions for token creation and hashing

import (
	"crypto/rand"   // secure random number generation
	"crypto/sha256" // SHA‑256 hashing for stored tokens
	"encoding/hex"  // hex encoding of digests and random bytes
	"fmt"
	"math/big"
)

// RandomToken returns a hex‑encoded string generated from n bytes of
// cryptographically secure random data.  It is used for password reset
// tokens, session ids and OAuth state values.
func RandomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// HashToken returns the SHA‑256 hash of a raw token as a hex string.  Only
// this digest is persisted, so a leaked table cannot be replayed.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// NewResetToken returns a raw reset token for the email and its digest.
func NewResetToken() (raw, hash string, err error) {
	raw, err = RandomToken(32)
	if err != nil {
		return "", "", err
	}
	return raw, HashToken(raw), nil
}

// VerificationCode returns a uniformly distributed 6-digit numeric code,
// zero padded ("004217").
func VerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
