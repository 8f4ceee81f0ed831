package common

import "crypto/rand"

// GenerateRandByteArray returns size cryptographically secure random bytes.
// It panics if the system randomness source fails, which is unrecoverable
// for a credential store.
func GenerateRandByteArray(size int) []byte {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}

// WipeByteArray overwrites b with zeros. Used to remove key material and
// plaintext secrets from memory after use. A nil slice is a no-op.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
