// Package common defines shared sentinel errors and utility helpers used
// across PassVault components. Callers should use errors.Is to match the
// sentinel values; Code maps any error chain to a stable boundary code.
package common

import "errors"

var (
	// Validation / input errors. Local, never retried automatically.
	ErrValidation = errors.New("validation error")

	// Cryptographic failures. Never retried with the same inputs.
	ErrKeyDerivation       = errors.New("key derivation error")
	ErrDecryption          = errors.New("decryption error")
	ErrMalformedCiphertext = errors.New("malformed ciphertext")

	// Storage errors.
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrConflict           = errors.New("remote state conflict")
	ErrNotFound           = errors.New("not found")

	// Session errors.
	ErrLocked = errors.New("vault is locked")
)

// Code returns a stable machine-readable code for err, walking the wrap
// chain. Unknown errors map to "internal" so no failure is ever silently
// reclassified as a success.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrKeyDerivation):
		return "key_derivation"
	case errors.Is(err, ErrMalformedCiphertext):
		return "malformed_ciphertext"
	case errors.Is(err, ErrDecryption):
		return "decryption"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrStorageUnavailable):
		return "storage_unavailable"
	case errors.Is(err, ErrLocked):
		return "locked"
	default:
		return "internal"
	}
}
