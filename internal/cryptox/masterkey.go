// Package cryptox implements the vault's cryptography: Argon2id master-key
// derivation and authenticated field encryption with AES-256-GCM.
package cryptox

import (
	"crypto/sha256"
	"crypto/subtle"
	"fmt"

	"github.com/passvault-app/passvault/internal/common"
	"golang.org/x/crypto/argon2"
)

// SaltSize is the length of KDF salts generated at first-time setup.
const SaltSize = 16

// KDFParams configures Argon2id key derivation.
type KDFParams struct {
	Time    uint32 `json:"time"`
	Memory  uint32 `json:"memory"` // KiB
	Threads uint8  `json:"threads"`
	KeyLen  uint32 `json:"key_len"`
}

// DefaultKDFParams returns the production parameters: 1 pass over 64 MiB
// with 4 lanes, producing an AES-256 key.
func DefaultKDFParams() KDFParams {
	return KDFParams{Time: 1, Memory: 64 * 1024, Threads: 4, KeyLen: 32}
}

func (p KDFParams) validate() error {
	if p.Time < 1 {
		return fmt.Errorf("%w: time cost must be at least 1", common.ErrKeyDerivation)
	}
	if p.Memory < 8*1024 {
		return fmt.Errorf("%w: memory cost must be at least 8192 KiB", common.ErrKeyDerivation)
	}
	if p.Threads < 1 {
		return fmt.Errorf("%w: threads must be at least 1", common.ErrKeyDerivation)
	}
	if p.KeyLen != KeySize {
		return fmt.Errorf("%w: key length must be %d bytes", common.ErrKeyDerivation, KeySize)
	}
	return nil
}

// MasterKey holds a derived symmetric key and the salt it was derived with.
// It lives in memory for the duration of an unlocked session only; call
// Wipe when the session ends.
type MasterKey struct {
	key  []byte
	salt []byte
}

// NewSalt returns a fresh random KDF salt. Generated once at first-time
// setup and persisted; never regenerated for an existing dataset.
func NewSalt() []byte {
	return common.GenerateRandByteArray(SaltSize)
}

// DeriveMasterKey runs Argon2id over secret and salt. Deterministic for a
// given (secret, salt) pair.
func DeriveMasterKey(secret []byte, salt []byte, params KDFParams) (*MasterKey, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("%w: empty secret", common.ErrKeyDerivation)
	}
	if len(salt) == 0 {
		return nil, fmt.Errorf("%w: empty salt", common.ErrKeyDerivation)
	}
	if err := params.validate(); err != nil {
		return nil, err
	}

	key := argon2.IDKey(secret, salt, params.Time, params.Memory, params.Threads, params.KeyLen)

	return &MasterKey{key: key, salt: salt}, nil
}

// Bytes returns the raw derived key. The slice is owned by the MasterKey;
// callers must not retain it past the session.
func (m *MasterKey) Bytes() []byte { return m.key }

// Salt returns the salt the key was derived with.
func (m *MasterKey) Salt() []byte { return m.salt }

// Wipe zeroes the derived key material.
func (m *MasterKey) Wipe() {
	common.WipeByteArray(m.key)
}

// Verifier returns a SHA-256 digest of the derived key, persisted in config
// so the master password can be checked without storing the key itself.
func (m *MasterKey) Verifier() []byte {
	h := sha256.Sum256(m.key)
	return h[:]
}

// VerifySecret derives a key from secret and salt and compares its verifier
// against the persisted one in constant time. The derived key is wiped
// before returning.
func VerifySecret(secret, salt []byte, params KDFParams, verifier []byte) (bool, error) {
	mk, err := DeriveMasterKey(secret, salt, params)
	if err != nil {
		return false, err
	}
	defer mk.Wipe()
	got := mk.Verifier()
	return subtle.ConstantTimeCompare(got, verifier) == 1, nil
}
