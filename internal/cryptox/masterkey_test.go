package cryptox

import (
	"encoding/hex"
	"testing"

	"github.com/passvault-app/passvault/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveMasterKey_Deterministic(t *testing.T) {
	secret := []byte("secret-password")
	salt := []byte("fixed-salt")

	k1, err := DeriveMasterKey(secret, salt, DefaultKDFParams())
	require.NoError(t, err)
	k2, err := DeriveMasterKey(secret, salt, DefaultKDFParams())
	require.NoError(t, err)

	assert.Equal(t, k1.Bytes(), k2.Bytes())

	// snapshot of argon2id(time=1, mem=64MiB, threads=4, keylen=32)
	expectedHex := "34f7a1c64df63ab1ad5b5ee06e64db5713b35f81839823304db63e8e5e6a6a39"
	assert.Equal(t, expectedHex, hex.EncodeToString(k1.Bytes()))
}

func TestDeriveMasterKey_DifferentSalts(t *testing.T) {
	secret := []byte("secret-password")

	k1, err := DeriveMasterKey(secret, []byte("salt-1"), DefaultKDFParams())
	require.NoError(t, err)
	k2, err := DeriveMasterKey(secret, []byte("salt-2"), DefaultKDFParams())
	require.NoError(t, err)

	assert.NotEqual(t, k1.Bytes(), k2.Bytes())
}

func TestDeriveMasterKey_InvalidInputs(t *testing.T) {
	salt := NewSalt()

	tests := []struct {
		name   string
		secret []byte
		salt   []byte
		params KDFParams
	}{
		{"empty secret", nil, salt, DefaultKDFParams()},
		{"empty salt", []byte("s"), nil, DefaultKDFParams()},
		{"zero time cost", []byte("s"), salt, KDFParams{Time: 0, Memory: 64 * 1024, Threads: 4, KeyLen: 32}},
		{"tiny memory", []byte("s"), salt, KDFParams{Time: 1, Memory: 1, Threads: 4, KeyLen: 32}},
		{"zero threads", []byte("s"), salt, KDFParams{Time: 1, Memory: 64 * 1024, Threads: 0, KeyLen: 32}},
		{"wrong key length", []byte("s"), salt, KDFParams{Time: 1, Memory: 64 * 1024, Threads: 4, KeyLen: 16}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DeriveMasterKey(tt.secret, tt.salt, tt.params)
			assert.ErrorIs(t, err, common.ErrKeyDerivation)
		})
	}
}

func TestNewSalt_UniqueAndSized(t *testing.T) {
	s1 := NewSalt()
	s2 := NewSalt()
	assert.Len(t, s1, SaltSize)
	assert.NotEqual(t, s1, s2)
}

func TestVerifySecret(t *testing.T) {
	salt := NewSalt()
	mk, err := DeriveMasterKey([]byte("correct horse"), salt, DefaultKDFParams())
	require.NoError(t, err)
	verifier := mk.Verifier()

	ok, err := VerifySecret([]byte("correct horse"), salt, DefaultKDFParams(), verifier)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifySecret([]byte("wrong horse"), salt, DefaultKDFParams(), verifier)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMasterKey_Wipe(t *testing.T) {
	mk, err := DeriveMasterKey([]byte("s"), NewSalt(), DefaultKDFParams())
	require.NoError(t, err)

	mk.Wipe()
	for _, b := range mk.Bytes() {
		assert.Zero(t, b)
	}
}
