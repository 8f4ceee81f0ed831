package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/json"
	"fmt"

	"github.com/passvault-app/passvault/internal/common"
)

const (
	// KeySize is the AES-256 key length.
	KeySize = 32
	// NonceSize is the GCM nonce length.
	NonceSize = 12
	// TagSize is the GCM authentication tag length.
	TagSize = 16
)

// EncryptedData is a self-contained AEAD envelope: decryption needs only
// this struct plus the master key. Salt records the KDF salt the key was
// derived with, so a ciphertext can always be tied back to its key lineage.
type EncryptedData struct {
	Ciphertext []byte `json:"ciphertext"`
	Nonce      []byte `json:"nonce"`
	Salt       []byte `json:"salt"`
}

// Validate rejects envelopes whose lengths cannot be a valid AES-GCM
// output, before any decryption is attempted.
func (d *EncryptedData) Validate() error {
	if d == nil {
		return fmt.Errorf("%w: nil envelope", common.ErrMalformedCiphertext)
	}
	if len(d.Nonce) != NonceSize {
		return fmt.Errorf("%w: nonce length %d, want %d", common.ErrMalformedCiphertext, len(d.Nonce), NonceSize)
	}
	if len(d.Ciphertext) < TagSize {
		return fmt.Errorf("%w: ciphertext length %d below tag size %d", common.ErrMalformedCiphertext, len(d.Ciphertext), TagSize)
	}
	return nil
}

// Encrypt seals plaintext under key with AES-256-GCM and a fresh random
// nonce. The ciphertext is exactly len(plaintext)+TagSize bytes.
func Encrypt(key *MasterKey, plaintext []byte) (*EncryptedData, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	nonce := common.GenerateRandByteArray(NonceSize)
	ciphertext := aead.Seal(nil, nonce, plaintext, nil)

	return &EncryptedData{Ciphertext: ciphertext, Nonce: nonce, Salt: key.Salt()}, nil
}

// Decrypt opens data under key. Authentication failure, a wrong key and a
// corrupted ciphertext are indistinguishable: all surface as ErrDecryption
// and no partial plaintext is ever returned.
func Decrypt(key *MasterKey, data *EncryptedData) ([]byte, error) {
	if err := data.Validate(); err != nil {
		return nil, err
	}

	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Open(nil, data.Nonce, data.Ciphertext, nil)
	if err != nil {
		return nil, common.ErrDecryption
	}
	return plaintext, nil
}

func newAEAD(key *MasterKey) (cipher.AEAD, error) {
	if key == nil || len(key.Bytes()) != KeySize {
		return nil, fmt.Errorf("%w: invalid key", common.ErrKeyDerivation)
	}
	block, err := aes.NewCipher(key.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrKeyDerivation, err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrKeyDerivation, err)
	}
	return aead, nil
}

// Service encrypts and decrypts entry fields for one unlocked session.
// When a secondary key is present, descriptions get a second encryption
// layer under it (defense in depth for the one free-text field).
type Service struct {
	primary   *MasterKey
	secondary *MasterKey
}

// NewService returns a single-layer service.
func NewService(primary *MasterKey) *Service {
	return &Service{primary: primary}
}

// NewServiceWithDouble returns a service that double-encrypts descriptions:
// sealed under the primary key, then the whole envelope sealed again under
// the secondary key. The secondary key must be derived with its own salt.
func NewServiceWithDouble(primary, secondary *MasterKey) *Service {
	return &Service{primary: primary, secondary: secondary}
}

// DoubleEnabled reports whether descriptions get the second layer.
func (s *Service) DoubleEnabled() bool { return s.secondary != nil }

// Wipe zeroes the session keys. The service must not be used afterwards.
func (s *Service) Wipe() {
	if s.primary != nil {
		s.primary.Wipe()
	}
	if s.secondary != nil {
		s.secondary.Wipe()
	}
}

// EncryptSecret seals the credential secret under the primary key.
func (s *Service) EncryptSecret(plaintext []byte) (*EncryptedData, error) {
	return Encrypt(s.primary, plaintext)
}

// DecryptSecret opens a credential secret.
func (s *Service) DecryptSecret(data *EncryptedData) ([]byte, error) {
	return Decrypt(s.primary, data)
}

// EncryptDescription seals a description. With double encryption enabled
// the inner envelope is serialized and sealed again under the secondary key.
func (s *Service) EncryptDescription(plaintext []byte) (*EncryptedData, error) {
	inner, err := Encrypt(s.primary, plaintext)
	if err != nil {
		return nil, err
	}
	if s.secondary == nil {
		return inner, nil
	}

	raw, err := json.Marshal(inner)
	if err != nil {
		return nil, fmt.Errorf("marshal inner envelope: %w", err)
	}
	return Encrypt(s.secondary, raw)
}

// DecryptDescription reverses EncryptDescription. If either layer fails the
// whole operation fails with ErrDecryption.
func (s *Service) DecryptDescription(data *EncryptedData) ([]byte, error) {
	if s.secondary == nil {
		return Decrypt(s.primary, data)
	}

	raw, err := Decrypt(s.secondary, data)
	if err != nil {
		return nil, err
	}
	var inner EncryptedData
	if err := json.Unmarshal(raw, &inner); err != nil {
		return nil, common.ErrDecryption
	}
	return Decrypt(s.primary, &inner)
}
