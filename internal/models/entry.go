// Package models defines the vault's persisted types: credential entries,
// backend snapshots and status reports.
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/passvault-app/passvault/internal/common"
	"github.com/passvault-app/passvault/internal/cryptox"
)

// Entry is one stored credential. The secret is always encrypted; the
// description is either plaintext or an opaque double-encrypted envelope,
// never both.
type Entry struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	// EncryptedDescription is set instead of Description when double
	// encryption is enabled.
	EncryptedDescription *cryptox.EncryptedData `json:"encrypted_description,omitempty"`
	Tags                 []string               `json:"tags,omitempty"`
	Username             string                 `json:"username"`
	EncryptedSecret      *cryptox.EncryptedData `json:"encrypted_secret"`
	URL                  string                 `json:"url,omitempty"`
	CreatedAt            time.Time              `json:"created_at"`
	UpdatedAt            time.Time              `json:"updated_at"`
}

// Touch bumps UpdatedAt, keeping the updated_at >= created_at invariant.
func (e *Entry) Touch() {
	e.UpdatedAt = time.Now().UTC()
	if e.UpdatedAt.Before(e.CreatedAt) {
		e.UpdatedAt = e.CreatedAt
	}
}

// HasTag reports whether the entry carries tag (case-insensitive).
func (e *Entry) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// CreateRequest carries the plaintext fields of a new credential. The
// secret never leaves this struct unencrypted.
type CreateRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Username    string   `json:"username"`
	Secret      string   `json:"secret"`
	URL         string   `json:"url"`
}

// Validate checks the required fields.
func (r *CreateRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("%w: title is required", common.ErrValidation)
	}
	if strings.TrimSpace(r.Username) == "" {
		return fmt.Errorf("%w: username is required", common.ErrValidation)
	}
	if r.Secret == "" {
		return fmt.Errorf("%w: secret is required", common.ErrValidation)
	}
	return nil
}

// NewEntry assembles an Entry from a validated request, with a fresh ID and
// timestamps. Encrypted fields are filled in by the caller.
func NewEntry(r *CreateRequest) *Entry {
	now := time.Now().UTC()
	return &Entry{
		ID:        uuid.NewString(),
		Title:     r.Title,
		Tags:      normalizeTags(r.Tags),
		Username:  r.Username,
		URL:       r.URL,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}
