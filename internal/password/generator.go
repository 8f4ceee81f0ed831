// Package password generates random passwords from configurable
// character classes.
package password

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/passvault-app/passvault/internal/common"
)

const (
	lowercase = "abcdefghijklmnopqrstuvwxyz"
	uppercase = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	numbers   = "0123456789"
	symbols   = "!@#$%^&*()_+-=[]{}|;:,.<>?"
)

// GeneratorConfig selects which character classes a generated password
// must draw from. ExcludeChars removes individual characters from the
// pool, e.g. visually ambiguous ones like "0O1l".
type GeneratorConfig struct {
	Length           int    `json:"length"`
	ExcludeChars     string `json:"exclude_chars"`
	RequireUppercase bool   `json:"require_uppercase"`
	RequireLowercase bool   `json:"require_lowercase"`
	RequireNumbers   bool   `json:"require_numbers"`
	RequireSymbols   bool   `json:"require_symbols"`
}

func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		Length:           16,
		RequireUppercase: true,
		RequireLowercase: true,
		RequireNumbers:   true,
		RequireSymbols:   true,
	}
}

// Generate returns a random password of cfg.Length drawn from every
// character class, containing at least one character from each required
// class. Require flags are guarantees, not a pool restriction.
func Generate(cfg GeneratorConfig) (string, error) {
	if cfg.Length < 1 {
		return "", fmt.Errorf("%w: password length must be positive", common.ErrValidation)
	}

	var required []string
	for _, class := range []struct {
		on    bool
		chars string
		name  string
	}{
		{cfg.RequireLowercase, lowercase, "lowercase"},
		{cfg.RequireUppercase, uppercase, "uppercase"},
		{cfg.RequireNumbers, numbers, "numbers"},
		{cfg.RequireSymbols, symbols, "symbols"},
	} {
		if !class.on {
			continue
		}
		remaining := exclude(class.chars, cfg.ExcludeChars)
		if remaining == "" {
			return "", fmt.Errorf("%w: every %s character is excluded", common.ErrValidation, class.name)
		}
		required = append(required, remaining)
	}

	if cfg.Length < len(required) {
		return "", fmt.Errorf("%w: length %d cannot fit %d required classes",
			common.ErrValidation, cfg.Length, len(required))
	}

	pool := exclude(lowercase+uppercase+numbers+symbols, cfg.ExcludeChars)
	if pool == "" {
		return "", fmt.Errorf("%w: every character is excluded", common.ErrValidation)
	}

	out := make([]byte, 0, cfg.Length)
	for _, chars := range required {
		c, err := pick(chars)
		if err != nil {
			return "", err
		}
		out = append(out, c)
	}
	for len(out) < cfg.Length {
		c, err := pick(pool)
		if err != nil {
			return "", err
		}
		out = append(out, c)
	}

	if err := shuffle(out); err != nil {
		return "", err
	}
	return string(out), nil
}

func exclude(chars, excluded string) string {
	if excluded == "" {
		return chars
	}
	var b strings.Builder
	for _, c := range chars {
		if !strings.ContainsRune(excluded, c) {
			b.WriteRune(c)
		}
	}
	return b.String()
}

func pick(chars string) (byte, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(chars))))
	if err != nil {
		return 0, fmt.Errorf("read random: %w", err)
	}
	return chars[n.Int64()], nil
}

func shuffle(b []byte) error {
	for i := len(b) - 1; i > 0; i-- {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return fmt.Errorf("read random: %w", err)
		}
		j := n.Int64()
		b[i], b[j] = b[j], b[i]
	}
	return nil
}
