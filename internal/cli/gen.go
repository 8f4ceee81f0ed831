package cli

import (
	"context"
	"encoding/json"

	"github.com/passvault-app/passvault/internal/password"
)

// Generate prints a fresh password using the configured policy. Works
// while locked: generation needs no key material.
func (a *App) Generate(ctx context.Context) error {
	pw, err := password.Generate(a.config.Generator)
	if err != nil {
		return err
	}
	printlnFn(pw)
	return nil
}

// ShowConfig prints the current configuration with credentials redacted.
func (a *App) ShowConfig(ctx context.Context) error {
	redacted := *a.config
	if redacted.GitHub.Token != "" {
		redacted.GitHub.Token = "***"
	}
	if redacted.S3.SecretKey != "" {
		redacted.S3.SecretKey = "***"
	}
	if redacted.Postgres.DSN != "" {
		redacted.Postgres.DSN = "***"
	}

	data, err := json.MarshalIndent(&redacted, "", "  ")
	if err != nil {
		return err
	}
	printlnFn(string(data))
	return nil
}
