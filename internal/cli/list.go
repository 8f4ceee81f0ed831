package cli

import (
	"context"
	"strings"

	"github.com/passvault-app/passvault/internal/models"
	"github.com/passvault-app/passvault/internal/storage"
)

func (a *App) List(ctx context.Context, target string) error {
	_, mgr, err := a.unlockedSession()
	if err != nil {
		return err
	}
	t, err := storage.ParseTarget(target)
	if err != nil {
		return err
	}

	entries, err := mgr.GetAll(ctx, t)
	if err != nil {
		return err
	}
	printEntries(entries)
	return nil
}

func (a *App) Search(ctx context.Context, query, target string) error {
	_, mgr, err := a.unlockedSession()
	if err != nil {
		return err
	}
	t, err := storage.ParseTarget(target)
	if err != nil {
		return err
	}

	entries, err := mgr.Search(ctx, query, t)
	if err != nil {
		return err
	}
	printEntries(entries)
	return nil
}

// Show prints one entry with its secret decrypted.
func (a *App) Show(ctx context.Context, id, target string) error {
	svc, mgr, err := a.unlockedSession()
	if err != nil {
		return err
	}
	t, err := storage.ParseTarget(target)
	if err != nil {
		return err
	}

	entry, err := mgr.GetByID(ctx, id, t)
	if err != nil {
		return err
	}

	secret, err := svc.DecryptSecret(entry.EncryptedSecret)
	if err != nil {
		return err
	}

	description := entry.Description
	if entry.EncryptedDescription != nil {
		plain, err := svc.DecryptDescription(entry.EncryptedDescription)
		if err != nil {
			return err
		}
		description = string(plain)
	}

	printlnFn("ID:         ", entry.ID)
	printlnFn("Title:      ", entry.Title)
	printlnFn("Username:   ", entry.Username)
	printlnFn("Secret:     ", string(secret))
	if description != "" {
		printlnFn("Description:", description)
	}
	if len(entry.Tags) > 0 {
		printlnFn("Tags:       ", strings.Join(entry.Tags, ", "))
	}
	if entry.URL != "" {
		printlnFn("URL:        ", entry.URL)
	}
	printlnFn("Updated:    ", entry.UpdatedAt.Format("2006-01-02 15:04:05"))
	return nil
}

func printEntries(entries []models.Entry) {
	if len(entries) == 0 {
		printlnFn("No entries.")
		return
	}
	for _, e := range entries {
		line := e.ID + "  " + e.Title + "  (" + e.Username + ")"
		if len(e.Tags) > 0 {
			line += "  [" + strings.Join(e.Tags, ",") + "]"
		}
		printlnFn(line)
	}
}
