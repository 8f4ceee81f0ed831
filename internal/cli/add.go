package cli

import (
	"context"
	"os"
	"strings"

	"github.com/passvault-app/passvault/internal/common"
	"github.com/passvault-app/passvault/internal/manager"
	"github.com/passvault-app/passvault/internal/models"
	"github.com/passvault-app/passvault/internal/password"
)

// Add interactively collects a new entry and writes it to every enabled
// backend. An empty secret generates one with the configured policy.
func (a *App) Add(ctx context.Context) error {
	_, mgr, err := a.unlockedSession()
	if err != nil {
		return err
	}

	req, err := a.promptEntry()
	if err != nil {
		return err
	}

	entry, report, err := mgr.Add(ctx, *req)
	if entry != nil {
		printlnFn("Added entry", entry.ID)
	}
	reportWrites(report)
	return err
}

// Update re-collects the entry's fields and re-encrypts them.
func (a *App) Update(ctx context.Context, id string) error {
	_, mgr, err := a.unlockedSession()
	if err != nil {
		return err
	}

	req, err := a.promptEntry()
	if err != nil {
		return err
	}

	entry, report, err := mgr.Update(ctx, id, *req)
	if entry != nil {
		printlnFn("Updated entry", entry.ID)
	}
	reportWrites(report)
	return err
}

func (a *App) Delete(ctx context.Context, id string) error {
	_, mgr, err := a.unlockedSession()
	if err != nil {
		return err
	}

	report, err := mgr.Delete(ctx, id)
	if err == nil {
		printlnFn("Deleted entry", id)
	}
	reportWrites(report)
	return err
}

func (a *App) promptEntry() (*models.CreateRequest, error) {
	title, err := getSimpleText(a.reader, "Title", os.Stdout)
	if err != nil {
		return nil, err
	}
	username, err := getSimpleText(a.reader, "Username", os.Stdout)
	if err != nil {
		return nil, err
	}

	secret, err := getPassword("Secret (empty to generate): ", os.Stdout)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(secret)

	secretStr := string(secret)
	if secretStr == "" {
		secretStr, err = password.Generate(a.config.Generator)
		if err != nil {
			return nil, err
		}
		printlnFn("Generated secret:", secretStr)
	}

	description, err := getSimpleText(a.reader, "Description (optional)", os.Stdout)
	if err != nil {
		return nil, err
	}
	tagsLine, err := getSimpleText(a.reader, "Tags, comma separated (optional)", os.Stdout)
	if err != nil {
		return nil, err
	}
	url, err := getSimpleText(a.reader, "URL (optional)", os.Stdout)
	if err != nil {
		return nil, err
	}

	return &models.CreateRequest{
		Title:       title,
		Username:    username,
		Secret:      secretStr,
		Description: description,
		Tags:        splitTags(tagsLine),
		URL:         url,
	}, nil
}

func splitTags(line string) []string {
	if strings.TrimSpace(line) == "" {
		return nil
	}
	parts := strings.Split(line, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func reportWrites(report *manager.WriteReport) {
	if report == nil {
		return
	}
	for _, target := range report.Succeeded {
		printlnFn("  written:", target.String())
	}
	for target, err := range report.Failed {
		printlnFn("  failed:", target.String(), "-", err.Error())
	}
}
