package cli

import (
	"context"
	"fmt"

	"github.com/passvault-app/passvault/internal/storage"
)

func (a *App) Sync(ctx context.Context, from, to string) error {
	_, mgr, err := a.unlockedSession()
	if err != nil {
		return err
	}

	src, err := storage.ParseTarget(from)
	if err != nil {
		return err
	}
	dst, err := storage.ParseTarget(to)
	if err != nil {
		return err
	}

	report, err := mgr.Sync(ctx, src, dst)
	if report != nil {
		printlnFn(fmt.Sprintf("Sync %s -> %s: %d added, %d updated, %d skipped",
			report.From, report.To, report.Added, report.Updated, report.Skipped))
	}
	return err
}

func (a *App) Status(ctx context.Context) error {
	_, mgr, err := a.unlockedSession()
	if err != nil {
		return err
	}

	status := mgr.StorageStatus(ctx)
	for target, st := range status {
		switch {
		case !st.Enabled:
			printlnFn(target.String() + ": disabled")
		case !st.Connected:
			printlnFn(target.String() + ": unreachable (" + st.Error + ")")
		default:
			line := fmt.Sprintf("%s: connected, %d entries", target, st.EntryCount)
			if st.LastSync != nil {
				line += ", last sync " + st.LastSync.Format("2006-01-02 15:04:05")
			}
			printlnFn(line)
		}
	}
	return nil
}
