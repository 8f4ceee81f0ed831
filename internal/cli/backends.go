package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/passvault-app/passvault/internal/common"
	"github.com/passvault-app/passvault/internal/config"
	"github.com/passvault-app/passvault/internal/cryptox"
	"github.com/passvault-app/passvault/internal/logging"
	"github.com/passvault-app/passvault/internal/manager"
	"github.com/passvault-app/passvault/internal/storage"
	"github.com/passvault-app/passvault/internal/storage/github"
	"github.com/passvault-app/passvault/internal/storage/localfs"
	"github.com/passvault-app/passvault/internal/storage/postgres"
	"github.com/passvault-app/passvault/internal/storage/s3"
)

// buildManager wires every configured backend into a manager. Disabled
// backends are registered too so status can report them.
func buildManager(ctx context.Context, cfg *config.Config, svc *cryptox.Service, logger logging.Logger) (*manager.Manager, error) {
	backends := []manager.Backend{{
		Target:   storage.TargetLocal,
		Store:    localfs.New(cfg.Local.Path),
		Priority: cfg.Local.Priority,
		Enabled:  cfg.Local.Enabled,
	}}

	if cfg.GitHub.Enabled {
		store, err := buildGitHubStore(&cfg.GitHub)
		if err != nil {
			return nil, err
		}
		backends = append(backends, manager.Backend{
			Target:   storage.TargetRemote,
			Store:    store,
			Priority: cfg.GitHub.Priority,
			Enabled:  true,
		})
	}

	if cfg.S3.Enabled {
		store, err := s3.NewStore(ctx, cfg.S3.Config)
		if err != nil {
			return nil, err
		}
		backends = append(backends, manager.Backend{
			Target:   storage.TargetS3,
			Store:    store,
			Priority: cfg.S3.Priority,
			Enabled:  true,
		})
	}

	if cfg.Postgres.Enabled {
		store, err := postgres.Open(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, err
		}
		backends = append(backends, manager.Backend{
			Target:   storage.TargetPostgres,
			Store:    store,
			Priority: cfg.Postgres.Priority,
			Enabled:  true,
		})
	}

	return manager.New(svc, logger, backends...)
}

func buildGitHubStore(gc *config.GitHubConfig) (*github.Store, error) {
	if gc.Owner == "" || gc.Repo == "" {
		return nil, fmt.Errorf("%w: github backend needs owner and repo", common.ErrValidation)
	}

	if gc.Token != "" {
		client := github.NewClient(gc.Owner, gc.Repo, gc.Branch, gc.Token)
		return github.NewStore(client, gc.Path), nil
	}

	if gc.AppID == "" || gc.InstallationID == 0 || gc.PrivateKeyPath == "" {
		return nil, fmt.Errorf("%w: github backend needs a token or app credentials", common.ErrValidation)
	}
	pem, err := os.ReadFile(gc.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read github app key: %w", err)
	}
	client, err := github.NewAppClient(gc.Owner, gc.Repo, gc.Branch, gc.AppID, gc.InstallationID, pem)
	if err != nil {
		return nil, err
	}
	return github.NewStore(client, gc.Path), nil
}
