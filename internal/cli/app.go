// Package cli implements the interactive PassVault shell: unlocking the
// vault, entry CRUD, cross-backend sync and status reporting.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/passvault-app/passvault/internal/common"
	"github.com/passvault-app/passvault/internal/config"
	"github.com/passvault-app/passvault/internal/cryptox"
	"github.com/passvault-app/passvault/internal/logging"
	"github.com/passvault-app/passvault/internal/manager"
)

type App struct {
	config *config.Config
	logger logging.Logger

	// session state, shared with the status watcher goroutine
	mu      sync.RWMutex
	crypto  *cryptox.Service
	manager *manager.Manager

	reader *bufio.Reader
}

func NewApp(cfg *config.Config, logger logging.Logger) *App {
	if logger == nil {
		logger = logging.NewDiscard()
	}
	return &App{
		config: cfg,
		logger: logger,
		reader: bufio.NewReader(os.Stdin),
	}
}

// session returns the current session state under the read lock.
func (a *App) session() (*cryptox.Service, *manager.Manager) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.crypto, a.manager
}

// unlockedSession is session plus the locked-vault check every
// key-dependent command starts with.
func (a *App) unlockedSession() (*cryptox.Service, *manager.Manager, error) {
	svc, mgr := a.session()
	if svc == nil {
		return nil, nil, fmt.Errorf("%w: run 'unlock' first", common.ErrLocked)
	}
	return svc, mgr, nil
}

func (a *App) isUnlocked() bool {
	svc, _ := a.session()
	return svc != nil
}

// Unlock prompts for the master password and derives the session keys.
// On a fresh config it runs first-time setup: new salts are generated and
// the key verifier is persisted so later unlocks can reject a wrong
// password before any decryption is attempted.
func (a *App) Unlock(ctx context.Context) error {
	if a.isUnlocked() {
		printlnFn("Vault is already unlocked.")
		return nil
	}

	firstRun := !a.config.Crypto.Initialized()
	prompt := "Enter master password: "
	if firstRun {
		printlnFn("No vault found. Setting up a new one.")
		prompt = "Choose a master password: "
	}

	secret, err := getPassword(prompt, os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(secret)

	if firstRun {
		confirm, err := getPassword("Repeat master password: ", os.Stdout)
		if err != nil {
			return err
		}
		defer common.WipeByteArray(confirm)
		if string(secret) != string(confirm) {
			return fmt.Errorf("%w: passwords do not match", common.ErrValidation)
		}
		if err := a.initializeCrypto(ctx, secret); err != nil {
			return err
		}
	} else {
		ok, err := cryptox.VerifySecret(secret, a.config.Crypto.Salt, a.config.Crypto.KDF, a.config.Crypto.Verifier)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: invalid master password", common.ErrValidation)
		}
	}

	svc, err := buildCryptoService(secret, &a.config.Crypto)
	if err != nil {
		return err
	}

	mgr, err := buildManager(ctx, a.config, svc, a.logger)
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.crypto = svc
	a.manager = mgr
	a.mu.Unlock()

	printlnFn("Vault unlocked.")
	return nil
}

// initializeCrypto runs first-time setup: fresh salts, a persisted
// verifier, and the saved config document.
func (a *App) initializeCrypto(ctx context.Context, secret []byte) error {
	a.config.Crypto.Salt = cryptox.NewSalt()
	a.config.Crypto.SecondarySalt = cryptox.NewSalt()

	key, err := cryptox.DeriveMasterKey(secret, a.config.Crypto.Salt, a.config.Crypto.KDF)
	if err != nil {
		return err
	}
	defer key.Wipe()
	a.config.Crypto.Verifier = key.Verifier()

	if err := a.config.Save(); err != nil {
		return err
	}
	a.logger.Info(ctx, "vault initialized", "config", a.config.Path())
	return nil
}

// Lock zeroes the session keys and drops the session; entries stay
// encrypted at rest throughout.
func (a *App) Lock(ctx context.Context) error {
	a.mu.Lock()
	if a.crypto != nil {
		a.crypto.Wipe()
	}
	a.crypto = nil
	a.manager = nil
	a.mu.Unlock()

	printlnFn("Vault locked.")
	return nil
}

func buildCryptoService(secret []byte, cc *config.CryptoConfig) (*cryptox.Service, error) {
	primary, err := cryptox.DeriveMasterKey(secret, cc.Salt, cc.KDF)
	if err != nil {
		return nil, err
	}
	if !cc.DoubleEncryption {
		return cryptox.NewService(primary), nil
	}

	secondary, err := cryptox.DeriveMasterKey(secret, cc.SecondarySalt, cc.KDF)
	if err != nil {
		return nil, err
	}
	return cryptox.NewServiceWithDouble(primary, secondary), nil
}

func (a *App) Run(ctx context.Context) {
	printlnFn("PassVault CLI (type 'help' for commands)")

	if interval := a.config.StatusCheckInterval.Duration; interval > 0 {
		watchCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go a.startStatusWatcher(watchCtx, interval)
	}

	runREPL(ctx, a, a.prompt, bufio.NewScanner(os.Stdin))
}

func (a *App) prompt() string {
	if a.isUnlocked() {
		return "unlocked"
	}
	return "locked"
}

// startStatusWatcher periodically probes backend health and logs
// transitions, mirroring what the status command shows on demand.
func (a *App) startStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	connected := map[string]bool{}
	for {
		select {
		case <-ticker.C:
			_, mgr := a.session()
			if mgr == nil {
				continue
			}
			probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			status := mgr.StorageStatus(probeCtx)
			cancel()

			for target, st := range status {
				if !st.Enabled {
					continue
				}
				was, seen := connected[string(target)]
				if seen && was != st.Connected {
					a.logger.Warn(ctx, "storage connectivity changed",
						"storage", string(target), "connected", st.Connected)
				}
				connected[string(target)] = st.Connected
			}
		case <-ctx.Done():
			return
		}
	}
}
