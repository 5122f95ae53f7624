// Package bootstrap prepares a fresh installation: seed accounts and the
// first catalog mirror.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/mrlokans/pdflibrary/internal/accounts"
	"github.com/mrlokans/pdflibrary/internal/auth"
	"github.com/mrlokans/pdflibrary/internal/catalog"
	"github.com/mrlokans/pdflibrary/internal/config"
	"github.com/mrlokans/pdflibrary/internal/entities"
	"github.com/mrlokans/pdflibrary/internal/logger"
)

// Seeds hashes the configured seed passwords.
func Seeds(cfg config.Seed, bcryptCost int) ([]accounts.Seed, error) {
	specs := []struct {
		username, password, name string
		role                     entities.Role
	}{
		{cfg.AdminUsername, cfg.AdminPassword, cfg.AdminName, entities.RoleAdmin},
		{cfg.StudentUsername, cfg.StudentPassword, cfg.StudentName, entities.RolePremium},
	}

	seeds := make([]accounts.Seed, 0, len(specs))
	for _, s := range specs {
		username := accounts.NormalizeUsername(s.username)
		if username == "" {
			continue
		}
		hash, err := auth.HashPassword(s.password, bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("seed account %q: %w", username, err)
		}
		seeds = append(seeds, accounts.Seed{
			Username:     username,
			Name:         s.name,
			PasswordHash: hash,
			Role:         s.role,
		})
	}
	return seeds, nil
}

// Run seeds the account store and mirrors the catalog if it never was.
// Store and catalog failures are logged and do not stop startup; only bad
// seed configuration is returned. syncer may be nil.
func Run(ctx context.Context, store accounts.Store, syncer *catalog.Syncer, cfg *config.Config, log *logger.Logger) error {
	if log == nil {
		log = logger.Nop()
	}

	seeds, err := Seeds(cfg.Seed, cfg.Auth.BcryptCost)
	if err != nil {
		return err
	}

	seeded, err := store.InitializeDefaults(ctx, seeds)
	switch {
	case err != nil:
		log.Warn().Err(err).Msg("account store initialization failed")
	case seeded:
		log.Info().Int("accounts", len(seeds)).Msg("seed accounts created")
	default:
		log.Debug().Msg("account store already initialized")
	}

	if syncer == nil {
		return nil
	}
	res, err := syncer.EnsureMirrored(ctx)
	switch {
	case err != nil:
		log.Warn().Err(err).Str("path", cfg.Catalog.Path).Msg("initial catalog mirror failed")
	case !res.Skipped:
		log.Info().Int("documents", res.Documents).Msg("catalog mirrored on startup")
	}
	return nil
}
