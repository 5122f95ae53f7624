package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mrlokans/pdflibrary/internal/auth"
	"github.com/mrlokans/pdflibrary/internal/catalog"
	"github.com/mrlokans/pdflibrary/internal/config"
	"github.com/mrlokans/pdflibrary/internal/database"
	dbaccounts "github.com/mrlokans/pdflibrary/internal/database/accounts"
	"github.com/mrlokans/pdflibrary/internal/database/documents"
	"github.com/mrlokans/pdflibrary/internal/database/settings"
	"github.com/mrlokans/pdflibrary/internal/entities"
)

func testConfig(catalogPath string) *config.Config {
	cfg := &config.Config{}
	cfg.Auth.BcryptCost = 4
	cfg.Catalog.Path = catalogPath
	cfg.Seed = config.Seed{
		AdminUsername:   "Admin",
		AdminPassword:   "admin123",
		AdminName:       "Admin User",
		StudentUsername: "student",
		StudentPassword: "student123",
		StudentName:     "Student User",
	}
	return cfg
}

func TestSeeds(t *testing.T) {
	seeds, err := Seeds(testConfig("").Seed, 4)
	require.NoError(t, err)
	require.Len(t, seeds, 2)

	assert.Equal(t, "admin", seeds[0].Username)
	assert.Equal(t, entities.RoleAdmin, seeds[0].Role)
	assert.NoError(t, auth.CheckPassword("admin123", seeds[0].PasswordHash))

	assert.Equal(t, "student", seeds[1].Username)
	assert.Equal(t, entities.RolePremium, seeds[1].Role)
	assert.NoError(t, auth.CheckPassword("student123", seeds[1].PasswordHash))
}

func TestSeeds_SkipsBlankUsernameAndRejectsBlankPassword(t *testing.T) {
	cfg := testConfig("").Seed
	cfg.StudentUsername = ""
	seeds, err := Seeds(cfg, 4)
	require.NoError(t, err)
	assert.Len(t, seeds, 1)

	cfg = testConfig("").Seed
	cfg.AdminPassword = ""
	_, err = Seeds(cfg, 4)
	assert.ErrorIs(t, err, auth.ErrPasswordRequired)
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	db, err := database.NewDatabase(filepath.Join(dir, "app.db"), database.Options{
		WithAccounts: true,
		LogLevel:     gormlogger.Silent,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	catalogPath := filepath.Join(dir, "pdfs.json")
	require.NoError(t, os.WriteFile(catalogPath,
		[]byte(`{"public_pdfs":[{"id":"a","title":"A"}],"premium_pdfs":[{"id":"b","title":"B"}]}`), 0o600))

	store := dbaccounts.NewLocalStore(db.DB)
	docs := documents.NewRepository(db.DB)
	syncer := catalog.NewSyncer(catalogPath, docs, settings.NewRepository(db.DB), nil, nil)
	cfg := testConfig(catalogPath)
	ctx := context.Background()

	require.NoError(t, Run(ctx, store, syncer, cfg, nil))

	acc, err := store.FindAccount(ctx, "student")
	require.NoError(t, err)
	require.NotNil(t, acc)
	assert.True(t, acc.Verified)

	count, err := docs.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	// second run keeps existing data
	require.NoError(t, Run(ctx, store, syncer, cfg, nil))
	list, err := store.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestRun_MissingCatalogIsNotFatal(t *testing.T) {
	dir := t.TempDir()
	db, err := database.NewDatabase(filepath.Join(dir, "app.db"), database.Options{
		WithAccounts: true,
		LogLevel:     gormlogger.Silent,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	missing := filepath.Join(dir, "missing.json")
	syncer := catalog.NewSyncer(missing, documents.NewRepository(db.DB), settings.NewRepository(db.DB), nil, nil)

	err = Run(context.Background(), dbaccounts.NewLocalStore(db.DB), syncer, testConfig(missing), nil)
	assert.NoError(t, err)
}
