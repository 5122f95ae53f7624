package settings

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/pdflibrary/internal/entities"
)

func setupTestDB(t *testing.T) *Repository {
	dbPath := filepath.Join(t.TempDir(), "settings.db")

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.Setting{})
	require.NoError(t, err)

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})

	return NewRepository(db)
}

func TestRepository_SetSetting_New(t *testing.T) {
	repo := setupTestDB(t)

	err := repo.SetSetting(entities.SettingKeyCatalogChecksum, "abc")
	require.NoError(t, err)

	setting, err := repo.GetSetting(entities.SettingKeyCatalogChecksum)
	require.NoError(t, err)
	assert.Equal(t, entities.SettingKeyCatalogChecksum, setting.Key)
	assert.Equal(t, "abc", setting.Value)
}

func TestRepository_SetSetting_Update(t *testing.T) {
	repo := setupTestDB(t)

	require.NoError(t, repo.SetSetting(entities.SettingKeyCatalogChecksum, "old"))
	require.NoError(t, repo.SetSetting(entities.SettingKeyCatalogChecksum, "new"))

	value, err := repo.GetValue(entities.SettingKeyCatalogChecksum)
	require.NoError(t, err)
	assert.Equal(t, "new", value)
}

func TestRepository_GetSetting_NotFound(t *testing.T) {
	repo := setupTestDB(t)

	_, err := repo.GetSetting("nonexistent")
	assert.Error(t, err)

	value, err := repo.GetValue("nonexistent")
	require.NoError(t, err)
	assert.Empty(t, value)
}

func TestRepository_Has(t *testing.T) {
	repo := setupTestDB(t)

	ok, err := repo.Has(entities.SettingKeyAccountsSeeded)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.SetSetting(entities.SettingKeyAccountsSeeded, "true"))

	ok, err = repo.Has(entities.SettingKeyAccountsSeeded)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRepository_DeleteSetting(t *testing.T) {
	repo := setupTestDB(t)

	require.NoError(t, repo.SetSetting("temp", "value"))
	require.NoError(t, repo.DeleteSetting("temp"))

	ok, err := repo.Has("temp")
	require.NoError(t, err)
	assert.False(t, ok)
}
