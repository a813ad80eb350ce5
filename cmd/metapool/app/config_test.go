package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/metapool/pkg/constants"
	"github.com/agentstation/metapool/pkg/pool"
)

func TestLoadConfig_Defaults(t *testing.T) {
	config, err := loadConfig(viper.New())
	require.NoError(t, err)

	assert.Equal(t, pool.DefaultFlags.String(), config.Flags)
	assert.Equal(t, pool.DefaultCacheFlags.String(), config.CacheFlags)
	assert.Equal(t, constants.SystemCacheDir, config.SystemCacheDir)
	assert.Equal(t, constants.DefaultReloadInterval, config.AutoUpdateInterval)
	assert.NotEmpty(t, config.LogFormat)
	assert.NotEmpty(t, config.LogOutput)
}

func TestLoadConfig_Environment(t *testing.T) {
	t.Setenv("METAPOOL_VERBOSE", "true")
	t.Setenv("METAPOOL_FORMAT", "yaml")
	t.Setenv("METAPOOL_LOCALE", "de_DE")
	t.Setenv("METAPOOL_FLAGS", "read-collection|read-desktop-files")
	t.Setenv("METAPOOL_METADATA_DIRS", "/srv/a, /srv/b")
	t.Setenv("METAPOOL_AUTO_UPDATE_INTERVAL", "30m")
	t.Setenv("METAPOOL_AUTO_UPDATES_ENABLED", "true")

	config, err := loadConfig(viper.New())
	require.NoError(t, err)

	assert.True(t, config.Verbose)
	assert.Equal(t, "yaml", config.Format)
	assert.Equal(t, "de_DE", config.Locale)
	assert.Equal(t, []string{"/srv/a", "/srv/b"}, config.MetadataDirs)
	assert.Equal(t, 30*time.Minute, config.AutoUpdateInterval)
	assert.True(t, config.AutoUpdatesEnabled)

	flags, err := config.PoolFlags()
	require.NoError(t, err)
	assert.Equal(t, pool.FlagReadCollection|pool.FlagReadDesktopFiles, flags)
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metapool.yaml")
	content := `locale: fr_FR
cache_flags: use-user
user_cache_dir: /tmp/metapool-user
metadata_dirs:
  - /opt/data
auto_update_interval: 5m
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	v := viper.New()
	v.Set("config", path)
	config, err := loadConfig(v)
	require.NoError(t, err)

	assert.Equal(t, path, config.ConfigFile)
	assert.Equal(t, "fr_FR", config.Locale)
	assert.Equal(t, "use-user", config.CacheFlags)
	assert.Equal(t, "/tmp/metapool-user", config.UserCacheDir)
	assert.Equal(t, []string{"/opt/data"}, config.MetadataDirs)
	assert.Equal(t, 5*time.Minute, config.AutoUpdateInterval)
}

func TestConfig_UpdateFromFlags(t *testing.T) {
	config := &Config{Format: "yaml", LogLevel: "warn"}

	config.UpdateFromFlags(true, false, true, "", "")
	assert.True(t, config.Verbose)
	assert.True(t, config.NoColor)
	assert.Equal(t, "yaml", config.Format, "empty flag keeps the configured format")
	assert.Equal(t, "warn", config.LogLevel)

	config.UpdateFromFlags(false, true, false, "json", "debug")
	assert.False(t, config.Verbose)
	assert.True(t, config.Quiet)
	assert.Equal(t, "json", config.Format)
	assert.Equal(t, "debug", config.LogLevel)
}

func TestConfig_PoolFlags(t *testing.T) {
	t.Run("prefer local metainfo", func(t *testing.T) {
		config := &Config{Flags: "read-metainfo", PreferLocalMetainfo: true}
		flags, err := config.PoolFlags()
		require.NoError(t, err)
		assert.Equal(t, pool.FlagReadMetainfo|pool.FlagPreferLocalMetainfo, flags)
	})

	t.Run("unknown flag", func(t *testing.T) {
		config := &Config{Flags: "read-minds"}
		_, err := config.PoolFlags()
		require.Error(t, err)
	})
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitList([]string{"a,b", " c ", ""}))
	assert.Nil(t, splitList(nil))
}
