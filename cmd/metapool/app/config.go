package app

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/metapool/pkg/constants"
	"github.com/agentstation/metapool/pkg/pool"
)

// envPrefix is prepended to every environment variable the CLI reads.
const envPrefix = "METAPOOL"

// Config holds the application configuration loaded from various sources
// including config files, environment variables, and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	// Config file
	ConfigFile string

	// Pool configuration
	MetadataDirs        []string
	Locale              string
	Flags               string
	CacheFlags          string
	SystemCacheDir      string
	UserCacheDir        string
	ScreenshotService   string
	PreferLocalMetainfo bool
	AutoUpdatesEnabled  bool
	AutoUpdateInterval  time.Duration

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (handled by cobra)
// 2. Environment variables (METAPOOL_*)
// 3. .env files
// 4. Config file (~/.metapool.yaml or ./.metapool.yaml)
// 5. Defaults
func LoadConfig() (*Config, error) {
	return loadConfig(viper.New())
}

func loadConfig(v *viper.Viper) (*Config, error) {
	loadEnvFiles()

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	v.SetDefault("flags", pool.DefaultFlags.String())
	v.SetDefault("cache_flags", pool.DefaultCacheFlags.String())
	v.SetDefault("system_cache_dir", constants.SystemCacheDir)
	v.SetDefault("auto_update_interval", constants.DefaultReloadInterval)

	if configFile := v.GetString("config"); configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.SetConfigType("yaml")
		v.SetConfigName(".metapool")
	}

	// a missing config file is fine
	_ = v.ReadInConfig()

	config := &Config{
		Verbose: v.GetBool("verbose"),
		Quiet:   v.GetBool("quiet"),
		NoColor: v.GetBool("no_color"),
		Format:  v.GetString("format"),

		ConfigFile: v.ConfigFileUsed(),

		MetadataDirs:        splitList(v.GetStringSlice("metadata_dirs")),
		Locale:              v.GetString("locale"),
		Flags:               v.GetString("flags"),
		CacheFlags:          v.GetString("cache_flags"),
		SystemCacheDir:      v.GetString("system_cache_dir"),
		UserCacheDir:        v.GetString("user_cache_dir"),
		ScreenshotService:   v.GetString("screenshot_service"),
		PreferLocalMetainfo: v.GetBool("prefer_local_metainfo"),
		AutoUpdatesEnabled:  v.GetBool("auto_updates_enabled"),
		AutoUpdateInterval:  v.GetDuration("auto_update_interval"),

		LogLevel:  v.GetString("log_level"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "auto"),
		LogOutput: getEnvOrDefault("LOG_OUTPUT", "stderr"),
	}

	if config.AutoUpdateInterval <= 0 {
		config.AutoUpdateInterval = constants.DefaultReloadInterval
	}
	return config, nil
}

// UpdateFromFlags updates config values from parsed command flags.
// This should be called after cobra parses flags to ensure flag
// values take precedence over config file and env vars.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, format, logLevel string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	if format != "" {
		c.Format = format
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
}

// PoolFlags parses the configured pool flags, adding prefer-local-metainfo
// when it is enabled on its own.
func (c *Config) PoolFlags() (pool.Flags, error) {
	flags, err := pool.ParseFlags(c.Flags)
	if err != nil {
		return 0, err
	}
	if c.PreferLocalMetainfo {
		flags |= pool.FlagPreferLocalMetainfo
	}
	return flags, nil
}

// loadEnvFiles loads environment variables from .env files.
// .env.local overrides .env.
func loadEnvFiles() {
	_ = godotenv.Load(".env")
	_ = godotenv.Overload(".env.local")
}

// splitList accepts both YAML lists and comma separated environment values.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}

// getEnvOrDefault returns the environment variable value or the default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
