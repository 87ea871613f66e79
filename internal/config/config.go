package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	defaultDatabaseFile = "tourdesk.db"
	defaultLogLevel     = "info"
	defaultLogFormat    = "text"
	defaultLogMaxSizeMB = 10
	defaultLogMaxFiles  = 5
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Database DatabaseConfig `toml:"database"`
	Samples  SamplesConfig  `toml:"samples"`
	Mirror   MirrorConfig   `toml:"mirror"`
	Logging  LoggingConfig  `toml:"logging"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

// SamplesConfig controls seeding of empty collections on start.
type SamplesConfig struct {
	Enabled bool `toml:"enabled"`
}

// MirrorConfig locates the JSON snapshot mirror. An empty Dir disables it.
type MirrorConfig struct {
	Dir string `toml:"dir"`
}

type LoggingConfig struct {
	Level     string `toml:"level"`
	Format    string `toml:"format"`
	File      string `toml:"file"`
	MaxSizeMB int    `toml:"max_size_mb"`
	MaxFiles  int    `toml:"max_files"`
}

type LoadOptions struct {
	ConfigPath string
	Env        map[string]string
	Flags      FlagOverrides
}

// FlagOverrides holds command-line values. Nil fields were not set.
type FlagOverrides struct {
	DatabasePath *string
	LogLevel     *string
	Samples      *bool
}

// DefaultConfig returns the built-in configuration. The database lives in
// the per-user data directory.
func DefaultConfig() Config {
	dbPath := defaultDatabaseFile
	if home, err := dataHome(LoadOptions{}); err == nil {
		dbPath = filepath.Join(home, defaultDatabaseFile)
	}
	return defaultConfigWithPath(dbPath)
}

func defaultConfigWithPath(dbPath string) Config {
	return Config{
		Database: DatabaseConfig{
			Path: dbPath,
		},
		Samples: SamplesConfig{
			Enabled: true,
		},
		Mirror: MirrorConfig{
			Dir: "",
		},
		Logging: LoggingConfig{
			Level:     defaultLogLevel,
			Format:    defaultLogFormat,
			File:      "",
			MaxSizeMB: defaultLogMaxSizeMB,
			MaxFiles:  defaultLogMaxFiles,
		},
	}
}

// Load resolves the configuration. Precedence, lowest first: defaults,
// config file, TOURDESK_* environment, flags.
func Load(opts LoadOptions) (Config, error) {
	home, err := dataHome(opts)
	if err != nil {
		return Config{}, fmt.Errorf("resolve data home: %w", err)
	}
	cfg := defaultConfigWithPath(filepath.Join(home, defaultDatabaseFile))

	configPath, err := resolveConfigPath(opts)
	if err != nil {
		return Config{}, fmt.Errorf("resolve config path: %w", err)
	}
	if err := loadAndApplyFile(configPath, &cfg); err != nil {
		return Config{}, err
	}

	if err := applyEnvOverrides(&cfg, opts); err != nil {
		return Config{}, err
	}
	applyFlagOverrides(&cfg, opts.Flags)

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type rawConfig struct {
	Database *rawDatabase `toml:"database"`
	Samples  *rawSamples  `toml:"samples"`
	Mirror   *rawMirror   `toml:"mirror"`
	Logging  *rawLogging  `toml:"logging"`
}

type rawDatabase struct {
	Path *string `toml:"path"`
}

type rawSamples struct {
	Enabled *bool `toml:"enabled"`
}

type rawMirror struct {
	Dir *string `toml:"dir"`
}

type rawLogging struct {
	Level     *string `toml:"level"`
	Format    *string `toml:"format"`
	File      *string `toml:"file"`
	MaxSizeMB *int    `toml:"max_size_mb"`
	MaxFiles  *int    `toml:"max_files"`
}

func loadAndApplyFile(path string, cfg *Config) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config file %q: %w", path, err)
	}

	var raw rawConfig
	if err := toml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: parse TOML file %q: %v", ErrInvalidConfig, path, err)
	}

	applyRawConfig(cfg, raw, filepath.Dir(path))
	return nil
}

// applyRawConfig copies the fields present in raw. Relative paths are
// resolved against the config file's directory.
func applyRawConfig(cfg *Config, raw rawConfig, base string) {
	if raw.Database != nil {
		setPath(raw.Database.Path, &cfg.Database.Path, base)
	}
	if raw.Samples != nil {
		setValue(raw.Samples.Enabled, &cfg.Samples.Enabled)
	}
	if raw.Mirror != nil {
		setPath(raw.Mirror.Dir, &cfg.Mirror.Dir, base)
	}
	if raw.Logging != nil {
		setValue(raw.Logging.Level, &cfg.Logging.Level)
		setValue(raw.Logging.Format, &cfg.Logging.Format)
		setPath(raw.Logging.File, &cfg.Logging.File, base)
		setValue(raw.Logging.MaxSizeMB, &cfg.Logging.MaxSizeMB)
		setValue(raw.Logging.MaxFiles, &cfg.Logging.MaxFiles)
	}
}

func applyEnvOverrides(cfg *Config, opts LoadOptions) error {
	if value, ok := lookupEnv(opts, "TOURDESK_DB_PATH"); ok {
		cfg.Database.Path = value
	}

	if value, ok := lookupEnv(opts, "TOURDESK_SAMPLES_ENABLED"); ok {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: parse TOURDESK_SAMPLES_ENABLED: %v", ErrInvalidConfig, err)
		}
		cfg.Samples.Enabled = parsed
	}

	if value, ok := lookupEnv(opts, "TOURDESK_MIRROR_DIR"); ok {
		cfg.Mirror.Dir = value
	}

	if value, ok := lookupEnv(opts, "TOURDESK_LOG_LEVEL"); ok {
		cfg.Logging.Level = value
	}
	if value, ok := lookupEnv(opts, "TOURDESK_LOG_FORMAT"); ok {
		cfg.Logging.Format = value
	}
	if value, ok := lookupEnv(opts, "TOURDESK_LOG_FILE"); ok {
		cfg.Logging.File = value
	}
	if value, ok := lookupEnv(opts, "TOURDESK_LOG_MAX_SIZE_MB"); ok {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: parse TOURDESK_LOG_MAX_SIZE_MB: %v", ErrInvalidConfig, err)
		}
		cfg.Logging.MaxSizeMB = parsed
	}
	if value, ok := lookupEnv(opts, "TOURDESK_LOG_MAX_FILES"); ok {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: parse TOURDESK_LOG_MAX_FILES: %v", ErrInvalidConfig, err)
		}
		cfg.Logging.MaxFiles = parsed
	}

	return nil
}

func applyFlagOverrides(cfg *Config, flags FlagOverrides) {
	setValue(flags.DatabasePath, &cfg.Database.Path)
	setValue(flags.LogLevel, &cfg.Logging.Level)
	setValue(flags.Samples, &cfg.Samples.Enabled)
}

func validate(cfg Config) error {
	if strings.TrimSpace(cfg.Database.Path) == "" {
		return fmt.Errorf("%w: database.path must not be empty", ErrInvalidConfig)
	}
	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: logging.level must be one of debug, info, warn, error; got %q", ErrInvalidConfig, cfg.Logging.Level)
	}
	switch cfg.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: logging.format must be text or json; got %q", ErrInvalidConfig, cfg.Logging.Format)
	}
	if cfg.Logging.MaxSizeMB <= 0 {
		return fmt.Errorf("%w: logging.max_size_mb must be > 0", ErrInvalidConfig)
	}
	if cfg.Logging.MaxFiles < 0 {
		return fmt.Errorf("%w: logging.max_files must be >= 0", ErrInvalidConfig)
	}
	return nil
}

func setValue[T any](raw *T, target *T) {
	if raw != nil {
		*target = *raw
	}
}

func setPath(raw *string, target *string, base string) {
	if raw == nil {
		return
	}
	p := *raw
	if p != "" && !filepath.IsAbs(p) {
		p = filepath.Join(base, p)
	}
	*target = p
}

func resolveConfigPath(opts LoadOptions) (string, error) {
	if opts.ConfigPath != "" {
		return opts.ConfigPath, nil
	}
	if value, ok := lookupEnv(opts, "TOURDESK_CONFIG_PATH"); ok {
		return value, nil
	}
	return defaultConfigPath(opts)
}

func lookupEnv(opts LoadOptions, key string) (string, bool) {
	if opts.Env != nil {
		if value, ok := opts.Env[key]; ok {
			return value, true
		}
	}
	return os.LookupEnv(key)
}

// dataHome is the directory holding the database by default.
func dataHome(opts LoadOptions) (string, error) {
	if value, ok := lookupEnv(opts, "TOURDESK_HOME"); ok {
		return value, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve user home: %w", err)
	}

	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Application Support", "Tourdesk"), nil
	}

	base := filepath.Join(home, ".local", "share")
	if xdgDataHome, ok := lookupEnv(opts, "XDG_DATA_HOME"); ok && xdgDataHome != "" {
		base = xdgDataHome
	}
	return filepath.Join(base, "tourdesk"), nil
}

func defaultConfigPath(opts LoadOptions) (string, error) {
	if value, ok := lookupEnv(opts, "TOURDESK_HOME"); ok {
		return filepath.Join(value, "config.toml"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve user home: %w", err)
	}

	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Application Support", "Tourdesk", "config.toml"), nil
	}

	configHome := filepath.Join(home, ".config")
	if xdgConfigHome, ok := lookupEnv(opts, "XDG_CONFIG_HOME"); ok && xdgConfigHome != "" {
		configHome = xdgConfigHome
	}
	return filepath.Join(configHome, "tourdesk", "config.toml"), nil
}
