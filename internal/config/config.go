package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/notexe/mcp-reminders/internal/logging"
)

// EnvPrefix prefixes environment overrides. A double underscore separates
// nesting levels: REMINDERS_STORE__DEFAULT_LIST sets store.default_list.
const EnvPrefix = "REMINDERS_"

// LegacyDBPathEnv overrides store.path on its own.
const LegacyDBPathEnv = "REMINDER_DB_PATH"

type Config struct {
	Server ServerConfig `koanf:"server"`
	Store  StoreConfig  `koanf:"store"`
	Log    LogConfig    `koanf:"log"`
}

type ServerConfig struct {
	Name    string `koanf:"name"`
	Version string `koanf:"version"`
}

type StoreConfig struct {
	Path        string   `koanf:"path"`         // SQLite database backing the reminders store
	DefaultList string   `koanf:"default_list"` // List new reminders go to when none is named
	Lists       []string `koanf:"lists"`        // Extra lists created on first open
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // text or json
}

// Load layers defaults, the YAML file at configPath (if it exists) and the
// environment, in that order.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(NewDefaultProvider(), nil); err != nil {
		return nil, errors.Wrap(err, "failed to load defaults")
	}

	if configPath != "" {
		configPath = expandPath(configPath)

		if _, err := os.Stat(configPath); err == nil {
			if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
				return nil, errors.Wrap(err, "failed to load config file")
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, errors.Wrap(err, "failed to load env vars")
	}

	if dbPath := os.Getenv(LegacyDBPathEnv); dbPath != "" {
		k.Set("store.path", dbPath)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	cfg.Store.Path = expandPath(cfg.Store.Path)

	return &cfg, nil
}

// envKey maps REMINDERS_STORE__DEFAULT_LIST to store.default_list.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

func (c *Config) Validate() error {
	if c.Store.Path == "" {
		return errors.New("store.path is required")
	}
	if strings.TrimSpace(c.Store.DefaultList) == "" {
		return errors.New("store.default_list must not be empty")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return errors.Newf("unknown log format: %s (supported: text, json)", c.Log.Format)
	}
	return nil
}

// EnsureStoreDir creates the directory holding the store database.
func (c *Config) EnsureStoreDir() error {
	dir := filepath.Dir(c.Store.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "failed to create store directory")
	}
	return nil
}

func expandPath(path string) string {
	if path == "" {
		return path
	}

	if len(path) >= 2 && path[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}

	return path
}
