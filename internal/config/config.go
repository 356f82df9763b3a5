package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
)

type Config struct {
	DataPath    string `json:"data_path" mapstructure:"data_path"`
	Backend     string `json:"backend" mapstructure:"backend"`
	SlotName    string `json:"slot_name" mapstructure:"slot_name"`
	WebPort     int    `json:"web_port" mapstructure:"web_port"`
	LogLevel    string `json:"log_level" mapstructure:"log_level"`
	DefaultSort string `json:"default_sort" mapstructure:"default_sort"`
}

func Default() Config {
	return Config{
		Backend:     BackendSQLite,
		SlotName:    "lazytodo-tasks-v1",
		WebPort:     8080,
		LogLevel:    "info",
		DefaultSort: "created_desc",
	}
}

func DefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "lazytodo", "config.json"), nil
}

func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}

// Load reads path if it exists and applies LAZYTODO_* environment overrides.
// A missing file yields the defaults.
func Load(path string) (Config, error) {
	defaults := Default()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix("lazytodo")
	v.AutomaticEnv()
	v.SetDefault("data_path", defaults.DataPath)
	v.SetDefault("backend", defaults.Backend)
	v.SetDefault("slot_name", defaults.SlotName)
	v.SetDefault("web_port", defaults.WebPort)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("default_sort", defaults.DefaultSort)

	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return Config{}, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Backend {
	case BackendSQLite, BackendFile:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.WebPort < 0 || c.WebPort > 65535 {
		return fmt.Errorf("invalid web port %d", c.WebPort)
	}
	return nil
}

// DefaultDataPath places the data file next to the config file.
func (c Config) DefaultDataPath(configPath string) string {
	name := "lazytodo.db"
	if c.Backend == BackendFile {
		name = "tasks.json"
	}
	return filepath.Join(filepath.Dir(configPath), name)
}

func Save(path string, cfg Config) error {
	if err := EnsureDir(path); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}
