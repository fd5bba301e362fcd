package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const appDir = ".datalens"

// Global configuration structure.
type Global struct {
	WorkspacesDir string `mapstructure:"workspaces_dir" yaml:"workspaces_dir" validate:"required"`
	LogDir        string `mapstructure:"log_dir" yaml:"log_dir"`

	// Ingestion and engine
	MaxRows        int `mapstructure:"max_rows" yaml:"max_rows" validate:"gte=0"`
	DateSampleSize int `mapstructure:"date_sample_size" yaml:"date_sample_size" validate:"min=1,max=100000"`

	// Response cache
	CacheCapacity int `mapstructure:"cache_capacity" yaml:"cache_capacity" validate:"min=1"`
	CacheTTLSec   int `mapstructure:"cache_ttl_sec" yaml:"cache_ttl_sec" validate:"gte=0"`

	BatchWorkers     int    `mapstructure:"batch_workers" yaml:"batch_workers" validate:"min=1,max=64"`
	DefaultFormat    string `mapstructure:"default_format" yaml:"default_format" validate:"oneof=json markdown html prompt"`
	PromptTokenLimit int    `mapstructure:"prompt_token_limit" yaml:"prompt_token_limit" validate:"min=100"`
}

// Keys lists the settable configuration keys in display order.
var Keys = []string{
	"workspaces_dir", "log_dir", "max_rows", "date_sample_size", "cache_capacity",
	"cache_ttl_sec", "batch_workers", "default_format", "prompt_token_limit",
}

var validate = validator.New()

// Validate checks field ranges and enumerations.
func (c *Global) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s fails %q (got %v)", fe.Field(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func homeDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, appDir), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.datalens/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := homeDir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
// A .env file in the working directory is read first.
func Load(cfgFile string) (*Global, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("DATALENS")
	v.AutomaticEnv()

	v.SetDefault("workspaces_dir", "")
	v.SetDefault("log_dir", "")
	v.SetDefault("max_rows", 5000)
	v.SetDefault("date_sample_size", 300)
	v.SetDefault("cache_capacity", 64)
	v.SetDefault("cache_ttl_sec", 600)
	v.SetDefault("batch_workers", 4)
	v.SetDefault("default_format", "markdown")
	v.SetDefault("prompt_token_limit", 2000)

	dir, err := homeDir()
	if err != nil {
		return nil, err
	}
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		_ = os.MkdirAll(dir, 0o755)
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.WorkspacesDir == "" {
		c.WorkspacesDir = filepath.Join(dir, "workspaces")
	}
	if c.LogDir == "" {
		c.LogDir = filepath.Join(dir, "logs")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}
