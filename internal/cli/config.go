package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/mirrors/internal/paths"
	"github.com/mesh-intelligence/mirrors/pkg/mirror"
	"github.com/mesh-intelligence/mirrors/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	cfgKeyBackend       = "backend"
	cfgKeyDataDir       = "data_dir"
	cfgKeyNamespaces    = "namespaces"
	cfgKeySyncStrategy  = "sync_strategy"
	cfgKeyBatchSize     = "batch_size"
	cfgKeyBatchInterval = "batch_interval"
	cfgKeyWriteTimeout  = "write_timeout"
	cfgKeyObserver      = "observer"
	cfgKeyLogLevel      = "log_level"

	defaultNamespace = "default"
)

// configFile is the structure written to a fresh config.yaml.
type configFile struct {
	Backend      string   `yaml:"backend"`
	DataDir      string   `yaml:"data_dir,omitempty"`
	Namespaces   []string `yaml:"namespaces"`
	SyncStrategy string   `yaml:"sync_strategy"`
	WriteTimeout string   `yaml:"write_timeout"`
	Observer     string   `yaml:"observer"`
	LogLevel     string   `yaml:"log_level"`
}

const configHeader = "# mirror CLI configuration\n"

// settings is the resolved configuration for one command.
type settings struct {
	configDir string
	backend   types.Config
	mirror    mirror.Config
	logLevel  slog.Level
}

func setDefaults(v *viper.Viper) {
	d := mirror.DefaultConfig()
	v.SetDefault(cfgKeyBackend, types.BackendSQLite)
	v.SetDefault(cfgKeyNamespaces, []string{defaultNamespace})
	v.SetDefault(cfgKeySyncStrategy, types.SyncImmediate)
	v.SetDefault(cfgKeyBatchSize, types.DefaultBatchSize)
	v.SetDefault(cfgKeyBatchInterval, types.DefaultBatchInterval)
	v.SetDefault(cfgKeyWriteTimeout, d.WriteTimeout.String())
	v.SetDefault(cfgKeyObserver, d.Observer)
	v.SetDefault(cfgKeyLogLevel, "info")
}

// loadConfig reads config.yaml from configDir using Viper. It creates the
// directory and a default config.yaml on first run.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// ensureDefaultConfigFile writes config.yaml with default values unless
// the file already exists.
func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}

	d := mirror.DefaultConfig()
	data, err := yaml.Marshal(&configFile{
		Backend:      types.BackendSQLite,
		Namespaces:   []string{defaultNamespace},
		SyncStrategy: types.SyncImmediate,
		WriteTimeout: d.WriteTimeout.String(),
		Observer:     d.Observer,
		LogLevel:     "info",
	})
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, append([]byte(configHeader), data...), 0o644)
}

// loadSettings resolves the directories and builds the backend and
// controller configuration.
func (a *app) loadSettings() (*settings, error) {
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return nil, sysError(fmt.Errorf("resolve config dir: %w", err))
	}
	v, err := loadConfig(configDir)
	if err != nil {
		return nil, sysError(err)
	}
	dataDir, err := paths.ResolveDataDir(a.flags.dataDir, v.GetString(cfgKeyDataDir))
	if err != nil {
		return nil, sysError(fmt.Errorf("resolve data dir: %w", err))
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(v.GetString(cfgKeyLogLevel))); err != nil {
		return nil, userError("invalid %s %q", cfgKeyLogLevel, v.GetString(cfgKeyLogLevel))
	}

	return &settings{
		configDir: configDir,
		backend: types.Config{
			Backend:    v.GetString(cfgKeyBackend),
			DataDir:    dataDir,
			Namespaces: v.GetStringSlice(cfgKeyNamespaces),
			SQLiteConfig: &types.SQLiteConfig{
				SyncStrategy:  v.GetString(cfgKeySyncStrategy),
				BatchSize:     v.GetInt(cfgKeyBatchSize),
				BatchInterval: v.GetInt(cfgKeyBatchInterval),
			},
		},
		mirror: mirror.Config{
			WriteTimeout: v.GetDuration(cfgKeyWriteTimeout),
			Observer:     v.GetString(cfgKeyObserver),
		},
		logLevel: level,
	}, nil
}
