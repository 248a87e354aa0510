// Package conf provides configuration management for the wildlife service.
package conf

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/vasu-ramanujam/teriyaki-chasers/internal/errors"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/logger"
)

//go:embed config.yaml
var configFiles embed.FS

// Settings contains all configuration options for the service.
type Settings struct {
	Debug bool `yaml:"debug"`

	Main       MainSettings         `yaml:"main"`
	WebServer  WebServerSettings    `yaml:"webserver"`
	Classifier ClassifierSettings   `yaml:"classifier"`
	Wikipedia  WikipediaSettings    `yaml:"wikipedia"`
	Animals    AnimalsSettings      `yaml:"animals"`
	Database   DatabaseSettings     `yaml:"database"`
	Telemetry  TelemetrySettings    `yaml:"telemetry"`
	Sentry     SentrySettings       `yaml:"sentry"`
	Logging    logger.LoggingConfig `yaml:"logging"`
}

// MainSettings identifies this deployment to upstream services.
type MainSettings struct {
	Name    string `yaml:"name" validate:"required"`    // application name used in the User-Agent
	Contact string `yaml:"contact" validate:"required"` // contact string required by the Wikimedia UA policy
}

// WebServerSettings contains settings for the HTTP API.
type WebServerSettings struct {
	Listen         string        `yaml:"listen" validate:"required"`
	Debug          bool          `yaml:"debug"`
	BodyLimit      string        `yaml:"bodylimit"` // echo body limit, e.g. "32M"
	ReadTimeout    time.Duration `yaml:"readtimeout"`
	WriteTimeout   time.Duration `yaml:"writetimeout"`
	AllowedOrigins []string      `yaml:"allowedorigins"`
}

// ClassifierSettings configures the multimodal model provider.
type ClassifierSettings struct {
	APIKey     string        `yaml:"apikey"` // empty is allowed; identification then fails with a configuration error
	BaseURL    string        `yaml:"baseurl" validate:"required,url"`
	PhotoModel string        `yaml:"photomodel" validate:"required"`
	AudioModel string        `yaml:"audiomodel" validate:"required"`
	Timeout    time.Duration `yaml:"timeout" validate:"gt=0"`
	MaxRetries int           `yaml:"maxretries" validate:"gte=0,lte=5"`
}

// WikipediaSettings configures the encyclopedia lookups.
type WikipediaSettings struct {
	BaseURL   string        `yaml:"baseurl" validate:"required,url"`
	Timeout   time.Duration `yaml:"timeout" validate:"gt=0"`
	RateLimit float64       `yaml:"ratelimit" validate:"gt=0"` // requests per second
}

// AnimalsSettings configures animal name validation and suggestions.
type AnimalsSettings struct {
	TextModel string        `yaml:"textmodel" validate:"required"`
	CacheTTL  time.Duration `yaml:"cachettl" validate:"gte=0"`
	Names     []string      `yaml:"names"` // suggestion corpus
}

// DatabaseSettings selects and configures the species store.
type DatabaseSettings struct {
	Type               string         `yaml:"type" validate:"oneof=sqlite mysql"`
	SQLite             SQLiteSettings `yaml:"sqlite"`
	MySQL              MySQLSettings  `yaml:"mysql"`
	SlowQueryThreshold time.Duration  `yaml:"slowquerythreshold"`
}

// SQLiteSettings contains settings for the SQLite store.
type SQLiteSettings struct {
	Path string `yaml:"path"` // ":memory:" for an in-memory database
}

// MySQLSettings contains settings for the MySQL store.
type MySQLSettings struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// TelemetrySettings controls the Prometheus endpoint.
type TelemetrySettings struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen" validate:"required_if=Enabled true"`
}

// SentrySettings controls opt-in error reporting.
type SentrySettings struct {
	Enabled     bool    `yaml:"enabled"`
	DSN         string  `yaml:"dsn" validate:"required_if=Enabled true"`
	Environment string  `yaml:"environment"`
	SampleRate  float64 `yaml:"samplerate" validate:"gte=0,lte=1"`
}

// settingsInstance is the current settings instance
var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
	configFile       string
)

// SetConfigFile forces Load to read path instead of searching the default locations.
func SetConfigFile(path string) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()
	configFile = path
}

// Load reads the configuration file and environment variables into the settings singleton.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, errors.New(err).
			Component("configuration").
			Category(errors.CategoryConfiguration).
			Context("operation", "unmarshal_config").
			Build()
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, errors.New(err).
			Component("configuration").
			Category(errors.CategoryConfiguration).
			Context("operation", "validate_config").
			Build()
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigType("yaml")

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		configPaths, err := GetDefaultConfigPaths()
		if err != nil {
			return fmt.Errorf("error getting default config paths: %w", err)
		}
		for _, path := range configPaths {
			viper.AddConfigPath(path)
		}
	}

	// function defined in defaults.go
	setDefaultConfig()

	if err := configureEnvironmentVariables(); err != nil {
		// Bad environment values are reported but do not prevent startup
		GetLogger().Warn("environment configuration issues", logger.Error(err))
	}

	err := viper.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		switch {
		case configFile != "":
			return fmt.Errorf("error reading config file %s: %w", configFile, err)
		case errors.As(err, &configFileNotFoundError):
			return createDefaultConfig()
		default:
			return fmt.Errorf("fatal error reading config file: %w", err)
		}
	}

	return nil
}

// createDefaultConfig writes the embedded default config to the first default path
func createDefaultConfig() error {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	configPath := filepath.Join(configPaths[0], "config.yaml")

	if err := WriteDefaultConfig(configPath); err != nil {
		return err
	}

	GetLogger().Info("created default config file", logger.String("path", configPath))
	viper.SetConfigFile(configPath)
	return viper.ReadInConfig()
}

// WriteDefaultConfig writes the embedded default config.yaml to path,
// creating parent directories as needed.
func WriteDefaultConfig(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}
	if err := os.WriteFile(path, []byte(getDefaultConfig()), 0o600); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}
	return nil
}

// getDefaultConfig reads the default configuration from the embedded config.yaml file.
func getDefaultConfig() string {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		// The file is compiled in, so this only happens on a broken build
		panic(fmt.Sprintf("embedded config.yaml missing: %v", err))
	}
	return string(data)
}

// GetSettings returns the current settings instance
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// SaveYAMLConfig writes settings to configPath.
// It overwrites the existing file, not preserving comments or structure.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	// Write to a temporary file first so the replace is atomic
	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempFileName := tempFile.Name()
	defer func() { _ = os.Remove(tempFileName) }()

	if _, err := tempFile.Write(yamlData); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}

	if err := os.Rename(tempFileName, configPath); err != nil {
		return fmt.Errorf("error replacing config file: %w", err)
	}

	return nil
}

// DSN returns the MySQL data source name for these settings.
func (m MySQLSettings) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		m.Username, m.Password, m.Host, m.Port, m.Database)
}

// GetLogger returns the config package logger.
// The logger is fetched from the global logger each time so it follows
// the central logger once that is configured.
func GetLogger() logger.Logger {
	return logger.Global().Module("config")
}
