// env.go - Environment variable configuration and validation
package conf

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings with validation.
// The OPENAI_* names are shared with the mobile backend deployment.
func getEnvBindings() []envBinding {
	return []envBinding{
		// Model provider
		{"classifier.apikey", "OPENAI_API_KEY", nil},
		{"classifier.baseurl", "OPENAI_BASE_URL", validateEnvURL},
		{"classifier.photomodel", "OPENAI_PHOTO_MODEL", validateEnvNonEmpty},
		{"classifier.audiomodel", "OPENAI_AUDIO_MODEL", validateEnvNonEmpty},
		{"animals.textmodel", "OPENAI_TEXT_MODEL", validateEnvNonEmpty},

		// Encyclopedia
		{"wikipedia.baseurl", "WIKIPEDIA_BASE_URL", validateEnvURL},

		// Storage
		{"database.type", "WILDLIFE_DATABASE_TYPE", validateEnvDatabaseType},
		{"database.sqlite.path", "WILDLIFE_DATABASE_PATH", validateEnvNonEmpty},
		{"database.mysql.host", "MYSQL_HOST", validateEnvNonEmpty},
		{"database.mysql.port", "MYSQL_PORT", validateEnvPort},
		{"database.mysql.username", "MYSQL_USER", nil},
		{"database.mysql.password", "MYSQL_PASSWORD", nil},
		{"database.mysql.database", "MYSQL_DATABASE", validateEnvNonEmpty},

		// Server and telemetry
		{"webserver.listen", "WILDLIFE_LISTEN", validateEnvNonEmpty},
		{"webserver.debug", "WILDLIFE_DEBUG", validateEnvBool},
		{"sentry.dsn", "SENTRY_DSN", validateEnvURL},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars() error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate != nil {
			if envValue := os.Getenv(binding.EnvVar); envValue != "" {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("Invalid %s value: %v", binding.EnvVar, err))
				}
			}
		}
	}

	// HTTP_TIMEOUT is given in seconds and bounds the model provider call
	if raw := os.Getenv("HTTP_TIMEOUT"); raw != "" {
		timeout, err := parseEnvTimeout(raw)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("Invalid HTTP_TIMEOUT value: %v", err))
		} else {
			viper.Set("classifier.timeout", timeout)
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}

	return nil
}

// configureEnvironmentVariables sets up environment variable support for Viper
func configureEnvironmentVariables() error {
	// WILDLIFE_WEBSERVER_LISTEN style names work for every key
	viper.SetEnvPrefix("WILDLIFE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	return bindEnvVars()
}

// parseEnvTimeout accepts whole seconds ("30") or a Go duration ("45s")
func parseEnvTimeout(value string) (time.Duration, error) {
	if secs, err := strconv.Atoi(value); err == nil {
		if secs <= 0 {
			return 0, fmt.Errorf("timeout must be positive, got %d", secs)
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("must be seconds or a duration: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("timeout must be positive, got %s", d)
	}
	return d, nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("must be true or false")
	}
	return nil
}

func validateEnvNonEmpty(value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("must not be blank")
	}
	return nil
}

func validateEnvURL(value string) error {
	u, err := url.Parse(value)
	if err != nil {
		return err
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("must be an absolute URL")
	}
	return nil
}

func validateEnvDatabaseType(value string) error {
	switch value {
	case "sqlite", "mysql":
		return nil
	default:
		return fmt.Errorf("must be sqlite or mysql, got %q", value)
	}
}

func validateEnvPort(value string) error {
	port, err := strconv.Atoi(value)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("must be a port number between 1 and 65535")
	}
	return nil
}
