// conf/validate.go

package conf

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/vasu-ramanujam/teriyaki-chasers/internal/errors"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

var validate = validator.New()

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := validate.Struct(settings); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				ve.Errors = append(ve.Errors, describeFieldError(fe))
			}
		} else {
			ve.Errors = append(ve.Errors, err.Error())
		}
	}

	if err := validateDatabaseSettings(&settings.Database); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateLoggingLevels(settings); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

// describeFieldError renders a validator error with the config key path
func describeFieldError(fe validator.FieldError) string {
	// Settings.Classifier.BaseURL -> classifier.baseurl
	path := strings.ToLower(strings.TrimPrefix(fe.Namespace(), "Settings."))
	switch fe.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("%s is required", path)
	case "url":
		return fmt.Sprintf("%s must be an absolute URL, got %q", path, fe.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", path, fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %s=%s (value %v)", path, fe.Tag(), fe.Param(), fe.Value())
	}
}

// validateDatabaseSettings checks the settings of the selected backend
func validateDatabaseSettings(settings *DatabaseSettings) error {
	switch settings.Type {
	case "sqlite":
		if settings.SQLite.Path == "" {
			return fmt.Errorf("database.sqlite.path is required for the sqlite backend")
		}
	case "mysql":
		var missing []string
		if settings.MySQL.Host == "" {
			missing = append(missing, "host")
		}
		if settings.MySQL.Port == "" {
			missing = append(missing, "port")
		}
		if settings.MySQL.Username == "" {
			missing = append(missing, "username")
		}
		if settings.MySQL.Database == "" {
			missing = append(missing, "database")
		}
		if len(missing) > 0 {
			return fmt.Errorf("database.mysql is missing %s", strings.Join(missing, ", "))
		}
	}
	return nil
}

func validateLoggingLevels(settings *Settings) error {
	valid := func(level string) bool {
		switch level {
		case "", "trace", "debug", "info", "warn", "error":
			return true
		}
		return false
	}

	var bad []string
	if !valid(settings.Logging.DefaultLevel) {
		bad = append(bad, "logging.default_level="+settings.Logging.DefaultLevel)
	}
	for module, level := range settings.Logging.ModuleLevels {
		if !valid(level) {
			bad = append(bad, fmt.Sprintf("logging.module_levels.%s=%s", module, level))
		}
	}
	if len(bad) > 0 {
		return fmt.Errorf("invalid log levels: %s", strings.Join(bad, ", "))
	}
	return nil
}
