package datastore

import (
	"fmt"
	"strings"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"

	"github.com/vasu-ramanujam/teriyaki-chasers/internal/errors"
)

// Sentinel errors for repository lookups.
var (
	// ErrSpeciesNotFound indicates the requested species does not exist.
	ErrSpeciesNotFound = errors.NewStd("species not found")

	// ErrSightingNotFound indicates the requested sighting does not exist.
	ErrSightingNotFound = errors.NewStd("sighting not found")
)

// mysqlDuplicateEntry is ER_DUP_ENTRY
const mysqlDuplicateEntry = 1062

// dbError creates a properly categorized database error with context
func dbError(err error, operation, priority string, context ...any) error {
	builder := errors.New(err).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("operation", operation)

	if priority != "" {
		builder = builder.Priority(priority)
	}

	// Add context pairs
	for i := 0; i < len(context)-1; i += 2 {
		if key, ok := context[i].(string); ok {
			builder = builder.Context(key, context[i+1])
		}
	}

	return builder.Build()
}

// notFoundError wraps a sentinel so callers can use both errors.Is and IsNotFound
func notFoundError(sentinel error, operation string, id any) error {
	return errors.New(sentinel).
		Component("datastore").
		Category(errors.CategoryNotFound).
		Context("operation", operation).
		Context("id", fmt.Sprintf("%v", id)).
		Build()
}

// validationError creates a validation error (not sent to users by default)
func validationError(message, field string, value any) error {
	return errors.Newf("%s", message).
		Component("datastore").
		Category(errors.CategoryValidation).
		Context("field", field).
		Context("value", fmt.Sprintf("%v", value)).
		Build()
}

// IsUniqueViolation reports whether err is a unique constraint violation from
// either backend, translated by GORM or not.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}

	var mysqlErr *mysqldriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlDuplicateEntry
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate entry")
}
