package datastore

import "github.com/vasu-ramanujam/teriyaki-chasers/internal/logger"

// GetLogger returns the datastore module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("datastore")
}
