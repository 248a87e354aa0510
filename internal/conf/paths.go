package conf

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/vasu-ramanujam/teriyaki-chasers/internal/errors"
)

const appDir = "wildlife"

// GetDefaultConfigPaths lists the directories searched for config.yaml. The
// first is where a missing config is created. When one of them already holds
// a config.yaml, only that directory is returned.
func GetDefaultConfigPaths() ([]string, error) {
	userDir, err := os.UserConfigDir()
	if err != nil {
		return nil, errors.New(err).
			Component("configuration").
			Category(errors.CategoryConfiguration).
			Context("operation", "user_config_dir").
			Build()
	}

	paths := searchPaths(userDir, runtime.GOOS)
	for _, dir := range paths {
		if _, err := os.Stat(filepath.Join(dir, "config.yaml")); err == nil {
			return []string{dir}, nil
		}
	}
	return paths, nil
}

func searchPaths(userConfigDir, goos string) []string {
	paths := []string{filepath.Join(userConfigDir, appDir), "."}
	if goos != "windows" {
		paths = append(paths, filepath.Join("/etc", appDir))
	}
	return paths
}
